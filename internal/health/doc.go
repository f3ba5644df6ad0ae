// Package health provides the liveness and readiness probes served on the
// admin port.
//
// Readiness is the conjunction of a [ShutdownGate], closed first during
// shutdown so load balancers drain before the listener stops, and checks
// on the loaded site content and blog posts.
package health
