// Package httpmw holds the middleware stack of the public server.
//
// httpserver.NewHandler composes it, outermost first: security headers,
// panic recovery, request ID, client IP, rate limit, tracing, content
// headers, metrics, request logger, then the chi router with route
// annotation and access logging inside.
//
// Query strings, user agents and other caller-supplied headers are never
// logged.
package httpmw
