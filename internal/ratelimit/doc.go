// Package ratelimit provides per-client token buckets keyed by resolved
// client IP, with background eviction of idle entries.
//
// Each Limiter has a scope name ("site", "contact") so several budgets can run
// side by side and be told apart in logs and metrics. State is in memory and
// per instance; distributed floods need an upstream WAF or CDN limit.
package ratelimit
