package opshttp

import (
	"net/http"

	"github.com/tridenttech/trident-web/internal/health"
)

type Options struct {
	Port        int // default 9000
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe

	// AllowPublic serves callers from public addresses too. Off by default:
	// the admin port is for the load balancer, Prometheus and operators.
	AllowPublic bool
}
