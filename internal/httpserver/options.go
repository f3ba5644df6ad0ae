package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tridenttech/trident-web/internal/health"
	"github.com/tridenttech/trident-web/internal/httpmw"
	"github.com/tridenttech/trident-web/internal/log"
)

// RouteRegistrar attaches a group of routes to the router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// DefaultMaxBodyBytes covers the contact form with room to spare.
const DefaultMaxBodyBytes = 32 << 10

type Options struct {
	Logger log.Logger
	Port   int // default 8080

	// APIs are registered in order before the site fallback.
	APIs []RouteRegistrar
	// SiteHandler serves every request no API route matched.
	SiteHandler http.Handler

	// Health and Readiness, when set, are also served on the public port
	// for load balancers that cannot reach the admin port.
	Health    health.Probe
	Readiness health.Probe

	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	ContentInfo  httpmw.ContentInfo

	UseRecoverMW bool
	OnPanic      func()

	MaxBodyBytes int64
}
