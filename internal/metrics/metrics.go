package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tridenttech/trident-web/internal/version"
)

// ServerMetrics owns a private registry; nothing is registered globally.
type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	// http
	inflight   prometheus.Gauge
	reqTotal   *prometheus.CounterVec
	reqDur     *prometheus.HistogramVec
	respBytes  *prometheus.HistogramVec
	errorsTot  *prometheus.CounterVec
	panicTotal prometheus.Counter

	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge

	rateLimited       *prometheus.CounterVec
	rateLimitCapacity *prometheus.CounterVec

	// site content
	contentSource   *prometheus.GaugeVec
	contentLoadedTs prometheus.Gauge
	contentBundle   *prometheus.GaugeVec
	bundleLoadDur   prometheus.Histogram

	// blog
	blogPosts   prometheus.Gauge
	blogTags    prometheus.Gauge
	blogSkipped prometheus.Counter

	contactTotal *prometheus.CounterVec
}

// New returns a fresh registry with the runtime collectors and all app metrics.
// HTTP labels are limited to method, route pattern and status.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 9),
		}, []string{"method", "route"}),
		errorsTot: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx responses by method and route",
		}, []string{"method", "route"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_id", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is running (1) or not (0)",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Requests rejected by a rate limiter, by limiter scope",
		}, []string{"scope"}),
		rateLimitCapacity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_rate_limiter_capacity_reached_total",
			Help: "Times a rate limiter turned away a new client because its table was full",
		}, []string{"scope"}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_source_info",
			Help: "Where the site content came from (label carries value, gauge is always 1)",
		}, []string{"source"}),
		contentLoadedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "content_loaded_timestamp_seconds",
			Help: "Unix time the site content was loaded",
		}),
		contentBundle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_bundle_info",
			Help: "Active content bundle identity (value is always 1)",
		}, []string{"sha256", "version"}),
		bundleLoadDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "content_bundle_load_duration_seconds",
			Help:    "Time to fetch, verify and unpack the content bundle",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		blogPosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blog_posts_loaded",
			Help: "Number of blog posts in the loaded collection",
		}),
		blogTags: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blog_tags",
			Help: "Number of distinct blog categories",
		}),
		blogSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blog_documents_skipped_total",
			Help: "Blog documents dropped because they failed to parse",
		}),
		contactTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by outcome",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTot,
		m.panicTotal,
		m.buildInfo,
		m.profilingActive,
		m.rateLimited,
		m.rateLimitCapacity,
		m.contentSource,
		m.contentLoadedTs,
		m.contentBundle,
		m.bundleLoadDur,
		m.blogPosts,
		m.blogTags,
		m.blogSkipped,
		m.contactTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry is exposed for tests and for callers adding their own collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *ServerMetrics) IncHTTPPanic() { m.panicTotal.Inc() }

// SetBuildInfo is called once at startup.
func (m *ServerMetrics) SetBuildInfo(component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        vi.App,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_id":   vi.BuildID,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
		return
	}
	m.profilingActive.Set(0)
}

// RateLimitDenied matches ratelimit.WithOnDenied.
func (m *ServerMetrics) RateLimitDenied(scope, _ string) {
	m.rateLimited.WithLabelValues(scope).Inc()
}

// RateLimitCapacity matches ratelimit.WithOnCapacity.
func (m *ServerMetrics) RateLimitCapacity(scope string) {
	m.rateLimitCapacity.WithLabelValues(scope).Inc()
}

// SetContent records the active content snapshot.
func (m *ServerMetrics) SetContent(source, sha256, version string, loadedAt time.Time) {
	m.contentSource.Reset()
	m.contentSource.WithLabelValues(source).Set(1)
	m.contentBundle.Reset()
	if sha256 != "" {
		m.contentBundle.WithLabelValues(sha256, version).Set(1)
	}
	m.contentLoadedTs.Set(float64(loadedAt.Unix()))
}

func (m *ServerMetrics) ObserveBundleLoad(d time.Duration) {
	m.bundleLoadDur.Observe(d.Seconds())
}

// SetBlog records the loaded post collection size.
func (m *ServerMetrics) SetBlog(posts, tags int) {
	m.blogPosts.Set(float64(posts))
	m.blogTags.Set(float64(tags))
}

// BlogDocumentSkipped matches blog.LoadOptions.OnSkip.
func (m *ServerMetrics) BlogDocumentSkipped(string, error) {
	m.blogSkipped.Inc()
}

// ContactResult matches contact.WithOnResult.
func (m *ServerMetrics) ContactResult(result string) {
	m.contactTotal.WithLabelValues(result).Inc()
}
