package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// statusWriter records the status and bytes written.
type statusWriter struct {
	http.ResponseWriter
	status int
	n      int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.n += n
	return n, err
}

// unmatchedRoute labels requests chi did not route (static files, 404s), so a
// path scanner cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// Middleware measures inflight, totals, latency and response size. It sits
// outside the router, so it seeds the chi route context the router then fills.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if chi.RouteContext(r.Context()) == nil {
			r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, chi.NewRouteContext()))
		}

		m.inflight.Inc()
		defer m.inflight.Dec()

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		m.observe(r, sw, time.Since(start))
	})
}

func (m *ServerMetrics) observe(r *http.Request, sw *statusWriter, elapsed time.Duration) {
	ctx := r.Context()
	status := sw.status
	if status == 0 {
		status = http.StatusOK
	}
	route := routeLabel(chi.RouteContext(ctx))

	m.reqTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	if status >= 500 {
		m.errorsTot.WithLabelValues(r.Method, route).Inc()
	}

	obs := m.reqDur.WithLabelValues(r.Method, route)
	eo, canExemplar := obs.(prometheus.ExemplarObserver)
	if ex := traceExemplar(ctx); ex != nil && canExemplar {
		eo.ObserveWithExemplar(elapsed.Seconds(), ex)
	} else {
		obs.Observe(elapsed.Seconds())
	}
	m.respBytes.WithLabelValues(r.Method, route).Observe(float64(sw.n))
}

func routeLabel(rc *chi.Context) string {
	if rc == nil {
		return unmatchedRoute
	}
	if p := rc.RoutePattern(); p != "" && p != "/*" {
		return p
	}
	return unmatchedRoute
}

// if a sampled trace is present attach its trace_id as an exemplar
func traceExemplar(ctx context.Context) prometheus.Labels {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		return nil
	}
	return prometheus.Labels{"trace_id": sc.TraceID().String()}
}
