package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tridenttech/trident-web/internal/httpmw"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// reported is set after the first denial so the denial is logged once;
	// it resets when the bucket is evicted
	reported bool
}

// Limiter holds one token bucket per client key.
type Limiter struct {
	scope string

	mu      sync.Mutex
	buckets map[string]*bucket

	perSecond  rate.Limit
	burst      int
	idleTTL    time.Duration
	retryAfter time.Duration

	// maxKeys caps the bucket map; new keys are denied once it is full
	maxKeys     int
	capReported bool

	onFirstDenied func(scope, key string)
	onDenied      func(scope, key string)
	onCapacity    func(scope string)
}

type Option func(*Limiter)

// WithRate sets the refill rate and the bucket size.
// WithRate(0.1, 3) allows 3 requests at once, then one every 10 seconds.
func WithRate(perSecond float64, burst int) Option {
	return func(l *Limiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle key keeps its bucket.
func WithTTL(d time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = d }
}

// WithRetryAfter sets the Retry-After hint on 429 responses.
func WithRetryAfter(d time.Duration) Option {
	return func(l *Limiter) { l.retryAfter = d }
}

// WithMaxKeys caps how many clients are tracked at once.
func WithMaxKeys(n int) Option {
	return func(l *Limiter) { l.maxKeys = n }
}

// WithOnCapacity is called the first time a new key is turned away because
// the map is full. It fires again only after eviction makes room.
func WithOnCapacity(fn func(scope string)) Option {
	return func(l *Limiter) { l.onCapacity = fn }
}

// WithOnFirstDenied is called once per bucket lifetime, for logging.
func WithOnFirstDenied(fn func(scope, key string)) Option {
	return func(l *Limiter) { l.onFirstDenied = fn }
}

// WithOnDenied is called on every denial, for counters.
func WithOnDenied(fn func(scope, key string)) Option {
	return func(l *Limiter) { l.onDenied = fn }
}

// New creates a Limiter for scope. The eviction goroutine stops with ctx.
func New(ctx context.Context, scope string, opts ...Option) *Limiter {
	l := &Limiter{
		scope:      scope,
		buckets:    make(map[string]*bucket),
		perSecond:  10,
		burst:      30,
		idleTTL:    5 * time.Minute,
		retryAfter: 30 * time.Second,
		maxKeys:    100000,
	}
	for _, o := range opts {
		o(l)
	}
	go l.evictLoop(ctx)
	return l
}

// Scope returns the name the Limiter was created with.
func (l *Limiter) Scope() string { return l.scope }

// Allow takes a token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok && len(l.buckets) >= l.maxKeys {
		report := !l.capReported
		l.capReported = true
		l.mu.Unlock()
		if report && l.onCapacity != nil {
			l.onCapacity(l.scope)
		}
		if l.onDenied != nil {
			l.onDenied(l.scope, key)
		}
		return false
	}
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	allowed := b.limiter.Allow()
	first := !allowed && !b.reported
	if first {
		b.reported = true
	}
	l.mu.Unlock()

	// hooks run unlocked, they may log or touch metrics
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(l.scope, key)
	}
	if !allowed && l.onDenied != nil {
		l.onDenied(l.scope, key)
	}
	return allowed
}

// Len is the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(l.idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evictIdle(now)
		}
	}
}

func (l *Limiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
	if len(l.buckets) < l.maxKeys {
		l.capReported = false
	}
}

// Middleware rejects requests over budget with 429, keyed on the client IP
// resolved by httpmw.ClientIP.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	retry := strconv.Itoa(int(l.retryAfter.Round(time.Second) / time.Second))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(httpmw.ClientIPFromContext(r.Context())) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", retry)
			w.WriteHeader(http.StatusTooManyRequests)
			// no detail about remaining budget or refill time
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
