package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tridenttech/trident-web/internal/blog"
	"github.com/tridenttech/trident-web/internal/bloghttp"
	"github.com/tridenttech/trident-web/internal/cfg"
	"github.com/tridenttech/trident-web/internal/contact"
	"github.com/tridenttech/trident-web/internal/content"
	"github.com/tridenttech/trident-web/internal/health"
	"github.com/tridenttech/trident-web/internal/httpmw"
	"github.com/tridenttech/trident-web/internal/httpserver"
	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/metrics"
	"github.com/tridenttech/trident-web/internal/opshttp"
	"github.com/tridenttech/trident-web/internal/otelx"
	"github.com/tridenttech/trident-web/internal/prof"
	"github.com/tridenttech/trident-web/internal/provenancehttp"
	"github.com/tridenttech/trident-web/internal/ratelimit"
	"github.com/tridenttech/trident-web/internal/sitehandler"
	v "github.com/tridenttech/trident-web/internal/version"
	"github.com/tridenttech/trident-web/internal/webassets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.App, vi.Version, vi.Commit, vi.CommitDate, vi.BuildID, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// levels were checked by Validate
	lvl, _ := log.ParseLevel(conf.LogLevel)
	var stackLvl slog.Leveler
	if l, err := log.ParseLevel(conf.StacktraceLevel); err == nil {
		stackLvl = l
	}
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildID,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"content_source", conf.ResolveContentSource(),
		"blog_dir", conf.BlogDir,
		"contact_relay", conf.ContactRelayURL != "",
		"trusted_hops", conf.TrustedHops,
	)

	m := metrics.New()
	m.SetBuildInfo("server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:           conf.EnablePyroscope,
		AppName:           v.AppName,
		ServerAddress:     conf.PyroServer,
		TenantID:          conf.PyroTenantID,
		BasicAuthUser:     conf.PyroUser,
		BasicAuthPassword: conf.PyroPassword,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.ShortCommit(),
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  conf.OTLPInsecure,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed, tracing disabled")
		shutdownOTEL, _ = otelx.Init(ctx, otelx.Options{})
	}

	// content and the blog are loaded once; a new release is a new process
	contentMgr := content.NewManager()
	snap, err := loadContent(ctx, conf, L, m)
	if err != nil {
		L.Error(ctx, err, "no site content, serving maintenance page")
	} else {
		contentMgr.Set(*snap)
		m.SetContent(string(snap.Meta.Source), snap.Meta.Hash, snap.Meta.Version, snap.LoadedAt)
		L.Info(ctx, "site content active",
			"source", snap.Meta.Source,
			"content_version", snap.Meta.Version,
			"content_hash", snap.Meta.Hash,
			"signed", snap.Meta.Signed(),
		)
	}

	var posts *blog.Store
	if snap != nil {
		posts = loadBlog(ctx, snap, conf, L, m)
	} else {
		posts = blog.Load(ctx, map[string]string{}, blog.LoadOptions{Logger: L})
	}

	siteHandler, err := sitehandler.New(sitehandler.Options{
		Logger:     L,
		Content:    contentMgr,
		FallbackFS: webassets.FallbackFS(),
		Posts:      posts,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	siteLimiter := newLimiter(ctx, L, m, "site", conf.SiteRate, conf.SiteBurst)
	contactLimiter := newLimiter(ctx, L, m, "contact", conf.ContactRate, conf.ContactBurst)

	blogAPI := bloghttp.NewAPI(posts, blog.NewRenderer(), L)
	contactAPI := contact.NewAPI(
		contact.NewRelay(conf.ContactRelayURL, conf.ContactTimeout),
		L,
		contact.WithRateLimit(contactLimiter.Middleware),
		contact.WithOnResult(m.ContactResult),
	)

	provenanceAPI := provenancehttp.NewAPI(contentMgr, posts, vi, L)

	var gate health.ShutdownGate
	readiness := health.All(gate.Probe(), health.ReadyErr(contentMgr))

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		APIs:         []httpserver.RouteRegistrar{blogAPI, contactAPI, provenanceAPI},
		SiteHandler:  siteHandler,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		MetricsMW:    m.Middleware,
		RateLimitMW:  siteLimiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		ContentInfo:  contentMgr,
		UseRecoverMW: true,
		OnPanic:      m.IncHTTPPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}

	// the admin port rejects public peers unless explicitly allowed
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
		AllowPublic: conf.AdminAllowPublic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		_ = siteHTTPStop(context.Background())
		os.Exit(1)
	}

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	stop()
	L.Info(context.Background(), "shutdown signal received")

	// fail readiness first so the load balancer stops routing to us
	gate.Set("draining")
	drain(L, conf.ShutdownDrain)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}

func newLimiter(ctx context.Context, L log.Logger, m *metrics.ServerMetrics, scope string, perSecond float64, burst int) *ratelimit.Limiter {
	return ratelimit.New(ctx, scope,
		ratelimit.WithRate(perSecond, burst),
		ratelimit.WithOnDenied(m.RateLimitDenied),
		// once per key until it is evicted
		ratelimit.WithOnFirstDenied(func(scope, ip string) {
			L.Warn(ctx, "rate limit triggered", "scope", scope, "ip", ip)
		}),
		ratelimit.WithOnCapacity(func(scope string) {
			m.RateLimitCapacity(scope)
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted", "scope", scope)
		}),
	)
}

// drain waits for in-flight requests and load balancer health checks. A
// second signal skips the wait.
func drain(L log.Logger, d time.Duration) {
	if d <= 0 {
		return
	}
	L.Info(context.Background(), "draining before shutdown", "duration", d.String())
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(forceCh)

	select {
	case <-time.After(d):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
}

// notifySystemd sends READY=1 when started as a Type=notify unit.
func notifySystemd() error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return nil
}
