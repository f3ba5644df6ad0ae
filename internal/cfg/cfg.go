package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/pathutil"
)

// EnvPrefix is prepended to upper-cased flag names, "http-port" -> TRIDENT_HTTP_PORT.
const EnvPrefix = "TRIDENT_"

// Content sources
const (
	SourceAuto = "auto" // s3 when a bucket is set, else disk when a dir is set, else seed
	SourceSeed = "seed"
	SourceDisk = "disk"
	SourceS3   = "s3"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort         int
	AdminPort        int
	AdminAllowPublic bool
	EnablePprof      bool
	TrustedHops      int
	ShutdownDrain    time.Duration

	EnableTracing bool
	OTLPEndpoint  string
	OTLPInsecure  bool
	TraceSample   float64

	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
	PyroUser        string
	PyroPassword    string

	ContentSource        string
	ContentDir           string
	ContentS3Bucket      string
	ContentS3Prefix      string
	ContentSSMParam      string
	ContentSigningKeyARN string

	BlogDir     string
	BlogTagMode string

	SiteRate  float64
	SiteBurst int

	ContactRelayURL string
	ContactTimeout  time.Duration
	ContactRate     float64
	ContactBurst    int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.AdminAllowPublic, "admin-allow-public", false, "Serve the admin port to public source addresses")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.IntVar(&c.TrustedHops, "trusted-hops", 1, "reverse proxies in front of the server whose X-Forwarded-For entries are trusted (0..8)")
	fs.DurationVar(&c.ShutdownDrain, "shutdown-drain", 5*time.Second, "time between failing readiness and closing listeners")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.BoolVar(&c.OTLPInsecure, "otlp-insecure", true, "plaintext gRPC to the collector")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")

	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.PyroUser, "pyro-user", "", "basic auth user for pyro-server")
	fs.StringVar(&c.PyroPassword, "pyro-password", "", "basic auth password for pyro-server (prefer the env var)")

	fs.StringVar(&c.ContentSource, "content-source", SourceAuto, "auto|seed|disk|s3")
	fs.StringVar(&c.ContentDir, "content-dir", "", "local directory with the built site")
	fs.StringVar(&c.ContentS3Bucket, "content-s3-bucket", "", "s3 bucket name to get content bundle from")
	fs.StringVar(&c.ContentS3Prefix, "content-s3-prefix", "trident-web/content/bundles", "s3 prefix (key) to get content bundle from")
	fs.StringVar(&c.ContentSSMParam, "content-ssm-param", "/trident-web/content/release/sha256", "ssm parameter name to get content bundle hash from")
	fs.StringVar(&c.ContentSigningKeyARN, "content-signing-key-arn", "", "KMS key ARN for content bundle signature verification")

	fs.StringVar(&c.BlogDir, "blog-dir", "blog", "directory of markdown posts inside the site content")
	fs.StringVar(&c.BlogTagMode, "blog-tag-mode", "fold", "category dedup: fold (case-insensitive) or exact")

	fs.Float64Var(&c.SiteRate, "site-rate", 20, "per-client requests per second across the site")
	fs.IntVar(&c.SiteBurst, "site-burst", 60, "per-client burst across the site")

	fs.StringVar(&c.ContactRelayURL, "contact-relay-url", "", "endpoint contact form submissions are posted to")
	fs.DurationVar(&c.ContactTimeout, "contact-timeout", 10*time.Second, "timeout for the contact relay request")
	fs.Float64Var(&c.ContactRate, "contact-rate", 1.0/60, "per-client contact submissions per second")
	fs.IntVar(&c.ContactBurst, "contact-burst", 3, "per-client contact submission burst")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s", f.Name, redact(f.Name, f.Value.String()), key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, redact(f.Name, envVal), err)
			}
		}
	})
}

func redact(name, v string) string {
	if strings.Contains(name, "password") && v != "" {
		return "[redacted]"
	}
	return v
}

// ResolveContentSource turns "auto" into a concrete source.
func (c App) ResolveContentSource() string {
	if c.ContentSource != SourceAuto && c.ContentSource != "" {
		return c.ContentSource
	}
	switch {
	case c.ContentS3Bucket != "":
		return SourceS3
	case c.ContentDir != "":
		return SourceDisk
	}
	return SourceSeed
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}
	if c.TrustedHops < 0 || c.TrustedHops > 8 {
		errs = append(errs, fmt.Errorf("TRUSTED_HOPS must be 0..8 (got %d)", c.TrustedHops))
	}
	if c.ShutdownDrain < 0 || c.ShutdownDrain > time.Minute {
		errs = append(errs, fmt.Errorf("SHUTDOWN_DRAIN must be 0..1m (got %s)", c.ShutdownDrain))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
	}

	// Tracing
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	// Pyroscope
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if (c.PyroUser == "") != (c.PyroPassword == "") {
			errs = append(errs, fmt.Errorf("PYRO_USER and PYRO_PASSWORD must be set together"))
		}
	}

	// Content
	switch c.ContentSource {
	case SourceAuto, SourceSeed:
	case SourceDisk:
		if c.ContentDir == "" {
			errs = append(errs, fmt.Errorf("CONTENT_DIR required when CONTENT_SOURCE=disk"))
		}
	case SourceS3:
		if c.ContentS3Bucket == "" {
			errs = append(errs, fmt.Errorf("CONTENT_S3_BUCKET required when CONTENT_SOURCE=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid CONTENT_SOURCE %q (want auto|seed|disk|s3)", c.ContentSource))
	}
	if c.ResolveContentSource() == SourceS3 {
		if c.ContentSSMParam == "" {
			errs = append(errs, fmt.Errorf("CONTENT_SSM_PARAM is required for s3 content"))
		}
		if c.ContentS3Prefix == "" {
			errs = append(errs, fmt.Errorf("CONTENT_S3_PREFIX is required for s3 content"))
		}
	}

	// Blog
	if clean, err := pathutil.CleanRelative(c.BlogDir); err != nil || clean == "." {
		errs = append(errs, fmt.Errorf("BLOG_DIR must be a relative path inside the content (got %q)", c.BlogDir))
	}
	if c.BlogTagMode != "fold" && c.BlogTagMode != "exact" {
		errs = append(errs, fmt.Errorf("invalid BLOG_TAG_MODE %q (want fold|exact)", c.BlogTagMode))
	}

	// Rate limits
	if c.SiteRate <= 0 || c.SiteBurst < 1 {
		errs = append(errs, fmt.Errorf("SITE_RATE must be > 0 and SITE_BURST >= 1 (got %g, %d)", c.SiteRate, c.SiteBurst))
	}
	if c.ContactRate <= 0 || c.ContactBurst < 1 {
		errs = append(errs, fmt.Errorf("CONTACT_RATE must be > 0 and CONTACT_BURST >= 1 (got %g, %d)", c.ContactRate, c.ContactBurst))
	}

	// Contact relay
	if c.ContactRelayURL != "" {
		if u, err := url.Parse(c.ContactRelayURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			errs = append(errs, fmt.Errorf("CONTACT_RELAY_URL must be an http(s) URL (got %q)", c.ContactRelayURL))
		}
	}
	if c.ContactTimeout <= 0 || c.ContactTimeout > time.Minute {
		errs = append(errs, fmt.Errorf("CONTACT_TIMEOUT must be in (0, 1m] (got %s)", c.ContactTimeout))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
