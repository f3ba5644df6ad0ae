package sitehandler

import (
	"io/fs"
	"strings"

	"github.com/tridenttech/trident-web/internal/content"
	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/xerrors"
)

var ErrInvalidOptions = xerrors.New("sitehandler: invalid options")

type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
}

// PostLookup reports whether a blog post exists. *blog.Store satisfies it.
type PostLookup interface {
	Has(slug string) bool
}

// DefaultAppRoutes are the client-side pages served from index.html.
var DefaultAppRoutes = []string{"/about", "/services", "/contact", "/blog"}

type Options struct {
	Logger log.Logger

	// Content is the active site snapshot.
	Content SnapshotProvider
	// FallbackFS holds the maintenance page and a last-resort 404.
	FallbackFS fs.FS

	// Posts decides whether /blog/{slug} exists. When nil every slug is
	// handed to the front end.
	Posts PostLookup

	// AppRoutes are served index.html in addition to "/".
	AppRoutes []string
	// BlogPrefix is where post pages live. Default "/blog/".
	BlogPrefix string

	MaintenanceFile string // in FallbackFS, default "maintenance.html"
	Fallback404File string // in FallbackFS, default "404.html"
	Site404File     string // in the snapshot, default "404.html"

	HTMLCacheControl  string // default "no-cache"
	AssetCacheControl string // default "public, max-age=31536000, immutable"
	OtherCacheControl string // default "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.AppRoutes == nil {
		o.AppRoutes = DefaultAppRoutes
	}
	if o.BlogPrefix == "" {
		o.BlogPrefix = "/blog/"
	}
	if !strings.HasSuffix(o.BlogPrefix, "/") {
		o.BlogPrefix += "/"
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.Site404File == "" {
		o.Site404File = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Content == nil {
		return xerrors.Wrap(ErrInvalidOptions, "Content is nil")
	}
	if o.FallbackFS == nil {
		return xerrors.Wrap(ErrInvalidOptions, "FallbackFS is nil")
	}
	// fail on boot if mispackaged; the fallback 404 is optional
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return xerrors.Wrapf(ErrInvalidOptions, "missing %q in fallback FS: %v", o.MaintenanceFile, err)
	}
	for _, r := range o.AppRoutes {
		if !strings.HasPrefix(r, "/") {
			return xerrors.Wrapf(ErrInvalidOptions, "app route %q must start with /", r)
		}
	}
	return nil
}
