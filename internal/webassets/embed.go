// Package webassets embeds the fallback pages and a seed site. The seed is
// served when no other content source is configured, so a fresh checkout
// runs without external setup.
package webassets

import (
	"embed"
	"io/fs"

	"github.com/tridenttech/trident-web/internal/xerrors"
)

//go:embed fallback seed
var embedded embed.FS

const (
	MaintenanceFile = "maintenance.html"
	NotFoundFile    = "404.html"
)

// FallbackFS holds the maintenance and 404 pages served when the site
// content is missing or incomplete.
func FallbackFS() fs.FS {
	sub, err := fs.Sub(embedded, "fallback")
	if err != nil {
		panic(xerrors.Wrap(err, "webassets: fallback subfs"))
	}
	return sub
}

// SeedSiteFS returns the seed site, ok only if it has an index.html.
func SeedSiteFS() (fs.FS, bool) {
	sub, err := fs.Sub(embedded, "seed")
	if err != nil {
		return nil, false
	}
	if _, err := fs.Stat(sub, "index.html"); err != nil {
		return nil, false
	}
	return sub, true
}
