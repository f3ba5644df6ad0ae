package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/tridenttech/trident-web/internal/pathutil"
)

const indexFile = "index.html"

// cleanURLPath normalizes p, keeping a trailing slash. ok is false for
// paths that are ambiguous or try to climb out of the root.
func cleanURLPath(p string) (string, bool) {
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if strings.ContainsAny(p, "\x00\\") || strings.Contains(p, "..") || pathutil.HasDotSegments(p) {
		return "", false
	}
	clean := path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean, true
}

// resolveFile maps a cleaned URL path to a file in fsys. redirectTo is set
// for a directory requested without its trailing slash.
func resolveFile(clean string, fsys fs.FS) (file, redirectTo string, ok bool) {
	if clean == "/" {
		return indexFile, "", existsFile(fsys, indexFile)
	}

	rel := strings.TrimPrefix(clean, "/")
	if strings.HasSuffix(clean, "/") {
		name := rel + indexFile
		return name, "", existsFile(fsys, name)
	}
	if existsFile(fsys, rel) {
		return rel, "", true
	}
	if path.Ext(clean) == "" && existsFile(fsys, rel+"/"+indexFile) {
		return "", clean + "/", true
	}
	return "", "", false
}

type routeKind int

const (
	routeNone routeKind = iota
	routeApp
	routePost
)

// appRoute classifies paths the front end renders itself. For post pages
// slug is the decoded identifier.
func (h *Handler) appRoute(clean string) (kind routeKind, slug string) {
	trimmed := strings.TrimSuffix(clean, "/")
	if trimmed == "" {
		return routeApp, ""
	}
	for _, r := range h.opts.AppRoutes {
		if trimmed == strings.TrimSuffix(r, "/") {
			return routeApp, ""
		}
	}

	rest, found := strings.CutPrefix(trimmed, strings.TrimSuffix(h.opts.BlogPrefix, "/")+"/")
	if !found || rest == "" || strings.Contains(rest, "/") || path.Ext(rest) != "" {
		return routeNone, ""
	}
	return routePost, rest
}

func existsFile(fsys fs.FS, name string) bool {
	if fsys == nil || name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
