package sitehandler

import (
	"path"
	"strings"
)

type fileClass int

const (
	classOther  fileClass = iota
	classPage             // html and extensionless routes
	classAsset            // fingerprinted by the front-end build
	classSource           // post sources and the release marker, unhashed names
)

func classify(name string) fileClass {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case "", ".html":
		return classPage
	case ".md", ".markdown":
		return classSource
	case ".css", ".js", ".mjs", ".map",
		".png", ".jpg", ".jpeg", ".webp", ".avif", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf", ".eot":
		return classAsset
	}
	if path.Base(name) == "version.txt" {
		return classSource
	}
	return classOther
}

// cacheControlForFile picks the policy for a file served from the snapshot.
// Post sources share the page policy: they change with every release under
// the same name.
func cacheControlForFile(name string, o *Options) string {
	switch classify(name) {
	case classPage, classSource:
		return o.HTMLCacheControl
	case classAsset:
		return o.AssetCacheControl
	}
	return o.OtherCacheControl
}
