// Package pathutil checks slash-separated paths taken from requests,
// archives and configuration.
package pathutil

import (
	"path"
	"strings"

	"github.com/tridenttech/trident-web/internal/xerrors"
)

var (
	ErrInvalidChar = xerrors.New("pathutil: NUL or backslash in path")
	ErrAbsolute    = xerrors.New("pathutil: absolute path")
	ErrTraversal   = xerrors.New("pathutil: path escapes its root")
)

// HasDotSegments reports whether any segment is exactly "." or "..".
func HasDotSegments(p string) bool {
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// CleanRelative cleans a relative path that must stay under its root.
// The root itself comes back as ".".
func CleanRelative(p string) (string, error) {
	if strings.ContainsAny(p, "\x00\\") {
		return "", xerrors.Wrapf(ErrInvalidChar, "%q", p)
	}
	if path.IsAbs(p) {
		return "", xerrors.Wrapf(ErrAbsolute, "%q", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", xerrors.Wrapf(ErrTraversal, "%q", p)
	}
	return clean, nil
}
