package content

import (
	"io/fs"
	"strings"
	"time"
)

// VersionFile is an optional file at the snapshot root naming the release.
const VersionFile = "version.txt"

type Snapshot struct {
	FS       fs.FS
	Meta     Meta
	LoadedAt time.Time
}

// versionOf reads VersionFile, falling back to the short hash.
func versionOf(fsys fs.FS, hash string) string {
	if b, err := fs.ReadFile(fsys, VersionFile); err == nil {
		if v := strings.TrimSpace(string(b)); v != "" && len(v) <= 64 {
			return v
		}
	}
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
