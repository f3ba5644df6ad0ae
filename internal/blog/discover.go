package blog

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/xerrors"
)

// Ext is the file extension of a post source document.
const Ext = ".md"

// Discover reads every *.md file directly under dir in fsys and returns
// them keyed by identifier (the file name without extension). A missing dir
// is an empty collection. Files that cannot be read are logged and skipped.
func Discover(ctx context.Context, fsys fs.FS, dir string, logger log.Logger) (map[string]string, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if dir == "" {
		dir = "."
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn(ctx, "blog directory not found, no posts loaded", "dir", dir)
			return map[string]string{}, nil
		}
		return nil, xerrors.Wrapf(err, "read blog dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make(map[string]string, len(names))
	for _, name := range names {
		id := strings.TrimSuffix(name, Ext)
		if id == "" {
			continue
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			logger.Error(ctx, xerrors.Wrapf(err, "read %s", name), "skipping unreadable blog document", "slug", id)
			continue
		}
		docs[id] = string(b)
	}
	return docs, nil
}
