package content

import (
	"io/fs"

	"github.com/tridenttech/trident-web/internal/xerrors"
)

// ValidationOptions controls ValidateSnapshot. The zero value only requires
// index.html.
type ValidationOptions struct {
	// MinFiles rejects snapshots with fewer regular files. 0 disables it.
	MinFiles int
}

// ValidateSnapshot rejects snapshots that cannot serve the site: no
// filesystem, a missing or empty index.html, or too few files.
func ValidateSnapshot(snap *Snapshot, opts ValidationOptions) error {
	if snap == nil {
		return xerrors.New("validate: snapshot is nil")
	}
	if snap.FS == nil {
		return xerrors.New("validate: snapshot has nil filesystem")
	}

	info, err := fs.Stat(snap.FS, "index.html")
	if err != nil {
		return xerrors.Wrap(err, "validate: index.html not found")
	}
	if info.IsDir() {
		return xerrors.New("validate: index.html is a directory")
	}
	if info.Size() == 0 {
		return xerrors.New("validate: index.html is empty")
	}

	if opts.MinFiles > 0 {
		n, err := countFiles(snap.FS)
		if err != nil {
			return xerrors.Wrap(err, "validate: count files")
		}
		if n < opts.MinFiles {
			return xerrors.Newf("validate: snapshot has %d files, minimum is %d", n, opts.MinFiles)
		}
	}
	return nil
}

func countFiles(fsys fs.FS) (int, error) {
	n := 0
	err := fs.WalkDir(fsys, ".", func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			n++
		}
		return nil
	})
	return n, err
}
