package content

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/tridenttech/trident-web/internal/xerrors"
)

// HashFS digests every regular file under fsys, path and contents, in
// lexical order. Two trees hash equal only if they hold the same files.
func HashFS(fsys fs.FS) (string, error) {
	h := sha256.New()
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		fh := sha256.New()
		if _, err := io.Copy(fh, f); err != nil {
			return xerrors.Wrapf(err, "hash %s", p)
		}
		_, _ = io.WriteString(h, p)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(fh.Sum(nil))
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FromFS builds a snapshot over an existing filesystem, the embedded seed
// or a directory.
func FromFS(fsys fs.FS, src Source) (*Snapshot, error) {
	if fsys == nil {
		return nil, xerrors.New("content: nil filesystem")
	}
	hash, err := HashFS(fsys)
	if err != nil {
		return nil, xerrors.Wrapf(err, "hash %s content", src)
	}
	now := time.Now().UTC()
	return &Snapshot{
		FS: fsys,
		Meta: Meta{
			Version:    versionOf(fsys, hash),
			Hash:       hash,
			Source:     src,
			VerifiedAt: now,
		},
		LoadedAt: now,
	}, nil
}

// LoadDir snapshots a local directory. Files are read on each request, so
// edits show up without a restart, but the hash and the blog store reflect
// the tree at load time.
func LoadDir(dir string) (*Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, xerrors.Wrapf(err, "content dir %s", dir)
	}
	if !info.IsDir() {
		return nil, xerrors.Newf("content dir %s is not a directory", dir)
	}
	return FromFS(os.DirFS(dir), SourceDisk)
}
