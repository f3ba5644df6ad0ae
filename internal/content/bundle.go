package content

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing/fstest"

	"github.com/tridenttech/trident-web/internal/pathutil"
	"github.com/tridenttech/trident-web/internal/xerrors"
)

// Limits bounds what a bundle may contain.
type Limits struct {
	MaxBundle int64 // compressed archive
	MaxFile   int64 // one extracted file
	MaxTotal  int64 // all extracted files
	MaxFiles  int
}

func DefaultLimits() Limits {
	return Limits{
		MaxBundle: 50 << 20,
		MaxFile:   10 << 20,
		MaxTotal:  100 << 20,
		MaxFiles:  10000,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxBundle <= 0 {
		l.MaxBundle = d.MaxBundle
	}
	if l.MaxFile <= 0 {
		l.MaxFile = d.MaxFile
	}
	if l.MaxTotal <= 0 {
		l.MaxTotal = d.MaxTotal
	}
	if l.MaxFiles <= 0 {
		l.MaxFiles = d.MaxFiles
	}
	return l
}

// readWithHash reads at most maxSize bytes from r and returns them with
// their hex SHA-256. Anything larger is an error.
func readWithHash(r io.Reader, maxSize int64) ([]byte, string, error) {
	h := sha256.New()
	data, err := io.ReadAll(io.TeeReader(io.LimitReader(r, maxSize+1), h))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxSize {
		return nil, "", xerrors.Newf("content exceeds max size (limit %d bytes)", maxSize)
	}
	return data, hex.EncodeToString(h.Sum(nil)), nil
}

// cleanArchivePath normalizes a tar entry name. ok is false for the archive
// root, which is skipped.
func cleanArchivePath(name string) (string, bool, error) {
	clean, err := pathutil.CleanRelative(name)
	if err != nil {
		return "", false, xerrors.Wrap(err, "archive entry")
	}
	if clean == "." {
		return "", false, nil
	}
	return clean, true, nil
}

// extractTarGz unpacks a gzipped tar into memory. Only regular files and
// directories are accepted.
func extractTarGz(data []byte, lim Limits) (fstest.MapFS, error) {
	lim = lim.withDefaults()

	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Wrap(err, "open gzip")
	}
	defer gr.Close()

	mfs := fstest.MapFS{}
	tr := tar.NewReader(gr)
	var total int64

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.Wrap(err, "read tar header")
		}

		name, ok, err := cleanArchivePath(hdr.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			continue
		case tar.TypeReg:
		default:
			return nil, xerrors.Newf("unsupported entry type %q for %s", hdr.Typeflag, name)
		}

		if hdr.Size > lim.MaxFile {
			return nil, xerrors.Newf("file %s exceeds max size (%d > %d)", name, hdr.Size, lim.MaxFile)
		}
		body, err := io.ReadAll(io.LimitReader(tr, lim.MaxFile+1))
		if err != nil {
			return nil, xerrors.Wrapf(err, "read %s", name)
		}
		if int64(len(body)) > lim.MaxFile {
			return nil, xerrors.Newf("file %s exceeds max size after read", name)
		}

		total += int64(len(body))
		if total > lim.MaxTotal {
			return nil, xerrors.Newf("total extracted size exceeds limit (%d bytes)", lim.MaxTotal)
		}
		if _, dup := mfs[name]; !dup && len(mfs) >= lim.MaxFiles {
			return nil, xerrors.Newf("archive has more than %d files", lim.MaxFiles)
		}

		mfs[name] = &fstest.MapFile{
			Data:    body,
			Mode:    hdr.FileInfo().Mode().Perm(),
			ModTime: hdr.ModTime,
		}
	}
	return mfs, nil
}
