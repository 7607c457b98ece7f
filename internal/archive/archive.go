// Package archive packages a local project directory into a zip for upload.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar"
)

// DefaultExcludes skips dependency, VCS and build output directories of the
// Node and Python projects hostctl usually ships.
var DefaultExcludes = []string{
	"node_modules",
	".git",
	"dist",
	"__pycache__",
	"venv",
	".venv",
	"env",
	"*.zip",
}

// Stats summarises a written archive.
type Stats struct {
	Files int
	Bytes int64
}

// Zip writes every regular file under src into a deflated zip at dest.
// Entry names are slash-separated paths relative to src. A pattern in excludes
// matches either the relative path or the base name of a file or directory.
// dest itself is never included, even when it lives inside src.
func Zip(src, dest string, excludes []string) (*Stats, error) {
	for _, p := range excludes {
		if _, err := doublestar.Match(p, "probe"); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", src)
	}

	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dest, err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	zw := zip.NewWriter(out)
	stats := &Stats{}

	walkErr := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, excludes) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if abs, _ := filepath.Abs(p); abs == destAbs {
			return nil
		}

		n, err := addFile(zw, p, rel)
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += n
		return nil
	})

	if err := finish(src, dest, walkErr, zw.Close(), out.Close()); err != nil {
		return nil, err
	}
	return stats, nil
}

// finish turns the walk and close results into one error, removing the
// partial archive at dest whenever any of them failed.
func finish(src, dest string, walkErr, closeErr, fileErr error) error {
	var err error
	switch {
	case walkErr != nil:
		err = fmt.Errorf("failed to archive %s: %w", src, walkErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to finalize %s: %w", dest, closeErr)
	case fileErr != nil:
		err = fmt.Errorf("failed to close %s: %w", dest, fileErr)
	default:
		return nil
	}
	_ = os.Remove(dest)
	return err
}

func excluded(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

func addFile(zw *zip.Writer, src, name string) (int64, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, f)
}
