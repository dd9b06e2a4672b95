// Package assets copies static files and page assets into the output
// directory, skipping files that are already up to date.
package assets

import (
	"bytes"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"quire/internal/errors"
)

// Options control how a file is copied.
type Options struct {
	// HardLink creates a hard link instead of copying bytes.
	HardLink bool
	// OptimizePNG is the recompression level for PNG files, 0 disables it.
	OptimizePNG int
}

// IsUpToDate reports whether dest already mirrors src: same modification time
// and, unless the copy was recompressed, same length.
func IsUpToDate(src, dest os.FileInfo, recompressed bool) bool {
	if src == nil || dest == nil {
		return false
	}
	if !src.ModTime().Equal(dest.ModTime()) {
		return false
	}
	return recompressed || src.Size() == dest.Size()
}

// CopyIfNeeded copies src to dest unless dest is up to date. It reports
// whether bytes were written.
func CopyIfNeeded(src, dest string, opts Options) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, errors.IOError(src, err).WithContext("op", "stat").Build()
	}
	optimize := opts.OptimizePNG > 0 && isPNG(src)
	// A failed stat of dest falls through to a copy.
	if destInfo, err := os.Stat(dest); err == nil && IsUpToDate(srcInfo, destInfo, optimize) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, errors.IOError(dest, err).WithContext("op", "mkdir").Build()
	}
	switch {
	case opts.HardLink:
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return false, errors.IOError(dest, err).WithContext("op", "remove").Build()
		}
		if err := os.Link(src, dest); err != nil {
			return false, errors.IOError(dest, err).WithContext("op", "link").Build()
		}
		return true, nil
	case optimize:
		if err := optimizePNG(src, dest, opts.OptimizePNG); err != nil {
			return false, err
		}
	default:
		if err := CopyFile(src, dest); err != nil {
			return false, err
		}
	}
	if err := os.Chtimes(dest, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return false, errors.IOError(dest, err).WithContext("op", "chtimes").Build()
	}
	return true, nil
}

// CopyFile copies the bytes of src to dest, replacing dest.
func CopyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.IOError(src, err).WithContext("op", "open").Build()
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return errors.IOError(dest, err).WithContext("op", "create").Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.IOError(dest, err).WithContext("op", "copy").Build()
	}
	if err := out.Close(); err != nil {
		return errors.IOError(dest, err).WithContext("op", "close").Build()
	}
	return nil
}

// CopyDirectory mirrors every regular file below src into dest, creating
// directories as needed. It returns how many files were written.
func CopyDirectory(src, dest string, opts Options) (int, error) {
	var copied atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(8)

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.IOError(path, err).WithContext("op", "walk").Build()
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.IOError(path, err).WithContext("op", "walk").Build()
		}
		target := filepath.Join(dest, rel)
		g.Go(func() error {
			wrote, err := CopyIfNeeded(path, target, opts)
			if wrote {
				copied.Add(1)
			}
			return err
		})
		return nil
	})
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return int(copied.Load()), err
}

// FileStale reports whether dest is missing or older than src.
func FileStale(src, dest string) bool {
	destInfo, err := os.Stat(dest)
	if err != nil {
		return true
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	return srcInfo.ModTime().After(destInfo.ModTime())
}

func isPNG(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".png")
}

// optimizePNG re-encodes src losslessly and writes whichever of the original
// and the re-encoded bytes is smaller. Files that fail to decode are copied
// unchanged.
func optimizePNG(src, dest string, level int) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.IOError(src, err).WithContext("op", "read").Build()
	}
	out := data
	if img, err := png.Decode(bytes.NewReader(data)); err == nil {
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: compressionFor(level)}
		if err := enc.Encode(&buf, img); err == nil && buf.Len() < len(data) {
			out = buf.Bytes()
		}
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return errors.IOError(dest, err).WithContext("op", "write").Build()
	}
	return nil
}

func compressionFor(level int) png.CompressionLevel {
	if level <= 2 {
		return png.DefaultCompression
	}
	return png.BestCompression
}
