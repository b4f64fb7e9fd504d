package gateways

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/ochairo/decant/internal/domain/interfaces"
)

// Bundler packs an assembled portable directory into a single zip archive
type Bundler struct {
	logger interfaces.Logger
}

// NewBundler creates a new bundler
func NewBundler(logger interfaces.Logger) *Bundler {
	return &Bundler{logger: interfaces.OrNoOp(logger)}
}

// Bundle writes <root>.zip next to root. Entries are stored under the root's
// base name so the archive unpacks into a single directory. level follows
// the deflate scale (0 stores, 9 is smallest); out-of-range values use the
// library default.
func (b *Bundler) Bundle(ctx context.Context, root string, level int) (string, error) {
	if level < flate.NoCompression || level > flate.BestCompression {
		level = flate.DefaultCompression
	}

	archivePath := filepath.Clean(root) + ".zip"
	//nolint:gosec // G304: archivePath is derived from the output directory
	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	prefix := filepath.Base(root)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(prefix, rel))

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name
		if d.IsDir() {
			header.Name += "/"
			header.Method = zip.Store
			_, err = zw.CreateHeader(header)
			return err
		}
		header.Method = zip.Deflate
		if level == flate.NoCompression {
			header.Method = zip.Store
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		return copyInto(w, path)
	})

	closeErr := zw.Close()
	if fErr := f.Close(); closeErr == nil {
		closeErr = fErr
	}
	if walkErr != nil || closeErr != nil {
		_ = os.Remove(archivePath)
		if walkErr != nil {
			return "", fmt.Errorf("failed to bundle %s: %w", root, walkErr)
		}
		return "", fmt.Errorf("failed to finalize archive: %w", closeErr)
	}

	b.logger.Info("bundle written", interfaces.F("path", archivePath), interfaces.F("level", level))
	return archivePath, nil
}

func copyInto(w io.Writer, path string) error {
	//nolint:gosec // G304: path comes from walking the portable directory
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on read-only file
	defer src.Close()
	_, err = io.Copy(w, src)
	return err
}
