package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/imagestore"
)

// ExtractZip writes the image entries of a zip/cbz archive below dst and
// returns how many were written.
func ExtractZip(ctx context.Context, src, dst string) (int, error) {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("invalid or corrupt zip file: %w", err)
	}
	defer reader.Close()

	n := 0
	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if f.FileInfo().IsDir() || !imagestore.IsRaster(f.Name) {
			continue
		}
		out, err := safeJoin(dst, f.Name)
		if err != nil {
			log.Warn().Err(err).Str("entry", f.Name).Msg("skipping archive entry")
			continue
		}
		if err := extractZipEntry(f, out); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func extractZipEntry(f *zip.File, out string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	return writeEntry(rc, out)
}

func writeEntry(r io.Reader, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(out), err)
	}
	return w.Close()
}
