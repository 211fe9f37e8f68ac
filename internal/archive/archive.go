// Package archive turns an input directory into loose page images by
// unpacking the single book container it holds.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/filetype"
	"github.com/local/bookletpress/internal/imagerender"
	"github.com/local/bookletpress/internal/imagestore"
)

// ErrNoImages is returned when the input holds no page images after
// extraction.
var ErrNoImages = errors.New("no page images found")

// MultipleBooksError is returned when the input holds more than one book
// container.
type MultipleBooksError struct {
	Files []string
}

func (e *MultipleBooksError) Error() string {
	return fmt.Sprintf("provide only one book at a time, found %s", strings.Join(e.Files, ", "))
}

// Prepared describes what Prepare found and unpacked.
type Prepared struct {
	// Source is the archive that was unpacked, or "" for loose images.
	Source string
	Kind   filetype.Kind
	// Extracted counts images written by the unpacking step.
	Extracted int
	// Images counts raster files available after preparation.
	Images int
}

// Preparer unpacks book containers in place.
type Preparer struct {
	Detector *filetype.Detector
	// DPI and ColorMode control PDF rasterisation.
	DPI       int
	ColorMode imagerender.ColorMode
	// Skip is a directory prefix ignored when counting images.
	Skip string
}

// Prepare inspects the top level of dir, unpacks the book container if
// there is one, and checks that page images are present.
func (p *Preparer) Prepare(ctx context.Context, dir string) (*Prepared, error) {
	detector := p.Detector
	if detector == nil {
		detector = filetype.New()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	type container struct {
		path string
		kind filetype.Kind
	}
	var found []container
	for _, e := range entries {
		if e.IsDir() || imagestore.IsRaster(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := detector.Detect(path)
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("cannot detect input file type")
			continue
		}
		if !info.Archive() {
			log.Debug().Str("file", e.Name()).Str("mime", info.MIMEType).Msg("ignoring non-book file")
			continue
		}
		found = append(found, container{path: path, kind: info.Kind})
	}

	if len(found) > 1 {
		names := make([]string, len(found))
		for i, c := range found {
			names[i] = filepath.Base(c.path)
		}
		sort.Strings(names)
		return nil, &MultipleBooksError{Files: names}
	}

	res := &Prepared{Kind: filetype.KindImage}
	if len(found) == 1 {
		c := found[0]
		res.Source, res.Kind = c.path, c.kind
		switch c.kind {
		case filetype.KindZip:
			res.Extracted, err = ExtractZip(ctx, c.path, dir)
		case filetype.KindRar:
			res.Extracted, err = ExtractRar(ctx, c.path, dir)
		case filetype.KindPDF:
			res.Extracted, err = RasterizePDF(ctx, c.path, dir, p.DPI, p.ColorMode)
		}
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", filepath.Base(c.path), err)
		}
		log.Info().Str("archive", filepath.Base(c.path)).Str("kind", string(c.kind)).Int("images", res.Extracted).Msg("unpacked book")
	}

	res.Images, err = countImages(ctx, dir, p.Skip)
	if err != nil {
		return nil, err
	}
	if res.Images == 0 {
		return nil, ErrNoImages
	}
	return res, nil
}

func countImages(ctx context.Context, dir, skip string) (int, error) {
	store, err := imagestore.NewDir(dir)
	if err != nil {
		return 0, err
	}
	store.Skip = skip
	keys, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// safeJoin resolves an archive entry name below base, rejecting absolute
// paths and entries that escape it.
func safeJoin(base, name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("unsafe archive path: %q", name)
	}
	out := filepath.Join(base, filepath.FromSlash(name))
	cleanBase := filepath.Clean(base) + string(os.PathSeparator)
	if !strings.HasPrefix(out, cleanBase) {
		return "", fmt.Errorf("path traversal attempt detected: %q", name)
	}
	return out, nil
}
