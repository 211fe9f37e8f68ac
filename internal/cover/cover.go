// Package cover builds the separate cover sheet from the images in a cover
// directory.
package cover

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/imagestore"
	"github.com/local/bookletpress/internal/render"
)

// SkipError explains why no cover was produced. It is informational; the
// booklet itself is unaffected.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "cover skipped: " + e.Reason }

// Maker writes cover.pdf.
type Maker struct {
	Renderer *render.Renderer
}

// Files returns the cover images in dir in print order: a single front
// cover, or back, spine and front numbered 1..3.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &SkipError{Reason: "no cover directory"}
	}
	if err != nil {
		return nil, fmt.Errorf("read cover dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && imagestore.IsRaster(e.Name()) {
			files = append(files, e.Name())
		}
	}

	switch len(files) {
	case 0:
		return nil, &SkipError{Reason: "no cover image found"}
	case 1:
		return []string{filepath.Join(dir, files[0])}, nil
	case 3:
	default:
		return nil, &SkipError{Reason: fmt.Sprintf("found %d cover images, need 1 or 3", len(files))}
	}

	keys := make(map[string]int, len(files))
	for _, f := range files {
		n, err := strconv.Atoi(strings.TrimSuffix(f, filepath.Ext(f)))
		if err != nil {
			return nil, &SkipError{Reason: "cover images must be numbered"}
		}
		keys[f] = n
	}
	sort.Slice(files, func(i, j int) bool { return keys[files[i]] < keys[files[j]] })
	for i := range files {
		files[i] = filepath.Join(dir, files[i])
	}
	return files, nil
}

// Compose scales every image to height and lays them side by side on a
// white canvas.
func Compose(imgs []image.Image, height int) image.Image {
	resized := make([]image.Image, len(imgs))
	total := 0
	for i, img := range imgs {
		b := img.Bounds()
		w := int(float64(height) * float64(b.Dx()) / float64(b.Dy()))
		resized[i] = imaging.Resize(img, w, height, imaging.Lanczos)
		total += w
	}
	canvas := imaging.New(total, height, color.White)
	x := 0
	for _, img := range resized {
		canvas = imaging.Paste(canvas, img, image.Pt(x, 0))
		x += img.Bounds().Dx()
	}
	return canvas
}

// Make builds the cover from dir at the booklet's page height and writes
// it to out. A *SkipError means there was nothing valid to build.
func (m *Maker) Make(ctx context.Context, dir string, height int, out string) error {
	files, err := Files(dir)
	if err != nil {
		return err
	}
	if height <= 0 {
		return fmt.Errorf("invalid cover height %d", height)
	}

	imgs := make([]image.Image, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := imaging.Open(f, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("open cover image %s: %w", filepath.Base(f), err)
		}
		imgs = append(imgs, img)
	}

	combined := Compose(imgs, height)
	if err := m.Renderer.Centred(combined, out); err != nil {
		return fmt.Errorf("render cover: %w", err)
	}
	log.Info().Str("file", out).Int("images", len(files)).Int("width", combined.Bounds().Dx()).Int("height", height).Msg("cover written")
	return nil
}
