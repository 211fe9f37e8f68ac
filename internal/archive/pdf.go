package archive

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/imagerender"
)

// RasterizePDF renders every page of a scanned PDF into dst as p0001.png,
// p0002.png, ... so the page-marker naming orders them.
func RasterizePDF(ctx context.Context, src, dst string, dpi int, mode imagerender.ColorMode) (int, error) {
	if dpi <= 0 {
		dpi = 300
	}
	if mode == "" {
		mode = imagerender.ColorRGB
	}
	pages, err := imagerender.PageCount(src)
	if err != nil {
		return 0, err
	}
	if pages == 0 {
		return 0, ErrNoImages
	}
	log.Info().Str("pdf", filepath.Base(src)).Int("pages", pages).Int("dpi", dpi).Msg("rasterising scanned PDF")
	return imagerender.RenderAll(ctx, src, dpi, mode, func(pageNum int, img image.Image) error {
		out := filepath.Join(dst, fmt.Sprintf("p%04d.png", pageNum))
		if err := imaging.Save(img, out); err != nil {
			return fmt.Errorf("save page %d: %w", pageNum, err)
		}
		return nil
	})
}
