package imagerender

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// PageCount returns the number of pages in a PDF
func PageCount(pdfPath string) (int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// RenderAll rasterises every page of a PDF and hands each image to fn in
// page order. It stops at the first error from fn.
func RenderAll(ctx context.Context, pdfPath string, dpi int, mode ColorMode, fn func(pageNum int, img image.Image) error) (int, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return i - 1, err
		}
		img, err := renderPage(doc, i, dpi, mode)
		if err != nil {
			return i - 1, err
		}
		if err := fn(i, img); err != nil {
			return i - 1, err
		}
	}
	return n, nil
}

func renderPage(doc *fitz.Document, pageNum, dpi int, mode ColorMode) (image.Image, error) {
	// go-fitz uses 0-based indexing
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}

	bounds := img.Bounds()
	var out image.Image = img
	if mode == ColorGray {
		gray := image.NewGray(bounds)
		draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
		out = gray
	}

	log.Debug().
		Int("page", pageNum).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("dpi", dpi).
		Str("color", string(mode)).
		Msg("rendered PDF page")
	return out, nil
}
