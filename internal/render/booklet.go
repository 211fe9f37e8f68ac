package render

import (
	"context"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	"github.com/signintech/gopdf"

	"github.com/local/bookletpress/internal/imposition"
)

// Source provides page rasters by name.
type Source interface {
	Open(ctx context.Context, name string) (image.Image, error)
}

// pather is implemented by stores backed by files gopdf can read directly.
type pather interface {
	Path(name string) string
}

// Placement is where one page lands on the output document.
type Placement struct {
	Sheet int
	X, Y  float64
	W, H  float64
}

// Layout places pages in printing order two per sheet face: even indexes
// left of the fold, odd indexes right of it, each centred vertically.
func Layout(pages imposition.Sequence, paper Paper, dpi int) []Placement {
	sheet := paper.Sheet()
	centre := sheet.W / 2
	out := make([]Placement, len(pages))
	for i, p := range pages {
		w := PixelsToPoints(p.Width, dpi)
		h := PixelsToPoints(p.Height, dpi)
		x := centre
		if i%2 == 0 {
			x = centre - w
		}
		out[i] = Placement{Sheet: i / 2, X: x, Y: (sheet.H - h) / 2, W: w, H: h}
	}
	return out
}

// Faces is the number of sheet faces needed for n pages.
func Faces(n int) int { return (n + 1) / 2 }

// Renderer writes PDF documents for a paper size.
type Renderer struct {
	Paper    Paper
	DPI      int
	Progress imposition.Progress
}

func (r *Renderer) dpi() int {
	if r.DPI <= 0 {
		return imposition.DefaultDPI
	}
	return r.DPI
}

// Booklet draws pages, already in printing order, to out.
func (r *Renderer) Booklet(ctx context.Context, src Source, pages imposition.Sequence, out string) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to render")
	}
	sheet := r.Paper.Sheet()
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: sheet})

	if r.Progress != nil {
		r.Progress.Start("render", len(pages))
		defer r.Progress.Finish()
	}

	files, _ := src.(pather)
	for i, pl := range Layout(pages, r.Paper, r.dpi()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i%2 == 0 {
			pdf.AddPage()
		}
		rect := &gopdf.Rect{W: pl.W, H: pl.H}
		name := pages[i].Name

		var err error
		if files != nil {
			err = pdf.Image(files.Path(name), pl.X, pl.Y, rect)
		} else {
			var img image.Image
			if img, err = src.Open(ctx, name); err == nil {
				err = pdf.ImageFrom(img, pl.X, pl.Y, rect)
			}
		}
		if err != nil {
			return fmt.Errorf("draw page %s: %w", name, err)
		}
		if r.Progress != nil {
			r.Progress.Increment()
		}
	}

	if err := pdf.WritePdf(out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info().Str("file", out).Int("pages", len(pages)).Int("sheets", Faces(len(pages))).Str("paper", r.Paper.Name).Msg("booklet written")
	return nil
}

// Centred draws img in the middle of a single landscape sheet.
func (r *Renderer) Centred(img image.Image, out string) error {
	sheet := r.Paper.Sheet()
	w := PixelsToPoints(img.Bounds().Dx(), r.dpi())
	h := PixelsToPoints(img.Bounds().Dy(), r.dpi())

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: sheet})
	pdf.AddPage()
	if err := pdf.ImageFrom(img, (sheet.W-w)/2, (sheet.H-h)/2, &gopdf.Rect{W: w, H: h}); err != nil {
		return fmt.Errorf("draw image: %w", err)
	}
	if err := pdf.WritePdf(out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}
