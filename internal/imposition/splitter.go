package imposition

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTolerance      = 0.20
	DefaultLandscapeRatio = 0.70
	DefaultDPI            = 300
	DefaultWorkPrefix     = "booklet/"
)

// Sizer is implemented by stores that can report dimensions without a full
// decode.
type Sizer interface {
	Size(ctx context.Context, name string) (width, height int, err error)
}

// SplitOptions tunes spread detection and page resizing.
type SplitOptions struct {
	Direction Direction
	// Tolerance is how much wider than the mean page width a scan must be to
	// count as a spread (0.2 = 20%).
	Tolerance float64
	// LandscapeRatio is the share of landscape scans above which the whole
	// set is treated as photographed spreads, if confirmed.
	LandscapeRatio float64
	// TargetWidthCM resizes every output page to this printed width at DPI.
	// Zero keeps the scanned size.
	TargetWidthCM float64
	DPI           int
	WorkPrefix    string
}

func (o SplitOptions) withDefaults() SplitOptions {
	if o.Direction == "" {
		o.Direction = RightToLeft
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.LandscapeRatio <= 0 {
		o.LandscapeRatio = DefaultLandscapeRatio
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.WorkPrefix == "" {
		o.WorkPrefix = DefaultWorkPrefix
	}
	return o
}

// SplitResult is the sequence produced by the Splitter.
type SplitResult struct {
	Pages    Sequence
	Spreads  SpreadFlags
	Uniform  bool
	Failures []PageFailure
}

// Splitter detects double-page scans, cuts them in half and rewrites every
// page into the work area of the store.
type Splitter struct {
	Store    Store
	Decider  Decider
	Progress Progress
	Options  SplitOptions
}

// Split processes names in order. Originals are removed from the store once
// rewritten. A page that cannot be read or written is skipped.
func (s *Splitter) Split(ctx context.Context, names []string) (*SplitResult, error) {
	opts := s.Options.withDefaults()
	progress := s.Progress
	if progress == nil {
		progress = noProgress{}
	}

	meanWidth, landscape := s.measure(ctx, names)
	res := &SplitResult{}

	if len(names) > 0 && float64(landscape) > float64(len(names))*opts.LandscapeRatio {
		decider := s.Decider
		if decider == nil {
			decider = AlwaysNo
		}
		ok, err := decider.Confirm(ctx, Prompt{
			Question: QuestionUniformLandscape,
			Detail: fmt.Sprintf("%d of %d images are landscape; every landscape image will be split in half",
				landscape, len(names)),
		})
		if err != nil {
			return nil, fmt.Errorf("confirm landscape split: %w", err)
		}
		res.Uniform = ok
	}

	log.Info().
		Int("pages", len(names)).
		Float64("mean_width", meanWidth).
		Int("landscape", landscape).
		Bool("uniform", res.Uniform).
		Msg("classifying spreads")

	progress.Start("split", len(names))
	defer progress.Finish()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Increment()

		img, err := s.Store.Open(ctx, name)
		if err != nil {
			res.fail(name, err)
			continue
		}
		w, h := img.Bounds().Dx(), img.Bounds().Dy()

		var spread bool
		if res.Uniform {
			spread = w > h
		} else {
			spread = float64(w) > meanWidth*(1+opts.Tolerance)
		}

		pos := len(res.Pages)
		if !spread {
			page, err := s.write(ctx, opts, pos, img)
			if err != nil {
				res.fail(name, err)
				continue
			}
			res.Pages = append(res.Pages, page)
		} else {
			pages, flag, err := s.writeSpread(ctx, opts, pos, img)
			if err != nil {
				res.fail(name, err)
				continue
			}
			res.Pages = append(res.Pages, pages...)
			res.Spreads = append(res.Spreads, flag)
			log.Debug().Str("page", name).Int("width", w).Int("position", pos).Msg("split double page")
		}

		if !res.produced(name) {
			if err := s.Store.Remove(ctx, name); err != nil {
				log.Warn().Err(err).Str("page", name).Msg("failed to remove original page")
			}
		}
	}

	return res, nil
}

// measure returns the mean width and landscape count of the readable pages.
func (s *Splitter) measure(ctx context.Context, names []string) (float64, int) {
	sizer, _ := s.Store.(Sizer)
	total, counted, landscape := 0, 0, 0
	for _, name := range names {
		var w, h int
		var err error
		if sizer != nil {
			w, h, err = sizer.Size(ctx, name)
		} else {
			var img image.Image
			img, err = s.Store.Open(ctx, name)
			if err == nil {
				w, h = img.Bounds().Dx(), img.Bounds().Dy()
			}
		}
		if err != nil {
			log.Debug().Err(err).Str("page", name).Msg("cannot measure page")
			continue
		}
		total += w
		counted++
		if w > h {
			landscape++
		}
	}
	if counted == 0 {
		return 0, 0
	}
	return float64(total) / float64(counted), landscape
}

func (s *Splitter) writeSpread(ctx context.Context, opts SplitOptions, pos int, img image.Image) ([]Page, int, error) {
	b := img.Bounds()
	mid := b.Min.X + b.Dx()/2
	left := imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, mid, b.Max.Y))
	right := imaging.Crop(img, image.Rect(mid, b.Min.Y, b.Max.X, b.Max.Y))

	first, second := right, left
	flag := pos
	if opts.Direction == LeftToRight {
		first, second = left, right
		flag = pos + 1
	}

	a, err := s.write(ctx, opts, pos, first)
	if err != nil {
		return nil, 0, err
	}
	c, err := s.write(ctx, opts, pos+1, second)
	if err != nil {
		if rmErr := s.Store.Remove(ctx, a.Name); rmErr != nil {
			log.Warn().Err(rmErr).Str("page", a.Name).Msg("failed to remove half-written spread")
		}
		return nil, 0, err
	}
	return []Page{a, c}, flag, nil
}

func (s *Splitter) write(ctx context.Context, opts SplitOptions, pos int, img image.Image) (Page, error) {
	img = resizeToWidth(img, opts.TargetWidthCM, opts.DPI)
	name := PageName(opts.WorkPrefix, pos)
	if err := s.Store.Save(ctx, name, img); err != nil {
		return Page{}, fmt.Errorf("save %s: %w", name, err)
	}
	return Page{Name: name, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, nil
}

func (r *SplitResult) fail(name string, err error) {
	log.Error().Err(err).Str("page", name).Msg("skipping page")
	r.Failures = append(r.Failures, PageFailure{Stage: "split", Name: name, Err: err})
}

func (r *SplitResult) produced(name string) bool {
	for _, p := range r.Pages {
		if p.Name == name {
			return true
		}
	}
	return false
}

// PageName is the work-area key of the page at reading position pos.
func PageName(prefix string, pos int) string {
	return fmt.Sprintf("%s%04d.png", prefix, pos+1)
}

// CMToPixels converts a printed length to pixels at dpi.
func CMToPixels(cm float64, dpi int) int {
	return int(cm * float64(dpi) / 2.54)
}

func resizeToWidth(img image.Image, cm float64, dpi int) image.Image {
	if cm <= 0 {
		return img
	}
	w := CMToPixels(cm, dpi)
	b := img.Bounds()
	if w <= 0 || b.Dx() == 0 || w == b.Dx() {
		return img
	}
	h := int(float64(w) * float64(b.Dy()) / float64(b.Dx()))
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
