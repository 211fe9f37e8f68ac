package imposition

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

// Trimmer crops every page to the height of the shortest one so facing
// pages line up on the sheet.
type Trimmer struct {
	Store    Store
	Progress Progress
}

// Trim returns the sequence with updated heights. Pages that fail to load or
// save keep their size and are reported as failures.
func (t *Trimmer) Trim(ctx context.Context, seq Sequence) (Sequence, []PageFailure, error) {
	progress := t.Progress
	if progress == nil {
		progress = noProgress{}
	}
	target := seq.MinHeight()
	out := append(Sequence(nil), seq...)
	var failures []PageFailure

	progress.Start("trim", len(out))
	defer progress.Finish()

	for i, p := range out {
		if err := ctx.Err(); err != nil {
			return nil, failures, err
		}
		progress.Increment()
		if p.Height <= target {
			continue
		}
		img, err := t.Store.Open(ctx, p.Name)
		if err == nil {
			b := img.Bounds()
			img = imaging.Crop(img, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+target))
			err = t.Store.Save(ctx, p.Name, img)
		}
		if err != nil {
			log.Error().Err(err).Str("page", p.Name).Int("height", p.Height).Msg("failed to trim page")
			failures = append(failures, PageFailure{Stage: "trim", Name: p.Name, Err: err})
			continue
		}
		out[i].Height = target
	}

	log.Info().Int("height", target).Int("pages", len(out)).Int("failed", len(failures)).Msg("trimmed pages")
	return out, failures, nil
}
