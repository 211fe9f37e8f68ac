package imposition

import (
	"context"
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

const (
	maxTailBlanks   = 2
	maxTailRemovals = 4
)

// NormalizeStats counts the changes made by the Normalizer.
type NormalizeStats struct {
	HeadBlanks int
	TailBlanks int
	Removed    int
	// Dropped lists input pages removed from the end of the book.
	Dropped []string
}

// Normalizer makes a sequence bindable: double pages on facing positions and
// a page count divisible by four.
type Normalizer struct {
	Store     Store
	Direction Direction
	// Uniform relaxes the cover/back rule for books made only of spreads.
	Uniform    bool
	WorkPrefix string

	blanks int
}

// Normalize returns the repaired sequence. The input slice is not modified.
func (n *Normalizer) Normalize(ctx context.Context, seq Sequence, flags SpreadFlags) (Sequence, NormalizeStats, error) {
	var stats NormalizeStats
	if len(seq) < 4 {
		return nil, stats, &InsufficientPagesError{Count: len(seq)}
	}
	out := append(Sequence(nil), seq...)

	sorted := append(SpreadFlags(nil), flags...)
	sort.Ints(sorted)

	for _, f := range sorted {
		if err := n.checkEdges(f, len(out)); err != nil {
			return nil, stats, err
		}
		if !n.violatesParity(f) {
			continue
		}
		// One head blank shifts every spread by one; it is never repeated
		// even when more spreads disagree.
		blank, err := n.blank(ctx, out)
		if err != nil {
			return nil, stats, err
		}
		out = append(Sequence{blank}, out...)
		stats.HeadBlanks++
		log.Info().Int("position", f).Str("direction", n.Direction.String()).Msg("inserted blank page at head for double page parity")
		for _, g := range sorted {
			if err := n.checkEdges(g+1, len(out)); err != nil {
				return nil, stats, err
			}
		}
		break
	}

	if len(out)%4 == 0 {
		return out, stats, nil
	}

	for len(out)%4 != 0 && stats.TailBlanks < maxTailBlanks {
		blank, err := n.blank(ctx, out)
		if err != nil {
			return nil, stats, err
		}
		out = append(out, blank)
		stats.TailBlanks++
	}
	if len(out)%4 == 0 {
		log.Info().Int("blanks", stats.TailBlanks).Int("pages", len(out)).Msg("appended blank pages")
		return out, stats, nil
	}

	for len(out)%4 != 0 && stats.Removed < maxTailRemovals && len(out) > 0 {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		stats.Removed++
		if !last.Blank && !strings.HasPrefix(last.Name, n.prefix()) {
			stats.Dropped = append(stats.Dropped, last.Name)
			log.Warn().Str("page", last.Name).Msg("page dropped from the end of the booklet")
			continue
		}
		if err := n.Store.Remove(ctx, last.Name); err != nil {
			log.Warn().Err(err).Str("page", last.Name).Msg("failed to remove generated page")
		}
	}
	if len(out)%4 != 0 || len(out) == 0 {
		return nil, stats, &UnresolvableBindingError{Count: len(out), Added: stats.TailBlanks, Removed: stats.Removed}
	}
	log.Warn().Int("removed", stats.Removed).Int("pages", len(out)).Msg("removed pages from the end to reach a multiple of 4")
	return out, stats, nil
}

func (n *Normalizer) checkEdges(pos, total int) error {
	if n.Uniform {
		return nil
	}
	if pos == 0 || pos == total-1 {
		return &InvalidSpreadPlacementError{Position: pos, Total: total}
	}
	return nil
}

// violatesParity reports whether the right half of a spread sits on the
// wrong side of the fold. Facing pairs are (1,2), (3,4), ... so a
// right-to-left spread must start on an odd position and a left-to-right
// spread must end on an even one.
func (n *Normalizer) violatesParity(pos int) bool {
	if n.Direction == LeftToRight {
		return pos%2 == 1
	}
	return pos%2 == 0
}

func (n *Normalizer) prefix() string {
	if n.WorkPrefix == "" {
		return DefaultWorkPrefix
	}
	return n.WorkPrefix
}

func (n *Normalizer) blank(ctx context.Context, seq Sequence) (Page, error) {
	ref := seq[0]
	if len(seq) > 1 {
		ref = seq[1]
	}
	prefix := n.prefix()

	name := ""
	for {
		name = fmt.Sprintf("%sblank_%d.png", prefix, n.blanks)
		n.blanks++
		if !contains(seq, name) {
			break
		}
	}

	img := imaging.New(ref.Width, ref.Height, color.White)
	if err := n.Store.Save(ctx, name, img); err != nil {
		return Page{}, fmt.Errorf("save blank page: %w", err)
	}
	return Page{Name: name, Width: ref.Width, Height: ref.Height, Blank: true}, nil
}

func contains(seq Sequence, name string) bool {
	for _, p := range seq {
		if p.Name == name {
			return true
		}
	}
	return false
}
