package imposition

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/local/bookletpress/internal/imagestore"
)

func TestNormalizer_PageCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		pages       int
		wantPages   int
		wantBlanks  int
		wantRemoved int
	}{
		{name: "already divisible", pages: 8, wantPages: 8},
		{name: "one short", pages: 7, wantPages: 8, wantBlanks: 1},
		{name: "two short", pages: 6, wantPages: 8, wantBlanks: 2},
		{name: "one over", pages: 5, wantPages: 4, wantBlanks: 2, wantRemoved: 3},
		{name: "minimum", pages: 4, wantPages: 4},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := imagestore.NewMemory()
			n := &Normalizer{Store: store, Direction: RightToLeft}

			got, stats, err := n.Normalize(ctx, portraitSeq(tt.pages, 100, 150), nil)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(got) != tt.wantPages {
				t.Errorf("Normalize() = %d pages, want %d", len(got), tt.wantPages)
			}
			if stats.TailBlanks != tt.wantBlanks || stats.Removed != tt.wantRemoved || stats.HeadBlanks != 0 {
				t.Errorf("Normalize() stats = %+v, want %d tail blanks and %d removed", stats, tt.wantBlanks, tt.wantRemoved)
			}

			// Blanks that survive are in the store; removed ones are gone.
			survivors := 0
			for _, p := range got {
				if !p.Blank {
					continue
				}
				survivors++
				if p.Width != 100 || p.Height != 150 {
					t.Errorf("blank %s size = %dx%d, want 100x150", p.Name, p.Width, p.Height)
				}
				if _, err := store.Open(ctx, p.Name); err != nil {
					t.Errorf("blank %s missing from store: %v", p.Name, err)
				}
			}
			if stored := len(store.ListPrefix(DefaultWorkPrefix + "blank_")); stored != survivors {
				t.Errorf("store holds %d blanks, want %d", stored, survivors)
			}
		})
	}
}

func TestNormalizer_DroppedInputPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := imagestore.NewMemory()
	seq := make(Sequence, 5)
	for i := range seq {
		name := fmt.Sprintf("%03d.png", i+1)
		store.Put(name, solid(100, 150, grey))
		seq[i] = Page{Name: name, Width: 100, Height: 150}
	}
	n := &Normalizer{Store: store, Direction: RightToLeft}

	got, stats, err := n.Normalize(ctx, seq, nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(got) != 4 || stats.Removed != 3 {
		t.Fatalf("Normalize() = %d pages, %d removed, want 4 and 3", len(got), stats.Removed)
	}
	if !reflect.DeepEqual(stats.Dropped, []string{"005.png"}) {
		t.Errorf("Normalize() dropped = %v, want [005.png]", stats.Dropped)
	}
	if _, err := store.Open(ctx, "005.png"); err != nil {
		t.Errorf("input page 005.png removed from store: %v", err)
	}
	if left := store.ListPrefix(DefaultWorkPrefix); len(left) != 0 {
		t.Errorf("store still holds generated pages %v", left)
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := &Normalizer{Store: imagestore.NewMemory(), Direction: RightToLeft}
	once, _, err := n.Normalize(ctx, portraitSeq(6, 100, 150), nil)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	twice, stats, err := n.Normalize(ctx, once, nil)
	if err != nil {
		t.Fatalf("second Normalize() error = %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second Normalize() = %v, want %v", twice.Names(), once.Names())
	}
	if !reflect.DeepEqual(stats, NormalizeStats{}) {
		t.Errorf("second Normalize() stats = %+v, want none", stats)
	}
}

func TestNormalizer_Parity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		dir       Direction
		flag      int
		wantBlank bool
	}{
		{name: "right to left on odd position", dir: RightToLeft, flag: 1},
		{name: "right to left on even position", dir: RightToLeft, flag: 2, wantBlank: true},
		{name: "left to right on even position", dir: LeftToRight, flag: 2},
		{name: "left to right on odd position", dir: LeftToRight, flag: 3, wantBlank: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			seq := portraitSeq(7, 100, 150)
			n := &Normalizer{Store: imagestore.NewMemory(), Direction: tt.dir}
			got, stats, err := n.Normalize(context.Background(), seq, SpreadFlags{tt.flag})
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(got) != 8 {
				t.Fatalf("Normalize() = %d pages, want 8", len(got))
			}
			if got[0].Blank != tt.wantBlank {
				t.Errorf("first page blank = %v, want %v", got[0].Blank, tt.wantBlank)
			}
			if tt.wantBlank {
				if stats.HeadBlanks != 1 || stats.TailBlanks != 0 {
					t.Errorf("Normalize() stats = %+v, want 1 head blank only", stats)
				}
				if got[1] != seq[0] {
					t.Errorf("page after head blank = %v, want %v", got[1], seq[0])
				}
			} else if !got[7].Blank {
				t.Errorf("last page = %v, want tail blank", got[7])
			}
		})
	}
}

func TestNormalizer_SingleHeadBlank(t *testing.T) {
	t.Parallel()

	// Both spreads disagree with the fold; only one blank is inserted.
	n := &Normalizer{Store: imagestore.NewMemory(), Direction: RightToLeft}
	got, stats, err := n.Normalize(context.Background(), portraitSeq(11, 100, 150), SpreadFlags{4, 2})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if stats.HeadBlanks != 1 || len(got) != 12 {
		t.Errorf("Normalize() = %d pages with %+v, want 12 pages and one head blank", len(got), stats)
	}
}

func TestNormalizer_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pages   int
		flags   SpreadFlags
		uniform bool
		check   func(error) bool
	}{
		{
			name:  "too few pages",
			pages: 3,
			check: func(err error) bool {
				var e *InsufficientPagesError
				return errors.As(err, &e) && e.Count == 3
			},
		},
		{
			name:  "spread on the cover",
			pages: 8,
			flags: SpreadFlags{0},
			check: func(err error) bool {
				var e *InvalidSpreadPlacementError
				return errors.As(err, &e) && e.Position == 0
			},
		},
		{
			name:  "spread on the back",
			pages: 8,
			flags: SpreadFlags{7},
			check: func(err error) bool {
				var e *InvalidSpreadPlacementError
				return errors.As(err, &e) && e.Position == 7
			},
		},
		{
			name:  "back spread rechecked after head blank",
			pages: 7,
			flags: SpreadFlags{6, 2},
			check: func(err error) bool {
				var e *InvalidSpreadPlacementError
				return errors.As(err, &e) && e.Position == 7 && e.Total == 8
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n := &Normalizer{Store: imagestore.NewMemory(), Direction: RightToLeft, Uniform: tt.uniform}
			_, _, err := n.Normalize(context.Background(), portraitSeq(tt.pages, 100, 150), tt.flags)
			if err == nil || !tt.check(err) {
				t.Errorf("Normalize() error = %v, want matching binding error", err)
			}
			if !IsBindingError(err) {
				t.Errorf("IsBindingError(%v) = false, want true", err)
			}
		})
	}
}

func TestNormalizer_UniformAllowsEdgeSpreads(t *testing.T) {
	t.Parallel()

	n := &Normalizer{Store: imagestore.NewMemory(), Direction: LeftToRight, Uniform: true}
	got, stats, err := n.Normalize(context.Background(), portraitSeq(8, 100, 150), SpreadFlags{0, 6})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(got) != 8 || !reflect.DeepEqual(stats, NormalizeStats{}) {
		t.Errorf("Normalize() = %d pages with %+v, want 8 unchanged", len(got), stats)
	}
}
