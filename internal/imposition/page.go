// Package imposition turns a set of scanned page images into a saddle-stitch
// booklet: reading order, spread splitting, binding-count repair, uniform
// trimming and sheet imposition order.
package imposition

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Direction is the reading direction of the book.
type Direction string

const (
	LeftToRight Direction = "left"
	RightToLeft Direction = "right"
)

// ParseDirection accepts "left"/"right" and the long forms "ltr"/"rtl".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "ltr", "left-to-right":
		return LeftToRight, nil
	case "right", "rtl", "right-to-left":
		return RightToLeft, nil
	}
	return "", &ConfigError{Field: "direction", Value: s, Reason: "must be left or right"}
}

func (d Direction) String() string { return string(d) }

// Page is one raster of the book, identified by its store key.
type Page struct {
	Name   string
	Width  int
	Height int
	Blank  bool
}

func (p Page) String() string {
	if p.Blank {
		return fmt.Sprintf("%s (blank %dx%d)", p.Name, p.Width, p.Height)
	}
	return fmt.Sprintf("%s (%dx%d)", p.Name, p.Width, p.Height)
}

// Landscape reports whether the page is wider than it is tall.
func (p Page) Landscape() bool { return p.Width > p.Height }

// Sequence is an ordered list of pages; index == reading position.
type Sequence []Page

// Names returns the store keys in sequence order.
func (s Sequence) Names() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.Name
	}
	return out
}

// MinHeight returns the smallest page height, or 0 for an empty sequence.
func (s Sequence) MinHeight() int {
	min := 0
	for i, p := range s {
		if i == 0 || p.Height < min {
			min = p.Height
		}
	}
	return min
}

// SpreadFlags holds the positions of the right half of every split spread.
type SpreadFlags []int

// Store is the image store the engine reads and rewrites pages through.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (image.Image, error)
	Save(ctx context.Context, name string, img image.Image) error
	Remove(ctx context.Context, name string) error
}

// Question identifies a decision the engine cannot take on its own.
type Question int

const (
	// QuestionLooseNaming asks whether every file name carries exactly one
	// 3 or 4 digit page number.
	QuestionLooseNaming Question = iota + 1
	// QuestionUniformLandscape asks whether every landscape scan is a spread.
	QuestionUniformLandscape
)

func (q Question) String() string {
	switch q {
	case QuestionLooseNaming:
		return "loose_naming"
	case QuestionUniformLandscape:
		return "uniform_landscape"
	}
	return "unknown"
}

// Prompt is a question plus the context a human needs to answer it.
type Prompt struct {
	Question Question
	Detail   string
}

// Decider answers the engine's questions.
type Decider interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, p Prompt) (bool, error)

func (f DeciderFunc) Confirm(ctx context.Context, p Prompt) (bool, error) { return f(ctx, p) }

var (
	AlwaysYes Decider = DeciderFunc(func(context.Context, Prompt) (bool, error) { return true, nil })
	AlwaysNo  Decider = DeciderFunc(func(context.Context, Prompt) (bool, error) { return false, nil })
)

// Progress receives per-stage progress.
type Progress interface {
	Start(stage string, total int)
	Increment()
	Finish()
}

type noProgress struct{}

func (noProgress) Start(string, int) {}
func (noProgress) Increment()        {}
func (noProgress) Finish()           {}
