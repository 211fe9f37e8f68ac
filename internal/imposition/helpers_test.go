package imposition

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
	grey = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
)

func solid(w, h int, c color.Color) image.Image {
	return imaging.New(w, h, c)
}

// spreadImage is a double page with a red left half and a blue right half.
func spreadImage(w, h int) image.Image {
	img := imaging.New(w, h, red)
	return imaging.Paste(img, imaging.New(w-w/2, h, blue), image.Pt(w/2, 0))
}

func colorAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

// recordingDecider answers every prompt with answer and remembers what it
// was asked.
type recordingDecider struct {
	mu     sync.Mutex
	answer bool
	err    error
	asked  []Question
}

func (d *recordingDecider) Confirm(_ context.Context, p Prompt) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.asked = append(d.asked, p.Question)
	return d.answer, d.err
}

type countingProgress struct {
	stages []string
	ticks  int
	done   int
}

func (p *countingProgress) Start(stage string, _ int) { p.stages = append(p.stages, stage) }
func (p *countingProgress) Increment()                { p.ticks++ }
func (p *countingProgress) Finish()                   { p.done++ }

func portraitSeq(n, w, h int) Sequence {
	seq := make(Sequence, n)
	for i := range seq {
		seq[i] = Page{Name: PageName(DefaultWorkPrefix, i), Width: w, Height: h}
	}
	return seq
}
