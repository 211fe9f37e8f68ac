package orchestrator

import (
	"io"

	"github.com/cheggaaa/pb/v3"

	"github.com/local/bookletpress/internal/imposition"
)

const barTemplate = `{{string . "stage"}} {{ bar . " " "━" "━" " " " "}} {{counters .}} {{percent .}} {{rtime .}}`

// barProgress draws one terminal progress bar per stage.
type barProgress struct {
	out io.Writer
	bar *pb.ProgressBar
}

// NewBarProgress returns a Progress drawing to out, or a silent one when out
// is nil.
func NewBarProgress(out io.Writer) imposition.Progress {
	if out == nil {
		return silent{}
	}
	return &barProgress{out: out}
}

func (p *barProgress) Start(stage string, total int) {
	p.Finish()
	p.bar = pb.New(total).
		SetTemplateString(barTemplate).
		SetWriter(p.out).
		Set("stage", stage).
		Start()
}

func (p *barProgress) Increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *barProgress) Finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

type silent struct{}

func (silent) Start(string, int) {}
func (silent) Increment()        {}
func (silent) Finish()           {}
