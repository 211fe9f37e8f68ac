package imposition

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Options configures a full engine run.
type Options struct {
	Direction      Direction
	DropZeroPages  bool
	Tolerance      float64
	LandscapeRatio float64
	TargetWidthCM  float64
	DPI            int
	WorkPrefix     string
}

// Stats summarises what a run changed.
type Stats struct {
	Input      int
	Dropped    int
	Spreads    int
	HeadBlanks int
	TailBlanks int
	Removed    int
	Trimmed    int
	Failed     int
}

// Result is the outcome of a successful run.
type Result struct {
	// Reading is the final sequence in reading order.
	Reading Sequence
	// Printing is Reading in sheet imposition order.
	Printing Sequence
	Spreads  SpreadFlags
	Uniform  bool
	Failures []PageFailure
	Stats    Stats
}

// StageObserver is told how long each stage took.
type StageObserver func(stage string, d time.Duration)

// Engine runs the imposition stages in order over one book.
type Engine struct {
	Store    Store
	Decider  Decider
	Progress Progress
	Observe  StageObserver
	Options  Options
}

// Run sequences, splits, normalizes, trims and imposes the named pages.
// Pages are rewritten in the store as it goes; a failed run leaves the store
// partially rewritten.
func (e *Engine) Run(ctx context.Context, names []string) (*Result, error) {
	opts := e.Options
	if opts.Direction == "" {
		opts.Direction = RightToLeft
	}
	if opts.WorkPrefix == "" {
		opts.WorkPrefix = DefaultWorkPrefix
	}
	res := &Result{Stats: Stats{Input: len(names)}}

	var ordered []Numbered
	err := e.stage("sequence", func() error {
		var err error
		seq := &Sequencer{DropZeroPages: opts.DropZeroPages, Decider: e.Decider}
		ordered, err = seq.Order(ctx, names)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Dropped = len(names) - len(ordered)

	sorted := make([]string, len(ordered))
	for i, n := range ordered {
		sorted[i] = n.Name
	}

	var split *SplitResult
	err = e.stage("split", func() error {
		var err error
		sp := &Splitter{
			Store:    e.Store,
			Decider:  e.Decider,
			Progress: e.Progress,
			Options: SplitOptions{
				Direction:      opts.Direction,
				Tolerance:      opts.Tolerance,
				LandscapeRatio: opts.LandscapeRatio,
				TargetWidthCM:  opts.TargetWidthCM,
				DPI:            opts.DPI,
				WorkPrefix:     opts.WorkPrefix,
			},
		}
		split, err = sp.Split(ctx, sorted)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Spreads = split.Spreads
	res.Uniform = split.Uniform
	res.Failures = append(res.Failures, split.Failures...)
	res.Stats.Spreads = len(split.Spreads)

	var normalized Sequence
	err = e.stage("normalize", func() error {
		var err error
		var ns NormalizeStats
		norm := &Normalizer{Store: e.Store, Direction: opts.Direction, Uniform: split.Uniform, WorkPrefix: opts.WorkPrefix}
		normalized, ns, err = norm.Normalize(ctx, split.Pages, split.Spreads)
		res.Stats.HeadBlanks, res.Stats.TailBlanks, res.Stats.Removed = ns.HeadBlanks, ns.TailBlanks, ns.Removed
		return err
	})
	if err != nil {
		return nil, err
	}

	err = e.stage("trim", func() error {
		trimmer := &Trimmer{Store: e.Store, Progress: e.Progress}
		trimmed, failures, err := trimmer.Trim(ctx, normalized)
		if err != nil {
			return err
		}
		for i := range trimmed {
			if trimmed[i].Height != normalized[i].Height {
				res.Stats.Trimmed++
			}
		}
		res.Failures = append(res.Failures, failures...)
		res.Reading = trimmed
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = e.stage("impose", func() error {
		res.Printing = Impose(res.Reading, opts.Direction)
		return nil
	})
	res.Stats.Failed = len(res.Failures)

	log.Info().
		Int("input", res.Stats.Input).
		Int("pages", len(res.Reading)).
		Int("spreads", res.Stats.Spreads).
		Int("head_blanks", res.Stats.HeadBlanks).
		Int("tail_blanks", res.Stats.TailBlanks).
		Int("removed", res.Stats.Removed).
		Int("failed", res.Stats.Failed).
		Msg("imposition complete")
	return res, nil
}

func (e *Engine) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	if e.Observe != nil {
		e.Observe(name, d)
	}
	ev := log.Debug()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("stage", name).Dur("took", d).Msg("stage finished")
	return err
}
