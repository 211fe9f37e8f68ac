package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/archive"
	"github.com/local/bookletpress/internal/config"
	"github.com/local/bookletpress/internal/cover"
	"github.com/local/bookletpress/internal/imagestore"
	"github.com/local/bookletpress/internal/imposition"
	"github.com/local/bookletpress/internal/metrics"
	"github.com/local/bookletpress/internal/render"
	"github.com/local/bookletpress/internal/storage"
)

// Output file names inside the output directory.
const (
	BookletFile = "output.pdf"
	CoverFile   = "cover.pdf"
)

type Status struct {
	Status   string
	Stage    string
	Progress int
	Message  string
	Start    *time.Time
	End      *time.Time
	Metadata map[string]any
}

type StatusStore interface {
	Set(ctx context.Context, runID string, st Status) error
}

// Resolver fills layout choices left unset by flags and environment.
type Resolver interface {
	Resolve(ctx context.Context, b *config.BookletConfig) error
}

// ObjectStore moves books in and booklets out of remote storage.
type ObjectStore interface {
	Download(ctx context.Context, key, dst string) (int64, error)
	Upload(ctx context.Context, key, path, contentType string) error
}

type Dependencies struct {
	Status   StatusStore
	Decider  imposition.Decider
	Resolver Resolver
	Objects  ObjectStore
	// Progress receives progress bars; nil disables them.
	Progress io.Writer
}

type Orchestrator struct {
	cfg  config.Config
	deps Dependencies
}

func New(cfg config.Config, deps Dependencies) *Orchestrator {
	if deps.Status == nil {
		deps.Status = NewLogStatus()
	}
	if deps.Decider == nil {
		deps.Decider = imposition.AlwaysNo
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Report describes a finished run.
type Report struct {
	RunID    string
	InputDir string
	Prepared *archive.Prepared
	Result   *imposition.Result
	Booklet  string
	Cover    string
	Faces    int
	Uploaded []string
}

// stage progress shown in the status hash
var stageProgress = map[string]int{
	"prepare":   5,
	"sequence":  15,
	"split":     40,
	"normalize": 50,
	"trim":      65,
	"impose":    70,
	"render":    85,
	"cover":     90,
	"upload":    95,
}

// Run builds the booklet for source, which is a local directory, an
// s3://bucket/key book archive, or "" for the configured input directory.
func (o *Orchestrator) Run(ctx context.Context, source string) (rep *Report, err error) {
	rep = &Report{RunID: uuid.NewString()}
	start := time.Now()
	logger := log.With().Str("run_id", rep.RunID).Logger()
	ctx = logger.WithContext(ctx)

	o.setStatus(ctx, rep.RunID, Status{Status: "running", Stage: "prepare", Message: "preparing input", Start: &start,
		Metadata: map[string]any{"source": source}})

	defer func() {
		end := time.Now()
		result := Classify(err)
		metrics.IncRun(result)
		o.exportMetrics(ctx, rep.RunID)
		if err != nil {
			msg := err.Error()
			if hint := Hint(err); hint != "" {
				msg += "; " + hint
			}
			o.setStatus(ctx, rep.RunID, Status{Status: "failed", Stage: "done", Message: msg, Start: &start, End: &end,
				Metadata: map[string]any{"result": result}})
			return
		}
		o.setStatus(ctx, rep.RunID, Status{Status: "completed", Stage: "done", Progress: 100, Message: "booklet written",
			Start: &start, End: &end, Metadata: map[string]any{
				"pages":   len(rep.Result.Reading),
				"faces":   rep.Faces,
				"booklet": rep.Booklet,
				"cover":   rep.Cover,
			}})
		logger.Info().Dur("took", end.Sub(start)).Str("booklet", rep.Booklet).Msg("run complete")
	}()

	booklet := o.cfg.Booklet
	if !booklet.Complete() && o.deps.Resolver != nil {
		if err := o.deps.Resolver.Resolve(ctx, &booklet); err != nil {
			return rep, err
		}
	}
	settings, err := booklet.Settings()
	if err != nil {
		return rep, err
	}

	CleanupTemps(os.TempDir(), 24*time.Hour)
	if rep.InputDir, err = o.resolveInput(ctx, source); err != nil {
		return rep, err
	}

	prepStart := time.Now()
	prep := &archive.Preparer{DPI: booklet.DPI, Skip: o.cfg.Paths.WorkPrefix}
	if rep.Prepared, err = prep.Prepare(ctx, rep.InputDir); err != nil {
		return rep, err
	}
	metrics.ObserveStage("prepare", time.Since(prepStart))

	pages, err := imagestore.NewDir(rep.InputDir)
	if err != nil {
		return rep, err
	}
	pages.Skip = o.cfg.Paths.WorkPrefix
	names, err := pages.List(ctx)
	if err != nil {
		return rep, err
	}
	logger.Info().Str("input", rep.InputDir).Int("images", len(names)).Str("direction", settings.Direction.String()).
		Str("paper", settings.Paper.Name).Float64("page_width_cm", settings.PageWidthCM).Msg("starting imposition")

	progress := NewBarProgress(o.deps.Progress)
	engine := &imposition.Engine{
		Store:    pages,
		Decider:  o.deps.Decider,
		Progress: progress,
		Observe: func(stage string, d time.Duration) {
			metrics.ObserveStage(stage, d)
			o.setStatus(ctx, rep.RunID, Status{Status: "running", Stage: stage, Progress: stageProgress[stage], Message: stage + " done"})
		},
		Options: imposition.Options{
			Direction:      settings.Direction,
			DropZeroPages:  settings.DropZeroPages,
			Tolerance:      booklet.Tolerance,
			LandscapeRatio: booklet.LandscapeRatio,
			TargetWidthCM:  settings.PageWidthCM,
			DPI:            booklet.DPI,
			WorkPrefix:     o.cfg.Paths.WorkPrefix,
		},
	}
	if rep.Result, err = engine.Run(ctx, names); err != nil {
		return rep, err
	}
	for _, f := range rep.Result.Failures {
		logger.Warn().Err(f.Err).Str("stage", f.Stage).Str("page", f.Name).Msg("page skipped")
	}
	recordResult(rep.Result)

	if err := os.MkdirAll(o.cfg.Paths.Output, 0o755); err != nil {
		return rep, fmt.Errorf("create output dir: %w", err)
	}
	renderer := &render.Renderer{Paper: settings.Paper, DPI: booklet.DPI, Progress: progress}

	renderStart := time.Now()
	rep.Booklet = filepath.Join(o.cfg.Paths.Output, BookletFile)
	if err := renderer.Booklet(ctx, pages, rep.Result.Printing, rep.Booklet); err != nil {
		return rep, fmt.Errorf("render booklet: %w", err)
	}
	rep.Faces = render.Faces(len(rep.Result.Printing))
	if err := render.Verify(rep.Booklet, rep.Faces); err != nil {
		return rep, err
	}
	metrics.ObserveStage("render", time.Since(renderStart))
	o.setStatus(ctx, rep.RunID, Status{Status: "running", Stage: "render", Progress: stageProgress["render"], Message: "booklet rendered"})

	rep.Cover = o.makeCover(ctx, renderer, rep.Result.Reading.MinHeight())

	if booklet.Password != "" {
		for _, f := range []string{rep.Booklet, rep.Cover} {
			if f == "" {
				continue
			}
			if err := render.Encrypt(f, booklet.Password); err != nil {
				return rep, err
			}
		}
	}

	if o.cfg.Storage.Upload {
		if rep.Uploaded, err = o.upload(ctx, rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// resolveInput returns the local directory holding the book.
func (o *Orchestrator) resolveInput(ctx context.Context, source string) (string, error) {
	dir := o.cfg.Paths.Input
	if source != "" && !storage.IsURL(source) {
		dir = source
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create input dir: %w", err)
	}
	if !storage.IsURL(source) {
		return dir, nil
	}

	if o.deps.Objects == nil {
		return "", &imposition.ConfigError{Field: "input", Value: source, Reason: "S3 input needs S3_BUCKET or credentials configured"}
	}
	_, key, err := storage.ParseURL(source)
	if err != nil {
		return "", &imposition.ConfigError{Field: "input", Value: source, Reason: err.Error()}
	}
	tmp, err := os.CreateTemp("", downloadPrefix+"*"+path.Ext(key))
	if err != nil {
		return "", err
	}
	tmp.Close()
	if _, err := o.deps.Objects.Download(ctx, key, tmp.Name()); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	dst := filepath.Join(dir, path.Base(key))
	if err := moveFile(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move download into %s: %w", dir, err)
	}
	log.Ctx(ctx).Info().Str("source", source).Str("file", dst).Msg("fetched book")
	return dir, nil
}

func (o *Orchestrator) makeCover(ctx context.Context, renderer *render.Renderer, height int) string {
	start := time.Now()
	out := filepath.Join(o.cfg.Paths.Output, CoverFile)
	maker := &cover.Maker{Renderer: renderer}
	err := maker.Make(ctx, o.cfg.Paths.Cover, height, out)
	var skip *cover.SkipError
	switch {
	case err == nil:
		metrics.ObserveStage("cover", time.Since(start))
		return out
	case errors.As(err, &skip):
		log.Ctx(ctx).Info().Str("reason", skip.Reason).Msg("no cover built")
	default:
		log.Ctx(ctx).Warn().Err(err).Msg("cover failed; booklet kept")
	}
	return ""
}

func (o *Orchestrator) upload(ctx context.Context, rep *Report) ([]string, error) {
	if o.deps.Objects == nil {
		return nil, &imposition.ConfigError{Field: "S3_BUCKET", Reason: "upload requested without S3 storage"}
	}
	var keys []string
	for _, f := range []string{rep.Booklet, rep.Cover} {
		if f == "" {
			continue
		}
		key := storage.JoinKey(o.cfg.Storage.UploadPrefix, rep.RunID+"/"+filepath.Base(f))
		if err := o.deps.Objects.Upload(ctx, key, f, "application/pdf"); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	o.setStatus(ctx, rep.RunID, Status{Status: "running", Stage: "upload", Progress: stageProgress["upload"], Message: "uploaded",
		Metadata: map[string]any{"keys": keys}})
	return keys, nil
}

func (o *Orchestrator) setStatus(ctx context.Context, runID string, st Status) {
	if err := o.deps.Status.Set(ctx, runID, st); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("stage", st.Stage).Msg("status update failed")
	}
}

func (o *Orchestrator) exportMetrics(ctx context.Context, runID string) {
	m := o.cfg.Metrics
	if m.TextfilePath != "" {
		if err := metrics.WriteTextfile(m.TextfilePath); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("metrics textfile not written")
		}
	}
	if m.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, m.PushgatewayURL, m.Job, runID); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("metrics push failed")
		}
	}
}

func recordResult(res *imposition.Result) {
	metrics.AddPages("printed", len(res.Reading))
	metrics.AddPages("failed", res.Stats.Failed)
	metrics.AddSpreads(res.Stats.Spreads)
	metrics.AddBlanks("head", res.Stats.HeadBlanks)
	metrics.AddBlanks("tail", res.Stats.TailBlanks)
	metrics.AddRemoved(res.Stats.Removed)
	metrics.AddTrimmed(res.Stats.Trimmed)
}
