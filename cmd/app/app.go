package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	cfgpkg "github.com/local/bookletpress/internal/config"
	logpkg "github.com/local/bookletpress/internal/logger"
	"github.com/local/bookletpress/internal/metrics"
	"github.com/local/bookletpress/internal/orchestrator"
)

// Version information set at build time.
var Version = "dev"

// flags override the matching environment settings when given.
type flags struct {
	envFile   string
	input     string
	output    string
	coverDir  string
	direction string
	paper     string
	width     string
	dropZero  string
	tolerance float64
	dpi       int
	yes       bool
	password  string
	upload    bool
	logLevel  string
	quiet     bool
}

type app struct {
	root   *cobra.Command
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	flags  flags
	cfg    cfgpkg.Config
	// skipLogInit leaves the global logger alone; set by tests.
	skipLogInit bool
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	a.root = &cobra.Command{
		Use:   "bookletpress [input-dir | s3://bucket/key]",
		Short: "Impose scanned comic pages into a saddle-stitch booklet PDF",
		Long: `bookletpress orders scanned comic or manga pages, splits double-page
scans, pads the page count for binding, trims pages to a common height and
writes output.pdf with the pages in sheet order, ready for duplex printing
and folding. An optional cover.pdf is built from the cover directory.

Examples:
  # Right-to-left manga on A4, pages at full width
  bookletpress -d right -p A4 -w full

  # A CBZ from S3, answering yes to every question
  bookletpress -y s3://scans/incoming/vol1.cbz`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			var source string
			if len(args) > 0 {
				source = args[0]
			}
			return a.runBooklet(cmd.Context(), source)
		},
		PersistentPostRun: func(*cobra.Command, []string) { logpkg.Close() },
	}

	pf := a.root.PersistentFlags()
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "Environment file loaded before reading settings")
	pf.StringVarP(&a.flags.input, "input", "i", "", "Input directory (INPUT_DIR)")
	pf.StringVarP(&a.flags.output, "output", "o", "", "Output directory (OUTPUT_DIR)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (LOG_LEVEL)")

	f := a.root.Flags()
	f.StringVar(&a.flags.coverDir, "cover-dir", "", "Cover image directory (COVER_DIR)")
	f.StringVarP(&a.flags.direction, "direction", "d", "", "Reading direction: left or right (BOOKLET_DIRECTION)")
	f.StringVarP(&a.flags.paper, "paper", "p", "", "Paper size: A4, Letter or A5 (BOOKLET_PAPER)")
	f.StringVarP(&a.flags.width, "width", "w", "", "Page width in cm, or full (BOOKLET_PAGE_WIDTH)")
	f.StringVar(&a.flags.dropZero, "drop-zero-pages", "", "Drop 000-numbered pages: y or n (BOOKLET_DROP_ZERO_PAGES)")
	f.Float64Var(&a.flags.tolerance, "tolerance", 0, "Spread width tolerance over the mean (BOOKLET_SPREAD_TOLERANCE)")
	f.IntVar(&a.flags.dpi, "dpi", 0, "Scan resolution (BOOKLET_DPI)")
	f.BoolVarP(&a.flags.yes, "yes", "y", false, "Answer yes to every question and default unset choices (BOOKLET_ASSUME_YES)")
	f.StringVar(&a.flags.password, "password", "", "Encrypt the PDFs with this password (PDF_PASSWORD)")
	f.BoolVar(&a.flags.upload, "upload", false, "Upload the PDFs to S3 (S3_UPLOAD)")
	f.BoolVarP(&a.flags.quiet, "quiet", "q", false, "Hide progress bars and console logs")

	a.root.AddCommand(a.newCheckCmd(), a.newVersionCmd())
	return a
}

// Execute runs the command line and reports domain errors with a hint.
func (a *app) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	err := a.root.ExecuteContext(ctx)
	if err != nil {
		ev := log.Error().Err(err).Str("result", orchestrator.Classify(err))
		if hint := orchestrator.Hint(err); hint != "" {
			ev = ev.Str("hint", hint)
		}
		ev.Msg("bookletpress failed")
	}
	return err
}

// setup loads configuration, applies flags and starts logging and metrics.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := cfgpkg.Load(a.flags.envFile)
	if err != nil {
		return err
	}
	a.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if !a.skipLogInit {
		err := logpkg.Init(logpkg.Options{
			Level:        cfg.Logging.Level,
			Pretty:       cfg.Logging.Pretty,
			File:         cfg.Logging.File,
			MaxSizeMB:    cfg.Logging.MaxSizeMB,
			MaxBackups:   cfg.Logging.MaxBackups,
			MaxAgeDays:   cfg.Logging.MaxAgeDays,
			Compress:     cfg.Logging.Compress,
			Console:      a.stderr,
			Quiet:        a.flags.quiet,
			SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
			AxiomAPIKey:  cfg.Axiom.APIKey,
			AxiomOrgID:   cfg.Axiom.OrgID,
			AxiomDataset: cfg.Axiom.Dataset,
			AxiomFlush:   cfg.Axiom.FlushInterval,
		})
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
	}
	metrics.Init()
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *cfgpkg.Config) {
	fs := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("input", &cfg.Paths.Input, a.flags.input)
	set("output", &cfg.Paths.Output, a.flags.output)
	set("log-level", &cfg.Logging.Level, a.flags.logLevel)
	set("cover-dir", &cfg.Paths.Cover, a.flags.coverDir)
	set("direction", &cfg.Booklet.Direction, a.flags.direction)
	set("paper", &cfg.Booklet.Paper, a.flags.paper)
	set("width", &cfg.Booklet.PageWidth, a.flags.width)
	set("drop-zero-pages", &cfg.Booklet.DropZeroPages, a.flags.dropZero)
	set("password", &cfg.Booklet.Password, a.flags.password)
	if fs.Changed("tolerance") {
		cfg.Booklet.Tolerance = a.flags.tolerance
	}
	if fs.Changed("dpi") {
		cfg.Booklet.DPI = a.flags.dpi
	}
	if fs.Changed("yes") {
		cfg.Booklet.AssumeYes = a.flags.yes
	}
	if fs.Changed("upload") {
		cfg.Storage.Upload = a.flags.upload
	}
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// no configuration needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "bookletpress %s\n", Version)
		},
	}
}
