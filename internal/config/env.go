package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/local/bookletpress/internal/imposition"
	"github.com/local/bookletpress/internal/render"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// BookletConfig holds the book layout choices. Direction, Paper, PageWidth
// and DropZeroPages may be left empty to be asked for interactively.
type BookletConfig struct {
	Direction      string
	Paper          string
	PageWidth      string // centimetres or "full"
	DropZeroPages  string // "y", "n" or empty
	Tolerance      float64
	LandscapeRatio float64
	DPI            int
	AssumeYes      bool
	Password       string
}

// PathsConfig defines where pages are read and documents written.
type PathsConfig struct {
	Input      string
	Output     string
	Cover      string
	WorkPrefix string
}

// StorageConfig defines optional S3 input and upload.
type StorageConfig struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UploadPrefix string
	Upload       bool
}

// StatusConfig defines where run status is published.
type StatusConfig struct {
	RedisURL string
	TTL      time.Duration
}

// MetricsConfig defines batch metric export.
type MetricsConfig struct {
	PushgatewayURL string
	TextfilePath   string
	Job            string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Booklet BookletConfig
	Paths   PathsConfig
	Storage StorageConfig
	Status  StatusConfig
	Metrics MetricsConfig
}

// Settings are the validated layout choices for one run.
type Settings struct {
	Direction     imposition.Direction
	Paper         render.Paper
	PageWidthCM   float64
	DropZeroPages bool
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", defaultPretty())),
		File:       getEnv("LOG_FILE", "logs/bookletpress.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_bookletpress",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Booklet = BookletConfig{
		Direction:      getEnv("BOOKLET_DIRECTION", ""),
		Paper:          getEnv("BOOKLET_PAPER", ""),
		PageWidth:      getEnv("BOOKLET_PAGE_WIDTH", ""),
		DropZeroPages:  getEnv("BOOKLET_DROP_ZERO_PAGES", ""),
		Tolerance:      parseFloat(getEnv("BOOKLET_SPREAD_TOLERANCE", ""), imposition.DefaultTolerance),
		LandscapeRatio: parseFloat(getEnv("BOOKLET_LANDSCAPE_RATIO", ""), imposition.DefaultLandscapeRatio),
		DPI:            parseInt(getEnv("BOOKLET_DPI", ""), imposition.DefaultDPI),
		AssumeYes:      parseBool(getEnv("BOOKLET_ASSUME_YES", "false")),
		Password:       getEnv("PDF_PASSWORD", ""),
	}

	cfg.Paths = PathsConfig{
		Input:      getEnv("INPUT_DIR", "input"),
		Output:     getEnv("OUTPUT_DIR", "output"),
		Cover:      getEnv("COVER_DIR", "cover"),
		WorkPrefix: getEnv("WORK_PREFIX", imposition.DefaultWorkPrefix),
	}

	cfg.Storage = StorageConfig{
		Bucket:       getEnv("S3_BUCKET", ""),
		Region:       getEnv("AWS_REGION", ""),
		Endpoint:     getEnv("S3_ENDPOINT", ""),
		AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		SecretKey:    getEnv("S3_SECRET_KEY", ""),
		UploadPrefix: getEnv("S3_UPLOAD_PREFIX", "booklets/"),
		Upload:       parseBool(getEnv("S3_UPLOAD", "false")),
	}

	cfg.Status = StatusConfig{
		RedisURL: getEnv("STATUS_REDIS_URL", ""),
		TTL:      parseDuration(getEnv("STATUS_TTL", "24h"), 24*time.Hour),
	}

	cfg.Metrics = MetricsConfig{
		PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
		TextfilePath:   getEnv("METRICS_TEXTFILE", ""),
		Job:            getEnv("METRICS_JOB", "bookletpress"),
	}

	return cfg
}

// Validate checks the values that do not need a prompt. Empty layout
// choices are allowed here and resolved later.
func (c Config) Validate() error {
	b := c.Booklet
	if b.Direction != "" {
		if _, err := imposition.ParseDirection(b.Direction); err != nil {
			return err
		}
	}
	var paper render.Paper
	if b.Paper != "" {
		p, err := render.ParsePaper(b.Paper)
		if err != nil {
			return err
		}
		paper = p
	}
	if b.PageWidth != "" {
		if _, err := render.ParsePageWidth(b.PageWidth, paper); err != nil {
			return err
		}
	}
	if b.DropZeroPages != "" {
		if _, err := ParseYesNo(b.DropZeroPages); err != nil {
			return err
		}
	}
	if b.Tolerance <= 0 || b.Tolerance >= 1 {
		return &imposition.ConfigError{Field: "spread tolerance", Value: fmt.Sprint(b.Tolerance), Reason: "must be between 0 and 1"}
	}
	if b.LandscapeRatio <= 0 || b.LandscapeRatio > 1 {
		return &imposition.ConfigError{Field: "landscape ratio", Value: fmt.Sprint(b.LandscapeRatio), Reason: "must be between 0 and 1"}
	}
	if b.DPI < 72 || b.DPI > 1200 {
		return &imposition.ConfigError{Field: "dpi", Value: strconv.Itoa(b.DPI), Reason: "must be between 72 and 1200"}
	}
	if c.Paths.Input == "" || c.Paths.Output == "" {
		return &imposition.ConfigError{Field: "paths", Reason: "input and output directories are required"}
	}
	if c.Paths.WorkPrefix == "" || !strings.HasSuffix(c.Paths.WorkPrefix, "/") || strings.HasPrefix(c.Paths.WorkPrefix, "/") {
		return &imposition.ConfigError{Field: "work prefix", Value: c.Paths.WorkPrefix, Reason: "must be a relative directory ending in /"}
	}
	if c.Storage.Upload && c.Storage.Bucket == "" {
		return &imposition.ConfigError{Field: "S3_BUCKET", Reason: "required when S3_UPLOAD is enabled"}
	}
	return nil
}

// Complete reports whether every layout choice is set.
func (b BookletConfig) Complete() bool {
	return b.Direction != "" && b.Paper != "" && b.PageWidth != "" && b.DropZeroPages != ""
}

// Settings parses the layout choices. Every choice must be set.
func (b BookletConfig) Settings() (Settings, error) {
	var s Settings
	var err error
	if s.Direction, err = imposition.ParseDirection(b.Direction); err != nil {
		return s, err
	}
	if s.Paper, err = render.ParsePaper(b.Paper); err != nil {
		return s, err
	}
	if s.PageWidthCM, err = render.ParsePageWidth(b.PageWidth, s.Paper); err != nil {
		return s, err
	}
	if s.DropZeroPages, err = ParseYesNo(b.DropZeroPages); err != nil {
		return s, err
	}
	return s, nil
}

// ParseYesNo accepts y/n and the usual boolean spellings.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "1", "true", "on":
		return true, nil
	case "n", "no", "0", "false", "off":
		return false, nil
	}
	return false, &imposition.ConfigError{Field: "drop zero pages", Value: s, Reason: "must be y or n"}
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// defaultPretty keeps console output readable except in production.
func defaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "prod" || env == "production" {
		return "false"
	}
	return "true"
}
