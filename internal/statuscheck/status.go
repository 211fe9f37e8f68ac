package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to RedisPinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BucketChecker is satisfied by storage.S3Client.
type BucketChecker interface {
	HeadBucket(ctx context.Context) error
}

// Checker runs preflight checks on the services and directories a run uses.
type Checker struct {
	redis       RedisPinger
	bucket      BucketChecker
	httpClient  *http.Client
	pushgateway string
	inputDir    string
	outputDir   string
}

// Options configures the Checker. Nil or empty entries are reported as not
// configured.
type Options struct {
	Redis          RedisPinger
	Bucket         BucketChecker
	HTTPClient     *http.Client
	PushgatewayURL string
	InputDir       string
	OutputDir      string
}

// Status represents the readiness of a subsystem.
type Status struct {
	Enabled bool   `json:"enabled"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	Input       Status `json:"input"`
	Output      Status `json:"output"`
	Redis       Status `json:"redis"`
	S3          Status `json:"s3"`
	Pushgateway Status `json:"pushgateway"`
}

// OK reports whether every enabled subsystem is ready.
func (s Summary) OK() bool {
	for _, st := range s.All() {
		if st.Enabled && !st.OK {
			return false
		}
	}
	return true
}

// All returns the statuses by display name in a fixed order.
func (s Summary) All() []NamedStatus {
	return []NamedStatus{
		{"input", s.Input},
		{"output", s.Output},
		{"redis", s.Redis},
		{"s3", s.S3},
		{"pushgateway", s.Pushgateway},
	}
}

// NamedStatus pairs a subsystem name with its status.
type NamedStatus struct {
	Name string
	Status
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Checker{
		redis:       opts.Redis,
		bucket:      opts.Bucket,
		httpClient:  client,
		pushgateway: strings.TrimRight(strings.TrimSpace(opts.PushgatewayURL), "/"),
		inputDir:    opts.InputDir,
		outputDir:   opts.OutputDir,
	}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
	return Summary{
		Input:       c.checkInput(),
		Output:      c.checkOutput(),
		Redis:       c.checkRedis(ctx),
		S3:          c.checkS3(ctx),
		Pushgateway: c.checkPushgateway(ctx),
	}
}

func (c *Checker) checkInput() Status {
	if c.inputDir == "" {
		return Status{Message: "not configured"}
	}
	info, err := os.Stat(c.inputDir)
	if err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	if !info.IsDir() {
		return Status{Enabled: true, Message: "not a directory"}
	}
	entries, err := os.ReadDir(c.inputDir)
	if err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	return Status{Enabled: true, OK: true, Message: fmt.Sprintf("%d entries", len(entries))}
}

func (c *Checker) checkOutput() Status {
	if c.outputDir == "" {
		return Status{Message: "not configured"}
	}
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	f, err := os.CreateTemp(c.outputDir, ".check-*")
	if err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	f.Close()
	os.Remove(f.Name())
	return Status{Enabled: true, OK: true, Message: "Writable"}
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	return Status{Enabled: true, OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
	if c.bucket == nil {
		return Status{Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.bucket.HeadBucket(ctx); err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	return Status{Enabled: true, OK: true, Message: "Connected"}
}

func (c *Checker) checkPushgateway(ctx context.Context) Status {
	if c.pushgateway == "" {
		return Status{Message: "not configured"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pushgateway+"/-/ready", nil)
	if err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{Enabled: true, Message: trimError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Status{Enabled: true, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Status{Enabled: true, OK: true, Message: "Available"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
