package statuscheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

type bucketFunc func(ctx context.Context) error

func (f bucketFunc) HeadBucket(ctx context.Context) error { return f(ctx) }

func TestSummary_NothingConfigured(t *testing.T) {
	t.Parallel()

	s := New(Options{}).Summary(context.Background())
	for _, st := range s.All() {
		if st.Enabled {
			t.Errorf("%s enabled with no options", st.Name)
		}
	}
	if !s.OK() {
		t.Errorf("Summary().OK() = false, want true when nothing is enabled")
	}
}

func TestSummary_AllHealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/-/ready" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := New(Options{
		Redis:          PingFunc(func(context.Context) error { return nil }),
		Bucket:         bucketFunc(func(context.Context) error { return nil }),
		PushgatewayURL: srv.URL + "/",
		InputDir:       dir,
		OutputDir:      filepath.Join(dir, "out"),
	})
	s := c.Summary(context.Background())
	for _, st := range s.All() {
		if !st.Enabled || !st.OK {
			t.Errorf("%s = %+v, want enabled and ok", st.Name, st.Status)
		}
	}
	if !s.OK() {
		t.Errorf("Summary().OK() = false")
	}
}

func TestSummary_Failures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{
		Redis:          PingFunc(func(context.Context) error { return errors.New("connection refused") }),
		Bucket:         bucketFunc(func(context.Context) error { return errors.New(strings.Repeat("x", 200)) }),
		PushgatewayURL: srv.URL,
		InputDir:       filepath.Join(t.TempDir(), "missing"),
	})
	s := c.Summary(context.Background())
	if s.OK() {
		t.Fatalf("Summary().OK() = true, want false")
	}
	if s.Redis.OK || s.Redis.Message != "connection refused" {
		t.Errorf("Redis = %+v", s.Redis)
	}
	if s.S3.OK || len(s.S3.Message) != 120 {
		t.Errorf("S3 message length = %d, want 120", len(s.S3.Message))
	}
	if s.Pushgateway.OK || s.Pushgateway.Message != "HTTP 503" {
		t.Errorf("Pushgateway = %+v", s.Pushgateway)
	}
	if s.Input.OK || !s.Input.Enabled {
		t.Errorf("Input = %+v, want enabled and failing", s.Input)
	}
	if s.Output.Enabled {
		t.Errorf("Output = %+v, want not configured", s.Output)
	}
}
