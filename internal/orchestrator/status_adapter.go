package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/local/bookletpress/internal/store"
)

type redisStatusAdapter struct{ s *store.RedisStatus }

// NewStatusAdapter publishes run status to Redis.
func NewStatusAdapter(s *store.RedisStatus) StatusStore { return &redisStatusAdapter{s: s} }

func (a *redisStatusAdapter) Set(ctx context.Context, runID string, st Status) error {
	return a.s.Set(ctx, runID, store.Status{
		Status:   st.Status,
		Stage:    st.Stage,
		Progress: st.Progress,
		Message:  st.Message,
		Start:    st.Start,
		End:      st.End,
		Metadata: st.Metadata,
	})
}

// logStatus is used when no status backend is configured.
type logStatus struct{}

// NewLogStatus returns a StatusStore that only writes debug log lines.
func NewLogStatus() StatusStore { return logStatus{} }

func (logStatus) Set(_ context.Context, runID string, st Status) error {
	log.Debug().
		Str("run_id", runID).
		Str("status", st.Status).
		Str("stage", st.Stage).
		Int("progress", st.Progress).
		Str("message", st.Message).
		Msg("run status")
	return nil
}
