// Package session tracks the calls a process is currently serving. Each
// call gets one Session owning its conversation state, its cancelation
// and its teardown; the Manager is the registry plus the idle reaper.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carelane/voicedesk/internal/metrics"
	"github.com/carelane/voicedesk/pkg/dialog"
	"github.com/carelane/voicedesk/pkg/store"
)

// Session is the live handle for one call.
type Session struct {
	callID    string
	state     *dialog.State
	store     store.Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// lastActivity is a unix-nano timestamp, touched on every media or
	// dialog event so the reaper can spot abandoned calls.
	lastActivity atomic.Int64

	teardown sync.Once
}

// CallID returns this session's call identifier.
func (s *Session) CallID() string { return s.callID }

// State returns the call's conversation state. The pipeline's respond
// loop is its only writer.
func (s *Session) State() *dialog.State { return s.state }

// Context is canceled when the session is torn down. The call's
// pipeline must run under it.
func (s *Session) Context() context.Context { return s.ctx }

// Touch records call activity, deferring the idle reaper.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IdleFor reports how long the call has been without activity.
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// Persist writes the current state snapshot to the store.
func (s *Session) Persist(ctx context.Context) error {
	return s.store.Update(ctx, s.state)
}

// Teardown ends the session: it cancels the call's context and persists
// the final state snapshot. Safe to call any number of times, from any
// goroutine; only the first call does work.
func (s *Session) Teardown(reason string) {
	s.teardown.Do(func() {
		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.Update(ctx, s.state); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("final snapshot persist failed", "call_id", s.callID, "error", err)
		}

		duration := time.Since(s.startedAt)
		if s.metrics != nil {
			s.metrics.ActiveCalls.Dec()
			s.metrics.TotalCalls.WithLabelValues(reason).Inc()
			s.metrics.CallDuration.Observe(duration.Seconds())
		}
		s.logger.Info("call ended",
			"call_id", s.callID,
			"reason", reason,
			"duration", duration.Round(time.Millisecond),
			"phase", s.state.Phase.String(),
		)
	})
}
