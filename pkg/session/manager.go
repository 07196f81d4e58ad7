package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carelane/voicedesk/internal/metrics"
	"github.com/carelane/voicedesk/pkg/dialog"
	"github.com/carelane/voicedesk/pkg/store"
)

const (
	// DefaultIdleTimeout tears down calls with no media or dialog
	// activity. Carrier websockets can linger long after the caller
	// hung up.
	DefaultIdleTimeout = 90 * time.Second

	// DefaultReapInterval is how often idle calls are checked for.
	DefaultReapInterval = 10 * time.Second
)

// ManagerConfig configures the session registry.
type ManagerConfig struct {
	Store        store.Store
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

// Manager is the registry of live sessions. One per process.
type Manager struct {
	store       store.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	stop chan struct{}
	done chan struct{}
}

// NewManager creates the registry and starts its idle reaper.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}

	m := &Manager{
		store:       cfg.Store,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		idleTimeout: cfg.IdleTimeout,
		sessions:    make(map[string]*Session),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go m.reaper(cfg.ReapInterval)
	return m
}

// Create registers a new call and stores its initial state.
func (m *Manager) Create(ctx context.Context, callID string) (*Session, error) {
	st := dialog.NewState(callID)
	if err := m.store.Create(ctx, st); err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		callID:    callID,
		state:     st,
		store:     m.store,
		logger:    m.logger,
		metrics:   m.metrics,
		startedAt: time.Now(),
		ctx:       sctx,
		cancel:    cancel,
	}
	s.Touch()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		m.store.Delete(ctx, callID)
		return nil, ErrShuttingDown
	}
	if _, exists := m.sessions[callID]; exists {
		m.mu.Unlock()
		cancel()
		return nil, ErrDuplicateCall
	}
	m.sessions[callID] = s
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveCalls.Inc()
	}
	m.logger.Info("call started", "call_id", callID)
	return s, nil
}

// Lookup returns the live session for a call, if any.
func (m *Manager) Lookup(callID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[callID]
	return s, ok
}

// Teardown removes a call from the registry and ends its session.
// Unknown calls and concurrent teardowns of the same call are fine.
func (m *Manager) Teardown(callID, reason string) {
	m.mu.Lock()
	s, ok := m.sessions[callID]
	delete(m.sessions, callID)
	m.mu.Unlock()

	if ok {
		s.Teardown(reason)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the reaper and tears down every remaining session.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	remaining := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		remaining = append(remaining, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	close(m.stop)
	<-m.done

	for _, s := range remaining {
		s.Teardown("shutdown")
	}
}

func (m *Manager) reaper(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.reapIdle()
		}
	}
}

func (m *Manager) reapIdle() {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.IdleFor() > m.idleTimeout {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.logger.Warn("reaping idle call", "call_id", s.CallID(), "idle", s.IdleFor().Round(time.Second))
		s.Teardown("idle_timeout")
	}
}
