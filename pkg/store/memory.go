package store

import (
	"context"
	"sync"
	"time"

	"github.com/carelane/voicedesk/pkg/dialog"
)

// janitorInterval is how often expired entries are swept. Reads also
// check expiry, so the sweep only bounds memory, not correctness.
const janitorInterval = time.Minute

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Store. It is the default backend for single
// instance deployments and for tests.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
	closed  bool

	stop chan struct{}
	done chan struct{}
}

// NewMemory creates an in-process store whose entries expire ttl after
// their last write. A ttl of zero uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Create stores the initial state for a call.
func (m *Memory) Create(ctx context.Context, st *dialog.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if e, ok := m.entries[st.CallID]; ok && m.now().Before(e.expires) {
		return ErrAlreadyExists
	}
	m.entries[st.CallID] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

// Get returns a copy of the stored state for a call.
func (m *Memory) Get(ctx context.Context, callID string) (*dialog.State, error) {
	m.mu.RLock()
	e, ok := m.entries[callID]
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok || !m.now().Before(e.expires) {
		return nil, ErrNotFound
	}
	return decode(e.data)
}

// Update replaces the state for a live call and refreshes its TTL.
func (m *Memory) Update(ctx context.Context, st *dialog.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e, ok := m.entries[st.CallID]
	if !ok || !m.now().Before(e.expires) {
		return ErrNotFound
	}
	m.entries[st.CallID] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

// Delete removes a call's state. Absent calls are fine.
func (m *Memory) Delete(ctx context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, callID)
	return nil
}

// Len reports how many entries are currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor and drops all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.entries = nil
	m.mu.Unlock()

	close(m.stop)
	<-m.done
	return nil
}

func (m *Memory) janitor() {
	defer close(m.done)
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
		}
	}
}

var _ Store = (*Memory)(nil)
