package notify

import (
	"context"
	"sync"

	"github.com/carelane/voicedesk/pkg/dialog"
)

// Mock records confirmation dispatches for testing.
type Mock struct {
	// NotifyFunc is called when Notify is invoked. If nil, Notify
	// succeeds.
	NotifyFunc func(ctx context.Context, st *dialog.State) error

	mu    sync.Mutex
	calls []string
}

// Notify records the call ID and delegates to NotifyFunc.
func (m *Mock) Notify(ctx context.Context, st *dialog.State) error {
	m.mu.Lock()
	m.calls = append(m.calls, st.CallID)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, st)
	}
	return nil
}

// Calls returns the call IDs notified so far.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
