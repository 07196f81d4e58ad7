package classify

import (
	"context"

	"github.com/carelane/voicedesk/pkg/dialog"
)

// Mock implements dialog.Chooser for testing.
type Mock struct {
	// ChooseFunc is called when ClassifyChoice is invoked. If nil, the
	// first option is chosen.
	ChooseFunc func(ctx context.Context, input string, options []string) (int, error)

	calls []MockCall
}

// MockCall records one classification request.
type MockCall struct {
	Input   string
	Options []string
}

// ClassifyChoice calls ChooseFunc and records the call.
func (m *Mock) ClassifyChoice(ctx context.Context, input string, options []string) (int, error) {
	m.calls = append(m.calls, MockCall{Input: input, Options: options})
	if m.ChooseFunc != nil {
		return m.ChooseFunc(ctx, input, options)
	}
	return 0, nil
}

// Calls returns all recorded requests.
func (m *Mock) Calls() []MockCall {
	return m.calls
}

var _ dialog.Chooser = (*Mock)(nil)
