package stt

import (
	"context"
	"sync"
)

// Mock implements Recognizer for testing.
// All methods can be customized via function fields, and the mock tracks
// open/close pairing so tests can assert no session leaks.
type Mock struct {
	// StartFunc is called when Start is invoked. If nil, Start succeeds.
	StartFunc func(ctx context.Context) error

	// SendAudioFunc is called when SendAudio is invoked. If nil, the
	// audio is recorded and the call succeeds.
	SendAudioFunc func(data []byte) error

	// FinishFunc is called when Finish is invoked. If nil, returns nil.
	FinishFunc func() error

	// CloseFunc is called when Close is invoked. If nil, returns nil.
	CloseFunc func() error

	// Callbacks, mirroring Deepgram. Tests drive them via Emit.
	OnTranscript   func(Result)
	OnUtteranceEnd func()
	OnError        func(error)

	mu       sync.Mutex
	started  bool
	closed   bool
	opens    int
	closes   int
	audio    [][]byte
	finishes int
}

// NewMock creates a mock recognizer.
func NewMock() *Mock {
	return &Mock{}
}

// Start records the session open.
func (m *Mock) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.opens++
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	return nil
}

// SendAudio records the chunk.
func (m *Mock) SendAudio(data []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.started {
		m.mu.Unlock()
		return ErrNotStarted
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.audio = append(m.audio, buf)
	m.mu.Unlock()

	if m.SendAudioFunc != nil {
		return m.SendAudioFunc(data)
	}
	return nil
}

// Finish records the flush request.
func (m *Mock) Finish() error {
	m.mu.Lock()
	m.finishes++
	m.mu.Unlock()
	if m.FinishFunc != nil {
		return m.FinishFunc()
	}
	return nil
}

// Close records the session close. Safe to call more than once.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		m.closes++
	}
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Emit delivers a recognition result through the transcript callback,
// as the live session would.
func (m *Mock) Emit(r Result) {
	if m.OnTranscript != nil {
		m.OnTranscript(r)
	}
}

// EmitFinal delivers a settled, speech-final transcript.
func (m *Mock) EmitFinal(text string) {
	m.Emit(Result{Text: text, Confidence: 1.0, IsFinal: true, SpeechFinal: true})
}

// EmitError delivers a session error through the error callback, as the
// live session would after losing its connection.
func (m *Mock) EmitError(err error) {
	if m.OnError != nil {
		m.OnError(err)
	}
}

// Opens returns how many times Start was called.
func (m *Mock) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// Closes returns how many times Close actually closed the session.
func (m *Mock) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Audio returns every chunk received, in order.
func (m *Mock) Audio() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.audio))
	copy(out, m.audio)
	return out
}

// AudioBytes returns the total number of audio bytes received.
func (m *Mock) AudioBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, chunk := range m.audio {
		n += len(chunk)
	}
	return n
}

// Verify Mock implements Recognizer at compile time.
var _ Recognizer = (*Mock)(nil)
