package telephony

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Errors returned by the bridge.
var (
	// ErrBridgeClosed is returned when writing to a closed bridge.
	ErrBridgeClosed = errors.New("telephony: bridge closed")

	// ErrNoStream is returned when writing before the start event
	// announced the stream identity.
	ErrNoStream = errors.New("telephony: stream not started")
)

// Conn is the subset of the websocket connection the bridge needs.
// *websocket.Conn satisfies it; tests substitute a pipe.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DefaultWriteTimeout bounds one outbound envelope write. A caller that
// stops draining its socket must not wedge the pipeline.
const DefaultWriteTimeout = 5 * time.Second

// eventBuffer sizes the inbound event channel. Telephony media arrives
// in 20ms frames; one second of headroom absorbs scheduler hiccups.
const eventBuffer = 64

// Bridge is the duplex endpoint for one call's media stream. Inbound
// envelopes become Events on a channel; outbound audio and markers are
// serialized through a single writer with per-write deadlines.
type Bridge struct {
	conn         Conn
	logger       *slog.Logger
	writeTimeout time.Duration

	events chan Event

	writeMu sync.Mutex
	seq     uint64

	mu        sync.Mutex
	streamSID string
	closed    bool
}

// BridgeOption customizes a Bridge.
type BridgeOption func(*Bridge)

// WithWriteTimeout sets the per-write deadline.
func WithWriteTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		b.writeTimeout = d
	}
}

// WithBridgeLogger sets the structured logger.
func WithBridgeLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// NewBridge wraps an accepted media-stream connection.
func NewBridge(conn Conn, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		conn:         conn,
		logger:       slog.Default(),
		writeTimeout: DefaultWriteTimeout,
		events:       make(chan Event, eventBuffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Events returns the inbound event stream. The channel closes when the
// peer disconnects or Close is called.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// ReadLoop consumes the connection until it dies, delivering decoded
// events in arrival order. Call it from exactly one goroutine; it
// returns when the connection closes.
func (b *Bridge) ReadLoop() {
	defer close(b.events)

	for {
		kind, raw, err := b.conn.ReadMessage()
		if err != nil {
			if !b.isClosed() {
				b.logger.Debug("media stream read ended", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		ev, err := ParseEvent(raw)
		if err != nil {
			b.logger.Warn("dropping malformed envelope", "error", err)
			continue
		}

		if ev.Kind == EventStart {
			b.mu.Lock()
			b.streamSID = ev.Start.StreamSID
			b.mu.Unlock()
		}

		b.events <- ev

		if ev.Kind == EventStop {
			return
		}
	}
}

// WriteAudio sends one chunk of encoded audio to the caller. Chunks are
// sequence-numbered in send order.
func (b *Bridge) WriteAudio(audio []byte) error {
	if len(audio) == 0 {
		return nil
	}
	sid, err := b.sid()
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.seq++
	msg, err := marshalMedia(sid, b.seq, audio)
	if err != nil {
		return err
	}
	return b.write(msg)
}

// WriteMark asks the carrier to echo a marker back once everything sent
// before it has been played to the caller.
func (b *Bridge) WriteMark(name string) error {
	sid, err := b.sid()
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.seq++
	msg, err := marshalMark(sid, b.seq, name)
	if err != nil {
		return err
	}
	return b.write(msg)
}

// Clear asks the carrier to drop any audio it has buffered but not yet
// played.
func (b *Bridge) Clear() error {
	sid, err := b.sid()
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	msg, err := marshalClear(sid)
	if err != nil {
		return err
	}
	return b.write(msg)
}

// write sends one frame under the write mutex.
func (b *Bridge) write(msg []byte) error {
	b.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	return b.conn.WriteMessage(websocket.TextMessage, msg)
}

// StreamSID returns the stream identity, empty before the start event.
func (b *Bridge) StreamSID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streamSID
}

// Sequence returns the number of envelopes written so far.
func (b *Bridge) Sequence() uint64 {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.seq
}

// Close shuts the connection down. Safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.conn.Close()
}

func (b *Bridge) sid() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", ErrBridgeClosed
	}
	if b.streamSID == "" {
		return "", ErrNoStream
	}
	return b.streamSID, nil
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
