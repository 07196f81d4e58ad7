package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
)

// DeepgramURL is the default live recognition endpoint.
const DeepgramURL = "wss://api.deepgram.com/v1/listen"

// Deepgram is a live recognition session against the Deepgram streaming
// API. One instance serves one call.
type Deepgram struct {
	cfg *Config

	// Callbacks. Assign before Start; they are invoked from the read
	// goroutine, one at a time.
	OnTranscript   func(Result)
	OnUtteranceEnd func()
	OnReconnect    func(attempt int)
	OnError        func(error)

	mu      sync.Mutex
	ws      *websocket.Conn
	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc

	reconnects int
}

// NewDeepgram creates a recognizer with the given options.
func NewDeepgram(opts ...Option) (*Deepgram, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DeepgramURL
	}
	return &Deepgram{cfg: cfg}, nil
}

// Start opens the websocket session and launches the read and heartbeat
// loops.
func (d *Deepgram) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.started {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	conn, err := d.dial(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.ws = conn
	d.started = true
	d.mu.Unlock()

	go d.readLoop(conn)
	go d.heartbeat()

	return nil
}

func (d *Deepgram) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(d.cfg.BaseURL)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	q := u.Query()
	q.Set("model", d.cfg.Model)
	q.Set("language", d.cfg.Language)
	q.Set("encoding", d.cfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(d.cfg.SampleRate))
	q.Set("channels", strconv.Itoa(d.cfg.Channels))
	q.Set("endpointing", strconv.Itoa(d.cfg.EndpointingMs))
	q.Set("interim_results", strconv.FormatBool(d.cfg.InterimResults))
	q.Set("punctuate", strconv.FormatBool(d.cfg.Punctuate))
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Token "+d.cfg.APIKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return nil, &ConnectionError{Op: "dial", Err: err, Retryable: true}
	}
	return conn, nil
}

// SendAudio feeds one chunk of raw audio to the session.
func (d *Deepgram) SendAudio(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.ws == nil {
		return ErrNotStarted
	}

	d.ws.SetWriteDeadline(time.Now().Add(d.cfg.WriteTimeout))
	if err := d.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return &ConnectionError{Op: "write", Err: err, Retryable: true}
	}
	return nil
}

// Finish asks the recognizer to flush buffered audio and emit any
// remaining transcript.
func (d *Deepgram) Finish() error {
	return d.sendControl("Finalize")
}

// Close tears the session down. Safe to call more than once.
func (d *Deepgram) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	ws := d.ws
	d.ws = nil
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		ws.SetWriteDeadline(time.Now().Add(time.Second))
		ws.WriteJSON(map[string]string{"type": "CloseStream"})
		return ws.Close()
	}
	return nil
}

func (d *Deepgram) sendControl(msgType string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.ws == nil {
		return ErrNotStarted
	}

	d.ws.SetWriteDeadline(time.Now().Add(d.cfg.WriteTimeout))
	if err := d.ws.WriteJSON(map[string]string{"type": msgType}); err != nil {
		return &ConnectionError{Op: "write", Err: err, Retryable: true}
	}
	return nil
}

// readLoop consumes server messages until the connection dies or the
// session is closed. A dropped connection triggers a reconnect; the
// caller never sees the gap.
func (d *Deepgram) readLoop(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().Add(d.cfg.StaleAfter))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if d.isClosed() {
				return
			}
			d.cfg.Logger.Warn("recognition session dropped", "error", err)
			d.recover()
			return
		}

		d.handleMessage(message)
	}
}

// deepgramEvent is the wire shape of a live recognition message.
type deepgramEvent struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
}

func (d *Deepgram) handleMessage(message []byte) {
	var ev deepgramEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return
	}

	switch ev.Type {
	case "Results":
		if len(ev.Channel.Alternatives) == 0 {
			return
		}
		alt := ev.Channel.Alternatives[0]
		if alt.Transcript == "" && !ev.SpeechFinal {
			return
		}
		if d.OnTranscript != nil {
			d.OnTranscript(Result{
				Text:        alt.Transcript,
				Confidence:  alt.Confidence,
				IsFinal:     ev.IsFinal,
				SpeechFinal: ev.SpeechFinal,
				Start:       ev.Start,
				Duration:    ev.Duration,
			})
		}

	case "UtteranceEnd":
		if d.OnUtteranceEnd != nil {
			d.OnUtteranceEnd()
		}

	case "Metadata":
		// Session metadata, nothing to do.

	case "Error":
		if d.OnError != nil {
			d.OnError(fmt.Errorf("stt: server error: %s", ev.Description))
		}
	}
}

// recover reopens the session with bounded exponential backoff and
// resumes the read loop on the fresh connection.
func (d *Deepgram) recover() {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil {
		return
	}

	attempt := 0
	backoff := retry.WithMaxRetries(d.cfg.MaxReconnects, retry.NewExponential(d.cfg.ReconnectDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if d.isClosed() {
			return nil
		}
		attempt++
		conn, err := d.dial(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}

		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			conn.Close()
			return nil
		}
		d.ws = conn
		d.reconnects++
		d.mu.Unlock()

		d.cfg.Logger.Info("recognition session reopened", "attempt", attempt)
		if d.OnReconnect != nil {
			d.OnReconnect(attempt)
		}
		go d.readLoop(conn)
		return nil
	})

	if err != nil && !d.isClosed() {
		if d.OnError != nil {
			d.OnError(&ConnectionError{Op: "reconnect", Err: err})
		}
	}
}

// heartbeat keeps the session alive during caller silence. The provider
// closes idle sessions; a small control frame on an interval prevents
// that.
func (d *Deepgram) heartbeat() {
	ticker := time.NewTicker(d.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if d.isClosed() {
				return
			}
			if err := d.sendControl("KeepAlive"); err != nil {
				// The read loop notices the dead connection and
				// reconnects; nothing to do here.
				continue
			}
		}
	}
}

func (d *Deepgram) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Reconnects returns how many times the session has been reopened.
func (d *Deepgram) Reconnects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reconnects
}

// Verify Deepgram implements Recognizer at compile time.
var _ Recognizer = (*Deepgram)(nil)
