package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		if cfg.Encoding != "mulaw" || cfg.SampleRate != 8000 {
			t.Errorf("default audio = %s/%d, want mulaw/8000", cfg.Encoding, cfg.SampleRate)
		}
		if cfg.EndpointingMs != 300 {
			t.Errorf("endpointing = %d", cfg.EndpointingMs)
		}
		if !cfg.InterimResults {
			t.Error("interim results should default on")
		}
	})

	t.Run("options", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Apply(
			WithAPIKey("key"),
			WithModel("nova-3"),
			WithEncoding("linear16", 16000),
			WithEndpointing(500),
			WithReconnect(5, time.Second),
		)
		if cfg.APIKey != "key" || cfg.Model != "nova-3" {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.Encoding != "linear16" || cfg.SampleRate != 16000 {
			t.Errorf("audio = %s/%d", cfg.Encoding, cfg.SampleRate)
		}
		if cfg.MaxReconnects != 5 {
			t.Errorf("reconnects = %d", cfg.MaxReconnects)
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, err := NewDeepgram(); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("err = %v, want ErrNoAPIKey", err)
		}
	})
}

func TestHandleMessage(t *testing.T) {
	newRecognizer := func() *Deepgram {
		d, err := NewDeepgram(WithAPIKey("test"))
		if err != nil {
			t.Fatalf("NewDeepgram: %v", err)
		}
		return d
	}

	t.Run("transcript", func(t *testing.T) {
		d := newRecognizer()
		var got Result
		d.OnTranscript = func(r Result) { got = r }

		d.handleMessage([]byte(`{
			"type": "Results",
			"channel": {"alternatives": [{"transcript": "I have Blue Cross", "confidence": 0.97}]},
			"is_final": true,
			"speech_final": true,
			"start": 1.2,
			"duration": 1.8
		}`))

		if got.Text != "I have Blue Cross" {
			t.Errorf("text = %q", got.Text)
		}
		if !got.IsFinal || !got.SpeechFinal {
			t.Errorf("finality = %v/%v", got.IsFinal, got.SpeechFinal)
		}
		if got.Confidence != 0.97 {
			t.Errorf("confidence = %v", got.Confidence)
		}
	})

	t.Run("empty interim dropped", func(t *testing.T) {
		d := newRecognizer()
		called := false
		d.OnTranscript = func(Result) { called = true }

		d.handleMessage([]byte(`{
			"type": "Results",
			"channel": {"alternatives": [{"transcript": ""}]},
			"is_final": false,
			"speech_final": false
		}`))

		if called {
			t.Error("empty interim transcript should be dropped")
		}
	})

	t.Run("empty speech-final passes", func(t *testing.T) {
		d := newRecognizer()
		var got Result
		called := false
		d.OnTranscript = func(r Result) { called = true; got = r }

		d.handleMessage([]byte(`{
			"type": "Results",
			"channel": {"alternatives": [{"transcript": ""}]},
			"is_final": true,
			"speech_final": true
		}`))

		if !called || !got.SpeechFinal {
			t.Error("speech-final marker must reach the caller even without text")
		}
	})

	t.Run("utterance end", func(t *testing.T) {
		d := newRecognizer()
		called := false
		d.OnUtteranceEnd = func() { called = true }

		d.handleMessage([]byte(`{"type": "UtteranceEnd"}`))
		if !called {
			t.Error("OnUtteranceEnd not invoked")
		}
	})

	t.Run("server error", func(t *testing.T) {
		d := newRecognizer()
		var got error
		d.OnError = func(err error) { got = err }

		d.handleMessage([]byte(`{"type": "Error", "description": "bad encoding"}`))
		if got == nil || !strings.Contains(got.Error(), "bad encoding") {
			t.Errorf("err = %v", got)
		}
	})

	t.Run("garbage ignored", func(t *testing.T) {
		d := newRecognizer()
		d.OnTranscript = func(Result) { t.Error("callback fired on garbage") }
		d.handleMessage([]byte(`not json`))
	})
}

// echoServer upgrades connections and replies to any binary frame with a
// canned transcript event.
func echoServer(t *testing.T, transcript string, conns *atomic.Int32) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Token ") {
			t.Errorf("missing auth header, got %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if conns != nil {
			conns.Add(1)
		}

		for {
			kind, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			msg, _ := json.Marshal(map[string]any{
				"type": "Results",
				"channel": map[string]any{
					"alternatives": []map[string]any{
						{"transcript": transcript, "confidence": 0.9},
					},
				},
				"is_final":     true,
				"speech_final": true,
			})
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDeepgramSession(t *testing.T) {
	srv := echoServer(t, "hello there", nil)
	defer srv.Close()

	d, err := NewDeepgram(
		WithAPIKey("test"),
		WithBaseURL(wsURL(srv)),
	)
	if err != nil {
		t.Fatalf("NewDeepgram: %v", err)
	}

	results := make(chan Result, 1)
	d.OnTranscript = func(r Result) {
		select {
		case results <- r:
		default:
		}
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Close()

	if err := d.SendAudio([]byte{0x7f, 0x7f, 0x7f}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	select {
	case r := <-results:
		if r.Text != "hello there" || !r.SpeechFinal {
			t.Errorf("result = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no transcript received")
	}
}

func TestDeepgramLifecycleErrors(t *testing.T) {
	d, err := NewDeepgram(WithAPIKey("test"))
	if err != nil {
		t.Fatalf("NewDeepgram: %v", err)
	}

	if err := d.SendAudio([]byte{1}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("before start: %v, want ErrNotStarted", err)
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := d.SendAudio([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("after close: %v, want ErrClosed", err)
	}
	if err := d.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("start after close: %v, want ErrClosed", err)
	}
}

func TestDeepgramReconnect(t *testing.T) {
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		if n == 1 {
			// First session dies immediately.
			conn.Close()
			return
		}
		// The reopened session answers each audio chunk with one final.
		defer conn.Close()
		for {
			kind, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			msg, _ := json.Marshal(map[string]any{
				"type": "Results",
				"channel": map[string]any{
					"alternatives": []map[string]any{
						{"transcript": "after recovery", "confidence": 0.9},
					},
				},
				"is_final":     true,
				"speech_final": true,
			})
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	d, err := NewDeepgram(
		WithAPIKey("test"),
		WithBaseURL(wsURL(srv)),
		WithReconnect(3, 10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewDeepgram: %v", err)
	}

	reconnected := make(chan int, 1)
	d.OnReconnect = func(attempt int) {
		select {
		case reconnected <- attempt:
		default:
		}
	}
	finals := make(chan Result, 4)
	d.OnTranscript = func(r Result) {
		if r.SpeechFinal {
			finals <- r
		}
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Close()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("session was not reopened")
	}

	if got := conns.Load(); got < 2 {
		t.Errorf("connections = %d, want at least 2", got)
	}
	if d.Reconnects() == 0 {
		t.Error("reconnect counter not incremented")
	}

	// Speech after recovery yields exactly one final: the gap is
	// transparent, nothing is duplicated and nothing is lost.
	if err := d.SendAudio([]byte{0x7f, 0x7f}); err != nil {
		t.Fatalf("SendAudio after reconnect: %v", err)
	}

	select {
	case r := <-finals:
		if r.Text != "after recovery" {
			t.Errorf("transcript = %q, want %q", r.Text, "after recovery")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no transcript after reconnect")
	}
	select {
	case r := <-finals:
		t.Errorf("duplicate transcript after reconnect: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMockRecognizer(t *testing.T) {
	m := NewMock()

	if err := m.SendAudio([]byte{1}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("err = %v, want ErrNotStarted", err)
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.SendAudio([]byte{1, 2, 3}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	if m.AudioBytes() != 3 {
		t.Errorf("audio bytes = %d", m.AudioBytes())
	}

	var got Result
	m.OnTranscript = func(r Result) { got = r }
	m.EmitFinal("test utterance")
	if got.Text != "test utterance" || !got.SpeechFinal {
		t.Errorf("result = %+v", got)
	}

	m.Close()
	m.Close()
	if m.Opens() != 1 || m.Closes() != 1 {
		t.Errorf("opens/closes = %d/%d, want 1/1", m.Opens(), m.Closes())
	}
	if err := m.SendAudio([]byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("after close: %v, want ErrClosed", err)
	}
}
