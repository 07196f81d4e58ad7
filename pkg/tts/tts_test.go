package tts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		if _, err := NewElevenLabs(); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("err = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("missing voice", func(t *testing.T) {
		if _, err := NewElevenLabs(WithAPIKey("key")); !errors.Is(err, ErrNoVoiceID) {
			t.Errorf("err = %v, want ErrNoVoiceID", err)
		}
	})

	t.Run("telephony defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		if cfg.OutputFormat != EncodingULaw {
			t.Errorf("output = %s, want %s", cfg.OutputFormat, EncodingULaw)
		}
		if SampleRateFromEncoding(cfg.OutputFormat) != 8000 {
			t.Errorf("sample rate = %d", SampleRateFromEncoding(cfg.OutputFormat))
		}
	})
}

func TestElevenLabsStream(t *testing.T) {
	const audio = "fake-mulaw-audio-bytes"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/text-to-speech/voice-1/stream") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != string(EncodingULaw) {
			t.Errorf("output_format = %q", got)
		}
		w.Write([]byte(audio))
	}))
	defer srv.Close()

	p, err := NewElevenLabs(
		WithAPIKey("test-key"),
		WithVoice("voice-1"),
		WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer p.Close()

	stream, err := p.Stream(context.Background(), "Hello caller")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var got []byte
	for {
		chunk, err := stream.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if chunk == nil {
			break
		}
		got = append(got, chunk...)
	}
	if string(got) != audio {
		t.Errorf("audio = %q, want %q", got, audio)
	}
	if stream.Format().Encoding != EncodingULaw {
		t.Errorf("format = %+v", stream.Format())
	}
}

func TestElevenLabsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": {"message": "invalid api key", "status": "unauthorized"}}`))
	}))
	defer srv.Close()

	p, err := NewElevenLabs(
		WithAPIKey("bad"),
		WithVoice("voice-1"),
		WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer p.Close()

	_, err = p.Stream(context.Background(), "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if !apiErr.IsUnauthorized() || apiErr.IsRetryable() {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Message != "invalid api key" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

// A retried synthesis request must carry the same payload as the first
// attempt, not an empty body left over from the consumed reader.
func TestElevenLabsRetryResendsBody(t *testing.T) {
	const audio = "retried-audio"

	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		n := len(bodies)
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(audio))
	}))
	defer srv.Close()

	p, err := NewElevenLabs(
		WithAPIKey("test-key"),
		WithVoice("voice-1"),
		WithBaseURL(srv.URL),
		WithRetry(2, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "Hello again")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(result.Audio) != audio {
		t.Errorf("audio = %q, want %q", result.Audio, audio)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("requests = %d, want 2", len(bodies))
	}
	if bodies[1] == "" || bodies[1] != bodies[0] {
		t.Errorf("retry body = %q, want the original payload %q", bodies[1], bodies[0])
	}
	if !strings.Contains(bodies[1], "Hello again") {
		t.Errorf("retry body missing text: %q", bodies[1])
	}
}

func TestChainFailover(t *testing.T) {
	primary := WithError(&APIError{StatusCode: 503, Message: "down", Provider: "primary"})
	backup := NewMock()

	chain := NewChain(nil, primary, backup)
	defer chain.Close()

	result, err := chain.Synthesize(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) == 0 {
		t.Error("no audio from backup provider")
	}
	if backup.CallCount("Synthesize") != 1 {
		t.Errorf("backup calls = %d", backup.CallCount("Synthesize"))
	}
}

func TestChainAllFail(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(nil, WithError(boom), WithError(boom))

	if _, err := chain.Stream(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestSplitUtterance(t *testing.T) {
	t.Run("short text single piece", func(t *testing.T) {
		pieces := SplitUtterance("Thank you for calling.")
		if len(pieces) != 1 {
			t.Fatalf("pieces = %d", len(pieces))
		}
	})

	t.Run("empty", func(t *testing.T) {
		if pieces := SplitUtterance("   "); pieces != nil {
			t.Errorf("pieces = %v", pieces)
		}
	})

	t.Run("long text splits at sentences", func(t *testing.T) {
		sentence := "This sentence is repeated to exceed the utterance cap for synthesis requests."
		text := strings.Repeat(sentence+" ", 8)
		pieces := SplitUtterance(text)
		if len(pieces) < 2 {
			t.Fatalf("expected a split, got %d pieces", len(pieces))
		}
		for i, p := range pieces {
			if len(p) > maxUtteranceLen {
				t.Errorf("piece %d is %d chars", i, len(p))
			}
			if !strings.HasSuffix(p, ".") {
				t.Errorf("piece %d not sentence-aligned: %q", i, p)
			}
		}
	})

	t.Run("abbreviations kept intact", func(t *testing.T) {
		sentences := splitSentences("Your appointment is with Dr. Smith. See you Monday!")
		if len(sentences) != 2 {
			t.Fatalf("sentences = %v", sentences)
		}
		if sentences[0] != "Your appointment is with Dr. Smith." {
			t.Errorf("first = %q", sentences[0])
		}
	})
}

func TestMockStream(t *testing.T) {
	m := NewMock()
	stream, err := m.Stream(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	total := 0
	for {
		chunk, err := stream.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if chunk == nil {
			break
		}
		total += len(chunk)
	}
	if total != len("hello")*480 {
		t.Errorf("bytes = %d", total)
	}

	stream.Close()
	if _, err := stream.Read(); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("read after close: %v", err)
	}
}
