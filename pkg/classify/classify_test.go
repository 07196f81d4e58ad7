package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("New() error = %v, want ErrNoEndpoint", err)
	}
}

func TestClassifyChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req choiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Input != "the later one" || len(req.Options) != 2 {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(choiceResponse{Choice: 1})
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got, err := c.ClassifyChoice(context.Background(), "the later one", []string{"10 AM", "2 PM"})
	if err != nil {
		t.Fatalf("ClassifyChoice() error: %v", err)
	}
	if got != 1 {
		t.Errorf("choice = %d, want 1", got)
	}
}

func TestClassifyChoiceOutOfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(choiceResponse{Choice: 5})
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := c.ClassifyChoice(context.Background(), "hm", []string{"a", "b"}); err == nil {
		t.Error("out-of-range choice should fail")
	}
}

func TestClassifyChoiceAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = c.ClassifyChoice(context.Background(), "hm", []string{"a", "b"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if !apiErr.IsServerError() {
		t.Error("503 should be a server error")
	}
}

func TestBreakerOpensAndCoolsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := New(Config{
		Endpoint:    server.URL,
		MaxFailures: 2,
		Cooldown:    20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx := context.Background()
	opts := []string{"a", "b"}

	for i := 0; i < 2; i++ {
		if _, err := c.ClassifyChoice(ctx, "hm", opts); err == nil {
			t.Fatal("request should fail")
		}
	}

	// Breaker is open: no request reaches the server.
	if _, err := c.ClassifyChoice(ctx, "hm", opts); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error with open breaker = %v, want ErrUnavailable", err)
	}

	// After the cooldown one probe goes through again.
	time.Sleep(30 * time.Millisecond)
	_, err = c.ClassifyChoice(ctx, "hm", opts)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("error after cooldown = %v, want *APIError from a live probe", err)
	}
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(choiceResponse{Choice: 0})
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL, MaxFailures: 3})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx := context.Background()
	opts := []string{"a", "b"}

	c.ClassifyChoice(ctx, "hm", opts)
	c.ClassifyChoice(ctx, "hm", opts)

	fail = false
	if _, err := c.ClassifyChoice(ctx, "hm", opts); err != nil {
		t.Fatalf("ClassifyChoice() error: %v", err)
	}

	c.mu.Lock()
	failures := c.failures
	c.mu.Unlock()
	if failures != 0 {
		t.Errorf("failures after success = %d, want 0", failures)
	}
}

func TestMockChooser(t *testing.T) {
	m := &Mock{}
	got, err := m.ClassifyChoice(context.Background(), "first", []string{"a", "b"})
	if err != nil || got != 0 {
		t.Errorf("default mock = (%d, %v), want (0, nil)", got, err)
	}
	if len(m.Calls()) != 1 {
		t.Errorf("calls = %d, want 1", len(m.Calls()))
	}
}
