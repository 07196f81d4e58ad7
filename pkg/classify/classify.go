// Package classify resolves ambiguous spoken choices ("the earlier
// one", "whichever is fine") to an option index using an external
// classification service. Callers treat any error as a signal to fall
// back to a deterministic default, so this package fails fast rather
// than retrying.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/carelane/voicedesk/internal/httpc"
	"github.com/carelane/voicedesk/pkg/dialog"
)

const (
	// DefaultTimeout bounds one classification round trip. The caller
	// is mid-conversation; a slow answer is worse than no answer.
	DefaultTimeout = 2 * time.Second

	// DefaultMaxFailures opens the breaker after this many consecutive
	// failures.
	DefaultMaxFailures = 3

	// DefaultCooldown is how long the breaker stays open.
	DefaultCooldown = 30 * time.Second
)

// Config holds settings for the classification client.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxFailures int
	Cooldown    time.Duration
	Logger      *slog.Logger
}

// Classifier calls an external service to pick one option for an
// ambiguous utterance. It implements dialog.Chooser.
type Classifier struct {
	config Config
	client *http.Client
	logger *slog.Logger

	// Consecutive-failure breaker. While open, calls fail immediately
	// so the conversation never stalls on a dead service.
	mu       sync.Mutex
	failures int
	openedAt time.Time
}

// New creates a classification client.
func New(cfg Config) (*Classifier, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Classifier{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "classify"),
	}, nil
}

type choiceRequest struct {
	Input   string   `json:"input"`
	Options []string `json:"options"`
	Model   string   `json:"model,omitempty"`
}

type choiceResponse struct {
	Choice int `json:"choice"`
}

// ClassifyChoice asks the service which option the utterance refers to.
// The returned index is zero-based and always within range.
func (c *Classifier) ClassifyChoice(ctx context.Context, input string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("classify: no options")
	}
	if err := c.checkBreaker(); err != nil {
		return 0, err
	}

	body, err := json.Marshal(choiceRequest{
		Input:   input,
		Options: options,
		Model:   c.config.Model,
	})
	if err != nil {
		return 0, fmt.Errorf("classify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("classify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return 0, fmt.Errorf("classify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &APIError{StatusCode: resp.StatusCode, Message: string(data)}
	}

	var out choiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.recordFailure()
		return 0, fmt.Errorf("classify: decode response: %w", err)
	}
	if out.Choice < 0 || out.Choice >= len(options) {
		c.recordFailure()
		return 0, fmt.Errorf("classify: choice %d out of range for %d options", out.Choice, len(options))
	}

	c.recordSuccess()
	return out.Choice, nil
}

func (c *Classifier) checkBreaker() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures < c.config.MaxFailures {
		return nil
	}
	if time.Since(c.openedAt) > c.config.Cooldown {
		// Half-open: let one request through.
		c.failures = c.config.MaxFailures - 1
		return nil
	}
	return ErrUnavailable
}

func (c *Classifier) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures == c.config.MaxFailures {
		c.openedAt = time.Now()
		c.logger.Warn("classification service unavailable, breaker open",
			"failures", c.failures,
			"cooldown", c.config.Cooldown,
		)
	}
}

func (c *Classifier) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
}

var _ dialog.Chooser = (*Classifier)(nil)
