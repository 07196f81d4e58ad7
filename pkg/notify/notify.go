// Package notify delivers the appointment confirmation once a call
// completes. Delivery goes to a webhook (mail relay, SMS gateway, or
// practice inbox integration); transient failures are retried with
// backoff, client errors are not.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/carelane/voicedesk/internal/httpc"
	"github.com/carelane/voicedesk/pkg/dialog"
)

const (
	// DefaultTimeout bounds one delivery attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries bounds retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial backoff between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// ErrNoEndpoint indicates the delivery endpoint is not configured.
var ErrNoEndpoint = errors.New("notify: endpoint is required")

// Config holds settings for confirmation delivery.
type Config struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Webhook posts appointment confirmations to a configured endpoint.
type Webhook struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a webhook notifier.
func New(cfg Config) (*Webhook, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Webhook{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "notify"),
	}, nil
}

// Confirmation is the delivery payload.
type Confirmation struct {
	CallID        string    `json:"call_id"`
	Provider      string    `json:"provider"`
	AppointmentAt time.Time `json:"appointment_datetime"`
	PayerName     string    `json:"payer_name,omitempty"`
	MemberID      string    `json:"member_id,omitempty"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	Email         string    `json:"email,omitempty"`
	Complaint     string    `json:"chief_complaint,omitempty"`
}

// confirmationFrom flattens the final state into the delivery payload.
func confirmationFrom(st *dialog.State) Confirmation {
	c := Confirmation{
		CallID:        st.CallID,
		Provider:      st.Patient.Provider,
		AppointmentAt: st.Patient.AppointmentAt,
		PhoneNumber:   st.Patient.PhoneNumber,
		Email:         st.Patient.Email,
		Complaint:     st.Patient.ChiefComplaint,
	}
	if ins := st.Patient.Insurance; ins != nil {
		c.PayerName = ins.PayerName
		c.MemberID = ins.MemberID
	}
	return c
}

// Notify posts the confirmation, retrying transient failures.
func (w *Webhook) Notify(ctx context.Context, st *dialog.State) error {
	if st == nil {
		return fmt.Errorf("notify: nil state")
	}
	body, err := json.Marshal(confirmationFrom(st))
	if err != nil {
		return fmt.Errorf("notify: encode confirmation: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(w.config.MaxRetries), retry.NewExponential(w.config.RetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return w.deliver(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("notify: delivery failed for call %s: %w", st.CallID, err)
	}

	w.logger.Info("confirmation delivered", "call_id", st.CallID)
	return nil
}

func (w *Webhook) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("status %d", resp.StatusCode))
	default:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
}
