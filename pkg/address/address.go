// Package address validates mailing addresses against an external
// lookup service. Verification is best effort: when the service is
// down or rejects the address, the call proceeds with the address kept
// unverified.
package address

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

	"github.com/carelane/voicedesk/internal/httpc"
	"github.com/carelane/voicedesk/pkg/dialog"
)

// DefaultTimeout bounds one verification round trip.
const DefaultTimeout = 3 * time.Second

// ErrNoEndpoint indicates the lookup endpoint is not configured.
var ErrNoEndpoint = errors.New("address: endpoint is required")

// Config holds settings for the verification client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Verifier validates addresses against an HTTP lookup service.
// It implements dialog.AddressVerifier.
type Verifier struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a verification client.
func New(cfg Config) (*Verifier, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Verifier{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "address"),
	}, nil
}

type lookupRequest struct {
	Street  string `json:"street"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

type lookupResponse struct {
	Deliverable bool   `json:"deliverable"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
	Message     string `json:"message,omitempty"`
}

// Verify checks the address against the lookup service. On success the
// returned address carries the service's normalized form; on any
// failure the input comes back unchanged, marked unverified.
func (v *Verifier) Verify(ctx context.Context, addr dialog.Address) (dialog.Address, error) {
	body, err := json.Marshal(lookupRequest{
		Street:  addr.Street,
		City:    addr.City,
		State:   addr.State,
		ZipCode: addr.ZipCode,
	})
	if err != nil {
		return addr, fmt.Errorf("address: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return addr, fmt.Errorf("address: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.config.APIKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		addr.ValidationMessage = "lookup unavailable"
		return addr, fmt.Errorf("address: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		addr.ValidationMessage = "lookup unavailable"
		return addr, fmt.Errorf("address: lookup returned status %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		addr.ValidationMessage = "lookup unavailable"
		return addr, fmt.Errorf("address: decode response: %w", err)
	}

	if !out.Deliverable {
		addr.Validated = false
		addr.ValidationMessage = out.Message
		if addr.ValidationMessage == "" {
			addr.ValidationMessage = "address not deliverable"
		}
		return addr, nil
	}

	return dialog.Address{
		Street:    pick(out.Street, addr.Street),
		City:      pick(out.City, addr.City),
		State:     pick(out.State, addr.State),
		ZipCode:   pick(out.ZipCode, addr.ZipCode),
		Validated: true,
	}, nil
}

func pick(normalized, original string) string {
	if normalized != "" {
		return normalized
	}
	return original
}

// Noop is a verifier that accepts every address unverified, for
// deployments without a lookup service.
type Noop struct{}

// Verify returns the address unchanged.
func (Noop) Verify(ctx context.Context, addr dialog.Address) (dialog.Address, error) {
	return addr, nil
}

var (
	_ dialog.AddressVerifier = (*Verifier)(nil)
	_ dialog.AddressVerifier = Noop{}
)
