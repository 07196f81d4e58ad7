package stt

import (
	"log/slog"
	"time"
)

// Config holds recognizer configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Recognition model
	Model    string
	Language string

	// Input audio
	Encoding   string
	SampleRate int
	Channels   int

	// EndpointingMs is the silence window, in milliseconds, after which
	// the recognizer marks a transcript speech-final.
	EndpointingMs int

	// InterimResults enables unsettled transcripts between finals.
	InterimResults bool

	// Punctuate enables punctuation and capitalization.
	Punctuate bool

	// Session keepalive and staleness
	KeepAliveInterval time.Duration
	StaleAfter        time.Duration
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration

	// Reconnect behavior after a dropped session
	MaxReconnects  uint64
	ReconnectDelay time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring recognizers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel sets the recognition model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithLanguage sets the recognition language.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithEncoding sets the input audio encoding and sample rate.
func WithEncoding(encoding string, sampleRate int) Option {
	return func(c *Config) {
		c.Encoding = encoding
		c.SampleRate = sampleRate
	}
}

// WithEndpointing sets the end-of-speech silence window.
func WithEndpointing(ms int) Option {
	return func(c *Config) {
		c.EndpointingMs = ms
	}
}

// WithInterimResults toggles unsettled transcripts.
func WithInterimResults(enabled bool) Option {
	return func(c *Config) {
		c.InterimResults = enabled
	}
}

// WithKeepAlive sets the heartbeat interval and the idle window after
// which the session is considered stale.
func WithKeepAlive(interval, staleAfter time.Duration) Option {
	return func(c *Config) {
		c.KeepAliveInterval = interval
		c.StaleAfter = staleAfter
	}
}

// WithReconnect configures session recovery after a drop.
func WithReconnect(maxAttempts uint64, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxReconnects = maxAttempts
		c.ReconnectDelay = delay
	}
}

// WithLogger sets the structured logger for the recognizer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration for telephony
// audio.
func DefaultConfig() *Config {
	return &Config{
		Model:             "nova-2",
		Language:          "en-US",
		Encoding:          "mulaw", // telephony 8kHz μ-law
		SampleRate:        8000,
		Channels:          1,
		EndpointingMs:     300,
		InterimResults:    true,
		Punctuate:         true,
		KeepAliveInterval: 5 * time.Second,
		StaleAfter:        30 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		MaxReconnects:     3,
		ReconnectDelay:    250 * time.Millisecond,
		Logger:            slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}
