// Package config loads voicedesk configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults applied when the corresponding env var is unset.
const (
	DefaultListenAddr     = ":8080"
	DefaultMetricsAddr    = ":9090"
	DefaultSampleRate     = 8000
	DefaultEncoding       = "mulaw"
	DefaultEndpointingMs  = 300
	DefaultIdleTimeout    = 90 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultStateTTL       = 30 * time.Minute
	DefaultClassifyBudget = 3 * time.Second
	DefaultDrainTimeout   = 30 * time.Second
)

// Config holds the full service configuration.
type Config struct {
	// Environment: "development", "staging", or "production".
	AppEnv   string
	LogLevel string

	// HTTP listener for webhooks, media websocket and metrics.
	ListenAddr string

	// PublicHost is the externally reachable host for the media
	// websocket URL handed to the carrier. Empty falls back to the
	// webhook request's Host header.
	PublicHost string

	// MetricsAddr is the operational listener for Prometheus metrics.
	MetricsAddr string

	// Recognition service.
	RecognitionKey      string
	RecognitionModel    string
	RecognitionEndpoint string
	EndpointingMs       int

	// Synthesis service.
	SynthesisKey      string
	SynthesisVoiceID  string
	SynthesisEndpoint string

	// Classification service. Optional; handlers fall back to
	// deterministic defaults when unset.
	ClassifyEndpoint string
	ClassifyKey      string
	ClassifyBudget   time.Duration

	// Telephony media format agreed at session start.
	SampleRate int
	Encoding   string

	// Session lifecycle.
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	DrainTimeout time.Duration

	// State store. Empty RedisURL selects the in-memory store.
	RedisURL string
	StateTTL time.Duration

	// Notification collaborator. Optional.
	NotifyEndpoint string
	NotifyKey      string
	TestEmail      string

	// Address verification collaborator. Optional; falls back to
	// accepting addresses unverified.
	AddressEndpoint string
	AddressKey      string
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		ListenAddr:          getEnv("LISTEN_ADDR", DefaultListenAddr),
		PublicHost:          os.Getenv("PUBLIC_HOST"),
		MetricsAddr:         getEnv("METRICS_ADDR", DefaultMetricsAddr),
		RecognitionKey:      os.Getenv("RECOGNITION_API_KEY"),
		RecognitionModel:    getEnv("RECOGNITION_MODEL", "nova-2"),
		RecognitionEndpoint: getEnv("RECOGNITION_ENDPOINT", "wss://api.deepgram.com/v1/listen"),
		EndpointingMs:       getEnvInt("RECOGNITION_ENDPOINTING_MS", DefaultEndpointingMs),
		SynthesisKey:        os.Getenv("SYNTHESIS_API_KEY"),
		SynthesisVoiceID:    os.Getenv("SYNTHESIS_VOICE_ID"),
		SynthesisEndpoint:   getEnv("SYNTHESIS_ENDPOINT", ""),
		ClassifyEndpoint:    os.Getenv("CLASSIFY_ENDPOINT"),
		ClassifyKey:         os.Getenv("CLASSIFY_API_KEY"),
		ClassifyBudget:      getEnvDuration("CLASSIFY_BUDGET", DefaultClassifyBudget),
		SampleRate:          getEnvInt("MEDIA_SAMPLE_RATE", DefaultSampleRate),
		Encoding:            getEnv("MEDIA_ENCODING", DefaultEncoding),
		IdleTimeout:         getEnvDuration("SESSION_IDLE_TIMEOUT", DefaultIdleTimeout),
		WriteTimeout:        getEnvDuration("TRANSPORT_WRITE_TIMEOUT", DefaultWriteTimeout),
		DrainTimeout:        getEnvDuration("SHUTDOWN_DRAIN_TIMEOUT", DefaultDrainTimeout),
		RedisURL:            os.Getenv("REDIS_URL"),
		StateTTL:            getEnvDuration("STATE_TTL", DefaultStateTTL),
		NotifyEndpoint:      os.Getenv("NOTIFY_ENDPOINT"),
		NotifyKey:           os.Getenv("NOTIFY_API_KEY"),
		TestEmail:           getEnv("TEST_NOTIFICATION_EMAIL", "intake-test@example.com"),
		AddressEndpoint:     os.Getenv("ADDRESS_ENDPOINT"),
		AddressKey:          os.Getenv("ADDRESS_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.EndpointingMs <= 0 {
		return fmt.Errorf("config: endpointing must be positive, got %dms", c.EndpointingMs)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("config: idle timeout must be positive, got %s", c.IdleTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("config: write timeout must be positive, got %s", c.WriteTimeout)
	}
	if c.StateTTL <= 0 {
		return fmt.Errorf("config: state TTL must be positive, got %s", c.StateTTL)
	}
	return nil
}

// Production returns true when running in the production environment.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
