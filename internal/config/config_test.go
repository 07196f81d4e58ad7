package config

import (
	"testing"
	"time"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("FromEnv failed: %v", err)
		}

		if cfg.SampleRate != DefaultSampleRate {
			t.Errorf("expected sample rate %d, got %d", DefaultSampleRate, cfg.SampleRate)
		}
		if cfg.Encoding != DefaultEncoding {
			t.Errorf("expected encoding %q, got %q", DefaultEncoding, cfg.Encoding)
		}
		if cfg.IdleTimeout != DefaultIdleTimeout {
			t.Errorf("expected idle timeout %s, got %s", DefaultIdleTimeout, cfg.IdleTimeout)
		}
		if cfg.Production() {
			t.Error("default env should not be production")
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("MEDIA_SAMPLE_RATE", "16000")
		t.Setenv("SESSION_IDLE_TIMEOUT", "2m")

		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("FromEnv failed: %v", err)
		}

		if !cfg.Production() {
			t.Error("expected production environment")
		}
		if cfg.SampleRate != 16000 {
			t.Errorf("expected sample rate 16000, got %d", cfg.SampleRate)
		}
		if cfg.IdleTimeout != 2*time.Minute {
			t.Errorf("expected idle timeout 2m, got %s", cfg.IdleTimeout)
		}
	})

	t.Run("malformed numeric falls back", func(t *testing.T) {
		t.Setenv("RECOGNITION_ENDPOINTING_MS", "not-a-number")

		cfg, err := FromEnv()
		if err != nil {
			t.Fatalf("FromEnv failed: %v", err)
		}
		if cfg.EndpointingMs != DefaultEndpointingMs {
			t.Errorf("expected fallback %d, got %d", DefaultEndpointingMs, cfg.EndpointingMs)
		}
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative endpointing", func(c *Config) { c.EndpointingMs = -1 }},
		{"zero idle timeout", func(c *Config) { c.IdleTimeout = 0 }},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }},
		{"zero TTL", func(c *Config) { c.StateTTL = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := FromEnv()
			if err != nil {
				t.Fatalf("FromEnv failed: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
