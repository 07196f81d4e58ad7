package tts

import (
	"context"
	"log/slog"
)

// Chain tries providers in order until one succeeds. It lets a call
// survive a primary synthesis outage by failing over to a backup voice.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a provider chain. The first provider is primary.
func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
	}
}

// Synthesize tries each provider until one returns audio.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var lastErr error
	for i, p := range c.providers {
		result, err := p.Synthesize(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err
		c.logger.Warn("synthesis provider failed, trying next",
			"provider", i,
			"error", err,
		)
	}
	if lastErr == nil {
		lastErr = ErrAllProvidersFailed
	}
	return nil, lastErr
}

// Stream tries each provider until one opens a stream.
func (c *Chain) Stream(ctx context.Context, text string) (AudioStream, error) {
	var lastErr error
	for i, p := range c.providers {
		stream, err := p.Stream(ctx, text)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		c.logger.Warn("synthesis provider failed, trying next",
			"provider", i,
			"error", err,
		)
	}
	if lastErr == nil {
		lastErr = ErrAllProvidersFailed
	}
	return nil, lastErr
}

// Health reports healthy if any provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var lastErr error
	for _, p := range c.providers {
		if err := p.Health(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = ErrAllProvidersFailed
	}
	return lastErr
}

// Close closes every provider, returning the first error.
func (c *Chain) Close() error {
	var firstErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Verify Chain implements Provider at compile time.
var _ Provider = (*Chain)(nil)
