// Package llm implements the generative model collaborator: an
// OpenAI-compatible HTTP backend and a Gemini backend, both satisfying
// types.LLMClient. Transport failures are retried with bounded exponential
// backoff; client-class (4xx) failures fail the call immediately.
package llm

import (
	"context"
	"fmt"
	"time"

	"protoforge/internal/types"
)

// Config selects and configures a model backend.
type Config struct {
	Provider         string // "openai" (any compatible endpoint) or "gemini"
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration
}

// Defaults applied when fields are zero.
const (
	defaultTimeout     = 120 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = time.Second
	defaultMaxTokens   = 4096
)

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryBackoffBase == 0 {
		c.RetryBackoffBase = defaultBackoffBase
	}
}

// NewClient builds a model client for the configured provider.
func NewClient(cfg Config) (types.LLMClient, error) {
	cfg.applyDefaults()
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// backoffSleep waits for the attempt's backoff delay, honoring ctx
// cancellation. Attempt 1 waits base, attempt 2 waits 2*base, and so on.
func backoffSleep(ctx context.Context, base time.Duration, attempt int) error {
	delay := base * time.Duration(1<<uint(attempt-1))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
