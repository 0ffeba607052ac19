package llm

import (
	"context"
	"time"

	"research-assistant-be/internal/pkg/logger"

	"github.com/cenkalti/backoff/v5"
)

type ClientConfig struct {
	MaxRetries    int
	Timeout       time.Duration // per attempt
	RetryBackoff  time.Duration // initial backoff, 0 retries immediately
	Temperature   float64
	ContextWindow int
	MaxTokens     int
}

// Client wraps a provider with bounded retries and a per-attempt timeout.
type Client struct {
	provider   LLMProvider
	cfg        ClientConfig
	logger     logger.ILogger
	transcript logger.ILogger
}

var _ Generator = (*Client)(nil)

func NewClient(provider LLMProvider, cfg ClientConfig, log logger.ILogger, transcript logger.ILogger) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if transcript == nil {
		transcript = logger.NewNopLogger()
	}
	return &Client{
		provider:   provider,
		cfg:        cfg,
		logger:     log,
		transcript: transcript,
	}
}

func (c *Client) newBackOff() backoff.BackOff {
	if c.cfg.RetryBackoff <= 0 {
		return backoff.NewConstantBackOff(0)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBackoff
	b.MaxInterval = 10 * c.cfg.RetryBackoff
	return b
}

// Generate returns the completion for prompt, or "" once every attempt has
// failed. It never returns an error.
func (c *Client) Generate(ctx context.Context, prompt string, stops ...string) string {
	opts := []Option{
		WithTemperature(c.cfg.Temperature),
		WithContextWindow(c.cfg.ContextWindow),
		WithMaxTokens(c.cfg.MaxTokens),
		WithStop(stops...),
	}

	attempt := 0
	operation := func() (string, error) {
		attempt++
		attemptCtx := ctx
		if c.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()
		}
		return c.provider.Generate(attemptCtx, prompt, opts...)
	}

	start := time.Now()
	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries)),
		backoff.WithMaxElapsedTime(c.maxElapsed()),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("LLM", "Generation attempt failed", map[string]interface{}{
				"attempt":  attempt,
				"of":       c.cfg.MaxRetries,
				"retry_in": next.String(),
				"error":    err.Error(),
			})
		}),
	)
	if err != nil {
		c.logger.Error("LLM", "Generation failed after all attempts", map[string]interface{}{
			"attempts": attempt,
			"error":    err.Error(),
		})
		return ""
	}

	c.transcript.Debug("LLM", "Generation", map[string]interface{}{
		"prompt":      prompt,
		"response":    text,
		"stops":       stops,
		"attempts":    attempt,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return text
}

// maxElapsed bounds the whole retry loop generously so that MaxRetries is
// the effective limit.
func (c *Client) maxElapsed() time.Duration {
	perAttempt := c.cfg.Timeout + 10*c.cfg.RetryBackoff
	if perAttempt <= 0 {
		perAttempt = time.Minute
	}
	return time.Duration(c.cfg.MaxRetries+1) * perAttempt
}
