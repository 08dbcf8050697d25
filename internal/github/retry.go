package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/pluginbuild/internal/logging"
	gh "github.com/google/go-github/v57/github"
	"go.uber.org/zap"
)

// RetryConfig configures retry behavior for GitHub API calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries int

	// InitialBackoff is the initial backoff duration.
	// Default: 1 second
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	// Default: 30 seconds
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	// Default: 2
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration for GitHub API calls.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()

	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// retryPolicy decides whether a failed call may be attempted again.
type retryPolicy func(err error, resp *gh.Response) bool

// retryOperation retries a GitHub API operation with exponential backoff,
// waiting for the rate limit reset when GitHub asks it to.
func retryOperation(ctx context.Context, config *RetryConfig, logger *logging.Logger, retryable retryPolicy, operation func() (*gh.Response, error)) (*gh.Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	config.ApplyDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}

	var lastErr error
	var lastResp *gh.Response
	backoff := config.InitialBackoff
	startTime := time.Now()

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		resp, err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info(ctx, "github api operation recovered after retries",
					zap.Int("attempts", attempt),
					zap.Duration("total_time", time.Since(startTime)),
				)
			}
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if !retryable(err, resp) {
			logger.Debug(ctx, "github api error is not retryable",
				zap.Error(err),
				zap.Int("status_code", statusCode(resp)),
			)
			return resp, err
		}

		if attempt == config.MaxRetries {
			break
		}

		if isRateLimitError(resp) {
			backoff = rateLimitBackoff(resp, config.MaxBackoff)
			logger.Info(ctx, "github api rate limit hit, adjusting backoff",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", config.MaxRetries+1),
				zap.Duration("backoff", backoff),
			)
		} else {
			logger.Info(ctx, "retrying github api operation after transient error",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", config.MaxRetries+1),
				zap.Error(err),
				zap.Int("status_code", statusCode(resp)),
				zap.Duration("backoff", backoff),
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			nextBackoff := time.Duration(float64(backoff) * config.BackoffMultiplier)
			if nextBackoff > config.MaxBackoff {
				nextBackoff = config.MaxBackoff
			}
			backoff = nextBackoff
		}
	}

	logger.Warn(ctx, "github api operation failed after all retries exhausted",
		zap.Int("total_attempts", config.MaxRetries+1),
		zap.Duration("total_time", time.Since(startTime)),
		zap.Error(lastErr),
		zap.Int("status_code", statusCode(lastResp)),
	)

	return lastResp, fmt.Errorf("github api operation failed after %d retries: %w", config.MaxRetries, lastErr)
}

// isRetryableError retries rate limits, server errors and transport failures.
func isRetryableError(err error, resp *gh.Response) bool {
	if err == nil {
		return false
	}

	if resp != nil && resp.Response != nil {
		code := resp.Response.StatusCode

		switch code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			// Secondary rate limits come back as 403 with rate info.
			return resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
		default:
			return code >= 500 && code < 600
		}
	}

	// No response at all: network error, timeout, reset.
	return true
}

// isRateLimitOnly retries nothing but rate limits. Used for calls that are
// not safe to repeat after the server may have applied them.
func isRateLimitOnly(err error, resp *gh.Response) bool {
	return err != nil && isRateLimitError(resp)
}

// isRateLimitError checks if the response indicates a rate limit error.
func isRateLimitError(resp *gh.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}

	if resp.Response.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return resp.Response.StatusCode == http.StatusForbidden && resp.Rate.Limit > 0 && resp.Rate.Remaining == 0
}

// rateLimitBackoff waits until the rate limit resets, capped at maxBackoff.
func rateLimitBackoff(resp *gh.Response, maxBackoff time.Duration) time.Duration {
	if resp == nil || resp.Rate.Reset.Time.IsZero() {
		return maxBackoff
	}

	backoff := time.Until(resp.Rate.Reset.Time) + time.Second
	if backoff < time.Second {
		backoff = time.Second
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// statusCode safely extracts the HTTP status code from a GitHub response.
func statusCode(resp *gh.Response) int {
	if resp != nil && resp.Response != nil {
		return resp.Response.StatusCode
	}
	return 0
}
