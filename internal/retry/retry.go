// Package retry wraps fallible generative API calls with bounded exponential
// backoff. Only quota/rate-limit-shaped failures are retried; everything else
// propagates on first occurrence.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 2 * time.Second
)

// Policy configures retry behavior. The zero value is not usable; call
// NewPolicy for defaults.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration

	// Limiter, when set, gates every attempt (including the first).
	Limiter *rate.Limiter

	logger *slog.Logger
}

func NewPolicy(logger *slog.Logger) *Policy {
	return &Policy{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		logger:       logger,
	}
}

// rateLimitPatterns are matched case-insensitively against err.Error().
// The genai SDK does not expose a typed error for quota exhaustion, so
// substring matching is the only classification available.
var rateLimitPatterns = []string{
	"rate limit",
	"quota",
	"resource_exhausted",
	"resource exhausted",
	"429",
	"too many requests",
}

// IsRateLimit reports whether err carries a quota/rate-limit signature.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, models.ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Do executes op, retrying on rate-limit failures with delays of
// InitialDelay * 2^attempt. The wrapped operation must be safe to repeat; all
// generative calls in this system are pure requests with no side effect on
// failure. Exhaustion yields an error wrapping models.ErrRateLimited; any
// other failure returns immediately, undecorated.
func Do[T any](ctx context.Context, p *Policy, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return zero, fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRateLimit(err) {
			return zero, err
		}

		if attempt == p.MaxRetries {
			break
		}

		delay := p.InitialDelay << attempt
		p.logger.Debug("rate limited, backing off",
			"operation", name,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%w: %s failed after %d retries: %v",
		models.ErrRateLimited, name, p.MaxRetries, lastErr)
}
