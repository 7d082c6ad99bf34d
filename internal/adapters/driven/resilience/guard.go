// Package resilience guards backend calls with a per-call timeout, an optional
// rate limit and retries on timeout.
//
// The decorators in this package wrap the embedding, generation and vector
// store ports so services never deal with deadlines or backoff themselves.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Default backoff between retries.
const (
	DefaultBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// Guard applies the resilience policy to a call.
type Guard struct {
	timeout    time.Duration
	maxRetries uint64
	limiter    *rate.Limiter
	backoff    time.Duration
	maxBackoff time.Duration
}

// Option configures a Guard.
type Option func(*Guard)

// WithTimeout bounds every attempt. Zero disables the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Guard) {
		g.timeout = d
	}
}

// WithMaxRetries sets how often a timed-out call is retried.
func WithMaxRetries(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.maxRetries = uint64(n)
		}
	}
}

// WithRateLimit caps sustained calls per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(g *Guard) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithBackoff sets the initial and maximum delay between retries.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(g *Guard) {
		g.backoff = initial
		g.maxBackoff = maxDelay
	}
}

// NewGuard creates a guard.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		backoff:    DefaultBackoff,
		maxBackoff: DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FromSettings builds a guard from resilience settings.
func FromSettings(s domain.ResilienceSettings) *Guard {
	return NewGuard(
		WithTimeout(s.CallTimeout),
		WithMaxRetries(s.MaxRetries),
		WithRateLimit(s.RateLimit),
	)
}

// Do runs fn under the policy.
// An attempt that exceeds its deadline fails with domain.ErrBackendTimeout and
// is retried; any other error is returned immediately.
func (g *Guard) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := retry.NewExponential(g.backoff)
	b = retry.WithCappedDuration(g.maxBackoff, b)
	b = retry.WithMaxRetries(g.maxRetries, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := g.once(ctx, fn)
		if err == nil {
			return nil
		}
		if domain.IsRetryable(err) && ctx.Err() == nil {
			logger.Debug("%s: attempt %d timed out", op, attempt)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (g *Guard) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := fn(callCtx)
	if err == nil {
		return nil
	}

	// Only the per-call deadline counts as a backend timeout.
	if ctx.Err() == nil && (errors.Is(callCtx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded)) && !errors.Is(err, domain.ErrBackendTimeout) {
		return fmt.Errorf("%w after %s: %w", domain.ErrBackendTimeout, g.timeout, err)
	}
	return err
}
