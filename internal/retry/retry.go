// Package retry wraps outbound remote calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"todosync/internal/remote"
)

const (
	// DefaultAttempts is the total number of attempts, first call included.
	DefaultAttempts = 3

	// DefaultBaseDelay is the wait before the first retry. It doubles after that.
	DefaultBaseDelay = 1 * time.Second
)

// Config configures an Executor.
type Config struct {
	Attempts  uint
	BaseDelay time.Duration

	// Transient decides which errors are retried. Defaults to remote.IsTransient.
	Transient func(error) bool
}

// Executor runs a single remote call, retrying transient failures.
// It is stateless between calls and safe for concurrent use.
type Executor struct {
	attempts  uint
	baseDelay time.Duration
	transient func(error) bool
	logger    zerolog.Logger
}

// New creates an Executor. Zero config fields take their defaults.
func New(cfg Config, logger zerolog.Logger) *Executor {
	if cfg.Attempts == 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.Transient == nil {
		cfg.Transient = remote.IsTransient
	}
	return &Executor{
		attempts:  cfg.Attempts,
		baseDelay: cfg.BaseDelay,
		transient: cfg.Transient,
		logger:    logger.With().Str("component", "retry").Logger(),
	}
}

// Do runs fn until it succeeds, fails with a terminal error, or the attempt
// budget is spent. The last error is returned unchanged.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, e, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for calls that return a result.
func Value[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		if !e.transient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, next time.Duration) {
		e.logger.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("transient remote failure, retrying")
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(e.schedule()),
		backoff.WithMaxTries(e.attempts),
		backoff.WithNotify(notify),
	)
	if err != nil {
		// The final attempt's error comes back still wrapped.
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		e.logger.Debug().Err(err).Str("op", op).Int("attempts", attempt).Msg("remote call failed")
		return res, err
	}
	return res, nil
}

// schedule returns a jitter-free doubling backoff: base, 2·base, 4·base, ...
func (e *Executor) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.baseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = e.baseDelay << e.attempts
	return b
}
