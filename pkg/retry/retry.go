package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gluonch/carrot2/errors"
)

// NonRetryableError stops Do even when the wrapped error is transient
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable marks err so that Do returns it without another attempt
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err was marked with NonRetryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config controls the backoff schedule
type Config struct {
	MaxAttempts  int           // total attempts, at least one
	InitialDelay time.Duration // delay after the first failure
	MaxDelay     time.Duration // upper bound for any delay
	Multiplier   float64       // growth factor between delays
	AddJitter    bool          // add up to 25% random delay
}

// DefaultConfig returns 3 attempts starting at 100ms
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Quick returns a config for startup connections
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}

func (c Config) normalized() (Config, error) {
	if c.InitialDelay < 0 || c.MaxDelay < 0 || c.Multiplier < 0 {
		return c, errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "negative retry setting in %+v", c),
			"retry", "Do", "config validation")
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	c.Multiplier = min(c.Multiplier, 1000)
	if c.MaxDelay < c.InitialDelay {
		return c, errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, "max delay %v below initial delay %v",
			c.MaxDelay, c.InitialDelay), "retry", "Do", "config validation")
	}
	return c, nil
}

// Do runs fn until it succeeds, the attempts are used up or it fails with an
// error that is not worth repeating. Only errors classified as transient are
// retried; invalid and fatal errors, and errors marked NonRetryable, are
// returned at once.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg, err := cfg.normalized()
	if err != nil {
		return err
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) || !errors.IsTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return errors.WrapTransient(ctx.Err(), "retry", "Do", fmt.Sprintf("attempt %d", attempt))
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := delay
		if cfg.AddJitter && delay >= 4 {
			sleep += rand.N(delay / 4)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.WrapTransient(ctx.Err(), "retry", "Do", fmt.Sprintf("backoff before attempt %d", attempt+1))
		case <-timer.C:
		}

		next := float64(delay) * cfg.Multiplier
		if next > float64(cfg.MaxDelay) {
			delay = cfg.MaxDelay
		} else {
			delay = time.Duration(next)
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult is Do for functions returning a value
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}
