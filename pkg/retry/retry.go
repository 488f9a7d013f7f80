package retry

import (
	"context"
	"errors"
	"time"
)

// Unlimited makes Do retry until fn succeeds, fails permanently or ctx ends.
const Unlimited = -1

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// Unlimited (or any negative value) never gives up.
	MaxRetries int
	// Wait is the fixed delay between attempts.
	Wait time.Duration
	// Sleep waits between attempts. Defaults to Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns a fixed 30 second delay that never gives up
func DefaultConfig() Config {
	return Config{
		MaxRetries: Unlimited,
		Wait:       30 * time.Second,
	}
}

// Do executes fn until it succeeds, returns a permanent error, runs out of
// retries, or ctx is cancelled while waiting.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if cfg.MaxRetries >= 0 && attempt > cfg.MaxRetries {
			return err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		if serr := sleep(ctx, cfg.Wait); serr != nil {
			return serr
		}
	}
}

// Sleep blocks for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do stops retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
