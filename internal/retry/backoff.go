// Package retry schedules repeated attempts of an operation that may
// fail transiently, such as a bot dialing a server that is still
// starting up.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Backoff waits exponentially longer between attempts.
type Backoff struct {
	InitialDelay time.Duration // default 1s
	MaxDelay     time.Duration // default 30s
	Multiplier   float64       // default 2
	// MaxAttempts is the total number of tries including the first.
	// Zero means until the context ends.
	MaxAttempts int
	// Jitter spreads each wait by ±25% so a fleet of bots started
	// together does not redial in lockstep.
	Jitter bool
	// Rand drives the jitter.  Nil uses the global source.
	Rand *rand.Rand
	// RetryIf decides whether an error is worth another attempt.  Nil
	// retries every error.
	RetryIf func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultBackoff returns the configuration used for bot dialing.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  8,
		Jitter:       true,
	}
}

// ExhaustedError is returned when every allowed attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error // the last failure
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Delay returns the un-jittered wait after the given 1-based attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	d := b.InitialDelay
	if d <= 0 {
		d = time.Second
	}
	mult := b.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	limit := b.MaxDelay
	if limit <= 0 {
		limit = 30 * time.Second
	}
	for i := 1; i < attempt && d < limit; i++ {
		d = time.Duration(float64(d) * mult)
	}
	if d > limit {
		d = limit
	}
	return d
}

// Do calls fn until it succeeds, RetryIf rejects its error, the
// attempts run out or ctx ends.  fn receives the 1-based attempt.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if b.RetryIf != nil && !b.RetryIf(err) {
			return err
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return &ExhaustedError{Attempts: attempt, Err: err}
		}

		wait := b.Delay(attempt)
		if b.Jitter {
			wait = b.jitter(wait)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func (b *Backoff) jitter(d time.Duration) time.Duration {
	f := rand.Float64
	if b.Rand != nil {
		f = b.Rand.Float64
	}
	quarter := float64(d) / 4
	j := time.Duration(float64(d) + f()*2*quarter - quarter)
	if j < time.Millisecond {
		j = time.Millisecond
	}
	return j
}
