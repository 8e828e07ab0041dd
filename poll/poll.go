// Package poll waits for a host page to become ready. The host exposes
// no completion signal, so readiness is a predicate checked at a fixed
// interval with a bounded number of attempts.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the attempt budget is exhausted.
var ErrTimeout = errors.New("poll: attempts exhausted")

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options bounds a poll.
type Options struct {
	// Attempts is the maximum number of predicate checks. Default: 30.
	Attempts int
	// Initial is waited once before the first check.
	Initial time.Duration
	// Interval is waited between checks. Default: 500ms.
	Interval time.Duration
	// Sleep overrides the real-time sleeper, mostly for tests.
	Sleep Sleeper
}

func (o *Options) defaults() {
	if o.Attempts <= 0 {
		o.Attempts = 30
	}
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Sleep == nil {
		o.Sleep = Sleep
	}
}

// Until checks ready up to Attempts times and returns the attempt number
// that succeeded. It returns ErrTimeout when every check reports false,
// the predicate's error when one fails, or the context error.
func Until(ctx context.Context, opts Options, ready func(ctx context.Context) (bool, error)) (int, error) {
	opts.defaults()

	if err := opts.Sleep(ctx, opts.Initial); err != nil {
		return 0, err
	}
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		ok, err := ready(ctx)
		if err != nil {
			return attempt, fmt.Errorf("poll: attempt %d: %w", attempt, err)
		}
		if ok {
			return attempt, nil
		}
		if attempt == opts.Attempts {
			break
		}
		if err := opts.Sleep(ctx, opts.Interval); err != nil {
			return attempt, err
		}
	}
	return opts.Attempts, ErrTimeout
}
