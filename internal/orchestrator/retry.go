package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy is one "N attempts × delay" table entry, matching §4.5's
// "every network-ish step has a configurable retry count × delay table".
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// RetryTables groups the three network-ish steps the orchestrator retries
// during a reopen/full-rebuild sequence.
type RetryTables struct {
	Connect       RetryPolicy
	SetSink       RetryPolicy
	StartPlayback RetryPolicy
}

// DefaultRetryTables returns the example values §4.5 names: connect 3x200ms,
// set-sink 10x50ms, start-playback 50x10ms.
func DefaultRetryTables() RetryTables {
	return RetryTables{
		Connect:       RetryPolicy{Attempts: 3, Delay: 200 * time.Millisecond},
		SetSink:       RetryPolicy{Attempts: 10, Delay: 50 * time.Millisecond},
		StartPlayback: RetryPolicy{Attempts: 50, Delay: 10 * time.Millisecond},
	}
}

// withRetry calls fn up to policy.Attempts times, sleeping policy.Delay
// between attempts, following the teacher's connect-loop idiom of
// select{ <-ctx.Done(); <-time.After(delay) } so a cancelled context aborts
// the wait immediately rather than blocking out the full delay.
func withRetry(ctx context.Context, policy RetryPolicy, step string, fn func() error) error {
	var lastErr error
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay):
		}
	}
	return fmt.Errorf("orchestrator: %s failed after %d attempt(s): %w", step, attempts, lastErr)
}
