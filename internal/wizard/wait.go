// internal/wizard/wait.go
package wizard

import (
	"context"
	"time"
)

// PollUntil invokes pred on a fixed interval until it reports true, the
// timeout elapses, or ctx is canceled. It reports whether pred succeeded.
// Predicate errors count as "not yet" rather than aborting the poll, because
// the page frequently swaps nodes out from under a probe mid-render.
func PollUntil(ctx context.Context, pred func(context.Context) (bool, error), interval, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for {
		if ok, err := pred(ctx); err == nil && ok {
			return true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}

		remaining := time.Until(deadline)
		if remaining < interval {
			interval = remaining
		}
		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}
}
