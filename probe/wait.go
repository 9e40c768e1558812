package probe

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/pmnprobe/browser"
)

// pollInterval is how often bounded waits re-check their condition.
const pollInterval = 100 * time.Millisecond

// ErrWaitTimeout reports that a bounded wait gave up. Callers decide whether
// that is fatal; for the result page it is not.
var ErrWaitTimeout = errors.New("probe: wait timed out")

// pollUntil evaluates cond every interval until it holds, timeout elapses or
// ctx is done. It reports whether cond held. cond is always evaluated at
// least once.
func pollUntil(ctx context.Context, timeout, interval time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			return false
		}

		t := time.NewTimer(min(interval, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
}

// sleep pauses for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
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

// present reports whether selector currently matches anything. Lookup errors
// (a blocking dialog, a page mid-navigation) count as absent.
func present(ctx context.Context, s browser.Session, selector string) bool {
	els, err := s.Find(ctx, browser.CSS, selector)
	return err == nil && len(els) > 0
}

// firstElement returns the first element matching selector.
func firstElement(ctx context.Context, s browser.Session, selector string) (browser.Element, error) {
	els, err := s.Find(ctx, browser.CSS, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.ErrNoElement
	}
	return els[0], nil
}
