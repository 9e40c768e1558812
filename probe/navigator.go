// Package probe drives one browser session through a single PlantCyc search:
// reach a usable search form, submit the query, wait for a result state and
// hand the DOM to the pathway extractor.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/pmnprobe/browser"
	"github.com/use-agent/pmnprobe/config"
	"github.com/use-agent/pmnprobe/models"
)

// EntryReached is a successful Navigator.Reach.
type EntryReached struct {
	URL string
}

// Navigator brings the session to a page showing the search input, trying
// the configured entry points in order.
type Navigator struct {
	session   browser.Session
	entries   []string
	input     string
	pageLoad  time.Duration
	ready     time.Duration
	inputWait time.Duration
	dismisser *Dismisser
}

// NewNavigator returns a Navigator for cfg. pageLoad bounds each Navigate;
// cfg.ActionTimeout bounds every other browser call.
func NewNavigator(s browser.Session, cfg config.SearchConfig, pageLoad time.Duration) *Navigator {
	return newNavigator(withDeadlines(s, cfg.ActionTimeout), cfg, pageLoad)
}

func newNavigator(s browser.Session, cfg config.SearchConfig, pageLoad time.Duration) *Navigator {
	return &Navigator{
		session:   s,
		entries:   cfg.EntryURLs,
		input:     cfg.InputSelector,
		pageLoad:  pageLoad,
		ready:     cfg.ReadyTimeout,
		inputWait: cfg.InputTimeout,
		dismisser: NewDismisser(LabelRules(cfg.DismissLabels)),
	}
}

// Reach tries each entry point until one shows the search input. When all
// fail it returns a NAVIGATION_FAILED error wrapping the last failure.
func (n *Navigator) Reach(ctx context.Context) (EntryReached, error) {
	var lastErr error
	for _, u := range n.entries {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		err := n.try(ctx, u)
		if err == nil {
			slog.Debug("entry point reached", "url", u)
			return EntryReached{URL: u}, nil
		}
		slog.Debug("entry point failed", "url", u, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no entry points configured")
	}
	return EntryReached{}, models.NewProbeError(
		models.ErrCodeNavigation,
		"search form unreachable",
		lastErr,
	)
}

func (n *Navigator) try(ctx context.Context, u string) error {
	if err := n.session.Navigate(ctx, u, n.pageLoad); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			n.abort(ctx)
		}
		return fmt.Errorf("navigate %s: %w", u, err)
	}

	if !pollUntil(ctx, n.ready, pollInterval, func() bool {
		return present(ctx, n.session, "body")
	}) {
		n.abort(ctx)
		return fmt.Errorf("%s: document body: %w", u, ErrWaitTimeout)
	}

	n.dismisser.Dismiss(ctx, n.session)

	if !pollUntil(ctx, n.inputWait, pollInterval, func() bool {
		return present(ctx, n.session, n.input)
	}) {
		n.abort(ctx)
		return fmt.Errorf("%s: search input %q: %w", u, n.input, ErrWaitTimeout)
	}
	return nil
}

func (n *Navigator) abort(ctx context.Context) {
	if err := n.session.AbortPendingLoad(ctx); err != nil {
		slog.Debug("abort pending load failed", "error", err)
	}
}
