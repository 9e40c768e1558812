// Package runner drives a list of query targets through one browser session,
// strictly one at a time, checkpointing after every query.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/use-agent/pmnprobe/browser"
	"github.com/use-agent/pmnprobe/models"
)

// Executor runs one query. It never fails; problems become outcome notes.
type Executor interface {
	Execute(ctx context.Context, query string) models.QueryOutcome
}

// ExecutorFactory binds an Executor to the session the runner opened.
type ExecutorFactory func(s browser.Session) Executor

// Recorder persists outcomes. A Record error ends the run.
type Recorder interface {
	Record(o models.QueryOutcome) error
	Path() string
}

// Runner owns the browser session for the length of a run.
type Runner struct {
	open        browser.Opener
	newExecutor ExecutorFactory
	ledger      Recorder
	delay       time.Duration
	out         io.Writer
	sleep       func(context.Context, time.Duration) error
}

// New creates a Runner. delay is the pause between consecutive queries;
// progress lines go to out.
func New(open browser.Opener, newExecutor ExecutorFactory, ledger Recorder, delay time.Duration, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		open:        open,
		newExecutor: newExecutor,
		ledger:      ledger,
		delay:       delay,
		out:         out,
		sleep:       sleepCtx,
	}
}

// Run processes targets in order. It returns early on a ledger failure or
// when ctx is cancelled between queries; a query already started is finished
// and recorded first. The summary covers everything recorded.
func (r *Runner) Run(ctx context.Context, targets []models.QueryTarget) (models.Summary, error) {
	var sum models.Summary
	if len(targets) == 0 {
		slog.Info("nothing to query")
		return sum, nil
	}

	session, err := r.open(ctx)
	if err != nil {
		return sum, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("browser close failed", "error", err)
		}
	}()

	exec := r.newExecutor(session)
	start := time.Now()
	total := len(targets)

	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			slog.Warn("run interrupted", "recorded", sum.Total, "remaining", total-i)
			return sum, err
		}

		outcome, err := r.step(ctx, exec, target)
		if err != nil {
			return sum, err
		}
		sum.Add(outcome)
		fmt.Fprintf(r.out, "[%d/%d] %s -> %s  (%s)\n", i+1, total, target.Name, outcome.Result, outcome.Location)

		if i == total-1 {
			break
		}
		if err := r.sleep(ctx, r.delay); err != nil {
			slog.Warn("run interrupted", "recorded", sum.Total, "remaining", total-i-1)
			return sum, err
		}
	}

	slog.Info("run finished",
		"total", sum.Total,
		"yes", sum.Yes,
		"no", sum.No,
		"failed", sum.Failed,
		"output", r.ledger.Path(),
		"elapsed", time.Since(start).Round(time.Second),
	)
	return sum, nil
}

// step moves one target PENDING -> RUNNING -> RECORDED.
func (r *Runner) step(ctx context.Context, exec Executor, target models.QueryTarget) (models.QueryOutcome, error) {
	state := models.StatePending
	advance := func() {
		next, err := state.Next()
		if err != nil {
			panic(err)
		}
		state = next
		slog.Debug("target state", "query", target.Name, "state", state)
	}

	advance()
	// Queries are not cancellable mid-flight: each one ends in a recorded
	// outcome.
	outcome := exec.Execute(context.WithoutCancel(ctx), target.Name)
	if err := r.ledger.Record(outcome); err != nil {
		return outcome, err
	}
	advance()
	return outcome, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
