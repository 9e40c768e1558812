package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/pmnprobe/browser"
	"github.com/use-agent/pmnprobe/config"
	"github.com/use-agent/pmnprobe/extract"
	"github.com/use-agent/pmnprobe/models"
)

// Executor runs single queries against one session.
type Executor struct {
	session   browser.Session
	nav       *Navigator
	extractor *extract.Extractor

	input         string
	heading       string
	resultTimeout time.Duration
	dialogTimeout time.Duration
	settle        time.Duration
}

// NewExecutor returns an Executor bound to s. Every browser call it makes is
// bounded by cfg.ActionTimeout. A nil extractor uses the default pathway
// rule.
func NewExecutor(s browser.Session, cfg config.SearchConfig, pageLoad time.Duration, x *extract.Extractor) *Executor {
	if x == nil {
		x = extract.NewExtractor(nil)
	}
	s = withDeadlines(s, cfg.ActionTimeout)
	return &Executor{
		session:       s,
		nav:           newNavigator(s, cfg, pageLoad),
		extractor:     x,
		input:         cfg.InputSelector,
		heading:       cfg.HeadingSelector,
		resultTimeout: cfg.ResultTimeout,
		dialogTimeout: cfg.DialogTimeout,
		settle:        cfg.SettleDelay,
	}
}

// Execute runs one query and always returns an outcome. Failures before the
// result page are reported as NO with a "<stage>-fail:<detail>" note.
// Extra tabs are closed before Execute returns.
func (e *Executor) Execute(ctx context.Context, query string) (out models.QueryOutcome) {
	log := slog.With("query", query)
	out = models.QueryOutcome{Query: query, Result: models.ResultNo}

	defer func() {
		if err := e.session.CloseExtraTabs(context.WithoutCancel(ctx)); err != nil {
			log.Debug("closing extra tabs failed", "error", err)
		}
	}()

	// An alert left over from the previous query blocks navigation.
	e.acceptDialog(ctx, log)

	reached, err := e.nav.Reach(ctx)
	if err != nil {
		log.Debug("search form unreachable", "error", err)
		out.Location = e.location(ctx)
		out.Note = models.FailNote(models.NotePrefixHome, err)
		return out
	}
	log.Debug("search form ready", "entry", reached.URL)

	e.acceptDialog(ctx, log)
	before := e.location(ctx)

	if prefix, err := e.submit(ctx, query, log); err != nil {
		log.Debug("query submission failed", "stage", prefix, "error", err)
		out.Location = e.location(ctx)
		out.Note = models.FailNote(prefix, err)
		return out
	}
	submitted := time.Now()
	log.Debug("query submitted")

	dialogSeen := false
	ready := pollUntil(ctx, e.resultTimeout, pollInterval, func() bool {
		if e.acceptDialog(ctx, log) {
			dialogSeen = true
		}
		if ok, err := e.session.FollowNewTab(ctx); err == nil && ok {
			log.Debug("result opened in a new tab")
		}
		return e.resultReady(ctx, before)
	})
	if !ready {
		log.Debug("result wait timed out, extracting from current page", "timeout", e.resultTimeout)
		if err := e.session.AbortPendingLoad(ctx); err != nil {
			log.Debug("abort pending load failed", "error", err)
		}
	}

	// A slow alert can still arrive after the result rendered.
	if rest := e.dialogTimeout - time.Since(submitted); !dialogSeen && rest > 0 {
		pollUntil(ctx, rest, pollInterval, func() bool { return e.acceptDialog(ctx, log) })
	}

	_ = sleep(ctx, e.settle)
	e.acceptDialog(ctx, log)

	has := e.extractor.HasPathwaySignal(ctx, e.session)
	out.Result = models.ResultOf(has)
	out.Location = e.location(ctx)
	if has {
		out.Note = models.NoteOK
	} else {
		out.Note = models.NoteNoPathway
	}
	log.Debug("query finished", "result", out.Result, "location", out.Location)
	return out
}

// submit clears the search input, types query and presses Enter. It returns
// the note prefix for the stage that failed.
func (e *Executor) submit(ctx context.Context, query string, log *slog.Logger) (string, error) {
	el, err := firstElement(ctx, e.session, e.input)
	if err != nil {
		return models.NotePrefixInput, fmt.Errorf("find %s: %w", e.input, err)
	}
	if err := el.Click(ctx); err != nil {
		return models.NotePrefixInput, fmt.Errorf("focus: %w", err)
	}
	// Clear with select-all + Delete, the way a user would.
	if err := el.SelectAll(ctx); err != nil {
		return models.NotePrefixInput, fmt.Errorf("select: %w", err)
	}
	if err := el.Press(ctx, browser.KeyDelete); err != nil {
		return models.NotePrefixInput, fmt.Errorf("clear: %w", err)
	}
	if err := el.Type(ctx, query); err != nil {
		return models.NotePrefixInput, fmt.Errorf("type: %w", err)
	}
	if err := el.Press(ctx, browser.KeyEnter); err != nil {
		// An alert raised by the submission itself holds the key event
		// until it is closed. The query went out.
		if e.acceptDialog(ctx, log) {
			log.Debug("submission raised a dialog", "error", err)
			return "", nil
		}
		return models.NotePrefixSubmit, err
	}
	return "", nil
}

// resultReady reports whether the page left its pre-submit URL or shows a
// heading.
func (e *Executor) resultReady(ctx context.Context, before string) bool {
	if loc, err := e.session.CurrentLocation(ctx); err == nil && loc != before {
		return true
	}
	return present(ctx, e.session, e.heading)
}

func (e *Executor) acceptDialog(ctx context.Context, log *slog.Logger) bool {
	ok, err := e.session.AcceptDialog(ctx)
	if err != nil {
		log.Debug("dialog check failed", "error", err)
		return false
	}
	if ok {
		log.Debug("javascript dialog accepted")
	}
	return ok
}

func (e *Executor) location(ctx context.Context) string {
	loc, err := e.session.CurrentLocation(ctx)
	if err != nil {
		return ""
	}
	return loc
}
