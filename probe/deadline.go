package probe

import (
	"context"
	"time"

	"github.com/use-agent/pmnprobe/browser"
)

// deadlineSession gives every call on the wrapped Session, and on the
// elements it returns, its own deadline. A JavaScript dialog freezes the
// page, and DOM calls made while one is showing do not return until it is
// closed.
type deadlineSession struct {
	browser.Session
	timeout time.Duration
}

// withDeadlines wraps s so that each call is bounded by timeout. Navigate
// keeps its own page-load timeout. A non-positive timeout returns s as is.
func withDeadlines(s browser.Session, timeout time.Duration) browser.Session {
	if timeout <= 0 {
		return s
	}
	if d, ok := s.(*deadlineSession); ok && d.timeout <= timeout {
		return d
	}
	return &deadlineSession{Session: s, timeout: timeout}
}

func (d *deadlineSession) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

func (d *deadlineSession) Find(ctx context.Context, kind browser.SelectorKind, selector string) ([]browser.Element, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	els, err := d.Session.Find(ctx, kind, selector)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &deadlineElement{Element: el, timeout: d.timeout}
	}
	return out, nil
}

func (d *deadlineSession) CurrentLocation(ctx context.Context) (string, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.Session.CurrentLocation(ctx)
}

func (d *deadlineSession) AbortPendingLoad(ctx context.Context) error {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.Session.AbortPendingLoad(ctx)
}

func (d *deadlineSession) HTML(ctx context.Context) (string, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.Session.HTML(ctx)
}

func (d *deadlineSession) AcceptDialog(ctx context.Context) (bool, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.Session.AcceptDialog(ctx)
}

func (d *deadlineSession) FollowNewTab(ctx context.Context) (bool, error) {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.Session.FollowNewTab(ctx)
}

func (d *deadlineSession) CloseExtraTabs(ctx context.Context) error {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	return d.Session.CloseExtraTabs(ctx)
}

type deadlineElement struct {
	browser.Element
	timeout time.Duration
}

func (e *deadlineElement) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

func (e *deadlineElement) Click(ctx context.Context) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.Element.Click(ctx)
}

func (e *deadlineElement) SelectAll(ctx context.Context) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.Element.SelectAll(ctx)
}

func (e *deadlineElement) Press(ctx context.Context, key browser.Key) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.Element.Press(ctx, key)
}

func (e *deadlineElement) Type(ctx context.Context, text string) error {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.Element.Type(ctx, text)
}

func (e *deadlineElement) IsVisible(ctx context.Context) (bool, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.Element.IsVisible(ctx)
}

func (e *deadlineElement) Text(ctx context.Context) (string, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.Element.Text(ctx)
}

func (e *deadlineElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	ctx, cancel := e.bound(ctx)
	defer cancel()
	return e.Element.Attribute(ctx, name)
}
