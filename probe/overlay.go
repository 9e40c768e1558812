package probe

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/pmnprobe/browser"
)

// dismissPause lets the page react to a dismissal click.
const dismissPause = 200 * time.Millisecond

// DismissRule describes one kind of overlay and how to clear it.
type DismissRule struct {
	Name string

	// Selector finds candidate elements (CSS).
	Selector string

	// Match filters candidates by their visible text. Nil matches all.
	Match func(text string) bool

	// Action clears the overlay using the matched element. Nil clicks it.
	Action func(ctx context.Context, el browser.Element) error
}

// LabelRules returns one rule per label: click the first visible button
// whose text contains the label.
func LabelRules(labels []string) []DismissRule {
	rules := make([]DismissRule, 0, len(labels))
	for _, label := range labels {
		label := label
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		rules = append(rules, DismissRule{
			Name:     "button:" + label,
			Selector: "button",
			Match: func(text string) bool {
				return strings.Contains(text, label)
			},
		})
	}
	return rules
}

// Dismisser applies DismissRules in priority order.
type Dismisser struct {
	rules []DismissRule
	pause time.Duration
}

// NewDismisser returns a Dismisser for rules, evaluated in the given order.
func NewDismisser(rules []DismissRule) *Dismisser {
	return &Dismisser{rules: rules, pause: dismissPause}
}

// Dismiss clears whatever overlays it recognizes and returns how many rules
// fired. It is best effort: errors are logged and skipped.
func (d *Dismisser) Dismiss(ctx context.Context, s browser.Session) int {
	fired := 0
	for _, rule := range d.rules {
		el := d.firstMatch(ctx, s, rule)
		if el == nil {
			continue
		}

		act := rule.Action
		if act == nil {
			act = func(ctx context.Context, el browser.Element) error { return el.Click(ctx) }
		}
		if err := act(ctx, el); err != nil {
			slog.Debug("overlay dismissal failed", "rule", rule.Name, "error", err)
			continue
		}
		slog.Debug("overlay dismissed", "rule", rule.Name)
		fired++
		_ = sleep(ctx, d.pause)
	}
	return fired
}

func (d *Dismisser) firstMatch(ctx context.Context, s browser.Session, rule DismissRule) browser.Element {
	els, err := s.Find(ctx, browser.CSS, rule.Selector)
	if err != nil {
		slog.Debug("overlay lookup failed", "rule", rule.Name, "error", err)
		return nil
	}
	for _, el := range els {
		if visible, err := el.IsVisible(ctx); err != nil || !visible {
			continue
		}
		if rule.Match != nil {
			text, err := el.Text(ctx)
			if err != nil || !rule.Match(text) {
				continue
			}
		}
		return el
	}
	return nil
}
