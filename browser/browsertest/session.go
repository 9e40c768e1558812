// Package browsertest provides a scripted in-memory browser.Session whose
// DOM is a static HTML snapshot per URL. Typing into an input and pressing
// Enter "submits" the query to the Site, which decides the next page. A
// showing alert blocks DOM calls until their context ends, as in Chrome.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pmnprobe/browser"
	"golang.org/x/net/html"
)

// ErrDialogOpen wraps the context error of a call that blocked on a
// showing JavaScript dialog.
var ErrDialogOpen = errors.New("browsertest: javascript dialog is blocking the page")

// Site scripts the remote web site.
type Site struct {
	// Pages maps a URL to the HTML served for it.
	Pages map[string]string

	// Errors maps a URL to the error Navigate returns for it.
	Errors map[string]error

	// Results maps a submitted query to the HTML of its result page.
	// Queries without an entry leave the page where it is.
	Results map[string]string

	// ResultURL builds the result page URL for a query. Defaults to
	// "https://pmn.test/search?q=<query>".
	ResultURL func(query string) string

	// AlertOn lists queries whose submission raises an alert first.
	AlertOn map[string]bool

	// NewTab makes results open in a new tab instead of the current one.
	NewTab bool

	// Frozen lists URLs whose page never answers DOM calls.
	Frozen map[string]bool
}

func (s *Site) resultURL(query string) string {
	if s.ResultURL != nil {
		return s.ResultURL(query)
	}
	return "https://pmn.test/search?q=" + url.QueryEscape(query)
}

type tab struct {
	url string
	doc *goquery.Document
	raw string
}

// Session is a scripted browser.Session. It is not safe for concurrent use.
type Session struct {
	site   *Site
	tabs   []*tab
	active int

	values   map[*html.Node]string
	selected map[*html.Node]bool
	dialog   bool

	// Recorded interactions, for assertions.
	Navigations []string
	Clicks      []string
	Submitted   []string
	Aborts      int
	Accepted    int
	Closes      int
}

var _ browser.Session = (*Session)(nil)

// New returns a Session on about:blank driving site.
func New(site *Site) *Session {
	s := &Session{
		site:     site,
		values:   make(map[*html.Node]string),
		selected: make(map[*html.Node]bool),
	}
	s.tabs = []*tab{mustTab("about:blank", "<html><head></head><body></body></html>")}
	return s
}

// Opener returns a browser.Opener that hands out s.
func (s *Session) Opener() browser.Opener {
	return func(context.Context) (browser.Session, error) { return s, nil }
}

// Tabs reports how many tabs are open.
func (s *Session) Tabs() int { return len(s.tabs) }

func mustTab(u, raw string) *tab {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("browsertest: bad html for %s: %v", u, err))
	}
	return &tab{url: u, doc: doc, raw: raw}
}

func (s *Session) current() *tab { return s.tabs[s.active] }

func (s *Session) load(u, raw string) {
	s.tabs[s.active] = mustTab(u, raw)
}

// waitDialog blocks like a hung page: while a dialog is showing, or the
// current page is frozen, it returns only when ctx ends.
func (s *Session) waitDialog(ctx context.Context) error {
	switch {
	case s.dialog:
		<-ctx.Done()
		return fmt.Errorf("%w: %w", ErrDialogOpen, ctx.Err())
	case s.site.Frozen[s.current().url]:
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, u string, timeout time.Duration) error {
	s.Navigations = append(s.Navigations, u)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.waitDialog(ctx); err != nil {
		return err
	}
	if err, ok := s.site.Errors[u]; ok {
		return err
	}
	raw, ok := s.site.Pages[u]
	if !ok {
		return fmt.Errorf("navigate %s: net::ERR_NAME_NOT_RESOLVED", u)
	}
	s.load(u, raw)
	return nil
}

func (s *Session) Find(ctx context.Context, kind browser.SelectorKind, selector string) ([]browser.Element, error) {
	if err := s.waitDialog(ctx); err != nil {
		return nil, err
	}
	if kind != browser.CSS {
		return nil, fmt.Errorf("browsertest: only CSS selectors are supported")
	}
	t := s.current()
	sel := t.doc.Find(selector)
	out := make([]browser.Element, 0, sel.Length())
	sel.Each(func(_ int, one *goquery.Selection) {
		out = append(out, &element{s: s, tab: t, sel: one})
	})
	return out, nil
}

func (s *Session) CurrentLocation(ctx context.Context) (string, error) {
	return s.current().url, nil
}

func (s *Session) AbortPendingLoad(ctx context.Context) error {
	s.Aborts++
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := s.waitDialog(ctx); err != nil {
		return "", err
	}
	return s.current().raw, nil
}

func (s *Session) AcceptDialog(ctx context.Context) (bool, error) {
	if !s.dialog {
		return false, nil
	}
	s.dialog = false
	s.Accepted++
	return true, nil
}

func (s *Session) FollowNewTab(ctx context.Context) (bool, error) {
	if len(s.tabs) < 2 {
		return false, nil
	}
	s.active = len(s.tabs) - 1
	return true, nil
}

func (s *Session) CloseExtraTabs(ctx context.Context) error {
	s.tabs = s.tabs[:1]
	s.active = 0
	return nil
}

func (s *Session) Close() error {
	s.Closes++
	return nil
}

// submit plays the site's reaction to pressing Enter in an input.
func (s *Session) submit(query string) {
	s.Submitted = append(s.Submitted, query)
	if s.site.AlertOn[query] {
		s.dialog = true
	}
	raw, ok := s.site.Results[query]
	if !ok {
		return
	}
	next := mustTab(s.site.resultURL(query), raw)
	if s.site.NewTab {
		s.tabs = append(s.tabs, next)
		return
	}
	s.tabs[s.active] = next
}

type element struct {
	s   *Session
	tab *tab
	sel *goquery.Selection
}

func (e *element) node() *html.Node { return e.sel.Get(0) }

func (e *element) check(ctx context.Context) error {
	if err := e.s.waitDialog(ctx); err != nil {
		return err
	}
	if e.s.current() != e.tab {
		return errors.New("browsertest: element is detached from the document")
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	e.s.Clicks = append(e.s.Clicks, strings.TrimSpace(e.sel.Text()))
	return nil
}

func (e *element) SelectAll(ctx context.Context) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	e.s.selected[e.node()] = true
	return nil
}

func (e *element) Press(ctx context.Context, key browser.Key) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	n := e.node()
	switch key {
	case browser.KeyDelete, browser.KeyBackspace:
		if e.s.selected[n] {
			e.s.values[n] = ""
			delete(e.s.selected, n)
			return nil
		}
		if v := []rune(e.s.values[n]); len(v) > 0 {
			e.s.values[n] = string(v[:len(v)-1])
		}
	case browser.KeyEnter:
		e.s.submit(e.s.values[n])
		// An alert raised on submit holds the key event.
		return e.s.waitDialog(ctx)
	default:
		return fmt.Errorf("browsertest: unsupported key %d", key)
	}
	return nil
}

func (e *element) Type(ctx context.Context, text string) error {
	if err := e.check(ctx); err != nil {
		return err
	}
	n := e.node()
	if e.s.selected[n] {
		e.s.values[n] = ""
		delete(e.s.selected, n)
	}
	e.s.values[n] += text
	return nil
}

// IsVisible treats the hidden attribute and inline display:none on the
// element or any ancestor as invisible.
func (e *element) IsVisible(ctx context.Context) (bool, error) {
	if err := e.check(ctx); err != nil {
		return false, err
	}
	for n := e.node(); n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Key == "hidden" {
				return false, nil
			}
			if a.Key == "style" && strings.Contains(strings.ReplaceAll(a.Val, " ", ""), "display:none") {
				return false, nil
			}
		}
	}
	return true, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.check(ctx); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.check(ctx); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}
