// Package extract decides from a DOM snapshot whether a search result page
// advertises at least one pathway.
//
// The rule is structural: find the first heading, then look only at what
// follows it in document order for an anchor matching both the pathway
// fragment and the pathway label.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/pmnprobe/browser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// snapshotTimeout bounds a DOM read when the caller's context has no deadline.
var snapshotTimeout = 10 * time.Second

// Defaults for the PlantCyc result page.
const (
	DefaultHeading  = "h1"
	DefaultFragment = "#PATHWAY"
	DefaultLabel    = "Pathways"
)

// Rule is a compiled extraction rule.
type Rule struct {
	heading  cascadia.Selector
	fragment string
	label    string
}

// NewRule compiles a rule. fragment and label are compared case-insensitively;
// label also has its whitespace collapsed.
func NewRule(headingSelector, fragment, label string) (*Rule, error) {
	sel, err := cascadia.Compile(headingSelector)
	if err != nil {
		return nil, err
	}
	return &Rule{
		heading:  sel,
		fragment: strings.TrimSpace(fragment),
		label:    normalizeText(label),
	}, nil
}

// DefaultRule is the rule for the PlantCyc result page.
func DefaultRule() *Rule {
	r, _ := NewRule(DefaultHeading, DefaultFragment, DefaultLabel)
	return r
}

// Match reports whether rawHTML carries the pathway anchor after its first
// heading. It never panics; malformed input yields false.
func (r *Rule) Match(rawHTML string) (found bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Debug("pathway rule panicked, treating as no signal", "panic", rec)
			found = false
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return false
	}
	return r.MatchDocument(doc)
}

// MatchDocument applies the rule to an already parsed document.
func (r *Rule) MatchDocument(doc *goquery.Document) bool {
	if len(doc.Nodes) == 0 {
		return false
	}
	heading := r.heading.MatchFirst(doc.Nodes[0])
	if heading == nil {
		return false
	}

	found := false
	following(heading, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.A && r.isPathwayAnchor(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

func (r *Rule) isPathwayAnchor(n *html.Node) bool {
	href, ok := attr(n, "href")
	if !ok || !strings.EqualFold(strings.TrimSpace(href), r.fragment) {
		return false
	}
	return normalizeText(goquery.NewDocumentFromNode(n).Text()) == r.label
}

// following visits, in document order, every node after n's end tag: the
// XPath following:: axis, which excludes n's descendants and ancestors.
// visit returns false to stop the walk.
func following(n *html.Node, visit func(*html.Node) bool) {
	for cur := n; cur != nil; cur = cur.Parent {
		for sib := cur.NextSibling; sib != nil; sib = sib.NextSibling {
			if !preorder(sib, visit) {
				return
			}
		}
	}
}

func preorder(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !preorder(c, visit) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// normalizeText lower-cases s and collapses runs of whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// HasPathwaySignal applies DefaultRule to rawHTML.
func HasPathwaySignal(rawHTML string) bool {
	return DefaultRule().Match(rawHTML)
}

// Extractor applies a Rule to the live DOM of a browser session.
type Extractor struct {
	rule *Rule
}

// NewExtractor returns an Extractor for rule. A nil rule means DefaultRule.
func NewExtractor(rule *Rule) *Extractor {
	if rule == nil {
		rule = DefaultRule()
	}
	return &Extractor{rule: rule}
}

// HasPathwaySignal snapshots the session's DOM and applies the rule. It only
// reads the page. Any failure to read it counts as no signal.
func (x *Extractor) HasPathwaySignal(ctx context.Context, s browser.Session) bool {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, snapshotTimeout)
		defer cancel()
	}
	raw, err := s.HTML(ctx)
	if err != nil {
		slog.Debug("dom snapshot failed, treating as no signal", "error", err)
		return false
	}
	return x.rule.Match(raw)
}
