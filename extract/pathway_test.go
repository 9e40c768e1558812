package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pmnprobe/browser/browsertest"
)

func TestHasPathwaySignal(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			name: "anchor after heading",
			html: `<html><body><h1>Glucose</h1><div id="mainContent"><a href="#PATHWAY">Pathways</a></div></body></html>`,
			want: true,
		},
		{
			name: "case and whitespace are normalized",
			html: `<body><h1>x</h1><p><a href=" #pathway ">
				  PATHWAYS
			</a></p></body>`,
			want: true,
		},
		{
			name: "nested label text",
			html: `<body><h1>x</h1><a href="#Pathway"><span>Path</span><b>ways</b></a></body>`,
			want: true,
		},
		{
			name: "no heading",
			html: `<body><a href="#PATHWAY">Pathways</a></body>`,
			want: false,
		},
		{
			name: "anchor only before the heading",
			html: `<body><nav><a href="#PATHWAY">Pathways</a></nav><h1>x</h1><p>nothing</p></body>`,
			want: false,
		},
		{
			name: "anchor inside the heading is not following it",
			html: `<body><h1>x <a href="#PATHWAY">Pathways</a></h1></body>`,
			want: false,
		},
		{
			name: "wrong fragment",
			html: `<body><h1>x</h1><a href="#REACTION">Pathways</a></body>`,
			want: false,
		},
		{
			name: "wrong label",
			html: `<body><h1>x</h1><a href="#PATHWAY">Pathway</a></body>`,
			want: false,
		},
		{
			name: "only the first heading anchors the rule",
			html: `<body><nav><a href="#PATHWAY">Pathways</a></nav><h1>a</h1><h1>b</h1></body>`,
			want: false,
		},
		{
			name: "anchor after a later heading still follows the first",
			html: `<body><h1>a</h1><section><h1>b</h1><a href="#PATHWAY">Pathways</a></section></body>`,
			want: true,
		},
		{
			name: "empty document",
			html: ``,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPathwaySignal(tt.html))
		})
	}
}

func TestRule_Idempotent(t *testing.T) {
	page := `<body><h1>x</h1><a href="#PATHWAY">Pathways</a></body>`
	r := DefaultRule()
	first := r.Match(page)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Match(page))
	}
}

func TestNewRule_CustomFragment(t *testing.T) {
	r, err := NewRule("h2.title", "#REACTION", "Reactions")
	require.NoError(t, err)

	assert.True(t, r.Match(`<h1>a</h1><h2 class="title">b</h2><a href="#reaction">reactions</a>`))
	assert.False(t, r.Match(`<h1>a</h1><a href="#reaction">reactions</a>`))
}

func TestNewRule_BadSelector(t *testing.T) {
	_, err := NewRule("h1[", DefaultFragment, DefaultLabel)
	assert.Error(t, err)
}

func TestExtractor_ReadsSessionWithoutMutating(t *testing.T) {
	page := `<body><h1>Glucose</h1><a href="#PATHWAY">Pathways</a></body>`
	s := browsertest.New(&browsertest.Site{
		Pages: map[string]string{"https://pmn.test/": page},
	})
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, "https://pmn.test/", 0))

	x := NewExtractor(nil)
	assert.True(t, x.HasPathwaySignal(ctx, s))
	assert.True(t, x.HasPathwaySignal(ctx, s))

	assert.Empty(t, s.Clicks)
	assert.Equal(t, []string{"https://pmn.test/"}, s.Navigations)
	loc, _ := s.CurrentLocation(ctx)
	assert.Equal(t, "https://pmn.test/", loc)
}

type brokenDOM struct {
	*browsertest.Session
}

func (brokenDOM) HTML(context.Context) (string, error) {
	return "", errors.New("target closed")
}

func TestExtractor_SnapshotFailureIsNoSignal(t *testing.T) {
	s := brokenDOM{browsertest.New(&browsertest.Site{})}
	assert.False(t, NewExtractor(nil).HasPathwaySignal(context.Background(), s))
}

func TestExtractor_FrozenPageIsBounded(t *testing.T) {
	old := snapshotTimeout
	snapshotTimeout = 50 * time.Millisecond
	t.Cleanup(func() { snapshotTimeout = old })

	page := `<body><h1>Glucose</h1><a href="#PATHWAY">Pathways</a></body>`
	s := browsertest.New(&browsertest.Site{
		Pages:  map[string]string{"https://pmn.test/": page},
		Frozen: map[string]bool{"https://pmn.test/": true},
	})
	require.NoError(t, s.Navigate(context.Background(), "https://pmn.test/", 0))

	start := time.Now()
	assert.False(t, NewExtractor(nil).HasPathwaySignal(context.Background(), s))
	assert.Less(t, time.Since(start), time.Second)
}
