package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pmnprobe/browser"
	"github.com/use-agent/pmnprobe/browser/browsertest"
)

func TestWithDeadlines_Wrapping(t *testing.T) {
	s := browsertest.New(&browsertest.Site{})

	assert.Same(t, browser.Session(s), withDeadlines(s, 0))

	short := withDeadlines(s, time.Second)
	assert.Same(t, short, withDeadlines(short, time.Minute), "a tighter wrapper is reused")
	assert.NotSame(t, short, withDeadlines(short, time.Millisecond))
}

func TestWithDeadlines_BoundsBlockedCalls(t *testing.T) {
	site := &browsertest.Site{Pages: map[string]string{homeURL: homePage}}
	s := withDeadlines(browsertest.New(site), 30*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, homeURL, time.Second))
	els, err := s.Find(ctx, browser.CSS, "#pmn-search-query")
	require.NoError(t, err)
	require.Len(t, els, 1)

	site.Frozen = map[string]bool{homeURL: true}
	start := time.Now()

	_, err = s.HTML(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = s.Find(ctx, browser.CSS, "h1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = els[0].Text(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, els[0].Click(ctx), context.DeadlineExceeded)

	assert.Less(t, time.Since(start), time.Second)
}
