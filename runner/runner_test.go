package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pmnprobe/browser"
	"github.com/use-agent/pmnprobe/browser/browsertest"
	"github.com/use-agent/pmnprobe/config"
	"github.com/use-agent/pmnprobe/input"
	"github.com/use-agent/pmnprobe/ledger"
	"github.com/use-agent/pmnprobe/models"
	"github.com/use-agent/pmnprobe/probe"
)

const homeURL = "https://pmn.test/"

func testSite() *browsertest.Site {
	return &browsertest.Site{
		Pages: map[string]string{
			homeURL: `<html><body><input id="pmn-search-query"></body></html>`,
		},
		Results: map[string]string{
			"glucose":    `<html><body><h1>glucose</h1><a href="#PATHWAY">Pathways</a></body></html>`,
			"xyloglucan": `<html><body><h1>xyloglucan</h1><a href="#GENE">Genes</a></body></html>`,
		},
	}
}

func probeFactory(entries ...string) ExecutorFactory {
	cfg := config.Defaults().Search
	cfg.EntryURLs = entries
	cfg.ReadyTimeout = 100 * time.Millisecond
	cfg.InputTimeout = 100 * time.Millisecond
	cfg.ResultTimeout = 100 * time.Millisecond
	cfg.DialogTimeout = 0
	cfg.SettleDelay = 0
	return func(s browser.Session) Executor {
		return probe.NewExecutor(s, cfg, time.Second, nil)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	s := browsertest.New(testSite())
	path := filepath.Join(t.TempDir(), "pmn_has_pathway.csv")
	led, err := ledger.New(path)
	require.NoError(t, err)

	var progress bytes.Buffer
	r := New(s.Opener(), probeFactory(homeURL), led, 0, &progress)

	targets := input.NormalizeNames([]string{"glucose", "", "glucose", "xyloglucan"})
	sum, err := r.Run(context.Background(), targets)
	require.NoError(t, err)

	assert.Equal(t, models.Summary{Total: 2, Yes: 1, No: 1}, sum)
	assert.Equal(t, []models.QueryOutcome{
		{Query: "glucose", Result: models.ResultYes, Location: "https://pmn.test/search?q=glucose", Note: "ok"},
		{Query: "xyloglucan", Result: models.ResultNo, Location: "https://pmn.test/search?q=xyloglucan", Note: "no-pathway-link-under-h1"},
	}, led.Outcomes())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"query,has_pathway,hit_url,note\n"+
			"glucose,YES,https://pmn.test/search?q=glucose,ok\n"+
			"xyloglucan,NO,https://pmn.test/search?q=xyloglucan,no-pathway-link-under-h1\n",
		string(data))

	assert.Equal(t,
		"[1/2] glucose -> YES  (https://pmn.test/search?q=glucose)\n"+
			"[2/2] xyloglucan -> NO  (https://pmn.test/search?q=xyloglucan)\n",
		progress.String())
	assert.Equal(t, 1, s.Closes)
}

func TestRun_NavigationFailureIsNotFatal(t *testing.T) {
	s := browsertest.New(testSite())
	led, err := ledger.New(filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)

	r := New(s.Opener(), probeFactory("https://down.pmn.test/"), led, 0, nil)
	sum, err := r.Run(context.Background(), input.NormalizeNames([]string{"glucose", "sucrose"}))
	require.NoError(t, err)

	assert.Equal(t, models.Summary{Total: 2, No: 2, Failed: 2}, sum)
	for _, o := range led.Outcomes() {
		assert.Equal(t, models.ResultNo, o.Result)
		assert.Contains(t, o.Note, models.NotePrefixHome+":")
	}
	assert.Equal(t, 1, s.Closes)
}

type fakeExecutor struct {
	calls []string
}

func (f *fakeExecutor) Execute(_ context.Context, q string) models.QueryOutcome {
	f.calls = append(f.calls, q)
	return models.QueryOutcome{Query: q, Result: models.ResultYes, Note: models.NoteOK}
}

type failingLedger struct {
	after int
	n     int
}

func (l *failingLedger) Record(models.QueryOutcome) error {
	l.n++
	if l.n > l.after {
		return models.NewProbeError(models.ErrCodeLedgerWrite, "disk full", nil)
	}
	return nil
}

func (l *failingLedger) Path() string { return "/dev/full" }

func TestRun_LedgerFailureIsFatal(t *testing.T) {
	s := browsertest.New(&browsertest.Site{})
	exec := &fakeExecutor{}
	r := New(s.Opener(), func(browser.Session) Executor { return exec }, &failingLedger{after: 1}, 0, nil)

	sum, err := r.Run(context.Background(), input.NormalizeNames([]string{"a", "b", "c"}))
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeLedgerWrite, models.CodeOf(err))
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, []string{"a", "b"}, exec.calls)
	assert.Equal(t, 1, s.Closes, "session released on the error path")
}

func TestRun_OpenFailure(t *testing.T) {
	wantErr := models.NewProbeError(models.ErrCodeDriverMissing, "no chrome", nil)
	open := func(context.Context) (browser.Session, error) { return nil, wantErr }
	r := New(open, nil, &failingLedger{after: 10}, 0, nil)

	_, err := r.Run(context.Background(), input.NormalizeNames([]string{"a"}))
	assert.ErrorIs(t, err, wantErr)
}

func TestRun_EmptyTargetsDoesNotOpenBrowser(t *testing.T) {
	opened := false
	open := func(context.Context) (browser.Session, error) {
		opened = true
		return nil, errors.New("unexpected")
	}
	r := New(open, nil, &failingLedger{}, 0, nil)

	sum, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.False(t, opened)
}

func TestRun_CancelStopsBetweenQueries(t *testing.T) {
	s := browsertest.New(&browsertest.Site{})
	ctx, cancel := context.WithCancel(context.Background())
	exec := &cancellingExecutor{cancel: cancel}
	r := New(s.Opener(), func(browser.Session) Executor { return exec }, &failingLedger{after: 10}, time.Hour, nil)

	sum, err := r.Run(ctx, input.NormalizeNames([]string{"a", "b", "c"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Total, "the in-flight query is still recorded")
	assert.Equal(t, []string{"a"}, exec.calls)
	assert.NoError(t, exec.ctxErr, "the query itself is not cancelled")
	assert.Equal(t, 1, s.Closes)
}

type cancellingExecutor struct {
	fakeExecutor
	cancel context.CancelFunc
	ctxErr error
}

func (c *cancellingExecutor) Execute(ctx context.Context, q string) models.QueryOutcome {
	c.cancel()
	c.ctxErr = ctx.Err()
	return c.fakeExecutor.Execute(ctx, q)
}

func TestRun_PacingDelay(t *testing.T) {
	s := browsertest.New(&browsertest.Site{})
	exec := &fakeExecutor{}
	r := New(s.Opener(), func(browser.Session) Executor { return exec }, &failingLedger{after: 10}, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := r.Run(context.Background(), input.NormalizeNames([]string{"a", "b", "c"}))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRun_NoPauseAfterLastQuery(t *testing.T) {
	s := browsertest.New(&browsertest.Site{})
	exec := &fakeExecutor{}
	r := New(s.Opener(), func(browser.Session) Executor { return exec }, &failingLedger{after: 10}, time.Hour, nil)

	var pauses []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	sum, err := r.Run(context.Background(), input.NormalizeNames([]string{"a", "b", "c"}))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, []time.Duration{time.Hour, time.Hour}, pauses)

	pauses = nil
	_, err = r.Run(context.Background(), input.NormalizeNames([]string{"only"}))
	require.NoError(t, err)
	assert.Empty(t, pauses)
}
