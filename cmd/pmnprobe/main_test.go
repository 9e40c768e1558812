package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pmnprobe/browser"
	"github.com/use-agent/pmnprobe/browser/browsertest"
	"github.com/use-agent/pmnprobe/config"
	"github.com/use-agent/pmnprobe/models"
)

const homeURL = "https://pmn.test/"

func testConfig(t *testing.T, csv string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "metabolites.csv")
	require.NoError(t, os.WriteFile(in, []byte(csv), 0o600))

	cfg := config.Defaults()
	cfg.Run.InputPath = in
	cfg.Run.OutputPath = filepath.Join(dir, "pmn_has_pathway.csv")
	cfg.Run.Delay = 0
	cfg.Search.EntryURLs = []string{homeURL}
	cfg.Search.ReadyTimeout = 100 * time.Millisecond
	cfg.Search.InputTimeout = 100 * time.Millisecond
	cfg.Search.ResultTimeout = 100 * time.Millisecond
	cfg.Search.DialogTimeout = 0
	cfg.Search.SettleDelay = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func testSession() *browsertest.Session {
	return browsertest.New(&browsertest.Site{
		Pages: map[string]string{homeURL: `<body><input id="pmn-search-query"></body>`},
		Results: map[string]string{
			"glucose":    `<body><h1>glucose</h1><a href="#PATHWAY">Pathways</a></body>`,
			"xyloglucan": `<body><h1>xyloglucan</h1></body>`,
		},
	})
}

func TestRunProbe(t *testing.T) {
	cfg := testConfig(t, "id,name\n1,glucose\n2,\n3,glucose\n4,xyloglucan\n")
	s := testSession()
	var out bytes.Buffer

	require.NoError(t, runProbe(context.Background(), cfg, s.Opener(), &out))

	data, err := os.ReadFile(cfg.Run.OutputPath)
	require.NoError(t, err)
	assert.Equal(t,
		"query,has_pathway,hit_url,note\n"+
			"glucose,YES,https://pmn.test/search?q=glucose,ok\n"+
			"xyloglucan,NO,https://pmn.test/search?q=xyloglucan,no-pathway-link-under-h1\n",
		string(data))

	assert.Contains(t, out.String(), "Output: "+cfg.Run.OutputPath)
	assert.Contains(t, out.String(), "[1/2] glucose -> YES")
	assert.Contains(t, out.String(), "Done: 2 queried, 1 YES, 1 NO")
	assert.Equal(t, 1, s.Closes)
}

func TestRunProbe_AnnotateWithWindow(t *testing.T) {
	cfg := testConfig(t, "name,mass\nsucrose,342\nglucose,180\nxyloglucan,\n")
	cfg.Run.Layout = "annotate"
	cfg.Run.Offset = 1
	cfg.Run.Limit = 1

	require.NoError(t, runProbe(context.Background(), cfg, testSession().Opener(), &bytes.Buffer{}))

	data, err := os.ReadFile(cfg.Run.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "name,mass,has_pathway\nsucrose,342,\nglucose,180,YES\nxyloglucan,,\n", string(data))
}

func TestRunProbe_InputErrorsBeforeBrowser(t *testing.T) {
	cfg := testConfig(t, "compound\nglucose\n")
	opened := false
	open := func(context.Context) (browser.Session, error) {
		opened = true
		return testSession(), nil
	}

	err := runProbe(context.Background(), cfg, open, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeSchema, models.CodeOf(err))
	assert.False(t, opened)
	assert.NoFileExists(t, cfg.Run.OutputPath)
}

func TestBuildConfig_Precedence(t *testing.T) {
	t.Setenv("PMN_COLUMN", "from-env")
	t.Setenv("PMN_OUTPUT", "env.csv")

	cmd := NewRunCmd()
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--column", "from-flag", "--limit", "5", "--headless=false"}))

	cfg, _, err := buildConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Run.NameColumn)
	assert.Equal(t, "env.csv", cfg.Run.OutputPath)
	assert.Equal(t, 5, cfg.Run.Limit)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 900*time.Millisecond, cfg.Run.Delay)
}

func TestCheckCmd_HTMLFiles(t *testing.T) {
	dir := t.TempDir()
	yes := filepath.Join(dir, "yes.html")
	no := filepath.Join(dir, "no.html")
	require.NoError(t, os.WriteFile(yes, []byte(`<h1>x</h1><a href="#PATHWAY">Pathways</a>`), 0o600))
	require.NoError(t, os.WriteFile(no, []byte(`<a href="#PATHWAY">Pathways</a><h1>x</h1>`), 0o600))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--html", yes + "," + no})

	require.NoError(t, root.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{yes + " -> YES", no + " -> NO"}, lines)
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "check", "version"})
}

func TestVersionCmd(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "pmnprobe version ")
	assert.Contains(t, out.String(), "commit: ")
}
