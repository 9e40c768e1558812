package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/use-agent/pmnprobe/browser"
	"github.com/use-agent/pmnprobe/config"
	"github.com/use-agent/pmnprobe/extract"
	"github.com/use-agent/pmnprobe/input"
	"github.com/use-agent/pmnprobe/ledger"
	"github.com/use-agent/pmnprobe/models"
	"github.com/use-agent/pmnprobe/probe"
	"github.com/use-agent/pmnprobe/runner"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	d := config.Defaults()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Query every name in a CSV table",
		Long: `Run reads the names in one column of a CSV table, removes blanks and
duplicates, and searches PlantCyc for each one in order. Every result is
written to the output table immediately.

Examples:
  # Names in the "name" column, results in ./pmn_has_pathway.csv
  pmnprobe run -i metabolites.csv

  # Write YES/NO back into a copy of the input table
  pmnprobe run -i metabolites.csv --layout annotate -o annotated.csv

  # Second thousand names only, with a visible browser
  pmnprobe run -i metabolites.csv --offset 1000 --limit 1000 --headless=false`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("input", "i", "", "Input CSV table")
	cmd.Flags().String("column", d.Run.NameColumn, "Header of the column holding the names")
	cmd.Flags().StringP("output", "o", d.Run.OutputPath, "Output CSV table")
	cmd.Flags().String("layout", d.Run.Layout, `Output layout: "outcomes" or "annotate"`)
	cmd.Flags().Int("offset", 0, "Skip this many names (after deduplication)")
	cmd.Flags().Int("limit", 0, "Query at most this many names (0 = all)")
	addBrowserFlags(cmd, d)

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, cfgFile, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg.Log, getVerboseFlag(cmd), cmd.ErrOrStderr())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	slog.SetDefault(slog.Default().With("run_id", uuid.NewString()))
	slog.Info("pmnprobe starting", "config_file", cfgFile, "settings", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runProbe(ctx, cfg, rodOpener(cfg.Browser), cmd.OutOrStdout())
}

// rodOpener launches the real browser.
func rodOpener(cfg config.BrowserConfig) browser.Opener {
	return func(ctx context.Context) (browser.Session, error) {
		s, err := browser.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// runProbe loads the input, prepares the ledger and hands the targets to the
// runner. All input problems surface before the browser starts.
func runProbe(ctx context.Context, cfg *config.Config, open browser.Opener, out io.Writer) error {
	tbl, err := input.ReadTable(cfg.Run.InputPath, cfg.Run.Encodings)
	if err != nil {
		return err
	}
	col, err := tbl.Column(cfg.Run.NameColumn)
	if err != nil {
		return err
	}
	all, err := input.Normalize(tbl, cfg.Run.NameColumn)
	if err != nil {
		return err
	}
	targets := input.Window{Offset: cfg.Run.Offset, Limit: cfg.Run.Limit}.Apply(all)
	slog.Info("input loaded",
		"path", cfg.Run.InputPath,
		"encoding", tbl.Encoding,
		"rows", len(tbl.Rows),
		"distinct", len(all),
		"selected", len(targets),
	)

	var led *ledger.Ledger
	if ledger.Layout(cfg.Run.Layout) == ledger.LayoutAnnotate {
		led, err = ledger.NewAnnotated(cfg.Run.OutputPath, tbl, col)
	} else {
		led, err = ledger.New(cfg.Run.OutputPath)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Output: %s\n", led.Path())
	if err := led.Flush(); err != nil {
		return err
	}

	newExecutor, err := executorFactory(cfg)
	if err != nil {
		return err
	}

	sum, err := runner.New(open, newExecutor, led, cfg.Run.Delay, out).Run(ctx, targets)
	printSummary(out, sum, led.Path())
	return err
}

// executorFactory compiles the extraction rule once and binds executors to
// whatever session the runner opens.
func executorFactory(cfg *config.Config) (runner.ExecutorFactory, error) {
	rule, err := extract.NewRule(cfg.Search.HeadingSelector, cfg.Search.PathwayFragment, cfg.Search.PathwayLabel)
	if err != nil {
		return nil, models.NewProbeError(models.ErrCodeInvalidConfig, "bad heading selector", err)
	}
	x := extract.NewExtractor(rule)
	return func(s browser.Session) runner.Executor {
		return probe.NewExecutor(s, cfg.Search, cfg.Browser.PageLoadTimeout, x)
	}, nil
}

func printSummary(out io.Writer, sum models.Summary, path string) {
	fmt.Fprintf(out, "Done: %d queried, %d YES, %d NO (%d of them failures). Results: %s\n",
		sum.Total, sum.Yes, sum.No, sum.Failed, path)
}
