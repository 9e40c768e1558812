package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/pmnprobe/config"
	"github.com/use-agent/pmnprobe/extract"
	"github.com/use-agent/pmnprobe/input"
	"github.com/use-agent/pmnprobe/models"
	"github.com/use-agent/pmnprobe/runner"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	d := config.Defaults()
	cmd := &cobra.Command{
		Use:   "check [name...]",
		Short: "Query a few names without writing a table",
		Long: `Check searches PlantCyc for the names given on the command line and prints
each outcome with its diagnostic note. Nothing is written to disk.

With --html, no browser is started: the pathway rule is applied to saved
result pages instead.

Examples:
  pmnprobe check glucose xyloglucan
  pmnprobe check --html saved-result.html`,
		RunE: runCheckCmd,
	}

	cmd.Flags().StringSlice("html", nil, "Apply the pathway rule to saved HTML files instead")
	addBrowserFlags(cmd, d)

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg.Log, getVerboseFlag(cmd), cmd.ErrOrStderr())

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	files, _ := cmd.Flags().GetStringSlice("html")
	if len(files) > 0 {
		return checkFiles(cmd, cfg, files)
	}
	if len(args) == 0 {
		_ = cmd.Help()
		return fmt.Errorf("no names given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newExecutor, err := executorFactory(cfg)
	if err != nil {
		return err
	}
	rec := &memoryRecorder{}
	_, err = runner.New(rodOpener(cfg.Browser), newExecutor, rec, cfg.Run.Delay, cmd.OutOrStdout()).
		Run(ctx, input.NormalizeNames(args))
	for _, o := range rec.outcomes {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", o.Query, o.Note)
	}
	return err
}

func checkFiles(cmd *cobra.Command, cfg *config.Config, files []string) error {
	rule, err := extract.NewRule(cfg.Search.HeadingSelector, cfg.Search.PathwayFragment, cfg.Search.PathwayLabel)
	if err != nil {
		return err
	}
	for _, name := range files {
		data, err := os.ReadFile(name) //nolint:gosec // user-provided path
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, models.ResultOf(rule.Match(string(data))))
	}
	return nil
}

// memoryRecorder keeps outcomes in memory for check.
type memoryRecorder struct {
	outcomes []models.QueryOutcome
}

func (m *memoryRecorder) Record(o models.QueryOutcome) error {
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memoryRecorder) Path() string { return "" }
