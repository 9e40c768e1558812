package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/use-agent/pmnprobe/config"
)

// buildConfig layers defaults, the config file, PMN_* environment variables
// and finally any flags the user set explicitly. It returns the config file
// used, if any.
func buildConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}
	cfg, used, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, "", fmt.Errorf("%w: %s", err, path)
		}
		return nil, "", fmt.Errorf("read config %s: %w", path, err)
	}

	f := cmd.Flags()
	if f.Changed("input") {
		cfg.Run.InputPath, _ = f.GetString("input")
	}
	if f.Changed("column") {
		cfg.Run.NameColumn, _ = f.GetString("column")
	}
	if f.Changed("output") {
		cfg.Run.OutputPath, _ = f.GetString("output")
	}
	if f.Changed("layout") {
		cfg.Run.Layout, _ = f.GetString("layout")
	}
	if f.Changed("offset") {
		cfg.Run.Offset, _ = f.GetInt("offset")
	}
	if f.Changed("limit") {
		cfg.Run.Limit, _ = f.GetInt("limit")
	}
	if f.Changed("delay") {
		cfg.Run.Delay, _ = f.GetDuration("delay")
	}
	if f.Changed("headless") {
		cfg.Browser.Headless, _ = f.GetBool("headless")
	}
	if f.Changed("browser-bin") {
		cfg.Browser.BrowserBin, _ = f.GetString("browser-bin")
	}
	return cfg, used, nil
}

// addBrowserFlags registers the flags shared by every command that drives
// the browser.
func addBrowserFlags(cmd *cobra.Command, d *config.Config) {
	cmd.Flags().Bool("headless", d.Browser.Headless, "Run the browser without a window")
	cmd.Flags().String("browser-bin", "", "Chrome/Chromium binary (default: first one found on PATH)")
	cmd.Flags().Duration("delay", d.Run.Delay, "Pause after every query")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, _ = cmd.Root().PersistentFlags().GetBool("verbose")
	}
	return verbose
}
