package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pmnprobe.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pmnprobe",
		Short: "Check which metabolites have PlantCyc pathways",
		Long: `pmnprobe searches PlantCyc for each metabolite name in a CSV table and
records YES when the search result page links to a Pathways section, NO
otherwise. The output table is rewritten after every query, so an
interrupted run leaves a complete file behind.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: ./.pmnprobe.yaml or $XDG_CONFIG_HOME/pmnprobe/config.yaml)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
