// Package cli defines Cobra command definitions for the medsplain CLI.
// This file contains the root command, version flag, and help output.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medsplain/medsplain/internal/tui"
	"github.com/medsplain/medsplain/prompts"
)

var (
	homeDir string
	version = "dev" // set via ldflags at build time
)

// errReported marks failures whose details were already written for the
// user.
var errReported = errors.New("reported")

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "medsplain",
		Short:         "Plain-language medication information in your terminal",
		Long:          prompts.About,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// When no subcommand is provided, launch TUI if TTY, show help otherwise
			if !tui.IsTTY() {
				return cmd.Help()
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			return tui.Run(tui.NewChatModel(cmd.Context(), a.orch))
		},
	}

	cmd.PersistentFlags().StringVar(&homeDir, "home", "", "Directory holding .medsplain/ (defaults to your home directory)")

	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newInteractionsCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newFeedbackCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
