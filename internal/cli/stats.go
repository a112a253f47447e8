// stats.go implements the "medsplain stats" command summarising the event log.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medsplain/medsplain/internal/log"
	"github.com/medsplain/medsplain/internal/report"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise past requests from the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := resolveHome()
			if err != nil {
				return err
			}

			logger, err := log.NewLogger(home)
			if err != nil {
				return fmt.Errorf("opening event log: %w", err)
			}
			events, err := logger.ReadAll()
			if err != nil {
				return fmt.Errorf("reading event log: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), report.FormatSummary(report.Summarize(events)))
			return nil
		},
	}
}
