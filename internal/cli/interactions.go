// interactions.go implements the "medsplain interactions" command.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newInteractionsCmd() *cobra.Command {
	var text string

	cmd := &cobra.Command{
		Use:   "interactions [medication...]",
		Short: "Check medications for interactions with each other",
		Long: `Check every pair of the given medications for known interactions.
Names can be given as arguments or as one comma separated list with --text.`,
		Example: `  medsplain interactions aspirin warfarin
  medsplain interactions --text "aspirin, warfarin; ibuprofen"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			sess := a.orch.Session()
			for _, name := range args {
				sess.AddSelectedMedication(name)
			}
			return a.oneShot(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), "Checking interactions", func(ctx context.Context) error {
				return a.orch.CheckInteractions(ctx, text)
			})
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Medications separated by commas, semicolons or newlines")
	return cmd
}
