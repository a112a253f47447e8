// feedback.go implements the "medsplain feedback" command.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medsplain/medsplain/internal/api"
)

func newFeedbackCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:     "feedback <medication>",
		Short:   "Tell us whether a medication explanation was helpful",
		Example: "  medsplain feedback ibuprofen --type unclear",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind = strings.ToLower(strings.TrimSpace(kind))
			if kind != api.FeedbackHelpful && kind != api.FeedbackUnclear {
				return fmt.Errorf("--type must be %q or %q, got %q", api.FeedbackHelpful, api.FeedbackUnclear, kind)
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			ack, err := a.orch.SubmitFeedback(cmd.Context(), strings.Join(args, " "), kind)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ack)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "type", api.FeedbackHelpful, "Feedback type: helpful or unclear")
	return cmd
}
