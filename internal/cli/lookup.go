// lookup.go implements the "medsplain lookup" command.
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <medication>",
		Short: "Show information about a medication",
		Long: `Look up a medication by name and show its class, uses, dosage,
side effects, warnings and known interactions.`,
		Example: "  medsplain lookup ibuprofen",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			return a.oneShot(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), "Looking up "+name, func(ctx context.Context) error {
				return a.orch.Lookup(ctx, name)
			})
		},
	}
}
