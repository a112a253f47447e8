// ask.go implements the "medsplain ask" command.
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medsplain/medsplain/internal/orchestrator"
)

func newAskCmd() *cobra.Command {
	var levelFlag string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a question about medications",
		Long: `Ask the assistant a free-form question. --level controls how
technical the answer is: Basic, Intermediate or Expert.`,
		Example: `  medsplain ask "can I take ibuprofen with coffee?"
  medsplain ask --level expert "how does warfarin work?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			var level orchestrator.Level
			if levelFlag != "" {
				level, err = orchestrator.ParseLevel(levelFlag)
				if err != nil {
					return err
				}
			}

			prompt := strings.Join(args, " ")
			return a.oneShot(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), "Asking the assistant", func(ctx context.Context) error {
				return a.orch.Ask(ctx, prompt, level)
			})
		},
	}

	cmd.Flags().StringVar(&levelFlag, "level", "", "Answer level: Basic, Intermediate or Expert (default from config)")
	return cmd
}
