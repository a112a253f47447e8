// init.go implements the "medsplain init" command.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/medsplain/medsplain/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Create .medsplain/config.yaml with default settings. Environment
variables and .env files still override it at run time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := resolveHome()
			if err != nil {
				return err
			}

			path := filepath.Join(config.Dir(home), "config.yaml")
			if _, statErr := os.Stat(path); statErr == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			} else if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, statErr)
			}

			if err := config.WriteConfig(home, config.DefaultConfig()); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Medsplain initialized")
			fmt.Fprintf(out, "Configuration written to %s\n", path)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintf(out, "  1. Point api.base_url at your backend (or set %s)\n", config.EnvAPIURL)
			fmt.Fprintln(out, "  2. Run: medsplain lookup ibuprofen")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	return cmd
}
