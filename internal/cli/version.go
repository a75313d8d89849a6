package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/version"
)

// NewVersionCmd creates the 'version' command.
func NewVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the prompt-hub version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("prompt-hub %s\n", version.Version)

			if !check {
				return nil
			}
			latest, err := version.CheckUpdate(cmd.Context())
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}
			if latest != "" {
				fmt.Printf("A newer release is available: %s\n", latest)
			} else {
				fmt.Println("Up to date.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}
