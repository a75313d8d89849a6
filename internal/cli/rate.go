package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// NewRateCmd creates the 'rate' command for submitting or removing a rating.
func NewRateCmd() *cobra.Command {
	var (
		hubID        string
		resourceType string
		version      string
		remove       bool
	)

	cmd := &cobra.Command{
		Use:   "rate <resource-id> [score]",
		Short: "Rate a bundle, profile, or hub (1-5 stars)",
		Long: `Submit a 1-5 star rating for a resource.

A second rating for the same resource replaces the first. With a hub whose
backend is github-discussions, scores of 3 and above post a 👍 reaction and
lower scores post a 👎; the rating is always kept locally even when the
remote post fails.`,
		Example: `  prompt-hub rate my-bundle 5
  prompt-hub rate my-bundle 4 --hub community
  prompt-hub rate my-profile 3 --type profile
  prompt-hub rate my-bundle --delete`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resourceID := args[0]

			cfg, err := loadOrDefaultConfig()
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Dispose()

			if remove {
				if err := svc.DeleteRating(cmd.Context(), hubID, resourceType, resourceID); err != nil {
					return err
				}
				fmt.Printf("Removed rating for %s\n", resourceID)
				return nil
			}

			if len(args) < 2 {
				return fmt.Errorf("score required: prompt-hub rate %s <1-5>", resourceID)
			}
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid score %q: expected 1-5", args[1])
			}

			status, err := svc.SubmitRating(cmd.Context(), hubID, resourceType, resourceID, score, version)
			if err != nil {
				return err
			}

			fmt.Printf("Rated %s: %d/5\n", resourceID, score)
			if status.Synced {
				fmt.Println("Synced to hub discussions.")
			} else if status.RemoteError != "" {
				fmt.Printf("Stored locally only (%s)\n", status.RemoteError)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend handles the rating")
	cmd.Flags().StringVar(&resourceType, "type", storage.ResourceBundle, "Resource type: bundle, profile, or hub")
	cmd.Flags().StringVar(&version, "version", "", "Resource version being rated")
	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the stored rating instead")

	return cmd
}
