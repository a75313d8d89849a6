package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// NewStatsCmd creates the 'stats' command showing the combined engagement
// view for a resource.
func NewStatsCmd() *cobra.Command {
	var (
		hubID        string
		resourceType string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "stats <resource-id>",
		Short: "Show ratings, feedback, and usage for a resource",
		Example: `  prompt-hub stats my-bundle
  prompt-hub stats writing-assistant --type profile --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrDefaultConfig()
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Dispose()

			eng, err := svc.GetResourceEngagement(cmd.Context(), hubID, resourceType, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(eng)
			}

			fmt.Printf("Engagement for %s/%s\n\n", resourceType, args[0])
			if eng.Ratings != nil {
				fmt.Printf("  Ratings:   %d (average %.2f)\n", eng.Ratings.RatingCount, eng.Ratings.AverageRating)
				for score := 5; score >= 1; score-- {
					if n := eng.Ratings.Distribution[score]; n > 0 {
						fmt.Printf("    %d star: %d\n", score, n)
					}
				}
			}
			fmt.Printf("  Installs:  %d\n", eng.Telemetry.InstallCount)
			fmt.Printf("  Views:     %d\n", eng.Telemetry.ViewCount)
			if eng.Telemetry.LastActivity != "" {
				fmt.Printf("  Last activity: %s\n", eng.Telemetry.LastActivity)
			}
			if len(eng.RecentFeedback) > 0 {
				fmt.Printf("\n  Recent feedback:\n")
				for _, f := range eng.RecentFeedback {
					fmt.Printf("    [%s] %s\n", f.Timestamp, f.Comment)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend serves the data")
	cmd.Flags().StringVar(&resourceType, "type", storage.ResourceBundle, "Resource type: bundle, profile, or hub")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}
