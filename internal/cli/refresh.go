package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/hub"
)

// NewRefreshCmd creates the 'refresh' command, which pulls published rating
// and feedback aggregates from configured hubs into the local caches.
func NewRefreshCmd() *cobra.Command {
	var hubID string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh cached rating and feedback aggregates from hubs",
		Example: `  prompt-hub refresh
  prompt-hub refresh --hub community`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrDefaultConfig()
			if err != nil {
				return err
			}

			ttl := cacheTTL(cfg)
			ratingCache := hub.NewRatingCache(hub.NewRatingService(ttl))
			feedbackCache := hub.NewFeedbackCache(hub.NewFeedbackService(ttl))

			refreshed := 0
			for id, h := range cfg.Hubs {
				if hubID != "" && id != hubID {
					continue
				}
				if !h.Enabled || h.URL == "" {
					continue
				}
				refreshed++

				if err := ratingCache.RefreshFromHub(cmd.Context(), id, h.URL+"/ratings.json"); err != nil {
					fmt.Printf("  %s: ratings refresh failed: %v\n", id, err)
				} else {
					fmt.Printf("  %s: %d bundle rating(s)\n", id, ratingCache.Count(id))
				}
				if err := feedbackCache.RefreshFromHub(cmd.Context(), id, h.URL+"/feedbacks.json"); err != nil {
					fmt.Printf("  %s: feedback refresh failed: %v\n", id, err)
				} else {
					fmt.Printf("  %s: %d bundle feedback list(s)\n", id, feedbackCache.Count(id))
				}
			}

			if refreshed == 0 {
				if hubID != "" {
					return fmt.Errorf("hub %q is not configured with a URL", hubID)
				}
				fmt.Println("No hubs with URLs configured.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Only refresh this hub")
	return cmd
}
