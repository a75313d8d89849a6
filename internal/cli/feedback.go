package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/search"
	"github.com/promptreg/prompt-hub/internal/storage"
)

// NewFeedbackCmd creates the 'feedback' command group.
func NewFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Submit, list, search, and delete feedback",
	}

	cmd.AddCommand(newFeedbackAddCmd())
	cmd.AddCommand(newFeedbackListCmd())
	cmd.AddCommand(newFeedbackDeleteCmd())
	cmd.AddCommand(newFeedbackSearchCmd())
	return cmd
}

func newFeedbackAddCmd() *cobra.Command {
	var (
		hubID        string
		resourceType string
		rating       int
		version      string
	)

	cmd := &cobra.Command{
		Use:   "add <resource-id> <comment>",
		Short: "Submit feedback for a resource",
		Example: `  prompt-hub feedback add my-bundle "Great starting point"
  prompt-hub feedback add my-bundle "Solid but slow" --rating 3 --hub community`,
		Args: cobra.ExactArgs(2),
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

			status, err := svc.SubmitFeedback(cmd.Context(), hubID, resourceType, args[0], args[1], rating, version)
			if err != nil {
				return err
			}

			fmt.Printf("Feedback recorded for %s\n", args[0])
			if status.Synced {
				fmt.Println("Posted to hub discussions.")
			} else if status.RemoteError != "" {
				fmt.Printf("Stored locally only (%s)\n", status.RemoteError)
			}

			// Instrumentation; a no-op unless telemetry is enabled.
			_ = svc.RecordTelemetry(cmd.Context(), hubID, storage.EventFeedbackSubmit, resourceType, args[0], version, nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend handles the feedback")
	cmd.Flags().StringVar(&resourceType, "type", storage.ResourceBundle, "Resource type: bundle, profile, or hub")
	cmd.Flags().IntVar(&rating, "rating", 0, "Optional 1-5 rating to attach")
	cmd.Flags().StringVar(&version, "version", "", "Resource version the feedback applies to")
	return cmd
}

func newFeedbackListCmd() *cobra.Command {
	var (
		hubID        string
		resourceType string
		limit        int
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "list <resource-id>",
		Short: "List feedback for a resource, newest first",
		Args:  cobra.ExactArgs(1),
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

			entries, err := svc.GetFeedback(cmd.Context(), hubID, resourceType, args[0], limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Println("No feedback recorded.")
				return nil
			}
			for _, f := range entries {
				printFeedback(f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend serves the listing")
	cmd.Flags().StringVar(&resourceType, "type", storage.ResourceBundle, "Resource type: bundle, profile, or hub")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to show (0 = all)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newFeedbackDeleteCmd() *cobra.Command {
	var hubID string

	cmd := &cobra.Command{
		Use:   "delete <feedback-id>",
		Short: "Delete a feedback entry by id",
		Args:  cobra.ExactArgs(1),
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

			if err := svc.DeleteFeedback(cmd.Context(), hubID, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted feedback %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend holds the entry")
	return cmd
}

func newFeedbackSearchCmd() *cobra.Command {
	var (
		hubID string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across stored feedback comments",
		Example: `  prompt-hub feedback search "slow startup"
  prompt-hub feedback search regression --limit 5`,
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

			// The index is a projection of the local feedback store,
			// rebuilt per invocation.
			index, err := search.NewFeedbackIndex()
			if err != nil {
				return err
			}
			defer index.Close()

			entries, err := svc.AllFeedback(hubID)
			if err != nil {
				return err
			}
			if err := index.IndexAll(entries); err != nil {
				return err
			}

			hits, err := index.Search(args[0], limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("No matching feedback.")
				return nil
			}
			for _, h := range hits {
				printFeedback(h.Feedback)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend holds the feedback")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum results")
	return cmd
}

func printFeedback(f storage.Feedback) {
	fmt.Printf("  %s  [%s/%s]\n", f.ID, f.ResourceType, f.ResourceID)
	if f.Rating > 0 {
		fmt.Printf("    Rating:  %d/5\n", f.Rating)
	}
	fmt.Printf("    Date:    %s\n", f.Timestamp)
	fmt.Printf("    Comment: %s\n\n", f.Comment)
}
