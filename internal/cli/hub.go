package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/config"
	"github.com/promptreg/prompt-hub/internal/engagement"
	"github.com/promptreg/prompt-hub/internal/storage"
)

// NewHubCmd creates the 'hub' command group for managing registered hubs.
func NewHubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Add, remove, and list prompt hubs",
	}

	cmd.AddCommand(newHubAddCmd())
	cmd.AddCommand(newHubRemoveCmd())
	cmd.AddCommand(newHubListCmd())
	return cmd
}

func newHubAddCmd() *cobra.Command {
	var (
		backendType    string
		url            string
		collectionsURL string
		repository     string
		disabled       bool
	)

	cmd := &cobra.Command{
		Use:   "add <hub-id>",
		Short: "Register a hub in the configuration",
		Example: `  prompt-hub hub add community --repo example/community-hub \
      --url https://hub.example.com \
      --collections https://hub.example.com/collections.yaml
  prompt-hub hub add local --type file`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hubID := args[0]

			cfg, err := loadOrDefaultConfig()
			if err != nil {
				return err
			}
			if cfg.Hubs == nil {
				cfg.Hubs = make(map[string]*config.HubConfig)
			}
			if _, exists := cfg.Hubs[hubID]; exists {
				return fmt.Errorf("hub %q already exists; remove it first to change its settings", hubID)
			}
			if backendType == engagement.BackendGitHubDiscussions && repository == "" {
				return fmt.Errorf("--repo is required for the github-discussions backend")
			}

			cfg.Hubs[hubID] = &config.HubConfig{
				Type:           backendType,
				Enabled:        !disabled,
				URL:            url,
				CollectionsURL: collectionsURL,
				Repository:     repository,
			}

			path, err := config.GetDefaultConfigPath()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Printf("Added hub %q (%s backend)\n", hubID, backendType)

			recordHubEvent(cmd, cfg, storage.EventHubAdd, hubID)
			return nil
		},
	}

	cmd.Flags().StringVar(&backendType, "type", engagement.BackendFile, "Backend type: file, sqlite, or github-discussions")
	cmd.Flags().StringVar(&url, "url", "", "Hub base URL serving ratings.json and feedbacks.json")
	cmd.Flags().StringVar(&collectionsURL, "collections", "", "URL of the hub's collections.yaml")
	cmd.Flags().StringVar(&repository, "repo", "", "owner/repo discussions repository (github-discussions)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the hub without enabling it")
	return cmd
}

func newHubRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <hub-id>",
		Short: "Remove a hub from the configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hubID := args[0]

			cfg, err := loadOrDefaultConfig()
			if err != nil {
				return err
			}
			if _, exists := cfg.Hubs[hubID]; !exists {
				return fmt.Errorf("hub %q is not configured", hubID)
			}

			// Record against the remaining configuration so the event
			// lands in the default store, not the removed hub's backend.
			delete(cfg.Hubs, hubID)

			path, err := config.GetDefaultConfigPath()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Printf("Removed hub %q\n", hubID)

			recordHubEvent(cmd, cfg, storage.EventHubRemove, hubID)
			return nil
		},
	}
	return cmd
}

func newHubListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured hubs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrDefaultConfig()
			if err != nil {
				return err
			}
			if len(cfg.Hubs) == 0 {
				fmt.Println("No hubs configured. Run 'prompt-hub hub add' to register one.")
				return nil
			}

			ids := make([]string, 0, len(cfg.Hubs))
			for id := range cfg.Hubs {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				h := cfg.Hubs[id]
				state := "enabled"
				if !h.Enabled {
					state = "disabled"
				}
				fmt.Printf("  %s  (%s, %s)\n", id, h.Type, state)
				if h.URL != "" {
					fmt.Printf("    URL:        %s\n", h.URL)
				}
				if h.Repository != "" {
					fmt.Printf("    Repository: %s\n", h.Repository)
				}
			}
			return nil
		},
	}
	return cmd
}

// recordHubEvent records a hub lifecycle telemetry event. Best effort: the
// hub change already succeeded, so telemetry failures only log.
func recordHubEvent(cmd *cobra.Command, cfg *config.Config, eventType, hubID string) {
	svc, err := buildService(cmd.Context(), cfg)
	if err != nil {
		return
	}
	defer svc.Dispose()
	_ = svc.RecordTelemetry(cmd.Context(), "", eventType, storage.ResourceHub, hubID, "", nil)
}
