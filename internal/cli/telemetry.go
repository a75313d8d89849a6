package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/config"
	"github.com/promptreg/prompt-hub/internal/storage"
)

// NewTelemetryCmd creates the 'telemetry' command group.
func NewTelemetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Record, inspect, clear, and toggle usage telemetry",
		Long: `Record, inspect, clear, and toggle usage telemetry.

Telemetry is opt-in and stays on this machine unless a hub backend is
configured to share it. Nothing is recorded until 'telemetry on' is run.`,
	}

	cmd.AddCommand(newTelemetryRecordCmd())
	cmd.AddCommand(newTelemetryListCmd())
	cmd.AddCommand(newTelemetryClearCmd())
	cmd.AddCommand(newTelemetryToggleCmd("on", true))
	cmd.AddCommand(newTelemetryToggleCmd("off", false))
	return cmd
}

func newTelemetryRecordCmd() *cobra.Command {
	var (
		hubID        string
		resourceType string
		version      string
	)

	cmd := &cobra.Command{
		Use:   "record <event-type> <resource-id>",
		Short: "Record a telemetry event",
		Example: `  prompt-hub telemetry record bundle_install my-bundle
  prompt-hub telemetry record profile_apply writing-assistant --type profile`,
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

			if !svc.TelemetryEnabled() {
				fmt.Println("Telemetry is disabled; nothing recorded. Run 'prompt-hub telemetry on' to enable.")
				return nil
			}

			if err := svc.RecordTelemetry(cmd.Context(), hubID, args[0], resourceType, args[1], version, nil); err != nil {
				return err
			}
			fmt.Printf("Recorded %s for %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend stores the event")
	cmd.Flags().StringVar(&resourceType, "type", storage.ResourceBundle, "Resource type: bundle, profile, or hub")
	cmd.Flags().StringVar(&version, "version", "", "Resource version")
	return cmd
}

func newTelemetryListCmd() *cobra.Command {
	var (
		hubID        string
		eventTypes   []string
		resourceID   string
		startDate    string
		endDate      string
		limit        int
		jsonOutput   bool
		resourceKind []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded telemetry events",
		Args:  cobra.NoArgs,
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

			filter := &storage.TelemetryFilter{
				EventTypes:    eventTypes,
				ResourceTypes: resourceKind,
				ResourceID:    resourceID,
				StartDate:     startDate,
				EndDate:       endDate,
				Limit:         limit,
			}
			events, err := svc.GetTelemetry(cmd.Context(), hubID, filter)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(events)
			}
			if len(events) == 0 {
				fmt.Println("No telemetry events.")
				return nil
			}
			for _, e := range events {
				fmt.Printf("  %s  %-18s %s/%s", e.Timestamp, e.EventType, e.ResourceType, e.ResourceID)
				if e.Version != "" {
					fmt.Printf("  v%s", e.Version)
				}
				fmt.Println()
			}
			fmt.Printf("\n%d event(s)\n", len(events))
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend serves the listing")
	cmd.Flags().StringSliceVar(&eventTypes, "event", nil, "Filter by event type (repeatable)")
	cmd.Flags().StringSliceVar(&resourceKind, "type", nil, "Filter by resource type (repeatable)")
	cmd.Flags().StringVar(&resourceID, "resource", "", "Filter by resource id")
	cmd.Flags().StringVar(&startDate, "start", "", "Only events at or after this RFC3339 timestamp")
	cmd.Flags().StringVar(&endDate, "end", "", "Only events at or before this RFC3339 timestamp")
	cmd.Flags().IntVar(&limit, "limit", 0, "Keep only the most recent N events (0 = all)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

func newTelemetryClearCmd() *cobra.Command {
	var (
		hubID      string
		eventTypes []string
		resourceID string
		startDate  string
		endDate    string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear telemetry events",
		Long: `Clear telemetry events.

Without flags every event is removed. Date bounds only apply when both
--start and --end are given; a single bound is ignored.`,
		Args: cobra.NoArgs,
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

			var filter *storage.TelemetryFilter
			if len(eventTypes) > 0 || resourceID != "" || startDate != "" || endDate != "" {
				filter = &storage.TelemetryFilter{
					EventTypes: eventTypes,
					ResourceID: resourceID,
					StartDate:  startDate,
					EndDate:    endDate,
				}
			}
			if err := svc.ClearTelemetry(cmd.Context(), hubID, filter); err != nil {
				return err
			}
			fmt.Println("Telemetry cleared.")
			return nil
		},
	}

	cmd.Flags().StringVar(&hubID, "hub", "", "Hub whose backend holds the events")
	cmd.Flags().StringSliceVar(&eventTypes, "event", nil, "Only clear these event types (repeatable)")
	cmd.Flags().StringVar(&resourceID, "resource", "", "Only clear events for this resource id")
	cmd.Flags().StringVar(&startDate, "start", "", "Range start, RFC3339 (requires --end)")
	cmd.Flags().StringVar(&endDate, "end", "", "Range end, RFC3339 (requires --start)")
	return cmd
}

func newTelemetryToggleCmd(name string, enabled bool) *cobra.Command {
	short := "Disable telemetry collection"
	if enabled {
		short = "Enable telemetry collection"
	}

	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadOrDefaultConfig()
			if err != nil {
				return err
			}
			if cfg.Privacy == nil {
				cfg.Privacy = &config.Privacy{}
			}
			cfg.Privacy.TelemetryEnabled = enabled

			path, err := config.GetDefaultConfigPath()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			if enabled {
				fmt.Println("Telemetry enabled.")
			} else {
				fmt.Println("Telemetry disabled. Existing events are kept; run 'prompt-hub telemetry clear' to remove them.")
			}
			return nil
		},
	}
}
