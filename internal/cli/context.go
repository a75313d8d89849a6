/*
Package cli implements the prompt-hub command surface: rating, feedback,
telemetry, hub management, and engagement stats.
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/promptreg/prompt-hub/internal/config"
	"github.com/promptreg/prompt-hub/internal/engagement"
	"github.com/promptreg/prompt-hub/internal/hub"
)

// loadOrDefaultConfig reads the user config, falling back to defaults when
// no config file exists yet. Other load failures propagate.
func loadOrDefaultConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		var notFound *config.ConfigNotFoundError
		if errors.As(err, &notFound) {
			return config.NewConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// buildService constructs the engagement service from config and registers
// every enabled hub backend.
func buildService(ctx context.Context, cfg *config.Config) (*engagement.Service, error) {
	storagePath, err := config.GetDefaultStoragePath()
	if err != nil {
		return nil, err
	}

	privacy := engagement.PrivacySettings{}
	if cfg.Privacy != nil {
		privacy.TelemetryEnabled = cfg.Privacy.TelemetryEnabled
	}

	svc := engagement.NewService(storagePath, privacy)
	if err := svc.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize engagement service: %w", err)
	}

	token := os.Getenv("GITHUB_TOKEN")
	for id, hubCfg := range cfg.Hubs {
		backendCfg := engagement.BackendConfig{
			Type:           hubCfg.Type,
			Enabled:        hubCfg.Enabled,
			StoragePath:    hubCfg.StoragePath,
			Repository:     hubCfg.Repository,
			CollectionsURL: hubCfg.CollectionsURL,
			Token:          token,
		}
		if err := svc.RegisterHubBackend(ctx, id, backendCfg); err != nil {
			svc.Dispose()
			return nil, err
		}
	}
	return svc, nil
}

// cacheTTL resolves the configured hub cache TTL.
func cacheTTL(cfg *config.Config) time.Duration {
	if cfg.Settings != nil && cfg.Settings.CacheTTLMinutes > 0 {
		return time.Duration(cfg.Settings.CacheTTLMinutes) * time.Minute
	}
	return hub.DefaultCacheTTL
}
