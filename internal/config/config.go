/*
Package config handles loading and saving prompt-hub configuration.

Configuration is stored in ~/.prompt-hub.json:

	{
	  "hubs": {
	    "community": {
	      "type": "github-discussions",
	      "enabled": true,
	      "url": "https://hub.example.com",
	      "collectionsUrl": "https://hub.example.com/collections.yaml",
	      "repository": "example/community-hub"
	    }
	  },
	  "privacy": {"telemetryEnabled": false},
	  "settings": {"cacheTtlMinutes": 15, "httpTimeoutSeconds": 10}
	}
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HubConfig describes one registered hub and its engagement backend.
type HubConfig struct {
	// Type selects the engagement backend: "file", "sqlite", or
	// "github-discussions".
	Type string `json:"type"`

	// Enabled gates backend registration for this hub.
	Enabled bool `json:"enabled"`

	// URL is the hub's base URL, serving ratings.json and feedbacks.json.
	URL string `json:"url,omitempty"`

	// CollectionsURL points at the hub's collections.yaml.
	CollectionsURL string `json:"collectionsUrl,omitempty"`

	// Repository is the "owner/repo" discussions repository
	// (github-discussions only).
	Repository string `json:"repository,omitempty"`

	// StoragePath overrides the default local storage root for this hub.
	StoragePath string `json:"storagePath,omitempty"`
}

// Privacy holds the telemetry opt-in flag. Telemetry is off until the user
// turns it on.
type Privacy struct {
	TelemetryEnabled bool `json:"telemetryEnabled"`
}

// Settings contains client tuning options.
type Settings struct {
	// CacheTTLMinutes is how long fetched hub aggregates stay fresh.
	CacheTTLMinutes int `json:"cacheTtlMinutes,omitempty"`

	// HTTPTimeoutSeconds bounds hub and GitHub API calls.
	HTTPTimeoutSeconds int `json:"httpTimeoutSeconds,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	Hubs     map[string]*HubConfig `json:"hubs"`
	Privacy  *Privacy              `json:"privacy,omitempty"`
	Settings *Settings             `json:"settings,omitempty"`
}

// NewConfig creates an empty configuration with defaults.
func NewConfig() *Config {
	return &Config{
		Hubs:    make(map[string]*HubConfig),
		Privacy: &Privacy{TelemetryEnabled: false},
		Settings: &Settings{
			CacheTTLMinutes:    15,
			HTTPTimeoutSeconds: 10,
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.prompt-hub.json.
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".prompt-hub.json"), nil
}

// GetDefaultStoragePath returns the default local engagement storage root,
// ~/.prompt-hub.
func GetDefaultStoragePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".prompt-hub"), nil
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}
