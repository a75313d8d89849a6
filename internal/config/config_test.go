package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for missing config")
	}

	var notFound *ConfigNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %T, want *ConfigNotFoundError", err)
	}
	if notFound.Path != path {
		t.Errorf("Path = %q, want %q", notFound.Path, path)
	}
}

func TestLoadFromInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %T, want *InvalidConfigError", err)
	}
}

func TestLoadFromInitializesNilSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Hubs == nil || cfg.Privacy == nil || cfg.Settings == nil {
		t.Errorf("nil sections survived load: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewConfig()
	cfg.Hubs["community"] = &HubConfig{
		Type:           "github-discussions",
		Enabled:        true,
		URL:            "https://hub.example.com",
		CollectionsURL: "https://hub.example.com/collections.yaml",
		Repository:     "example/community-hub",
	}
	cfg.Privacy.TelemetryEnabled = true

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	h, ok := loaded.Hubs["community"]
	if !ok {
		t.Fatal("hub lost in round trip")
	}
	if h.Type != "github-discussions" || h.Repository != "example/community-hub" || !h.Enabled {
		t.Errorf("hub = %+v", h)
	}
	if !loaded.Privacy.TelemetryEnabled {
		t.Error("privacy flag lost in round trip")
	}
	if loaded.Settings.CacheTTLMinutes != 15 {
		t.Errorf("CacheTTLMinutes = %d, want default 15", loaded.Settings.CacheTTLMinutes)
	}
}

func TestSaveValidatesGitHubDiscussionsRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewConfig()
	cfg.Hubs["bad"] = &HubConfig{Type: "github-discussions", Enabled: true}

	err := Save(cfg, path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %T (%v), want *InvalidConfigError", err, err)
	}
}

func TestSaveCreatesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	first := NewConfig()
	if err := Save(first, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := NewConfig()
	second.Hubs["local"] = &HubConfig{Type: "file", Enabled: true}
	if err := Save(second, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("backup not created: %v", err)
	}

	// The backup holds the previous revision.
	prev, err := LoadFrom(path + ".bak")
	if err != nil {
		t.Fatalf("failed to load backup: %v", err)
	}
	if len(prev.Hubs) != 0 {
		t.Errorf("backup has %d hubs, want the pre-change 0", len(prev.Hubs))
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	if err := Save(NewConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
