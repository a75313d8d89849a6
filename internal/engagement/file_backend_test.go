package engagement

import (
	"context"
	"testing"

	"github.com/promptreg/prompt-hub/internal/storage"
)

func newTestFileBackend(t *testing.T) *FileBackend {
	t.Helper()
	b := NewFileBackend()
	err := b.Initialize(BackendConfig{
		Type:        BackendFile,
		Enabled:     true,
		StoragePath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Dispose() })
	return b
}

func TestFileBackendRejectsWrongType(t *testing.T) {
	b := NewFileBackend()
	err := b.Initialize(BackendConfig{Type: BackendSQLite, StoragePath: t.TempDir()})
	if err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestFileBackendNotInitialized(t *testing.T) {
	b := NewFileBackend()
	if _, err := b.GetRating(context.Background(), storage.ResourceBundle, "b1"); err != ErrNotInitialized {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

func TestFileBackendSubmitStatusIsLocalOnly(t *testing.T) {
	b := newTestFileBackend(t)
	status, err := b.SubmitRating(context.Background(), storage.Rating{
		ID:           "r1",
		ResourceType: storage.ResourceBundle,
		ResourceID:   "b1",
		Score:        4,
		Timestamp:    storage.NowTimestamp(),
	})
	if err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	if status.Synced || status.RemoteError != "" {
		t.Errorf("status = %+v, want local-only zero value", status)
	}
}

func TestFileBackendAggregatedRatings(t *testing.T) {
	b := newTestFileBackend(t)
	ctx := context.Background()

	// No rating yet: zeroed stats with a full distribution.
	stats, err := b.GetAggregatedRatings(ctx, storage.ResourceBundle, "b1")
	if err != nil {
		t.Fatalf("GetAggregatedRatings failed: %v", err)
	}
	if stats.RatingCount != 0 || stats.AverageRating != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
	for score := 1; score <= 5; score++ {
		if n, ok := stats.Distribution[score]; !ok || n != 0 {
			t.Errorf("distribution[%d] = %d,%v, want 0,true", score, n, ok)
		}
	}

	if _, err := b.SubmitRating(ctx, storage.Rating{
		ID:           "r1",
		ResourceType: storage.ResourceBundle,
		ResourceID:   "b1",
		Score:        4,
		Timestamp:    storage.NowTimestamp(),
	}); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}

	stats, err = b.GetAggregatedRatings(ctx, storage.ResourceBundle, "b1")
	if err != nil {
		t.Fatalf("GetAggregatedRatings failed: %v", err)
	}
	if stats.RatingCount != 1 {
		t.Errorf("RatingCount = %d, want 1", stats.RatingCount)
	}
	if stats.AverageRating != 4 {
		t.Errorf("AverageRating = %v, want 4", stats.AverageRating)
	}
	if stats.Distribution[4] != 1 {
		t.Errorf("Distribution[4] = %d, want 1", stats.Distribution[4])
	}
}

func TestGetResourceEngagement(t *testing.T) {
	b := newTestFileBackend(t)
	ctx := context.Background()

	if _, err := b.SubmitRating(ctx, storage.Rating{
		ID:           "r1",
		ResourceType: storage.ResourceBundle,
		ResourceID:   "b1",
		Score:        5,
		Timestamp:    "2026-01-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}

	for i, comment := range []string{"first", "second", "third"} {
		if _, err := b.SubmitFeedback(ctx, storage.Feedback{
			ID:           string(rune('a' + i)),
			ResourceType: storage.ResourceBundle,
			ResourceID:   "b1",
			Comment:      comment,
			Timestamp:    storage.NowTimestamp(),
		}); err != nil {
			t.Fatalf("SubmitFeedback failed: %v", err)
		}
	}

	events := []storage.TelemetryEvent{
		{ID: "e1", Timestamp: "2026-01-01T10:00:00Z", EventType: storage.EventBundleInstall, ResourceType: storage.ResourceBundle, ResourceID: "b1"},
		{ID: "e2", Timestamp: "2026-01-02T10:00:00Z", EventType: storage.EventBundleView, ResourceType: storage.ResourceBundle, ResourceID: "b1"},
		{ID: "e3", Timestamp: "2026-01-03T10:00:00Z", EventType: storage.EventProfileApply, ResourceType: storage.ResourceProfile, ResourceID: "b1"},
		// Uninstalls never count toward installs, views, or activity.
		{ID: "e4", Timestamp: "2026-01-09T10:00:00Z", EventType: storage.EventBundleUninstall, ResourceType: storage.ResourceBundle, ResourceID: "b1"},
		// Other resources are invisible.
		{ID: "e5", Timestamp: "2026-01-04T10:00:00Z", EventType: storage.EventBundleInstall, ResourceType: storage.ResourceBundle, ResourceID: "other"},
	}
	for _, e := range events {
		if err := b.RecordTelemetry(ctx, e); err != nil {
			t.Fatalf("RecordTelemetry failed: %v", err)
		}
	}

	eng, err := GetResourceEngagement(ctx, b, storage.ResourceBundle, "b1")
	if err != nil {
		t.Fatalf("GetResourceEngagement failed: %v", err)
	}

	if eng.Ratings == nil || eng.Ratings.RatingCount != 1 || eng.Ratings.AverageRating != 5 {
		t.Errorf("Ratings = %+v", eng.Ratings)
	}
	if len(eng.RecentFeedback) != 3 {
		t.Errorf("RecentFeedback has %d entries, want 3", len(eng.RecentFeedback))
	}
	if eng.Telemetry.InstallCount != 2 {
		t.Errorf("InstallCount = %d, want 2 (bundle_install + profile_apply)", eng.Telemetry.InstallCount)
	}
	if eng.Telemetry.ViewCount != 1 {
		t.Errorf("ViewCount = %d, want 1", eng.Telemetry.ViewCount)
	}
	if eng.Telemetry.LastActivity != "2026-01-03T10:00:00Z" {
		t.Errorf("LastActivity = %q, want latest install/view timestamp", eng.Telemetry.LastActivity)
	}
}

func TestGetResourceEngagementRecentFeedbackLimit(t *testing.T) {
	b := newTestFileBackend(t)
	ctx := context.Background()

	for i := 0; i < recentFeedbackLimit+3; i++ {
		if _, err := b.SubmitFeedback(ctx, storage.Feedback{
			ID:           storage.NowTimestamp() + string(rune('a'+i)),
			ResourceType: storage.ResourceBundle,
			ResourceID:   "b1",
			Comment:      "c",
			Timestamp:    storage.NowTimestamp(),
		}); err != nil {
			t.Fatalf("SubmitFeedback failed: %v", err)
		}
	}

	eng, err := GetResourceEngagement(ctx, b, storage.ResourceBundle, "b1")
	if err != nil {
		t.Fatalf("GetResourceEngagement failed: %v", err)
	}
	if len(eng.RecentFeedback) != recentFeedbackLimit {
		t.Errorf("RecentFeedback has %d entries, want %d", len(eng.RecentFeedback), recentFeedbackLimit)
	}
}
