package engagement

import (
	"context"
	"fmt"
	"testing"

	"github.com/promptreg/prompt-hub/internal/storage"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()
	b := NewSQLiteBackend()
	err := b.Initialize(BackendConfig{
		Type:        BackendSQLite,
		Enabled:     true,
		StoragePath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { b.Dispose() })
	return b
}

func TestSQLiteRatingUpsert(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	first := storage.Rating{
		ID: "r1", ResourceType: storage.ResourceBundle, ResourceID: "b1",
		Score: 2, Timestamp: "2026-01-01T00:00:00Z",
	}
	if _, err := b.SubmitRating(ctx, first); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}

	second := storage.Rating{
		ID: "r2", ResourceType: storage.ResourceBundle, ResourceID: "b1",
		Score: 5, Timestamp: "2026-01-02T00:00:00Z", Version: "1.1.0",
	}
	if _, err := b.SubmitRating(ctx, second); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}

	got, err := b.GetRating(ctx, storage.ResourceBundle, "b1")
	if err != nil {
		t.Fatalf("GetRating failed: %v", err)
	}
	if got == nil || got.ID != "r2" || got.Score != 5 || got.Version != "1.1.0" {
		t.Fatalf("rating after upsert = %+v, want the replacement", got)
	}

	// Same id, different resource type: separate row.
	profile := storage.Rating{
		ID: "r3", ResourceType: storage.ResourceProfile, ResourceID: "b1",
		Score: 1, Timestamp: "2026-01-03T00:00:00Z",
	}
	if _, err := b.SubmitRating(ctx, profile); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	got, err = b.GetRating(ctx, storage.ResourceBundle, "b1")
	if err != nil {
		t.Fatalf("GetRating failed: %v", err)
	}
	if got.Score != 5 {
		t.Errorf("bundle rating disturbed by profile rating: %+v", got)
	}
}

func TestSQLiteDeleteRating(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	if _, err := b.SubmitRating(ctx, storage.Rating{
		ID: "r1", ResourceType: storage.ResourceBundle, ResourceID: "b1",
		Score: 3, Timestamp: storage.NowTimestamp(),
	}); err != nil {
		t.Fatalf("SubmitRating failed: %v", err)
	}
	if err := b.DeleteRating(ctx, storage.ResourceBundle, "b1"); err != nil {
		t.Fatalf("DeleteRating failed: %v", err)
	}
	got, err := b.GetRating(ctx, storage.ResourceBundle, "b1")
	if err != nil {
		t.Fatalf("GetRating failed: %v", err)
	}
	if got != nil {
		t.Errorf("rating still present after delete: %+v", got)
	}
}

func TestSQLiteTelemetryFilter(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	seed := []storage.TelemetryEvent{
		{ID: "e1", Timestamp: "2026-01-01T00:00:00Z", EventType: storage.EventBundleInstall, ResourceType: storage.ResourceBundle, ResourceID: "b1"},
		{ID: "e2", Timestamp: "2026-01-02T00:00:00Z", EventType: storage.EventBundleView, ResourceType: storage.ResourceBundle, ResourceID: "b1"},
		{ID: "e3", Timestamp: "2026-01-03T00:00:00Z", EventType: storage.EventProfileApply, ResourceType: storage.ResourceProfile, ResourceID: "p1"},
		{ID: "e4", Timestamp: "2026-01-04T00:00:00Z", EventType: storage.EventBundleInstall, ResourceType: storage.ResourceBundle, ResourceID: "b2"},
	}
	for _, e := range seed {
		if err := b.RecordTelemetry(ctx, e); err != nil {
			t.Fatalf("RecordTelemetry failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter *storage.TelemetryFilter
		want   []string
	}{
		{"nil filter returns all", nil, []string{"e1", "e2", "e3", "e4"}},
		{"by event type", &storage.TelemetryFilter{EventTypes: []string{storage.EventBundleInstall}}, []string{"e1", "e4"}},
		{"by resource type", &storage.TelemetryFilter{ResourceTypes: []string{storage.ResourceProfile}}, []string{"e3"}},
		{"by resource id", &storage.TelemetryFilter{ResourceID: "b1"}, []string{"e1", "e2"}},
		{"start only", &storage.TelemetryFilter{StartDate: "2026-01-03T00:00:00Z"}, []string{"e3", "e4"}},
		{"end only", &storage.TelemetryFilter{EndDate: "2026-01-02T00:00:00Z"}, []string{"e1", "e2"}},
		{"both bounds", &storage.TelemetryFilter{StartDate: "2026-01-02T00:00:00Z", EndDate: "2026-01-03T00:00:00Z"}, []string{"e2", "e3"}},
		{"limit keeps most recent", &storage.TelemetryFilter{Limit: 2}, []string{"e3", "e4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := b.GetTelemetry(ctx, tt.filter)
			if err != nil {
				t.Fatalf("GetTelemetry failed: %v", err)
			}
			if len(events) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(events), len(tt.want))
			}
			for i, id := range tt.want {
				if events[i].ID != id {
					t.Errorf("events[%d].ID = %q, want %q", i, events[i].ID, id)
				}
			}
		})
	}
}

func TestSQLiteClearTelemetryRequiresBothBounds(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := b.RecordTelemetry(ctx, storage.TelemetryEvent{
			ID:           fmt.Sprintf("e%d", i),
			Timestamp:    fmt.Sprintf("2026-01-0%dT00:00:00Z", i),
			EventType:    storage.EventBundleInstall,
			ResourceType: storage.ResourceBundle,
			ResourceID:   "b1",
		})
		if err != nil {
			t.Fatalf("RecordTelemetry failed: %v", err)
		}
	}

	// A lone start bound is ignored on clear: with no other predicates the
	// clear removes everything, so guard with a resource id that matches
	// all rows and verify the date was not applied.
	if err := b.ClearTelemetry(ctx, &storage.TelemetryFilter{
		ResourceID: "b1",
		StartDate:  "2026-01-03T00:00:00Z",
	}); err != nil {
		t.Fatalf("ClearTelemetry failed: %v", err)
	}
	events, err := b.GetTelemetry(ctx, nil)
	if err != nil {
		t.Fatalf("GetTelemetry failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("lone start bound was applied on clear: %d events remain", len(events))
	}

	// Reseed and clear with both bounds: only the range goes.
	for i := 1; i <= 3; i++ {
		err := b.RecordTelemetry(ctx, storage.TelemetryEvent{
			ID:           fmt.Sprintf("f%d", i),
			Timestamp:    fmt.Sprintf("2026-02-0%dT00:00:00Z", i),
			EventType:    storage.EventBundleInstall,
			ResourceType: storage.ResourceBundle,
			ResourceID:   "b1",
		})
		if err != nil {
			t.Fatalf("RecordTelemetry failed: %v", err)
		}
	}
	if err := b.ClearTelemetry(ctx, &storage.TelemetryFilter{
		StartDate: "2026-02-02T00:00:00Z",
		EndDate:   "2026-02-03T00:00:00Z",
	}); err != nil {
		t.Fatalf("ClearTelemetry failed: %v", err)
	}
	events, err = b.GetTelemetry(ctx, nil)
	if err != nil {
		t.Fatalf("GetTelemetry failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != "f1" {
		t.Fatalf("ranged clear kept %v, want just f1", events)
	}
}

func TestSQLiteTelemetryMetadataRoundTrip(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	err := b.RecordTelemetry(ctx, storage.TelemetryEvent{
		ID:           "e1",
		Timestamp:    storage.NowTimestamp(),
		EventType:    storage.EventBundleSearch,
		ResourceType: storage.ResourceBundle,
		ResourceID:   "b1",
		Metadata:     map[string]string{"query": "formatter", "results": "12"},
	})
	if err != nil {
		t.Fatalf("RecordTelemetry failed: %v", err)
	}

	events, err := b.GetTelemetry(ctx, nil)
	if err != nil {
		t.Fatalf("GetTelemetry failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Metadata["query"] != "formatter" || events[0].Metadata["results"] != "12" {
		t.Errorf("metadata = %v", events[0].Metadata)
	}
}

func TestSQLiteFeedbackOrderAndLimit(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := b.SubmitFeedback(ctx, storage.Feedback{
			ID:           fmt.Sprintf("f%d", i),
			ResourceType: storage.ResourceBundle,
			ResourceID:   "b1",
			Comment:      fmt.Sprintf("comment %d", i),
			Timestamp:    fmt.Sprintf("2026-01-0%dT00:00:00Z", i),
		})
		if err != nil {
			t.Fatalf("SubmitFeedback failed: %v", err)
		}
	}

	entries, err := b.GetFeedback(ctx, storage.ResourceBundle, "b1", 0)
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != "f3" || entries[2].ID != "f1" {
		t.Fatalf("entries not newest-first: %+v", entries)
	}

	entries, err = b.GetFeedback(ctx, storage.ResourceBundle, "b1", 2)
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "f3" {
		t.Fatalf("limited entries = %+v, want newest 2", entries)
	}
}

func TestSQLiteDeleteFeedback(t *testing.T) {
	b := newTestSQLiteBackend(t)
	ctx := context.Background()

	if _, err := b.SubmitFeedback(ctx, storage.Feedback{
		ID: "f1", ResourceType: storage.ResourceBundle, ResourceID: "b1",
		Comment: "c", Timestamp: storage.NowTimestamp(),
	}); err != nil {
		t.Fatalf("SubmitFeedback failed: %v", err)
	}
	if err := b.DeleteFeedback(ctx, "f1"); err != nil {
		t.Fatalf("DeleteFeedback failed: %v", err)
	}
	entries, err := b.GetFeedback(ctx, storage.ResourceBundle, "b1", 0)
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("feedback still present after delete: %+v", entries)
	}
}
