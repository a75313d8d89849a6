package search

import (
	"testing"

	"github.com/promptreg/prompt-hub/internal/storage"
)

func newTestIndex(t *testing.T) *FeedbackIndex {
	t.Helper()
	idx, err := NewFeedbackIndex()
	if err != nil {
		t.Fatalf("NewFeedbackIndex failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func seedEntries() []storage.Feedback {
	return []storage.Feedback{
		{ID: "f1", ResourceType: storage.ResourceBundle, ResourceID: "web-starter", Comment: "startup is slow on large projects", Timestamp: "2026-01-01T00:00:00Z"},
		{ID: "f2", ResourceType: storage.ResourceBundle, ResourceID: "data-tools", Comment: "great defaults, saved me hours", Timestamp: "2026-01-02T00:00:00Z"},
		{ID: "f3", ResourceType: storage.ResourceProfile, ResourceID: "web-starter", Comment: "the linting rules are too strict", Timestamp: "2026-01-03T00:00:00Z"},
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.IndexAll(seedEntries()); err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	count, err := idx.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}

	hits, err := idx.Search("slow startup", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for matching query")
	}
	if hits[0].Feedback.ID != "f1" {
		t.Errorf("best hit = %q, want f1", hits[0].Feedback.ID)
	}
	if hits[0].Score <= 0 {
		t.Errorf("hit score = %v, want positive", hits[0].Score)
	}
	// The hit carries the full record, not just the indexed fields.
	if hits[0].Feedback.Timestamp == "" || hits[0].Feedback.ResourceType == "" {
		t.Errorf("hit is missing record fields: %+v", hits[0].Feedback)
	}
}

func TestSearchMatchesResourceID(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.IndexAll(seedEntries()); err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	hits, err := idx.Search("data-tools", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, h := range hits {
		if h.Feedback.ResourceID == "data-tools" {
			return
		}
	}
	t.Errorf("no hit for resource id, got %+v", hits)
}

func TestSearchNoMatches(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.IndexAll(seedEntries()); err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	hits, err := idx.Search("zanzibar", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits for a nonsense query", len(hits))
	}
}

func TestSearchLimit(t *testing.T) {
	idx := newTestIndex(t)
	entries := []storage.Feedback{
		{ID: "a", ResourceID: "b1", Comment: "solid tool"},
		{ID: "b", ResourceID: "b2", Comment: "solid choice"},
		{ID: "c", ResourceID: "b3", Comment: "solid work"},
	}
	if err := idx.IndexAll(entries); err != nil {
		t.Fatalf("IndexAll failed: %v", err)
	}

	hits, err := idx.Search("solid", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want limit 2", len(hits))
	}
}

func TestIndexReplaceAndRemove(t *testing.T) {
	idx := newTestIndex(t)

	fb := storage.Feedback{ID: "f1", ResourceID: "b1", Comment: "crashes on start"}
	if err := idx.Index(fb); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	// Same id, new text: the old text must stop matching.
	fb.Comment = "fixed in the latest release"
	if err := idx.Index(fb); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	hits, err := idx.Search("crashes", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale text still matches: %+v", hits)
	}
	hits, err = idx.Search("latest release", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("replacement not indexed, got %d hits", len(hits))
	}

	if err := idx.Remove("f1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count after remove = %d, want 0", count)
	}
}
