/*
Package search provides full-text search over locally stored feedback
comments, backed by an in-memory Bleve index.
*/
package search

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// Hit is one search result: the matching feedback entry and its relevance
// score.
type Hit struct {
	Feedback storage.Feedback
	Score    float64
}

// FeedbackIndex indexes feedback comments for keyword search. The index is
// in-memory and rebuilt from the store on demand; it is a projection, never
// the source of truth.
type FeedbackIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	// byID keeps the indexed entries so hits can return full records.
	byID map[string]storage.Feedback
}

// NewFeedbackIndex creates an empty in-memory index.
func NewFeedbackIndex() (*FeedbackIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create feedback index: %w", err)
	}
	return &FeedbackIndex{
		index: index,
		byID:  make(map[string]storage.Feedback),
	}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	feedbackMapping := bleve.NewDocumentMapping()

	commentField := bleve.NewTextFieldMapping()
	feedbackMapping.AddFieldMappingsAt("comment", commentField)

	resourceField := bleve.NewTextFieldMapping()
	feedbackMapping.AddFieldMappingsAt("resourceId", resourceField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", feedbackMapping)
	return indexMapping
}

// Index adds or replaces one feedback entry.
func (i *FeedbackIndex) Index(fb storage.Feedback) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	doc := map[string]interface{}{
		"comment":    fb.Comment,
		"resourceId": fb.ResourceID,
	}
	if err := i.index.Index(fb.ID, doc); err != nil {
		return fmt.Errorf("failed to index feedback %s: %w", fb.ID, err)
	}
	i.byID[fb.ID] = fb
	return nil
}

// IndexAll rebuilds the index from a full feedback listing.
func (i *FeedbackIndex) IndexAll(entries []storage.Feedback) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.index.NewBatch()
	for _, fb := range entries {
		doc := map[string]interface{}{
			"comment":    fb.Comment,
			"resourceId": fb.ResourceID,
		}
		if err := batch.Index(fb.ID, doc); err != nil {
			slog.Warn("failed to add feedback to index batch", "id", fb.ID, "error", err)
			continue
		}
		i.byID[fb.ID] = fb
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index feedback: %w", err)
	}
	return nil
}

// Remove deletes one entry from the index.
func (i *FeedbackIndex) Remove(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.index.Delete(id); err != nil {
		return fmt.Errorf("failed to remove feedback %s from index: %w", id, err)
	}
	delete(i.byID, id)
	return nil
}

// Search returns up to limit feedback entries matching the query, best
// first.
func (i *FeedbackIndex) Search(query string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	matchQuery := bleve.NewMatchQuery(query)
	request := bleve.NewSearchRequestOptions(matchQuery, limit, 0, false)

	results, err := i.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("feedback search failed: %w", err)
	}

	var hits []Hit
	for _, h := range results.Hits {
		fb, ok := i.byID[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Feedback: fb, Score: h.Score})
	}
	return hits, nil
}

// Count returns the number of indexed entries.
func (i *FeedbackIndex) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// Close releases index resources.
func (i *FeedbackIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.index != nil {
		return i.index.Close()
	}
	return nil
}
