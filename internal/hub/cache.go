package hub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// CachedRating is a synchronously readable rating aggregate for one bundle.
type CachedRating struct {
	BundleID string
	Rating   BundleRating
	CachedAt time.Time
}

// CachedFeedback is a synchronously readable feedback digest for one bundle.
type CachedFeedback struct {
	BundleID  string
	Feedbacks []storage.Feedback
	CachedAt  time.Time
}

// RatingCache holds per-hub rating aggregates for synchronous reads by
// rendering code. Entries never expire on their own; they are replaced by
// RefreshFromHub and removed only by Clear/ClearHub. A failed refresh leaves
// existing entries untouched — stale data beats no data for display.
type RatingCache struct {
	svc   *RatingService
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]map[string]CachedRating
}

// NewRatingCache creates a cache reading through svc.
func NewRatingCache(svc *RatingService) *RatingCache {
	return &RatingCache{
		svc:     svc,
		entries: make(map[string]map[string]CachedRating),
	}
}

// RefreshFromHub fetches the hub's ratings document and replaces the hub's
// entries. Concurrent refreshes for the same hub coalesce into one fetch;
// late callers wait for and share the first caller's outcome.
func (c *RatingCache) RefreshFromHub(ctx context.Context, hubID, url string) error {
	_, err, _ := c.group.Do(hubID, func() (interface{}, error) {
		doc := c.svc.Fetch(ctx, url, false)
		if doc == nil {
			return nil, fmt.Errorf("failed to refresh ratings for hub %s", hubID)
		}

		now := time.Now()
		fresh := make(map[string]CachedRating, len(doc.Bundles))
		for id, rating := range doc.Bundles {
			fresh[id] = CachedRating{BundleID: id, Rating: rating, CachedAt: now}
		}

		c.mu.Lock()
		c.entries[hubID] = fresh
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// Get returns a bundle's cached rating aggregate.
func (c *RatingCache) Get(hubID, bundleID string) (CachedRating, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[hubID][bundleID]
	return entry, ok
}

// Count returns how many bundles have cached ratings for a hub.
func (c *RatingCache) Count(hubID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[hubID])
}

// ClearHub drops every entry for one hub.
func (c *RatingCache) ClearHub(hubID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, hubID)
}

// Clear drops everything.
func (c *RatingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string]CachedRating)
}

// FeedbackCache is the feedback counterpart of RatingCache: same refresh,
// coalescing, and staleness rules.
type FeedbackCache struct {
	svc   *FeedbackService
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]map[string]CachedFeedback
}

// NewFeedbackCache creates a cache reading through svc.
func NewFeedbackCache(svc *FeedbackService) *FeedbackCache {
	return &FeedbackCache{
		svc:     svc,
		entries: make(map[string]map[string]CachedFeedback),
	}
}

// RefreshFromHub fetches the hub's feedbacks document and replaces the hub's
// entries, coalescing concurrent refreshes.
func (c *FeedbackCache) RefreshFromHub(ctx context.Context, hubID, url string) error {
	_, err, _ := c.group.Do(hubID, func() (interface{}, error) {
		doc := c.svc.Fetch(ctx, url, false)
		if doc == nil {
			return nil, fmt.Errorf("failed to refresh feedback for hub %s", hubID)
		}

		now := time.Now()
		fresh := make(map[string]CachedFeedback, len(doc.Bundles))
		for _, b := range doc.Bundles {
			fresh[b.BundleID] = CachedFeedback{BundleID: b.BundleID, Feedbacks: b.Feedbacks, CachedAt: now}
		}

		c.mu.Lock()
		c.entries[hubID] = fresh
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// Get returns a bundle's cached feedback digest.
func (c *FeedbackCache) Get(hubID, bundleID string) (CachedFeedback, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[hubID][bundleID]
	return entry, ok
}

// Count returns how many bundles have cached feedback for a hub.
func (c *FeedbackCache) Count(hubID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries[hubID])
}

// ClearHub drops every entry for one hub.
func (c *FeedbackCache) ClearHub(hubID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, hubID)
}

// Clear drops everything.
func (c *FeedbackCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]map[string]CachedFeedback)
}
