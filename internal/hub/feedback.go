package hub

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// BundleFeedbackList carries a hub-published feedback digest for one bundle.
type BundleFeedbackList struct {
	BundleID  string             `json:"bundleId"`
	Feedbacks []storage.Feedback `json:"feedbacks"`
}

// FeedbacksDocument is the shape of a hub's feedbacks.json.
type FeedbacksDocument struct {
	Version   string               `json:"version"`
	Generated string               `json:"generated"`
	Bundles   []BundleFeedbackList `json:"bundles"`
}

// FeedbackService fetches feedback digest documents with a TTL cache keyed
// by URL. Like ratings, these are optional display data: failures degrade to
// "no document".
type FeedbackService struct {
	http  *http.Client
	cache *gocache.Cache
}

// NewFeedbackService creates a service caching documents for ttl, or
// DefaultCacheTTL when ttl is zero or negative.
func NewFeedbackService(ttl time.Duration) *FeedbackService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &FeedbackService{
		http:  &http.Client{Timeout: fetchTimeout},
		cache: gocache.New(ttl, ttl),
	}
}

// Fetch returns the feedbacks document at url, from cache when fresh unless
// forceRefresh is set. Network or shape failure returns nil.
func (s *FeedbackService) Fetch(ctx context.Context, url string, forceRefresh bool) *FeedbacksDocument {
	if !forceRefresh {
		if cached, found := s.cache.Get(url); found {
			return cached.(*FeedbacksDocument)
		}
	}

	var doc FeedbacksDocument
	if !fetchJSON(ctx, s.http, url, &doc) {
		return nil
	}
	if doc.Version == "" || doc.Bundles == nil {
		slog.Warn("feedbacks document has unexpected shape, ignoring", "url", url)
		return nil
	}

	s.cache.Set(url, &doc, gocache.DefaultExpiration)
	return &doc
}
