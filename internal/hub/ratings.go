package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long fetched aggregate documents stay fresh.
const DefaultCacheTTL = 15 * time.Minute

// BundleRating is a hub-published multi-user rating aggregate for one
// bundle. The numbers are precomputed by the hub; this client only displays
// them.
type BundleRating struct {
	AverageRating float64        `json:"averageRating"`
	RatingCount   int            `json:"ratingCount"`
	Distribution  map[string]int `json:"distribution,omitempty"`
	WilsonScore   float64        `json:"wilsonScore,omitempty"`
}

// RatingsDocument is the shape of a hub's ratings.json.
type RatingsDocument struct {
	Version     string                  `json:"version"`
	GeneratedAt string                  `json:"generatedAt"`
	Bundles     map[string]BundleRating `json:"bundles"`
}

// RatingService fetches rating aggregate documents with a TTL cache keyed by
// URL. Rating aggregates are optional display data: every failure degrades
// to "no document" rather than an error.
type RatingService struct {
	http  *http.Client
	cache *gocache.Cache
}

// NewRatingService creates a service caching documents for ttl, or
// DefaultCacheTTL when ttl is zero or negative.
func NewRatingService(ttl time.Duration) *RatingService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RatingService{
		http:  &http.Client{Timeout: fetchTimeout},
		cache: gocache.New(ttl, ttl),
	}
}

// Fetch returns the ratings document at url, from cache when fresh unless
// forceRefresh is set. Network or shape failure returns nil.
func (s *RatingService) Fetch(ctx context.Context, url string, forceRefresh bool) *RatingsDocument {
	if !forceRefresh {
		if cached, found := s.cache.Get(url); found {
			return cached.(*RatingsDocument)
		}
	}

	var doc RatingsDocument
	if !fetchJSON(ctx, s.http, url, &doc) {
		return nil
	}
	if doc.Version == "" || doc.Bundles == nil {
		slog.Warn("ratings document has unexpected shape, ignoring", "url", url)
		return nil
	}

	s.cache.Set(url, &doc, gocache.DefaultExpiration)
	return &doc
}

// fetchJSON downloads and decodes a JSON document, reporting success. All
// failures are logged, none propagate.
func fetchJSON(ctx context.Context, client *http.Client, url string, dst interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Warn("failed to build hub document request", "url", url, "error", err)
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("failed to fetch hub document", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("hub document fetch returned non-OK status", "url", url, "status", resp.StatusCode)
		return false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("failed to read hub document", "url", url, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("failed to parse hub document", "url", url, "error", err)
		return false
	}
	return true
}
