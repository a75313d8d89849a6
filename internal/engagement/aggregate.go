package engagement

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// recentFeedbackLimit is how many feedback entries a ResourceEngagement
// carries.
const recentFeedbackLimit = 5

// RatingStats is the derived rating summary for one resource. It is computed
// at read time, never stored.
type RatingStats struct {
	ResourceID    string      `json:"resourceId"`
	AverageRating float64     `json:"averageRating"`
	RatingCount   int         `json:"ratingCount"`
	Distribution  map[int]int `json:"distribution"`
}

// TelemetrySummary condenses install/view activity for one resource.
type TelemetrySummary struct {
	InstallCount int    `json:"installCount"`
	ViewCount    int    `json:"viewCount"`
	LastActivity string `json:"lastActivity,omitempty"`
}

// ResourceEngagement aggregates ratings, recent feedback, and telemetry for
// one resource.
type ResourceEngagement struct {
	ResourceType   string             `json:"resourceType"`
	ResourceID     string             `json:"resourceId"`
	Ratings        *RatingStats       `json:"ratings"`
	RecentFeedback []storage.Feedback `json:"recentFeedback"`
	Telemetry      TelemetrySummary   `json:"telemetry"`
}

// emptyDistribution returns a distribution map with every bucket present.
func emptyDistribution() map[int]int {
	return map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
}

// GetResourceEngagement computes the combined engagement view for one
// resource by fetching aggregated ratings, recent feedback, and install/view
// telemetry concurrently from the backend.
//
// Only install/view events are fetched, so LastActivity reflects the latest
// install or view — not every event type the resource ever saw. The
// timestamps are compared as strings.
func GetResourceEngagement(ctx context.Context, b Backend, resourceType, resourceID string) (*ResourceEngagement, error) {
	var (
		stats    *RatingStats
		feedback []storage.Feedback
		events   []storage.TelemetryEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = b.GetAggregatedRatings(gctx, resourceType, resourceID)
		return err
	})
	g.Go(func() error {
		var err error
		feedback, err = b.GetFeedback(gctx, resourceType, resourceID, recentFeedbackLimit)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = b.GetTelemetry(gctx, &storage.TelemetryFilter{
			EventTypes: []string{
				storage.EventBundleInstall,
				storage.EventBundleView,
				storage.EventProfileApply,
				storage.EventProfileView,
			},
			ResourceID: resourceID,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := TelemetrySummary{}
	for _, e := range events {
		switch e.EventType {
		case storage.EventBundleInstall, storage.EventProfileApply:
			summary.InstallCount++
		case storage.EventBundleView, storage.EventProfileView:
			summary.ViewCount++
		}
		if e.Timestamp > summary.LastActivity {
			summary.LastActivity = e.Timestamp
		}
	}

	return &ResourceEngagement{
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Ratings:        stats,
		RecentFeedback: feedback,
		Telemetry:      summary,
	}, nil
}
