/*
Package engagement implements the pluggable engagement backend abstraction:
ratings, feedback, and telemetry for bundles, profiles, and hubs.

A Backend persists engagement records somewhere — the local filesystem, a
SQLite database, or GitHub Discussions with a local fallback. The Service
routes calls to the backend registered for a hub and enforces the privacy
gate for telemetry.
*/
package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// Backend types accepted in a BackendConfig.
const (
	BackendFile              = "file"
	BackendSQLite            = "sqlite"
	BackendGitHubDiscussions = "github-discussions"
)

// ErrNotInitialized is returned by every backend operation invoked before a
// successful Initialize.
var ErrNotInitialized = errors.New("backend not initialized: call Initialize first")

// BackendConfig configures a backend instance. Type selects the
// implementation; a backend rejects a config whose Type it does not serve.
type BackendConfig struct {
	// Type is one of the Backend* constants.
	Type string `json:"type"`

	// Enabled gates registration: a disabled config is skipped entirely.
	Enabled bool `json:"enabled"`

	// StoragePath is the root directory for local persistence. Required
	// for every backend; remote-capable backends keep their fallback
	// store here.
	StoragePath string `json:"storagePath"`

	// Repository is the "owner/repo" GitHub repository holding the
	// discussions (github-discussions only).
	Repository string `json:"repository,omitempty"`

	// CollectionsURL points at the collections.yaml document mapping
	// resources to discussion numbers (github-discussions only).
	CollectionsURL string `json:"collectionsUrl,omitempty"`

	// Token is the bearer token for the GitHub API (github-discussions
	// only).
	Token string `json:"-"`
}

// SubmitStatus reports where a write landed. Local persistence always
// succeeds when the operation returns nil error; Synced additionally reports
// whether the write reached the remote backing store.
type SubmitStatus struct {
	// Synced is true when the remote write succeeded. Local-only backends
	// always report false.
	Synced bool

	// RemoteError carries the degradation reason when a remote-capable
	// backend fell back to local-only persistence.
	RemoteError string
}

// Backend is the engagement capability contract. Implementations must be
// safe for use from a single process; cross-process coordination is out of
// contract.
type Backend interface {
	// Initialize prepares the backend. It fails if cfg.Type does not
	// match the implementation or required fields are missing.
	Initialize(cfg BackendConfig) error

	// Dispose releases resources. Idempotent.
	Dispose() error

	// SubmitRating upserts the rating for its resource.
	SubmitRating(ctx context.Context, rating storage.Rating) (SubmitStatus, error)

	// GetRating returns the stored rating for a resource, or nil.
	GetRating(ctx context.Context, resourceType, resourceID string) (*storage.Rating, error)

	// DeleteRating removes the rating for a resource.
	DeleteRating(ctx context.Context, resourceType, resourceID string) error

	// GetAggregatedRatings returns rating statistics for a resource.
	GetAggregatedRatings(ctx context.Context, resourceType, resourceID string) (*RatingStats, error)

	// SubmitFeedback appends a feedback entry.
	SubmitFeedback(ctx context.Context, fb storage.Feedback) (SubmitStatus, error)

	// GetFeedback returns feedback for a resource, most recent first.
	GetFeedback(ctx context.Context, resourceType, resourceID string, limit int) ([]storage.Feedback, error)

	// DeleteFeedback removes the feedback entry with the given id.
	DeleteFeedback(ctx context.Context, id string) error

	// RecordTelemetry appends a telemetry event.
	RecordTelemetry(ctx context.Context, event storage.TelemetryEvent) error

	// GetTelemetry returns telemetry events matching the filter.
	GetTelemetry(ctx context.Context, filter *storage.TelemetryFilter) ([]storage.TelemetryEvent, error)

	// ClearTelemetry removes telemetry events matching the filter, or all
	// events when filter is nil.
	ClearTelemetry(ctx context.Context, filter *storage.TelemetryFilter) error
}

// validateType rejects configs aimed at a different backend implementation.
func validateType(cfg BackendConfig, want string) error {
	if cfg.Type != want {
		return fmt.Errorf("backend type mismatch: config is %q, backend is %q", cfg.Type, want)
	}
	return nil
}
