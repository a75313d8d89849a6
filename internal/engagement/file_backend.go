package engagement

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// FileBackend persists engagement records to JSON files on the local
// filesystem. It is the default backend and the fallback store for
// remote-capable backends.
type FileBackend struct {
	store *storage.EngagementStorage
}

// NewFileBackend creates an uninitialized file backend.
func NewFileBackend() *FileBackend {
	return &FileBackend{}
}

// Initialize roots the backend's storage at cfg.StoragePath/engagement.
func (b *FileBackend) Initialize(cfg BackendConfig) error {
	if err := validateType(cfg, BackendFile); err != nil {
		return err
	}
	if cfg.StoragePath == "" {
		return fmt.Errorf("file backend requires storagePath")
	}

	store := storage.NewEngagementStorage(filepath.Join(cfg.StoragePath, "engagement"))
	if err := store.Initialize(); err != nil {
		return err
	}
	b.store = store
	return nil
}

// Dispose drops the storage reference. Idempotent.
func (b *FileBackend) Dispose() error {
	b.store = nil
	return nil
}

func (b *FileBackend) ensureInitialized() error {
	if b.store == nil {
		return ErrNotInitialized
	}
	return nil
}

// SubmitRating upserts the rating locally. The status never reports a remote
// sync.
func (b *FileBackend) SubmitRating(ctx context.Context, rating storage.Rating) (SubmitStatus, error) {
	if err := b.ensureInitialized(); err != nil {
		return SubmitStatus{}, err
	}
	if err := b.store.SaveRating(rating); err != nil {
		return SubmitStatus{}, err
	}
	return SubmitStatus{}, nil
}

func (b *FileBackend) GetRating(ctx context.Context, resourceType, resourceID string) (*storage.Rating, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.store.GetRating(resourceType, resourceID)
}

func (b *FileBackend) DeleteRating(ctx context.Context, resourceType, resourceID string) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.store.DeleteRating(resourceType, resourceID)
}

// GetAggregatedRatings synthesizes stats from the single locally stored
// rating. This is not multi-user aggregation — a local store only ever holds
// one voter — but it keeps the stats shape uniform across backends.
func (b *FileBackend) GetAggregatedRatings(ctx context.Context, resourceType, resourceID string) (*RatingStats, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}

	stats := &RatingStats{
		ResourceID:   resourceID,
		Distribution: emptyDistribution(),
	}
	rating, err := b.store.GetRating(resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	if rating != nil {
		stats.AverageRating = float64(rating.Score)
		stats.RatingCount = 1
		stats.Distribution[rating.Score] = 1
	}
	return stats, nil
}

func (b *FileBackend) SubmitFeedback(ctx context.Context, fb storage.Feedback) (SubmitStatus, error) {
	if err := b.ensureInitialized(); err != nil {
		return SubmitStatus{}, err
	}
	if err := b.store.SaveFeedback(fb); err != nil {
		return SubmitStatus{}, err
	}
	return SubmitStatus{}, nil
}

func (b *FileBackend) GetFeedback(ctx context.Context, resourceType, resourceID string, limit int) ([]storage.Feedback, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.store.GetFeedback(resourceType, resourceID, limit)
}

func (b *FileBackend) DeleteFeedback(ctx context.Context, id string) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.store.DeleteFeedback(id)
}

func (b *FileBackend) RecordTelemetry(ctx context.Context, event storage.TelemetryEvent) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.store.SaveTelemetryEvent(event)
}

func (b *FileBackend) GetTelemetry(ctx context.Context, filter *storage.TelemetryFilter) ([]storage.TelemetryEvent, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.store.GetTelemetryEvents(filter)
}

func (b *FileBackend) ClearTelemetry(ctx context.Context, filter *storage.TelemetryFilter) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.store.ClearTelemetry(filter)
}

// AllFeedback returns every locally stored feedback entry. Used for search
// index rebuilds.
func (b *FileBackend) AllFeedback() ([]storage.Feedback, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.store.GetAllFeedback()
}

// ClearAll wipes every local store. Persisted.
func (b *FileBackend) ClearAll() error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.store.ClearAll()
}
