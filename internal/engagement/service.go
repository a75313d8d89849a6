package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/promptreg/prompt-hub/internal/storage"
)

// mappingLoadTimeout bounds how long hub registration waits for a
// collections mapping load. The load itself keeps running past the timeout;
// registration just stops waiting for it.
const mappingLoadTimeout = 5 * time.Second

// PrivacySettings gates telemetry collection. Telemetry is opt-in: the zero
// value records nothing.
type PrivacySettings struct {
	TelemetryEnabled bool `json:"telemetryEnabled"`
}

// RatingObserver is notified after a rating write succeeds.
type RatingObserver func(hubID string, rating storage.Rating)

// FeedbackObserver is notified after a feedback write succeeds.
type FeedbackObserver func(hubID string, fb storage.Feedback)

// TelemetryObserver is notified after a telemetry write succeeds.
type TelemetryObserver func(hubID string, event storage.TelemetryEvent)

// Service is the single entry point for engagement operations. It routes
// each call to the backend registered for the named hub, falling back to a
// default file backend, and enforces the telemetry privacy gate.
//
// Build one Service at the application's composition root and inject it;
// there is no package-level instance.
type Service struct {
	storagePath string

	mu             sync.Mutex
	defaultBackend Backend
	hubBackends    map[string]Backend
	privacy        PrivacySettings

	ratingObservers    []RatingObserver
	feedbackObservers  []FeedbackObserver
	telemetryObservers []TelemetryObserver
}

// NewService creates a service whose default backend will persist under
// storagePath. Call Initialize before use.
func NewService(storagePath string, privacy PrivacySettings) *Service {
	return &Service{
		storagePath: storagePath,
		privacy:     privacy,
		hubBackends: make(map[string]Backend),
	}
}

// Initialize creates and initializes the default file backend.
func (s *Service) Initialize() error {
	def := NewFileBackend()
	if err := def.Initialize(BackendConfig{
		Type:        BackendFile,
		Enabled:     true,
		StoragePath: s.storagePath,
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.defaultBackend = def
	s.mu.Unlock()
	return nil
}

// Dispose releases every backend.
func (s *Service) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.hubBackends {
		if err := b.Dispose(); err != nil {
			slog.Warn("failed to dispose hub backend", "hub", id, "error", err)
		}
	}
	s.hubBackends = make(map[string]Backend)
	if s.defaultBackend != nil {
		if err := s.defaultBackend.Dispose(); err != nil {
			slog.Warn("failed to dispose default backend", "error", err)
		}
		s.defaultBackend = nil
	}
}

// SetTelemetryEnabled flips the privacy gate.
func (s *Service) SetTelemetryEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.privacy.TelemetryEnabled = enabled
}

// TelemetryEnabled reports the privacy gate state.
func (s *Service) TelemetryEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.privacy.TelemetryEnabled
}

// OnRatingSubmitted registers an observer for successful rating writes.
func (s *Service) OnRatingSubmitted(fn RatingObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratingObservers = append(s.ratingObservers, fn)
}

// OnFeedbackSubmitted registers an observer for successful feedback writes.
func (s *Service) OnFeedbackSubmitted(fn FeedbackObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackObservers = append(s.feedbackObservers, fn)
}

// OnTelemetryRecorded registers an observer for successful telemetry writes.
func (s *Service) OnTelemetryRecorded(fn TelemetryObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.telemetryObservers = append(s.telemetryObservers, fn)
}

// RegisterHubBackend creates and registers the backend for a hub. A disabled
// config is a no-op. Unsupported backend types fall back to a file backend
// with a warning. For github-discussions configs with a collections URL, the
// mapping load races a fixed timeout: on timeout the load continues in the
// background and mappings populate when it finishes.
func (s *Service) RegisterHubBackend(ctx context.Context, hubID string, cfg BackendConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = s.storagePath
	}

	var backend Backend
	switch cfg.Type {
	case BackendGitHubDiscussions:
		gh := NewGitHubDiscussionsBackend()
		if err := gh.Initialize(cfg); err != nil {
			return fmt.Errorf("failed to initialize backend for hub %s: %w", hubID, err)
		}
		if cfg.CollectionsURL != "" {
			s.loadMappingsWithTimeout(gh, hubID, cfg.CollectionsURL)
		}
		backend = gh

	case BackendSQLite:
		sq := NewSQLiteBackend()
		if err := sq.Initialize(cfg); err != nil {
			return fmt.Errorf("failed to initialize backend for hub %s: %w", hubID, err)
		}
		backend = sq

	default:
		if cfg.Type != "" && cfg.Type != BackendFile {
			slog.Warn("unsupported backend type, falling back to file backend",
				"hub", hubID, "type", cfg.Type)
		}
		fb := NewFileBackend()
		fileCfg := cfg
		fileCfg.Type = BackendFile
		if err := fb.Initialize(fileCfg); err != nil {
			return fmt.Errorf("failed to initialize backend for hub %s: %w", hubID, err)
		}
		backend = fb
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.hubBackends[hubID]; ok {
		if err := old.Dispose(); err != nil {
			slog.Warn("failed to dispose replaced backend", "hub", hubID, "error", err)
		}
	}
	s.hubBackends[hubID] = backend
	return nil
}

// loadMappingsWithTimeout races the mapping load against mappingLoadTimeout.
// A timeout does not cancel the load; registration just proceeds without
// waiting.
func (s *Service) loadMappingsWithTimeout(gh *GitHubDiscussionsBackend, hubID, url string) {
	done := make(chan error, 1)
	go func() {
		done <- gh.LoadCollectionsMappings(context.Background(), url)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Warn("failed to load collections mappings", "hub", hubID, "error", err)
		}
	case <-time.After(mappingLoadTimeout):
		slog.Warn("collections mapping load still in flight, continuing registration", "hub", hubID)
	}
}

// UnregisterHubBackend disposes and removes the backend for a hub.
func (s *Service) UnregisterHubBackend(hubID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.hubBackends[hubID]; ok {
		if err := b.Dispose(); err != nil {
			slog.Warn("failed to dispose hub backend", "hub", hubID, "error", err)
		}
		delete(s.hubBackends, hubID)
	}
}

// backend returns the backend for a hub: exact match, else the default. An
// empty hubID always means the default backend.
func (s *Service) backend(hubID string) (Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaultBackend == nil {
		return nil, fmt.Errorf("engagement service not initialized")
	}
	if hubID != "" {
		if b, ok := s.hubBackends[hubID]; ok {
			return b, nil
		}
	}
	return s.defaultBackend, nil
}

// SubmitRating records a 1-5 rating for a resource via the hub's backend and
// notifies observers on success.
func (s *Service) SubmitRating(ctx context.Context, hubID, resourceType, resourceID string, score int, version string) (SubmitStatus, error) {
	if score < 1 || score > 5 {
		return SubmitStatus{}, fmt.Errorf("score must be between 1 and 5, got %d", score)
	}
	b, err := s.backend(hubID)
	if err != nil {
		return SubmitStatus{}, err
	}

	rating := storage.Rating{
		ID:           uuid.NewString(),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Score:        score,
		Timestamp:    storage.NowTimestamp(),
		Version:      version,
	}
	status, err := b.SubmitRating(ctx, rating)
	if err != nil {
		return status, err
	}

	for _, fn := range s.ratingObserverList() {
		fn(hubID, rating)
	}
	return status, nil
}

// GetRating returns the stored rating for a resource, or nil.
func (s *Service) GetRating(ctx context.Context, hubID, resourceType, resourceID string) (*storage.Rating, error) {
	b, err := s.backend(hubID)
	if err != nil {
		return nil, err
	}
	return b.GetRating(ctx, resourceType, resourceID)
}

// DeleteRating removes the rating for a resource.
func (s *Service) DeleteRating(ctx context.Context, hubID, resourceType, resourceID string) error {
	b, err := s.backend(hubID)
	if err != nil {
		return err
	}
	return b.DeleteRating(ctx, resourceType, resourceID)
}

// SubmitFeedback records a feedback comment for a resource and notifies
// observers on success.
func (s *Service) SubmitFeedback(ctx context.Context, hubID, resourceType, resourceID, comment string, rating int, version string) (SubmitStatus, error) {
	if comment == "" {
		return SubmitStatus{}, fmt.Errorf("feedback comment must not be empty")
	}
	b, err := s.backend(hubID)
	if err != nil {
		return SubmitStatus{}, err
	}

	fb := storage.Feedback{
		ID:           uuid.NewString(),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Comment:      comment,
		Timestamp:    storage.NowTimestamp(),
		Version:      version,
		Rating:       rating,
	}
	status, err := b.SubmitFeedback(ctx, fb)
	if err != nil {
		return status, err
	}

	for _, fn := range s.feedbackObserverList() {
		fn(hubID, fb)
	}
	return status, nil
}

// GetFeedback returns feedback for a resource, most recent first.
func (s *Service) GetFeedback(ctx context.Context, hubID, resourceType, resourceID string, limit int) ([]storage.Feedback, error) {
	b, err := s.backend(hubID)
	if err != nil {
		return nil, err
	}
	return b.GetFeedback(ctx, resourceType, resourceID, limit)
}

// DeleteFeedback removes a feedback entry by id.
func (s *Service) DeleteFeedback(ctx context.Context, hubID, id string) error {
	b, err := s.backend(hubID)
	if err != nil {
		return err
	}
	return b.DeleteFeedback(ctx, id)
}

// AllFeedback returns every feedback entry the hub's backend holds locally,
// for callers that need the full corpus (for example to build a search
// index). Errors if the backend cannot enumerate its store.
func (s *Service) AllFeedback(hubID string) ([]storage.Feedback, error) {
	b, err := s.backend(hubID)
	if err != nil {
		return nil, err
	}
	lister, ok := b.(interface {
		AllFeedback() ([]storage.Feedback, error)
	})
	if !ok {
		return nil, fmt.Errorf("backend for hub %q does not support listing all feedback", hubID)
	}
	return lister.AllFeedback()
}

// RecordTelemetry appends a telemetry event unless the privacy gate is
// closed, in which case the call is a silent no-op: nothing is written and
// no observer fires.
func (s *Service) RecordTelemetry(ctx context.Context, hubID, eventType, resourceType, resourceID, version string, metadata map[string]string) error {
	if !s.TelemetryEnabled() {
		return nil
	}
	b, err := s.backend(hubID)
	if err != nil {
		return err
	}

	event := storage.TelemetryEvent{
		ID:           uuid.NewString(),
		Timestamp:    storage.NowTimestamp(),
		EventType:    eventType,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Version:      version,
		Metadata:     metadata,
	}
	if err := b.RecordTelemetry(ctx, event); err != nil {
		return err
	}

	for _, fn := range s.telemetryObserverList() {
		fn(hubID, event)
	}
	return nil
}

// GetTelemetry returns telemetry events matching the filter.
func (s *Service) GetTelemetry(ctx context.Context, hubID string, filter *storage.TelemetryFilter) ([]storage.TelemetryEvent, error) {
	b, err := s.backend(hubID)
	if err != nil {
		return nil, err
	}
	return b.GetTelemetry(ctx, filter)
}

// ClearTelemetry removes telemetry events matching the filter.
func (s *Service) ClearTelemetry(ctx context.Context, hubID string, filter *storage.TelemetryFilter) error {
	b, err := s.backend(hubID)
	if err != nil {
		return err
	}
	return b.ClearTelemetry(ctx, filter)
}

// GetResourceEngagement returns the combined engagement view for a resource.
func (s *Service) GetResourceEngagement(ctx context.Context, hubID, resourceType, resourceID string) (*ResourceEngagement, error) {
	b, err := s.backend(hubID)
	if err != nil {
		return nil, err
	}
	return GetResourceEngagement(ctx, b, resourceType, resourceID)
}

// Observer list snapshots: observers run outside the lock so they can call
// back into the service.

func (s *Service) ratingObserverList() []RatingObserver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RatingObserver(nil), s.ratingObservers...)
}

func (s *Service) feedbackObserverList() []FeedbackObserver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FeedbackObserver(nil), s.feedbackObservers...)
}

func (s *Service) telemetryObserverList() []TelemetryObserver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TelemetryObserver(nil), s.telemetryObservers...)
}
