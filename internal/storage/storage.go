package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	// storeVersion is written into every store file. No migration logic
	// keys off it yet; it exists so a future format change can.
	storeVersion = "1.0"

	// maxTelemetryEvents caps the telemetry store. Trimming keeps the most
	// recently appended events.
	maxTelemetryEvents = 10000

	// maxFeedbackEntries caps the feedback store.
	maxFeedbackEntries = 1000
)

const (
	telemetryFile = "telemetry.json"
	ratingsFile   = "ratings.json"
	feedbackFile  = "feedback.json"
)

// telemetryStore is the on-disk shape of telemetry.json.
type telemetryStore struct {
	Version string           `json:"version"`
	Events  []TelemetryEvent `json:"events"`
}

// ratingStore is the on-disk shape of ratings.json.
type ratingStore struct {
	Version string   `json:"version"`
	Ratings []Rating `json:"ratings"`
}

// feedbackStore is the on-disk shape of feedback.json.
type feedbackStore struct {
	Version  string     `json:"version"`
	Feedback []Feedback `json:"feedback"`
}

// EngagementStorage is a file-backed store for telemetry events, ratings,
// and feedback. Each record kind lives in its own JSON file under the root
// directory. Stores load lazily on first access and are cached in memory;
// every mutation rewrites the whole file before returning.
//
// Unreadable or corrupt files are treated as empty stores. Write errors
// propagate to the caller.
type EngagementStorage struct {
	root string
	mu   sync.Mutex

	telemetry *telemetryStore
	ratings   *ratingStore
	feedback  *feedbackStore
}

// NewEngagementStorage creates a storage instance rooted at dir. Call
// Initialize before use.
func NewEngagementStorage(dir string) *EngagementStorage {
	return &EngagementStorage{root: dir}
}

// NowTimestamp returns the current time formatted the way all engagement
// records store timestamps.
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Initialize ensures the root directory exists. Idempotent.
func (s *EngagementStorage) Initialize() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}

// Root returns the directory this storage writes under.
func (s *EngagementStorage) Root() string {
	return s.root
}

// SaveTelemetryEvent appends an event, trimming the store to its cap.
func (s *EngagementStorage) SaveTelemetryEvent(event TelemetryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadTelemetry()
	store.Events = append(store.Events, event)
	if len(store.Events) > maxTelemetryEvents {
		store.Events = store.Events[len(store.Events)-maxTelemetryEvents:]
	}
	return s.writeFile(telemetryFile, store)
}

// GetTelemetryEvents returns events matching the filter, in insertion order.
// A nil filter returns everything.
func (s *EngagementStorage) GetTelemetryEvents(filter *TelemetryFilter) ([]TelemetryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadTelemetry()
	if filter == nil {
		return append([]TelemetryEvent(nil), store.Events...), nil
	}

	var events []TelemetryEvent
	for _, e := range store.Events {
		if !matchesQueryFilter(e, filter) {
			continue
		}
		events = append(events, e)
	}
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

// ClearTelemetry removes events. With a nil filter the store is truncated;
// otherwise only matching events are removed.
//
// Unlike GetTelemetryEvents, the date-range predicate here only applies when
// both StartDate and EndDate are set. The asymmetry is long-standing observed
// behavior that callers may depend on.
func (s *EngagementStorage) ClearTelemetry(filter *TelemetryFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadTelemetry()
	if filter == nil {
		store.Events = nil
		return s.writeFile(telemetryFile, store)
	}

	var kept []TelemetryEvent
	for _, e := range store.Events {
		if !matchesClearFilter(e, filter) {
			kept = append(kept, e)
		}
	}
	store.Events = kept
	return s.writeFile(telemetryFile, store)
}

// matchesQueryFilter applies read-side predicates: each date bound applies
// independently.
func matchesQueryFilter(e TelemetryEvent, f *TelemetryFilter) bool {
	if !matchesCommon(e, f) {
		return false
	}
	if f.StartDate != "" && e.Timestamp < f.StartDate {
		return false
	}
	if f.EndDate != "" && e.Timestamp > f.EndDate {
		return false
	}
	return true
}

// matchesClearFilter applies clear-side predicates: the date range matches
// only when both bounds are set.
func matchesClearFilter(e TelemetryEvent, f *TelemetryFilter) bool {
	if !matchesCommon(e, f) {
		return false
	}
	if f.StartDate != "" && f.EndDate != "" {
		if e.Timestamp < f.StartDate || e.Timestamp > f.EndDate {
			return false
		}
	}
	return true
}

func matchesCommon(e TelemetryEvent, f *TelemetryFilter) bool {
	if len(f.EventTypes) > 0 && !contains(f.EventTypes, e.EventType) {
		return false
	}
	if len(f.ResourceTypes) > 0 && !contains(f.ResourceTypes, e.ResourceType) {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SaveRating upserts a rating keyed by (ResourceType, ResourceID).
func (s *EngagementStorage) SaveRating(rating Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadRatings()
	replaced := false
	for i, r := range store.Ratings {
		if r.ResourceType == rating.ResourceType && r.ResourceID == rating.ResourceID {
			store.Ratings[i] = rating
			replaced = true
			break
		}
	}
	if !replaced {
		store.Ratings = append(store.Ratings, rating)
	}
	return s.writeFile(ratingsFile, store)
}

// GetRating returns the rating for a resource, or nil if none exists.
func (s *EngagementStorage) GetRating(resourceType, resourceID string) (*Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadRatings()
	for _, r := range store.Ratings {
		if r.ResourceType == resourceType && r.ResourceID == resourceID {
			rating := r
			return &rating, nil
		}
	}
	return nil, nil
}

// GetAllRatings returns every stored rating.
func (s *EngagementStorage) GetAllRatings() ([]Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadRatings()
	return append([]Rating(nil), store.Ratings...), nil
}

// DeleteRating removes the rating for a resource if one exists.
func (s *EngagementStorage) DeleteRating(resourceType, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadRatings()
	for i, r := range store.Ratings {
		if r.ResourceType == resourceType && r.ResourceID == resourceID {
			store.Ratings = append(store.Ratings[:i], store.Ratings[i+1:]...)
			return s.writeFile(ratingsFile, store)
		}
	}
	return nil
}

// SaveFeedback appends a feedback entry, trimming the store to its cap.
func (s *EngagementStorage) SaveFeedback(fb Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadFeedback()
	store.Feedback = append(store.Feedback, fb)
	if len(store.Feedback) > maxFeedbackEntries {
		store.Feedback = store.Feedback[len(store.Feedback)-maxFeedbackEntries:]
	}
	return s.writeFile(feedbackFile, store)
}

// GetFeedback returns feedback for a resource, most recent first. A positive
// limit truncates the result.
func (s *EngagementStorage) GetFeedback(resourceType, resourceID string, limit int) ([]Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadFeedback()
	var entries []Feedback
	for _, f := range store.Feedback {
		if f.ResourceType == resourceType && f.ResourceID == resourceID {
			entries = append(entries, f)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// GetAllFeedback returns every stored feedback entry.
func (s *EngagementStorage) GetAllFeedback() ([]Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadFeedback()
	return append([]Feedback(nil), store.Feedback...), nil
}

// DeleteFeedback removes the feedback entry with the given id.
func (s *EngagementStorage) DeleteFeedback(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store := s.loadFeedback()
	for i, f := range store.Feedback {
		if f.ID == id {
			store.Feedback = append(store.Feedback[:i], store.Feedback[i+1:]...)
			return s.writeFile(feedbackFile, store)
		}
	}
	return nil
}

// ClearCache drops the in-memory stores without touching disk. The next
// access reloads from file.
func (s *EngagementStorage) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry = nil
	s.ratings = nil
	s.feedback = nil
}

// ClearAll empties all three stores on disk.
func (s *EngagementStorage) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.telemetry = &telemetryStore{Version: storeVersion}
	if err := s.writeFile(telemetryFile, s.telemetry); err != nil {
		return err
	}
	s.ratings = &ratingStore{Version: storeVersion}
	if err := s.writeFile(ratingsFile, s.ratings); err != nil {
		return err
	}
	s.feedback = &feedbackStore{Version: storeVersion}
	return s.writeFile(feedbackFile, s.feedback)
}

// loadTelemetry returns the cached telemetry store, reading it from disk on
// first access. Callers must hold s.mu.
func (s *EngagementStorage) loadTelemetry() *telemetryStore {
	if s.telemetry == nil {
		s.telemetry = &telemetryStore{Version: storeVersion}
		var loaded telemetryStore
		if s.readFile(telemetryFile, &loaded) {
			s.telemetry = &loaded
		}
	}
	return s.telemetry
}

func (s *EngagementStorage) loadRatings() *ratingStore {
	if s.ratings == nil {
		s.ratings = &ratingStore{Version: storeVersion}
		var loaded ratingStore
		if s.readFile(ratingsFile, &loaded) {
			s.ratings = &loaded
		}
	}
	return s.ratings
}

func (s *EngagementStorage) loadFeedback() *feedbackStore {
	if s.feedback == nil {
		s.feedback = &feedbackStore{Version: storeVersion}
		var loaded feedbackStore
		if s.readFile(feedbackFile, &loaded) {
			s.feedback = &loaded
		}
	}
	return s.feedback
}

// readFile loads a store file into dst, reporting whether it parsed. A
// missing or unparsable file means "empty store"; that is the
// permissive-read contract.
func (s *EngagementStorage) readFile(name string, dst interface{}) bool {
	path := filepath.Join(s.root, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read engagement store, treating as empty", "file", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("failed to parse engagement store, treating as empty", "file", name, "error", err)
		return false
	}
	return true
}

// writeFile persists a store file via temp-file + rename.
func (s *EngagementStorage) writeFile(name string, src interface{}) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(s.root, name)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
