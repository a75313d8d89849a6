package engagement

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/promptreg/prompt-hub/internal/storage"
)

const (
	sqliteMaxTelemetryEvents = 10000
	sqliteMaxFeedbackEntries = 1000
)

// SQLiteBackend persists engagement records in a single-file SQLite database
// (modernc.org/sqlite, CGo-free) at StoragePath/engagement.db. Same contract
// and caps as the file backend, with SQL doing the filtering.
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewSQLiteBackend creates an uninitialized SQLite backend.
func NewSQLiteBackend() *SQLiteBackend {
	return &SQLiteBackend{}
}

// Initialize opens the database and runs migrations.
func (b *SQLiteBackend) Initialize(cfg BackendConfig) error {
	if err := validateType(cfg, BackendSQLite); err != nil {
		return err
	}
	if cfg.StoragePath == "" {
		return fmt.Errorf("sqlite backend requires storagePath")
	}

	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}
	dbPath := filepath.Join(cfg.StoragePath, "engagement.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	b.db = db
	b.dbPath = dbPath
	return nil
}

func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS telemetry_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		event_type TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		version TEXT,
		metadata TEXT
	);
	CREATE TABLE IF NOT EXISTS ratings (
		id TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		version TEXT,
		UNIQUE(resource_type, resource_id)
	);
	CREATE TABLE IF NOT EXISTS feedback (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		comment TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		version TEXT,
		rating INTEGER
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Dispose closes the database connection. Idempotent.
func (b *SQLiteBackend) Dispose() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) ensureInitialized() error {
	if b.db == nil {
		return ErrNotInitialized
	}
	return nil
}

// SubmitRating upserts the rating for its resource.
func (b *SQLiteBackend) SubmitRating(ctx context.Context, rating storage.Rating) (SubmitStatus, error) {
	if err := b.ensureInitialized(); err != nil {
		return SubmitStatus{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO ratings (id, resource_type, resource_id, score, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(resource_type, resource_id) DO UPDATE SET
			id = excluded.id,
			score = excluded.score,
			timestamp = excluded.timestamp,
			version = excluded.version
	`, rating.ID, rating.ResourceType, rating.ResourceID, rating.Score, rating.Timestamp, rating.Version)
	if err != nil {
		return SubmitStatus{}, fmt.Errorf("failed to save rating: %w", err)
	}
	return SubmitStatus{}, nil
}

func (b *SQLiteBackend) GetRating(ctx context.Context, resourceType, resourceID string) (*storage.Rating, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	row := b.db.QueryRowContext(ctx, `
		SELECT id, resource_type, resource_id, score, timestamp, COALESCE(version, '')
		FROM ratings WHERE resource_type = ? AND resource_id = ?
	`, resourceType, resourceID)

	var r storage.Rating
	if err := row.Scan(&r.ID, &r.ResourceType, &r.ResourceID, &r.Score, &r.Timestamp, &r.Version); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Warn("failed to query rating", "error", err)
		return nil, nil
	}
	return &r, nil
}

func (b *SQLiteBackend) DeleteRating(ctx context.Context, resourceType, resourceID string) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE resource_type = ? AND resource_id = ?`,
		resourceType, resourceID)
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	return nil
}

// GetAggregatedRatings synthesizes single-voter stats from the stored
// rating, mirroring the file backend.
func (b *SQLiteBackend) GetAggregatedRatings(ctx context.Context, resourceType, resourceID string) (*RatingStats, error) {
	rating, err := b.GetRating(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	stats := &RatingStats{
		ResourceID:   resourceID,
		Distribution: emptyDistribution(),
	}
	if rating != nil {
		stats.AverageRating = float64(rating.Score)
		stats.RatingCount = 1
		stats.Distribution[rating.Score] = 1
	}
	return stats, nil
}

func (b *SQLiteBackend) SubmitFeedback(ctx context.Context, fb storage.Feedback) (SubmitStatus, error) {
	if err := b.ensureInitialized(); err != nil {
		return SubmitStatus{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO feedback (id, resource_type, resource_id, comment, timestamp, version, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fb.ID, fb.ResourceType, fb.ResourceID, fb.Comment, fb.Timestamp, fb.Version, fb.Rating)
	if err != nil {
		return SubmitStatus{}, fmt.Errorf("failed to save feedback: %w", err)
	}

	// Trim to cap, dropping the oldest by insertion order.
	_, err = b.db.ExecContext(ctx, `
		DELETE FROM feedback WHERE seq NOT IN (
			SELECT seq FROM feedback ORDER BY seq DESC LIMIT ?
		)
	`, sqliteMaxFeedbackEntries)
	if err != nil {
		return SubmitStatus{}, fmt.Errorf("failed to trim feedback: %w", err)
	}
	return SubmitStatus{}, nil
}

func (b *SQLiteBackend) GetFeedback(ctx context.Context, resourceType, resourceID string, limit int) ([]storage.Feedback, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	query := `
		SELECT id, resource_type, resource_id, comment, timestamp, COALESCE(version, ''), COALESCE(rating, 0)
		FROM feedback WHERE resource_type = ? AND resource_id = ?
		ORDER BY timestamp DESC
	`
	args := []interface{}{resourceType, resourceID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Warn("failed to query feedback", "error", err)
		return []storage.Feedback{}, nil
	}
	defer rows.Close()

	var entries []storage.Feedback
	for rows.Next() {
		var f storage.Feedback
		if err := rows.Scan(&f.ID, &f.ResourceType, &f.ResourceID, &f.Comment, &f.Timestamp, &f.Version, &f.Rating); err != nil {
			slog.Warn("failed to scan feedback row", "error", err)
			continue
		}
		entries = append(entries, f)
	}
	return entries, nil
}

func (b *SQLiteBackend) DeleteFeedback(ctx context.Context, id string) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) RecordTelemetry(ctx context.Context, event storage.TelemetryEvent) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var metadata string
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO telemetry_events (id, timestamp, event_type, resource_type, resource_id, version, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.Timestamp, event.EventType, event.ResourceType, event.ResourceID, event.Version, metadata)
	if err != nil {
		return fmt.Errorf("failed to record telemetry: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		DELETE FROM telemetry_events WHERE seq NOT IN (
			SELECT seq FROM telemetry_events ORDER BY seq DESC LIMIT ?
		)
	`, sqliteMaxTelemetryEvents)
	if err != nil {
		return fmt.Errorf("failed to trim telemetry: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) GetTelemetry(ctx context.Context, filter *storage.TelemetryFilter) ([]storage.TelemetryEvent, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	query := `
		SELECT id, timestamp, event_type, resource_type, resource_id, COALESCE(version, ''), COALESCE(metadata, '')
		FROM telemetry_events
	`
	where, args := telemetryWhere(filter, false)
	query += where + " ORDER BY seq"

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Warn("failed to query telemetry", "error", err)
		return []storage.TelemetryEvent{}, nil
	}
	defer rows.Close()

	var events []storage.TelemetryEvent
	for rows.Next() {
		var (
			e        storage.TelemetryEvent
			metadata string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.ResourceType, &e.ResourceID, &e.Version, &metadata); err != nil {
			slog.Warn("failed to scan telemetry row", "error", err)
			continue
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				slog.Warn("failed to parse telemetry metadata", "error", err)
			}
		}
		events = append(events, e)
	}

	if filter != nil && filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

func (b *SQLiteBackend) ClearTelemetry(ctx context.Context, filter *storage.TelemetryFilter) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if filter == nil {
		if _, err := b.db.ExecContext(ctx, `DELETE FROM telemetry_events`); err != nil {
			return fmt.Errorf("failed to clear telemetry: %w", err)
		}
		return nil
	}

	where, args := telemetryWhere(filter, true)
	if _, err := b.db.ExecContext(ctx, `DELETE FROM telemetry_events`+where, args...); err != nil {
		return fmt.Errorf("failed to clear telemetry: %w", err)
	}
	return nil
}

// telemetryWhere builds the WHERE clause for a telemetry filter. On the
// clear path the date range only applies when both bounds are set, matching
// the file store's behavior.
func telemetryWhere(filter *storage.TelemetryFilter, clearing bool) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var (
		conds []string
		args  []interface{}
	)
	if len(filter.EventTypes) > 0 {
		conds = append(conds, "event_type IN ("+placeholders(len(filter.EventTypes))+")")
		for _, t := range filter.EventTypes {
			args = append(args, t)
		}
	}
	if len(filter.ResourceTypes) > 0 {
		conds = append(conds, "resource_type IN ("+placeholders(len(filter.ResourceTypes))+")")
		for _, t := range filter.ResourceTypes {
			args = append(args, t)
		}
	}
	if filter.ResourceID != "" {
		conds = append(conds, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if clearing {
		if filter.StartDate != "" && filter.EndDate != "" {
			conds = append(conds, "timestamp >= ?", "timestamp <= ?")
			args = append(args, filter.StartDate, filter.EndDate)
		}
	} else {
		if filter.StartDate != "" {
			conds = append(conds, "timestamp >= ?")
			args = append(args, filter.StartDate)
		}
		if filter.EndDate != "" {
			conds = append(conds, "timestamp <= ?")
			args = append(args, filter.EndDate)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
