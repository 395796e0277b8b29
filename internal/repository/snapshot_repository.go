package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dutywatch/dutywatch/internal/models"
	appErrors "github.com/dutywatch/dutywatch/pkg/errors"
)

// SnapshotRepository persists the single rolling calendar snapshot. The
// event list is stored as one JSON blob; there is never more than one row.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository instantiates the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS schedule_snapshot (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    events_json TEXT NOT NULL,
    hash TEXT NOT NULL,
    last_pull_utc TEXT NOT NULL,
    next_run_utc TEXT NOT NULL DEFAULT '',
    refresh_minutes INTEGER NOT NULL DEFAULT 30
);`

// InitSchema creates the snapshot table when missing.
func (r *SnapshotRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("create schedule_snapshot table: %w", err)
	}
	return nil
}

// Save replaces the snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap.Events)
	if err != nil {
		return fmt.Errorf("marshal snapshot events: %w", err)
	}

	query := `INSERT INTO schedule_snapshot (id, events_json, hash, last_pull_utc, next_run_utc, refresh_minutes)
        VALUES (1, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            events_json = excluded.events_json,
            hash = excluded.hash,
            last_pull_utc = excluded.last_pull_utc,
            next_run_utc = excluded.next_run_utc,
            refresh_minutes = excluded.refresh_minutes`

	_, err = r.db.ExecContext(ctx, query,
		string(payload),
		snap.Hash,
		snap.LastPullUTC.UTC().Format(time.RFC3339),
		snap.NextRunUTC.UTC().Format(time.RFC3339),
		snap.RefreshMinutes,
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot, or ErrNotFound when no pull has
// happened yet.
func (r *SnapshotRepository) Load(ctx context.Context) (*models.Snapshot, error) {
	var row struct {
		EventsJSON     string `db:"events_json"`
		Hash           string `db:"hash"`
		LastPullUTC    string `db:"last_pull_utc"`
		NextRunUTC     string `db:"next_run_utc"`
		RefreshMinutes int    `db:"refresh_minutes"`
	}

	query := `SELECT events_json, hash, last_pull_utc, next_run_utc, refresh_minutes
        FROM schedule_snapshot WHERE id = 1`
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap := &models.Snapshot{
		Hash:           row.Hash,
		RefreshMinutes: row.RefreshMinutes,
	}
	if err := json.Unmarshal([]byte(row.EventsJSON), &snap.Events); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot events: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, row.LastPullUTC); err == nil {
		snap.LastPullUTC = t
	}
	if t, err := time.Parse(time.RFC3339, row.NextRunUTC); err == nil {
		snap.NextRunUTC = t
	}
	return snap, nil
}
