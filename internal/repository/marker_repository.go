package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// MarkerRepository stores per-row UI markers. The only marker today is
// "hidden": a row key the user dismissed from the dashboard.
type MarkerRepository struct {
	db *sqlx.DB
}

// NewMarkerRepository instantiates the repository.
func NewMarkerRepository(db *sqlx.DB) *MarkerRepository {
	return &MarkerRepository{db: db}
}

const markerSchema = `
CREATE TABLE IF NOT EXISTS hidden_rows (
    row_key TEXT PRIMARY KEY,
    hidden_at_utc TEXT NOT NULL
);`

// InitSchema creates the marker table when missing.
func (r *MarkerRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, markerSchema); err != nil {
		return fmt.Errorf("create hidden_rows table: %w", err)
	}
	return nil
}

// Hide marks a row key as dismissed. Hiding twice is a no-op.
func (r *MarkerRepository) Hide(ctx context.Context, rowKey string, at time.Time) error {
	query := `INSERT INTO hidden_rows (row_key, hidden_at_utc) VALUES (?, ?)
        ON CONFLICT(row_key) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, rowKey, at.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("hide row %s: %w", rowKey, err)
	}
	return nil
}

// Unhide removes the marker for a row key.
func (r *MarkerRepository) Unhide(ctx context.Context, rowKey string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM hidden_rows WHERE row_key = ?`, rowKey); err != nil {
		return fmt.Errorf("unhide row %s: %w", rowKey, err)
	}
	return nil
}

// HiddenKeys returns the set of dismissed row keys.
func (r *MarkerRepository) HiddenKeys(ctx context.Context) (map[string]bool, error) {
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, `SELECT row_key FROM hidden_rows`); err != nil {
		return nil, fmt.Errorf("list hidden rows: %w", err)
	}

	hidden := make(map[string]bool, len(keys))
	for _, k := range keys {
		hidden[k] = true
	}
	return hidden, nil
}
