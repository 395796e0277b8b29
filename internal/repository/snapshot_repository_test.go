package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dutywatch/dutywatch/internal/models"
	appErrors "github.com/dutywatch/dutywatch/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlite")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestSnapshotRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	mock.ExpectExec("INSERT INTO schedule_snapshot").
		WithArgs(sqlmock.AnyArg(), "abc123", "2024-11-04T12:00:00Z", "2024-11-04T12:30:00Z", 30).
		WillReturnResult(sqlmock.NewResult(1, 1))

	snap := &models.Snapshot{
		Events: []models.RawEvent{{
			UID:      "u1",
			Summary:  "W1234",
			StartUTC: time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC),
		}},
		Hash:           "abc123",
		LastPullUTC:    time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC),
		NextRunUTC:     time.Date(2024, 11, 4, 12, 30, 0, 0, time.UTC),
		RefreshMinutes: 30,
	}
	require.NoError(t, repo.Save(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	rows := sqlmock.NewRows([]string{"events_json", "hash", "last_pull_utc", "next_run_utc", "refresh_minutes"}).
		AddRow(`[{"uid":"u1","summary":"W1234","description":"","start_utc":"2024-11-04T12:00:00Z","end_utc":"2024-11-05T00:00:00Z"}]`,
			"abc123", "2024-11-04T12:00:00Z", "2024-11-04T12:30:00Z", 30)
	mock.ExpectQuery("SELECT events_json, hash").WillReturnRows(rows)

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "W1234", snap.Events[0].Summary)
	assert.Equal(t, "abc123", snap.Hash)
	assert.Equal(t, time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC), snap.LastPullUTC)
	assert.Equal(t, 30, snap.RefreshMinutes)
}

func TestSnapshotRepositoryLoadEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	mock.ExpectQuery("SELECT events_json, hash").
		WillReturnRows(sqlmock.NewRows([]string{"events_json", "hash", "last_pull_utc", "next_run_utc", "refresh_minutes"}))

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMarkerRepository(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMarkerRepository(db)
	at := time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO hidden_rows").
		WithArgs("row-1", "2024-11-04T12:00:00Z").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Hide(context.Background(), "row-1", at))

	mock.ExpectQuery("SELECT row_key FROM hidden_rows").
		WillReturnRows(sqlmock.NewRows([]string{"row_key"}).AddRow("row-1"))
	hidden, err := repo.HiddenKeys(context.Background())
	require.NoError(t, err)
	assert.True(t, hidden["row-1"])

	mock.ExpectExec("DELETE FROM hidden_rows").
		WithArgs("row-1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Unhide(context.Background(), "row-1"))

	require.NoError(t, mock.ExpectationsWereMet())
}
