// Package dto holds the response shapes served by the HTTP layer.
package dto

import (
	"time"

	"github.com/dutywatch/dutywatch/internal/caldav"
	"github.com/dutywatch/dutywatch/internal/models"
)

// ScheduleTable is the full dashboard payload: the built row list plus pull
// bookkeeping so the UI can show freshness and schedule its next poll.
type ScheduleTable struct {
	Hash           string       `json:"hash"`
	Rows           []models.Row `json:"rows"`
	HiddenRows     int          `json:"hidden_rows"`
	GeneratedAtUTC time.Time    `json:"generated_at_utc"`
	LastPullUTC    time.Time    `json:"last_pull_utc"`
	NextRunUTC     time.Time    `json:"next_run_utc"`
	RefreshMinutes int          `json:"refresh_minutes"`
	FromCache      bool         `json:"from_cache"`
}

// RefreshResult summarises one calendar pull.
type RefreshResult struct {
	Hash        string    `json:"hash"`
	Changed     bool      `json:"changed"`
	EventCount  int       `json:"event_count"`
	LastPullUTC time.Time `json:"last_pull_utc"`
	NextRunUTC  time.Time `json:"next_run_utc"`
}

// UpcomingEvent is one raw calendar entry in start order, pairing or not.
type UpcomingEvent struct {
	UID      string    `json:"uid"`
	Summary  string    `json:"summary"`
	Calendar string    `json:"calendar,omitempty"`
	StartUTC time.Time `json:"start_utc"`
	EndUTC   time.Time `json:"end_utc"`
}

// CalendarDebug is the discovery snapshot plus cached-pull state.
type CalendarDebug struct {
	Diagnosis   caldav.Diagnosis `json:"diagnosis"`
	LastPullUTC *time.Time       `json:"last_pull_utc,omitempty"`
	EventCount  int              `json:"event_count"`
}
