package models

import "time"

// Snapshot is the rolling calendar cache: the last fetched event list plus
// pull bookkeeping. Exactly one snapshot exists at a time; a refresh
// replaces it wholesale.
type Snapshot struct {
	Events         []RawEvent `json:"events"`
	Hash           string     `json:"hash"`
	LastPullUTC    time.Time  `json:"last_pull_utc"`
	NextRunUTC     time.Time  `json:"next_run_utc"`
	RefreshMinutes int        `json:"refresh_minutes"`
}
