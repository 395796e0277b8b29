package models

import "time"

// RowKind tags the display row variants.
type RowKind string

const (
	RowKindPairing RowKind = "pairing"
	RowKindOff     RowKind = "off"
)

// Row is one entry of the final chronological display table. Exactly one of
// Pairing or Off is set, matching Kind. Rows are rebuilt from scratch on
// every call; nothing here is persisted or mutated in place.
type Row struct {
	Kind    RowKind     `json:"kind"`
	Pairing *PairingRow `json:"pairing,omitempty"`
	Off     *OffRow     `json:"off,omitempty"`
}

// PairingRow wraps a resolved pairing (or a standalone non-flying event,
// with HasLegs=false) together with its display strings.
type PairingRow struct {
	Key              string     `json:"key"`
	PairingID        string     `json:"pairing_id"`
	UID              string     `json:"uid,omitempty"`
	IsPairing        bool       `json:"is_pairing"`
	HasLegs          bool       `json:"has_legs"`
	InProgress       bool       `json:"in_progress"`
	StartsAtBase     bool       `json:"starts_at_base"`
	EndsAtBase       bool       `json:"ends_at_base"`
	IsComplete       bool       `json:"is_complete"`
	ReportLocal      *time.Time `json:"report_local,omitempty"`
	ReleaseLocal     *time.Time `json:"release_local,omitempty"`
	ReportDisplay    string     `json:"report_display,omitempty"`
	ReleaseDisplay   string     `json:"release_display,omitempty"`
	NumDays          int        `json:"num_days"`
	TotalLegs        int        `json:"total_legs"`
	OutOfBaseAirport string     `json:"out_of_base_airport,omitempty"`
	Days             []DayRow   `json:"days,omitempty"`
}

// DayRow is one calendar day of a pairing, either parsed from an event or
// synthesized as a layover placeholder.
type DayRow struct {
	DayIndex       int      `json:"day_index"`
	Date           string   `json:"date,omitempty"` // YYYY-MM-DD, empty if unresolved
	Report         string   `json:"report,omitempty"`
	ReportDisplay  string   `json:"report_display,omitempty"`
	Release        string   `json:"release,omitempty"`
	ReleaseDisplay string   `json:"release_display,omitempty"`
	Hotel          string   `json:"hotel,omitempty"`
	IsLayover      bool     `json:"is_layover,omitempty"`
	Legs           []LegRow `json:"legs,omitempty"`
}

// LegRow is a Leg annotated with anchored timestamps and tracking state.
type LegRow struct {
	Leg
	DisplayNumber     string     `json:"display_number"`
	DepDisplay        string     `json:"dep_display,omitempty"`
	ArrDisplay        string     `json:"arr_display,omitempty"`
	DepLocal          *time.Time `json:"dep_local,omitempty"`
	ArrLocal          *time.Time `json:"arr_local,omitempty"`
	Done              bool       `json:"done"`
	TrackingAvailable bool       `json:"tracking_available"`
	TrackingMessage   string     `json:"tracking_message,omitempty"`
}

// OffRow is a synthesized idle gap between two duty periods.
type OffRow struct {
	StartLocal time.Time `json:"start_local"`
	EndLocal   time.Time `json:"end_local"`
	Duration   string    `json:"duration"`
	IsCurrent  bool      `json:"is_current"`
	Remaining  string    `json:"remaining,omitempty"`
}
