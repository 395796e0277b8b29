package models

import "time"

// RawEvent is a single VEVENT as returned by the calendar source. It is
// treated as immutable input by the whole row pipeline.
type RawEvent struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	StartUTC    time.Time `json:"start_utc"`
	EndUTC      time.Time `json:"end_utc"`
	Calendar    string    `json:"calendar,omitempty"`
}

// Leg is one flight segment parsed out of an event description. Times are
// local wall-clock strings zero-padded to four digits; an arrival that is
// numerically earlier than the departure means the leg lands the next day.
type Leg struct {
	FlightNumber string `json:"flight_number"`
	Origin       string `json:"origin"`
	Dest         string `json:"dest"`
	DepTime      string `json:"dep_time"`
	ArrTime      string `json:"arr_time"`
	IsDeadhead   bool   `json:"is_deadhead,omitempty"`
	DayPrefix    string `json:"day_prefix,omitempty"`
}

// ParsedDay is everything the text parser extracted from one event
// description. All fields are optional; a day with no report, no legs and
// no hotel is never emitted.
type ParsedDay struct {
	Report     string `json:"report,omitempty"`      // HHMM
	ReportDate string `json:"report_date,omitempty"` // e.g. "15NOV"
	Legs       []Leg  `json:"legs,omitempty"`
	Release    string `json:"release,omitempty"` // HHMM, last arrival + 15m
	Hotel      string `json:"hotel,omitempty"`
}

// HasSignal reports whether the day carries any parsed content.
func (d ParsedDay) HasSignal() bool {
	return d.Report != "" || len(d.Legs) > 0 || d.Hotel != ""
}
