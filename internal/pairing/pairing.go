// Package pairing reconstructs multi-day duty trips from a flat calendar
// event stream. Grouping is a pure fold over each pairing ID's
// chronologically sorted events: an instance stays open until its legs
// return to the trip family's base airport, at which point the next event
// with the same ID starts a fresh instance.
package pairing

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/dutywatch/dutywatch/internal/models"
	"github.com/dutywatch/dutywatch/internal/parser"
)

// PairingIDRe matches trip identifiers such as W1234 or C3075F. Summaries
// that do not match are treated as standalone non-flying entries.
var PairingIDRe = regexp.MustCompile(`^[A-Z]\d+[A-Z]?$`)

// prefixBases maps a pairing ID's leading letter to the airports that count
// as "home" for that trip family.
var prefixBases = map[byte][]string{
	'W': {"DFW"},
	'A': {"ATL"},
	'C': {"ORD", "MDW"},
	'O': {"CLE"},
	'K': {"CVG"},
	'D': {"DEN"},
	'L': {"LAS"},
	'M': {"MCO"},
	'F': {"MIA"},
	'P': {"PHL"},
	'X': {"PHX"},
	'S': {"SJU"},
	'B': {"TPA"},
}

// BaseAirports returns the home airports for a pairing ID, empty when the
// prefix is unknown.
func BaseAirports(pairingID string) []string {
	if pairingID == "" {
		return nil
	}
	return prefixBases[pairingID[0]]
}

// ExtractPairingID normalizes a summary and returns the pairing ID, or ""
// when the summary is not a pairing identifier.
func ExtractPairingID(summary string) string {
	s := strings.ToUpper(strings.TrimSpace(summary))
	if PairingIDRe.MatchString(s) {
		return s
	}
	return ""
}

// Classification describes an event's position within a trip, relative to
// the trip family's base airports.
type Classification int

const (
	ClassNoLegs Classification = iota
	ClassStart
	ClassEnd
	ClassSingleDay
	ClassMiddle
)

func (c Classification) String() string {
	switch c {
	case ClassStart:
		return "start"
	case ClassEnd:
		return "end"
	case ClassSingleDay:
		return "single_day"
	case ClassMiddle:
		return "middle"
	default:
		return "no_legs"
	}
}

// Event is a calendar event annotated with its parsed day.
type Event struct {
	Raw       models.RawEvent
	PairingID string
	IsPairing bool
	Day       models.ParsedDay
	HasDay    bool
}

// FirstDeparture returns the origin airport of the first parsed leg.
func (e Event) FirstDeparture() string {
	if len(e.Day.Legs) == 0 {
		return ""
	}
	return strings.ToUpper(e.Day.Legs[0].Origin)
}

// LastArrival returns the destination airport of the last parsed leg.
func (e Event) LastArrival() string {
	if len(e.Day.Legs) == 0 {
		return ""
	}
	return strings.ToUpper(e.Day.Legs[len(e.Day.Legs)-1].Dest)
}

// Classify places one event relative to the base airports.
func Classify(e Event, bases []string) Classification {
	if len(e.Day.Legs) == 0 {
		return ClassNoLegs
	}
	startsAtBase := contains(bases, e.FirstDeparture())
	endsAtBase := contains(bases, e.LastArrival())
	switch {
	case startsAtBase && endsAtBase:
		return ClassSingleDay
	case startsAtBase:
		return ClassStart
	case endsAtBase:
		return ClassEnd
	default:
		return ClassMiddle
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ParseEvent converts one raw calendar event into an annotated Event.
// Events without a UID get a deterministic fallback id so that grouping and
// row keys stay stable across rebuilds.
func ParseEvent(raw models.RawEvent) Event {
	raw.Summary = strings.TrimSpace(raw.Summary)
	if raw.UID == "" {
		raw.UID = fallbackUID(raw)
	}

	ev := Event{
		Raw:       raw,
		PairingID: ExtractPairingID(raw.Summary),
	}
	ev.IsPairing = ev.PairingID != ""
	ev.Day, ev.HasDay = parser.ParseDay(raw.Description, raw.Location)
	return ev
}

func fallbackUID(raw models.RawEvent) string {
	sum := sha256.Sum256([]byte(raw.Summary + "|" + raw.StartUTC.UTC().Format("2006-01-02T15:04:05Z")))
	return "ev-" + hex.EncodeToString(sum[:8])
}
