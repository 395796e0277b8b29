// Package parser extracts structured pairing data from free-text calendar
// event descriptions. It is the single canonical home for the crew-app text
// patterns: report times, flight legs, and lodging strings all come out of
// the named regexps below and nowhere else.
package parser

import (
	"regexp"
	"strings"

	"github.com/dutywatch/dutywatch/internal/models"
)

// Core patterns. Kept as named package-level constants so they can be tested
// independently and never drift into near-duplicate copies.
var (
	// ReportRe matches "Report: 0545", "Report: 0500L" and the dated form
	// "Report: 15NOV 0545". Group 1 is the optional day+month token, group 2
	// the 3-4 digit time.
	ReportRe = regexp.MustCompile(`(?i)\bReport:\s*(?:(\d{1,2}[A-Za-z]{3})\s+)?(\d{3,4})L?\b`)

	// LegRe matches one flight leg, optionally preceded by a day-of-week+day
	// prefix ("SU16") and/or a deadhead marker. Groups: 1 day prefix, 2
	// deadhead marker, 3 flight number, 4 origin, 5 destination, 6 departure
	// HHMM, 7 arrival HHMM.
	LegRe = regexp.MustCompile(`\b(?:([A-Z]{2}\d{1,2})\s+)?(?:(DH|DHD)\s+)?(\d{3,4})\s+([A-Z]{3})-([A-Z]{3})\s+(\d{3,4})-(\d{3,4})\b`)

	// HotelishRe lists soft lodging keywords; preferred but not required.
	HotelishRe = regexp.MustCompile(`(?i)\b(Hotel|Inn|Suites?|Resort|Lodge|Residence|Place|Element|Embassy|Hilton|Hyatt|Westin|Marriott|Plaza|Centre|Center|Aloft|Courtyard|Stay)\b`)

	// PhoneOnlyRe matches lines that consist only of phone-number characters.
	PhoneOnlyRe = regexp.MustCompile(`^\s*[\d\-\s().+]{7,}\s*$`)

	// BoilerplateRe matches footer noise the crew app appends to every event.
	BoilerplateRe = regexp.MustCompile(`(?i)Created by the Flight Crew View App`)

	hasLetterRe = regexp.MustCompile(`[A-Za-z]`)
)

// ParseDay parses one event's description (and optional location) into a
// ParsedDay. The second return value is false when nothing useful was found;
// callers must treat that as "no signal", not as an error. The parser never
// fails: malformed fragments are simply skipped.
func ParseDay(description, location string) (models.ParsedDay, bool) {
	var day models.ParsedDay

	if m := ReportRe.FindStringSubmatch(description); m != nil {
		day.ReportDate = strings.ToUpper(m[1])
		day.Report = ensureHHMM(m[2])
	}

	for _, m := range LegRe.FindAllStringSubmatch(description, -1) {
		day.Legs = append(day.Legs, models.Leg{
			DayPrefix:    m[1],
			IsDeadhead:   m[2] != "",
			FlightNumber: m[3],
			Origin:       m[4],
			Dest:         m[5],
			DepTime:      ensureHHMM(m[6]),
			ArrTime:      ensureHHMM(m[7]),
		})
	}

	day.Hotel = extractHotel(description, location)

	// Release = last arrival + 15 minute deplane/checkout buffer, wrapping
	// past midnight.
	if n := len(day.Legs); n > 0 {
		if mins, ok := minutesFromHHMM(day.Legs[n-1].ArrTime); ok {
			day.Release = hhmmFromMinutes(mins + releaseBufferMinutes)
		}
	}

	return day, day.HasSignal()
}

// releaseBufferMinutes is the fixed turnaround buffer added to the last
// arrival; it is not configurable per event.
const releaseBufferMinutes = 15

func ensureHHMM(s string) string {
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

func minutesFromHHMM(hhmm string) (int, bool) {
	hhmm = ensureHHMM(hhmm)
	if len(hhmm) != 4 {
		return 0, false
	}
	for i := 0; i < 4; i++ {
		if hhmm[i] < '0' || hhmm[i] > '9' {
			return 0, false
		}
	}
	h := int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
	m := int(hhmm[2]-'0')*10 + int(hhmm[3]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func hhmmFromMinutes(total int) string {
	total %= 24 * 60
	if total < 0 {
		total += 24 * 60
	}
	h := total / 60
	m := total % 60
	return string([]byte{byte('0' + h/10), byte('0' + h%10), byte('0' + m/10), byte('0' + m%10)})
}

// Clock splits an HHMM string into hour and minute components. ok is false
// for anything that is not a valid wall-clock time.
func Clock(hhmm string) (hour, minute int, ok bool) {
	mins, ok := minutesFromHHMM(hhmm)
	if !ok {
		return 0, 0, false
	}
	return mins / 60, mins % 60, true
}

// looksLikePlace is the heuristic "is this a human place name" check: at
// least one letter, at least one interior space, and not phone-only.
func looksLikePlace(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if PhoneOnlyRe.MatchString(s) {
		return false
	}
	return hasLetterRe.MatchString(s) && strings.Contains(s, " ")
}

// extractHotel chooses a lodging string. The event location wins when it
// looks like a place; otherwise the description lines are scanned, lodging
// keyword lines first, then the first human-looking line.
func extractHotel(description, location string) string {
	if loc := strings.TrimSpace(location); loc != "" && looksLikePlace(loc) {
		return loc
	}

	var preferred, fallback []string
	for _, raw := range strings.Split(description, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if ReportRe.MatchString(line) || LegRe.MatchString(line) {
			continue
		}
		if PhoneOnlyRe.MatchString(line) || BoilerplateRe.MatchString(line) {
			continue
		}
		if HotelishRe.MatchString(line) {
			preferred = append(preferred, line)
		} else if looksLikePlace(line) {
			fallback = append(fallback, line)
		}
	}

	if len(preferred) > 0 {
		return preferred[0]
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}
