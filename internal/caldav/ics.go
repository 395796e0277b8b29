package caldav

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/dutywatch/dutywatch/internal/models"
)

// occurrenceCap bounds runaway RRULE expansions for a single event.
const occurrenceCap = 500

// eventsFromICS parses the calendar-data payloads of one calendar and
// returns every occurrence intersecting [windowStart, windowEnd).
// Recurring events are expanded; broken payloads are logged and skipped.
func eventsFromICS(payloads []string, calendarName string, windowStart, windowEnd time.Time, logger *zap.Logger) []models.RawEvent {
	var events []models.RawEvent

	for _, payload := range payloads {
		cal, err := ical.ParseCalendar(strings.NewReader(payload))
		if err != nil {
			logger.Warn("unparseable calendar object",
				zap.String("calendar", calendarName),
				zap.Error(err),
			)
			continue
		}

		for _, ve := range cal.Events() {
			events = append(events, expandVEvent(ve, calendarName, windowStart, windowEnd, logger)...)
		}
	}

	return events
}

func expandVEvent(ve *ical.VEvent, calendarName string, windowStart, windowEnd time.Time, logger *zap.Logger) []models.RawEvent {
	base := models.RawEvent{Calendar: calendarName}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		base.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		base.Summary = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		base.Description = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		base.Location = unescapeText(p.Value)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		logger.Warn("event without usable DTSTART", zap.String("uid", base.UID), zap.Error(err))
		return nil
	}
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		end = start.Add(time.Hour)
	}
	duration := end.Sub(start)

	rawRRule := ""
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rawRRule = p.Value
	}

	if rawRRule == "" {
		if !overlaps(start, end, windowStart, windowEnd) {
			return nil
		}
		base.StartUTC = start.UTC()
		base.EndUTC = end.UTC()
		return []models.RawEvent{base}
	}

	r, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		logger.Warn("unparseable RRULE",
			zap.String("uid", base.UID),
			zap.String("rrule", rawRRule),
			zap.Error(err),
		)
		// Degrade to the base occurrence rather than dropping the event.
		base.StartUTC = start.UTC()
		base.EndUTC = end.UTC()
		return []models.RawEvent{base}
	}
	r.DTStart(start)

	var set rrule.Set
	set.RRule(r)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if ex, ok := parseICSTime(strings.TrimSpace(part), start.Location()); ok {
				set.ExDate(ex.In(start.Location()))
			}
		}
	}

	occTimes := set.Between(windowStart.In(start.Location()), windowEnd.In(start.Location()), true)
	if len(occTimes) > occurrenceCap {
		logger.Warn("recurrence expansion capped",
			zap.String("uid", base.UID),
			zap.Int("cap", occurrenceCap),
		)
		occTimes = occTimes[:occurrenceCap]
	}

	out := make([]models.RawEvent, 0, len(occTimes))
	for _, occStart := range occTimes {
		ev := base
		ev.StartUTC = occStart.UTC()
		ev.EndUTC = occStart.Add(duration).UTC()
		out = append(out, ev)
	}
	return out
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// parseICSTime handles the basic EXDATE value forms.
func parseICSTime(v string, loc *time.Location) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t, err == nil
	}
	if strings.Contains(v, "T") {
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t, err == nil
	}
	t, err := time.ParseInLocation("20060102", v, loc)
	return t, err == nil
}

// unescapeText undoes RFC 5545 TEXT escaping so the description parser sees
// real newlines.
func unescapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
