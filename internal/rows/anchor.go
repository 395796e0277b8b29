package rows

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dutywatch/dutywatch/internal/models"
)

var months = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

var dayPrefixRe = regexp.MustCompile(`^[A-Z]{2}(\d{1,2})$`)

// parseReportDate resolves a "15NOV" style token against a reference date.
// The year comes from the reference, shifted when the token sits on the
// other side of a December/January boundary.
func parseReportDate(token string, ref time.Time) (time.Time, bool) {
	token = strings.ToUpper(strings.TrimSpace(token))
	i := 0
	for i < len(token) && token[i] >= '0' && token[i] <= '9' {
		i++
	}
	if i == 0 || len(token)-i != 3 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(token[:i])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	mon, ok := months[token[i:]]
	if !ok {
		return time.Time{}, false
	}

	year := ref.Year()
	switch {
	case ref.Month() == time.December && mon == time.January:
		year++
	case ref.Month() == time.January && mon == time.December:
		year--
	}
	return time.Date(year, mon, day, 0, 0, 0, 0, ref.Location()), true
}

// parseDayPrefix resolves a "SU16" style token to the date nearest the
// reference whose day-of-month matches. A gap of more than half a month
// means the token belongs to the adjacent month.
func parseDayPrefix(token string, ref time.Time) (time.Time, bool) {
	m := dayPrefixRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(token)))
	if m == nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year, mon := ref.Year(), ref.Month()
	switch diff := day - ref.Day(); {
	case diff > 15:
		mon--
		if mon < time.January {
			mon = time.December
			year--
		}
	case diff < -15:
		mon++
		if mon > time.December {
			mon = time.January
			year++
		}
	}
	return time.Date(year, mon, day, 0, 0, 0, 0, ref.Location()), true
}

// anchorDate picks the calendar date for one parsed day. Priority: explicit
// report date token, then the first leg's day prefix, then the hosting
// event's own start date. Failures degrade to the next source, never abort.
func anchorDate(day models.ParsedDay, ref time.Time, logger *zap.Logger) time.Time {
	if day.ReportDate != "" {
		if d, ok := parseReportDate(day.ReportDate, ref); ok {
			return d
		}
		logger.Debug("unparseable report date token", zap.String("token", day.ReportDate))
	}
	if len(day.Legs) > 0 && day.Legs[0].DayPrefix != "" {
		if d, ok := parseDayPrefix(day.Legs[0].DayPrefix, ref); ok {
			return d
		}
		logger.Debug("unparseable day prefix token", zap.String("token", day.Legs[0].DayPrefix))
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
}
