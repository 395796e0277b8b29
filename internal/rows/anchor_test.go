package rows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseReportDate(t *testing.T) {
	tests := []struct {
		name  string
		token string
		ref   time.Time
		want  time.Time
		ok    bool
	}{
		{name: "same month", token: "15NOV", ref: date(2024, time.November, 10), want: date(2024, time.November, 15), ok: true},
		{name: "single digit day", token: "3DEC", ref: date(2024, time.December, 1), want: date(2024, time.December, 3), ok: true},
		{name: "january seen from december", token: "2JAN", ref: date(2024, time.December, 28), want: date(2025, time.January, 2), ok: true},
		{name: "december seen from january", token: "31DEC", ref: date(2025, time.January, 2), want: date(2024, time.December, 31), ok: true},
		{name: "lowercase token", token: "15nov", ref: date(2024, time.November, 10), want: date(2024, time.November, 15), ok: true},
		{name: "month first rejected", token: "NOV15", ref: date(2024, time.November, 10), ok: false},
		{name: "bad month", token: "15XYZ", ref: date(2024, time.November, 10), ok: false},
		{name: "day out of range", token: "32JAN", ref: date(2024, time.January, 10), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseReportDate(tt.token, tt.ref)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestParseDayPrefix(t *testing.T) {
	tests := []struct {
		name  string
		token string
		ref   time.Time
		want  time.Time
		ok    bool
	}{
		{name: "same month", token: "SU16", ref: date(2024, time.November, 10), want: date(2024, time.November, 16), ok: true},
		{name: "small day near month end rolls forward", token: "MO02", ref: date(2024, time.November, 28), want: date(2024, time.December, 2), ok: true},
		{name: "large day near month start rolls back", token: "TH28", ref: date(2024, time.December, 2), want: date(2024, time.November, 28), ok: true},
		{name: "forward across new year", token: "WE02", ref: date(2024, time.December, 28), want: date(2025, time.January, 2), ok: true},
		{name: "backward across new year", token: "SA30", ref: date(2025, time.January, 3), want: date(2024, time.December, 30), ok: true},
		{name: "no digits", token: "SU", ref: date(2024, time.November, 10), ok: false},
		{name: "not a prefix", token: "1234", ref: date(2024, time.November, 10), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDayPrefix(tt.token, tt.ref)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d       time.Duration
		precise bool
		want    string
	}{
		{90 * time.Minute, false, "1h"},
		{90 * time.Minute, true, "1h 30m"},
		{6 * time.Hour, true, "6h"},
		{26 * time.Hour, false, "1d 2h"},
		{48 * time.Hour, true, "2d"},
		{-time.Hour, false, "0h"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d, tt.precise), "%v precise=%v", tt.d, tt.precise)
	}
}
