package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dutywatch/dutywatch/internal/models"
)

func TestParseDayReportVariants(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		report     string
		reportDate string
	}{
		{name: "plain four digit", text: "Report: 0545", report: "0545", reportDate: ""},
		{name: "local suffix", text: "Report: 0500L", report: "0500", reportDate: ""},
		{name: "three digit padded", text: "Report: 800", report: "0800", reportDate: ""},
		{name: "dated report", text: "Report: 15NOV 0545", report: "0545", reportDate: "15NOV"},
		{name: "lowercase marker", text: "report: 0715", report: "0715", reportDate: ""},
		{name: "single digit day", text: "Report: 3DEC 0630", report: "0630", reportDate: "3DEC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, ok := ParseDay(tt.text, "")
			require.True(t, ok)
			assert.Equal(t, tt.report, day.Report)
			assert.Equal(t, tt.reportDate, day.ReportDate)
		})
	}
}

func TestParseDayLegs(t *testing.T) {
	text := "Report: 0700\n" +
		"1234 DFW-ORD 0800-1005\n" +
		"SU16 DH 2345 ORD-DEN 1100-1230\n"

	day, ok := ParseDay(text, "")
	require.True(t, ok)
	require.Len(t, day.Legs, 2)

	first := day.Legs[0]
	assert.Equal(t, "1234", first.FlightNumber)
	assert.Equal(t, "DFW", first.Origin)
	assert.Equal(t, "ORD", first.Dest)
	assert.Equal(t, "0800", first.DepTime)
	assert.Equal(t, "1005", first.ArrTime)
	assert.False(t, first.IsDeadhead)
	assert.Empty(t, first.DayPrefix)

	second := day.Legs[1]
	assert.Equal(t, "2345", second.FlightNumber)
	assert.True(t, second.IsDeadhead)
	assert.Equal(t, "SU16", second.DayPrefix)
}

func TestParseDayShortTimesPadded(t *testing.T) {
	day, ok := ParseDay("930 MDW-MCI 800-915", "")
	require.True(t, ok)
	require.Len(t, day.Legs, 1)
	assert.Equal(t, "0800", day.Legs[0].DepTime)
	assert.Equal(t, "0915", day.Legs[0].ArrTime)
	assert.Equal(t, "0930", day.Release)
}

func TestParseDayRelease(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		release string
	}{
		{name: "adds fifteen minutes", text: "1234 DFW-ORD 0700-0900", release: "0915"},
		{name: "wraps past midnight", text: "1234 DFW-ORD 2200-2350", release: "0005"},
		{name: "uses last leg", text: "101 DFW-ORD 0700-0900\n202 ORD-MSP 1000-1100", release: "1115"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, ok := ParseDay(tt.text, "")
			require.True(t, ok)
			assert.Equal(t, tt.release, day.Release)
		})
	}
}

func TestParseDayHotel(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		location string
		hotel    string
	}{
		{
			name:     "location wins when place-like",
			text:     "Report: 0700\nHilton Garden Inn Downtown",
			location: "Embassy Suites Denver",
			hotel:    "Embassy Suites Denver",
		},
		{
			name:  "keyword line preferred over plain line",
			text:  "Crew lounge notes\nHyatt Regency O'Hare\n555-123-4567",
			hotel: "Hyatt Regency O'Hare",
		},
		{
			name:  "falls back to first human looking line",
			text:  "Some Downtown Lodging House\n555-123-4567",
			hotel: "Some Downtown Lodging House",
		},
		{
			name:     "phone-only location ignored",
			text:     "Report: 0700",
			location: "555-123-4567",
			hotel:    "",
		},
		{
			name:  "boilerplate skipped",
			text:  "Created by the Flight Crew View App",
			hotel: "",
		},
		{
			// The location heuristic accepts any letters+space string, even
			// when it is clearly not lodging.
			name:     "non-lodging location still accepted",
			text:     "",
			location: "Conference Room B",
			hotel:    "Conference Room B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, _ := ParseDay(tt.text, tt.location)
			assert.Equal(t, tt.hotel, day.Hotel)
		})
	}
}

func TestParseDayEmptySignal(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		location string
		ok       bool
	}{
		{name: "empty everything", text: "", location: "", ok: false},
		{name: "phone only", text: "555-123-4567", location: "", ok: false},
		{name: "location only", text: "", location: "Conference Room B", ok: true},
		{name: "report only", text: "Report: 0500L", location: "", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, ok := ParseDay(tt.text, tt.location)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				assert.Equal(t, models.ParsedDay{}, day)
			}
		})
	}
}

func TestClock(t *testing.T) {
	h, m, ok := Clock("2330")
	require.True(t, ok)
	assert.Equal(t, 23, h)
	assert.Equal(t, 30, m)

	_, _, ok = Clock("2560")
	assert.False(t, ok)

	_, _, ok = Clock("12x0")
	assert.False(t, ok)
}
