package rows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dutywatch/dutywatch/internal/models"
)

func rawEvent(uid, summary, description string, start time.Time) models.RawEvent {
	return models.RawEvent{
		UID:         uid,
		Summary:     summary,
		Description: description,
		StartUTC:    start,
		EndUTC:      start.Add(12 * time.Hour),
	}
}

func buildOpts(now time.Time) Options {
	return Options{
		Now:            now,
		Location:       time.UTC,
		Use24hClock:    true,
		IncludeOffRows: true,
		HomeBase:       "DFW",
	}
}

func pairingRows(rows []models.Row) []*models.PairingRow {
	var out []*models.PairingRow
	for _, r := range rows {
		if r.Kind == models.RowKindPairing {
			out = append(out, r.Pairing)
		}
	}
	return out
}

func offRows(rows []models.Row) []*models.OffRow {
	var out []*models.OffRow
	for _, r := range rows {
		if r.Kind == models.RowKindOff {
			out = append(out, r.Off)
		}
	}
	return out
}

// twoTrips is a complete round trip releasing 14:00 followed by a second
// trip reporting 20:00 the same day, a six hour gap.
func twoTrips() []models.RawEvent {
	return []models.RawEvent{
		rawEvent("u1", "W1111",
			"Report: 0700\n1010 DFW-ORD 0700-0900\n2020 ORD-DFW 1200-1345",
			time.Date(2024, 11, 4, 6, 0, 0, 0, time.UTC)),
		rawEvent("u2", "W2222",
			"Report: 2000\n3030 DFW-MSP 2000-2200",
			time.Date(2024, 11, 4, 18, 0, 0, 0, time.UTC)),
	}
}

func TestBuildSinglePairing(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "Report: 0700\n1234 DFW-ORD 0700-0900",
			time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)),
	}
	opts := buildOpts(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))
	opts.IncludeOffRows = false

	rows := Build(events, opts)
	require.Len(t, rows, 1)
	pr := rows[0].Pairing
	require.NotNil(t, pr)

	require.NotNil(t, pr.ReportLocal)
	require.NotNil(t, pr.ReleaseLocal)
	assert.Equal(t, time.Date(2024, 11, 4, 7, 0, 0, 0, time.UTC), *pr.ReportLocal)
	assert.Equal(t, time.Date(2024, 11, 4, 9, 15, 0, 0, time.UTC), *pr.ReleaseLocal)
	assert.True(t, pr.StartsAtBase)
	assert.False(t, pr.EndsAtBase)
	assert.False(t, pr.IsComplete)
	assert.Equal(t, 1, pr.NumDays)
	assert.Equal(t, 1, pr.TotalLegs)
	assert.False(t, pr.InProgress)
	assert.NotEmpty(t, pr.Key)

	require.Len(t, pr.Days, 1)
	require.Len(t, pr.Days[0].Legs, 1)
	leg := pr.Days[0].Legs[0]
	assert.Equal(t, "1234", leg.DisplayNumber)
	assert.False(t, leg.Done)
	assert.False(t, leg.TrackingAvailable, "more than a day out")
}

func TestBuildLegFlagsAfterArrival(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "Report: 0700\n1234 DFW-ORD 0700-0900",
			time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)),
	}
	opts := buildOpts(time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC))
	opts.IncludeOffRows = false

	rows := Build(events, opts)
	leg := rows[0].Pairing.Days[0].Legs[0]
	assert.True(t, leg.Done)
	assert.True(t, leg.TrackingAvailable)
	assert.NotEmpty(t, leg.TrackingMessage)
}

func TestBuildDeadheadNeverTrackable(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "Report: 0700\nDH 1234 DFW-ORD 0700-0900",
			time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)),
	}
	opts := buildOpts(time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC))
	opts.IncludeOffRows = false

	rows := Build(events, opts)
	leg := rows[0].Pairing.Days[0].Legs[0]
	assert.Equal(t, "*1234", leg.DisplayNumber)
	assert.True(t, leg.Done)
	assert.False(t, leg.TrackingAvailable)
	assert.Empty(t, leg.TrackingMessage)
}

func TestBuildOvernightArrival(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "987 DFW-LAS 2330-0130",
			time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)),
	}

	check := func(now time.Time, done bool) {
		opts := buildOpts(now)
		opts.IncludeOffRows = false
		rows := Build(events, opts)
		require.Len(t, rows, 1)
		leg := rows[0].Pairing.Days[0].Legs[0]
		require.NotNil(t, leg.ArrLocal)
		assert.Equal(t, time.Date(2024, 11, 5, 1, 30, 0, 0, time.UTC), *leg.ArrLocal,
			"arrival rolls to the next day")
		assert.Equal(t, done, leg.Done)
	}

	check(time.Date(2024, 11, 5, 1, 0, 0, 0, time.UTC), false)
	check(time.Date(2024, 11, 5, 2, 0, 0, 0, time.UTC), true)
}

func TestBuildLateNightRelease(t *testing.T) {
	// Last arrival 23:50, release 00:05 must land on the next day.
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "Report: 2100\n987 DFW-LAS 2200-2350",
			time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)),
	}
	opts := buildOpts(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))
	opts.IncludeOffRows = false

	rows := Build(events, opts)
	pr := rows[0].Pairing
	require.NotNil(t, pr.ReleaseLocal)
	assert.Equal(t, time.Date(2024, 11, 5, 0, 5, 0, 0, time.UTC), *pr.ReleaseLocal)
	assert.False(t, pr.ReleaseLocal.Before(*pr.ReportLocal))
}

func TestBuildOffRowBetweenPairings(t *testing.T) {
	t.Run("current gap uses minutes precision and remaining", func(t *testing.T) {
		rows := Build(twoTrips(), buildOpts(time.Date(2024, 11, 4, 16, 0, 0, 0, time.UTC)))
		offs := offRows(rows)
		require.Len(t, offs, 1)
		off := offs[0]
		assert.Equal(t, time.Date(2024, 11, 4, 14, 0, 0, 0, time.UTC), off.StartLocal)
		assert.Equal(t, time.Date(2024, 11, 4, 20, 0, 0, 0, time.UTC), off.EndLocal)
		assert.Equal(t, "6h", off.Duration)
		assert.True(t, off.IsCurrent)
		assert.Equal(t, "4h", off.Remaining)
	})

	t.Run("past gap is not current", func(t *testing.T) {
		rows := Build(twoTrips(), buildOpts(time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC)))
		offs := offRows(rows)
		require.Len(t, offs, 1)
		assert.Equal(t, "6h", offs[0].Duration)
		assert.False(t, offs[0].IsCurrent)
		assert.Empty(t, offs[0].Remaining)
	})

	t.Run("disabled by option", func(t *testing.T) {
		opts := buildOpts(time.Date(2024, 11, 4, 16, 0, 0, 0, time.UTC))
		opts.IncludeOffRows = false
		rows := Build(twoTrips(), opts)
		assert.Empty(t, offRows(rows))
	})
}

func TestBuildLeadingOffRow(t *testing.T) {
	now := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	rows := Build(twoTrips(), buildOpts(now))
	require.NotEmpty(t, rows)

	require.Equal(t, models.RowKindOff, rows[0].Kind)
	off := rows[0].Off
	assert.Equal(t, now, off.StartLocal)
	assert.Equal(t, time.Date(2024, 11, 4, 7, 0, 0, 0, time.UTC), off.EndLocal)
	assert.Equal(t, "3d 7h", off.Duration)
	assert.True(t, off.IsCurrent)
	assert.Equal(t, "3d 7h", off.Remaining)
}

func TestBuildShortGapEmitsNoOffRow(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1111",
			"Report: 0700\n1010 DFW-ORD 0700-0900\n2020 ORD-DFW 1200-1345",
			time.Date(2024, 11, 4, 6, 0, 0, 0, time.UTC)),
		rawEvent("u2", "W2222",
			"Report: 1430\n3030 DFW-MSP 1430-1600",
			time.Date(2024, 11, 4, 13, 0, 0, 0, time.UTC)),
	}

	rows := Build(events, buildOpts(time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC)))
	assert.Empty(t, offRows(rows), "30 minute turn is not an OFF period")
	assert.Len(t, pairingRows(rows), 2)
}

func TestBuildNonFlyingEventsDoNotAffectOffRows(t *testing.T) {
	now := time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC)

	plain := Build(twoTrips(), buildOpts(now))
	withCBT := Build(append(twoTrips(),
		rawEvent("u3", "CBT", "", time.Date(2024, 11, 4, 15, 0, 0, 0, time.UTC))),
		buildOpts(now))

	require.Equal(t, offRows(plain), offRows(withCBT))

	prs := pairingRows(withCBT)
	require.Len(t, prs, 3)
	var cbt *models.PairingRow
	for _, pr := range prs {
		if pr.PairingID == "CBT" {
			cbt = pr
		}
	}
	require.NotNil(t, cbt)
	assert.False(t, cbt.IsPairing)
	assert.False(t, cbt.HasLegs)
}

func TestBuildIdempotent(t *testing.T) {
	now := time.Date(2024, 11, 4, 16, 0, 0, 0, time.UTC)
	events := append(twoTrips(),
		rawEvent("u3", "CBT", "", time.Date(2024, 11, 4, 15, 0, 0, 0, time.UTC)))

	first := Build(events, buildOpts(now))
	second := Build(events, buildOpts(now))
	assert.Equal(t, first, second)
}

func TestBuildReportDateAndDayPrefixAnchor(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "Report: 15NOV 0545\nSU16 842 DFW-ORD 0700-0900",
			time.Date(2024, 11, 15, 11, 0, 0, 0, time.UTC)),
	}
	opts := buildOpts(time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC))
	opts.IncludeOffRows = false

	rows := Build(events, opts)
	pr := rows[0].Pairing
	require.NotNil(t, pr.ReportLocal)
	require.NotNil(t, pr.ReleaseLocal)
	assert.Equal(t, time.Date(2024, 11, 15, 5, 45, 0, 0, time.UTC), *pr.ReportLocal)
	assert.Equal(t, time.Date(2024, 11, 16, 9, 15, 0, 0, time.UTC), *pr.ReleaseLocal)
	assert.Equal(t, 2, pr.NumDays)

	leg := pr.Days[0].Legs[0]
	require.NotNil(t, leg.DepLocal)
	assert.Equal(t, 16, leg.DepLocal.Day())
}

func TestBuildLayoverSynthesis(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "Report: 0700\n1010 DFW-ORD 0700-0900\nHilton Chicago OHare",
			time.Date(2024, 11, 4, 6, 0, 0, 0, time.UTC)),
		rawEvent("u2", "W1234", "Report: 0600\n2020 ORD-DFW 0900-1100",
			time.Date(2024, 11, 6, 6, 0, 0, 0, time.UTC)),
	}
	opts := buildOpts(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))
	opts.IncludeOffRows = false

	rows := Build(events, opts)
	require.Len(t, rows, 1)
	pr := rows[0].Pairing
	assert.Equal(t, 3, pr.NumDays)
	require.Len(t, pr.Days, 3)

	mid := pr.Days[1]
	assert.True(t, mid.IsLayover)
	assert.Equal(t, "2024-11-05", mid.Date)
	assert.Equal(t, "Hilton Chicago OHare", mid.Hotel, "hotel carried forward")
	assert.Empty(t, mid.Legs)

	for i, d := range pr.Days {
		assert.Equal(t, i, d.DayIndex)
	}
}

func TestBuildOnlyReportsFilter(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "W1234", "Report: 0700\n1010 DFW-ORD 0700-0900",
			time.Date(2024, 11, 4, 6, 0, 0, 0, time.UTC)),
		rawEvent("u2", "W1234", "2020 ORD-DFW 0900-1100",
			time.Date(2024, 11, 5, 6, 0, 0, 0, time.UTC)),
	}

	t.Run("drops reportless days when idle", func(t *testing.T) {
		opts := buildOpts(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))
		opts.IncludeOffRows = false
		opts.OnlyReports = true
		rows := Build(events, opts)
		pr := rows[0].Pairing
		require.Len(t, pr.Days, 1)
		assert.Equal(t, "0700", pr.Days[0].Report)
	})

	t.Run("suppressed while in progress", func(t *testing.T) {
		opts := buildOpts(time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC))
		opts.IncludeOffRows = false
		opts.OnlyReports = true
		rows := Build(events, opts)
		pr := rows[0].Pairing
		assert.True(t, pr.InProgress)
		assert.Len(t, pr.Days, 2)
	})
}

func TestBuildOutOfBase(t *testing.T) {
	events := []models.RawEvent{
		rawEvent("u1", "C3075", "Report: 0700\n1010 ORD-MSP 0700-0900",
			time.Date(2024, 11, 4, 6, 0, 0, 0, time.UTC)),
		rawEvent("u2", "W1111", "Report: 0700\n2020 DFW-ORD 0700-0900",
			time.Date(2024, 11, 6, 6, 0, 0, 0, time.UTC)),
	}
	opts := buildOpts(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC))
	opts.IncludeOffRows = false

	prs := pairingRows(Build(events, opts))
	require.Len(t, prs, 2)
	assert.Equal(t, "ORD", prs[0].OutOfBaseAirport, "chicago trip needs a commute from DFW")
	assert.Empty(t, prs[1].OutOfBaseAirport)
}

func TestBuildReleaseNeverBeforeReport(t *testing.T) {
	events := append(twoTrips(),
		rawEvent("u4", "W9999", "Report: 2100\n987 DFW-LAS 2200-2350",
			time.Date(2024, 11, 7, 12, 0, 0, 0, time.UTC)),
		rawEvent("u5", "W8888", "654 DFW-SAN 2330-0130",
			time.Date(2024, 11, 9, 12, 0, 0, 0, time.UTC)),
	)

	rows := Build(events, buildOpts(time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)))
	for _, pr := range pairingRows(rows) {
		require.NotNil(t, pr.ReportLocal)
		require.NotNil(t, pr.ReleaseLocal)
		assert.False(t, pr.ReleaseLocal.Before(*pr.ReportLocal), "pairing %s", pr.PairingID)
	}

	for _, off := range offRows(rows) {
		assert.False(t, off.EndLocal.Before(off.StartLocal))
	}
}
