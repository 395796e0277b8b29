// Package rows turns grouped pairings into the final chronological display
// table: resolved pairing rows, synthesized layover days, standalone
// non-flying entries, and OFF rows for the idle gaps in between. Every call
// recomputes the whole table from the raw events; nothing is mutated
// incrementally and the only time source is the injected Options.Now.
package rows

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dutywatch/dutywatch/internal/models"
	"github.com/dutywatch/dutywatch/internal/pairing"
	"github.com/dutywatch/dutywatch/internal/parser"
)

// offGapThreshold is the minimum idle gap between two duty periods that
// earns its own OFF row.
const offGapThreshold = time.Hour

// trackingLeadTime is how far before departure a leg becomes trackable.
const trackingLeadTime = 24 * time.Hour

// Options carries the knobs for one build. Now must be set by the caller so
// repeated builds over the same inputs stay deterministic.
type Options struct {
	Now            time.Time
	Location       *time.Location
	Use24hClock    bool
	OnlyReports    bool
	IncludeOffRows bool
	HomeBase       string
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	o.Now = o.Now.In(o.Location)
	return o
}

// Build is the single public entry point: raw calendar events in, ordered
// display rows out. Bad individual events degrade locally and never abort
// the whole table.
func Build(events []models.RawEvent, opts Options) []models.Row {
	opts = opts.withDefaults()

	groups := pairing.Group(events, opts.Logger)

	resolved := make([]*models.PairingRow, 0, len(groups))
	for _, g := range groups {
		resolved = append(resolved, resolvePairing(g, opts))
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return timeOf(resolved[i]).Before(timeOf(resolved[j]))
	})

	var flying, others []*models.PairingRow
	for _, pr := range resolved {
		if pr.HasLegs {
			flying = append(flying, pr)
		} else {
			others = append(others, pr)
		}
	}

	rows := assemble(flying, opts)
	return interleave(rows, others)
}

func timeOf(pr *models.PairingRow) time.Time {
	if pr.ReportLocal != nil {
		return *pr.ReportLocal
	}
	return time.Time{}
}

// resolvedDay pairs a display DayRow with the anchored instants the pairing
// level arithmetic needs.
type resolvedDay struct {
	row       models.DayRow
	date      time.Time
	reportAt  *time.Time
	releaseAt *time.Time
	lastArrAt *time.Time
}

func resolvePairing(p pairing.Pairing, opts Options) *models.PairingRow {
	pr := &models.PairingRow{
		PairingID:    p.ID,
		IsPairing:    p.IsPairing,
		HasLegs:      p.HasLegs(),
		StartsAtBase: p.StartsAtBase,
		EndsAtBase:   p.EndsAtBase,
		IsComplete:   p.IsComplete,
		TotalLegs:    p.TotalLegs(),
	}
	if fe := p.FirstEvent(); fe != nil {
		pr.UID = fe.Raw.UID
	}

	days := make([]resolvedDay, 0, len(p.Events))
	for _, ev := range p.Events {
		days = append(days, resolveDay(ev, opts))
	}

	// Report: first day that produced one, else the hosting event's start.
	for _, d := range days {
		if d.reportAt != nil {
			pr.ReportLocal = d.reportAt
			break
		}
	}
	if pr.ReportLocal == nil {
		if fe := p.FirstEvent(); fe != nil {
			t := fe.Raw.StartUTC.In(opts.Location)
			pr.ReportLocal = &t
		}
	}

	// Release: last day that produced one, else the hosting event's end.
	for i := len(days) - 1; i >= 0; i-- {
		if days[i].releaseAt != nil {
			pr.ReleaseLocal = days[i].releaseAt
			break
		}
	}
	if pr.ReleaseLocal == nil {
		if le := p.LastEvent(); le != nil {
			t := le.Raw.EndUTC.In(opts.Location)
			pr.ReleaseLocal = &t
		}
	}

	// Duty cannot release before it reports; roll the release forward in
	// whole days until the invariant holds.
	if pr.ReportLocal != nil && pr.ReleaseLocal != nil {
		rel := *pr.ReleaseLocal
		for rel.Before(*pr.ReportLocal) {
			rel = rel.Add(24 * time.Hour)
		}
		pr.ReleaseLocal = &rel
	}

	if pr.ReportLocal != nil {
		pr.ReportDisplay = formatClock(*pr.ReportLocal, opts.Use24hClock)
	}
	if pr.ReleaseLocal != nil {
		pr.ReleaseDisplay = formatClock(*pr.ReleaseLocal, opts.Use24hClock)
	}

	pr.InProgress = pr.ReportLocal != nil && pr.ReleaseLocal != nil &&
		!opts.Now.Before(*pr.ReportLocal) && !opts.Now.After(*pr.ReleaseLocal)

	if pr.ReportLocal != nil && pr.ReleaseLocal != nil {
		pr.NumDays = daysBetween(*pr.ReportLocal, *pr.ReleaseLocal) + 1
		if pr.NumDays < 1 {
			pr.NumDays = 1
		}
	} else {
		pr.NumDays = 1
	}

	// A mid-flight trip keeps its already-flown days on screen even when the
	// reports-only filter would hide them.
	if opts.OnlyReports && !pr.InProgress {
		kept := days[:0]
		for _, d := range days {
			if d.row.Report != "" {
				kept = append(kept, d)
			}
		}
		days = kept
	} else if pr.HasLegs && pr.NumDays > 1 {
		days = synthesizeLayovers(days, pr, opts)
	}

	for i := range days {
		days[i].row.DayIndex = i
		pr.Days = append(pr.Days, days[i].row)
	}

	pr.OutOfBaseAirport = outOfBase(p, opts.HomeBase)
	pr.Key = rowKey(pr)
	return pr
}

func resolveDay(ev pairing.Event, opts Options) resolvedDay {
	ref := ev.Raw.StartUTC.In(opts.Location)
	date := anchorDate(ev.Day, ref, opts.Logger)

	d := resolvedDay{
		date: date,
		row: models.DayRow{
			Date:    date.Format("2006-01-02"),
			Report:  ev.Day.Report,
			Release: ev.Day.Release,
			Hotel:   ev.Day.Hotel,
		},
	}

	if t, ok := atClock(date, ev.Day.Report); ok {
		d.reportAt = &t
		d.row.ReportDisplay = formatClock(t, opts.Use24hClock)
	}

	for _, leg := range ev.Day.Legs {
		// A leg carrying its own day prefix may sit on a later date than
		// the day's report (red-eye style sequences).
		legDate := date
		if leg.DayPrefix != "" {
			if ld, ok := parseDayPrefix(leg.DayPrefix, ref); ok {
				legDate = ld
			}
		}
		d.row.Legs = append(d.row.Legs, resolveLeg(leg, legDate, opts))
	}
	if n := len(d.row.Legs); n > 0 {
		d.lastArrAt = d.row.Legs[n-1].ArrLocal
	}

	// Release anchors to the last arrival's date so an overnight final leg
	// carries it into the next day with it.
	relBase := date
	if d.lastArrAt != nil {
		a := *d.lastArrAt
		relBase = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, a.Location())
	}
	if t, ok := atClock(relBase, ev.Day.Release); ok {
		if d.lastArrAt != nil {
			arrH := d.lastArrAt.Hour()
			if arrH >= 23 && t.Hour() < 2 {
				t = t.Add(24 * time.Hour)
			}
		}
		d.releaseAt = &t
		d.row.ReleaseDisplay = formatClock(t, opts.Use24hClock)
	}

	return d
}

func resolveLeg(leg models.Leg, date time.Time, opts Options) models.LegRow {
	lr := models.LegRow{Leg: leg, DisplayNumber: leg.FlightNumber}
	if leg.IsDeadhead {
		lr.DisplayNumber = "*" + leg.FlightNumber
	}

	dep, depOK := atClock(date, leg.DepTime)
	arr, arrOK := atClock(date, leg.ArrTime)
	if depOK && arrOK && arr.Before(dep) {
		// Numerically earlier arrival means the leg lands the next day.
		arr = arr.Add(24 * time.Hour)
	}
	if depOK {
		lr.DepLocal = &dep
		lr.DepDisplay = formatClock(dep, opts.Use24hClock)
	}
	if arrOK {
		lr.ArrLocal = &arr
		lr.ArrDisplay = formatClock(arr, opts.Use24hClock)
	}

	if arrOK {
		lr.Done = !opts.Now.Before(arr)
	}
	if depOK && !leg.IsDeadhead {
		lr.TrackingAvailable = !opts.Now.Before(dep.Add(-trackingLeadTime))
		if lr.TrackingAvailable {
			lr.TrackingMessage = fmt.Sprintf("https://flightaware.com/live/flight/SWA%s", leg.FlightNumber)
		}
	}
	return lr
}

// synthesizeLayovers fills every date of the duty span that has no parsed
// day with a placeholder, carrying the most recent hotel forward so the
// table shows continuous days.
func synthesizeLayovers(days []resolvedDay, pr *models.PairingRow, opts Options) []resolvedDay {
	if pr.ReportLocal == nil || pr.ReleaseLocal == nil {
		return days
	}

	have := make(map[string]bool, len(days))
	for _, d := range days {
		have[d.row.Date] = true
		for _, leg := range d.row.Legs {
			if leg.DepLocal != nil {
				have[leg.DepLocal.Format("2006-01-02")] = true
			}
			if leg.ArrLocal != nil {
				have[leg.ArrLocal.Format("2006-01-02")] = true
			}
		}
	}

	start := startOfDay(*pr.ReportLocal)
	end := startOfDay(*pr.ReleaseLocal)
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		key := cur.Format("2006-01-02")
		if have[key] {
			continue
		}
		days = append(days, resolvedDay{
			date: cur,
			row:  models.DayRow{Date: key, IsLayover: true},
		})
	}

	sort.SliceStable(days, func(i, j int) bool {
		return days[i].date.Before(days[j].date)
	})

	hotel := ""
	for i := range days {
		if days[i].row.Hotel != "" {
			hotel = days[i].row.Hotel
		} else if days[i].row.IsLayover {
			days[i].row.Hotel = hotel
		}
	}
	return days
}

// outOfBase flags a commute: trip families homed at the configured base
// never need one, everything else compares the first departure airport.
func outOfBase(p pairing.Pairing, homeBase string) string {
	if !p.IsPairing || !p.HasLegs() || homeBase == "" {
		return ""
	}
	for _, b := range p.BaseAirports {
		if b == homeBase {
			return ""
		}
	}
	if dep := p.FirstDeparture(); dep != "" && dep != homeBase {
		return dep
	}
	return ""
}

// assemble walks the leg-bearing pairings in report order and inserts OFF
// rows for the idle gaps.
func assemble(flying []*models.PairingRow, opts Options) []models.Row {
	var rows []models.Row

	anyInProgress := false
	for _, pr := range flying {
		if pr.InProgress {
			anyInProgress = true
			break
		}
	}

	if opts.IncludeOffRows && len(flying) > 0 && !anyInProgress {
		if first := flying[0].ReportLocal; first != nil && opts.Now.Before(*first) {
			gap := first.Sub(opts.Now)
			rows = append(rows, models.Row{Kind: models.RowKindOff, Off: &models.OffRow{
				StartLocal: opts.Now,
				EndLocal:   *first,
				Duration:   formatDuration(gap, false),
				IsCurrent:  true,
				Remaining:  formatDuration(gap, true),
			}})
		}
	}

	for i, pr := range flying {
		rows = append(rows, models.Row{Kind: models.RowKindPairing, Pairing: pr})

		if !opts.IncludeOffRows || i == len(flying)-1 {
			continue
		}
		next := flying[i+1]
		if pr.ReleaseLocal == nil || next.ReportLocal == nil {
			continue
		}
		start, end := *pr.ReleaseLocal, *next.ReportLocal
		if end.Sub(start) <= offGapThreshold {
			continue
		}

		off := &models.OffRow{StartLocal: start, EndLocal: end}
		if !opts.Now.Before(start) && !opts.Now.After(end) {
			off.IsCurrent = true
			off.Duration = formatDuration(end.Sub(start), true)
			off.Remaining = formatDuration(end.Sub(opts.Now), true)
		} else {
			off.Duration = formatDuration(end.Sub(start), false)
		}
		rows = append(rows, models.Row{Kind: models.RowKindOff, Off: off})
	}

	return rows
}

// interleave merges standalone non-flying entries into the assembled rows
// by timestamp. They slot in chronologically but never affect the OFF
// arithmetic around them.
func interleave(rows []models.Row, others []*models.PairingRow) []models.Row {
	for _, o := range others {
		at := timeOf(o)
		idx := len(rows)
		for i, r := range rows {
			if rowTime(r).After(at) {
				idx = i
				break
			}
		}
		row := models.Row{Kind: models.RowKindPairing, Pairing: o}
		rows = append(rows[:idx], append([]models.Row{row}, rows[idx:]...)...)
	}
	return rows
}

func rowTime(r models.Row) time.Time {
	switch r.Kind {
	case models.RowKindOff:
		return r.Off.StartLocal
	default:
		return timeOf(r.Pairing)
	}
}

func atClock(date time.Time, hhmm string) (time.Time, bool) {
	if hhmm == "" {
		return time.Time{}, false
	}
	h, m, ok := parser.Clock(hhmm)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, 0, 0, date.Location()), true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysBetween(a, b time.Time) int {
	// Rounded so a 23h or 25h DST day still counts as one calendar day.
	return int(math.Round(startOfDay(b).Sub(startOfDay(a)).Hours() / 24))
}

// rowKey derives a stable identifier for hide/show bookkeeping; the same
// pairing resolves to the same key on every rebuild.
func rowKey(pr *models.PairingRow) string {
	ts := ""
	if pr.ReportLocal != nil {
		ts = pr.ReportLocal.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(pr.PairingID + "|" + pr.UID + "|" + ts))
	return hex.EncodeToString(sum[:6])
}
