package pairing

import (
	"sort"

	"go.uber.org/zap"

	"github.com/dutywatch/dutywatch/internal/models"
)

// Pairing is one reconstructed trip instance (or a standalone non-flying
// entry when IsPairing is false).
type Pairing struct {
	ID           string
	BaseAirports []string
	IsPairing    bool
	Events       []Event

	StartsAtBase bool
	EndsAtBase   bool
	IsComplete   bool
}

// FirstEvent returns the chronologically first event of the pairing.
func (p *Pairing) FirstEvent() *Event {
	if len(p.Events) == 0 {
		return nil
	}
	return &p.Events[0]
}

// LastEvent returns the chronologically last event of the pairing.
func (p *Pairing) LastEvent() *Event {
	if len(p.Events) == 0 {
		return nil
	}
	return &p.Events[len(p.Events)-1]
}

// TotalLegs counts legs across all days.
func (p *Pairing) TotalLegs() int {
	n := 0
	for _, ev := range p.Events {
		n += len(ev.Day.Legs)
	}
	return n
}

// HasLegs reports whether any day carries flight legs.
func (p *Pairing) HasLegs() bool {
	return p.TotalLegs() > 0
}

// FirstDeparture is the origin airport of the trip's very first leg.
func (p *Pairing) FirstDeparture() string {
	for _, ev := range p.Events {
		if dep := ev.FirstDeparture(); dep != "" {
			return dep
		}
	}
	return ""
}

// LastArrival is the destination airport of the trip's very last leg.
func (p *Pairing) LastArrival() string {
	for i := len(p.Events) - 1; i >= 0; i-- {
		if arr := p.Events[i].LastArrival(); arr != "" {
			return arr
		}
	}
	return ""
}

func (p *Pairing) validate() {
	dep := p.FirstDeparture()
	arr := p.LastArrival()
	p.StartsAtBase = dep != "" && contains(p.BaseAirports, dep)
	p.EndsAtBase = arr != "" && contains(p.BaseAirports, arr)
	p.IsComplete = p.StartsAtBase && p.EndsAtBase
}

// Group reconstructs pairings from a flat, arbitrarily ordered event list.
//
// Flight-bearing events sharing a pairing ID are sorted by start time and
// folded into instances; a base arrival (end or single_day classification)
// closes the open instance so the same trip number recurring on a later
// week starts a new one. Events without legs close immediately as their own
// entry, and summaries that are not pairing IDs become standalone
// non-pairing entries. Incomplete leg-bearing pairings are logged, flagged,
// and kept.
func Group(events []models.RawEvent, logger *zap.Logger) []Pairing {
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed := make([]Event, 0, len(events))
	for _, raw := range events {
		parsed = append(parsed, ParseEvent(raw))
	}

	byID := make(map[string][]Event)
	order := make([]string, 0)
	var others []Event
	for _, ev := range parsed {
		if !ev.IsPairing {
			others = append(others, ev)
			continue
		}
		if _, seen := byID[ev.PairingID]; !seen {
			order = append(order, ev.PairingID)
		}
		byID[ev.PairingID] = append(byID[ev.PairingID], ev)
	}

	var pairings []Pairing

	for _, pid := range order {
		evs := byID[pid]
		sort.SliceStable(evs, func(i, j int) bool {
			return evs[i].Raw.StartUTC.Before(evs[j].Raw.StartUTC)
		})

		bases := BaseAirports(pid)
		var open *Pairing

		closeOpen := func() {
			if open == nil {
				return
			}
			open.validate()
			pairings = append(pairings, *open)
			open = nil
		}

		for _, ev := range evs {
			class := Classify(ev, bases)

			if class == ClassNoLegs {
				// Standalone entry; never merged into a trip.
				p := Pairing{ID: pid, BaseAirports: bases, IsPairing: true, Events: []Event{ev}}
				p.validate()
				pairings = append(pairings, p)
				continue
			}

			if open == nil {
				open = &Pairing{ID: pid, BaseAirports: bases, IsPairing: true}
			}
			open.Events = append(open.Events, ev)

			// Returned to base: this instance is done.
			if class == ClassEnd || class == ClassSingleDay {
				closeOpen()
			}
		}
		closeOpen()
	}

	for _, ev := range others {
		pairings = append(pairings, Pairing{
			ID:        ev.Raw.Summary,
			IsPairing: false,
			Events:    []Event{ev},
		})
	}

	sort.SliceStable(pairings, func(i, j int) bool {
		a, b := pairings[i].FirstEvent(), pairings[j].FirstEvent()
		if a == nil || b == nil {
			return b != nil
		}
		return a.Raw.StartUTC.Before(b.Raw.StartUTC)
	})

	for i := range pairings {
		p := &pairings[i]
		if p.IsPairing && p.HasLegs() && !p.IsComplete {
			logger.Warn("incomplete pairing",
				zap.String("pairing_id", p.ID),
				zap.Bool("starts_at_base", p.StartsAtBase),
				zap.Bool("ends_at_base", p.EndsAtBase),
				zap.String("first_departure", p.FirstDeparture()),
				zap.String("last_arrival", p.LastArrival()),
			)
		}
	}

	return pairings
}
