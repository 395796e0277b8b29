package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dutywatch/dutywatch/internal/caldav"
	"github.com/dutywatch/dutywatch/internal/dto"
	"github.com/dutywatch/dutywatch/internal/models"
	"github.com/dutywatch/dutywatch/internal/rows"
	"github.com/dutywatch/dutywatch/pkg/config"
	appErrors "github.com/dutywatch/dutywatch/pkg/errors"
)

const tableCachePrefix = "schedule:table:"

// EventSource is the calendar backend the schedule is built from.
type EventSource interface {
	FetchEvents(ctx context.Context, start, end time.Time) ([]models.RawEvent, error)
	Diagnose(ctx context.Context) (caldav.Diagnosis, error)
}

// SnapshotStore persists the rolling event snapshot.
type SnapshotStore interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
}

// MarkerStore persists per-row UI markers.
type MarkerStore interface {
	Hide(ctx context.Context, rowKey string, at time.Time) error
	Unhide(ctx context.Context, rowKey string) error
	HiddenKeys(ctx context.Context) (map[string]bool, error)
}

// ScheduleParams bundles the schedule service dependencies.
type ScheduleParams struct {
	Source          EventSource
	Snapshots       SnapshotStore
	Markers         MarkerStore
	Cache           *CacheService
	Metrics         *MetricsService
	Logger          *zap.Logger
	Schedule        config.ScheduleConfig
	Lookahead       time.Duration
	RefreshInterval time.Duration
	Now             func() time.Time
}

// ScheduleService owns the fetch-parse-build pipeline: it pulls raw events
// from the calendar source, persists them as a snapshot, and serves the
// built row table with an output cache keyed by snapshot hash and minute.
type ScheduleService struct {
	source          EventSource
	snapshots       SnapshotStore
	markers         MarkerStore
	cache           *CacheService
	metrics         *MetricsService
	logger          *zap.Logger
	schedule        config.ScheduleConfig
	lookahead       time.Duration
	refreshInterval time.Duration
	now             func() time.Time
	loc             *time.Location
}

// NewScheduleService constructs the service. Timezone resolution failures
// degrade to UTC rather than refusing to start.
func NewScheduleService(p ScheduleParams) *ScheduleService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.Lookahead <= 0 {
		p.Lookahead = 14 * 24 * time.Hour
	}
	if p.RefreshInterval <= 0 {
		p.RefreshInterval = 30 * time.Minute
	}

	loc := time.UTC
	if p.Schedule.Timezone != "" {
		if l, err := time.LoadLocation(p.Schedule.Timezone); err == nil {
			loc = l
		} else {
			p.Logger.Warn("unknown timezone, using UTC", zap.String("timezone", p.Schedule.Timezone))
		}
	}

	return &ScheduleService{
		source:          p.Source,
		snapshots:       p.Snapshots,
		markers:         p.Markers,
		cache:           p.Cache,
		metrics:         p.Metrics,
		logger:          p.Logger,
		schedule:        p.Schedule,
		lookahead:       p.Lookahead,
		refreshInterval: p.RefreshInterval,
		now:             p.Now,
		loc:             loc,
	}
}

// Table serves the built dashboard table. force bypasses the output cache;
// a missing snapshot triggers a synchronous first pull.
func (s *ScheduleService) Table(ctx context.Context, force bool) (*dto.ScheduleTable, error) {
	snap, err := s.loadOrRefresh(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cacheKey := fmt.Sprintf("%s%s:%d", tableCachePrefix, snap.Hash, now.Truncate(time.Minute).Unix())

	if !force && s.cache != nil {
		var cached dto.ScheduleTable
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			cached.FromCache = true
			return &cached, nil
		}
	}

	table := s.buildTable(ctx, snap, now)

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, table, 0)
	}
	return table, nil
}

func (s *ScheduleService) buildTable(ctx context.Context, snap *models.Snapshot, now time.Time) *dto.ScheduleTable {
	start := time.Now()
	built := rows.Build(snap.Events, rows.Options{
		Now:            now,
		Location:       s.loc,
		Use24hClock:    s.schedule.Use24hClock,
		OnlyReports:    s.schedule.OnlyReports,
		IncludeOffRows: s.schedule.IncludeOffRows,
		HomeBase:       s.schedule.HomeBaseAirport,
		Logger:         s.logger,
	})
	if s.metrics != nil {
		s.metrics.ObserveTableBuild(len(built), time.Since(start))
	}

	visible, hiddenCount := s.filterHidden(ctx, built)

	return &dto.ScheduleTable{
		Hash:           snap.Hash,
		Rows:           visible,
		HiddenRows:     hiddenCount,
		GeneratedAtUTC: now.UTC(),
		LastPullUTC:    snap.LastPullUTC,
		NextRunUTC:     snap.NextRunUTC,
		RefreshMinutes: snap.RefreshMinutes,
	}
}

// filterHidden drops rows the user dismissed. Marker lookup failures keep
// everything visible; hiding is cosmetic and must not break the table.
func (s *ScheduleService) filterHidden(ctx context.Context, built []models.Row) ([]models.Row, int) {
	if s.markers == nil {
		return built, 0
	}
	hidden, err := s.markers.HiddenKeys(ctx)
	if err != nil {
		s.logger.Warn("hidden row lookup failed", zap.Error(err))
		return built, 0
	}
	if len(hidden) == 0 {
		return built, 0
	}

	visible := make([]models.Row, 0, len(built))
	dropped := 0
	for _, r := range built {
		if r.Kind == models.RowKindPairing && r.Pairing != nil && hidden[r.Pairing.Key] {
			dropped++
			continue
		}
		visible = append(visible, r)
	}
	return visible, dropped
}

// Refresh pulls the calendar window, hashes the result, and replaces the
// snapshot. The content hash drives change detection and output caching.
func (s *ScheduleService) Refresh(ctx context.Context) (*dto.RefreshResult, error) {
	now := s.now()
	windowStart := now.Add(-24 * time.Hour)
	windowEnd := now.Add(s.lookahead)

	fetchStart := time.Now()
	events, err := s.source.FetchEvents(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartUTC.Equal(events[j].StartUTC) {
			return events[i].StartUTC.Before(events[j].StartUTC)
		}
		return events[i].UID < events[j].UID
	})

	hash, err := contentHash(events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "hash calendar snapshot")
	}

	changed := true
	if prev, err := s.snapshots.Load(ctx); err == nil {
		changed = prev.Hash != hash
	}

	snap := &models.Snapshot{
		Events:         events,
		Hash:           hash,
		LastPullUTC:    now.UTC(),
		NextRunUTC:     now.Add(s.refreshInterval).UTC(),
		RefreshMinutes: int(s.refreshInterval.Minutes()),
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveCalendarFetch(len(events), time.Since(fetchStart), changed)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, tableCachePrefix+"*")
	}

	s.logger.Info("calendar refreshed",
		zap.Int("events", len(events)),
		zap.String("hash", hash[:12]),
		zap.Bool("changed", changed),
	)

	return &dto.RefreshResult{
		Hash:        hash,
		Changed:     changed,
		EventCount:  len(events),
		LastPullUTC: snap.LastPullUTC,
		NextRunUTC:  snap.NextRunUTC,
	}, nil
}

// Upcoming lists the next raw calendar entries in start order.
func (s *ScheduleService) Upcoming(ctx context.Context, limit int) ([]dto.UpcomingEvent, error) {
	snap, err := s.loadOrRefresh(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	now := s.now()
	upcoming := make([]dto.UpcomingEvent, 0, limit)
	for _, ev := range snap.Events {
		if ev.EndUTC.Before(now) {
			continue
		}
		upcoming = append(upcoming, dto.UpcomingEvent{
			UID:      ev.UID,
			Summary:  ev.Summary,
			Calendar: ev.Calendar,
			StartUTC: ev.StartUTC,
			EndUTC:   ev.EndUTC,
		})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartUTC.Before(upcoming[j].StartUTC)
	})
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

// HideRow marks a row key as dismissed.
func (s *ScheduleService) HideRow(ctx context.Context, rowKey string) error {
	if rowKey == "" {
		return appErrors.Clone(appErrors.ErrValidation, "row key is required")
	}
	return s.markers.Hide(ctx, rowKey, s.now())
}

// UnhideRow removes the dismissal marker for a row key.
func (s *ScheduleService) UnhideRow(ctx context.Context, rowKey string) error {
	if rowKey == "" {
		return appErrors.Clone(appErrors.ErrValidation, "row key is required")
	}
	return s.markers.Unhide(ctx, rowKey)
}

// Debug reports CalDAV discovery state plus the cached pull.
func (s *ScheduleService) Debug(ctx context.Context) (*dto.CalendarDebug, error) {
	diag, err := s.source.Diagnose(ctx)
	if err != nil {
		return nil, err
	}

	out := &dto.CalendarDebug{Diagnosis: diag}
	if snap, err := s.snapshots.Load(ctx); err == nil {
		t := snap.LastPullUTC
		out.LastPullUTC = &t
		out.EventCount = len(snap.Events)
	}
	return out, nil
}

func (s *ScheduleService) loadOrRefresh(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.snapshots.Load(ctx)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, appErrors.ErrNotFound) {
		return nil, err
	}

	// First run: no snapshot yet, pull synchronously.
	if _, err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.snapshots.Load(ctx)
}

// contentHash fingerprints the event list; the same events always produce
// the same hash so callers can cheaply detect schedule changes.
func contentHash(events []models.RawEvent) (string, error) {
	payload, err := json.Marshal(events)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
