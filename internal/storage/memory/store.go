// Package memory is an in-process Spatial Incident Store. Reports are
// bucketed by S2 cell so bbox queries only touch cells that overlap the box.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/google/uuid"

	"trafine/internal/domain"
	"trafine/internal/storage"
	"trafine/pkg/e"
)

const (
	// DefaultCellLevel buckets reports into cells roughly 1km across.
	DefaultCellLevel = 13
	maxCoverCells    = 16
)

// edgePad widens the covering rect so points lying exactly on a box edge
// still fall into a covered cell.
var edgePad = s2.LatLngFromDegrees(1e-6, 1e-6)

type Store struct {
	mu    sync.RWMutex
	items map[string]*domain.Incident
	cells map[s2.CellID]map[string]struct{}
	level int

	logger *slog.Logger
	now    func() time.Time
}

func New(logger *slog.Logger) *Store {
	return &Store{
		items:  make(map[string]*domain.Incident),
		cells:  make(map[s2.CellID]map[string]struct{}),
		level:  DefaultCellLevel,
		logger: logger,
		now:    time.Now,
	}
}

func cellFor(p domain.Position, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)).Parent(level)
}

func clone(inc *domain.Incident) *domain.Incident {
	c := *inc
	return &c
}

func (s *Store) Create(ctx context.Context, incident *domain.Incident) error {
	const op = "memory.Store.Create"

	if err := ctx.Err(); err != nil {
		return e.WrapError(ctx, op, err)
	}
	if err := storage.PrepareReport(incident, s.now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[incident.ID]; ok {
		return fmt.Errorf("%s: %w", op, e.ErrUniqueViolation)
	}
	s.items[incident.ID] = clone(incident)

	cell := cellFor(incident.Position, s.level)
	bucket, ok := s.cells[cell]
	if !ok {
		bucket = make(map[string]struct{})
		s.cells[cell] = bucket
	}
	bucket[incident.ID] = struct{}{}

	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const op = "memory.Store.Get"

	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.items[id.String()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}
	return clone(inc), nil
}

func (s *Store) Query(ctx context.Context, q domain.SpatialQuery) ([]*domain.Incident, error) {
	const op = "memory.Store.Query"

	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	now := q.Now
	if now.IsZero() {
		now = s.now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*domain.Incident
	if q.BBox != nil {
		candidates = s.candidatesIn(*q.BBox)
	} else {
		candidates = make([]*domain.Incident, 0, len(s.items))
		for _, inc := range s.items {
			candidates = append(candidates, inc)
		}
	}

	out := make([]*domain.Incident, 0, len(candidates))
	for _, inc := range candidates {
		if !matches(inc, q, now) {
			continue
		}
		out = append(out, clone(inc))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if q.NewestFirst {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// candidatesIn returns the reports in cells intersecting b. Callers must
// hold at least the read lock.
func (s *Store) candidatesIn(b domain.BBox) []*domain.Incident {
	lo := s2.LatLngFromDegrees(b.MinLat, b.MinLon)
	hi := s2.LatLngFromDegrees(b.MaxLat, b.MaxLon)
	rect := s2.Rect{
		Lat: r1.Interval{Lo: lo.Lat.Radians(), Hi: hi.Lat.Radians()}.
			Expanded(edgePad.Lat.Radians()).
			Intersection(r1.Interval{Lo: -math.Pi / 2, Hi: math.Pi / 2}),
		Lng: s1.IntervalFromEndpoints(lo.Lng.Radians(), hi.Lng.Radians()).
			Expanded(edgePad.Lng.Radians()),
	}

	coverer := &s2.RegionCoverer{MaxLevel: s.level, MaxCells: maxCoverCells}
	covering := coverer.Covering(rect)

	var out []*domain.Incident
	for cell, bucket := range s.cells {
		if !covering.ContainsCellID(cell) {
			continue
		}
		for id := range bucket {
			inc := s.items[id]
			if b.Contains(inc.Position) {
				out = append(out, inc)
			}
		}
	}
	return out
}

func matches(inc *domain.Incident, q domain.SpatialQuery, now time.Time) bool {
	if q.UserID != nil && inc.ReportedBy != *q.UserID {
		return false
	}
	if q.IncidentType != nil && inc.IncidentType != *q.IncidentType {
		return false
	}
	if q.Active != nil && inc.Live(now) != *q.Active {
		return false
	}
	return true
}

// Mutate holds the write lock across fn so concurrent transitions on the
// same report serialize.
func (s *Store) Mutate(ctx context.Context, id uuid.UUID, fn domain.MutateFunc) (*domain.Incident, error) {
	const op = "memory.Store.Mutate"

	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[id.String()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}

	next := clone(cur)
	changed, err := fn(next)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		return clone(cur), nil
	}
	if next.Invalidations >= domain.InvalidationThreshold && next.Active {
		return nil, fmt.Errorf("%s: active report over invalidation threshold: %w", op, e.ErrInternal)
	}

	// Only the mutable fields are persisted.
	cur.Validations = next.Validations
	cur.Invalidations = next.Invalidations
	cur.Active = next.Active
	cur.InactiveReason = next.InactiveReason
	cur.UpdatedAt = next.UpdatedAt

	return clone(cur), nil
}

func (s *Store) ExpireStale(ctx context.Context, now time.Time) ([]*domain.Incident, error) {
	const op = "memory.Store.ExpireStale"

	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*domain.Incident
	for _, inc := range s.items {
		if !inc.Active || !inc.ExpiresAt.Before(now) {
			continue
		}
		inc.Active = false
		inc.InactiveReason = domain.ReasonExpired
		inc.UpdatedAt = now
		expired = append(expired, clone(inc))
	}

	s.logger.Debug("expired stale reports", slog.String("op", op), slog.Int("count", len(expired)))
	return expired, nil
}

// ReportStats mirrors the postgres aggregate over reports created at or
// after since.
func (s *Store) ReportStats(ctx context.Context, since, now time.Time) (*domain.ReportStats, error) {
	const op = "memory.Store.ReportStats"

	if err := ctx.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	if !since.Before(now) {
		return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &domain.ReportStats{Minutes: int(now.Sub(since) / time.Minute)}
	for _, inc := range s.items {
		if inc.CreatedAt.Before(since) {
			continue
		}
		st.Total++
		st.Validations += int64(inc.Validations)
		st.Invalidations += int64(inc.Invalidations)
		switch {
		case inc.InactiveReason == domain.ReasonInvalidated:
			st.Invalidated++
		case inc.InactiveReason == domain.ReasonResolved:
			st.Resolved++
		case inc.InactiveReason == domain.ReasonExpired || (inc.Active && inc.ExpiresAt.Before(now)):
			st.Expired++
		case inc.Active:
			st.Active++
		}
	}
	return st, nil
}
