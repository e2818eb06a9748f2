package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trafine/internal/domain"
	"trafine/internal/geo"
	"trafine/internal/metrics"
	"trafine/pkg/e"
	"trafine/pkg/validator"

	"github.com/google/uuid"
)

const publishTimeout = 2 * time.Second

type lifecycleService struct {
	store     IncidentStore
	events    EventQueue
	logger    *slog.Logger
	opTimeout time.Duration
	now       func() time.Time
}

// NewLifecycleService wires the consensus state machine. events may be nil,
// in which case transitions are only logged.
func NewLifecycleService(
	store IncidentStore,
	events EventQueue,
	logger *slog.Logger,
	opTimeout time.Duration,
	opts ...Option,
) LifecycleService {
	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}
	o := buildOptions(opts)
	return &lifecycleService{
		store:     store,
		events:    events,
		logger:    logger,
		opTimeout: opTimeout,
		now:       o.now,
	}
}

func (s *lifecycleService) Report(ctx context.Context, req domain.ReportRequest) (*domain.Incident, error) {
	const op = "service.Lifecycle.Report"

	if err := validator.ValidateStruct(req); err != nil {
		s.logger.Warn("invalid report", slog.String("user_id", req.UserID), slog.Any("error", err))
		return nil, err
	}
	pos, err := geo.PositionFromCoordinates(req.Coordinates)
	if err != nil {
		return nil, err
	}

	duration := domain.DefaultDuration
	if req.DurationMinutes != nil {
		duration = time.Duration(*req.DurationMinutes) * time.Minute
	}
	severity := req.Severity
	if severity == "" {
		severity = domain.SeverityModerate
	}

	now := s.now().UTC()
	inc := &domain.Incident{
		Source:       domain.SourceUserReport,
		Position:     pos,
		IncidentType: req.IncidentType,
		Severity:     severity,
		Description:  req.Description,
		CreatedAt:    now,
		ExpiresAt:    now.Add(duration),
		ReportedBy:   req.UserID,
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.store.Create(ctx, inc); err != nil {
		s.logger.Error("store create failed", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("incident reported",
		slog.String("id", inc.ID),
		slog.String("user_id", inc.ReportedBy),
		slog.String("type", string(inc.IncidentType)),
		slog.Float64("lon", inc.Position.Lon),
		slog.Float64("lat", inc.Position.Lat),
	)
	s.record(ctx, domain.EventReported, inc)
	return inc, nil
}

func (s *lifecycleService) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	inc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := inc.WithLazyExpiry(s.now())
	return &view, nil
}

// validateTransition rejects inactive or expired reports without touching
// the counters.
func validateTransition(now time.Time) domain.MutateFunc {
	return func(inc *domain.Incident) (bool, error) {
		if !inc.Live(now) {
			return false, e.ErrIncidentNotActive
		}
		inc.Validations++
		inc.UpdatedAt = now
		return true, nil
	}
}

// invalidateTransition increments and, on reaching the threshold,
// deactivates in the same update.
func invalidateTransition(now time.Time) domain.MutateFunc {
	return func(inc *domain.Incident) (bool, error) {
		if !inc.Live(now) {
			return false, e.ErrIncidentNotActive
		}
		inc.Invalidations++
		if inc.Invalidations >= domain.InvalidationThreshold {
			inc.Active = false
			inc.InactiveReason = domain.ReasonInvalidated
		}
		inc.UpdatedAt = now
		return true, nil
	}
}

// resolveTransition is idempotent: an already inactive or expired report
// is returned unchanged.
func resolveTransition(now time.Time, by domain.Requester) domain.MutateFunc {
	return func(inc *domain.Incident) (bool, error) {
		if !by.IsAdmin && (by.UserID == "" || by.UserID != inc.ReportedBy) {
			return false, e.ErrForbidden
		}
		if !inc.Live(now) {
			return false, nil
		}
		inc.Active = false
		inc.InactiveReason = domain.ReasonResolved
		inc.UpdatedAt = now
		return true, nil
	}
}

func (s *lifecycleService) Validate(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	inc, err := s.mutate(ctx, "service.Lifecycle.Validate", id, validateTransition(s.now().UTC()))
	if err != nil {
		return nil, err
	}
	s.record(ctx, domain.EventValidated, inc)
	return inc, nil
}

func (s *lifecycleService) Invalidate(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	inc, err := s.mutate(ctx, "service.Lifecycle.Invalidate", id, invalidateTransition(s.now().UTC()))
	if err != nil {
		return nil, err
	}
	s.record(ctx, domain.EventInvalidated, inc)
	if !inc.Active && inc.InactiveReason == domain.ReasonInvalidated &&
		inc.Invalidations == domain.InvalidationThreshold {
		s.logger.Info("incident deactivated by consensus",
			slog.String("id", inc.ID),
			slog.Int("invalidations", inc.Invalidations),
		)
		s.record(ctx, domain.EventDeactivated, inc)
	}
	return inc, nil
}

func (s *lifecycleService) Resolve(ctx context.Context, id uuid.UUID, by domain.Requester) (*domain.Incident, error) {
	now := s.now().UTC()
	resolve := resolveTransition(now, by)

	var changed bool
	inc, err := s.mutate(ctx, "service.Lifecycle.Resolve", id, func(cur *domain.Incident) (bool, error) {
		ok, err := resolve(cur)
		changed = ok
		return ok, err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.record(ctx, domain.EventResolved, inc)
		return inc, nil
	}
	view := inc.WithLazyExpiry(now)
	return &view, nil
}

// mutate runs fn through the store's atomic update path, bounded by the
// store timeout.
func (s *lifecycleService) mutate(ctx context.Context, op string, id uuid.UUID, fn domain.MutateFunc) (*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	inc, err := s.store.Mutate(ctx, id, fn)
	if err != nil {
		switch e.Kind(err) {
		case e.KindStore:
			s.logger.Error("mutation failed", slog.String("op", op), slog.String("id", id.String()), slog.Any("error", err))
		default:
			s.logger.Info("mutation rejected", slog.String("op", op), slog.String("id", id.String()), slog.String("kind", e.Kind(err)))
		}
		return nil, err
	}
	return inc, nil
}

func (s *lifecycleService) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, error) {
	if filter.BBox != nil {
		if err := geo.ValidateBBox(*filter.BBox); err != nil {
			return nil, err
		}
	}
	now := s.now()
	q := domain.SpatialQuery{
		BBox:        filter.BBox,
		Active:      filter.Active,
		NewestFirst: true,
		Now:         now,
	}
	if filter.UserID != "" {
		user := filter.UserID
		q.UserID = &user
	}
	if filter.IncidentType != "" {
		if !filter.IncidentType.Valid() {
			return nil, fmt.Errorf("%q: %w", filter.IncidentType, e.ErrInvalidIncidentType)
		}
		typ := filter.IncidentType
		q.IncidentType = &typ
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	rows, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Incident, 0, len(rows))
	for _, inc := range rows {
		out = append(out, inc.WithLazyExpiry(now))
	}
	return out, nil
}

// ExpireStale flips expired rows in the store. Reads never depend on it.
func (s *lifecycleService) ExpireStale(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	expired, err := s.store.ExpireStale(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	for _, inc := range expired {
		s.record(ctx, domain.EventExpired, inc)
	}
	return len(expired), nil
}

// record counts the transition and publishes it. The mutation is already
// committed, so a publish failure is only logged.
func (s *lifecycleService) record(ctx context.Context, action domain.EventAction, inc *domain.Incident) {
	metrics.LifecycleTransitions.WithLabelValues(string(action)).Inc()

	if s.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := domain.IncidentEvent{
		Action:     action,
		IncidentID: inc.ID,
		Incident:   *inc,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Enqueue(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues("enqueue", "error").Inc()
		s.logger.Error("enqueue event failed",
			slog.String("action", string(action)),
			slog.String("id", inc.ID),
			slog.Any("error", err),
		)
		return
	}
	metrics.EventsPublished.WithLabelValues("enqueue", "ok").Inc()
}
