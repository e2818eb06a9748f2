package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"trafine/internal/domain"
	"trafine/internal/geo"
	"trafine/internal/metrics"
	"trafine/internal/normalize"
	"trafine/internal/provider/tomtom"
	"trafine/pkg/e"
)

type trafficService struct {
	provider  ProviderClient
	store     IncidentStore
	cache     ProviderCache
	logger    *slog.Logger
	opTimeout time.Duration
	now       func() time.Time
}

// NewTrafficService builds the Aggregation Facade. It owns no resources;
// cache may be nil.
func NewTrafficService(
	provider ProviderClient,
	store IncidentStore,
	cache ProviderCache,
	logger *slog.Logger,
	opTimeout time.Duration,
	opts ...Option,
) TrafficService {
	if opTimeout <= 0 {
		opTimeout = 3 * time.Second
	}
	o := buildOptions(opts)
	return &trafficService{
		provider:  provider,
		store:     store,
		cache:     cache,
		logger:    logger,
		opTimeout: opTimeout,
		now:       o.now,
	}
}

// GetMergedIncidents returns provider incidents followed by live user
// reports inside bbox. A provider failure degrades the result to user
// reports only; a store failure fails the call.
func (s *trafficService) GetMergedIncidents(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) (*domain.MergedResult, error) {
	const op = "service.Traffic.GetMergedIncidents"

	if err := geo.ValidateBBox(bbox); err != nil {
		return nil, err
	}
	if filter == tomtom.FilterAll {
		filter = ""
	}
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("%q: %w", filter, e.ErrInvalidIncidentType)
	}

	now := s.now()
	active := true
	q := domain.SpatialQuery{BBox: &bbox, Active: &active, Now: now}
	if filter != "" {
		typ := filter
		q.IncidentType = &typ
	}

	var (
		fromProvider []domain.Incident
		providerErr  error
		fromStore    []*domain.Incident
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fromProvider, providerErr = s.providerIncidents(gctx, bbox, filter, now)
		return nil
	})
	g.Go(func() error {
		// The store result must survive a caller cancel so it can still
		// serve as the degraded answer.
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
		defer cancel()

		rows, err := s.store.Query(sctx, q)
		if err != nil {
			return err
		}
		fromStore = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("store query failed", slog.String("op", op), slog.Any("error", err))
		return nil, err
	}

	res := &domain.MergedResult{
		Incidents: make([]domain.Incident, 0, len(fromProvider)+len(fromStore)),
	}
	if providerErr != nil {
		res.Degraded = true
		metrics.MergedDegraded.Inc()
		s.logger.Warn("provider unavailable, serving user reports only",
			slog.String("op", op),
			slog.String("bbox", bbox.String()),
			slog.Any("error", providerErr),
		)
	} else {
		res.Incidents = append(res.Incidents, fromProvider...)
		res.ProviderCount = len(fromProvider)
	}
	for _, inc := range fromStore {
		res.Incidents = append(res.Incidents, normalize.Report(inc))
	}
	res.ReportCount = len(fromStore)

	return res, nil
}

func (s *trafficService) providerIncidents(ctx context.Context, bbox domain.BBox, filter domain.IncidentType, now time.Time) ([]domain.Incident, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, bbox, filter)
		switch {
		case err != nil:
			s.logger.Warn("provider cache read failed", slog.Any("error", err))
		case hit:
			metrics.ProviderRequests.WithLabelValues("incidents", "cache_hit").Inc()
			return cached, nil
		}
	}

	records, err := s.provider.FetchIncidents(ctx, bbox, filter)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Incident, 0, len(records))
	for _, rec := range records {
		inc, err := normalize.Provider(rec, now)
		if err != nil {
			s.logger.Warn("dropping provider incident without usable geometry",
				slog.String("provider_id", rec.ID),
				slog.Any("error", err),
			)
			continue
		}
		out = append(out, inc)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, bbox, filter, out); err != nil {
			s.logger.Warn("provider cache write failed", slog.Any("error", err))
		}
	}
	return out, nil
}

// GetTrafficFlow has no local fallback, so provider failures are returned.
func (s *trafficService) GetTrafficFlow(ctx context.Context, bbox domain.BBox, zoom int) (*domain.FlowResult, error) {
	if err := geo.ValidateBBox(bbox); err != nil {
		return nil, err
	}
	if zoom <= 0 {
		return nil, fmt.Errorf("zoom %d: %w", zoom, e.ErrInvalidZoom)
	}

	flow, err := s.provider.FetchTrafficFlow(ctx, bbox, zoom)
	if err != nil {
		s.logger.Warn("traffic flow unavailable", slog.String("bbox", bbox.String()), slog.Any("error", err))
		return nil, err
	}
	return flow, nil
}
