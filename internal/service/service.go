package service

import (
	"context"
	"time"

	"trafine/internal/domain"
	"trafine/internal/provider/tomtom"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go

// IncidentStore is the Spatial Incident Store. Mutate is the only write
// path for an existing report.
type IncidentStore interface {
	Create(ctx context.Context, incident *domain.Incident) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Query(ctx context.Context, q domain.SpatialQuery) ([]*domain.Incident, error)
	Mutate(ctx context.Context, id uuid.UUID, fn domain.MutateFunc) (*domain.Incident, error)
	ExpireStale(ctx context.Context, now time.Time) ([]*domain.Incident, error)
}

type StatsRepository interface {
	ReportStats(ctx context.Context, since, now time.Time) (*domain.ReportStats, error)
}

type ProviderClient interface {
	FetchIncidents(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) ([]tomtom.Incident, error)
	FetchTrafficFlow(ctx context.Context, bbox domain.BBox, zoom int) (*domain.FlowResult, error)
}

type ProviderCache interface {
	Get(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) ([]domain.Incident, bool, error)
	Set(ctx context.Context, bbox domain.BBox, filter domain.IncidentType, incidents []domain.Incident) error
}

type EventQueue interface {
	Enqueue(ctx context.Context, event domain.IncidentEvent) error
}

type EventSource interface {
	BRPop(ctx context.Context, timeout time.Duration) (domain.IncidentEvent, error)
}

// Aggregation Facade
type TrafficService interface {
	GetMergedIncidents(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) (*domain.MergedResult, error)
	GetTrafficFlow(ctx context.Context, bbox domain.BBox, zoom int) (*domain.FlowResult, error)
}

// Consensus Lifecycle Manager
type LifecycleService interface {
	Report(ctx context.Context, req domain.ReportRequest) (*domain.Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Validate(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Invalidate(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Resolve(ctx context.Context, id uuid.UUID, by domain.Requester) (*domain.Incident, error)
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, error)
	ExpireStale(ctx context.Context) (int, error)
}

type StatsService interface {
	GetStats(ctx context.Context, req domain.StatsRequest) (*domain.ReportStats, error)
}

type Service struct {
	TrafficService   TrafficService
	LifecycleService LifecycleService
	StatsService     StatsService
}

func NewService(
	trafficService TrafficService,
	lifecycleService LifecycleService,
	statsService StatsService,
) *Service {
	return &Service{
		TrafficService:   trafficService,
		LifecycleService: lifecycleService,
		StatsService:     statsService,
	}
}

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
