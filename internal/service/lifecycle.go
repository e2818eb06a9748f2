package service

import (
	"context"

	"trafine/internal/domain"

	"github.com/google/uuid"
)

func (s *Service) Report(ctx context.Context, req domain.ReportRequest) (*domain.Incident, error) {
	return s.LifecycleService.Report(ctx, req)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return s.LifecycleService.Get(ctx, id)
}

func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return s.LifecycleService.Validate(ctx, id)
}

func (s *Service) Invalidate(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return s.LifecycleService.Invalidate(ctx, id)
}

func (s *Service) Resolve(ctx context.Context, id uuid.UUID, by domain.Requester) (*domain.Incident, error) {
	return s.LifecycleService.Resolve(ctx, id, by)
}

func (s *Service) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Incident, error) {
	return s.LifecycleService.ListReports(ctx, filter)
}

func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	return s.LifecycleService.ExpireStale(ctx)
}
