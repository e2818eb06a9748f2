package service

import (
	"context"

	"trafine/internal/domain"
)

func (s *Service) GetMergedIncidents(ctx context.Context, bbox domain.BBox, filter domain.IncidentType) (*domain.MergedResult, error) {
	return s.TrafficService.GetMergedIncidents(ctx, bbox, filter)
}

func (s *Service) GetTrafficFlow(ctx context.Context, bbox domain.BBox, zoom int) (*domain.FlowResult, error) {
	return s.TrafficService.GetTrafficFlow(ctx, bbox, zoom)
}
