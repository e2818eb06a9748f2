package service

import (
	"context"
	"fmt"
	"time"

	"trafine/internal/domain"
	"trafine/pkg/e"
)

const (
	defaultStatsMinutes = 60
	maxStatsMinutes     = 1440
)

type statsService struct {
	repo StatsRepository
	now  func() time.Time
}

func NewStatsService(repo StatsRepository, opts ...Option) StatsService {
	o := buildOptions(opts)
	return &statsService{repo: repo, now: o.now}
}

func (s *statsService) GetStats(ctx context.Context, req domain.StatsRequest) (*domain.ReportStats, error) {
	minutes := req.Minutes
	if minutes == 0 {
		minutes = defaultStatsMinutes
	}
	if minutes < 0 || minutes > maxStatsMinutes {
		return nil, fmt.Errorf("minutes %d: %w", minutes, e.ErrInvalidInput)
	}

	now := s.now().UTC()
	return s.repo.ReportStats(ctx, now.Add(-time.Duration(minutes)*time.Minute), now)
}
