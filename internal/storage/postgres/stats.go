package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trafine/internal/domain"
	"trafine/pkg/e"
)

type StatsRepo struct {
	db     DB
	logger *slog.Logger
}

func NewStats(db DB, logger *slog.Logger) *StatsRepo {
	return &StatsRepo{db: db, logger: logger}
}

// ReportStats aggregates user reports created at or after since. Rows
// still flagged active but past expiry count as expired.
func (p *StatsRepo) ReportStats(ctx context.Context, since, now time.Time) (*domain.ReportStats, error) {
	const op = "postgres.Stats.ReportStats"

	if !since.Before(now) {
		return nil, fmt.Errorf("%s: %w", op, e.ErrInvalidInput)
	}

	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE active AND expires_at >= $2),
			COUNT(*) FILTER (WHERE inactive_reason = 'invalidated'),
			COUNT(*) FILTER (WHERE inactive_reason = 'resolved'),
			COUNT(*) FILTER (WHERE inactive_reason = 'expired' OR (active AND expires_at < $2)),
			COALESCE(SUM(validations), 0),
			COALESCE(SUM(invalidations), 0)
		FROM incidents
		WHERE created_at >= $1
	`

	var st domain.ReportStats
	if err := p.db.QueryRow(ctx, query, since, now).Scan(
		&st.Total,
		&st.Active,
		&st.Invalidated,
		&st.Resolved,
		&st.Expired,
		&st.Validations,
		&st.Invalidations,
	); err != nil {
		p.logger.Error("db queryrow scan failed",
			slog.String("op", op),
			slog.Any("error", err),
			slog.Time("since", since),
		)
		return nil, e.WrapError(ctx, op, err)
	}

	st.Minutes = int(now.Sub(since) / time.Minute)
	return &st, nil
}
