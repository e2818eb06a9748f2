package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"trafine/internal/domain"
	"trafine/internal/geo"
	"trafine/internal/storage"
	"trafine/pkg/e"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const incidentColumns = `id::text, reported_by, incident_type, ST_AsEWKB(location), description, severity,
	validations, invalidations, active, inactive_reason, created_at, expires_at, updated_at`

type IncidentRepo struct {
	db     DB
	logger *slog.Logger
	now    func() time.Time
}

func NewIncidentRepo(db DB, logger *slog.Logger) *IncidentRepo {
	return &IncidentRepo{db: db, logger: logger, now: time.Now}
}

func (p *IncidentRepo) Create(ctx context.Context, incident *domain.Incident) error {
	const op = "postgres.Incident.Create"

	if err := storage.PrepareReport(incident, p.now()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	point, err := geo.EncodeEWKB(incident.Position)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	const query = `
		INSERT INTO incidents (id, reported_by, incident_type, location, description, severity,
			validations, invalidations, active, inactive_reason, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, ST_GeomFromEWKB($4), $5, $6, 0, 0, true, '', $7, $8, $9)
	`

	_, err = p.db.Exec(ctx, query,
		incident.ID,
		incident.ReportedBy,
		incident.IncidentType,
		point,
		incident.Description,
		incident.Severity,
		incident.CreatedAt,
		incident.ExpiresAt,
		incident.UpdatedAt,
	)
	if err != nil {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}

	return nil
}

func (p *IncidentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const op = "postgres.Incident.Get"

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return inc, nil
}

// Query translates q into a PostGIS predicate. The && operator uses the
// GiST index and is inclusive on the box edges.
func (p *IncidentRepo) Query(ctx context.Context, q domain.SpatialQuery) ([]*domain.Incident, error) {
	const op = "postgres.Incident.Query"

	query, args := buildQuery(q, p.now())

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	incidents := make([]*domain.Incident, 0, 16)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return incidents, nil
}

func buildQuery(q domain.SpatialQuery, fallbackNow time.Time) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.BBox != nil {
		// && only compares the float4 index boxes, which are rounded
		// outward; the exact coordinate check keeps the box edge-precise.
		minLon, minLat := arg(q.BBox.MinLon), arg(q.BBox.MinLat)
		maxLon, maxLat := arg(q.BBox.MaxLon), arg(q.BBox.MaxLat)
		where = append(where,
			fmt.Sprintf("location && ST_MakeEnvelope(%s, %s, %s, %s, 4326)", minLon, minLat, maxLon, maxLat),
			fmt.Sprintf("ST_X(location) BETWEEN %s AND %s", minLon, maxLon),
			fmt.Sprintf("ST_Y(location) BETWEEN %s AND %s", minLat, maxLat),
		)
	}
	if q.UserID != nil {
		where = append(where, "reported_by = "+arg(*q.UserID))
	}
	if q.IncidentType != nil {
		where = append(where, "incident_type = "+arg(string(*q.IncidentType)))
	}
	if q.Active != nil {
		now := q.Now
		if now.IsZero() {
			now = fallbackNow
		}
		if *q.Active {
			where = append(where, "active AND expires_at >= "+arg(now))
		} else {
			where = append(where, "(NOT active OR expires_at < "+arg(now)+")")
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + incidentColumns + " FROM incidents")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if q.NewestFirst {
		sb.WriteString(" ORDER BY created_at DESC, id")
	}
	return sb.String(), args
}

// Mutate is the atomic read-modify-write path: the row is locked with
// FOR UPDATE, fn sees the committed state, and save runs in the same
// transaction.
func (p *IncidentRepo) Mutate(ctx context.Context, id uuid.UUID, fn domain.MutateFunc) (*domain.Incident, error) {
	const op = "postgres.Incident.Mutate"

	tx, err := p.db.Begin(ctx)
	if err != nil {
		p.logger.Error("begin tx failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1 FOR UPDATE`
	inc, err := scanIncident(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("select for update failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	changed, err := fn(inc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		return inc, nil
	}

	if err := p.save(ctx, tx, inc); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		p.logger.Error("commit failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return inc, nil
}

// save overwrites the mutable fields. Callers must hold the row lock.
func (p *IncidentRepo) save(ctx context.Context, tx pgx.Tx, inc *domain.Incident) error {
	const op = "postgres.Incident.save"

	const query = `
		UPDATE incidents
		SET validations     = $2,
			invalidations   = $3,
			active          = $4,
			inactive_reason = $5,
			updated_at      = $6
		WHERE id = $1
	`

	cmd, err := tx.Exec(ctx, query,
		inc.ID,
		inc.Validations,
		inc.Invalidations,
		inc.Active,
		string(inc.InactiveReason),
		inc.UpdatedAt,
	)
	if err != nil {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", inc.ID))
		return e.WrapError(ctx, op, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, e.ErrNotFound)
	}
	return nil
}

// ExpireStale flips every active row past its expiry and returns them.
func (p *IncidentRepo) ExpireStale(ctx context.Context, now time.Time) ([]*domain.Incident, error) {
	const op = "postgres.Incident.ExpireStale"

	query := `
		UPDATE incidents
		SET active = false, inactive_reason = 'expired', updated_at = $1
		WHERE active AND expires_at < $1
		RETURNING ` + incidentColumns

	rows, err := p.db.Query(ctx, query, now)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	var expired []*domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		expired = append(expired, inc)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return expired, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var (
		inc    domain.Incident
		point  []byte
		reason string
	)
	if err := row.Scan(
		&inc.ID,
		&inc.ReportedBy,
		&inc.IncidentType,
		&point,
		&inc.Description,
		&inc.Severity,
		&inc.Validations,
		&inc.Invalidations,
		&inc.Active,
		&reason,
		&inc.CreatedAt,
		&inc.ExpiresAt,
		&inc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	pos, err := geo.DecodeEWKB(point)
	if err != nil {
		return nil, err
	}
	inc.Position = pos
	inc.Source = domain.SourceUserReport
	inc.InactiveReason = domain.InactiveReason(reason)
	return &inc, nil
}
