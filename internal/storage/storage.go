// Package storage holds the rules shared by every Spatial Incident Store
// implementation.
package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"trafine/internal/domain"
	"trafine/internal/geo"
	"trafine/pkg/e"
)

// PrepareReport validates a new user report and fills in the creation
// defaults: id, timestamps, severity, zeroed counters and the active flag.
func PrepareReport(inc *domain.Incident, now time.Time) error {
	if inc == nil {
		return fmt.Errorf("nil incident: %w", e.ErrInvalidInput)
	}
	if inc.IncidentType == "" {
		return fmt.Errorf("incidentType: %w", e.ErrMissingRequiredField)
	}
	if !inc.IncidentType.Valid() {
		return fmt.Errorf("%q: %w", inc.IncidentType, e.ErrInvalidIncidentType)
	}
	if err := geo.ValidatePosition(inc.Position); err != nil {
		return err
	}
	if inc.Severity == "" {
		inc.Severity = domain.SeverityModerate
	}
	if !inc.Severity.Valid() {
		return fmt.Errorf("severity %q: %w", inc.Severity, e.ErrInvalidInput)
	}

	if inc.ID == "" {
		inc.ID = uuid.NewString()
	} else if _, err := uuid.Parse(inc.ID); err != nil {
		return fmt.Errorf("id %q: %w", inc.ID, e.ErrInvalidInput)
	}
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now.UTC()
	}
	if inc.ExpiresAt.IsZero() {
		inc.ExpiresAt = inc.CreatedAt.Add(domain.DefaultDuration)
	}
	if !inc.ExpiresAt.After(inc.CreatedAt) {
		return fmt.Errorf("expiresAt must be after createdAt: %w", e.ErrInvalidInput)
	}

	inc.Source = domain.SourceUserReport
	inc.UpdatedAt = inc.CreatedAt
	inc.Validations = 0
	inc.Invalidations = 0
	inc.Active = true
	inc.InactiveReason = domain.ReasonNone
	return nil
}
