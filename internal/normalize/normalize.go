// Package normalize maps provider records and stored user reports onto the
// canonical incident shape. It never filters.
package normalize

import (
	"fmt"
	"time"

	"trafine/internal/domain"
	"trafine/internal/geo"
	"trafine/internal/provider/tomtom"
)

// ProviderPrefix namespaces provider ids so they never collide with
// user-report UUIDs.
const ProviderPrefix = "tomtom:"

var magnitudeSeverity = map[tomtom.Magnitude]domain.Severity{
	tomtom.MagnitudeUnknown:   domain.SeverityModerate,
	tomtom.MagnitudeMinor:     domain.SeverityLow,
	tomtom.MagnitudeModerate:  domain.SeverityModerate,
	tomtom.MagnitudeMajor:     domain.SeverityHigh,
	tomtom.MagnitudeUndefined: domain.SeveritySevere,
}

// Severity maps TomTom's delay magnitude onto the severity scale.
func Severity(m tomtom.Magnitude) domain.Severity {
	if s, ok := magnitudeSeverity[m]; ok {
		return s
	}
	return domain.SeverityModerate
}

// Provider converts one provider record. The provider type passes through
// under its own taxonomy, and the geometry is reduced to its first vertex.
// Provider incidents carry no counters and are active for the query.
func Provider(rec tomtom.Incident, now time.Time) (domain.Incident, error) {
	pos, err := geo.RepresentativePosition(rec.Geometry)
	if err != nil {
		return domain.Incident{}, fmt.Errorf("normalize: provider incident %q: %w", rec.ID, err)
	}

	inc := domain.Incident{
		ID:           ProviderPrefix + rec.ID,
		Source:       domain.SourceProvider,
		Position:     pos,
		IncidentType: domain.IncidentType(rec.IconCategory.String()),
		Severity:     Severity(rec.MagnitudeOfDelay),
		Description:  rec.Description,
		CreatedAt:    now.UTC(),
		Active:       true,
	}
	if rec.StartTime != nil {
		inc.CreatedAt = rec.StartTime.UTC()
	}
	if rec.EndTime != nil {
		inc.ExpiresAt = rec.EndTime.UTC()
	}
	return inc, nil
}

// Report maps a stored user report. Every field passes through.
func Report(inc *domain.Incident) domain.Incident {
	out := *inc
	out.Source = domain.SourceUserReport
	return out
}
