package domain

import (
	"encoding/json"
	"time"
)

type Source string

const (
	SourceProvider   Source = "provider"
	SourceUserReport Source = "user-report"
)

type IncidentType string

const (
	TypeAccident   IncidentType = "accident"
	TypeCongestion IncidentType = "congestion"
	TypeRoadClosed IncidentType = "roadClosed"
	TypeRoadworks  IncidentType = "roadworks"
	TypeHazard     IncidentType = "hazard"
	TypePolice     IncidentType = "police"
)

// IncidentTypes lists the user-report taxonomy in wire order.
var IncidentTypes = []IncidentType{
	TypeAccident, TypeCongestion, TypeRoadClosed, TypeRoadworks, TypeHazard, TypePolice,
}

func (t IncidentType) Valid() bool {
	for _, v := range IncidentTypes {
		if t == v {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeveritySevere   Severity = "severe"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeveritySevere:
		return true
	}
	return false
}

// InactiveReason records which terminal state a report reached.
type InactiveReason string

const (
	ReasonNone        InactiveReason = ""
	ReasonExpired     InactiveReason = "expired"
	ReasonInvalidated InactiveReason = "invalidated"
	ReasonResolved    InactiveReason = "resolved"
)

const (
	// InvalidationThreshold is the consensus threshold at which a report is deactivated.
	InvalidationThreshold = 3
	DefaultDuration       = 60 * time.Minute
)

type Position struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Incident is the canonical shape returned for both provider and user-report data.
type Incident struct {
	ID             string         `json:"id"`
	Source         Source         `json:"source"`
	Position       Position       `json:"position"`
	IncidentType   IncidentType   `json:"incidentType"`
	Severity       Severity       `json:"severity"`
	Description    string         `json:"description"`
	CreatedAt      time.Time      `json:"createdAt"`
	ExpiresAt      time.Time      `json:"expiresAt,omitzero"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Active         bool           `json:"active"`
	InactiveReason InactiveReason `json:"inactiveReason,omitempty"`
	Validations    int            `json:"validations"`
	Invalidations  int            `json:"invalidations"`
	ReportedBy     string         `json:"reportedBy,omitempty"`
}

// Expired reports whether the incident is past its expiry at now.
func (i *Incident) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Live is the read-side activity check: stored flag and expiry together.
func (i *Incident) Live(now time.Time) bool {
	return i.Active && !i.Expired(now)
}

// WithLazyExpiry returns a copy rendered inactive if it expired without the
// stored flag having been flipped yet.
func (i Incident) WithLazyExpiry(now time.Time) Incident {
	if i.Active && i.Expired(now) {
		i.Active = false
		i.InactiveReason = ReasonExpired
	}
	return i
}

// MarshalJSON drops the crowd-sourced fields from provider incidents.
func (i Incident) MarshalJSON() ([]byte, error) {
	type Alias Incident
	if i.Source != SourceProvider {
		return json.Marshal(Alias(i))
	}
	return json.Marshal(struct {
		Alias
		Validations   *int      `json:"validations,omitempty"`
		Invalidations *int      `json:"invalidations,omitempty"`
		UpdatedAt     *struct{} `json:"updatedAt,omitempty"`
	}{Alias: Alias(i)})
}
