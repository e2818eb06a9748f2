package domain

import "time"

type EventAction string

const (
	EventReported    EventAction = "reported"
	EventValidated   EventAction = "validated"
	EventInvalidated EventAction = "invalidated"
	EventDeactivated EventAction = "deactivated"
	EventResolved    EventAction = "resolved"
	EventExpired     EventAction = "expired"
)

// IncidentEvent is published after a lifecycle transition is committed.
type IncidentEvent struct {
	Action     EventAction `json:"action"`
	IncidentID string      `json:"incidentId"`
	Incident   Incident    `json:"incident"`
	OccurredAt time.Time   `json:"occurredAt"`
}
