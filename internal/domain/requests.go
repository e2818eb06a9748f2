package domain

type ReportRequest struct {
	UserID          string       `json:"-"`
	IncidentType    IncidentType `json:"incidentType" validate:"required,incident_type"`
	Coordinates     []float64    `json:"coordinates" validate:"required,coordinates"`
	Description     string       `json:"description" validate:"max=1000"`
	Severity        Severity     `json:"severity" validate:"omitempty,severity"`
	DurationMinutes *int         `json:"durationMinutes" validate:"omitempty,min=1,max=10080"`
}

// Requester identifies who asked for a lifecycle action. The user id is
// trusted as-is from the upstream auth service.
type Requester struct {
	UserID  string
	IsAdmin bool
}

type MergedResult struct {
	Incidents []Incident `json:"incidents"`
	// Degraded is set when provider data could not be fetched and only
	// user reports are returned.
	Degraded      bool `json:"degraded"`
	ProviderCount int  `json:"providerCount"`
	ReportCount   int  `json:"reportCount"`
}
