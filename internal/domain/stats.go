package domain

type ReportStats struct {
	Minutes       int   `json:"minutes"`
	Total         int64 `json:"total"`
	Active        int64 `json:"active"`
	Invalidated   int64 `json:"invalidated"`
	Resolved      int64 `json:"resolved"`
	Expired       int64 `json:"expired"`
	Validations   int64 `json:"validations"`
	Invalidations int64 `json:"invalidations"`
}

type StatsRequest struct {
	Minutes int `query:"minutes" validate:"min=1,max=1440"`
}
