package domain

import (
	"fmt"
	"time"
)

// BBox is an axis-aligned box in lon/lat space, [minLon, minLat, maxLon, maxLat].
type BBox struct {
	MinLon float64 `json:"minLon"`
	MinLat float64 `json:"minLat"`
	MaxLon float64 `json:"maxLon"`
	MaxLat float64 `json:"maxLat"`
}

// Contains is inclusive on every edge.
func (b BBox) Contains(p Position) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

func (b BBox) Center() Position {
	return Position{
		Lon: (b.MinLon + b.MaxLon) / 2,
		Lat: (b.MinLat + b.MaxLat) / 2,
	}
}

// String renders the wire encoding minLon,minLat,maxLon,maxLat.
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// SpatialQuery is the storage-neutral query value object. Nil fields are
// not applied.
type SpatialQuery struct {
	BBox         *BBox
	UserID       *string
	Active       *bool
	IncidentType *IncidentType
	// NewestFirst orders by createdAt descending.
	NewestFirst bool
	// Now is the reference instant for lazy expiry when Active is set.
	// Zero means the store's clock.
	Now time.Time
}

// ReportFilter is the caller-facing filter for the reports listing.
type ReportFilter struct {
	BBox         *BBox
	UserID       string
	Active       *bool
	IncidentType IncidentType
}
