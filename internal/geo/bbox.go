// Package geo parses spatial query parameters and converts positions to
// and from the geometry encodings used by storage and the provider feed.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"trafine/internal/domain"
	"trafine/pkg/e"
)

const DefaultZoom = 10

// ParseBBox parses "minLon,minLat,maxLon,maxLat". Anything that is not
// exactly four finite numbers, or describes an inverted or out-of-range
// box, is rejected with e.ErrInvalidBBox.
func ParseBBox(raw string) (domain.BBox, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.BBox{}, fmt.Errorf("bbox is required: %w", e.ErrInvalidBBox)
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return domain.BBox{}, fmt.Errorf("bbox must contain 4 values [minLon, minLat, maxLon, maxLat], got %d: %w",
			len(parts), e.ErrInvalidBBox)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.BBox{}, fmt.Errorf("bbox value %q is not a finite number: %w", p, e.ErrInvalidBBox)
		}
		v[i] = f
	}

	b := domain.BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if err := ValidateBBox(b); err != nil {
		return domain.BBox{}, err
	}
	return b, nil
}

func ValidateBBox(b domain.BBox) error {
	for _, f := range []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("bbox has non-finite value: %w", e.ErrInvalidBBox)
		}
	}
	if b.MinLon < -180 || b.MaxLon > 180 || b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("bbox %s out of WGS84 range: %w", b, e.ErrInvalidBBox)
	}
	if b.MinLon > b.MaxLon || b.MinLat > b.MaxLat {
		return fmt.Errorf("bbox %s has min greater than max: %w", b, e.ErrInvalidBBox)
	}
	return nil
}

// ParseZoom returns DefaultZoom for an empty value.
func ParseZoom(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultZoom, nil
	}
	z, err := strconv.Atoi(raw)
	if err != nil || z <= 0 {
		return 0, fmt.Errorf("zoom %q must be a positive integer: %w", raw, e.ErrInvalidZoom)
	}
	return z, nil
}
