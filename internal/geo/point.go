package geo

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"

	"trafine/internal/domain"
	"trafine/pkg/e"
)

const SRID = 4326

// PositionFromCoordinates builds a Position from a [lon, lat] pair.
func PositionFromCoordinates(c []float64) (domain.Position, error) {
	if len(c) != 2 {
		return domain.Position{}, fmt.Errorf("expected [lon, lat], got %d values: %w", len(c), e.ErrInvalidCoordinates)
	}
	p := domain.Position{Lon: c[0], Lat: c[1]}
	if err := ValidatePosition(p); err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

func ValidatePosition(p domain.Position) error {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
		return fmt.Errorf("non-finite coordinate: %w", e.ErrInvalidCoordinates)
	}
	if p.Lon < -180 || p.Lon > 180 || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("(%g, %g) out of range: %w", p.Lon, p.Lat, e.ErrInvalidCoordinates)
	}
	return nil
}

// Point returns the WGS84 point geometry for p.
func Point(p domain.Position) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(SRID)
}

// EncodeEWKB renders p as EWKB with SRID 4326 for PostGIS.
func EncodeEWKB(p domain.Position) ([]byte, error) {
	if err := ValidatePosition(p); err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(Point(p), ewkb.NDR)
	if err != nil {
		return nil, fmt.Errorf("geo: encode EWKB: %w", err)
	}
	return data, nil
}

// DecodeEWKB reads a PostGIS point back into a Position.
func DecodeEWKB(data []byte) (domain.Position, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return domain.Position{}, fmt.Errorf("geo: decode EWKB: %w", err)
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return domain.Position{}, fmt.Errorf("geo: expected Point, got %T: %w", g, e.ErrInvalidCoordinates)
	}
	return domain.Position{Lon: pt.X(), Lat: pt.Y()}, nil
}

// RepresentativePosition picks a single point for a GeoJSON geometry: the
// point itself, or the first vertex of a line or polygon.
func RepresentativePosition(raw json.RawMessage) (domain.Position, error) {
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return domain.Position{}, fmt.Errorf("geo: decode geojson: %v: %w", err, e.ErrInvalidCoordinates)
	}
	if g == nil {
		return domain.Position{}, fmt.Errorf("geo: null geometry: %w", e.ErrInvalidCoordinates)
	}

	flat := g.FlatCoords()
	stride := g.Stride()
	if len(flat) < 2 || stride < 2 {
		return domain.Position{}, fmt.Errorf("geo: empty %T geometry: %w", g, e.ErrInvalidCoordinates)
	}

	p := domain.Position{Lon: flat[0], Lat: flat[1]}
	if err := ValidatePosition(p); err != nil {
		return domain.Position{}, err
	}
	return p, nil
}
