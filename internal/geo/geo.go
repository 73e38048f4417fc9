// Package geo implements the geodesy used by donor search: great-circle
// distance, a bounding-box prefilter for store queries, constant-speed travel
// time estimates and human-readable distance formatting.
//
// Everything here is pure and safe for concurrent use.
package geo

import (
	"fmt"
	"math"

	"github.com/tbourn/go-bloodlink-backend/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ValidateCoordinates rejects NaN, infinities and values outside
// lat ∈ [-90, 90], lng ∈ [-180, 180].
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return domain.NewValidationError("latitude", "%v is not in [-90, 90]", lat)
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return domain.NewValidationError("longitude", "%v is not in [-180, 180]", lng)
	}
	return nil
}

// Validate is ValidateCoordinates for p.
func (p Point) Validate() error { return ValidateCoordinates(p.Lat, p.Lng) }

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the Haversine distance in kilometres between two
// coordinates. It is symmetric and Distance(p, p) == 0.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push a a hair above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceBetween is Distance for two points.
func DistanceBetween(a, b Point) float64 {
	return Distance(a.Lat, a.Lng, b.Lat, b.Lng)
}

// BoundingBox is a lat/lng rectangle approximating a circular search area.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// NewBoundingBox computes the prefilter rectangle around center for radiusKm:
//
//	latDelta = R/6371 · 180/π
//	lngDelta = asin(sin(R/6371) / cos(lat·π/180)) · 180/π
//
// lngDelta is the true longitude extent of the circle, which is never
// narrower than R/(6371·cos(lat)) and grows faster near the poles.
//
// Latitudes are clamped to the poles. When the box would reach a pole or
// cross the antimeridian the longitude range widens to the full [-180, 180]
// so the store query stays a single range; the exact distance check that
// follows removes the surplus.
func NewBoundingBox(center Point, radiusKm float64) BoundingBox {
	if radiusKm < 0 {
		radiusKm = 0
	}
	latDelta := toDeg(radiusKm / EarthRadiusKm)
	box := BoundingBox{
		MinLat: math.Max(-90, center.Lat-latDelta),
		MaxLat: math.Min(90, center.Lat+latDelta),
		MinLng: -180,
		MaxLng: 180,
	}

	cosLat := math.Cos(toRad(center.Lat))
	if box.MinLat <= -90 || box.MaxLat >= 90 || cosLat <= 1e-12 {
		return box
	}
	ratio := math.Sin(radiusKm/EarthRadiusKm) / cosLat
	if ratio >= 1 {
		return box
	}
	lngDelta := toDeg(math.Asin(ratio))
	if center.Lng-lngDelta < -180 || center.Lng+lngDelta > 180 {
		return box
	}
	box.MinLng = center.Lng - lngDelta
	box.MaxLng = center.Lng + lngDelta
	return box
}

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// TravelMode selects the constant speed used for travel-time estimates.
type TravelMode string

const (
	Driving TravelMode = "driving"
	Cycling TravelMode = "cycling"
	Walking TravelMode = "walking"
)

// SpeedKmh returns the assumed average speed for the mode. Unknown modes
// fall back to driving.
func (m TravelMode) SpeedKmh() float64 {
	switch m {
	case Walking:
		return 5
	case Cycling:
		return 15
	default:
		return 30
	}
}

// ParseTravelMode returns the mode for s, or false when s is unknown.
func ParseTravelMode(s string) (TravelMode, bool) {
	switch m := TravelMode(s); m {
	case Driving, Cycling, Walking:
		return m, true
	}
	return "", false
}

// TravelMinutes estimates minutes to cover distanceKm at the mode's speed,
// rounded to the nearest minute.
func TravelMinutes(distanceKm float64, mode TravelMode) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(math.Round(distanceKm / mode.SpeedKmh() * 60))
}

// FormatDistance renders a distance the way donors see it: metres below
// 1 km, one decimal below 10 km, whole kilometres beyond.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	case km < 10:
		return fmt.Sprintf("%.1fkm", km)
	default:
		return fmt.Sprintf("%dkm", int(math.Round(km)))
	}
}
