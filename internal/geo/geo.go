// Package geo provides great-circle helpers for vessel positions.
package geo

import "math"

// Unit selects the distance unit and its matching earth radius.
type Unit int

const (
	Meters Unit = iota
	NauticalMiles
)

const (
	earthRadiusKm = 6371.0
	kmToNM        = 0.539957
)

// Radius returns the mean earth radius expressed in u.
func (u Unit) Radius() float64 {
	switch u {
	case NauticalMiles:
		return earthRadiusKm * kmToNM
	default:
		return earthRadiusKm * 1000
	}
}

func (u Unit) String() string {
	if u == NauticalMiles {
		return "nm"
	}
	return "m"
}

// Distance returns the haversine distance between two points in degrees.
// Inputs are not range checked; see ValidCoordinate.
func Distance(lat1, lng1, lat2, lng2 float64, u Unit) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push a just outside [0,1]
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Asin(math.Sqrt(a))
	return u.Radius() * c
}

// DistanceMeters is Distance in meters.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return Distance(lat1, lng1, lat2, lng2, Meters)
}

// DistanceNM is Distance in nautical miles.
func DistanceNM(lat1, lng1, lat2, lng2 float64) float64 {
	return Distance(lat1, lng1, lat2, lng2, NauticalMiles)
}

// Bearing returns the initial great-circle bearing from point 1 to point 2,
// in degrees clockwise from true north, within [0, 360).
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	φ1, φ2 := degreesToRadians(lat1), degreesToRadians(lat2)
	Δλ := degreesToRadians(lng2 - lng1)
	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	deg := radiansToDegrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// Offset moves a point by distance along an initial bearing (degrees) and
// returns the destination.
func Offset(lat, lng, distance, bearing float64, u Unit) (float64, float64) {
	δ := distance / u.Radius()
	θ := degreesToRadians(bearing)
	φ1 := degreesToRadians(lat)
	λ1 := degreesToRadians(lng)
	φ2 := math.Asin(math.Sin(φ1)*math.Cos(δ) + math.Cos(φ1)*math.Sin(δ)*math.Cos(θ))
	λ2 := λ1 + math.Atan2(math.Sin(θ)*math.Sin(δ)*math.Cos(φ1), math.Cos(δ)-math.Sin(φ1)*math.Sin(φ2))
	lng2 := math.Mod(radiansToDegrees(λ2)+540, 360) - 180
	return radiansToDegrees(φ2), lng2
}

// ValidCoordinate reports whether lat/lng are finite and within range.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}

func radiansToDegrees(r float64) float64 {
	return r * 180 / math.Pi
}
