package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_KnownPair(t *testing.T) {
	// Pohang port to Guryongpo
	pohang := [2]float64{36.0322, 129.3650}
	guryongpo := [2]float64{35.9906, 129.5566}

	m := DistanceMeters(pohang[0], pohang[1], guryongpo[0], guryongpo[1])
	assert.InDelta(t, 17800, m, 300)

	nm := DistanceNM(pohang[0], pohang[1], guryongpo[0], guryongpo[1])
	assert.InDelta(t, m/1852, nm, 0.05, "nm and m must agree")
}

func TestDistance_ZeroForIdenticalPoints(t *testing.T) {
	points := []struct {
		name     string
		lat, lng float64
	}{
		{"origin", 0, 0},
		{"guryongpo", 35.99, 129.57},
		{"north pole", 90, 0},
		{"south pole", -90, 45},
		{"antimeridian east", 10, 180},
		{"antimeridian west", -10, -180},
		{"tiny fraction", 35.123456789, 129.987654321},
	}
	for _, p := range points {
		t.Run(p.name, func(t *testing.T) {
			for _, u := range []Unit{Meters, NauticalMiles} {
				d := Distance(p.lat, p.lng, p.lat, p.lng, u)
				assert.False(t, math.IsNaN(d))
				assert.Equal(t, 0.0, d)
			}
		})
	}
}

func TestDistance_Antipodal(t *testing.T) {
	d := Distance(0, 0, 0, 180, Meters)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*Meters.Radius(), d, 1)
}

func TestDistance_Symmetric(t *testing.T) {
	a := DistanceNM(35.99, 129.57, 36.01, 129.60)
	b := DistanceNM(36.01, 129.60, 35.99, 129.57)
	assert.InDelta(t, a, b, 1e-12)
	assert.Greater(t, a, 0.0)
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
	}{
		{"north", 35, 129, 36, 129, 0},
		{"south", 36, 129, 35, 129, 180},
		{"east on equator", 0, 0, 0, 1, 90},
		{"west on equator", 0, 1, 0, 0, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Bearing(tt.lat1, tt.lng1, tt.lat2, tt.lng2), 1e-6)
		})
	}
}

func TestOffset_RoundTrip(t *testing.T) {
	lat, lng := Offset(35.99, 129.57, 0.2, 45, NauticalMiles)
	assert.InDelta(t, 0.2, DistanceNM(35.99, 129.57, lat, lng), 1e-9)
	assert.InDelta(t, 45, Bearing(35.99, 129.57, lat, lng), 1e-3)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(90, -180))
	assert.True(t, ValidCoordinate(35.99, 129.57))
	assert.False(t, ValidCoordinate(91, 0))
	assert.False(t, ValidCoordinate(0, 180.5))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
}

func TestUnitRadius(t *testing.T) {
	assert.Equal(t, 6371000.0, Meters.Radius())
	assert.InDelta(t, 3440.066, NauticalMiles.Radius(), 0.001)

	// one degree of latitude along a meridian
	assert.InDelta(t, 111194.9, DistanceMeters(0, 0, 1, 0), 0.1)
	assert.InDelta(t, 60.04, DistanceNM(0, 0, 1, 0), 0.01)
}
