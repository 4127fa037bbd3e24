package model

import (
	"math"
	"time"
)

// Position represents a single vessel position report
type Position struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Latitude  *float64  `json:"lat"`
	Longitude *float64  `json:"lng"`
	Heading   *float64  `json:"heading,omitempty"`
	Speed     *float64  `json:"speed_knots,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPosition builds a Position with both coordinates present.
func NewPosition(id string, lat, lng float64, ts time.Time) Position {
	return Position{ID: id, Latitude: &lat, Longitude: &lng, Timestamp: ts}
}

// Coordinates returns the position's lat/lng. ok is false when either
// coordinate is missing or not a finite number.
func (p Position) Coordinates() (lat, lng float64, ok bool) {
	if p.Latitude == nil || p.Longitude == nil {
		return 0, 0, false
	}
	lat, lng = *p.Latitude, *p.Longitude
	if !finite(lat) || !finite(lng) {
		return 0, 0, false
	}
	return lat, lng, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float returns a pointer to f, for optional Position fields.
func Float(f float64) *float64 {
	return &f
}
