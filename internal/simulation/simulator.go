// Package simulation moves vessels along planned routes on a simulated
// clock so the dashboard can be exercised without a live feed.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/geo"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// BaseTime is the simulated wall clock at elapsed zero. Route departures
// are offsets from it.
var BaseTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var ErrEmptyRoute = errors.New("route has no points")

// Route is a planned voyage.
type Route struct {
	ID         string
	Name       string
	Path       [][2]float64
	Departure  time.Duration
	SpeedKnots float64
}

// NewRoute builds a route from an encoded polyline or, when encoded is
// empty, from explicit [lat, lng] points.
func NewRoute(id, name, encoded string, points [][]float64, departure time.Duration, speedKnots float64) (Route, error) {
	r := Route{ID: id, Name: name, Departure: departure, SpeedKnots: speedKnots}
	if encoded != "" {
		coords, _, err := polyline.DecodeCoords([]byte(encoded))
		if err != nil {
			return Route{}, fmt.Errorf("route %s: decode polyline: %w", id, err)
		}
		points = coords
	}
	for i, p := range points {
		if len(p) != 2 || !geo.ValidCoordinate(p[0], p[1]) {
			return Route{}, fmt.Errorf("route %s: point %d is not a valid [lat, lng]", id, i)
		}
		r.Path = append(r.Path, [2]float64{p[0], p[1]})
	}
	if len(r.Path) == 0 {
		return Route{}, fmt.Errorf("route %s: %w", id, ErrEmptyRoute)
	}
	return r, nil
}

// Status describes the simulation clock.
type Status struct {
	Running         bool          `json:"is_running"`
	SimulationTime  time.Time     `json:"simulation_time"`
	Elapsed         time.Duration `json:"elapsed"`
	SpeedMultiplier float64       `json:"speed_multiplier"`
}

// Simulator implements scheduler.PositionSource and scheduler.SessionMode.
type Simulator struct {
	mu         sync.Mutex
	routes     []Route
	running    bool
	resumedAt  time.Time
	elapsed    time.Duration
	multiplier float64
	initial    float64
	now        func() time.Time
}

func New(routes []Route, multiplier float64) *Simulator {
	if multiplier <= 0 {
		multiplier = 1
	}
	return &Simulator{routes: routes, multiplier: multiplier, initial: multiplier, now: time.Now}
}

// Start begins a fresh run, or only changes speed if already running.
func (s *Simulator) Start(multiplier float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if multiplier > 0 {
		if s.running {
			s.elapsed = s.elapsedLocked()
			s.resumedAt = s.now()
		}
		s.multiplier = multiplier
	}
	if s.running {
		return
	}
	s.running = true
	s.elapsed = 0
	s.resumedAt = s.now()
}

// Stop freezes the simulated clock.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.elapsed = s.elapsedLocked()
	s.running = false
}

// Reset stops the run, rewinds the clock to BaseTime and restores the
// initial speed multiplier.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.elapsed = 0
	s.multiplier = s.initial
}

// Active reports whether a run is in progress.
func (s *Simulator) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.elapsedLocked()
	return Status{
		Running:         s.running,
		SimulationTime:  BaseTime.Add(e),
		Elapsed:         e,
		SpeedMultiplier: s.multiplier,
	}
}

func (s *Simulator) elapsedLocked() time.Duration {
	if !s.running {
		return s.elapsed
	}
	wall := s.now().Sub(s.resumedAt)
	return s.elapsed + time.Duration(float64(wall)*s.multiplier)
}

// Positions returns every route's vessel at the current simulated time.
func (s *Simulator) Positions(_ context.Context) ([]model.Position, error) {
	s.mu.Lock()
	elapsed := s.elapsedLocked()
	routes := s.routes
	s.mu.Unlock()

	at := BaseTime.Add(elapsed)
	out := make([]model.Position, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.PositionAt(elapsed, at))
	}
	return out, nil
}

// PositionAt interpolates the vessel along its path elapsed after
// BaseTime. Before departure it sits on the first point, after the
// distance is covered on the last.
func (r Route) PositionAt(elapsed time.Duration, at time.Time) model.Position {
	first, last := r.Path[0], r.Path[len(r.Path)-1]
	if elapsed < r.Departure || r.SpeedKnots <= 0 {
		return r.stationary(first, at)
	}

	travelled := r.SpeedKnots * (elapsed - r.Departure).Hours()
	var covered float64
	for i := 0; i+1 < len(r.Path); i++ {
		a, b := r.Path[i], r.Path[i+1]
		seg := geo.DistanceNM(a[0], a[1], b[0], b[1])
		if seg > 0 && covered+seg >= travelled {
			f := (travelled - covered) / seg
			p := model.NewPosition(r.ID, a[0]+(b[0]-a[0])*f, a[1]+(b[1]-a[1])*f, at)
			p.Name = r.Name
			p.Speed = model.Float(r.SpeedKnots)
			p.Heading = model.Float(geo.Bearing(a[0], a[1], b[0], b[1]))
			return p
		}
		covered += seg
	}
	return r.stationary(last, at)
}

func (r Route) stationary(pt [2]float64, at time.Time) model.Position {
	p := model.NewPosition(r.ID, pt[0], pt[1], at)
	p.Name = r.Name
	p.Speed = model.Float(0)
	return p
}
