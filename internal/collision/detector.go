package collision

import (
	"errors"
	"fmt"
	"time"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/geo"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// ErrInvalidThresholds is returned when thresholds are not strictly ordered.
var ErrInvalidThresholds = errors.New("invalid proximity thresholds")

// Thresholds are the proximity bands in nautical miles.
type Thresholds struct {
	Danger  float64 `koanf:"danger_nm"`
	Warning float64 `koanf:"warning_nm"`
	Safe    float64 `koanf:"safe_nm"`
}

// DefaultThresholds are tuned for the harbour demo map, not open water.
func DefaultThresholds() Thresholds {
	return Thresholds{Danger: 0.05, Warning: 0.10, Safe: 0.15}
}

// Validate requires 0 <= Danger < Warning < Safe.
func (t Thresholds) Validate() error {
	if t.Danger < 0 || t.Danger >= t.Warning || t.Warning >= t.Safe {
		return fmt.Errorf("%w: need 0 <= danger (%g) < warning (%g) < safe (%g)",
			ErrInvalidThresholds, t.Danger, t.Warning, t.Safe)
	}
	return nil
}

// State holds the suppression state per vessel pair.
type State map[model.PairKey]*model.AlertPairState

// Evaluate runs one hysteresis step for every (home, other) pair and returns
// the alerts raised by this step. state is updated in place.
//
// A pair alerts once on entering the warning band and once more if it
// escalates into danger; it stays silent until its distance exceeds
// th.Safe, at which point its entry is dropped.
func Evaluate(home model.Position, others []model.Position, state State, th Thresholds, now time.Time) []model.Alert {
	homeLat, homeLng, ok := home.Coordinates()
	if !ok {
		return nil
	}

	var alerts []model.Alert
	for _, other := range others {
		if other.ID == home.ID {
			continue
		}
		lat, lng, ok := other.Coordinates()
		if !ok {
			continue
		}

		dist := geo.DistanceNM(homeLat, homeLng, lat, lng)
		key := model.NewPairKey(home.ID, other.ID)
		ps := state[key]

		level := model.RiskNone
		switch {
		case dist < th.Danger:
			level = model.RiskDanger
		case dist < th.Warning:
			level = model.RiskWarning
		}

		switch {
		case level != model.RiskNone && (ps == nil || !ps.Notified):
			state[key] = &model.AlertPairState{Level: level, Notified: true, LastDistance: dist}
			alerts = append(alerts, newAlert(home.ID, other.ID, dist, level, homeLat, homeLng, lat, lng, now))
		case level == model.RiskDanger && ps.Level < model.RiskDanger:
			ps.Level = model.RiskDanger
			ps.LastDistance = dist
			alerts = append(alerts, newAlert(home.ID, other.ID, dist, level, homeLat, homeLng, lat, lng, now))
		case ps != nil && dist > th.Safe:
			delete(state, key)
		case ps != nil:
			ps.LastDistance = dist
		}
	}
	return alerts
}

func newAlert(homeID, otherID string, dist float64, level model.RiskLevel, homeLat, homeLng, lat, lng float64, now time.Time) model.Alert {
	return model.Alert{
		HomeID:   homeID,
		OtherID:  otherID,
		Distance: dist,
		Bearing:  geo.Bearing(homeLat, homeLng, lat, lng),
		Level:    level,
		RaisedAt: now,
	}
}
