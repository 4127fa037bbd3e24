package collision

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// Watch owns the alert state for the currently selected home vessel.
// All methods are safe for concurrent use; evaluation steps are serialized.
type Watch struct {
	mu     sync.Mutex
	th     Thresholds
	home   string
	state  State
	logger *zap.Logger
}

// NewWatch returns a watch with no home vessel selected.
func NewWatch(th Thresholds, logger *zap.Logger) *Watch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watch{
		th:     th,
		state:  make(State),
		logger: logger,
	}
}

// SetHome selects the home vessel. Changing the selection discards every
// pair state so suppression never leaks between vessels. It reports
// whether the selection changed.
func (w *Watch) SetHome(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id == w.home {
		return false
	}
	w.logger.Info("home vessel changed",
		zap.String("from", w.home),
		zap.String("to", id),
		zap.Int("dropped_pairs", len(w.state)))
	w.home = id
	w.state = make(State)
	return true
}

// Home returns the selected home vessel id, or "" when none is selected.
func (w *Watch) Home() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.home
}

// Result is the outcome of one watch step.
type Result struct {
	Home   string
	Alerts []model.Alert
	Active []model.ActivePair
}

// Step evaluates a snapshot and reads back the active pairs under a single
// lock, so a concurrent SetHome cannot split the result.
func (w *Watch) Step(snapshot []model.Position, now time.Time) Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Result{
		Home:   w.home,
		Alerts: w.evaluateLocked(snapshot, now),
		Active: w.activeLocked(),
	}
}

// Evaluate runs one step against a snapshot. If no home is selected or the
// home vessel is missing from the snapshot (or has no coordinates) nothing
// changes.
func (w *Watch) Evaluate(snapshot []model.Position, now time.Time) []model.Alert {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.evaluateLocked(snapshot, now)
}

func (w *Watch) evaluateLocked(snapshot []model.Position, now time.Time) []model.Alert {
	if w.home == "" {
		return nil
	}

	var home *model.Position
	for i := range snapshot {
		if snapshot[i].ID == w.home {
			home = &snapshot[i]
			break
		}
	}
	if home == nil {
		w.logger.Debug("home vessel not in snapshot", zap.String("home", w.home))
		return nil
	}

	alerts := Evaluate(*home, snapshot, w.state, w.th, now)
	for _, a := range alerts {
		w.logger.Warn("collision risk",
			zap.String("home", a.HomeID),
			zap.String("other", a.OtherID),
			zap.Stringer("level", a.Level),
			zap.Float64("distance_nm", a.Distance))
	}
	return alerts
}

// Acknowledge marks the pair (home, otherID) as acknowledged by the
// operator. Suppression is kept; only the safe-distance reset clears it.
func (w *Watch) Acknowledge(otherID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ps, ok := w.state[model.NewPairKey(w.home, otherID)]
	if !ok {
		return false
	}
	ps.Acknowledged = true
	return true
}

// Active lists the pairs currently inside the alert envelope, sorted by
// distance.
func (w *Watch) Active() []model.ActivePair {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeLocked()
}

func (w *Watch) activeLocked() []model.ActivePair {
	out := make([]model.ActivePair, 0, len(w.state))
	for key, ps := range w.state {
		other := key.A
		if other == w.home {
			other = key.B
		}
		out = append(out, model.ActivePair{
			OtherID:      other,
			Level:        ps.Level,
			Distance:     ps.LastDistance,
			Acknowledged: ps.Acknowledged,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].OtherID < out[j].OtherID
	})
	return out
}

// Thresholds returns the watch's thresholds.
func (w *Watch) Thresholds() Thresholds {
	return w.th
}
