// Package scheduler drives the refresh cycle: acquire a position snapshot,
// cluster it, run the proximity watch and publish the result.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/cluster"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/collision"
	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

const defaultPublishTimeout = 5 * time.Second

// PositionSource returns the current set of vessel positions.
type PositionSource interface {
	Positions(ctx context.Context) ([]model.Position, error)
}

// SessionMode is implemented by sources that know whether a live or
// simulated session is in progress. Active sessions poll faster.
type SessionMode interface {
	Active() bool
}

// Subscriber receives each published snapshot.
type Subscriber interface {
	Publish(ctx context.Context, snap model.Snapshot) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, snap model.Snapshot) error

func (f SubscriberFunc) Publish(ctx context.Context, snap model.Snapshot) error {
	return f(ctx, snap)
}

type Config struct {
	Interval       time.Duration
	ActiveInterval time.Duration
	AcquireTimeout time.Duration
	// PublishTimeout bounds each cycle's delivery to subscribers.
	PublishTimeout time.Duration
	Cluster        cluster.Options
}

// Scheduler runs non-overlapping refresh cycles on a single goroutine.
type Scheduler struct {
	source PositionSource
	watch  *collision.Watch
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	subsMu sync.RWMutex
	subs   []Subscriber

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	cycleMu sync.Mutex
	seq     uint64

	latestMu  sync.RWMutex
	latest    model.Snapshot
	hasLatest bool
}

func New(source PositionSource, watch *collision.Watch, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		source: source,
		watch:  watch,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers sub for every subsequent snapshot.
func (s *Scheduler) Subscribe(sub Subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, sub)
}

// Start launches the refresh loop. The first cycle runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return ErrAlreadyRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info("starting refresh loop",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("active_interval", s.cfg.ActiveInterval))
	go s.loop(ctx, done)
	return nil
}

// Stop cancels any in-flight cycle and waits for the loop to exit. It is
// safe to call when not running, and Start may be called again afterwards.
func (s *Scheduler) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("stopped refresh loop")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("refresh cycle skipped", zap.Error(err))
		}
		// armed only after the cycle finishes, so a slow cycle delays
		// the next one instead of overlapping it
		timer.Reset(s.interval())
	}
}

func (s *Scheduler) publishTimeout() time.Duration {
	if s.cfg.PublishTimeout > 0 {
		return s.cfg.PublishTimeout
	}
	return defaultPublishTimeout
}

func (s *Scheduler) interval() time.Duration {
	if m, ok := s.source.(SessionMode); ok && m.Active() && s.cfg.ActiveInterval > 0 {
		return s.cfg.ActiveInterval
	}
	return s.cfg.Interval
}

// RunOnce executes a single cycle. On acquisition failure the previous
// snapshot is kept and nothing is published.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	acqCtx := ctx
	if s.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.cfg.AcquireTimeout)
		defer cancel()
	}
	positions, err := s.source.Positions(acqCtx)
	if err != nil {
		return fmt.Errorf("acquire positions: %w", err)
	}
	// last point at which a cancelled cycle is abandoned
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()
	res := s.watch.Step(positions, now)
	if res.Alerts == nil {
		res.Alerts = []model.Alert{}
	}

	s.seq++
	snap := model.Snapshot{
		Sequence:  s.seq,
		TakenAt:   now,
		HomeID:    res.Home,
		Positions: positions,
		Clusters:  cluster.Build(positions, s.cfg.Cluster),
		Alerts:    res.Alerts,
		Active:    res.Active,
	}

	s.latestMu.Lock()
	s.latest, s.hasLatest = snap, true
	s.latestMu.Unlock()

	s.subsMu.RLock()
	subs := append([]Subscriber(nil), s.subs...)
	s.subsMu.RUnlock()

	// Step has already marked these alerts notified, so every subscriber
	// must see them even if the loop is stopped mid-publish.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout())
	defer cancel()
	for _, sub := range subs {
		if err := sub.Publish(pubCtx, snap); err != nil {
			s.logger.Warn("subscriber publish failed",
				zap.String("subscriber", subscriberName(sub)),
				zap.Uint64("sequence", snap.Sequence),
				zap.Error(err))
		}
	}

	s.logger.Debug("refresh cycle complete",
		zap.Uint64("sequence", snap.Sequence),
		zap.Int("positions", len(positions)),
		zap.Int("clusters", len(snap.Clusters)),
		zap.Int("alerts", len(snap.Alerts)))
	return nil
}

// Latest returns the last successfully computed snapshot.
func (s *Scheduler) Latest() (model.Snapshot, bool) {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest, s.hasLatest
}

// SelectHome changes the home vessel; all pair state is discarded when the
// selection changes.
func (s *Scheduler) SelectHome(id string) bool {
	return s.watch.SetHome(id)
}

// Acknowledge records an operator acknowledgement for the pair between the
// home vessel and otherID.
func (s *Scheduler) Acknowledge(otherID string) bool {
	return s.watch.Acknowledge(otherID)
}

// Active returns the current non-cleared pairs for the home vessel,
// reflecting selections and acknowledgements made since the last cycle.
func (s *Scheduler) Active() []model.ActivePair {
	return s.watch.Active()
}

// Home returns the selected home vessel.
func (s *Scheduler) Home() string {
	return s.watch.Home()
}

func subscriberName(sub Subscriber) string {
	if n, ok := sub.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", sub)
}
