// Package fleet keeps the latest reported position of every vessel.
package fleet

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yeonjoon13/Vessel-Traffic-Monitor/internal/model"
)

// Store is a latest-position cache keyed by vessel id. It implements
// scheduler.PositionSource for feeds that push positions (kafka).
type Store struct {
	mu        sync.RWMutex
	positions map[string]model.Position
	now       func() time.Time
	logger    *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		positions: make(map[string]model.Position),
		now:       time.Now,
		logger:    logger,
	}
}

// Update records p unless the store already holds a newer report for the
// same vessel.
func (s *Store) Update(p model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.positions[p.ID]; ok && cur.Timestamp.After(p.Timestamp) {
		return
	}
	s.positions[p.ID] = p
}

// Positions returns a copy of the cache ordered by vessel id.
func (s *Store) Positions(_ context.Context) ([]model.Position, error) {
	s.mu.RLock()
	out := make([]model.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of cached vessels.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// Prune drops vessels whose last report is older than maxAge and returns
// how many were removed.
func (s *Store) Prune(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	removed := 0
	s.mu.Lock()
	for id, p := range s.positions {
		if p.Timestamp.Before(cutoff) {
			delete(s.positions, id)
			removed++
		}
	}
	s.mu.Unlock()
	return removed
}

// RunCleanup prunes stale vessels every interval until ctx is done.
func (s *Store) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Prune(maxAge); removed > 0 {
				s.logger.Info("pruned stale vessels",
					zap.Int("removed", removed),
					zap.Int("cached", s.Len()))
			}
		}
	}
}
