package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// AccessLogStore is an in-memory append-only log of access decisions.
// It is intended for use in tests and dev environments.
type AccessLogStore struct {
	mu     sync.Mutex
	nextID int64
	events []types.AccessDecision
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Append(_ context.Context, d types.AccessDecision) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	s.nextID++
	d.ID = s.nextID
	s.events = append(s.events, d)
	return d.ID, nil
}

func (s *AccessLogStore) Recent(_ context.Context, limit int) ([]types.AccessDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]types.AccessDecision, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *AccessLogStore) Stats(_ context.Context, since time.Time) (types.DetectionStats, error) {
	return store.Tally(since, s.Events()), nil
}

// Events returns a copy of all recorded decisions in append order.
func (s *AccessLogStore) Events() []types.AccessDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessDecision, len(s.events))
	copy(out, s.events)
	return out
}
