package service

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
	StatsWindow        = 24 * time.Hour
)

// QueryService serves read-only views of the access log and registry.
type QueryService struct {
	log      store.AccessLogStore
	registry *Registry
	now      func() time.Time
}

func NewQueryService(log store.AccessLogStore, reg *Registry) *QueryService {
	return &QueryService{log: log, registry: reg, now: time.Now}
}

// Recent returns up to limit decisions, newest first. limit is clamped to
// [1, MaxRecentLimit]; non-positive values use DefaultRecentLimit.
func (q *QueryService) Recent(ctx context.Context, limit int) ([]types.AccessDecision, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	out, err := q.log.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.AccessDecision{}
	}
	return out, nil
}

// Stats aggregates the last StatsWindow of decisions.
func (q *QueryService) Stats(ctx context.Context) (types.DetectionStats, error) {
	return q.log.Stats(ctx, q.now().UTC().Add(-StatsWindow))
}

func (q *QueryService) Identities(ctx context.Context) ([]types.Identity, error) {
	return q.registry.ActiveIdentities(ctx)
}
