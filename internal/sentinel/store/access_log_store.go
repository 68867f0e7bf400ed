package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// AccessLogStore persists access decisions as an append-only log.
type AccessLogStore interface {
	// Append stores d and returns its assigned id.
	Append(ctx context.Context, d types.AccessDecision) (int64, error)
	// Recent returns up to limit decisions, newest first.
	Recent(ctx context.Context, limit int) ([]types.AccessDecision, error)
	// Stats aggregates decisions made at or after since.
	Stats(ctx context.Context, since time.Time) (types.DetectionStats, error)
}
