package store

import (
	"context"
	"time"
)

// PlateDetectionRecord is a raw plate read, kept for audit whether or not
// it produced a decision.
type PlateDetectionRecord struct {
	DetectedAt  time.Time
	PlateNumber string
	Confidence  float64
	Eligible    bool
	FrameSeq    uint64
}

type PlateDetectionStore interface {
	RecordDetection(ctx context.Context, rec PlateDetectionRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
