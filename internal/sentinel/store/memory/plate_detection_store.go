package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
)

type PlateDetectionStore struct {
	mu   sync.Mutex
	recs []store.PlateDetectionRecord
}

func NewPlateDetectionStore() *PlateDetectionStore {
	return &PlateDetectionStore{}
}

func (s *PlateDetectionStore) RecordDetection(_ context.Context, rec store.PlateDetectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.DetectedAt.IsZero() {
		rec.DetectedAt = time.Now().UTC()
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *PlateDetectionStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.recs[:0]
	var deleted int64
	for _, rec := range s.recs {
		if rec.DetectedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.recs = kept
	return deleted, nil
}

// Detections returns a copy of the stored records. Test-only helper.
func (s *PlateDetectionStore) Detections() []store.PlateDetectionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.PlateDetectionRecord, len(s.recs))
	copy(out, s.recs)
	return out
}
