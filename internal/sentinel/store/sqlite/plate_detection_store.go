package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/sentinel/internal/db"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
)

type PlateDetectionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPlateDetectionStore(db *sql.DB, writer *dbpkg.Worker) *PlateDetectionStore {
	return &PlateDetectionStore{db: db, writer: writer}
}

func (s *PlateDetectionStore) RecordDetection(ctx context.Context, rec store.PlateDetectionRecord) error {
	if rec.DetectedAt.IsZero() {
		rec.DetectedAt = time.Now().UTC()
	}
	var eligible int
	if rec.Eligible {
		eligible = 1
	}
	var frameSeq any
	if rec.FrameSeq != 0 {
		frameSeq = int64(rec.FrameSeq)
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO plate_detections(detected_at_ms, plate_number, confidence, eligible, frame_seq)
VALUES (?, ?, ?, ?, ?);
`, rec.DetectedAt.UTC().UnixMilli(), rec.PlateNumber, rec.Confidence, eligible, frameSeq); err != nil {
			return fmt.Errorf("RecordDetection insert: %w", err)
		}
		return nil
	})
}

// PruneOlderThan deletes detections recorded before cutoff.
func (s *PlateDetectionStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM plate_detections WHERE detected_at_ms < ?;`,
			cutoff.UTC().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
