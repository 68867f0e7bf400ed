package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/sentinel/internal/db"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Append(ctx context.Context, d types.AccessDecision) (int64, error) {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}

	var confidence any
	if d.Confidence != nil {
		confidence = *d.Confidence
	}
	var frameSeq any
	if d.FrameSeq != 0 {
		frameSeq = int64(d.FrameSeq)
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  decided_at_ms, channel, detected_value, identity_id, identity_name,
  status, confidence, frame_seq, trace_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			d.Timestamp.UTC().UnixMilli(), string(d.Channel), d.DetectedValue,
			nullString(d.IdentityID), nullString(d.IdentityName),
			string(d.Status), confidence, frameSeq, nullString(d.TraceID),
		)
		if err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *AccessLogStore) Recent(ctx context.Context, limit int) ([]types.AccessDecision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, decided_at_ms, channel, detected_value, identity_id, identity_name,
       status, confidence, frame_seq, trace_id
FROM access_events
ORDER BY decided_at_ms DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("Recent query: %w", err)
	}
	defer rows.Close()

	var out []types.AccessDecision
	for rows.Next() {
		var (
			d          types.AccessDecision
			decidedMs  int64
			channel    string
			status     string
			identityID sql.NullString
			name       sql.NullString
			confidence sql.NullFloat64
			frameSeq   sql.NullInt64
			traceID    sql.NullString
		)
		if err := rows.Scan(&d.ID, &decidedMs, &channel, &d.DetectedValue, &identityID, &name,
			&status, &confidence, &frameSeq, &traceID); err != nil {
			return nil, fmt.Errorf("Recent scan: %w", err)
		}
		d.Timestamp = time.UnixMilli(decidedMs).UTC()
		d.Channel = types.Channel(channel)
		d.Status = types.Status(status)
		d.IdentityID = identityID.String
		d.IdentityName = name.String
		d.TraceID = traceID.String
		if confidence.Valid {
			c := confidence.Float64
			d.Confidence = &c
		}
		if frameSeq.Valid {
			d.FrameSeq = uint64(frameSeq.Int64)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *AccessLogStore) Stats(ctx context.Context, since time.Time) (types.DetectionStats, error) {
	sinceMs := since.UTC().UnixMilli()
	out := types.DetectionStats{
		Since:     since.UTC().Format(time.RFC3339),
		ByChannel: make(map[types.Channel]int),
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT channel, status, COUNT(*) FROM access_events
WHERE decided_at_ms >= ?
GROUP BY channel, status;`, sinceMs)
	if err != nil {
		return out, fmt.Errorf("Stats totals: %w", err)
	}
	for rows.Next() {
		var (
			channel, status string
			n               int
		)
		if err := rows.Scan(&channel, &status, &n); err != nil {
			rows.Close()
			return out, fmt.Errorf("Stats scan: %w", err)
		}
		out.Total += n
		out.ByChannel[types.Channel(channel)] += n
		if types.Status(status) == types.StatusGranted {
			out.Granted += n
		} else {
			out.Denied += n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return out, err
	}

	hours, err := s.db.QueryContext(ctx, `
SELECT CAST(strftime('%H', decided_at_ms / 1000, 'unixepoch') AS INTEGER) AS hour, COUNT(*)
FROM access_events
WHERE decided_at_ms >= ?
GROUP BY hour
ORDER BY hour;`, sinceMs)
	if err != nil {
		return out, fmt.Errorf("Stats hourly: %w", err)
	}
	defer hours.Close()
	for hours.Next() {
		var hc types.HourlyCount
		if err := hours.Scan(&hc.Hour, &hc.Count); err != nil {
			return out, fmt.Errorf("Stats hourly scan: %w", err)
		}
		out.Hourly = append(out.Hourly, hc)
	}
	return out, hours.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
