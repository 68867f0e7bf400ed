package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a demo identity so a fresh dev database can grant
// something. Existing rows are left alone.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identities(identity_id, display_name, email, active, created_at_ms, updated_at_ms)
VALUES ('DEV-0001', 'Dev Resident', 'dev@example.invalid', 1, ?, ?);`, now, now); err != nil {
		return fmt.Errorf("seed identities: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identity_plates(plate_norm, identity_id, active, created_at_ms)
VALUES ('MH12AB1234', 'DEV-0001', 1, ?);`, now); err != nil {
		return fmt.Errorf("seed identity_plates: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identity_face_labels(label, identity_id, created_at_ms)
VALUES ('dev', 'DEV-0001', ?);`, now); err != nil {
		return fmt.Errorf("seed identity_face_labels: %w", err)
	}

	return nil
}
