package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/sentinel/internal/db"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

type RegistryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRegistryStore(db *sql.DB, writer *dbpkg.Worker) *RegistryStore {
	return &RegistryStore{db: db, writer: writer}
}

func (s *RegistryStore) IdentityByPlate(ctx context.Context, plate string) (store.IdentityRecord, error) {
	return s.identityWhere(ctx, `
SELECT i.identity_id FROM identity_plates p
JOIN identities i ON i.identity_id = p.identity_id
WHERE p.plate_norm = ? AND p.active = 1;`, types.NormalizePlate(plate))
}

func (s *RegistryStore) IdentityByFaceLabel(ctx context.Context, label string) (store.IdentityRecord, error) {
	return s.identityWhere(ctx, `
SELECT identity_id FROM identity_face_labels WHERE label = ?;`, types.NormalizeFaceLabel(label))
}

func (s *RegistryStore) IdentityByID(ctx context.Context, identityID string) (store.IdentityRecord, error) {
	return s.identityWhere(ctx, `
SELECT identity_id FROM identities WHERE identity_id = ?;`, identityID)
}

func (s *RegistryStore) identityWhere(ctx context.Context, query, key string) (store.IdentityRecord, error) {
	if key == "" {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	var id string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.IdentityRecord{}, fmt.Errorf("lookup identity: %w", err)
	}
	return s.load(ctx, id)
}

func (s *RegistryStore) load(ctx context.Context, id string) (store.IdentityRecord, error) {
	var (
		rec    store.IdentityRecord
		email  sql.NullString
		active int
	)
	err := s.db.QueryRowContext(ctx, `
SELECT identity_id, display_name, email, active FROM identities WHERE identity_id = ?;`, id,
	).Scan(&rec.IdentityID, &rec.DisplayName, &email, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.IdentityRecord{}, fmt.Errorf("load identity %s: %w", id, err)
	}
	rec.Email = email.String
	rec.Active = active == 1

	if rec.Plates, err = s.linkValues(ctx, `
SELECT plate_norm FROM identity_plates WHERE identity_id = ? AND active = 1 ORDER BY plate_norm;`, id); err != nil {
		return store.IdentityRecord{}, err
	}
	if rec.FaceLabels, err = s.linkValues(ctx, `
SELECT label FROM identity_face_labels WHERE identity_id = ? ORDER BY label;`, id); err != nil {
		return store.IdentityRecord{}, err
	}
	return rec, nil
}

func (s *RegistryStore) linkValues(ctx context.Context, query, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query links %s: %w", id, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *RegistryStore) ListIdentities(ctx context.Context) ([]store.IdentityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity_id FROM identities ORDER BY identity_id;`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Loaded after the cursor is closed: the pool has one connection.
	out := make([]store.IdentityRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpsertIdentity writes the identity row and replaces its plate and
// face-label links. Links owned by another identity are reassigned.
func (s *RegistryStore) UpsertIdentity(ctx context.Context, rec store.IdentityRecord) error {
	nowMs := time.Now().UTC().UnixMilli()
	var active int
	if rec.Active {
		active = 1
	}
	var email any
	if rec.Email != "" {
		email = rec.Email
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO identities(identity_id, display_name, email, active, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(identity_id) DO UPDATE SET
  display_name = excluded.display_name,
  email = excluded.email,
  active = excluded.active,
  updated_at_ms = excluded.updated_at_ms;
`, rec.IdentityID, rec.DisplayName, email, active, nowMs, nowMs); err != nil {
			return fmt.Errorf("UpsertIdentity %s: %w", rec.IdentityID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM identity_plates WHERE identity_id = ?;`, rec.IdentityID); err != nil {
			return fmt.Errorf("UpsertIdentity clear plates: %w", err)
		}
		for _, p := range rec.Plates {
			p = types.NormalizePlate(p)
			if p == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO identity_plates(plate_norm, identity_id, active, created_at_ms)
VALUES (?, ?, 1, ?)
ON CONFLICT(plate_norm) DO UPDATE SET identity_id = excluded.identity_id, active = 1;
`, p, rec.IdentityID, nowMs); err != nil {
				return fmt.Errorf("UpsertIdentity plate %s: %w", p, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM identity_face_labels WHERE identity_id = ?;`, rec.IdentityID); err != nil {
			return fmt.Errorf("UpsertIdentity clear labels: %w", err)
		}
		for _, l := range rec.FaceLabels {
			l = types.NormalizeFaceLabel(l)
			if l == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO identity_face_labels(label, identity_id, created_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(label) DO UPDATE SET identity_id = excluded.identity_id;
`, l, rec.IdentityID, nowMs); err != nil {
				return fmt.Errorf("UpsertIdentity label %s: %w", l, err)
			}
		}
		return nil
	})
}
