package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// IdentityRecord is the persisted form of a registry entry. Plates are kept
// in normalised form; face labels in lower case.
type IdentityRecord struct {
	IdentityID  string
	DisplayName string
	Email       string
	Active      bool
	Plates      []string
	FaceLabels  []string
}

// RegistryStore is the read path of the identity registry plus the upsert
// used by seeding. Lookups return ErrNotFound when nothing matches; inactive
// identities are still returned so callers can decide.
type RegistryStore interface {
	IdentityByPlate(ctx context.Context, plate string) (IdentityRecord, error)
	IdentityByFaceLabel(ctx context.Context, label string) (IdentityRecord, error)
	IdentityByID(ctx context.Context, identityID string) (IdentityRecord, error)
	ListIdentities(ctx context.Context) ([]IdentityRecord, error)
	UpsertIdentity(ctx context.Context, rec IdentityRecord) error
}
