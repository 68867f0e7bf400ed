package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	sqlitestore "github.com/BrandonDHaskell/sentinel/internal/sentinel/store/sqlite"
)

func newTestRegistry(t *testing.T) *sqlitestore.RegistryStore {
	t.Helper()
	conn := openTestDB(t)
	return sqlitestore.NewRegistryStore(conn, newTestWriter(t, conn))
}

// ═══════════════════════════════════════════════════════════════════════════
// UpsertIdentity + lookups
// ═══════════════════════════════════════════════════════════════════════════

func TestRegistryStore_LookupByPlate_Normalised(t *testing.T) {
	rs := newTestRegistry(t)
	ctx := context.Background()

	err := rs.UpsertIdentity(ctx, store.IdentityRecord{
		IdentityID:  "S1001",
		DisplayName: "Asha Rao",
		Active:      true,
		Plates:      []string{"mh-12 ab 1234"},
		FaceLabels:  []string{"Asha"},
	})
	if err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}

	rec, err := rs.IdentityByPlate(ctx, "MH12AB1234")
	if err != nil {
		t.Fatalf("IdentityByPlate: %v", err)
	}
	if rec.IdentityID != "S1001" || rec.DisplayName != "Asha Rao" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if len(rec.Plates) != 1 || rec.Plates[0] != "MH12AB1234" {
		t.Errorf("expected normalised plate, got %v", rec.Plates)
	}

	rec, err = rs.IdentityByFaceLabel(ctx, "ASHA ")
	if err != nil {
		t.Fatalf("IdentityByFaceLabel: %v", err)
	}
	if rec.IdentityID != "S1001" {
		t.Errorf("expected S1001, got %q", rec.IdentityID)
	}
}

func TestRegistryStore_NotFound(t *testing.T) {
	rs := newTestRegistry(t)
	ctx := context.Background()

	if _, err := rs.IdentityByPlate(ctx, "XX99ZZ0001"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("plate: expected ErrNotFound, got %v", err)
	}
	if _, err := rs.IdentityByFaceLabel(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("label: expected ErrNotFound, got %v", err)
	}
	if _, err := rs.IdentityByID(ctx, ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("empty id: expected ErrNotFound, got %v", err)
	}
}

func TestRegistryStore_InactiveStillReturned(t *testing.T) {
	rs := newTestRegistry(t)
	ctx := context.Background()

	if err := rs.UpsertIdentity(ctx, store.IdentityRecord{
		IdentityID: "S2", DisplayName: "Gone", Active: false, Plates: []string{"KA01XY0002"},
	}); err != nil {
		t.Fatalf("UpsertIdentity: %v", err)
	}
	rec, err := rs.IdentityByID(ctx, "S2")
	if err != nil {
		t.Fatalf("IdentityByID: %v", err)
	}
	if rec.Active {
		t.Error("expected inactive record")
	}
}

func TestRegistryStore_UpsertReplacesLinks(t *testing.T) {
	rs := newTestRegistry(t)
	ctx := context.Background()

	rec := store.IdentityRecord{IdentityID: "S1", DisplayName: "One", Active: true, Plates: []string{"AAA111"}}
	if err := rs.UpsertIdentity(ctx, rec); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec.Plates = []string{"BBB222"}
	rec.DisplayName = "One Renamed"
	if err := rs.UpsertIdentity(ctx, rec); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if _, err := rs.IdentityByPlate(ctx, "AAA111"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected old plate to be unlinked, got %v", err)
	}
	got, err := rs.IdentityByPlate(ctx, "BBB222")
	if err != nil {
		t.Fatalf("IdentityByPlate: %v", err)
	}
	if got.DisplayName != "One Renamed" {
		t.Errorf("expected renamed identity, got %q", got.DisplayName)
	}
}

func TestRegistryStore_PlateMovesBetweenIdentities(t *testing.T) {
	rs := newTestRegistry(t)
	ctx := context.Background()

	for _, rec := range []store.IdentityRecord{
		{IdentityID: "S1", DisplayName: "One", Active: true, Plates: []string{"SHARED1"}},
		{IdentityID: "S2", DisplayName: "Two", Active: true, Plates: []string{"SHARED1"}},
	} {
		if err := rs.UpsertIdentity(ctx, rec); err != nil {
			t.Fatalf("upsert %s: %v", rec.IdentityID, err)
		}
	}

	got, err := rs.IdentityByPlate(ctx, "SHARED1")
	if err != nil {
		t.Fatalf("IdentityByPlate: %v", err)
	}
	if got.IdentityID != "S2" {
		t.Errorf("expected plate to belong to S2, got %q", got.IdentityID)
	}
}

func TestRegistryStore_ListIdentities(t *testing.T) {
	rs := newTestRegistry(t)
	ctx := context.Background()

	for _, id := range []string{"B", "A", "C"} {
		if err := rs.UpsertIdentity(ctx, store.IdentityRecord{IdentityID: id, DisplayName: id, Active: true}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	list, err := rs.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("ListIdentities: %v", err)
	}
	if len(list) != 3 || list[0].IdentityID != "A" || list[2].IdentityID != "C" {
		t.Errorf("expected sorted A,B,C, got %+v", list)
	}
}
