package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// RegistryStore is an in-memory identity registry for tests and dev runs.
type RegistryStore struct {
	mu         sync.RWMutex
	identities map[string]store.IdentityRecord
	plates     map[string]string // normalised plate -> identity id
	faceLabels map[string]string // label -> identity id
}

func NewRegistryStore(seed ...store.IdentityRecord) *RegistryStore {
	s := &RegistryStore{
		identities: make(map[string]store.IdentityRecord),
		plates:     make(map[string]string),
		faceLabels: make(map[string]string),
	}
	for _, rec := range seed {
		_ = s.UpsertIdentity(context.Background(), rec)
	}
	return s
}

func (s *RegistryStore) IdentityByPlate(_ context.Context, plate string) (store.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.plates, types.NormalizePlate(plate))
}

func (s *RegistryStore) IdentityByFaceLabel(_ context.Context, label string) (store.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.faceLabels, types.NormalizeFaceLabel(label))
}

func (s *RegistryStore) IdentityByID(_ context.Context, identityID string) (store.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.identities[identityID]
	if !ok {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *RegistryStore) ListIdentities(_ context.Context) ([]store.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.IdentityRecord, 0, len(s.identities))
	for _, rec := range s.identities {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

// UpsertIdentity replaces the identity and its plate and face-label links.
// A plate or label already linked to another identity is moved.
func (s *RegistryStore) UpsertIdentity(_ context.Context, rec store.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for p, id := range s.plates {
		if id == rec.IdentityID {
			delete(s.plates, p)
		}
	}
	for l, id := range s.faceLabels {
		if id == rec.IdentityID {
			delete(s.faceLabels, l)
		}
	}

	plates := make([]string, 0, len(rec.Plates))
	for _, p := range rec.Plates {
		p = types.NormalizePlate(p)
		if p == "" {
			continue
		}
		if prev, ok := s.plates[p]; ok && prev != rec.IdentityID {
			s.unlink(prev, p, "")
		}
		s.plates[p] = rec.IdentityID
		plates = append(plates, p)
	}
	labels := make([]string, 0, len(rec.FaceLabels))
	for _, l := range rec.FaceLabels {
		l = types.NormalizeFaceLabel(l)
		if l == "" {
			continue
		}
		if prev, ok := s.faceLabels[l]; ok && prev != rec.IdentityID {
			s.unlink(prev, "", l)
		}
		s.faceLabels[l] = rec.IdentityID
		labels = append(labels, l)
	}
	rec.Plates, rec.FaceLabels = plates, labels
	s.identities[rec.IdentityID] = rec
	return nil
}

func (s *RegistryStore) lookup(index map[string]string, key string) (store.IdentityRecord, error) {
	id, ok := index[key]
	if !ok || key == "" {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	rec, ok := s.identities[id]
	if !ok {
		return store.IdentityRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// unlink drops a moved plate or label from its previous owner's record.
func (s *RegistryStore) unlink(identityID, plate, label string) {
	rec, ok := s.identities[identityID]
	if !ok {
		return
	}
	rec.Plates = without(rec.Plates, plate)
	rec.FaceLabels = without(rec.FaceLabels, label)
	s.identities[identityID] = rec
}

func without(list []string, v string) []string {
	if v == "" {
		return list
	}
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
