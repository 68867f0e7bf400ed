package service

import (
	"context"
	"errors"
	"strings"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// Registry resolves detected values to active identities. Every call goes
// to the store so registry edits are visible to the next lookup.
type Registry struct {
	store      store.RegistryStore
	faceLabels map[string]struct{}
}

// NewRegistry builds a registry whose face lookups are limited to
// faceLabels, the labels the face classifiers were trained on. Any other
// label never resolves.
func NewRegistry(st store.RegistryStore, faceLabels []string) *Registry {
	set := make(map[string]struct{}, len(faceLabels))
	for _, l := range faceLabels {
		if l = types.NormalizeFaceLabel(l); l != "" {
			set[l] = struct{}{}
		}
	}
	return &Registry{store: st, faceLabels: set}
}

// ResolveByPlate returns the active identity authorised for plate.
// ok is false when nothing matches or the identity is inactive.
func (r *Registry) ResolveByPlate(ctx context.Context, plate string) (types.Identity, bool, error) {
	plate = types.NormalizePlate(plate)
	if plate == "" {
		return types.Identity{}, false, nil
	}
	return r.active(r.store.IdentityByPlate(ctx, plate))
}

func (r *Registry) ResolveByFaceLabel(ctx context.Context, label string) (types.Identity, bool, error) {
	label = types.NormalizeFaceLabel(label)
	if _, known := r.faceLabels[label]; !known {
		return types.Identity{}, false, nil
	}
	return r.active(r.store.IdentityByFaceLabel(ctx, label))
}

// ResolveByCode looks an externally scanned code up as an identity id.
func (r *Registry) ResolveByCode(ctx context.Context, code string) (types.Identity, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return types.Identity{}, false, nil
	}
	return r.active(r.store.IdentityByID(ctx, code))
}

// Resolve dispatches on channel.
func (r *Registry) Resolve(ctx context.Context, ch types.Channel, value string) (types.Identity, bool, error) {
	switch ch {
	case types.ChannelPlate:
		return r.ResolveByPlate(ctx, value)
	case types.ChannelFace:
		return r.ResolveByFaceLabel(ctx, value)
	case types.ChannelScan:
		return r.ResolveByCode(ctx, value)
	}
	return types.Identity{}, false, nil
}

// ActiveIdentities lists active identities.
func (r *Registry) ActiveIdentities(ctx context.Context) ([]types.Identity, error) {
	recs, err := r.store.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Identity, 0, len(recs))
	for _, rec := range recs {
		if rec.Active {
			out = append(out, toIdentity(rec))
		}
	}
	return out, nil
}

func (r *Registry) active(rec store.IdentityRecord, err error) (types.Identity, bool, error) {
	if errors.Is(err, store.ErrNotFound) {
		return types.Identity{}, false, nil
	}
	if err != nil {
		return types.Identity{}, false, err
	}
	if !rec.Active {
		return types.Identity{}, false, nil
	}
	return toIdentity(rec), true, nil
}

func toIdentity(rec store.IdentityRecord) types.Identity {
	return types.Identity{
		IdentityID:           rec.IdentityID,
		DisplayName:          rec.DisplayName,
		Email:                rec.Email,
		AuthorizedPlates:     rec.Plates,
		AuthorizedFaceLabels: rec.FaceLabels,
		Active:               rec.Active,
	}
}
