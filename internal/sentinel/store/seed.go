package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Identities []seedIdentity `yaml:"identities"`
}

type seedIdentity struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Email      string   `yaml:"email"`
	Active     *bool    `yaml:"active"`
	Plates     []string `yaml:"plates"`
	FaceLabels []string `yaml:"face_labels"`
}

// ParseSeed decodes a YAML registry seed. Identities default to active.
func ParseSeed(data []byte) ([]IdentityRecord, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Identities))
	out := make([]IdentityRecord, 0, len(f.Identities))
	for i, si := range f.Identities {
		id := strings.TrimSpace(si.ID)
		if id == "" {
			return nil, fmt.Errorf("seed identity %d: id is required", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed identity %s: duplicate id", id)
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(si.Name)
		if name == "" {
			name = id
		}
		active := true
		if si.Active != nil {
			active = *si.Active
		}
		out = append(out, IdentityRecord{
			IdentityID:  id,
			DisplayName: name,
			Email:       strings.TrimSpace(si.Email),
			Active:      active,
			Plates:      si.Plates,
			FaceLabels:  si.FaceLabels,
		})
	}
	return out, nil
}

// LoadSeed reads and parses a registry seed file.
func LoadSeed(path string) ([]IdentityRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ApplySeed upserts every record, continuing past failures.
func ApplySeed(ctx context.Context, st RegistryStore, recs []IdentityRecord) error {
	var errs []error
	for _, rec := range recs {
		if err := st.UpsertIdentity(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s: %w", rec.IdentityID, err))
		}
	}
	return errors.Join(errs...)
}
