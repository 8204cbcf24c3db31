package config

import (
	"strings"

	"torrentstream/internal/apperr"
)

// checkImmutable rejects the changeset if any patched field is locked by
// an entry in immutableKeys. An entry of "section.*" locks every field in
// that section; "section.field" locks just that field.
func checkImmutable(immutableKeys []string, changeset Changeset) error {
	locked := make(map[string]struct{}, len(immutableKeys))
	lockedSections := make(map[string]struct{})
	for _, key := range immutableKeys {
		section, field, found := strings.Cut(key, ".")
		if !found {
			continue
		}
		if field == "*" {
			lockedSections[section] = struct{}{}
			continue
		}
		locked[section+"."+field] = struct{}{}
	}

	sections := map[string]map[string]any{
		"app_profile":    changeset.AppProfile,
		"engine_profile": changeset.EngineProfile,
		"fs_policy":      changeset.FsPolicy,
	}

	for section, fields := range sections {
		if _, wholeLocked := lockedSections[section]; wholeLocked && len(fields) > 0 {
			for field := range fields {
				return apperr.ImmutableField(section, field)
			}
		}
		for field := range fields {
			if _, ok := locked[section+"."+field]; ok {
				return apperr.ImmutableField(section, field)
			}
		}
	}

	return nil
}
