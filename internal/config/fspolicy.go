package config

import (
	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
)

func applyFsPolicyPatch(base domain.FsPolicy, patch map[string]any) (domain.FsPolicy, error) {
	for key := range patch {
		if _, ok := knownFsPolicyFields[key]; !ok {
			return domain.FsPolicy{}, apperr.UnknownField("fs_policy", key)
		}
	}

	out := base

	if raw, ok := patch["library_root"]; ok {
		root, isStr := raw.(string)
		if !isStr || root == "" {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "library_root", "must be a non-empty string")
		}
		out.LibraryRoot = root
	}
	if raw, ok := patch["extract"]; ok {
		b, isBool := raw.(bool)
		if !isBool {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "extract", "must be a bool")
		}
		out.Extract = b
	}
	if raw, ok := patch["par2"]; ok {
		b, isBool := raw.(bool)
		if !isBool {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "par2", "must be a bool")
		}
		out.Par2 = b
	}
	if raw, ok := patch["flatten"]; ok {
		b, isBool := raw.(bool)
		if !isBool {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "flatten", "must be a bool")
		}
		out.Flatten = b
	}
	if raw, ok := patch["move_mode"]; ok {
		mode, isStr := raw.(string)
		if !isStr || (domain.MoveMode(mode) != domain.MoveModeCopy && domain.MoveMode(mode) != domain.MoveModeRename) {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "move_mode", "must be copy or rename")
		}
		out.MoveMode = domain.MoveMode(mode)
	}
	if raw, ok := patch["cleanup_keep"]; ok {
		out.CleanupKeep = asStringSlice(raw)
	}
	if raw, ok := patch["cleanup_drop"]; ok {
		out.CleanupDrop = asStringSlice(raw)
	}
	if raw, ok := patch["chmod_file"]; ok {
		v, isInt := asInt(raw)
		if !isInt || v < 0 {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "chmod_file", "must be a non-negative integer")
		}
		mode := uint32(v)
		out.ChmodFile = &mode
	}
	if raw, ok := patch["chmod_dir"]; ok {
		v, isInt := asInt(raw)
		if !isInt || v < 0 {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "chmod_dir", "must be a non-negative integer")
		}
		mode := uint32(v)
		out.ChmodDir = &mode
	}
	if raw, ok := patch["owner"]; ok {
		owner, _ := raw.(string)
		out.Owner = &owner
	}
	if raw, ok := patch["group"]; ok {
		group, _ := raw.(string)
		out.Group = &group
	}
	if raw, ok := patch["umask"]; ok {
		v, isInt := asInt(raw)
		if !isInt || v < 0 {
			return domain.FsPolicy{}, apperr.InvalidField("fs_policy", "umask", "must be a non-negative integer")
		}
		mask := uint32(v)
		out.Umask = &mask
	}
	if raw, ok := patch["allow_paths"]; ok {
		out.AllowPaths = asStringSlice(raw)
	}

	return out, nil
}
