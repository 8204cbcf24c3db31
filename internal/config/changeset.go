package config

// Changeset is the input to ConfigService.ApplyChangeset. Each populated
// section is validated and applied atomically; an empty changeset (no
// sections set) is a no-op that leaves the revision unchanged.
//
// Sections are raw field maps rather than typed structs so the service can
// distinguish "field absent" from "field explicitly set to its zero
// value" and can detect genuinely unknown keys — the same shape the
// engine-profile normalizer already consumes.
type Changeset struct {
	AppProfile    map[string]any
	EngineProfile map[string]any
	FsPolicy      map[string]any
}

func (c Changeset) isEmpty() bool {
	return len(c.AppProfile) == 0 && len(c.EngineProfile) == 0 && len(c.FsPolicy) == 0
}

// knownAppProfileFields and knownFsPolicyFields back the UnknownField
// check for those two sections; engine_profile's normalizer already
// rejects unrecognized nested keys field-by-field.
var knownAppProfileFields = map[string]struct{}{
	"instance_name":  {},
	"mode":           {},
	"http_port":      {},
	"bind_addr":      {},
	"telemetry":      {},
	"features":       {},
	"immutable_keys": {},
}

var knownFsPolicyFields = map[string]struct{}{
	"library_root": {},
	"extract":      {},
	"par2":         {},
	"flatten":      {},
	"move_mode":    {},
	"cleanup_keep": {},
	"cleanup_drop": {},
	"chmod_file":   {},
	"chmod_dir":    {},
	"owner":        {},
	"group":        {},
	"umask":        {},
	"allow_paths":  {},
}
