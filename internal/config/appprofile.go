package config

import (
	"net"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
)

// applyAppProfilePatch applies a flat field patch onto base. Unknown keys
// are rejected outright (UnknownField); recognized keys are type-checked
// with InvalidField on mismatch.
func applyAppProfilePatch(base domain.AppProfile, patch map[string]any) (domain.AppProfile, error) {
	for key := range patch {
		if _, ok := knownAppProfileFields[key]; !ok {
			return domain.AppProfile{}, apperr.UnknownField("app_profile", key)
		}
	}

	out := base

	if raw, ok := patch["instance_name"]; ok {
		name, isStr := raw.(string)
		if !isStr || name == "" {
			return domain.AppProfile{}, apperr.InvalidField("app_profile", "instance_name", "must be a non-empty string")
		}
		out.InstanceName = name
	}
	if raw, ok := patch["mode"]; ok {
		mode, isStr := raw.(string)
		if !isStr || (domain.InstanceMode(mode) != domain.ModeSetup && domain.InstanceMode(mode) != domain.ModeActive) {
			return domain.AppProfile{}, apperr.InvalidField("app_profile", "mode", "must be setup or active")
		}
		out.Mode = domain.InstanceMode(mode)
	}
	if raw, ok := patch["http_port"]; ok {
		port, isInt := asInt(raw)
		if !isInt || port < 1 || port > 65535 {
			return domain.AppProfile{}, apperr.InvalidField("app_profile", "http_port", "must be in [1,65535]")
		}
		out.HTTPPort = port
	}
	if raw, ok := patch["bind_addr"]; ok {
		addrStr, isStr := raw.(string)
		if !isStr {
			return domain.AppProfile{}, apperr.InvalidField("app_profile", "bind_addr", "must be a string")
		}
		ip := net.ParseIP(addrStr)
		if ip == nil {
			return domain.AppProfile{}, apperr.InvalidField("app_profile", "bind_addr", "must be a valid IP address")
		}
		out.BindAddr = ip
	}
	if raw, ok := patch["telemetry"]; ok {
		b, isBool := raw.(bool)
		if !isBool {
			return domain.AppProfile{}, apperr.InvalidField("app_profile", "telemetry", "must be a bool")
		}
		out.Telemetry = b
	}
	if raw, ok := patch["features"]; ok {
		out.Features = asStringSlice(raw)
	}
	if raw, ok := patch["immutable_keys"]; ok {
		out.ImmutableKeys = asStringSlice(raw)
	}

	return out, nil
}
