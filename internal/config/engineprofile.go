package config

import (
	"fmt"
	"strconv"
	"strings"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
)

// GuardRailBps is the absolute ceiling the normalizer clamps
// max_download_bps/max_upload_bps to, regardless of what the patch asked
// for.
const GuardRailBps uint64 = 5_000_000_000

// NormalizeEngineProfile applies the patch (decoded from a changeset's
// engine_profile section) onto base, returning the sanitized profile, the
// warnings accumulated along the way, and an error only for the patch's
// hard-error cases (malformed CIDRs/URLs, a listen_interfaces entry that
// isn't host:port, or a tracker payload that isn't an object).
//
// Hard errors reject the entire patch; everything else is either clamped
// silently or recorded as a warning and applied with a fallback.
func NormalizeEngineProfile(base domain.EngineProfile, patch map[string]any) (domain.EngineProfile, []string, error) {
	out := base
	var warnings []string
	warn := func(format string, args ...any) { warnings = append(warnings, fmt.Sprintf(format, args...)) }

	cidrsChanged := false
	blocklistChanged := false

	if raw, ok := patch["listen_port"]; ok {
		port, isInt := asInt(raw)
		if !isInt || port < 1 || port > 65535 {
			out.ListenPort = nil
			warn("listen_port out of range, cleared")
		} else {
			out.ListenPort = &port
		}
	}

	if raw, ok := patch["max_active"]; ok {
		maxActive, isInt := asInt(raw)
		if !isInt || maxActive <= 0 {
			out.MaxActive = nil
			warn("max_active must be positive, cleared")
		} else {
			out.MaxActive = &maxActive
		}
	}

	if raw, ok := patch["max_download_bps"]; ok {
		bps, cleared, clamped := normalizeBps(raw)
		if cleared {
			out.MaxDownloadBps = nil
			warn("max_download_bps must be positive, cleared")
		} else {
			if clamped {
				warn("max_download_bps exceeds guard rail, clamped")
			}
			out.MaxDownloadBps = &bps
		}
	}

	if raw, ok := patch["max_upload_bps"]; ok {
		bps, cleared, clamped := normalizeBps(raw)
		if cleared {
			out.MaxUploadBps = nil
			warn("max_upload_bps must be positive, cleared")
		} else {
			if clamped {
				warn("max_upload_bps exceeds guard rail, clamped")
			}
			out.MaxUploadBps = &bps
		}
	}

	if raw, ok := patch["encryption"]; ok {
		mode, _ := raw.(string)
		switch domain.EncryptionMode(mode) {
		case domain.EncryptionRequire, domain.EncryptionPrefer, domain.EncryptionDisable:
			out.Encryption = domain.EncryptionMode(mode)
		default:
			out.Encryption = domain.EncryptionPrefer
			warn("unknown encryption mode, defaulted to prefer")
		}
	} else if out.Encryption == "" {
		out.Encryption = domain.EncryptionPrefer
	}

	if raw, ok := patch["ipv6_mode"]; ok {
		mode, _ := raw.(string)
		switch domain.IPv6Mode(mode) {
		case domain.IPv6Disabled, domain.IPv6Enabled, domain.IPv6PreferV6:
			out.IPv6Mode = domain.IPv6Mode(mode)
		default:
			out.IPv6Mode = domain.IPv6Disabled
			warn("unknown ipv6_mode, defaulted to disabled")
		}
	} else if out.IPv6Mode == "" {
		out.IPv6Mode = domain.IPv6Disabled
	}

	if raw, ok := patch["dht_bootstrap_nodes"]; ok {
		out.DHTBootstrapNodes = filterEndpoints(asStringSlice(raw), warn, "dht_bootstrap_nodes")
	}
	if raw, ok := patch["dht_router_nodes"]; ok {
		out.DHTRouterNodes = filterEndpoints(asStringSlice(raw), warn, "dht_router_nodes")
	}

	if raw, ok := patch["listen_interfaces"]; ok {
		entries := asStringSlice(raw)
		for _, e := range entries {
			if !isHostPort(e) {
				return domain.EngineProfile{}, nil, apperr.InvalidField("engine_profile", "listen_interfaces",
					fmt.Sprintf("entry %q is not host:port or [v6]:port", e))
			}
		}
		out.ListenInterfaces = entries
	}

	if raw, ok := patch["ip_filter"]; ok {
		filterPatch, isMap := raw.(map[string]any)
		if !isMap {
			return domain.EngineProfile{}, nil, apperr.InvalidField("engine_profile", "ip_filter", "must be an object")
		}
		next, changed, err := normalizeIPFilter(out.IPFilter, filterPatch)
		if err != nil {
			return domain.EngineProfile{}, nil, err
		}
		cidrsChanged = changed.cidrs
		blocklistChanged = changed.blocklist
		out.IPFilter = next
	}

	if cidrsChanged || blocklistChanged {
		out.IPFilter.ETag = nil
		out.IPFilter.LastUpdatedAt = nil
		out.IPFilter.LastError = nil
	}

	if raw, ok := patch["tracker"]; ok {
		trackerPatch, isMap := raw.(map[string]any)
		if !isMap {
			return domain.EngineProfile{}, nil, apperr.InvalidField("engine_profile", "tracker", "must be an object")
		}
		out.Tracker = normalizeTracker(out.Tracker, trackerPatch)
	}

	return out, warnings, nil
}

type ipFilterChanges struct {
	cidrs     bool
	blocklist bool
}

func normalizeIPFilter(base domain.IPFilter, patch map[string]any) (domain.IPFilter, ipFilterChanges, error) {
	out := base
	var changes ipFilterChanges

	if raw, ok := patch["cidrs"]; ok {
		canon, err := CanonicalizeCIDRList(asStringSlice(raw))
		if err != nil {
			return domain.IPFilter{}, changes, apperr.InvalidField("engine_profile", "ip_filter.cidrs", err.Error())
		}
		out.CIDRs = canon
		changes.cidrs = true
	}

	if raw, ok := patch["blocklist_url"]; ok {
		if raw == nil {
			out.BlocklistURL = nil
			changes.blocklist = true
		} else {
			url, _ := raw.(string)
			if len(url) > 2048 || !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
				return domain.IPFilter{}, changes, apperr.InvalidField("engine_profile", "ip_filter.blocklist_url",
					"must be http(s):// and at most 2048 characters")
			}
			out.BlocklistURL = &url
			changes.blocklist = true
		}
	}

	return out, changes, nil
}

func normalizeTracker(base domain.TrackerConfig, patch map[string]any) domain.TrackerConfig {
	out := base
	if raw, ok := patch["default"]; ok {
		out.Default = asStringSlice(raw)
	}
	if raw, ok := patch["extra"]; ok {
		out.Extra = asStringSlice(raw)
	}
	if raw, ok := patch["replace"]; ok {
		if b, isBool := raw.(bool); isBool {
			out.Replace = b
		}
	}
	return out
}

func normalizeBps(raw any) (value uint64, cleared, clamped bool) {
	n, ok := asInt64(raw)
	if !ok || n <= 0 {
		return 0, true, false
	}
	v := uint64(n)
	if v > GuardRailBps {
		return GuardRailBps, false, true
	}
	return v, false, false
}

func filterEndpoints(entries []string, warn func(string, ...any), field string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if isHostPort(e) {
			out = append(out, e)
		} else {
			warn("%s: dropped invalid entry %q", field, e)
		}
	}
	return out
}

func isHostPort(s string) bool {
	host, port, err := splitHostPortLoose(s)
	if err != nil {
		return false
	}
	if host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// splitHostPortLoose accepts both "host:port" and "[v6]:port" without
// requiring the host to resolve or be a valid IP — the normalizer only
// checks shape, not reachability.
func splitHostPortLoose(s string) (host, port string, err error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("missing port")
	}
	host = s[:idx]
	port = s[idx+1:]
	host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	return host, port, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
