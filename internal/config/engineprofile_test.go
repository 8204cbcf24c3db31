package config

import (
	"testing"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
)

func TestNormalizeEngineProfileListenPortOutOfRangeCleared(t *testing.T) {
	out, warnings, err := NormalizeEngineProfile(domain.EngineProfile{}, map[string]any{"listen_port": 0})
	if err != nil {
		t.Fatalf("NormalizeEngineProfile: %v", err)
	}
	if out.ListenPort != nil {
		t.Errorf("ListenPort: got %v, want nil", out.ListenPort)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings: got %v, want exactly one", warnings)
	}
}

func TestNormalizeEngineProfileListenPort65536Cleared(t *testing.T) {
	out, _, err := NormalizeEngineProfile(domain.EngineProfile{}, map[string]any{"listen_port": 65536})
	if err != nil {
		t.Fatalf("NormalizeEngineProfile: %v", err)
	}
	if out.ListenPort != nil {
		t.Errorf("ListenPort: got %v, want nil", out.ListenPort)
	}
}

func TestNormalizeEngineProfileMaxDownloadBpsClamped(t *testing.T) {
	out, warnings, err := NormalizeEngineProfile(domain.EngineProfile{}, map[string]any{
		"max_download_bps": float64(GuardRailBps + 1),
	})
	if err != nil {
		t.Fatalf("NormalizeEngineProfile: %v", err)
	}
	if out.MaxDownloadBps == nil || *out.MaxDownloadBps != GuardRailBps {
		t.Errorf("MaxDownloadBps: got %v, want %d", out.MaxDownloadBps, GuardRailBps)
	}
	if len(warnings) != 1 {
		t.Errorf("expected a clamp warning, got %v", warnings)
	}
}

func TestNormalizeEngineProfileUnknownEncryptionDefaultsToPrefer(t *testing.T) {
	out, warnings, err := NormalizeEngineProfile(domain.EngineProfile{}, map[string]any{"encryption": "bogus"})
	if err != nil {
		t.Fatalf("NormalizeEngineProfile: %v", err)
	}
	if out.Encryption != domain.EncryptionPrefer {
		t.Errorf("Encryption: got %v, want prefer", out.Encryption)
	}
	if len(warnings) != 1 {
		t.Errorf("expected one warning, got %v", warnings)
	}
}

func TestNormalizeEngineProfileListenInterfacesRejectsWholePatch(t *testing.T) {
	_, _, err := NormalizeEngineProfile(domain.EngineProfile{}, map[string]any{
		"listen_interfaces": []any{"not-a-host-port"},
	})
	if err == nil {
		t.Fatalf("expected an error for a malformed listen_interfaces entry")
	}
	var appErr *apperr.Error
	if !asAppErr(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	if appErr.Kind != apperr.KindInvalidField {
		t.Errorf("Kind: got %v, want InvalidField", appErr.Kind)
	}
}

func TestNormalizeEngineProfileCIDRCanonicalizedAndResetsMetadata(t *testing.T) {
	oldETag := "etag-1"
	base := domain.EngineProfile{IPFilter: domain.IPFilter{ETag: &oldETag}}
	out, _, err := NormalizeEngineProfile(base, map[string]any{
		"ip_filter": map[string]any{"cidrs": []any{"10.0.0.5/24"}},
	})
	if err != nil {
		t.Fatalf("NormalizeEngineProfile: %v", err)
	}
	if len(out.IPFilter.CIDRs) != 1 || out.IPFilter.CIDRs[0] != "10.0.0.0/24" {
		t.Errorf("CIDRs: got %v, want [10.0.0.0/24]", out.IPFilter.CIDRs)
	}
	if out.IPFilter.ETag != nil {
		t.Errorf("expected ETag to reset when cidrs changes, got %v", out.IPFilter.ETag)
	}
}

func TestNormalizeEngineProfilePreservesIPFilterMetadataWhenUntouched(t *testing.T) {
	oldETag := "etag-1"
	base := domain.EngineProfile{IPFilter: domain.IPFilter{ETag: &oldETag, CIDRs: []string{"10.0.0.0/24"}}}
	out, _, err := NormalizeEngineProfile(base, map[string]any{"max_active": 5})
	if err != nil {
		t.Fatalf("NormalizeEngineProfile: %v", err)
	}
	if out.IPFilter.ETag == nil || *out.IPFilter.ETag != oldETag {
		t.Errorf("expected ETag preserved when cidrs/blocklist_url untouched, got %v", out.IPFilter.ETag)
	}
}

func TestNormalizeEngineProfileBlocklistURLRejectsBadScheme(t *testing.T) {
	_, _, err := NormalizeEngineProfile(domain.EngineProfile{}, map[string]any{
		"ip_filter": map[string]any{"blocklist_url": "ftp://example.com/list"},
	})
	if err == nil {
		t.Fatalf("expected an error for a non-http(s) blocklist_url")
	}
}

func asAppErr(err error, out **apperr.Error) bool {
	e, ok := err.(*apperr.Error)
	if ok {
		*out = e
	}
	return ok
}
