package nativeapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"torrentstream/internal/domain"
)

func TestRequireAPIKeySetupMode(t *testing.T) {
	ts := newTestServer()
	ts.auth.mode = domain.ModeSetup

	req := httptest.NewRequest(http.MethodGet, "/v1/torrents", nil)
	req.Header.Set(apiKeyHeader, "key1:secret1")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (setup required)", rec.Code)
	}
}

func TestRequireAPIKeyRejectsSetupTokenHeader(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/torrents", nil)
	req.Header.Set(setupTokenHeader, "whatever")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireAPIKeyMissingHeader(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/torrents", nil)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAPIKeyMalformedHeader(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/torrents", nil)
	req.Header.Set(apiKeyHeader, "no-colon-here")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAPIKeyWrongSecret(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/torrents", nil)
	req.Header.Set(apiKeyHeader, "key1:wrong-secret")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAPIKeyValidSucceeds(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/v1/torrents", nil)
	req.Header.Set(apiKeyHeader, "key1:secret1")
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
