package qbcompat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/eventbus"
)

type fakeWorkflow struct {
	added   []domain.AddTorrent
	paused  []domain.TorrentID
	resumed []domain.TorrentID
	removed []domain.TorrentID
	limits  []struct{ down, up *uint64 }
	addErr  error
}

func (f *fakeWorkflow) AddTorrent(_ context.Context, add domain.AddTorrent) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, add)
	return nil
}

func (f *fakeWorkflow) RemoveTorrent(_ context.Context, id domain.TorrentID, _ bool) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeWorkflow) PauseTorrent(_ context.Context, id domain.TorrentID) error {
	f.paused = append(f.paused, id)
	return nil
}

func (f *fakeWorkflow) ResumeTorrent(_ context.Context, id domain.TorrentID) error {
	f.resumed = append(f.resumed, id)
	return nil
}

func (f *fakeWorkflow) UpdateLimits(_ context.Context, _ domain.TorrentID, down, up *uint64) error {
	f.limits = append(f.limits, struct{ down, up *uint64 }{down, up})
	return nil
}

func newTestHandler() (*Handler, *fakeWorkflow, *fakeInspector) {
	wf := &fakeWorkflow{}
	insp := newFakeInspector()
	bus := eventbus.New(1024)
	h := NewHandler(wf, insp, bus, time.Hour, nil)
	return h, wf, insp
}

func loginAndGetCookie(t *testing.T, h *Handler) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "SID" {
			return c
		}
	}
	t.Fatal("login did not set a SID cookie")
	return nil
}

func TestHandlerLoginAlwaysSucceeds(t *testing.T) {
	h, _, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth/login", strings.NewReader("username=anything&password=wrong"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "Ok." {
		t.Errorf("body = %q, want \"Ok.\"", rec.Body.String())
	}
}

func TestHandlerRejectsMissingSession(t *testing.T) {
	h, _, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v2/app/version", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if rec.Body.String() != "Forbidden." {
		t.Errorf("body = %q, want \"Forbidden.\"", rec.Body.String())
	}
}

func TestHandlerAppVersionWithSession(t *testing.T) {
	h, _, _ := newTestHandler()
	cookie := loginAndGetCookie(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/app/version", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "v"+appVersion {
		t.Errorf("got status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestHandlerTorrentsAddRequiresURL(t *testing.T) {
	h, wf, _ := newTestHandler()
	cookie := loginAndGetCookie(t, h)

	form := url.Values{}
	req := httptest.NewRequest(http.MethodPost, "/api/v2/torrents/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(wf.added) != 0 {
		t.Error("no torrent should have been admitted")
	}
}

func TestHandlerTorrentsAddAdmitsEachURL(t *testing.T) {
	h, wf, _ := newTestHandler()
	cookie := loginAndGetCookie(t, h)

	form := url.Values{}
	form.Set("urls", "magnet:one\nmagnet:two")
	form.Set("tags", "a,b")
	req := httptest.NewRequest(http.MethodPost, "/api/v2/torrents/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(wf.added) != 2 {
		t.Fatalf("expected 2 admissions, got %d", len(wf.added))
	}
	if wf.added[0].Source.Magnet != "magnet:one" {
		t.Errorf("first admission magnet = %q", wf.added[0].Source.Magnet)
	}
}

func TestHandlerTorrentsInfoFiltersByHash(t *testing.T) {
	h, _, insp := newTestHandler()
	cookie := loginAndGetCookie(t, h)

	id1 := domain.NewTorrentID()
	id2 := domain.NewTorrentID()
	insp.statuses[id1] = domain.TorrentStatus{ID: id1, State: domain.Downloading()}
	insp.statuses[id2] = domain.TorrentStatus{ID: id2, State: domain.Seeding()}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/torrents/info?hashes="+id1.Compact(), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), id1.Compact()) {
		t.Error("expected filtered torrent in response")
	}
	if strings.Contains(rec.Body.String(), id2.Compact()) {
		t.Error("unfiltered torrent leaked into response")
	}
}

func TestHandlerTransferDownloadLimit(t *testing.T) {
	h, wf, _ := newTestHandler()
	cookie := loginAndGetCookie(t, h)

	form := url.Values{}
	form.Set("limit", "5000")
	req := httptest.NewRequest(http.MethodPost, "/api/v2/transfer/downloadlimit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(wf.limits) != 1 || wf.limits[0].down == nil || *wf.limits[0].down != 5000 {
		t.Errorf("expected download limit 5000 applied, got %+v", wf.limits)
	}
}

func TestHandlerLogoutRevokesSession(t *testing.T) {
	h, _, _ := newTestHandler()
	cookie := loginAndGetCookie(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v2/app/version", nil)
	req2.AddCookie(cookie)
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusForbidden {
		t.Errorf("expected revoked session to be rejected, got status %d", rec2.Code)
	}
}
