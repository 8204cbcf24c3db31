// Package qbcompat implements the qBittorrent WebAPI v2 subset that lets
// existing *arr-style clients (Sonarr, Radarr, and similar) drive Revaer
// without knowing it isn't qBittorrent. Every handler forwards to the same
// orchestrator.TorrentWorkflow/TorrentInspector surface the native API
// uses; this package is a translation layer, not a second engine client.
package qbcompat

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// sessionTTL is the lifetime of an issued SID, matching the default the
// native API documents for setup tokens in spirit (short-lived, renewed by
// re-authenticating) but scoped to the qB façade's own session map.
const defaultSessionTTL = time.Hour

// sessionStore is the single lock-protected SID → expiry map. TTL is
// enforced on read, not by a background sweep — an expired entry is
// indistinguishable from an absent one until something looks it up, which
// matches the "qB sessions: a single lock-protected map; TTL enforced on
// read" discipline.
type sessionStore struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	sessions map[string]time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// issue mints a fresh random session id and stores its expiry.
func (s *sessionStore) issue() string {
	sid := randomToken()
	s.mu.Lock()
	s.sessions[sid] = s.now().Add(s.ttl)
	s.mu.Unlock()
	return sid
}

// validate reports whether sid is present and unexpired. An expired entry
// is lazily dropped.
func (s *sessionStore) validate(sid string) bool {
	if sid == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.sessions[sid]
	if !ok {
		return false
	}
	if !s.now().Before(expiry) {
		delete(s.sessions, sid)
		return false
	}
	return true
}

func (s *sessionStore) revoke(sid string) {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
}

// count reports the number of unexpired sessions. Expired entries are
// counted out without being swept, since sweeping is validate's job.
func (s *sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, expiry := range s.sessions {
		if now.Before(expiry) {
			n++
		}
	}
	return n
}

// randomToken produces a 32-character hex token — 16 bytes of entropy from
// crypto/rand, comfortably past the "32+ chars" floor.
func randomToken() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is a platform-level problem; panic rather
		// than hand out a predictable session id.
		panic(fmt.Sprintf("qbcompat: crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf[:])
}

// setSIDCookie writes the login cookie. Max-Age is the configured TTL in
// whole seconds.
func setSIDCookie(w http.ResponseWriter, sid string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     "SID",
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(ttl.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSIDCookie writes the revocation cookie: empty value, Max-Age=0.
func clearSIDCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "SID",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   0,
		SameSite: http.SameSiteLaxMode,
	})
}

func sidFromRequest(r *http.Request) string {
	c, err := r.Cookie("SID")
	if err != nil {
		return ""
	}
	return c.Value
}
