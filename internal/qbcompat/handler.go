package qbcompat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"torrentstream/internal/domain"
)

// appVersion/webapiVersion are the literal strings returned to clients
// that gate feature availability off them; qBittorrent 4.6.0 / WebAPI 2.8.3
// is the same pair the notifier service's own shim reports.
const (
	appVersion     = "4.6.0"
	webapiVersion  = "2.8.3"
)

// Workflow is the mutation surface qbcompat needs; orchestrator.Orchestrator
// satisfies it directly (its TorrentWorkflow is a superset).
type Workflow interface {
	AddTorrent(ctx context.Context, add domain.AddTorrent) error
	RemoveTorrent(ctx context.Context, id domain.TorrentID, withData bool) error
	PauseTorrent(ctx context.Context, id domain.TorrentID) error
	ResumeTorrent(ctx context.Context, id domain.TorrentID) error
	UpdateLimits(ctx context.Context, id domain.TorrentID, downloadBps, uploadBps *uint64) error
}

// EventSource is the subset of *eventbus.Bus the maindata algorithm reads.
type EventSource interface {
	LastEventID() *domain.EventID
	BacklogSince(since domain.EventID) []domain.EventEnvelope
	HasGap(since domain.EventID) bool
}

// Handler implements the qBittorrent WebAPI v2 subset at /api/v2.
type Handler struct {
	workflow  Workflow
	inspector Inspector
	bus       EventSource
	sessions  *sessionStore
	log       *slog.Logger

	mux *http.ServeMux
}

// NewHandler wires a Handler over the shared orchestrator surfaces.
// sessionTTL is the qB session lifetime; zero selects the one-hour
// default. Mount the result at "/api/v2/" on the process's root mux.
func NewHandler(workflow Workflow, inspector Inspector, bus EventSource, sessionTTL time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{
		workflow:  workflow,
		inspector: inspector,
		bus:       bus,
		sessions:  newSessionStore(sessionTTL),
		log:       log,
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", h.handleLogin)
	mux.HandleFunc("/api/v2/auth/logout", h.requireSession(h.handleLogout))
	mux.HandleFunc("/api/v2/app/version", h.requireSession(h.handleAppVersion))
	mux.HandleFunc("/api/v2/app/webapiVersion", h.requireSession(h.handleWebapiVersion))
	mux.HandleFunc("/api/v2/sync/maindata", h.requireSession(h.handleMainData))
	mux.HandleFunc("/api/v2/torrents/info", h.requireSession(h.handleTorrentsInfo))
	mux.HandleFunc("/api/v2/torrents/add", h.requireSession(h.handleTorrentsAdd))
	mux.HandleFunc("/api/v2/torrents/pause", h.requireSession(h.handleTorrentsPause))
	mux.HandleFunc("/api/v2/torrents/resume", h.requireSession(h.handleTorrentsResume))
	mux.HandleFunc("/api/v2/torrents/delete", h.requireSession(h.handleTorrentsDelete))
	mux.HandleFunc("/api/v2/transfer/uploadlimit", h.requireSession(h.handleUploadLimit))
	mux.HandleFunc("/api/v2/transfer/downloadlimit", h.requireSession(h.handleDownloadLimit))
	h.mux = mux
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// ActiveSessions reports the number of currently valid qB-compatibility
// sessions, for metrics reporting.
func (h *Handler) ActiveSessions() int {
	return h.sessions.count()
}

// requireSession rejects any call without a valid SID cookie with a plain
// "Forbidden." body, matching the qB façade's auth-error rendering.
func (h *Handler) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.sessions.validate(sidFromRequest(r)) {
			writeText(w, http.StatusForbidden, "Forbidden.")
			return
		}
		next(w, r)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.log.Warn("qbcompat: auth/login credentials ignored, issuing session unconditionally")
	sid := h.sessions.issue()
	setSIDCookie(w, sid, h.sessions.ttl)
	writeText(w, http.StatusOK, "Ok.")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.revoke(sidFromRequest(r))
	clearSIDCookie(w)
	writeText(w, http.StatusOK, "Ok.")
}

func (h *Handler) handleAppVersion(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "v"+appVersion)
}

func (h *Handler) handleWebapiVersion(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, webapiVersion)
}

func (h *Handler) handleMainData(w http.ResponseWriter, r *http.Request) {
	rid, _ := strconv.ParseUint(r.URL.Query().Get("rid"), 10, 64)
	data := buildMainData(domain.EventID(rid), h.inspector, h.bus)
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) handleTorrentsInfo(w http.ResponseWriter, r *http.Request) {
	statuses := h.inspector.List(domain.TorrentListFilter{})

	hashesParam := r.URL.Query().Get("hashes")
	var wanted map[string]struct{}
	if !wantsAll(hashesParam) {
		wanted = hashSet(splitHashes(hashesParam))
	}

	out := make([]qbTorrent, 0, len(statuses))
	for _, s := range statuses {
		hash := s.ID.Compact()
		if wanted != nil && !matchesHash(hash, wanted) {
			continue
		}
		out = append(out, toQBTorrent(s, tagsFor(h.inspector, s.ID)))
	}
	writeJSON(w, http.StatusOK, out)
}

// maxFormMemory bounds the in-memory portion of a multipart torrents/add
// body; qB clients only ever send form fields here, never a file part.
const maxFormMemory = 10 << 20

func (h *Handler) handleTorrentsAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if err := r.ParseForm(); err != nil {
			writeText(w, http.StatusBadRequest, "Bad Request.")
			return
		}
	}

	urls := splitURLs(r.FormValue("urls"))
	if len(urls) == 0 {
		writeText(w, http.StatusBadRequest, "No torrent URL provided.")
		return
	}

	savepath := r.FormValue("savepath")
	tags := splitList(r.FormValue("tags"))
	sequential := r.FormValue("sequentialDownload") == "true"

	for _, url := range urls {
		add := domain.AddTorrent{
			ID:     domain.NewTorrentID(),
			Source: domain.TorrentSource{Magnet: url},
			Options: domain.TorrentOptions{
				Sequential: sequential,
				Tags:       tags,
			},
		}
		if savepath != "" {
			add.Options.DownloadDir = &savepath
		}
		if err := h.workflow.AddTorrent(r.Context(), add); err != nil {
			h.log.Error("qbcompat: torrents/add failed", "url", url, "error", err)
			writeText(w, http.StatusBadRequest, "Fails.")
			return
		}
	}
	writeText(w, http.StatusOK, "Ok.")
}

func (h *Handler) handleTorrentsPause(w http.ResponseWriter, r *http.Request) {
	h.forEachHash(w, r, func(id domain.TorrentID) error {
		return h.workflow.PauseTorrent(r.Context(), id)
	})
}

func (h *Handler) handleTorrentsResume(w http.ResponseWriter, r *http.Request) {
	h.forEachHash(w, r, func(id domain.TorrentID) error {
		return h.workflow.ResumeTorrent(r.Context(), id)
	})
}

func (h *Handler) handleTorrentsDelete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Bad Request.")
		return
	}
	deleteFiles := r.FormValue("deleteFiles") == "true"
	h.forEachHash(w, r, func(id domain.TorrentID) error {
		return h.workflow.RemoveTorrent(r.Context(), id, deleteFiles)
	})
}

// forEachHash resolves the request's "hashes" parameter (or "all") to ids
// and applies fn to each, used by pause/resume/delete which share the same
// hash-list-or-all targeting rule.
func (h *Handler) forEachHash(w http.ResponseWriter, r *http.Request, fn func(domain.TorrentID) error) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Bad Request.")
		return
	}
	raw := r.FormValue("hashes")

	var ids []domain.TorrentID
	if wantsAll(raw) {
		for _, s := range h.inspector.List(domain.TorrentListFilter{}) {
			ids = append(ids, s.ID)
		}
	} else {
		for _, hash := range splitHashes(raw) {
			id, ok := domain.ParseCompactID(hash)
			if !ok {
				continue
			}
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		if err := fn(id); err != nil {
			h.log.Warn("qbcompat: action failed", "torrentId", id, "error", err)
		}
	}
	writeText(w, http.StatusOK, "Ok.")
}

func (h *Handler) handleUploadLimit(w http.ResponseWriter, r *http.Request) {
	h.handleTransferLimit(w, r, func(bps *uint64) error {
		return h.workflow.UpdateLimits(r.Context(), "", nil, bps)
	})
}

func (h *Handler) handleDownloadLimit(w http.ResponseWriter, r *http.Request) {
	h.handleTransferLimit(w, r, func(bps *uint64) error {
		return h.workflow.UpdateLimits(r.Context(), "", bps, nil)
	})
}

func (h *Handler) handleTransferLimit(w http.ResponseWriter, r *http.Request, apply func(*uint64) error) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Bad Request.")
		return
	}
	bps, ok := parseLimit(r.FormValue("limit"))
	if !ok {
		writeText(w, http.StatusBadRequest, "Bad Request.")
		return
	}
	if err := apply(bps); err != nil {
		h.log.Error("qbcompat: transfer limit update failed", "error", err)
		writeText(w, http.StatusInternalServerError, "Fails.")
		return
	}
	writeText(w, http.StatusOK, "Ok.")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
