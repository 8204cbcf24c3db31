// Package nativeapi implements the native REST + SSE façade at base path
// /v1: torrent admission, inspection, and control, plus an event stream
// for subscribers that don't speak the qB compatibility surface. Named
// distinctly from the qbcompat package's Handler to keep both mountable
// side by side on the same process mux.
package nativeapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"torrentstream/internal/domain"
	"torrentstream/internal/eventbus"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Workflow is the mutation surface the native API drives;
// orchestrator.Orchestrator satisfies it directly.
type Workflow interface {
	AddTorrent(ctx context.Context, add domain.AddTorrent) error
	RemoveTorrent(ctx context.Context, id domain.TorrentID, withData bool) error
	UpdateSelection(ctx context.Context, id domain.TorrentID, sel domain.Selection) error
	UpdateOptions(ctx context.Context, id domain.TorrentID, update domain.TorrentOptionsUpdate) error
	UpdateTrackers(ctx context.Context, id domain.TorrentID, trackers []string, replace bool) error
	UpdateWebSeeds(ctx context.Context, id domain.TorrentID, webSeeds []string, replace bool) error
	UpdateTags(ctx context.Context, id domain.TorrentID, tags []string, replace bool) error
	ExecuteAction(ctx context.Context, id domain.TorrentID, action domain.TorrentAction) error
}

// Inspector is the read surface, served entirely from the catalog and
// metadata store.
type Inspector interface {
	List(filter domain.TorrentListFilter) []domain.TorrentStatus
	Get(id domain.TorrentID) (domain.TorrentStatus, bool)
	GetMetadata(id domain.TorrentID) (domain.TorrentMetadata, bool)
}

// EventSource is the subset of *eventbus.Bus the SSE handler needs.
type EventSource interface {
	Subscribe(ctx context.Context, since domain.EventID) eventbus.Subscription
}

// HealthChecker reports the set of currently degraded components (empty
// when healthy), recomputing and publishing EventHealthChanged as a side
// effect when the set changes. orchestrator.Orchestrator alone cannot reach
// the config store, so the concrete implementation wired at cmd/server is a
// small adapter composing Orchestrator.Health with a config store probe.
type HealthChecker interface {
	Health(ctx context.Context) []string
}

// Server is the /v1 handler, built via ServerOption the same way the
// qB compatibility handler is: narrow collaborator interfaces wired in at
// construction, never a concrete orchestrator import.
type Server struct {
	workflow  Workflow
	inspector Inspector
	bus       EventSource
	auth      Authenticator
	health    HealthChecker
	logger    *slog.Logger

	handler http.Handler
}

type ServerOption func(*Server)

func WithWorkflow(w Workflow) ServerOption           { return func(s *Server) { s.workflow = w } }
func WithInspector(i Inspector) ServerOption         { return func(s *Server) { s.inspector = i } }
func WithEventSource(b EventSource) ServerOption     { return func(s *Server) { s.bus = b } }
func WithAuthenticator(a Authenticator) ServerOption { return func(s *Server) { s.auth = a } }
func WithHealth(h HealthChecker) ServerOption        { return func(s *Server) { s.health = h } }
func WithLogger(logger *slog.Logger) ServerOption    { return func(s *Server) { s.logger = logger } }

// NewServer wires the full /v1 surface and its middleware chain.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/torrents", s.requireAPIKey(s.handleTorrents))
	mux.HandleFunc("/v1/torrents/", s.requireAPIKey(s.handleTorrentByID))
	mux.HandleFunc("/v1/events", s.requireAPIKey(s.handleEvents))
	mux.HandleFunc("/v1/events/ws", s.requireAPIKey(s.handleEventsWS))
	if s.health != nil {
		// Unauthenticated, like any liveness probe a load balancer or
		// orchestrator hits without a credential.
		mux.HandleFunc("/v1/health", s.handleHealth)
	}

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "revaer-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/v1/events" && r.URL.Path != "/v1/events/ws"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, metricsMiddleware(corsMiddleware(traced)))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleTorrents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTorrents(w, r)
	case http.MethodPost:
		s.handleCreateTorrent(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleTorrentByID dispatches everything under /v1/torrents/{id}[/...],
// the same trim-and-split-on-method pattern as the engine service's own
// per-resource router.
func (s *Server) handleTorrentByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/torrents/")
	if path == "" {
		http.NotFound(w, r)
		return
	}
	if path == "bulk" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleBulkAction(w, r)
		return
	}
	parts := strings.SplitN(path, "/", 2)
	id := domain.TorrentID(parts[0])
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetTorrent(w, r, id)
		case http.MethodDelete:
			s.handleDeleteTorrent(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "action":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleAction(w, r, id)
	case "select":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleSelection(w, r, id)
	case "trackers":
		switch r.Method {
		case http.MethodGet:
			s.handleGetTrackers(w, r, id)
		case http.MethodPost:
			s.handleUpdateTrackers(w, r, id)
		case http.MethodDelete:
			s.handleRemoveTrackers(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "web_seeds":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleUpdateWebSeeds(w, r, id)
	case "options":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleUpdateOptions(w, r, id)
	case "tags":
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleUpdateTags(w, r, id)
	default:
		http.NotFound(w, r)
	}
}
