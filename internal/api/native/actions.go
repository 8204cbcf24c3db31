package nativeapi

import (
	"encoding/json"
	"net/http"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "invalid json body"))
		return false
	}
	return true
}

func (s *Server) handleDeleteTorrent(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	withData := r.URL.Query().Get("deleteData") == "true"
	if err := s.workflow.RemoveTorrent(r.Context(), id, withData); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	var sel domain.Selection
	if !decodeJSON(w, r, &sel) {
		return
	}
	if err := s.workflow.UpdateSelection(r.Context(), id, sel); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type trackersRequest struct {
	Trackers []string `json:"trackers"`
	Replace  bool     `json:"replace"`
}

func (s *Server) handleUpdateTrackers(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	var req trackersRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Trackers) == 0 {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "trackers must be non-empty"))
		return
	}
	if err := s.workflow.UpdateTrackers(r.Context(), id, req.Trackers, req.Replace); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type trackersRemoveRequest struct {
	Trackers []string `json:"trackers"`
}

// handleRemoveTrackers filters the torrent's current tracker list against
// the requested removals and re-applies the remainder with replace=true —
// there is no engine-side "remove" primitive, only replace.
func (s *Server) handleRemoveTrackers(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	var req trackersRemoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Trackers) == 0 {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "trackers must be non-empty"))
		return
	}

	meta, _ := s.inspector.GetMetadata(id)
	remove := make(map[string]struct{}, len(req.Trackers))
	for _, t := range req.Trackers {
		remove[t] = struct{}{}
	}
	remaining := make([]string, 0, len(meta.Trackers))
	for _, t := range meta.Trackers {
		if _, drop := remove[t]; !drop {
			remaining = append(remaining, t)
		}
	}

	if err := s.workflow.UpdateTrackers(r.Context(), id, remaining, true); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGetTrackers(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	meta, ok := s.inspector.GetMetadata(id)
	if !ok {
		writeProblem(w, apperr.New(apperr.KindNotFound, "torrent not found"))
		return
	}
	views := make([]TrackerView, 0, len(meta.Trackers))
	for _, t := range meta.Trackers {
		views = append(views, TrackerView{URL: t, Message: meta.TrackerMessages[t]})
	}
	writeJSON(w, http.StatusOK, map[string][]TrackerView{"trackers": views})
}

// TrackerView pairs a tracker URL with its most recent announce message.
type TrackerView struct {
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

type webSeedsRequest struct {
	WebSeeds []string `json:"web_seeds"`
	Replace  bool     `json:"replace"`
}

func (s *Server) handleUpdateWebSeeds(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	var req webSeedsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.WebSeeds) == 0 {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "web_seeds must be non-empty"))
		return
	}
	if err := s.workflow.UpdateWebSeeds(r.Context(), id, req.WebSeeds, req.Replace); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleUpdateOptions(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	var update domain.TorrentOptionsUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	if update.IsEmpty() {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "options patch must set at least one field"))
		return
	}
	if err := s.workflow.UpdateOptions(r.Context(), id, update); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type tagsRequest struct {
	Tags    []string `json:"tags"`
	Replace bool     `json:"replace"`
}

func (s *Server) handleUpdateTags(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	var req tagsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Tags) == 0 && !req.Replace {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "tags must be non-empty unless replace clears them"))
		return
	}
	if err := s.workflow.UpdateTags(r.Context(), id, req.Tags, req.Replace); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type bulkActionRequest struct {
	IDs    []domain.TorrentID  `json:"ids"`
	Action domain.TorrentAction `json:"action"`
}

type bulkActionResult struct {
	ID    domain.TorrentID `json:"id"`
	OK    bool             `json:"ok"`
	Error string           `json:"error,omitempty"`
}

// handleBulkAction validates the action once against the shared contract,
// then dispatches ExecuteAction per id, collecting a per-id result — a
// partial failure (one bad id among many) never aborts the rest.
func (s *Server) handleBulkAction(w http.ResponseWriter, r *http.Request) {
	var req bulkActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "ids must be non-empty"))
		return
	}
	if err := req.Action.Validate(); err != nil {
		writeProblem(w, apperr.New(apperr.KindBadRequest, err.Error()))
		return
	}

	results := make([]bulkActionResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		if err := s.workflow.ExecuteAction(r.Context(), id, req.Action); err != nil {
			results = append(results, bulkActionResult{ID: id, OK: false, Error: mapMutationError(err).Error()})
			continue
		}
		results = append(results, bulkActionResult{ID: id, OK: true})
	}
	writeJSON(w, http.StatusAccepted, map[string][]bulkActionResult{"results": results})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	var action domain.TorrentAction
	if !decodeJSON(w, r, &action) {
		return
	}
	if err := action.Validate(); err != nil {
		// The contract calls out Move-with-empty-dir as a 400, and the
		// same per-kind precondition check covers every other tagged
		// variant, so every Validate failure here is a bad request.
		writeProblem(w, apperr.New(apperr.KindBadRequest, err.Error()))
		return
	}
	if err := s.workflow.ExecuteAction(r.Context(), id, action); err != nil {
		writeProblem(w, mapMutationError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
