package nativeapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"torrentstream/internal/apperr"
	"torrentstream/internal/domain"
)

// TorrentSummary is the list view; TorrentDetail extends it with fields
// only worth the payload on a single-torrent fetch.
type TorrentSummary struct {
	ID              domain.TorrentID        `json:"id"`
	Name            string                  `json:"name,omitempty"`
	State           domain.TorrentStateKind `json:"state"`
	StateMessage    string                  `json:"stateMessage,omitempty"`
	Progress        float64                 `json:"progress"`
	BytesDownloaded uint64                  `json:"bytesDownloaded"`
	BytesTotal      uint64                  `json:"bytesTotal"`
	DownloadBps     uint64                  `json:"downloadBps"`
	UploadBps       uint64                  `json:"uploadBps"`
	Tags            []string                `json:"tags,omitempty"`
	LastUpdated     time.Time               `json:"lastUpdated"`
}

type TorrentDetail struct {
	TorrentSummary
	Files       []domain.TorrentFile `json:"files,omitempty"`
	DownloadDir string               `json:"downloadDir,omitempty"`
	LibraryPath string               `json:"libraryPath,omitempty"`
	Sequential  bool                 `json:"sequential"`
	AddedAt     time.Time            `json:"addedAt"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
	Trackers    []string             `json:"trackers,omitempty"`
	WebSeeds    []string             `json:"webSeeds,omitempty"`
}

func toSummary(status domain.TorrentStatus, meta domain.TorrentMetadata) TorrentSummary {
	name := ""
	if status.Name != nil {
		name = *status.Name
	}
	return TorrentSummary{
		ID:              status.ID,
		Name:            name,
		State:           status.State.Kind,
		StateMessage:    status.State.Message,
		Progress:        status.Progress.Percent(),
		BytesDownloaded: status.Progress.BytesDownloaded,
		BytesTotal:      status.Progress.BytesTotal,
		DownloadBps:     status.Rates.DownloadBps,
		UploadBps:       status.Rates.UploadBps,
		Tags:            meta.Tags,
		LastUpdated:     status.LastUpdated,
	}
}

func toDetail(status domain.TorrentStatus, meta domain.TorrentMetadata) TorrentDetail {
	downloadDir := ""
	if status.DownloadDir != nil {
		downloadDir = *status.DownloadDir
	}
	libraryPath := ""
	if status.LibraryPath != nil {
		libraryPath = *status.LibraryPath
	}
	return TorrentDetail{
		TorrentSummary: toSummary(status, meta),
		Files:          status.Files,
		DownloadDir:    downloadDir,
		LibraryPath:    libraryPath,
		Sequential:     status.Sequential,
		AddedAt:        status.AddedAt,
		CompletedAt:    status.CompletedAt,
		Trackers:       meta.Trackers,
		WebSeeds:       meta.WebSeeds,
	}
}

type torrentListResponse struct {
	Torrents []TorrentSummary `json:"torrents"`
	Next     string           `json:"next,omitempty"`
}

func (s *Server) handleListTorrents(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	statuses := s.inspector.List(filter)

	out := make([]TorrentSummary, 0, len(statuses))
	for _, status := range statuses {
		meta, _ := s.inspector.GetMetadata(status.ID)
		out = append(out, toSummary(status, meta))
	}

	resp := torrentListResponse{Torrents: out}
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	if len(statuses) == limit {
		last := statuses[len(statuses)-1]
		resp.Next = encodeCursor(domain.ListCursor{LastUpdated: last.LastUpdated.UnixNano(), ID: last.ID})
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseListFilter(r *http.Request) domain.TorrentListFilter {
	q := r.URL.Query()
	var filter domain.TorrentListFilter

	if state := strings.TrimSpace(q.Get("state")); state != "" {
		kind := domain.TorrentStateKind(strings.ToLower(state))
		filter.State = &kind
	}
	if tags := q.Get("tags"); tags != "" {
		filter.Tags = splitCSV(tags)
	}
	filter.Tracker = strings.TrimSpace(q.Get("tracker"))
	filter.Extension = strings.TrimPrefix(strings.TrimSpace(q.Get("extension")), ".")
	filter.Name = strings.TrimSpace(q.Get("name"))

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}
	if cursor := q.Get("cursor"); cursor != "" {
		if c, ok := decodeCursor(cursor); ok {
			filter.Cursor = &c
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			filter.Offset = n
		}
	}

	filter.SortBy = strings.TrimSpace(q.Get("sortBy"))
	switch domain.SortOrder(strings.ToLower(strings.TrimSpace(q.Get("sortOrder")))) {
	case domain.SortAsc:
		filter.SortOrder = domain.SortAsc
	default:
		filter.SortOrder = domain.SortDesc
	}
	return filter
}

// splitCSV splits on comma or semicolon, trims, drops empties, preserves
// order — the same input-parsing rule the native list filters and the qB
// compatibility layer both apply to list-shaped fields.
func splitCSV(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (s *Server) handleGetTorrent(w http.ResponseWriter, r *http.Request, id domain.TorrentID) {
	status, ok := s.inspector.Get(id)
	if !ok {
		writeProblem(w, apperr.New(apperr.KindNotFound, "torrent not found"))
		return
	}
	meta, _ := s.inspector.GetMetadata(id)
	writeJSON(w, http.StatusOK, toDetail(status, meta))
}

type createTorrentRequest struct {
	Magnet         string                `json:"magnet,omitempty"`
	MetainfoBase64 string                `json:"metainfoBase64,omitempty"`
	Options        domain.TorrentOptions `json:"options"`
}

func (s *Server) handleCreateTorrent(w http.ResponseWriter, r *http.Request) {
	var req createTorrentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeProblem(w, apperr.New(apperr.KindBadRequest, "invalid json body"))
		return
	}

	var metainfo []byte
	if req.MetainfoBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.MetainfoBase64)
		if err != nil {
			writeProblem(w, apperr.New(apperr.KindInvalidField, "metainfoBase64 is not valid base64"))
			return
		}
		metainfo = decoded
	}

	add := domain.AddTorrent{
		ID:      domain.NewTorrentID(),
		Source:  domain.TorrentSource{Magnet: req.Magnet, Metainfo: metainfo},
		Options: req.Options,
	}
	if err := add.Validate(); err != nil {
		writeProblem(w, mapAdmissionError(err))
		return
	}
	if err := s.workflow.AddTorrent(r.Context(), add); err != nil {
		writeProblem(w, mapAdmissionError(err))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]domain.TorrentID{"id": add.ID})
}
