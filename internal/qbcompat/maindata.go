package qbcompat

import (
	"torrentstream/internal/domain"
)

// Inspector is the read surface qbcompat needs; orchestrator.Orchestrator
// satisfies it directly (its TorrentInspector is a superset).
type Inspector interface {
	List(filter domain.TorrentListFilter) []domain.TorrentStatus
	Get(id domain.TorrentID) (domain.TorrentStatus, bool)
	GetMetadata(id domain.TorrentID) (domain.TorrentMetadata, bool)
}

type mainData struct {
	Rid             uint64                `json:"rid"`
	FullUpdate      bool                  `json:"full_update"`
	Torrents        map[string]qbTorrent  `json:"torrents,omitempty"`
	TorrentsRemoved []string              `json:"torrents_removed,omitempty"`
	ServerState     serverState           `json:"server_state"`
}

type serverState struct {
	DlInfoSpeed int64 `json:"dl_info_speed"`
	UpInfoSpeed int64 `json:"up_info_speed"`
	DlInfoData  int64 `json:"dl_info_data"`
	UpInfoData  int64 `json:"up_info_data"`
	DlRateLimit int64 `json:"dl_rate_limit"`
	UpRateLimit int64 `json:"up_rate_limit"`
	Queueing    bool  `json:"queueing"`
}

// buildMainData implements the sync/maindata RID delta algorithm: a full
// snapshot on rid=0 or on a backlog gap, otherwise only the torrents
// touched by events since rid, plus removals for ids that no longer
// resolve.
func buildMainData(rid domain.EventID, inspector Inspector, bus EventSource) mainData {
	statuses := inspector.List(domain.TorrentListFilter{})
	byID := make(map[domain.TorrentID]domain.TorrentStatus, len(statuses))
	for _, s := range statuses {
		byID[s.ID] = s
	}

	var last domain.EventID
	if lastID := bus.LastEventID(); lastID != nil {
		last = *lastID
	}

	// fullUpdate triggers on rid=0 or a backlog gap (rid predates what the
	// ring still holds). bus.HasGap already implements exactly "would a
	// subscriber resuming from rid miss events" — using it here instead of
	// re-deriving the same gap condition from a raw BacklogSince(rid)
	// emptiness check, which doesn't actually go empty once any newer
	// event is still resident even when older ones were evicted out from
	// under rid.
	fullUpdate := rid == 0 || bus.HasGap(rid)
	eventsSince := bus.BacklogSince(rid)

	out := mainData{
		Rid:        uint64(last),
		FullUpdate: fullUpdate,
	}

	if fullUpdate {
		out.Torrents = make(map[string]qbTorrent, len(statuses))
		for _, s := range statuses {
			out.Torrents[s.ID.Compact()] = toQBTorrent(s, tagsFor(inspector, s.ID))
		}
	} else {
		changed := make(map[domain.TorrentID]struct{})
		for _, env := range eventsSince {
			if env.Event.TouchesTorrent() {
				changed[env.Event.TorrentID] = struct{}{}
			}
		}
		if len(changed) > 0 {
			out.Torrents = make(map[string]qbTorrent, len(changed))
		}
		for id := range changed {
			if s, ok := byID[id]; ok {
				out.Torrents[s.ID.Compact()] = toQBTorrent(s, tagsFor(inspector, s.ID))
			} else {
				out.TorrentsRemoved = append(out.TorrentsRemoved, id.Compact())
			}
		}
	}

	var dlSum, upSum, doneSum, totalSum uint64
	for _, s := range statuses {
		dlSum = domain.SaturatingAddUint64(dlSum, s.Rates.DownloadBps)
		upSum = domain.SaturatingAddUint64(upSum, s.Rates.UploadBps)
		doneSum = domain.SaturatingAddUint64(doneSum, s.Progress.BytesDownloaded)
		totalSum = domain.SaturatingAddUint64(totalSum, s.Progress.BytesTotal)
	}
	out.ServerState = serverState{
		DlInfoSpeed: domain.SaturateInt64(dlSum),
		UpInfoSpeed: domain.SaturateInt64(upSum),
		DlInfoData:  domain.SaturateInt64(doneSum),
		UpInfoData:  domain.SaturateInt64(totalSum),
		DlRateLimit: -1,
		UpRateLimit: -1,
		Queueing:    false,
	}
	return out
}

func tagsFor(inspector Inspector, id domain.TorrentID) []string {
	meta, ok := inspector.GetMetadata(id)
	if !ok {
		return nil
	}
	return meta.Tags
}
