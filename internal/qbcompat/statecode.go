package qbcompat

import "torrentstream/internal/domain"

// stateCode maps an internal torrent state to the qBittorrent state string
// clients key their UI off of. Failed carries no qB equivalent for its
// message, only the bare "error" code.
func stateCode(state domain.TorrentState) string {
	switch state.Kind {
	case domain.StateQueued:
		return "queuedDL"
	case domain.StateFetchingMetadata:
		return "metaDL"
	case domain.StateDownloading:
		return "downloading"
	case domain.StateSeeding:
		return "uploading"
	case domain.StateCompleted:
		return "stalledUP"
	case domain.StateFailed:
		return "error"
	case domain.StateStopped:
		return "pausedDL"
	default:
		return "unknown"
	}
}
