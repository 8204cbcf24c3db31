package domain

// TorrentState is a sum type over the torrent's lifecycle. Only Failed
// carries a payload; all others are represented by the Kind tag alone.
type TorrentStateKind string

const (
	StateQueued           TorrentStateKind = "queued"
	StateFetchingMetadata TorrentStateKind = "fetching_metadata"
	StateDownloading      TorrentStateKind = "downloading"
	StateSeeding          TorrentStateKind = "seeding"
	StateCompleted        TorrentStateKind = "completed"
	StateStopped          TorrentStateKind = "stopped"
	StateFailed           TorrentStateKind = "failed"
)

type TorrentState struct {
	Kind    TorrentStateKind `json:"kind"`
	Message string           `json:"message,omitempty"` // only set when Kind == StateFailed
}

func Queued() TorrentState           { return TorrentState{Kind: StateQueued} }
func FetchingMetadata() TorrentState { return TorrentState{Kind: StateFetchingMetadata} }
func Downloading() TorrentState      { return TorrentState{Kind: StateDownloading} }
func Seeding() TorrentState          { return TorrentState{Kind: StateSeeding} }
func Completed() TorrentState        { return TorrentState{Kind: StateCompleted} }
func Stopped() TorrentState          { return TorrentState{Kind: StateStopped} }
func Failed(message string) TorrentState {
	return TorrentState{Kind: StateFailed, Message: message}
}
