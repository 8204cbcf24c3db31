package domain

import "time"

// EventID is a monotonic, strictly increasing identifier assigned by the
// EventBus at publish time. The zero value is never assigned; ids start
// at 1.
type EventID uint64

// EventKind tags the variant carried by an EventEnvelope, used both for SSE
// framing (the `event:` line) and for qB delta-sync classification.
type EventKind string

const (
	EventTorrentAdded     EventKind = "torrent_added"
	EventFilesDiscovered  EventKind = "files_discovered"
	EventProgress         EventKind = "progress"
	EventStateChanged     EventKind = "state_changed"
	EventCompleted        EventKind = "completed"
	EventTorrentRemoved   EventKind = "torrent_removed"
	EventFsopsStarted     EventKind = "fsops_started"
	EventFsopsProgress    EventKind = "fsops_progress"
	EventFsopsCompleted   EventKind = "fsops_completed"
	EventFsopsFailed      EventKind = "fsops_failed"
	EventMetadataUpdated  EventKind = "metadata_updated"
	EventSettingsChanged  EventKind = "settings_changed"
	EventHealthChanged    EventKind = "health_changed"
)

// Event is the sum type of everything that can flow across the EventBus.
// Exactly the fields relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind EventKind `json:"kind"`

	TorrentID TorrentID `json:"torrentId,omitempty"`

	// TorrentAdded
	Name *string `json:"name,omitempty"`

	// FilesDiscovered
	Files []TorrentFile `json:"files,omitempty"`

	// Progress
	BytesDownloaded uint64 `json:"bytesDownloaded,omitempty"`
	BytesTotal      uint64 `json:"bytesTotal,omitempty"`

	// StateChanged / Completed / FsopsFailed
	State TorrentState `json:"state,omitempty"`

	// Completed
	LibraryPath string `json:"libraryPath,omitempty"`

	// FsopsFailed
	Message string `json:"message,omitempty"`

	// FsopsProgress
	FsopsBytesDone  uint64 `json:"fsopsBytesDone,omitempty"`
	FsopsBytesTotal uint64 `json:"fsopsBytesTotal,omitempty"`

	// MetadataUpdated
	DownloadDir *string `json:"downloadDir,omitempty"`

	// SettingsChanged
	Description string `json:"description,omitempty"`

	// HealthChanged
	Degraded []string `json:"degraded,omitempty"`
}

// EventEnvelope is what actually travels through the bus: a monotonic id
// and timestamp wrapped around the domain Event.
type EventEnvelope struct {
	ID        EventID   `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Event     Event     `json:"event"`
}

// TouchesTorrent reports whether this event is about a specific torrent's
// lifecycle (used by the qB delta-sync algorithm's "changed ids" pass).
// SettingsChanged and HealthChanged are global and never touch a torrent.
func (e Event) TouchesTorrent() bool {
	switch e.Kind {
	case EventSettingsChanged, EventHealthChanged:
		return false
	default:
		return true
	}
}
