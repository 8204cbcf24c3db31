package domain

// SortOrder is the direction applied to a TorrentListFilter's SortBy field.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TorrentListFilter captures the native API's /v1/torrents query
// parameters. All string comparisons are case-insensitive substring or
// containment checks, applied by the orchestrator's inspector side.
type TorrentListFilter struct {
	State     *TorrentStateKind
	Tags      []string
	Tracker   string
	Extension string
	Name      string
	Limit     int
	Cursor    *ListCursor

	// SortBy/SortOrder/Offset are a supplemental convenience on top of the
	// cursor pagination described above: a caller may page by plain
	// limit/offset and choose an alternate sort key instead of resuming
	// from a watermark. SortBy defaults to "lastUpdated" when empty;
	// recognized values are "name", "addedAt", "lastUpdated" and "progress".
	// Cursor takes precedence over Offset when both are supplied.
	SortBy    string
	SortOrder SortOrder
	Offset    int
}

// ListCursor is the opaque watermark encoded into the list response's
// next cursor: the (last_updated, id) pair of the final emitted row.
type ListCursor struct {
	LastUpdated int64 // unix nanoseconds
	ID          TorrentID
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)
