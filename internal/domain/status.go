package domain

import (
	"math"
	"time"
)

// TorrentProgress reports byte-level completion. Percent is derived, never
// stored, and is always in [0,1].
type TorrentProgress struct {
	BytesDownloaded uint64 `json:"bytesDownloaded"`
	BytesTotal      uint64 `json:"bytesTotal"`
	ETASeconds      *int64 `json:"etaSeconds,omitempty"`
}

func (p TorrentProgress) Percent() float64 {
	if p.BytesTotal == 0 {
		return 0
	}
	v := float64(p.BytesDownloaded) / float64(p.BytesTotal)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type TorrentRates struct {
	DownloadBps uint64  `json:"downloadBps"`
	UploadBps   uint64  `json:"uploadBps"`
	Ratio       float64 `json:"ratio"`
}

type TorrentFile struct {
	Index          uint32       `json:"index"`
	Path           string       `json:"path"`
	SizeBytes      uint64       `json:"sizeBytes"`
	BytesCompleted uint64       `json:"bytesCompleted"`
	Priority       FilePriority `json:"priority"`
	Selected       bool         `json:"selected"`
}

// TorrentStatus is the full projected view the catalog maintains per
// torrent, reconstructed entirely from the event stream.
type TorrentStatus struct {
	ID           TorrentID      `json:"id"`
	Name         *string        `json:"name,omitempty"`
	State        TorrentState   `json:"state"`
	Progress     TorrentProgress `json:"progress"`
	Rates        TorrentRates   `json:"rates"`
	Files        []TorrentFile  `json:"files,omitempty"`
	DownloadDir  *string        `json:"downloadDir,omitempty"`
	LibraryPath  *string        `json:"libraryPath,omitempty"`
	Sequential   bool           `json:"sequential"`
	AddedAt      time.Time      `json:"addedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}

// SaturateInt64 narrows a u64 to an i64, saturating at MaxInt64 rather than
// wrapping or panicking, per the narrowing-conversion design note.
func SaturateInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// SaturatingAddUint64 sums two byte counters, saturating at MaxUint64.
func SaturatingAddUint64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}

// SaturateUint32 narrows an int (file index position) to a u32, saturating
// at MaxUint32 rather than wrapping.
func SaturateUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
