package qbcompat

import (
	"strings"

	"torrentstream/internal/domain"
)

// qbTorrent is the qBittorrent API v2 torrent info shape, restricted to the
// fields *arr-style clients actually read.
type qbTorrent struct {
	Hash         string  `json:"hash"`
	Name         string  `json:"name"`
	State        string  `json:"state"`
	Progress     float64 `json:"progress"`
	Size         int64   `json:"size"`
	Downloaded   int64   `json:"downloaded"`
	DlSpeed      int64   `json:"dlspeed"`
	UpSpeed      int64   `json:"upspeed"`
	Eta          int64   `json:"eta"`
	Ratio        float64 `json:"ratio"`
	SavePath     string  `json:"save_path"`
	Category     string  `json:"category"`
	Tags         string  `json:"tags"`
	AddedOn      int64   `json:"added_on"`
	CompletionOn int64   `json:"completion_on"`
}

// toQBTorrent renders a catalog projection plus its metadata annotations
// into the qB wire shape. tags may be nil when no metadata record exists
// (e.g. a torrent the engine reports but whose metadata was never seeded).
func toQBTorrent(status domain.TorrentStatus, tags []string) qbTorrent {
	name := ""
	if status.Name != nil {
		name = *status.Name
	}
	savePath := ""
	if status.DownloadDir != nil {
		savePath = *status.DownloadDir
	} else if status.LibraryPath != nil {
		savePath = *status.LibraryPath
	}

	eta := int64(-1)
	if status.Progress.ETASeconds != nil {
		eta = *status.Progress.ETASeconds
	}

	completionOn := int64(-1)
	if status.CompletedAt != nil {
		completionOn = status.CompletedAt.Unix()
	}

	return qbTorrent{
		Hash:         status.ID.Compact(),
		Name:         name,
		State:        stateCode(status.State),
		Progress:     status.Progress.Percent(),
		Size:         domain.SaturateInt64(status.Progress.BytesTotal),
		Downloaded:   domain.SaturateInt64(status.Progress.BytesDownloaded),
		DlSpeed:      domain.SaturateInt64(status.Rates.DownloadBps),
		UpSpeed:      domain.SaturateInt64(status.Rates.UploadBps),
		Eta:          eta,
		Ratio:        status.Rates.Ratio,
		SavePath:     savePath,
		Category:     "",
		Tags:         strings.Join(tags, ","),
		AddedOn:      status.AddedAt.Unix(),
		CompletionOn: completionOn,
	}
}

// matchesHash reports whether a torrent's compact hash appears in a
// case-insensitive hash-filter set.
func matchesHash(hash string, wanted map[string]struct{}) bool {
	_, ok := wanted[strings.ToLower(hash)]
	return ok
}

// hashSet builds a case-insensitive lookup set from a split hash list.
func hashSet(hashes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		out[strings.ToLower(h)] = struct{}{}
	}
	return out
}
