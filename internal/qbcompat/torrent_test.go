package qbcompat

import (
	"testing"
	"time"

	"torrentstream/internal/domain"
)

func TestToQBTorrentBasic(t *testing.T) {
	id := domain.NewTorrentID()
	name := "ubuntu.iso"
	dir := "/downloads"
	addedAt := time.Unix(1700000000, 0)

	status := domain.TorrentStatus{
		ID:          id,
		Name:        &name,
		State:       domain.Seeding(),
		Progress:    domain.TorrentProgress{BytesDownloaded: 100, BytesTotal: 100},
		Rates:       domain.TorrentRates{DownloadBps: 0, UploadBps: 500, Ratio: 1.5},
		DownloadDir: &dir,
		AddedAt:     addedAt,
	}

	got := toQBTorrent(status, []string{"movies", "hd"})
	if got.Hash != id.Compact() {
		t.Errorf("Hash = %q, want %q", got.Hash, id.Compact())
	}
	if got.Name != name {
		t.Errorf("Name = %q, want %q", got.Name, name)
	}
	if got.State != "uploading" {
		t.Errorf("State = %q, want uploading", got.State)
	}
	if got.Progress != 1.0 {
		t.Errorf("Progress = %v, want 1.0", got.Progress)
	}
	if got.Eta != -1 {
		t.Errorf("Eta = %d, want -1 (no ETA)", got.Eta)
	}
	if got.CompletionOn != -1 {
		t.Errorf("CompletionOn = %d, want -1 (not completed)", got.CompletionOn)
	}
	if got.Tags != "movies,hd" {
		t.Errorf("Tags = %q, want %q", got.Tags, "movies,hd")
	}
	if got.SavePath != dir {
		t.Errorf("SavePath = %q, want %q", got.SavePath, dir)
	}
}

func TestToQBTorrentSaturatesByteCounts(t *testing.T) {
	status := domain.TorrentStatus{
		ID:       domain.NewTorrentID(),
		Progress: domain.TorrentProgress{BytesDownloaded: 1 << 63, BytesTotal: 1 << 63},
	}
	got := toQBTorrent(status, nil)
	if got.Downloaded < 0 || got.Size < 0 {
		t.Errorf("expected saturated non-negative values, got downloaded=%d size=%d", got.Downloaded, got.Size)
	}
}

func TestHashSetAndMatches(t *testing.T) {
	set := hashSet([]string{"ABCDEF", "123456"})
	if !matchesHash("abcdef", set) {
		t.Error("expected case-insensitive match")
	}
	if matchesHash("ffffff", set) {
		t.Error("unexpected match")
	}
}
