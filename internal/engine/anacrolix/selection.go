package anacrolix

import (
	"context"
	"strings"

	"github.com/anacrolix/torrent"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

// fluffExtensions lists file suffixes commonly skipped when skip_fluff is
// requested: samples, subtitles bundled outside the main container,
// checksums and scene-release extras, never the media payload itself.
var fluffExtensions = []string{
	".nfo", ".txt", ".jpg", ".jpeg", ".png", ".url", ".sfv", ".md5", ".diz",
}

func isFluff(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range fluffExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func mapPriority(p domain.FilePriority) torrent.PiecePriority {
	switch p {
	case domain.PrioritySkip:
		return torrent.PiecePriorityNone
	case domain.PriorityLow:
		return torrent.PiecePriorityNormal
	case domain.PriorityHigh:
		return torrent.PiecePriorityReadahead
	case domain.PriorityNormal:
		return torrent.PiecePriorityNormal
	default:
		return torrent.PiecePriorityNormal
	}
}

// applySelection sets per-file priority once metadata is available. It is
// a no-op until GotInfo fires; the poller re-applies the last-known
// selection once files are discovered (see poll.go).
func applySelection(t *torrent.Torrent, sel domain.Selection) {
	select {
	case <-t.GotInfo():
	default:
		return
	}

	overrides := make(map[int]domain.FilePriority, len(sel.Priorities))
	for _, o := range sel.Priorities {
		overrides[int(o.Index)] = o.Priority
	}

	for i, f := range t.Files() {
		if prio, ok := overrides[i]; ok {
			f.SetPriority(mapPriority(prio))
			continue
		}
		if sel.SkipFluff && isFluff(f.Path()) {
			f.SetPriority(torrent.PiecePriorityNone)
			continue
		}
		if !matchesSelection(f.Path(), sel.Include, sel.Exclude) {
			f.SetPriority(torrent.PiecePriorityNone)
			continue
		}
		f.SetPriority(torrent.PiecePriorityNormal)
	}
}

// matchesSelection reports whether a file path should be fetched given the
// include/exclude substring lists. An empty include list means everything
// is included unless excluded.
func matchesSelection(path string, include, exclude []string) bool {
	lower := strings.ToLower(path)
	for _, pat := range exclude {
		if pat != "" && strings.Contains(lower, strings.ToLower(pat)) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if pat != "" && strings.Contains(lower, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}

func (e *Engine) UpdateSelection(ctx context.Context, id domain.TorrentID, sel ports.SelectionUpdate) error {
	tracked, ok := e.get(id)
	if !ok {
		return nil
	}
	applySelection(tracked.t, domain.Selection{
		Include:    sel.Include,
		Exclude:    sel.Exclude,
		SkipFluff:  sel.SkipFluff,
		Priorities: sel.Priorities,
	})
	return nil
}

func (e *Engine) UpdateOptions(ctx context.Context, id domain.TorrentID, update domain.TorrentOptionsUpdate) error {
	tracked, ok := e.get(id)
	if !ok {
		return nil
	}
	if update.Sequential != nil {
		e.mu.Lock()
		tracked.sequential = *update.Sequential
		e.mu.Unlock()
	}
	if update.DownloadDir != nil {
		e.mu.Lock()
		tracked.downloadDir = *update.DownloadDir
		e.mu.Unlock()
	}
	// MaxConnections, SeedRatioLimit, SeedTimeLimit, AutoManaged,
	// QueuePosition, SuperSeeding, PexEnabled have no anacrolix equivalent
	// exposed on a running *torrent.Torrent; they are honored purely as
	// metadata by internal/metadata.Store.
	return nil
}

func (e *Engine) UpdateTrackers(ctx context.Context, id domain.TorrentID, update ports.TrackerUpdate) error {
	tracked, ok := e.get(id)
	if !ok || len(update.Trackers) == 0 {
		return nil
	}
	// anacrolix exposes no way to remove an already-registered tracker
	// tier; "replace" can only add the new tier alongside whatever tiers
	// the metainfo/magnet originally carried.
	tracked.t.AddTrackers([][]string{update.Trackers})
	return nil
}

func (e *Engine) UpdateWebSeeds(ctx context.Context, id domain.TorrentID, update ports.WebSeedUpdate) error {
	tracked, ok := e.get(id)
	if !ok || len(update.WebSeeds) == 0 {
		return nil
	}
	tracked.t.AddWebSeeds(update.WebSeeds)
	return nil
}
