package anacrolix

import (
	"context"
	"time"

	"github.com/anacrolix/torrent"

	"torrentstream/internal/domain"
)

// runPoller is the single goroutine that turns repeated
// Stats()/GotInfo()/BytesCompleted() snapshots into the domain event
// stream. One ticker tick visits every tracked torrent under a
// read-lock-guarded snapshot of the id list, then emits state outside the
// lock so a slow subscriber channel send never blocks other torrents'
// bookkeeping.
func (e *Engine) runPoller(ctx context.Context) {
	defer close(e.pollDone)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(e.events)
			return
		case <-ticker.C:
			e.pollOnce()
		}
	}
}

func (e *Engine) pollOnce() {
	e.mu.RLock()
	ids := make([]domain.TorrentID, 0, len(e.tracked))
	snapshots := make([]*trackedTorrent, 0, len(e.tracked))
	for id, tr := range e.tracked {
		ids = append(ids, id)
		snapshots = append(snapshots, tr)
	}
	e.mu.RUnlock()

	for i, id := range ids {
		e.pollOne(id, snapshots[i])
	}
}

// pollOne reads the fields the public API mutates (paused, downloadDir,
// seedMode) under the read lock; stateKind/filesEmitted/lastBytes are
// exclusively written by this poller goroutine and need no lock.
func (e *Engine) pollOne(id domain.TorrentID, tr *trackedTorrent) {
	t := tr.t

	if !torrentInfoReady(t) {
		e.transition(id, tr, domain.StateFetchingMetadata)
		return
	}

	if !tr.filesEmitted {
		e.emit(domain.Event{Kind: domain.EventFilesDiscovered, TorrentID: id, Files: mapFiles(t)})
		tr.filesEmitted = true
		applySelection(t, domain.Selection{}) // re-assert defaults now that Files() is populated
	}

	e.mu.RLock()
	paused := tr.paused
	seedMode := tr.seedMode
	downloadDir := tr.downloadDir
	e.mu.RUnlock()

	length := t.Length()
	completed := t.BytesCompleted()
	if length > 0 && completed >= length {
		if tr.stateKind != domain.StateCompleted {
			e.transition(id, tr, domain.StateCompleted)
			e.emit(domain.Event{Kind: domain.EventCompleted, TorrentID: id, State: domain.Completed(), LibraryPath: downloadDir})
		}
		return
	}

	if uint64(completed) != tr.lastBytes {
		tr.lastBytes = uint64(completed)
		e.emit(domain.Event{
			Kind:            domain.EventProgress,
			TorrentID:       id,
			BytesDownloaded: uint64(completed),
			BytesTotal:      uint64(length),
		})
	}

	switch {
	case paused:
		e.transition(id, tr, domain.StateStopped)
	case seedMode && length > 0 && completed >= length:
		e.transition(id, tr, domain.StateSeeding)
	default:
		e.transition(id, tr, domain.StateDownloading)
	}
}

func (e *Engine) transition(id domain.TorrentID, tr *trackedTorrent, kind domain.TorrentStateKind) {
	if tr.stateKind == kind {
		return
	}
	tr.stateKind = kind
	e.emit(domain.Event{Kind: domain.EventStateChanged, TorrentID: id, State: domain.TorrentState{Kind: kind}})
}

func torrentInfoReady(t *torrent.Torrent) bool {
	if t == nil {
		return false
	}
	select {
	case <-t.GotInfo():
		return true
	default:
		return false
	}
}

func mapFiles(t *torrent.Torrent) []domain.TorrentFile {
	if !torrentInfoReady(t) {
		return nil
	}
	files := t.Files()
	mapped := make([]domain.TorrentFile, 0, len(files))
	for i, f := range files {
		mapped = append(mapped, domain.TorrentFile{
			Index:     domain.SaturateUint32(i),
			Path:      f.Path(),
			SizeBytes: uint64(f.Length()),
		})
	}
	return mapped
}
