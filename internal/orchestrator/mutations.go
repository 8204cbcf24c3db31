package orchestrator

import (
	"context"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
	"torrentstream/internal/metadata"
)

// AddTorrent validates the request, admits it to the engine, and seeds the
// metadata record. The catalog entry itself is created later, when the
// engine emits TorrentAdded.
func (o *Orchestrator) AddTorrent(ctx context.Context, add domain.AddTorrent) error {
	if err := add.Validate(); err != nil {
		return err
	}
	if err := o.engine.AddTorrent(ctx, add); err != nil {
		return wrapEngine(err)
	}
	o.metadata.Set(add.ID, domain.NewMetadataFromOptions(add.Options))
	return nil
}

// RemoveTorrent is idempotent. Metadata is discarded regardless of whether
// the engine call reports the id as already gone.
func (o *Orchestrator) RemoveTorrent(ctx context.Context, id domain.TorrentID, withData bool) error {
	if err := o.engine.RemoveTorrent(ctx, id, ports.RemoveOptions{WithData: withData}); err != nil {
		return wrapEngine(err)
	}
	o.metadata.Remove(id)
	return nil
}

func (o *Orchestrator) PauseTorrent(ctx context.Context, id domain.TorrentID) error {
	if err := o.engine.PauseTorrent(ctx, id); err != nil {
		return wrapEngine(err)
	}
	return nil
}

func (o *Orchestrator) ResumeTorrent(ctx context.Context, id domain.TorrentID) error {
	if err := o.engine.ResumeTorrent(ctx, id); err != nil {
		return wrapEngine(err)
	}
	return nil
}

func (o *Orchestrator) SetSequential(ctx context.Context, id domain.TorrentID, sequential bool) error {
	if err := o.engine.SetSequential(ctx, id, sequential); err != nil {
		return wrapEngine(err)
	}
	return nil
}

// UpdateLimits applies a per-torrent limit, or a global one when id is
// empty. On success the metadata record (if any) is updated to mirror it.
func (o *Orchestrator) UpdateLimits(ctx context.Context, id domain.TorrentID, downloadBps, uploadBps *uint64) error {
	if err := o.engine.UpdateLimits(ctx, id, ports.LimitsUpdate{DownloadBps: downloadBps, UploadBps: uploadBps}); err != nil {
		return wrapEngine(err)
	}
	if id != "" {
		o.metadata.Update(id, func(m *domain.TorrentMetadata) {
			metadata.ApplyRateLimit(m, domain.RateLimit{DownloadBps: downloadBps, UploadBps: uploadBps})
		})
	}
	return nil
}

func (o *Orchestrator) UpdateSelection(ctx context.Context, id domain.TorrentID, sel domain.Selection) error {
	update := ports.SelectionUpdate{
		Include:    sel.Include,
		Exclude:    sel.Exclude,
		SkipFluff:  sel.SkipFluff,
		Priorities: sel.Priorities,
	}
	if err := o.engine.UpdateSelection(ctx, id, update); err != nil {
		return wrapEngine(err)
	}
	return nil
}

func (o *Orchestrator) UpdateOptions(ctx context.Context, id domain.TorrentID, update domain.TorrentOptionsUpdate) error {
	if update.IsEmpty() {
		return errOptEmpty("options")
	}
	if err := o.engine.UpdateOptions(ctx, id, update); err != nil {
		return wrapEngine(err)
	}
	o.metadata.Update(id, func(m *domain.TorrentMetadata) {
		metadata.ApplyOptionsUpdate(m, update)
	})
	return nil
}

func (o *Orchestrator) UpdateTrackers(ctx context.Context, id domain.TorrentID, trackers []string, replace bool) error {
	if len(trackers) == 0 {
		return errOptEmpty("trackers")
	}
	if err := o.engine.UpdateTrackers(ctx, id, ports.TrackerUpdate{Trackers: trackers, Replace: replace}); err != nil {
		return wrapEngine(err)
	}
	o.metadata.Update(id, func(m *domain.TorrentMetadata) {
		metadata.ApplyTrackerUpdate(m, trackers, replace)
	})
	return nil
}

func (o *Orchestrator) UpdateWebSeeds(ctx context.Context, id domain.TorrentID, webSeeds []string, replace bool) error {
	if len(webSeeds) == 0 {
		return errOptEmpty("webSeeds")
	}
	if err := o.engine.UpdateWebSeeds(ctx, id, ports.WebSeedUpdate{WebSeeds: webSeeds, Replace: replace}); err != nil {
		return wrapEngine(err)
	}
	o.metadata.Update(id, func(m *domain.TorrentMetadata) {
		metadata.ApplyWebSeedUpdate(m, webSeeds, replace)
	})
	return nil
}

// UpdateTags merges or replaces a torrent's tag list. Unlike trackers and
// web seeds this has no engine-side counterpart — tags are a metadata-only
// annotation — so there is nothing to call before updating the store.
func (o *Orchestrator) UpdateTags(ctx context.Context, id domain.TorrentID, tags []string, replace bool) error {
	if len(tags) == 0 && !replace {
		return errOptEmpty("tags")
	}
	if ok := o.metadata.Update(id, func(m *domain.TorrentMetadata) {
		metadata.ApplyTagsUpdate(m, tags, replace)
	}); !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (o *Orchestrator) MoveTorrent(ctx context.Context, id domain.TorrentID, downloadDir string) error {
	if trimmedEmpty(downloadDir) {
		return errOptEmpty("downloadDir")
	}
	if err := o.engine.MoveTorrent(ctx, id, downloadDir); err != nil {
		return wrapEngine(err)
	}
	o.metadata.Update(id, func(m *domain.TorrentMetadata) {
		metadata.ApplyMoveDir(m, downloadDir)
	})
	return nil
}

func (o *Orchestrator) Reannounce(ctx context.Context, id domain.TorrentID) error {
	if err := o.engine.Reannounce(ctx, id); err != nil {
		return wrapEngine(err)
	}
	return nil
}

func (o *Orchestrator) Recheck(ctx context.Context, id domain.TorrentID) error {
	if err := o.engine.Recheck(ctx, id); err != nil {
		return wrapEngine(err)
	}
	return nil
}

// ExecuteAction dispatches the single-id action handler (and its bulk
// counterpart, which simply calls this per id) onto the matching mutation.
func (o *Orchestrator) ExecuteAction(ctx context.Context, id domain.TorrentID, action domain.TorrentAction) error {
	if err := action.Validate(); err != nil {
		return err
	}
	switch action.Kind {
	case domain.ActionPause:
		return o.PauseTorrent(ctx, id)
	case domain.ActionResume:
		return o.ResumeTorrent(ctx, id)
	case domain.ActionSetSequential:
		return o.SetSequential(ctx, id, action.Sequential)
	case domain.ActionMove:
		return o.MoveTorrent(ctx, id, action.DownloadDir)
	case domain.ActionRate:
		return o.UpdateLimits(ctx, id, action.DownloadBps, action.UploadBps)
	case domain.ActionReannounce:
		return o.Reannounce(ctx, id)
	case domain.ActionRecheck:
		return o.Recheck(ctx, id)
	case domain.ActionRemove:
		return o.RemoveTorrent(ctx, id, action.WithData)
	default:
		return errOptEmpty("kind")
	}
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func errOptEmpty(field string) error {
	return &domain.InvalidOptionError{Field: field, Reason: "must not be empty"}
}
