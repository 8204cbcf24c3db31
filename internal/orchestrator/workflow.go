package orchestrator

import (
	"context"

	"torrentstream/internal/domain"
)

// TorrentWorkflow is the mutation surface both HTTP façades drive. Every
// method forwards to the engine first and only touches metadata after the
// engine call succeeds — no partial mutations are ever visible.
type TorrentWorkflow interface {
	AddTorrent(ctx context.Context, add domain.AddTorrent) error
	RemoveTorrent(ctx context.Context, id domain.TorrentID, withData bool) error
	PauseTorrent(ctx context.Context, id domain.TorrentID) error
	ResumeTorrent(ctx context.Context, id domain.TorrentID) error
	SetSequential(ctx context.Context, id domain.TorrentID, sequential bool) error
	UpdateLimits(ctx context.Context, id domain.TorrentID, downloadBps, uploadBps *uint64) error
	UpdateSelection(ctx context.Context, id domain.TorrentID, sel domain.Selection) error
	UpdateOptions(ctx context.Context, id domain.TorrentID, update domain.TorrentOptionsUpdate) error
	UpdateTrackers(ctx context.Context, id domain.TorrentID, trackers []string, replace bool) error
	UpdateWebSeeds(ctx context.Context, id domain.TorrentID, webSeeds []string, replace bool) error
	MoveTorrent(ctx context.Context, id domain.TorrentID, downloadDir string) error
	Reannounce(ctx context.Context, id domain.TorrentID) error
	Recheck(ctx context.Context, id domain.TorrentID) error
	ExecuteAction(ctx context.Context, id domain.TorrentID, action domain.TorrentAction) error

	UpdateFsPolicy(ctx context.Context, policy domain.FsPolicy) error
	UpdateEngineProfile(ctx context.Context, profile domain.EngineProfile) error
}

// TorrentInspector is the read surface, served entirely from the catalog
// and metadata store — never from the engine directly.
type TorrentInspector interface {
	List(filter domain.TorrentListFilter) []domain.TorrentStatus
	Get(id domain.TorrentID) (domain.TorrentStatus, bool)
	GetMetadata(id domain.TorrentID) (domain.TorrentMetadata, bool)
}
