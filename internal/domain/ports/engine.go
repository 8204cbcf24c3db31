// Package ports declares the capability interfaces the core consumes from
// external collaborators: the native torrent engine, the durable config
// store, and the filesystem post-processor. None of these are implemented
// in this package — see internal/engine, internal/configstore and
// internal/fspolicy for adapters.
package ports

import (
	"context"

	"torrentstream/internal/domain"
)

// TrackerUpdate and WebSeedUpdate share the same replace-or-merge shape.
type TrackerUpdate struct {
	Trackers []string
	Replace  bool
}

type WebSeedUpdate struct {
	WebSeeds []string
	Replace  bool
}

type SelectionUpdate struct {
	Include    []string
	Exclude    []string
	SkipFluff  bool
	Priorities []domain.FilePriorityOverride
}

type LimitsUpdate struct {
	DownloadBps *uint64
	UploadBps   *uint64
}

type RemoveOptions struct {
	WithData bool
}

// TorrentEngine is the opaque capability the Orchestrator drives. Every
// mutating method is idempotent where noted and safe to call concurrently;
// the engine serializes what it needs to internally. Engine events are
// delivered out-of-band via Subscribe, never as return values.
type TorrentEngine interface {
	AddTorrent(ctx context.Context, add domain.AddTorrent) error
	// RemoveTorrent is idempotent: removing an unknown id is not an error.
	RemoveTorrent(ctx context.Context, id domain.TorrentID, opts RemoveOptions) error
	// PauseTorrent and ResumeTorrent are idempotent.
	PauseTorrent(ctx context.Context, id domain.TorrentID) error
	ResumeTorrent(ctx context.Context, id domain.TorrentID) error
	SetSequential(ctx context.Context, id domain.TorrentID, sequential bool) error
	// UpdateLimits applies a global limit when id is empty.
	UpdateLimits(ctx context.Context, id domain.TorrentID, limits LimitsUpdate) error
	UpdateSelection(ctx context.Context, id domain.TorrentID, sel SelectionUpdate) error
	UpdateOptions(ctx context.Context, id domain.TorrentID, update domain.TorrentOptionsUpdate) error
	UpdateTrackers(ctx context.Context, id domain.TorrentID, update TrackerUpdate) error
	UpdateWebSeeds(ctx context.Context, id domain.TorrentID, update WebSeedUpdate) error
	// MoveTorrent requires a trimmed, non-empty downloadDir.
	MoveTorrent(ctx context.Context, id domain.TorrentID, downloadDir string) error
	Reannounce(ctx context.Context, id domain.TorrentID) error
	Recheck(ctx context.Context, id domain.TorrentID) error
	ApplyEngineProfile(ctx context.Context, profile domain.EngineProfile) error

	// Subscribe returns the engine's own event stream: domain.Event values
	// restricted to the lifecycle/progress/fsops kinds (never Settings or
	// Health, which originate from ConfigService and the Orchestrator
	// respectively). Cancelling ctx stops delivery and closes the channel.
	Subscribe(ctx context.Context) (<-chan domain.Event, error)

	// Ping reports whether the engine is still reachable for health checks.
	// It returns an error once Close has been called.
	Ping(ctx context.Context) error

	Close() error
}
