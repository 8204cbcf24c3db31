package ports

import (
	"context"

	"torrentstream/internal/domain"
)

// PolicyApplier is invoked by the Orchestrator's post-processing worker
// once per completed torrent. It never registers itself with the engine;
// it is handed the event bus as a parameter (see internal/orchestrator) and
// is responsible for emitting FsopsStarted/Progress/Completed/Failed back
// into it as the move/extract/cleanup pipeline runs.
type PolicyApplier interface {
	Apply(ctx context.Context, policy domain.FsPolicy, id domain.TorrentID, libraryPath string) error
}
