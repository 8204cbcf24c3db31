// Package fspolicy implements ports.PolicyApplier: the extract/par2/
// flatten/move/cleanup/chmod pipeline the orchestrator's post-processing
// worker runs once per completed torrent. Grounded on the teacher's
// delete-torrent path-safety checks and disk-space probes, generalized
// from a single deletion step into a multi-stage move pipeline.
package fspolicy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/eventbus"
	"torrentstream/internal/metrics"
)

// ErrInsufficientSpace is returned when the library root doesn't have room
// for the torrent's on-disk data before a move is attempted.
var ErrInsufficientSpace = errors.New("insufficient free space on library root")

// progressInterval bounds how often FsopsProgress is published during a
// large move; publishing per-file would flood the bus for thousand-file
// releases.
const progressInterval = 500 * time.Millisecond

// Applier is the concrete ports.PolicyApplier. It is handed the same bus
// the orchestrator publishes torrent lifecycle events on, so its
// Fsops* events interleave correctly with everything else a subscriber
// observes.
type Applier struct {
	bus  *eventbus.Bus
	log  *slog.Logger
	par2 par2Verifier
}

// New constructs an Applier. par2Binary selects the external par2 CLI
// (empty defaults to "par2" on PATH).
func New(bus *eventbus.Bus, log *slog.Logger, par2Binary string) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{bus: bus, log: log, par2: newPar2Verifier(par2Binary)}
}

// Apply runs the configured pipeline against a single completed torrent's
// data at libraryPath, relocating it under policy.LibraryRoot. Every stage
// is best-effort up to the first hard failure; a failure at any stage
// emits FsopsFailed and aborts the remaining stages.
func (a *Applier) Apply(ctx context.Context, policy domain.FsPolicy, id domain.TorrentID, libraryPath string) error {
	a.bus.Publish(domain.Event{Kind: domain.EventFsopsStarted, TorrentID: id})

	src, err := ensureAllowed(libraryPath, policy.AllowPaths)
	if err != nil {
		return a.fail(id, fmt.Errorf("resolve library path: %w", err))
	}

	if policy.Extract {
		if err := extractAll(src); err != nil {
			return a.fail(id, fmt.Errorf("extract: %w", err))
		}
	}
	if policy.Par2 {
		if err := a.par2.verifyAndRepair(ctx, src); err != nil {
			return a.fail(id, fmt.Errorf("par2: %w", err))
		}
	}
	if policy.Flatten {
		if err := flattenSingleChild(src); err != nil {
			return a.fail(id, fmt.Errorf("flatten: %w", err))
		}
	}

	dest := src
	if policy.LibraryRoot != "" {
		dest = filepath.Join(policy.LibraryRoot, filepath.Base(src))
		if err := a.checkSpace(policy.LibraryRoot, src); err != nil {
			return a.fail(id, err)
		}
		if err := a.move(ctx, id, src, dest, policy.MoveMode); err != nil {
			return a.fail(id, fmt.Errorf("move: %w", err))
		}
	}

	if len(policy.CleanupKeep) > 0 || len(policy.CleanupDrop) > 0 {
		if err := applyCleanup(dest, policy.CleanupKeep, policy.CleanupDrop); err != nil {
			return a.fail(id, fmt.Errorf("cleanup: %w", err))
		}
	}
	if policy.ChmodFile != nil || policy.ChmodDir != nil {
		if err := applyChmod(dest, policy.ChmodFile, policy.ChmodDir); err != nil {
			return a.fail(id, fmt.Errorf("chmod: %w", err))
		}
	}

	a.bus.Publish(domain.Event{Kind: domain.EventFsopsCompleted, TorrentID: id})
	return nil
}

func (a *Applier) checkSpace(libraryRoot, src string) error {
	free, err := diskFreeBytes(libraryRoot)
	if err != nil {
		// Disk-space probing is best-effort; a platform without a Statfs
		// syscall (diskspace_other.go) must not block every move.
		a.log.Warn("fspolicy: disk space check unavailable", "error", err)
		return nil
	}
	needed := treeSize(src)
	if uint64(free) < needed {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrInsufficientSpace, needed, free)
	}
	return nil
}

func (a *Applier) move(ctx context.Context, id domain.TorrentID, src, dest string, mode domain.MoveMode) error {
	var lastReport time.Time
	return moveTree(src, dest, mode, func(done, total uint64) {
		now := time.Now()
		if now.Sub(lastReport) < progressInterval && done < total {
			return
		}
		lastReport = now
		a.bus.Publish(domain.Event{
			Kind:            domain.EventFsopsProgress,
			TorrentID:       id,
			FsopsBytesDone:  done,
			FsopsBytesTotal: total,
		})
	})
}

func (a *Applier) fail(id domain.TorrentID, cause error) error {
	a.log.Error("fspolicy: post-processing failed", "torrent_id", string(id), "error", cause)
	metrics.FsopsFailuresTotal.Inc()
	a.bus.Publish(domain.Event{
		Kind:      domain.EventFsopsFailed,
		TorrentID: id,
		State:     domain.Failed(cause.Error()),
		Message:   cause.Error(),
	})
	return cause
}
