// Package orchestrator composes the engine, catalog, event bus, metadata
// store and policy applier into the two facades the HTTP surfaces consume:
// TorrentWorkflow for mutations and TorrentInspector for reads. It owns the
// catalog and the engine handle exclusively; the event bus is shared by
// reference and the metadata store by mutex, matching the ownership model
// laid out for this core.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"torrentstream/internal/catalog"
	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
	"torrentstream/internal/eventbus"
	"torrentstream/internal/metadata"
)

// Orchestrator implements both TorrentWorkflow and TorrentInspector.
type Orchestrator struct {
	engine   ports.TorrentEngine
	catalog  *catalog.Catalog
	bus      *eventbus.Bus
	metadata *metadata.Store
	policy   ports.PolicyApplier
	log      *slog.Logger

	mu            sync.RWMutex
	fsPolicy      domain.FsPolicy
	engineProfile domain.EngineProfile

	healthMu     sync.Mutex
	lastDegraded []string

	cancel context.CancelFunc
	done   chan struct{}
}

// backlogPressureThreshold is the fraction of bus capacity occupied before
// the event bus itself is reported as a degraded component.
const backlogPressureThreshold = 0.9

// New constructs an Orchestrator with its starting fs/engine profile
// snapshots. Call Start to begin the background post-processing worker and
// the engine event ingestion loop.
func New(engine ports.TorrentEngine, bus *eventbus.Bus, policy ports.PolicyApplier, log *slog.Logger, fsPolicy domain.FsPolicy, engineProfile domain.EngineProfile) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		engine:        engine,
		catalog:       catalog.New(),
		bus:           bus,
		metadata:      metadata.New(),
		policy:        policy,
		log:           log,
		fsPolicy:      fsPolicy,
		engineProfile: engineProfile,
	}
}

// Start spawns the engine event ingestion loop (which folds every engine
// event into both the catalog and the shared bus) and the post-processing
// worker. Both are stopped by cancelling ctx or calling Stop.
func (o *Orchestrator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})

	events, err := o.engine.Subscribe(runCtx)
	if err != nil {
		cancel()
		return wrapEngine(err)
	}

	go o.ingest(runCtx, events)
	go o.runPostProcessing(runCtx)

	return nil
}

// Stop cancels the ingestion and worker goroutines spawned by Start and
// waits for the post-processing worker to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.done != nil {
		<-o.done
	}
}

func (o *Orchestrator) ingest(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			o.catalog.Observe(event)
			o.bus.Publish(event)
		}
	}
}

// List serves the native API's torrent list, joining catalog projections
// with metadata tags/trackers for filtering, then sorting and paginating.
func (o *Orchestrator) List(filter domain.TorrentListFilter) []domain.TorrentStatus {
	all := o.catalog.List()
	filtered := make([]domain.TorrentStatus, 0, len(all))

	for _, status := range all {
		if !matchesFilter(status, o.metaFor(status.ID), filter) {
			continue
		}
		filtered = append(filtered, status)
	}

	sortStatuses(filtered, filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	start := 0
	if filter.Cursor != nil {
		start = indexAfterCursor(filtered, *filter.Cursor)
	} else if filter.Offset > 0 {
		start = filter.Offset
		if start > len(filtered) {
			start = len(filtered)
		}
	}

	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

func (o *Orchestrator) metaFor(id domain.TorrentID) domain.TorrentMetadata {
	meta, _ := o.metadata.Get(id)
	return meta
}

// Get serves the native API's single-torrent read.
func (o *Orchestrator) Get(id domain.TorrentID) (domain.TorrentStatus, bool) {
	return o.catalog.Get(id)
}

// GetMetadata exposes the metadata record alongside the catalog projection.
func (o *Orchestrator) GetMetadata(id domain.TorrentID) (domain.TorrentMetadata, bool) {
	return o.metadata.Get(id)
}

// UpdateFsPolicy swaps the held fs policy snapshot under the writer lock.
// It does not call the engine.
func (o *Orchestrator) UpdateFsPolicy(ctx context.Context, policy domain.FsPolicy) error {
	o.mu.Lock()
	o.fsPolicy = policy
	o.mu.Unlock()
	return nil
}

// UpdateEngineProfile swaps the held engine profile snapshot and forwards
// it to the engine.
func (o *Orchestrator) UpdateEngineProfile(ctx context.Context, profile domain.EngineProfile) error {
	if err := o.engine.ApplyEngineProfile(ctx, profile); err != nil {
		return wrapEngine(err)
	}
	o.mu.Lock()
	o.engineProfile = profile
	o.mu.Unlock()
	return nil
}

// Health recomputes the degraded-component set (engine reachability, event
// bus backlog pressure) and publishes EventHealthChanged when it differs
// from the last computed set, so subscribers only see a transition, not a
// steady drumbeat of identical reports.
func (o *Orchestrator) Health(ctx context.Context) []string {
	var degraded []string
	if err := o.engine.Ping(ctx); err != nil {
		degraded = append(degraded, "engine")
	}
	if cap := o.bus.Capacity(); cap > 0 {
		if float64(o.bus.Len())/float64(cap) >= backlogPressureThreshold {
			degraded = append(degraded, "event_bus")
		}
	}

	o.healthMu.Lock()
	changed := !stringsEqual(degraded, o.lastDegraded)
	o.lastDegraded = degraded
	o.healthMu.Unlock()

	if changed {
		o.bus.Publish(domain.Event{Kind: domain.EventHealthChanged, Degraded: degraded})
	}
	return degraded
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (o *Orchestrator) fsPolicySnapshot() domain.FsPolicy {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fsPolicy
}
