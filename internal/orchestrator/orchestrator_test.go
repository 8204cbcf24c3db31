package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
	"torrentstream/internal/eventbus"
)

type fakeEngine struct {
	mu       sync.Mutex
	events   chan domain.Event
	added    []domain.AddTorrent
	removed  []domain.TorrentID
	moveErr  error
	moveArgs []string
	profiles []domain.EngineProfile
	pingErr  error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan domain.Event, 16)}
}

func (f *fakeEngine) AddTorrent(ctx context.Context, add domain.AddTorrent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, add)
	return nil
}

func (f *fakeEngine) RemoveTorrent(ctx context.Context, id domain.TorrentID, opts ports.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeEngine) PauseTorrent(ctx context.Context, id domain.TorrentID) error   { return nil }
func (f *fakeEngine) ResumeTorrent(ctx context.Context, id domain.TorrentID) error  { return nil }
func (f *fakeEngine) SetSequential(ctx context.Context, id domain.TorrentID, sequential bool) error {
	return nil
}
func (f *fakeEngine) UpdateLimits(ctx context.Context, id domain.TorrentID, limits ports.LimitsUpdate) error {
	return nil
}
func (f *fakeEngine) UpdateSelection(ctx context.Context, id domain.TorrentID, sel ports.SelectionUpdate) error {
	return nil
}
func (f *fakeEngine) UpdateOptions(ctx context.Context, id domain.TorrentID, update domain.TorrentOptionsUpdate) error {
	return nil
}
func (f *fakeEngine) UpdateTrackers(ctx context.Context, id domain.TorrentID, update ports.TrackerUpdate) error {
	return nil
}
func (f *fakeEngine) UpdateWebSeeds(ctx context.Context, id domain.TorrentID, update ports.WebSeedUpdate) error {
	return nil
}
func (f *fakeEngine) MoveTorrent(ctx context.Context, id domain.TorrentID, downloadDir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveArgs = append(f.moveArgs, downloadDir)
	return f.moveErr
}
func (f *fakeEngine) Reannounce(ctx context.Context, id domain.TorrentID) error { return nil }
func (f *fakeEngine) Recheck(ctx context.Context, id domain.TorrentID) error    { return nil }
func (f *fakeEngine) ApplyEngineProfile(ctx context.Context, profile domain.EngineProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, profile)
	return nil
}
func (f *fakeEngine) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	return f.events, nil
}
func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

type fakePolicy struct {
	mu      sync.Mutex
	applied []domain.TorrentID
	err     error
}

func (p *fakePolicy) Apply(ctx context.Context, policy domain.FsPolicy, id domain.TorrentID, libraryPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied = append(p.applied, id)
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func TestAddTorrentValidatesBeforeCallingEngine(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	err := o.AddTorrent(context.Background(), domain.AddTorrent{ID: "a", Source: domain.TorrentSource{}})
	if err == nil {
		t.Fatalf("expected validation error for a source with neither magnet nor metainfo")
	}
	if len(engine.added) != 0 {
		t.Errorf("engine should not be called when validation fails")
	}
}

func TestAddTorrentSeedsMetadata(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	add := domain.AddTorrent{
		ID:     "a",
		Source: domain.TorrentSource{Magnet: "magnet:?xt=urn:btih:abc"},
		Options: domain.TorrentOptions{
			Tags: []string{"linux"},
		},
	}
	if err := o.AddTorrent(context.Background(), add); err != nil {
		t.Fatalf("AddTorrent: %v", err)
	}

	meta, ok := o.GetMetadata("a")
	if !ok {
		t.Fatalf("expected metadata seeded for id a")
	}
	if len(meta.Tags) != 1 || meta.Tags[0] != "linux" {
		t.Errorf("Tags: got %v, want [linux]", meta.Tags)
	}
}

func TestRemoveTorrentDiscardsMetadata(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})
	o.AddTorrent(context.Background(), domain.AddTorrent{ID: "a", Source: domain.TorrentSource{Magnet: "magnet:?xt=urn:btih:abc"}})

	if err := o.RemoveTorrent(context.Background(), "a", true); err != nil {
		t.Fatalf("RemoveTorrent: %v", err)
	}
	if _, ok := o.GetMetadata("a"); ok {
		t.Errorf("expected metadata removed after RemoveTorrent")
	}
	if len(engine.removed) != 1 || engine.removed[0] != "a" {
		t.Errorf("engine.removed: got %v, want [a]", engine.removed)
	}
}

func TestMoveTorrentRejectsEmptyDir(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	err := o.MoveTorrent(context.Background(), "a", "   ")
	if err == nil {
		t.Fatalf("expected error for a whitespace-only directory")
	}
	if len(engine.moveArgs) != 0 {
		t.Errorf("engine should not be called for an invalid move target")
	}
}

func TestUpdateTrackersRejectsEmptyList(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	if err := o.UpdateTrackers(context.Background(), "a", nil, false); err == nil {
		t.Fatalf("expected error for an empty tracker list")
	}
}

func TestUpdateTagsMergesAndReplaces(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})
	o.AddTorrent(context.Background(), domain.AddTorrent{ID: "a", Source: domain.TorrentSource{Magnet: "magnet:?xt=urn:btih:abc"}})

	if err := o.UpdateTags(context.Background(), "a", []string{"linux", "4k"}, false); err != nil {
		t.Fatalf("UpdateTags: %v", err)
	}
	meta, _ := o.GetMetadata("a")
	if len(meta.Tags) != 2 {
		t.Fatalf("Tags = %v, want 2 entries", meta.Tags)
	}

	if err := o.UpdateTags(context.Background(), "a", []string{"only"}, true); err != nil {
		t.Fatalf("UpdateTags replace: %v", err)
	}
	meta, _ = o.GetMetadata("a")
	if len(meta.Tags) != 1 || meta.Tags[0] != "only" {
		t.Errorf("Tags after replace = %v, want [only]", meta.Tags)
	}
}

func TestUpdateTagsUnknownIDIsNotFound(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	err := o.UpdateTags(context.Background(), "missing", []string{"x"}, false)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateTagsRejectsEmptyNonReplace(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})
	o.AddTorrent(context.Background(), domain.AddTorrent{ID: "a", Source: domain.TorrentSource{Magnet: "magnet:?xt=urn:btih:abc"}})

	if err := o.UpdateTags(context.Background(), "a", nil, false); err == nil {
		t.Fatalf("expected error for an empty, non-replacing tag update")
	}
}

func TestHealthReportsEngineDegradedAndPublishesOnChange(t *testing.T) {
	engine := newFakeEngine()
	bus := eventbus.New(16)
	o := New(engine, bus, nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	sub := bus.Subscribe(context.Background(), 0)

	if degraded := o.Health(context.Background()); len(degraded) != 0 {
		t.Fatalf("degraded = %v, want none while engine is healthy", degraded)
	}

	engine.mu.Lock()
	engine.pingErr = errors.New("engine: closed")
	engine.mu.Unlock()

	degraded := o.Health(context.Background())
	if len(degraded) != 1 || degraded[0] != "engine" {
		t.Fatalf("degraded = %v, want [engine]", degraded)
	}

	select {
	case envelope := <-sub.Events:
		if envelope.Event.Kind != domain.EventHealthChanged {
			t.Errorf("event kind = %q, want health_changed", envelope.Event.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a HealthChanged event after the degraded set changed")
	}

	// A second call with the same degraded set must not publish again.
	o.Health(context.Background())
	select {
	case envelope := <-sub.Events:
		t.Fatalf("unexpected second event: %+v", envelope)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUpdateEngineProfileForwardsAndStores(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	profile := domain.EngineProfile{Encryption: domain.EncryptionPrefer}
	if err := o.UpdateEngineProfile(context.Background(), profile); err != nil {
		t.Fatalf("UpdateEngineProfile: %v", err)
	}
	if len(engine.profiles) != 1 {
		t.Fatalf("expected engine.ApplyEngineProfile to be called once")
	}
}

func TestExecuteActionDispatchesRemove(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	err := o.ExecuteAction(context.Background(), "a", domain.TorrentAction{Kind: domain.ActionRemove, WithData: true})
	if err != nil {
		t.Fatalf("ExecuteAction(remove): %v", err)
	}
	if len(engine.removed) != 1 {
		t.Errorf("expected remove to be forwarded to the engine")
	}
}

func TestExecuteActionMoveRejectsEmptyDir(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	err := o.ExecuteAction(context.Background(), "a", domain.TorrentAction{Kind: domain.ActionMove, DownloadDir: ""})
	if err == nil {
		t.Fatalf("expected validation error for an empty move target")
	}
}

func TestIngestLoopFeedsCatalogAndBus(t *testing.T) {
	engine := newFakeEngine()
	bus := eventbus.New(16)
	o := New(engine, bus, nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop()

	engine.events <- domain.Event{Kind: domain.EventTorrentAdded, TorrentID: "a", Name: strPtr("Ubuntu")}

	deadline := time.After(time.Second)
	for {
		if _, ok := o.Get("a"); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for catalog to observe TorrentAdded")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if last := bus.LastEventID(); last == nil {
		t.Errorf("expected the ingested event to also reach the bus")
	}
}

func TestPostProcessingWorkerAppliesPolicyOnCompleted(t *testing.T) {
	engine := newFakeEngine()
	bus := eventbus.New(16)
	policy := &fakePolicy{}
	o := New(engine, bus, policy, testLogger(), domain.FsPolicy{LibraryRoot: "/lib"}, domain.EngineProfile{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop()

	engine.events <- domain.Event{Kind: domain.EventCompleted, TorrentID: "a", LibraryPath: "/lib/a"}

	deadline := time.After(time.Second)
	for {
		policy.mu.Lock()
		n := len(policy.applied)
		policy.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for post-processing to apply policy")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestListAppliesNameFilterCaseInsensitive(t *testing.T) {
	engine := newFakeEngine()
	bus := eventbus.New(16)
	o := New(engine, bus, nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop()

	engine.events <- domain.Event{Kind: domain.EventTorrentAdded, TorrentID: "a", Name: strPtr("Ubuntu Desktop")}
	engine.events <- domain.Event{Kind: domain.EventTorrentAdded, TorrentID: "b", Name: strPtr("Debian Netinst")}

	deadline := time.After(time.Second)
	for {
		if _, ok := o.Get("b"); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for catalog to observe both torrents")
		case <-time.After(10 * time.Millisecond):
		}
	}

	list := o.List(domain.TorrentListFilter{Name: "ubuntu"})
	if len(list) != 1 || list[0].ID != "a" {
		t.Errorf("List(name=ubuntu): got %v, want [a]", list)
	}
}

func TestMustNotReorderEngineCallsBeforeValidation(t *testing.T) {
	engine := newFakeEngine()
	o := New(engine, eventbus.New(16), nil, testLogger(), domain.FsPolicy{}, domain.EngineProfile{})

	err := o.UpdateOptions(context.Background(), "a", domain.TorrentOptionsUpdate{})
	if !errors.Is(err, domain.ErrInvalidOption) {
		t.Errorf("expected ErrInvalidOption for an empty patch, got %v", err)
	}
}
