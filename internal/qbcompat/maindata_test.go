package qbcompat

import (
	"testing"

	"torrentstream/internal/domain"
	"torrentstream/internal/eventbus"
)

type fakeInspector struct {
	statuses map[domain.TorrentID]domain.TorrentStatus
	meta     map[domain.TorrentID]domain.TorrentMetadata
}

func newFakeInspector() *fakeInspector {
	return &fakeInspector{
		statuses: make(map[domain.TorrentID]domain.TorrentStatus),
		meta:     make(map[domain.TorrentID]domain.TorrentMetadata),
	}
}

func (f *fakeInspector) List(domain.TorrentListFilter) []domain.TorrentStatus {
	out := make([]domain.TorrentStatus, 0, len(f.statuses))
	for _, s := range f.statuses {
		out = append(out, s)
	}
	return out
}

func (f *fakeInspector) Get(id domain.TorrentID) (domain.TorrentStatus, bool) {
	s, ok := f.statuses[id]
	return s, ok
}

func (f *fakeInspector) GetMetadata(id domain.TorrentID) (domain.TorrentMetadata, bool) {
	m, ok := f.meta[id]
	return m, ok
}

func TestBuildMainDataFullOnZeroRid(t *testing.T) {
	bus := eventbus.New(1024)
	inspector := newFakeInspector()

	id := domain.NewTorrentID()
	bus.Publish(domain.Event{Kind: domain.EventTorrentAdded, TorrentID: id})
	bus.Publish(domain.Event{Kind: domain.EventProgress, TorrentID: id, BytesDownloaded: 0, BytesTotal: 100})
	inspector.statuses[id] = domain.TorrentStatus{
		ID:       id,
		State:    domain.Downloading(),
		Progress: domain.TorrentProgress{BytesDownloaded: 0, BytesTotal: 100},
	}

	got := buildMainData(0, inspector, bus)
	if !got.FullUpdate {
		t.Fatal("expected full_update on rid=0")
	}
	if got.Rid != 2 {
		t.Fatalf("expected rid=2, got %d", got.Rid)
	}
	if _, ok := got.Torrents[id.Compact()]; !ok {
		t.Fatalf("expected torrent %s in full update", id.Compact())
	}
}

func TestBuildMainDataDeltaAfterProgress(t *testing.T) {
	bus := eventbus.New(1024)
	inspector := newFakeInspector()

	id := domain.NewTorrentID()
	bus.Publish(domain.Event{Kind: domain.EventTorrentAdded, TorrentID: id})
	bus.Publish(domain.Event{Kind: domain.EventProgress, TorrentID: id, BytesDownloaded: 0, BytesTotal: 100})
	inspector.statuses[id] = domain.TorrentStatus{ID: id, State: domain.Downloading()}

	// First call establishes the client's baseline at rid=2.
	first := buildMainData(0, inspector, bus)
	if first.Rid != 2 {
		t.Fatalf("expected baseline rid=2, got %d", first.Rid)
	}

	bus.Publish(domain.Event{Kind: domain.EventProgress, TorrentID: id, BytesDownloaded: 50, BytesTotal: 100})
	inspector.statuses[id] = domain.TorrentStatus{
		ID:       id,
		State:    domain.Downloading(),
		Progress: domain.TorrentProgress{BytesDownloaded: 50, BytesTotal: 100},
	}

	got := buildMainData(domain.EventID(first.Rid), inspector, bus)
	if got.FullUpdate {
		t.Fatal("expected a delta, not a full update")
	}
	if got.Rid != 3 {
		t.Fatalf("expected rid=3, got %d", got.Rid)
	}
	entry, ok := got.Torrents[id.Compact()]
	if !ok {
		t.Fatalf("expected torrent %s in delta", id.Compact())
	}
	if entry.Progress != 0.5 {
		t.Errorf("expected progress 0.5, got %v", entry.Progress)
	}
}

func TestBuildMainDataBacklogGapForcesFullUpdate(t *testing.T) {
	bus := eventbus.New(2)
	inspector := newFakeInspector()
	id := domain.NewTorrentID()
	inspector.statuses[id] = domain.TorrentStatus{ID: id, State: domain.Downloading()}

	for i := 0; i < 5; i++ {
		bus.Publish(domain.Event{Kind: domain.EventProgress, TorrentID: id})
	}

	got := buildMainData(1, inspector, bus)
	if !got.FullUpdate {
		t.Fatal("expected a full update when rid predates the resident backlog")
	}
}

func TestBuildMainDataRemovedTorrent(t *testing.T) {
	bus := eventbus.New(1024)
	inspector := newFakeInspector()
	id := domain.NewTorrentID()
	inspector.statuses[id] = domain.TorrentStatus{ID: id, State: domain.Downloading()}

	baseline := buildMainData(0, inspector, bus)

	delete(inspector.statuses, id)
	bus.Publish(domain.Event{Kind: domain.EventTorrentRemoved, TorrentID: id})

	got := buildMainData(domain.EventID(baseline.Rid), inspector, bus)
	if got.FullUpdate {
		t.Fatal("expected a delta")
	}
	if len(got.TorrentsRemoved) != 1 || got.TorrentsRemoved[0] != id.Compact() {
		t.Errorf("expected torrents_removed = [%s], got %v", id.Compact(), got.TorrentsRemoved)
	}
}
