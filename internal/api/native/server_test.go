package nativeapi

import (
	"context"

	"torrentstream/internal/config"
	"torrentstream/internal/domain"
	"torrentstream/internal/eventbus"
)

type fakeWorkflow struct {
	added      []domain.AddTorrent
	removed    []domain.TorrentID
	selections []domain.Selection
	options    []domain.TorrentOptionsUpdate
	trackers   []struct {
		id       domain.TorrentID
		trackers []string
		replace  bool
	}
	webSeeds []struct {
		id       domain.TorrentID
		webSeeds []string
		replace  bool
	}
	tags []struct {
		id      domain.TorrentID
		tags    []string
		replace bool
	}
	actions []domain.TorrentAction

	addErr    error
	removeErr error
	mutateErr error
}

func (f *fakeWorkflow) AddTorrent(_ context.Context, add domain.AddTorrent) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, add)
	return nil
}

func (f *fakeWorkflow) RemoveTorrent(_ context.Context, id domain.TorrentID, _ bool) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeWorkflow) UpdateSelection(_ context.Context, _ domain.TorrentID, sel domain.Selection) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.selections = append(f.selections, sel)
	return nil
}

func (f *fakeWorkflow) UpdateOptions(_ context.Context, _ domain.TorrentID, update domain.TorrentOptionsUpdate) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.options = append(f.options, update)
	return nil
}

func (f *fakeWorkflow) UpdateTrackers(_ context.Context, id domain.TorrentID, trackers []string, replace bool) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.trackers = append(f.trackers, struct {
		id       domain.TorrentID
		trackers []string
		replace  bool
	}{id, trackers, replace})
	return nil
}

func (f *fakeWorkflow) UpdateWebSeeds(_ context.Context, id domain.TorrentID, webSeeds []string, replace bool) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.webSeeds = append(f.webSeeds, struct {
		id       domain.TorrentID
		webSeeds []string
		replace  bool
	}{id, webSeeds, replace})
	return nil
}

func (f *fakeWorkflow) UpdateTags(_ context.Context, id domain.TorrentID, tags []string, replace bool) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.tags = append(f.tags, struct {
		id      domain.TorrentID
		tags    []string
		replace bool
	}{id, tags, replace})
	return nil
}

func (f *fakeWorkflow) ExecuteAction(_ context.Context, _ domain.TorrentID, action domain.TorrentAction) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.actions = append(f.actions, action)
	return nil
}

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

type fakeAuthenticator struct {
	mode      domain.InstanceMode
	snapErr   error
	validKeys map[string]string // keyID -> secret
}

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{
		mode:      domain.ModeActive,
		validKeys: map[string]string{"key1": "secret1"},
	}
}

func (f *fakeAuthenticator) Snapshot(context.Context) (domain.ConfigSnapshot, error) {
	if f.snapErr != nil {
		return domain.ConfigSnapshot{}, f.snapErr
	}
	return domain.ConfigSnapshot{AppProfile: domain.AppProfile{Mode: f.mode}}, nil
}

func (f *fakeAuthenticator) AuthenticateAPIKey(_ context.Context, keyID, secret string) (*config.APIAuthContext, error) {
	want, ok := f.validKeys[keyID]
	if !ok || want != secret {
		return nil, nil
	}
	return &config.APIAuthContext{KeyID: keyID}, nil
}

type fakeHealthChecker struct {
	degraded []string
}

func (f *fakeHealthChecker) Health(context.Context) []string { return f.degraded }

type testServer struct {
	*Server
	workflow  *fakeWorkflow
	inspector *fakeInspector
	auth      *fakeAuthenticator
	bus       *eventbus.Bus
}

func newTestServer() *testServer {
	wf := &fakeWorkflow{}
	insp := newFakeInspector()
	auth := newFakeAuthenticator()
	bus := eventbus.New(1024)

	s := NewServer(
		WithWorkflow(wf),
		WithInspector(insp),
		WithEventSource(bus),
		WithAuthenticator(auth),
	)
	return &testServer{Server: s, workflow: wf, inspector: insp, auth: auth, bus: bus}
}

func newTestServerWithHealth(degraded []string) *testServer {
	ts := newTestServer()
	health := &fakeHealthChecker{degraded: degraded}
	ts.Server = NewServer(
		WithWorkflow(ts.workflow),
		WithInspector(ts.inspector),
		WithEventSource(ts.bus),
		WithAuthenticator(ts.auth),
		WithHealth(health),
	)
	return ts
}

