package metadata

import (
	"reflect"
	"testing"

	"torrentstream/internal/domain"
)

func TestSetAndGet(t *testing.T) {
	s := New()
	meta := domain.TorrentMetadata{Tags: []string{"movie"}}
	s.Set("a", meta)

	got, ok := s.Get("a")
	if !ok {
		t.Fatalf("expected record for id a")
	}
	if !reflect.DeepEqual(got.Tags, meta.Tags) {
		t.Errorf("Tags: got %v, want %v", got.Tags, meta.Tags)
	}
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s := New()
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("expected ok=false for a record that was never set")
	}
}

func TestUpdateMissingReturnsFalse(t *testing.T) {
	s := New()
	called := false
	ok := s.Update("missing", func(m *domain.TorrentMetadata) { called = true })
	if ok {
		t.Errorf("Update on missing id: got true, want false")
	}
	if called {
		t.Errorf("fn was called for a missing id")
	}
}

func TestRemoveDiscardsRecord(t *testing.T) {
	s := New()
	s.Set("a", domain.TorrentMetadata{})
	s.Remove("a")
	if _, ok := s.Get("a"); ok {
		t.Fatalf("expected record to be removed")
	}
}

func TestApplyTrackerUpdateUnionPreservesOrder(t *testing.T) {
	meta := domain.TorrentMetadata{
		Trackers:        []string{"http://a", "http://b"},
		TrackerMessages: map[string]string{"http://a": "ok", "http://b": "stale"},
	}
	ApplyTrackerUpdate(&meta, []string{"http://b", "http://c"}, false)

	want := []string{"http://a", "http://b", "http://c"}
	if !reflect.DeepEqual(meta.Trackers, want) {
		t.Errorf("Trackers: got %v, want %v", meta.Trackers, want)
	}
	if _, ok := meta.TrackerMessages["http://a"]; !ok {
		t.Errorf("expected tracker_messages for http://a to be retained")
	}
}

func TestApplyTrackerUpdateReplaceDropsOldMessages(t *testing.T) {
	meta := domain.TorrentMetadata{
		Trackers:        []string{"http://a"},
		TrackerMessages: map[string]string{"http://a": "ok"},
	}
	ApplyTrackerUpdate(&meta, []string{"http://c"}, true)

	if !reflect.DeepEqual(meta.Trackers, []string{"http://c"}) {
		t.Errorf("Trackers: got %v, want [http://c]", meta.Trackers)
	}
	if _, ok := meta.TrackerMessages["http://a"]; ok {
		t.Errorf("expected http://a message to be dropped after replace")
	}
}

func TestApplyOptionsUpdateOnlyTouchesPresentFields(t *testing.T) {
	seedLimit := 2.5
	meta := domain.TorrentMetadata{SeedRatioLimit: nil, AutoManaged: boolPtrTest(true)}
	ApplyOptionsUpdate(&meta, domain.TorrentOptionsUpdate{SeedRatioLimit: &seedLimit})

	if meta.SeedRatioLimit == nil || *meta.SeedRatioLimit != seedLimit {
		t.Errorf("SeedRatioLimit: got %v, want %v", meta.SeedRatioLimit, seedLimit)
	}
	if meta.AutoManaged == nil || *meta.AutoManaged != true {
		t.Errorf("AutoManaged should be untouched by an update that doesn't set it")
	}
}

func TestApplyRateLimitReplacesBothFields(t *testing.T) {
	meta := domain.TorrentMetadata{}
	down := uint64(1000)
	ApplyRateLimit(&meta, domain.RateLimit{DownloadBps: &down})

	if meta.RateLimit == nil || meta.RateLimit.DownloadBps == nil || *meta.RateLimit.DownloadBps != down {
		t.Errorf("RateLimit.DownloadBps: got %v, want %v", meta.RateLimit, down)
	}
}

func TestApplyMoveDirReplacesDownloadDir(t *testing.T) {
	meta := domain.TorrentMetadata{}
	ApplyMoveDir(&meta, "/new/dir")

	if meta.DownloadDir == nil || *meta.DownloadDir != "/new/dir" {
		t.Errorf("DownloadDir: got %v, want /new/dir", meta.DownloadDir)
	}
}

func boolPtrTest(v bool) *bool { return &v }
