package fspolicy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/eventbus"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func drainEvents(bus *eventbus.Bus) []domain.Event {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := bus.Subscribe(ctx, 0)
	var out []domain.Event
	timeout := time.After(200 * time.Millisecond)
	for {
		select {
		case env, ok := <-sub.Events:
			if !ok {
				return out
			}
			out = append(out, env.Event)
		case <-timeout:
			return out
		}
	}
}

func TestApplyMovesIntoLibraryRoot(t *testing.T) {
	src := t.TempDir()
	libRoot := t.TempDir()
	writeFile(t, filepath.Join(src, "movie.mkv"), "fake video data")

	bus := eventbus.New(64)
	applier := New(bus, nil, "")
	id := domain.NewTorrentID()
	policy := domain.FsPolicy{LibraryRoot: libRoot, MoveMode: domain.MoveModeRename}

	if err := applier.Apply(context.Background(), policy, id, src); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	dest := filepath.Join(libRoot, filepath.Base(src))
	if _, err := os.Stat(filepath.Join(dest, "movie.mkv")); err != nil {
		t.Fatalf("expected moved file at %s: %v", dest, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source directory should no longer exist after a rename move")
	}
}

func TestApplyEmitsStartedAndCompleted(t *testing.T) {
	src := t.TempDir()
	libRoot := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "x")

	bus := eventbus.New(64)
	applier := New(bus, nil, "")
	id := domain.NewTorrentID()

	if err := applier.Apply(context.Background(), domain.FsPolicy{LibraryRoot: libRoot, MoveMode: domain.MoveModeCopy}, id, src); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	events := drainEvents(bus)
	var sawStarted, sawCompleted bool
	for _, e := range events {
		switch e.Kind {
		case domain.EventFsopsStarted:
			sawStarted = true
		case domain.EventFsopsCompleted:
			sawCompleted = true
		}
	}
	if !sawStarted || !sawCompleted {
		t.Errorf("expected FsopsStarted and FsopsCompleted, got %+v", events)
	}
}

func TestApplyRejectsPathOutsideAllowPaths(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "x")
	otherRoot := t.TempDir()

	bus := eventbus.New(64)
	applier := New(bus, nil, "")
	id := domain.NewTorrentID()

	policy := domain.FsPolicy{LibraryRoot: t.TempDir(), AllowPaths: []string{otherRoot}}
	err := applier.Apply(context.Background(), policy, id, src)
	if err == nil {
		t.Fatal("expected an error when libraryPath escapes AllowPaths")
	}

	events := drainEvents(bus)
	var sawFailed bool
	for _, e := range events {
		if e.Kind == domain.EventFsopsFailed {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Errorf("expected FsopsFailed, got %+v", events)
	}
}

func TestApplyFlattenLiftsSingleChild(t *testing.T) {
	src := t.TempDir()
	libRoot := t.TempDir()
	writeFile(t, filepath.Join(src, "Release.Name-GROUP", "movie.mkv"), "data")

	bus := eventbus.New(64)
	applier := New(bus, nil, "")
	id := domain.NewTorrentID()
	policy := domain.FsPolicy{LibraryRoot: libRoot, Flatten: true, MoveMode: domain.MoveModeRename}

	if err := applier.Apply(context.Background(), policy, id, src); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	dest := filepath.Join(libRoot, filepath.Base(src))
	if _, err := os.Stat(filepath.Join(dest, "movie.mkv")); err != nil {
		t.Fatalf("expected flattened file directly under dest: %v", err)
	}
}

func TestApplyCleanupDropsMatchingFiles(t *testing.T) {
	src := t.TempDir()
	libRoot := t.TempDir()
	writeFile(t, filepath.Join(src, "movie.mkv"), "data")
	writeFile(t, filepath.Join(src, "readme.nfo"), "junk")

	bus := eventbus.New(64)
	applier := New(bus, nil, "")
	id := domain.NewTorrentID()
	policy := domain.FsPolicy{LibraryRoot: libRoot, MoveMode: domain.MoveModeRename, CleanupDrop: []string{"*.nfo"}}

	if err := applier.Apply(context.Background(), policy, id, src); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	dest := filepath.Join(libRoot, filepath.Base(src))
	if _, err := os.Stat(filepath.Join(dest, "readme.nfo")); !os.IsNotExist(err) {
		t.Error("expected readme.nfo to be dropped by cleanup")
	}
	if _, err := os.Stat(filepath.Join(dest, "movie.mkv")); err != nil {
		t.Error("expected movie.mkv to survive cleanup")
	}
}
