// Package metadata holds per-torrent annotations the catalog cannot derive
// from engine events: tags, tracker/web-seed lists, rate limit overrides,
// and the rest of TorrentMetadata. Every operation takes the lock for the
// duration of a synchronous mutation only — no I/O or engine calls happen
// while it is held.
package metadata

import (
	"sync"

	"torrentstream/internal/domain"
)

type Store struct {
	mu      sync.RWMutex
	entries map[domain.TorrentID]domain.TorrentMetadata
}

func New() *Store {
	return &Store{entries: make(map[domain.TorrentID]domain.TorrentMetadata)}
}

// Set installs a metadata record, overwriting any existing one. Called once
// at admission time.
func (s *Store) Set(id domain.TorrentID, meta domain.TorrentMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = meta
}

// Get clones the stored record. ok is false if nothing is stored for id.
func (s *Store) Get(id domain.TorrentID) (domain.TorrentMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.entries[id]
	return meta, ok
}

// Update applies fn to the stored record under the writer lock and persists
// the result. fn runs synchronously with no suspension points; it must not
// block. Returns false if no record exists for id.
func (s *Store) Update(id domain.TorrentID, fn func(meta *domain.TorrentMetadata)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.entries[id]
	if !ok {
		return false
	}
	fn(&meta)
	s.entries[id] = meta
	return true
}

// Remove discards the record, if any.
func (s *Store) Remove(id domain.TorrentID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// ApplyTrackerUpdate merges (or replaces) the tracker list per the
// metadata store's union-or-replace policy, carrying over tracker_messages
// restricted to the retained trackers.
func ApplyTrackerUpdate(meta *domain.TorrentMetadata, trackers []string, replace bool) {
	meta.Trackers = domain.MergeTrackerList(meta.Trackers, trackers, replace)
	meta.ReplaceTrackers = replace
	meta.TrackerMessages = domain.FilterTrackerMessages(meta.TrackerMessages, meta.Trackers)
}

// ApplyWebSeedUpdate merges (or replaces) the web seed list.
func ApplyWebSeedUpdate(meta *domain.TorrentMetadata, webSeeds []string, replace bool) {
	meta.WebSeeds = domain.MergeWebSeedList(meta.WebSeeds, webSeeds, replace)
	meta.ReplaceWebSeeds = replace
}

// ApplyTagsUpdate merges (or replaces) the tag list.
func ApplyTagsUpdate(meta *domain.TorrentMetadata, tags []string, replace bool) {
	meta.Tags = domain.MergeTagList(meta.Tags, tags, replace)
}

// ApplyOptionsUpdate copies every present field of a partial patch onto
// meta, leaving absent fields untouched.
func ApplyOptionsUpdate(meta *domain.TorrentMetadata, update domain.TorrentOptionsUpdate) {
	if update.MaxConnections != nil {
		meta.ConnectionsLimit = update.MaxConnections
	}
	if update.PexEnabled != nil {
		meta.PexEnabled = update.PexEnabled
	}
	if update.SuperSeeding != nil {
		meta.SuperSeeding = update.SuperSeeding
	}
	if update.AutoManaged != nil {
		meta.AutoManaged = update.AutoManaged
	}
	if update.QueuePosition != nil {
		meta.QueuePosition = update.QueuePosition
	}
	if update.SeedRatioLimit != nil {
		meta.SeedRatioLimit = update.SeedRatioLimit
	}
	if update.SeedTimeLimit != nil {
		meta.SeedTimeLimit = update.SeedTimeLimit
	}
	if update.DownloadDir != nil {
		meta.DownloadDir = update.DownloadDir
	}
}

// ApplyRateLimit replaces both bps fields as supplied by a Rate action.
func ApplyRateLimit(meta *domain.TorrentMetadata, limit domain.RateLimit) {
	meta.RateLimit = &limit
}

// ApplyMoveDir replaces DownloadDir as the result of a Move action.
func ApplyMoveDir(meta *domain.TorrentMetadata, dir string) {
	meta.DownloadDir = &dir
}

// Len reports the number of tracked records, for metrics.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
