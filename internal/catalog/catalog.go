// Package catalog maintains the in-memory id -> status projection the
// native and qB HTTP surfaces read from. It never writes to the engine or
// the config store; it is rebuilt purely by observing the event bus.
package catalog

import (
	"sort"
	"sync"
	"time"

	"torrentstream/internal/domain"
)

// Catalog is safe for concurrent use. Observe takes the writer lock for the
// duration of a single event; List and Get take only the reader lock and
// clone out before releasing it.
type Catalog struct {
	mu      sync.RWMutex
	entries map[domain.TorrentID]domain.TorrentStatus

	now func() time.Time
}

func New() *Catalog {
	return &Catalog{
		entries: make(map[domain.TorrentID]domain.TorrentStatus),
		now:     time.Now,
	}
}

// Observe folds a single event into the projection. It is the only path
// that mutates the map.
func (c *Catalog) Observe(event domain.Event) {
	if !event.TouchesTorrent() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch event.Kind {
	case domain.EventTorrentAdded:
		now := c.now().UTC()
		c.entries[event.TorrentID] = domain.TorrentStatus{
			ID:        event.TorrentID,
			Name:      event.Name,
			State:     domain.Queued(),
			AddedAt:   now,
			LastUpdated: now,
		}

	case domain.EventFilesDiscovered:
		status, ok := c.entries[event.TorrentID]
		if !ok {
			return
		}
		files := make([]domain.TorrentFile, len(event.Files))
		for i, f := range event.Files {
			files[i] = domain.TorrentFile{
				Index:          domain.SaturateUint32(i),
				Path:           f.Path,
				SizeBytes:      f.SizeBytes,
				BytesCompleted: 0,
				Priority:       domain.PriorityNormal,
				Selected:       true,
			}
		}
		status.Files = files
		status.LastUpdated = c.now().UTC()
		c.entries[event.TorrentID] = status

	case domain.EventProgress:
		status, ok := c.entries[event.TorrentID]
		if !ok {
			return
		}
		status.Progress = domain.TorrentProgress{
			BytesDownloaded: event.BytesDownloaded,
			BytesTotal:      event.BytesTotal,
			ETASeconds:      nil,
		}
		if event.BytesTotal > 0 {
			status.Rates.Ratio = float64(event.BytesDownloaded) / float64(event.BytesTotal)
		} else {
			status.Rates.Ratio = 0
		}
		status.LastUpdated = c.now().UTC()
		c.entries[event.TorrentID] = status

	case domain.EventStateChanged:
		status, ok := c.entries[event.TorrentID]
		if !ok {
			return
		}
		status.State = event.State
		status.LastUpdated = c.now().UTC()
		c.entries[event.TorrentID] = status

	case domain.EventCompleted:
		status, ok := c.entries[event.TorrentID]
		if !ok {
			return
		}
		now := c.now().UTC()
		libraryPath := event.LibraryPath
		status.State = domain.Completed()
		status.LibraryPath = &libraryPath
		status.CompletedAt = &now
		status.LastUpdated = now
		c.entries[event.TorrentID] = status

	case domain.EventFsopsFailed:
		status, ok := c.entries[event.TorrentID]
		if !ok {
			return
		}
		status.State = domain.Failed(event.Message)
		status.LastUpdated = c.now().UTC()
		c.entries[event.TorrentID] = status

	case domain.EventFsopsStarted, domain.EventFsopsProgress, domain.EventFsopsCompleted:
		status, ok := c.entries[event.TorrentID]
		if !ok {
			return
		}
		status.LastUpdated = c.now().UTC()
		c.entries[event.TorrentID] = status

	case domain.EventTorrentRemoved:
		delete(c.entries, event.TorrentID)
	}
}

// List returns a clone of every entry, sorted by name ascending (an empty
// name sorts after any non-empty name), tiebroken by id.
func (c *Catalog) List() []domain.TorrentStatus {
	c.mu.RLock()
	out := make([]domain.TorrentStatus, 0, len(c.entries))
	for _, status := range c.entries {
		out = append(out, status)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Name == nil && b.Name == nil:
			return a.ID < b.ID
		case a.Name == nil:
			return false
		case b.Name == nil:
			return true
		case *a.Name != *b.Name:
			return *a.Name < *b.Name
		default:
			return a.ID < b.ID
		}
	})
	return out
}

// Get clones a single entry.
func (c *Catalog) Get(id domain.TorrentID) (domain.TorrentStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status, ok := c.entries[id]
	return status, ok
}

// Len reports the number of tracked torrents, for metrics.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
