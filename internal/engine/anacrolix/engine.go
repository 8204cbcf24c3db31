// Package anacrolix adapts github.com/anacrolix/torrent into a
// ports.TorrentEngine. It owns exactly one torrent.Client and maps its
// polling-based session state into the domain event stream the
// Orchestrator ingests; anacrolix has no push-event API of its own, so a
// background poller (see poll.go) synthesizes TorrentAdded/
// FilesDiscovered/Progress/StateChanged/Completed from repeated
// Stats()/GotInfo() snapshots rather than from any client callback.
package anacrolix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"
	"golang.org/x/time/rate"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

// addTimeout caps how long AddMagnet/AddTorrent may block the caller; the
// anacrolix client can hold an internal mutex while resolving metadata for
// another torrent.
const addTimeout = 10 * time.Second

// Config configures the anacrolix-backed engine.
type Config struct {
	DataDir      string
	PollInterval time.Duration // default 1s
	EventBuffer  int           // Subscribe channel buffer, default 256
}

type trackedTorrent struct {
	t          *torrent.Torrent
	downloadDir string
	sequential bool
	paused     bool
	seedMode   bool

	stateKind    domain.TorrentStateKind
	filesEmitted bool
	lastBytes    uint64
	// rateLimit is bookkeeping only: anacrolix exposes no per-torrent
	// throttle primitive, so a per-id limit is recorded but not enforced.
	rateLimit ports.LimitsUpdate
}

type Engine struct {
	client *torrent.Client

	// downloadLimiter/uploadLimiter are the same limiters handed to
	// torrent.ClientConfig at construction; torrent.Client does not expose
	// its config back out, so the engine keeps its own references to
	// retune them live.
	downloadLimiter *rate.Limiter
	uploadLimiter   *rate.Limiter

	mu       sync.RWMutex
	tracked  map[domain.TorrentID]*trackedTorrent
	closed   bool

	events chan domain.Event

	pollInterval time.Duration
	pollCancel   context.CancelFunc
	pollDone     chan struct{}

	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	clientConfig := torrent.NewDefaultClientConfig()
	if cfg.DataDir != "" {
		clientConfig.DataDir = cfg.DataDir
	}
	downloadLimiter := rate.NewLimiter(rate.Inf, 0)
	uploadLimiter := rate.NewLimiter(rate.Inf, 0)
	clientConfig.DownloadRateLimiter = downloadLimiter
	clientConfig.UploadRateLimiter = uploadLimiter

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("construct torrent client: %w", err)
	}

	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	e := &Engine{
		client:          client,
		downloadLimiter: downloadLimiter,
		uploadLimiter:   uploadLimiter,
		tracked:         make(map[domain.TorrentID]*trackedTorrent),
		events:          make(chan domain.Event, buffer),
		pollInterval:    pollInterval,
		log:             log,
	}
	return e, nil
}

// Subscribe starts the background poller on first call and returns the
// shared event channel; cancelling ctx stops the poller and closes the
// channel. Only one subscriber is expected (the Orchestrator's ingest
// loop owns the call).
func (e *Engine) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	e.mu.Lock()
	if e.pollCancel != nil {
		e.mu.Unlock()
		return nil, errors.New("engine: already subscribed")
	}
	pollCtx, cancel := context.WithCancel(ctx)
	e.pollCancel = cancel
	e.pollDone = make(chan struct{})
	e.mu.Unlock()

	go e.runPoller(pollCtx)
	return e.events, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	cancel := e.pollCancel
	done := e.pollDone
	e.closed = true
	e.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	errs := e.client.Close()
	if len(errs) > 0 {
		return fmt.Errorf("close torrent client: %v", errs)
	}
	return nil
}

// Ping reports the engine as unreachable once Close has run; anacrolix's
// torrent.Client exposes no liveness call of its own to check against, so
// this is the only signal the adapter can give a health check.
func (e *Engine) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errors.New("engine: closed")
	}
	return nil
}

func (e *Engine) AddTorrent(ctx context.Context, add domain.AddTorrent) error {
	e.mu.RLock()
	_, exists := e.tracked[add.ID]
	e.mu.RUnlock()
	if exists {
		return nil
	}

	t, err := e.open(ctx, add.Source)
	if err != nil {
		return err
	}

	downloadDir := ""
	if add.Options.DownloadDir != nil {
		downloadDir = *add.Options.DownloadDir
	}

	tracked := &trackedTorrent{
		t:           t,
		downloadDir: downloadDir,
		sequential:  add.Options.Sequential,
		paused:      add.Options.StartPaused,
		seedMode:    add.Options.SeedMode,
		stateKind:   domain.StateQueued,
	}

	e.mu.Lock()
	e.tracked[add.ID] = tracked
	e.mu.Unlock()

	name := t.InfoHash().HexString()
	if add.Source.IsMagnet() {
		if spec, serr := torrent.TorrentSpecFromMagnetUri(add.Source.Magnet); serr == nil && spec.DisplayName != "" {
			name = spec.DisplayName
		}
	}
	e.emit(domain.Event{Kind: domain.EventTorrentAdded, TorrentID: add.ID, Name: &name})

	if len(add.Options.Trackers) > 0 {
		t.AddTrackers([][]string{add.Options.Trackers})
	}
	if len(add.Options.WebSeeds) > 0 {
		t.AddWebSeeds(add.Options.WebSeeds)
	}
	if add.Options.StartPaused {
		t.DisallowDataDownload()
	}
	applySelection(t, add.Options.Selection)

	return nil
}

func (e *Engine) open(ctx context.Context, src domain.TorrentSource) (*torrent.Torrent, error) {
	type addResult struct {
		t   *torrent.Torrent
		err error
	}
	ch := make(chan addResult, 1)
	go func() {
		var t *torrent.Torrent
		var err error
		if src.IsMagnet() {
			t, err = e.client.AddMagnet(src.Magnet)
		} else {
			var mi *metainfo.MetaInfo
			mi, err = metainfo.Load(bytes.NewReader(src.Metainfo))
			if err == nil {
				t, err = e.client.AddTorrent(mi)
			}
		}
		ch <- addResult{t, err}
	}()

	select {
	case res := <-ch:
		return res.t, res.err
	case <-time.After(addTimeout):
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, errors.New("torrent client busy, try again later")
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, ctx.Err()
	}
}

// RemoveTorrent is idempotent: removing an unknown id is not an error.
func (e *Engine) RemoveTorrent(ctx context.Context, id domain.TorrentID, opts ports.RemoveOptions) error {
	e.mu.Lock()
	tracked, ok := e.tracked[id]
	if ok {
		delete(e.tracked, id)
	}
	e.mu.Unlock()
	if !ok {
		return nil
	}

	tracked.t.Drop()
	if opts.WithData {
		// Data removal is the filesystem layer's responsibility (it knows
		// the library vs. staging distinction); the engine only drops the
		// in-memory session and on-disk incomplete pieces.
		e.log.Info("torrent dropped with data removal requested", "torrent_id", string(id))
	}
	e.emit(domain.Event{Kind: domain.EventTorrentRemoved, TorrentID: id})
	return nil
}

func (e *Engine) PauseTorrent(ctx context.Context, id domain.TorrentID) error {
	e.mu.Lock()
	tracked, ok := e.tracked[id]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	tracked.paused = true
	e.mu.Unlock()

	tracked.t.DisallowDataDownload()
	tracked.t.DisallowDataUpload()
	return nil
}

func (e *Engine) ResumeTorrent(ctx context.Context, id domain.TorrentID) error {
	e.mu.Lock()
	tracked, ok := e.tracked[id]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	tracked.paused = false
	e.mu.Unlock()

	tracked.t.AllowDataDownload()
	tracked.t.AllowDataUpload()
	return nil
}

func (e *Engine) SetSequential(ctx context.Context, id domain.TorrentID, sequential bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tracked, ok := e.tracked[id]
	if !ok {
		return nil
	}
	tracked.sequential = sequential
	return nil
}

// UpdateLimits applies a global limit when id is empty; anacrolix has no
// per-torrent throttle primitive, so a non-empty id only records the
// requested value for later reporting (see trackedTorrent.rateLimit).
func (e *Engine) UpdateLimits(ctx context.Context, id domain.TorrentID, limits ports.LimitsUpdate) error {
	if id == "" {
		applyRateLimit(e.downloadLimiter, limits.DownloadBps)
		applyRateLimit(e.uploadLimiter, limits.UploadBps)
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	tracked, ok := e.tracked[id]
	if !ok {
		return nil
	}
	tracked.rateLimit = limits
	return nil
}

func applyRateLimit(limiter *rate.Limiter, bps *uint64) {
	if limiter == nil || bps == nil {
		return
	}
	if *bps == 0 {
		limiter.SetLimit(rate.Inf)
		return
	}
	limiter.SetLimit(rate.Limit(*bps))
	limiter.SetBurst(int(*bps))
}

func (e *Engine) MoveTorrent(ctx context.Context, id domain.TorrentID, downloadDir string) error {
	trimmed := strings.TrimSpace(downloadDir)
	if trimmed == "" {
		return errors.New("downloadDir must not be empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	tracked, ok := e.tracked[id]
	if !ok {
		return nil
	}
	tracked.downloadDir = trimmed
	return nil
}

// Reannounce re-registers the torrent's own tracker tiers with the
// client. anacrolix does not expose a direct "announce now" call; handing
// the same tiers back to AddTrackers causes it to (re)dial each tier,
// which is the effect callers want.
func (e *Engine) Reannounce(ctx context.Context, id domain.TorrentID) error {
	tracked, ok := e.get(id)
	if !ok {
		return nil
	}
	mi := tracked.t.Metainfo()
	var tiers [][]string
	if mi.Announce != "" {
		tiers = append(tiers, []string{mi.Announce})
	}
	tiers = append(tiers, mi.AnnounceList...)
	if len(tiers) > 0 {
		tracked.t.AddTrackers(tiers)
	}
	return nil
}

func (e *Engine) Recheck(ctx context.Context, id domain.TorrentID) error {
	tracked, ok := e.get(id)
	if !ok {
		return nil
	}
	tracked.t.VerifyData()
	return nil
}

// ApplyEngineProfile updates what can be changed on a live client
// (transfer-rate guard rails); listen port, encryption policy, IPv6 mode
// and DHT bootstrap nodes are bound at torrent.NewClient time and need a
// process restart to take effect.
func (e *Engine) ApplyEngineProfile(ctx context.Context, profile domain.EngineProfile) error {
	applyRateLimit(e.downloadLimiter, profile.MaxDownloadBps)
	applyRateLimit(e.uploadLimiter, profile.MaxUploadBps)
	return nil
}

func (e *Engine) get(id domain.TorrentID) (*trackedTorrent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tracked, ok := e.tracked[id]
	return tracked, ok
}

func (e *Engine) emit(event domain.Event) {
	select {
	case e.events <- event:
	default:
		e.log.Warn("engine event dropped, subscriber too slow", "kind", string(event.Kind), "torrent_id", string(event.TorrentID))
	}
}

