package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nativeapi "torrentstream/internal/api/native"
	"torrentstream/internal/app"
	"torrentstream/internal/config"
	"torrentstream/internal/configstore/mongo"
	"torrentstream/internal/domain"
	"torrentstream/internal/engine/anacrolix"
	"torrentstream/internal/eventbus"
	"torrentstream/internal/fspolicy"
	"torrentstream/internal/metrics"
	"torrentstream/internal/orchestrator"
	"torrentstream/internal/qbcompat"
	"torrentstream/internal/telemetry"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "revaer")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("mongoDatabase", cfg.MongoDatabase),
		slog.Int("eventBusCapacity", cfg.EventBusCapacity),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoMonitor := otelmongo.NewMonitor()
	mongoClient, err := mongo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(mongoMonitor))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := mongo.New(mongoClient, cfg.MongoDatabase)
	if err := store.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	configSvc := config.New(store, logger, cfg.SetupTokenTTL)
	if err := bootstrapSettings(connectCtx, store, configSvc, cfg); err != nil {
		logger.Error("settings bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	snapshot, err := configSvc.Snapshot(connectCtx)
	if err != nil {
		logger.Error("settings snapshot failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	bus := eventbus.New(cfg.EventBusCapacity)

	engine, err := anacrolix.New(anacrolix.Config{DataDir: cfg.TorrentDataDir}, logger)
	if err != nil {
		logger.Error("torrent engine init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := engine.ApplyEngineProfile(rootCtx, snapshot.EngineProfile); err != nil {
		logger.Warn("applying stored engine profile failed", slog.String("error", err.Error()))
	}

	policyApplier := fspolicy.New(bus, logger, cfg.Par2Binary)

	orch := orchestrator.New(engine, bus, policyApplier, logger, snapshot.FsPolicy, snapshot.EngineProfile)
	if err := orch.Start(rootCtx); err != nil {
		logger.Error("orchestrator start failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer orch.Stop()

	go watchSettings(rootCtx, configSvc, orch, cfg.SettingsPollInterval, logger)

	nativeSrv := nativeapi.NewServer(
		nativeapi.WithWorkflow(orch),
		nativeapi.WithInspector(orch),
		nativeapi.WithEventSource(bus),
		nativeapi.WithAuthenticator(configSvc),
		nativeapi.WithHealth(&compositeHealthChecker{orch: orch, configSvc: configSvc}),
		nativeapi.WithLogger(logger),
	)

	qbHandler := qbcompat.NewHandler(orch, orch, bus, cfg.QBSessionTTL, logger)

	mux := http.NewServeMux()
	mux.Handle("/v1/", nativeSrv)
	mux.Handle("/api/v2/", qbHandler)
	mux.Handle("/metrics", promhttp.Handler())

	go reportMetrics(rootCtx, bus, orch, configSvc, qbHandler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	orch.Stop()
	if err := engine.Close(); err != nil {
		logger.Warn("engine close error", slog.String("error", err.Error()))
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// compositeHealthChecker joins the orchestrator's engine/event-bus signal
// with a config store reachability probe: Orchestrator alone has no
// ConfigStore reference, so that half of the degraded set is composed here
// instead of inside the orchestrator package.
type compositeHealthChecker struct {
	orch      *orchestrator.Orchestrator
	configSvc *config.Service
}

func (c *compositeHealthChecker) Health(ctx context.Context) []string {
	degraded := c.orch.Health(ctx)
	if _, err := c.configSvc.Snapshot(ctx); err != nil {
		degraded = append(degraded, "config_store")
	}
	return degraded
}

// bootstrapSettings seeds the three settings documents and an initial
// revision the first time this instance ever starts against an empty
// database; a populated store is left untouched.
func bootstrapSettings(ctx context.Context, store *mongo.Store, configSvc *config.Service, cfg app.Config) error {
	_, err := configSvc.Snapshot(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if err := store.StoreAppProfile(ctx, domain.AppProfile{
		ID:           "app_profile",
		InstanceName: "revaer",
		Mode:         domain.ModeSetup,
		Version:      "0.1.0",
		HTTPPort:     httpPort(cfg.HTTPAddr),
	}); err != nil {
		return err
	}
	if err := store.StoreEngineProfile(ctx, domain.EngineProfile{
		Encryption: domain.EncryptionPrefer,
		IPv6Mode:   domain.IPv6PreferV6,
	}); err != nil {
		return err
	}
	if err := store.StoreFsPolicy(ctx, domain.FsPolicy{
		MoveMode: domain.MoveModeRename,
	}); err != nil {
		return err
	}
	_, err = store.BumpRevision(ctx)
	return err
}

func httpPort(addr string) int {
	_, portRaw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return 0
	}
	return port
}

// watchSettings forwards every committed settings revision into the
// orchestrator's held fs/engine profile snapshots.
func watchSettings(ctx context.Context, configSvc *config.Service, orch *orchestrator.Orchestrator, pollInterval time.Duration, logger *slog.Logger) {
	_, watcher, err := configSvc.WatchSettings(ctx, pollInterval)
	if err != nil {
		logger.Error("settings watch failed", slog.String("error", err.Error()))
		return
	}
	defer watcher.Close()

	for {
		snapshot, ok := watcher.Next(ctx)
		if !ok {
			return
		}
		if err := orch.UpdateFsPolicy(ctx, snapshot.FsPolicy); err != nil {
			logger.Warn("apply fs policy failed", slog.String("error", err.Error()))
		}
		if err := orch.UpdateEngineProfile(ctx, snapshot.EngineProfile); err != nil {
			logger.Warn("apply engine profile failed", slog.String("error", err.Error()))
		}
	}
}

func reportMetrics(ctx context.Context, bus *eventbus.Bus, orch *orchestrator.Orchestrator, configSvc *config.Service, qbHandler *qbcompat.Handler) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			statuses := orch.List(domain.TorrentListFilter{Limit: domain.MaxListLimit})
			metrics.ActiveTorrents.Set(float64(len(statuses)))

			var dlTotal, ulTotal uint64
			for _, st := range statuses {
				dlTotal = domain.SaturatingAddUint64(dlTotal, st.Rates.DownloadBps)
				ulTotal = domain.SaturatingAddUint64(ulTotal, st.Rates.UploadBps)
			}
			metrics.DownloadSpeedBytes.Set(float64(dlTotal))
			metrics.UploadSpeedBytes.Set(float64(ulTotal))
			metrics.EventBusDepth.Set(float64(bus.Len()))
			metrics.QBSessionsActive.Set(float64(qbHandler.ActiveSessions()))

			if snap, err := configSvc.Snapshot(ctx); err == nil {
				metrics.ConfigRevision.Set(float64(snap.Revision))
			}
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
