package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "revaer",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "revaer",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveTorrents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "revaer",
		Name:      "active_torrents",
		Help:      "Number of torrents currently tracked in the catalog.",
	})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "revaer",
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second across all tracked torrents.",
	})

	UploadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "revaer",
		Name:      "upload_speed_bytes",
		Help:      "Current aggregate upload speed in bytes per second across all tracked torrents.",
	})

	EventBusDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "revaer",
		Name:      "event_bus_depth",
		Help:      "Number of events currently resident in the event bus ring buffer.",
	})

	ConfigRevision = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "revaer",
		Name:      "config_revision",
		Help:      "Current settings revision number.",
	})

	QBSessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "revaer",
		Name:      "qb_sessions_active",
		Help:      "Number of currently valid qBittorrent-compatibility sessions.",
	})

	SetupTokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "revaer",
		Name:      "setup_tokens_issued_total",
		Help:      "Total number of setup tokens issued.",
	})

	FsopsFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "revaer",
		Name:      "fsops_failures_total",
		Help:      "Total number of post-processing pipeline failures.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveTorrents,
		DownloadSpeedBytes,
		UploadSpeedBytes,
		EventBusDepth,
		ConfigRevision,
		QBSessionsActive,
		SetupTokensIssuedTotal,
		FsopsFailuresTotal,
	)
}
