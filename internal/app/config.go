package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-wide configuration loaded once at startup from the
// environment. It covers only bootstrap concerns — how to reach Mongo, how
// to listen, how to log — everything else (engine tuning, fs policy,
// instance mode) lives in the revisioned settings documents served through
// internal/config and is never read from the environment after the first
// run seeds them.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	MongoURI      string
	MongoDatabase string

	EventBusCapacity int // ring-buffer depth for replay-on-reconnect

	SetupTokenTTL  time.Duration
	QBSessionTTL   time.Duration
	SettingsPollInterval time.Duration

	TorrentDataDir string
	Par2Binary     string

	CORSAllowedOrigins []string // empty = allow all (dev mode)
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "text")),
		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:        getEnv("MONGO_DB", "revaer"),
		EventBusCapacity:     int(getEnvInt64("EVENT_BUS_CAPACITY", 4096)),
		SetupTokenTTL:        getEnvDuration("SETUP_TOKEN_TTL", 15*time.Minute),
		QBSessionTTL:         getEnvDuration("QB_SESSION_TTL", time.Hour),
		SettingsPollInterval: getEnvDuration("SETTINGS_POLL_INTERVAL", 10*time.Second),
		TorrentDataDir:       getEnv("TORRENT_DATA_DIR", "data"),
		Par2Binary:           getEnv("PAR2_BINARY", "par2"),
		CORSAllowedOrigins:   parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

func parseCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
