package ports

import (
	"context"

	"torrentstream/internal/domain"
)

// ConfigChangeNotification is delivered on the namespaced pub/sub channel
// every time a tracked table commits a change.
type ConfigChangeNotification struct {
	Table     string
	Revision  int64
	Operation string // insert | update | delete
}

// SetupTokenRecord is the persisted (hashed) form of an issued setup token.
type SetupTokenRecord struct {
	ID         string
	Hash       []byte
	Salt       []byte
	IssuedBy   string
	IssuedAt   int64
	ExpiresAt  int64
	Consumed   bool
}

// APIKeyRecord is the persisted (hashed) form of a long-lived API key.
type APIKeyRecord struct {
	KeyID     string
	Hash      []byte
	Salt      []byte
	Enabled   bool
	ExpiresAt *int64
	RateLimit *int
}

// HistoryEntry records one committed changeset for audit purposes.
type HistoryEntry struct {
	Revision int64
	Section  string
	OldJSON  []byte
	NewJSON  []byte
	Actor    string
	Reason   string
	AtUnix   int64
}

// ConfigStore is the durable backing the core consumes. Any persistence
// technology satisfying this contract is acceptable — the reference
// adapter in internal/configstore/mongo uses MongoDB.
type ConfigStore interface {
	FetchAppProfile(ctx context.Context) (domain.AppProfile, error)
	FetchEngineProfile(ctx context.Context) (domain.EngineProfile, error)
	FetchFsPolicy(ctx context.Context) (domain.FsPolicy, error)
	FetchRevision(ctx context.Context) (int64, error)

	StoreAppProfile(ctx context.Context, profile domain.AppProfile) error
	StoreEngineProfile(ctx context.Context, profile domain.EngineProfile) error
	StoreFsPolicy(ctx context.Context, policy domain.FsPolicy) error
	BumpRevision(ctx context.Context) (int64, error)
	AppendHistory(ctx context.Context, entry HistoryEntry) error

	CreateSetupToken(ctx context.Context, rec SetupTokenRecord) error
	ActiveSetupToken(ctx context.Context) (SetupTokenRecord, error)
	MarkSetupTokenConsumed(ctx context.Context, id string) error
	InvalidateActiveSetupTokens(ctx context.Context) error

	FetchAPIKey(ctx context.Context, keyID string) (APIKeyRecord, error)

	// Listen subscribes to commit notifications on the given channel name.
	// Implementations that cannot support push notification (e.g. no
	// LISTEN/NOTIFY equivalent available) return a nil channel and
	// ErrListenUnavailable so the caller falls back to polling.
	Listen(ctx context.Context, channel string) (<-chan ConfigChangeNotification, error)
}

var ErrListenUnavailable = domain.ErrUnsupported
