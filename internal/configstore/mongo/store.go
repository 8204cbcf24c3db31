// Package mongo implements ports.ConfigStore over MongoDB: one document
// per tracked table (app_profile, engine_profile, fs_policy), a monotonic
// revision counter bumped on every commit, an append-only settings_history
// collection, and setup-token/API-key collections. Listen prefers a
// change-stream watch over the settings collection and returns
// ports.ErrListenUnavailable when the deployment's MongoDB topology
// doesn't support change streams (standalone, not a replica set).
package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	settingsCollection     = "settings"
	historyCollection      = "settings_history"
	setupTokensCollection  = "setup_tokens"
	apiKeysCollection      = "api_keys"
	appProfileDocID        = "app_profile"
	engineProfileDocID     = "engine_profile"
	fsPolicyDocID          = "fs_policy"
	revisionDocID          = "revision"
)

// Store is the ConfigStore adapter. All collections live in one database;
// callers supply the *mongo.Client so connection pooling and TLS/auth
// configuration stay the operator's responsibility, not this package's.
type Store struct {
	settings    *mongo.Collection
	history     *mongo.Collection
	setupTokens *mongo.Collection
	apiKeys     *mongo.Collection
}

func New(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		settings:    db.Collection(settingsCollection),
		history:     db.Collection(historyCollection),
		setupTokens: db.Collection(setupTokensCollection),
		apiKeys:     db.Collection(apiKeysCollection),
	}
}

// Connect dials MongoDB and pings it before returning, the same two-step
// handshake the engine's own repository package uses.
func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the indexes the query patterns above need. Safe to
// call repeatedly; CreateMany is idempotent for identical index specs.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.history.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "revision", Value: -1}}},
		{Keys: bson.D{{Key: "section", Value: 1}}},
	}); err != nil {
		return err
	}
	if _, err := s.setupTokens.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "consumed", Value: 1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}); err != nil {
		return err
	}
	return nil
}
