package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

type apiKeyDoc struct {
	KeyID     string `bson:"_id"`
	Hash      []byte `bson:"hash"`
	Salt      []byte `bson:"salt"`
	Enabled   bool   `bson:"enabled"`
	ExpiresAt *int64 `bson:"expiresAt,omitempty"`
	RateLimit *int   `bson:"rateLimit,omitempty"`
}

func (s *Store) FetchAPIKey(ctx context.Context, keyID string) (ports.APIKeyRecord, error) {
	var doc apiKeyDoc
	err := s.apiKeys.FindOne(ctx, bson.M{"_id": keyID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ports.APIKeyRecord{}, domain.ErrNotFound
		}
		return ports.APIKeyRecord{}, err
	}
	return ports.APIKeyRecord{
		KeyID:     doc.KeyID,
		Hash:      doc.Hash,
		Salt:      doc.Salt,
		Enabled:   doc.Enabled,
		ExpiresAt: doc.ExpiresAt,
		RateLimit: doc.RateLimit,
	}, nil
}
