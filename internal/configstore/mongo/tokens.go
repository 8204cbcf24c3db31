package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

type setupTokenDoc struct {
	ID        string `bson:"_id"`
	Hash      []byte `bson:"hash"`
	Salt      []byte `bson:"salt"`
	IssuedBy  string `bson:"issuedBy"`
	IssuedAt  int64  `bson:"issuedAt"`
	ExpiresAt int64  `bson:"expiresAt"`
	Consumed  bool   `bson:"consumed"`
}

func (s *Store) CreateSetupToken(ctx context.Context, rec ports.SetupTokenRecord) error {
	doc := setupTokenDoc{
		ID:        rec.ID,
		Hash:      rec.Hash,
		Salt:      rec.Salt,
		IssuedBy:  rec.IssuedBy,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
		Consumed:  rec.Consumed,
	}
	_, err := s.setupTokens.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// ActiveSetupToken returns the single unconsumed token, most recently
// issued first; callers are expected to have invalidated prior ones
// before issuing a new one, so in practice at most one exists.
func (s *Store) ActiveSetupToken(ctx context.Context) (ports.SetupTokenRecord, error) {
	var doc setupTokenDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "issuedAt", Value: -1}})
	err := s.setupTokens.FindOne(ctx, bson.M{"consumed": false}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ports.SetupTokenRecord{}, domain.ErrNotFound
		}
		return ports.SetupTokenRecord{}, err
	}
	return ports.SetupTokenRecord{
		ID:        doc.ID,
		Hash:      doc.Hash,
		Salt:      doc.Salt,
		IssuedBy:  doc.IssuedBy,
		IssuedAt:  doc.IssuedAt,
		ExpiresAt: doc.ExpiresAt,
		Consumed:  doc.Consumed,
	}, nil
}

func (s *Store) MarkSetupTokenConsumed(ctx context.Context, id string) error {
	res, err := s.setupTokens.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"consumed": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) InvalidateActiveSetupTokens(ctx context.Context) error {
	_, err := s.setupTokens.UpdateMany(ctx,
		bson.M{"consumed": false},
		bson.M{"$set": bson.M{"consumed": true}},
	)
	return err
}
