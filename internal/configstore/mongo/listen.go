package mongo

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"torrentstream/internal/domain/ports"
)

// Listen watches the settings collection via a change stream and turns
// each insert/update/replace into a ConfigChangeNotification. A standalone
// (non-replica-set) MongoDB deployment cannot open a change stream at
// all — that failure is reported once, up front, as
// ports.ErrListenUnavailable so callers fall back to polling instead of
// retrying a call that can never succeed. Once opened, the stream
// reconnects automatically on transient errors, matching the retry loop
// the notifier service uses for its own change-stream watch.
func (s *Store) Listen(ctx context.Context, channel string) (<-chan ports.ConfigChangeNotification, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	cs, err := s.settings.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, ports.ErrListenUnavailable
	}

	out := make(chan ports.ConfigChangeNotification, 8)
	go s.runListen(ctx, cs, pipeline, opts, out)
	return out, nil
}

func (s *Store) runListen(ctx context.Context, cs *mongo.ChangeStream, pipeline mongo.Pipeline, opts *options.ChangeStreamOptions, out chan<- ports.ConfigChangeNotification) {
	defer close(out)
	for {
		if err := s.drainChangeStream(ctx, cs, out); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Default().Warn("configstore: change stream error, retrying", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
			next, rerr := s.settings.Watch(ctx, pipeline, opts)
			if rerr != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			cs = next
			continue
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Store) drainChangeStream(ctx context.Context, cs *mongo.ChangeStream, out chan<- ports.ConfigChangeNotification) error {
	defer cs.Close(ctx)
	for cs.Next(ctx) {
		var raw struct {
			OperationType string `bson:"operationType"`
			DocumentKey   struct {
				ID string `bson:"_id"`
			} `bson:"documentKey"`
		}
		if err := cs.Decode(&raw); err != nil {
			continue
		}
		revision, err := s.FetchRevision(ctx)
		if err != nil {
			continue
		}
		notification := ports.ConfigChangeNotification{
			Table:     raw.DocumentKey.ID,
			Revision:  revision,
			Operation: raw.OperationType,
		}
		select {
		case out <- notification:
		case <-ctx.Done():
			return nil
		}
	}
	return cs.Err()
}
