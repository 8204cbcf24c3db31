package mongo

import (
	"context"

	"torrentstream/internal/domain/ports"
)

type historyDoc struct {
	Revision int64  `bson:"revision"`
	Section  string `bson:"section"`
	OldJSON  []byte `bson:"oldJson,omitempty"`
	NewJSON  []byte `bson:"newJson,omitempty"`
	Actor    string `bson:"actor"`
	Reason   string `bson:"reason,omitempty"`
	AtUnix   int64  `bson:"atUnix"`
}

// AppendHistory is insert-only; the settings_history collection is an
// audit trail, never mutated after the fact.
func (s *Store) AppendHistory(ctx context.Context, entry ports.HistoryEntry) error {
	doc := historyDoc{
		Revision: entry.Revision,
		Section:  entry.Section,
		OldJSON:  entry.OldJSON,
		NewJSON:  entry.NewJSON,
		Actor:    entry.Actor,
		Reason:   entry.Reason,
		AtUnix:   entry.AtUnix,
	}
	_, err := s.history.InsertOne(ctx, doc)
	return err
}
