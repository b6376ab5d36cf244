package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
)

// DeadLetterStore is a BadgerDB-backed implementation of
// deadletter.Store. Upserts run inside a single Badger transaction, so
// concurrent failures of the same event serialize on the key.
type DeadLetterStore struct {
	db        *badger.DB
	keyPrefix string
}

// NewDeadLetterStore creates a BadgerDB dead-letter store with the
// given configuration.
func NewDeadLetterStore(cfg Config, opts ...Option) (*DeadLetterStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	return &DeadLetterStore{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewDeadLetterStoreFromDB creates a store from an existing database.
func NewDeadLetterStoreFromDB(db *badger.DB, keyPrefix string) *DeadLetterStore {
	return &DeadLetterStore{
		db:        db,
		keyPrefix: keyPrefix,
	}
}

func (s *DeadLetterStore) agentPrefix(agentID string) []byte {
	return []byte(s.keyPrefix + "deadletter:" + agentID + ":")
}

func (s *DeadLetterStore) key(agentID, eventID string) []byte {
	return append(s.agentPrefix(agentID), []byte(eventID)...)
}

func (s *DeadLetterStore) allPrefix() []byte {
	return []byte(s.keyPrefix + "deadletter:")
}

// Record upserts the dead letter. A pending record for the same
// (agentID, eventID) is updated in place with an incremented attempt
// count; a terminal record is replaced by a fresh pending one.
func (s *DeadLetterStore) Record(ctx context.Context, d *deadletter.DeadLetter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := s.key(d.AgentID, d.EventID)
	return s.db.Update(func(txn *badger.Txn) error {
		record := *d
		record.Status = deadletter.StatusPending
		record.AttemptCount = 1

		item, err := txn.Get(key)
		switch {
		case err == nil:
			var existing deadletter.DeadLetter
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return fmt.Errorf("failed to decode dead letter: %w", err)
			}
			if existing.Status == deadletter.StatusPending {
				record.AttemptCount = existing.AttemptCount + 1
				if record.Context == nil {
					record.Context = existing.Context
				}
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// First failure for this event.
		default:
			return fmt.Errorf("failed to read dead letter: %w", err)
		}

		data, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("failed to encode dead letter: %w", err)
		}
		return txn.Set(key, data)
	})
}

// Get returns the record or ErrDeadLetterNotFound.
func (s *DeadLetterStore) Get(ctx context.Context, agentID, eventID string) (*deadletter.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var d deadletter.DeadLetter
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(agentID, eventID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, deadletter.ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("failed to read dead letter: %w", err)
	}
	return &d, nil
}

// UpdateStatus transitions the disposition, allowing only pending to a
// terminal state.
func (s *DeadLetterStore) UpdateStatus(ctx context.Context, agentID, eventID string, target deadletter.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := s.key(agentID, eventID)
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return deadletter.ErrDeadLetterNotFound
			}
			return fmt.Errorf("failed to read dead letter: %w", err)
		}

		var d deadletter.DeadLetter
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &d)
		}); err != nil {
			return fmt.Errorf("failed to decode dead letter: %w", err)
		}

		if !d.CanTransitionTo(target) {
			return deadletter.ErrInvalidStatusTransition
		}
		d.Status = target

		data, err := json.Marshal(&d)
		if err != nil {
			return fmt.Errorf("failed to encode dead letter: %w", err)
		}
		return txn.Set(key, data)
	})
}

// ListPending returns pending records for an agent, oldest first.
func (s *DeadLetterStore) ListPending(ctx context.Context, agentID string, limit int) ([]*deadletter.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*deadletter.DeadLetter
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := s.agentPrefix(agentID)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var d deadletter.DeadLetter
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return fmt.Errorf("failed to decode dead letter: %w", err)
			}
			if d.Status == deadletter.StatusPending {
				out = append(out, &d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].FailedAt.Before(out[j].FailedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// StatsByAgent aggregates per-agent counts, ordered by agent ID.
func (s *DeadLetterStore) StatsByAgent(ctx context.Context) ([]deadletter.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byAgent := make(map[string]*deadletter.Stats)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := s.allPrefix()
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var d deadletter.DeadLetter
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return fmt.Errorf("failed to decode dead letter: %w", err)
			}

			st, ok := byAgent[d.AgentID]
			if !ok {
				st = &deadletter.Stats{AgentID: d.AgentID}
				byAgent[d.AgentID] = st
			}
			switch d.Status {
			case deadletter.StatusPending:
				st.Pending++
			case deadletter.StatusReplayed:
				st.Replayed++
			case deadletter.StatusIgnored:
				st.Ignored++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]deadletter.Stats, 0, len(byAgent))
	for _, st := range byAgent {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AgentID < out[j].AgentID
	})
	return out, nil
}

// Close closes the database.
func (s *DeadLetterStore) Close() error {
	return s.db.Close()
}

// Ensure DeadLetterStore implements deadletter.Store.
var _ deadletter.Store = (*DeadLetterStore)(nil)
