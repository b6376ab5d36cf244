package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/deadletter"
)

// DeadLetterStore is a SQLite-backed implementation of deadletter.Store.
type DeadLetterStore struct {
	db *sql.DB
}

// NewDeadLetterStore creates a SQLite dead-letter store with the given
// configuration.
func NewDeadLetterStore(cfg Config, opts ...Option) (*DeadLetterStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &DeadLetterStore{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewDeadLetterStoreFromDB creates a store from an existing connection.
func NewDeadLetterStoreFromDB(db *sql.DB) (*DeadLetterStore, error) {
	s := &DeadLetterStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrate creates the dead_letters table if it doesn't exist.
func (s *DeadLetterStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS dead_letters (
			agent_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			subscription_id TEXT NOT NULL,
			global_position INTEGER NOT NULL,
			error TEXT NOT NULL,
			attempt_count INTEGER NOT NULL,
			status TEXT NOT NULL,
			failed_at INTEGER NOT NULL,
			context BLOB,
			PRIMARY KEY (agent_id, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_dead_letters_pending ON dead_letters(agent_id, status, failed_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Record upserts the dead letter. A pending record for the same
// (agentID, eventID) is updated in place with an incremented attempt
// count; a terminal record is replaced by a fresh pending one.
func (s *DeadLetterStore) Record(ctx context.Context, d *deadletter.DeadLetter) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var contextData []byte
	if d.Context != nil {
		var err error
		contextData, err = json.Marshal(d.Context)
		if err != nil {
			return fmt.Errorf("failed to encode dead letter context: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letters
			(agent_id, event_id, subscription_id, global_position, error, attempt_count, status, failed_at, context)
		 VALUES (?, ?, ?, ?, ?, 1, 'pending', ?, ?)
		 ON CONFLICT(agent_id, event_id) DO UPDATE SET
			attempt_count = CASE WHEN dead_letters.status = 'pending'
				THEN dead_letters.attempt_count + 1 ELSE 1 END,
			status = 'pending',
			error = excluded.error,
			global_position = excluded.global_position,
			failed_at = excluded.failed_at,
			context = COALESCE(excluded.context, dead_letters.context)`,
		d.AgentID, d.EventID, d.SubscriptionID, d.GlobalPosition, d.Error,
		d.FailedAt.UnixNano(), contextData,
	)
	if err != nil {
		return fmt.Errorf("failed to record dead letter: %w", err)
	}
	return nil
}

// Get returns the record or ErrDeadLetterNotFound.
func (s *DeadLetterStore) Get(ctx context.Context, agentID, eventID string) (*deadletter.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT agent_id, event_id, subscription_id, global_position, error, attempt_count, status, failed_at, context
		 FROM dead_letters WHERE agent_id = ? AND event_id = ?`,
		agentID, eventID,
	)
	d, err := scanDeadLetter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, deadletter.ErrDeadLetterNotFound
	}
	return d, err
}

// UpdateStatus transitions the disposition, allowing only pending to a
// terminal state. The guard runs in the UPDATE itself so reviewer races
// resolve in the database.
func (s *DeadLetterStore) UpdateStatus(ctx context.Context, agentID, eventID string, target deadletter.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !target.IsTerminal() {
		return deadletter.ErrInvalidStatusTransition
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letters SET status = ?
		 WHERE agent_id = ? AND event_id = ? AND status = 'pending'`,
		string(target), agentID, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dead letter status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a missing record from a settled one.
		if _, err := s.Get(ctx, agentID, eventID); err != nil {
			return err
		}
		return deadletter.ErrInvalidStatusTransition
	}
	return nil
}

// ListPending returns pending records for an agent, oldest first.
func (s *DeadLetterStore) ListPending(ctx context.Context, agentID string, limit int) ([]*deadletter.DeadLetter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, event_id, subscription_id, global_position, error, attempt_count, status, failed_at, context
		 FROM dead_letters WHERE agent_id = ? AND status = 'pending'
		 ORDER BY failed_at ASC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead letters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*deadletter.DeadLetter
	for rows.Next() {
		d, err := scanDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// StatsByAgent aggregates per-agent counts, ordered by agent ID.
func (s *DeadLetterStore) StatsByAgent(ctx context.Context) ([]deadletter.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'replayed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'ignored' THEN 1 ELSE 0 END)
		 FROM dead_letters GROUP BY agent_id ORDER BY agent_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query dead letter stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []deadletter.Stats
	for rows.Next() {
		var st deadletter.Stats
		if err := rows.Scan(&st.AgentID, &st.Pending, &st.Replayed, &st.Ignored); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter stats: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeadLetter(row rowScanner) (*deadletter.DeadLetter, error) {
	var (
		d           deadletter.DeadLetter
		status      string
		failedAt    int64
		contextData []byte
	)
	err := row.Scan(&d.AgentID, &d.EventID, &d.SubscriptionID, &d.GlobalPosition,
		&d.Error, &d.AttemptCount, &status, &failedAt, &contextData)
	if err != nil {
		return nil, err
	}
	d.Status = deadletter.Status(status)
	d.FailedAt = time.Unix(0, failedAt)
	if len(contextData) > 0 {
		var dc deadletter.Context
		if err := json.Unmarshal(contextData, &dc); err != nil {
			return nil, fmt.Errorf("failed to decode dead letter context: %w", err)
		}
		d.Context = &dc
	}
	return &d, nil
}

// Close closes the database connection.
func (s *DeadLetterStore) Close() error {
	return s.db.Close()
}

// Ensure DeadLetterStore implements deadletter.Store.
var _ deadletter.Store = (*DeadLetterStore)(nil)
