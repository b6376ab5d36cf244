package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/reactor-go/domain/command"
)

// CommandStore is a PostgreSQL-backed implementation of command.Store.
type CommandStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewCommandStore creates a new PostgreSQL recorded command store.
func NewCommandStore(pool *pgxpool.Pool, schema string) *CommandStore {
	if schema == "" {
		schema = "public"
	}
	return &CommandStore{
		pool:   pool,
		schema: schema,
	}
}

func (s *CommandStore) tableName() string {
	return fmt.Sprintf("%s.recorded_commands", s.schema)
}

// Migrate creates the recorded_commands table if it doesn't exist.
func (s *CommandStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload JSONB,
			status TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT '',
			triggering_event_ids JSONB,
			decision_id TEXT NOT NULL,
			pattern_id TEXT,
			correlation_id TEXT,
			routing_attempts INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_commands_decision ON %s (decision_id);
		CREATE INDEX IF NOT EXISTS idx_commands_agent ON %s (agent_id, created_at DESC);
	`, s.tableName(), s.tableName(), s.tableName())

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("command store migration failed: %w", err)
	}
	return nil
}

const commandColumns = `id, agent_id, type, payload, status, confidence, reason,
	triggering_event_ids, decision_id, pattern_id, correlation_id,
	routing_attempts, created_at, updated_at`

// Record inserts a recorded command.
func (s *CommandStore) Record(ctx context.Context, r *command.Recorded) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, s.tableName(), commandColumns)

	eventIDs, err := marshalStringSlice(r.TriggeringEventIDs)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.AgentID, r.Type, []byte(r.Payload), string(r.Status),
		r.Confidence, r.Reason, eventIDs, r.DecisionID,
		nullableString(r.PatternID), nullableString(r.CorrelationID),
		r.RoutingAttempts, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

// Get returns the command or ErrCommandNotFound.
func (s *CommandStore) Get(ctx context.Context, id string) (*command.Recorded, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", commandColumns, s.tableName())
	return s.getOne(ctx, query, id)
}

// GetByDecision returns the command recorded for a decision.
func (s *CommandStore) GetByDecision(ctx context.Context, decisionID string) (*command.Recorded, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE decision_id = $1", commandColumns, s.tableName())
	return s.getOne(ctx, query, decisionID)
}

func (s *CommandStore) getOne(ctx context.Context, query string, arg any) (*command.Recorded, error) {
	r, err := scanCommand(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, command.ErrCommandNotFound
		}
		return nil, err
	}
	return r, nil
}

// UpdateStatus persists a status change.
func (s *CommandStore) UpdateStatus(ctx context.Context, r *command.Recorded) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, routing_attempts = $3, updated_at = $4
		WHERE id = $1
	`, s.tableName())

	tag, err := s.pool.Exec(ctx, query, r.ID, string(r.Status), r.RoutingAttempts, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update command status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return command.ErrCommandNotFound
	}
	return nil
}

// ListByAgent returns an agent's commands, newest first.
func (s *CommandStore) ListByAgent(ctx context.Context, agentID string, limit int) ([]*command.Recorded, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE agent_id = $1 ORDER BY created_at DESC
	`, commandColumns, s.tableName())
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var out []*command.Recorded
	for rows.Next() {
		r, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanCommand(row pgScanner) (*command.Recorded, error) {
	var (
		r             command.Recorded
		payload       []byte
		status        string
		eventIDs      []byte
		patternID     *string
		correlationID *string
	)
	err := row.Scan(&r.ID, &r.AgentID, &r.Type, &payload, &status, &r.Confidence,
		&r.Reason, &eventIDs, &r.DecisionID, &patternID, &correlationID,
		&r.RoutingAttempts, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Status = command.Status(status)
	if len(payload) > 0 {
		r.Payload = payload
	}
	if err := unmarshalStringSlice(eventIDs, &r.TriggeringEventIDs); err != nil {
		return nil, err
	}
	if patternID != nil {
		r.PatternID = *patternID
	}
	if correlationID != nil {
		r.CorrelationID = *correlationID
	}
	return &r, nil
}

// Ensure CommandStore implements command.Store.
var _ command.Store = (*CommandStore)(nil)
