// Package postgres provides PostgreSQL-backed storage implementations
// using pgx connection pools.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/reactor-go/domain/approval"
)

// ApprovalStore is a PostgreSQL-backed implementation of approval.Store.
type ApprovalStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewApprovalStore creates a new PostgreSQL approval store.
func NewApprovalStore(pool *pgxpool.Pool, schema string) *ApprovalStore {
	if schema == "" {
		schema = "public"
	}
	return &ApprovalStore{
		pool:   pool,
		schema: schema,
	}
}

func (s *ApprovalStore) tableName() string {
	return fmt.Sprintf("%s.pending_approvals", s.schema)
}

// Migrate creates the pending_approvals table if it doesn't exist.
func (s *ApprovalStore) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			approval_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			decision_id TEXT NOT NULL,
			action JSONB NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			triggering_event_ids JSONB,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			reviewer_id TEXT,
			reviewed_at TIMESTAMPTZ,
			review_note TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_approvals_pending
			ON %s (agent_id, created_at) WHERE status = 'pending';
		CREATE INDEX IF NOT EXISTS idx_approvals_due
			ON %s (expires_at) WHERE status = 'pending';
	`, s.tableName(), s.tableName(), s.tableName())

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("approval store migration failed: %w", err)
	}
	return nil
}

// Create inserts the approval. A duplicate approval ID is a no-op and
// returns created=false with no error.
func (s *ApprovalStore) Create(ctx context.Context, a *approval.PendingApproval) (bool, error) {
	action, err := json.Marshal(a.Action)
	if err != nil {
		return false, fmt.Errorf("marshal action: %w", err)
	}
	eventIDs, err := json.Marshal(a.TriggeringEventIDs)
	if err != nil {
		return false, fmt.Errorf("marshal event ids: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(approval_id, agent_id, decision_id, action, confidence, reason, status,
			 triggering_event_ids, expires_at, created_at, reviewer_id, reviewed_at, review_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (approval_id) DO NOTHING
	`, s.tableName())

	tag, err := s.pool.Exec(ctx, query,
		a.ApprovalID, a.AgentID, a.DecisionID, action, a.Confidence, a.Reason,
		string(a.Status), eventIDs, a.ExpiresAt, a.CreatedAt,
		nullableString(a.ReviewerID), a.ReviewedAt, nullableString(a.ReviewNote),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create approval: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns the approval or ErrApprovalNotFound.
func (s *ApprovalStore) Get(ctx context.Context, approvalID string) (*approval.PendingApproval, error) {
	query := fmt.Sprintf(`
		SELECT approval_id, agent_id, decision_id, action, confidence, reason, status,
			triggering_event_ids, expires_at, created_at, reviewer_id, reviewed_at, review_note
		FROM %s WHERE approval_id = $1
	`, s.tableName())

	a, err := scanApproval(s.pool.QueryRow(ctx, query, approvalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrApprovalNotFound
		}
		return nil, err
	}
	return a, nil
}

// Update persists a status transition. The stored record must still be
// pending; a reviewer losing the race gets ErrInvalidStatusTransition.
func (s *ApprovalStore) Update(ctx context.Context, a *approval.PendingApproval) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2, reviewer_id = $3, reviewed_at = $4, review_note = $5
		WHERE approval_id = $1 AND status = 'pending'
	`, s.tableName())

	tag, err := s.pool.Exec(ctx, query,
		a.ApprovalID, string(a.Status),
		nullableString(a.ReviewerID), a.ReviewedAt, nullableString(a.ReviewNote),
	)
	if err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, a.ApprovalID); err != nil {
			return err
		}
		return approval.ErrInvalidStatusTransition
	}
	return nil
}

// ListPending returns pending approvals for an agent, oldest first.
func (s *ApprovalStore) ListPending(ctx context.Context, agentID string, limit int) ([]*approval.PendingApproval, error) {
	query := fmt.Sprintf(`
		SELECT approval_id, agent_id, decision_id, action, confidence, reason, status,
			triggering_event_ids, expires_at, created_at, reviewer_id, reviewed_at, review_note
		FROM %s WHERE agent_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`, s.tableName())
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return s.queryApprovals(ctx, query, agentID)
}

// ListDue returns pending approvals past their deadline, oldest
// deadline first, bounded to limit.
func (s *ApprovalStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*approval.PendingApproval, error) {
	query := fmt.Sprintf(`
		SELECT approval_id, agent_id, decision_id, action, confidence, reason, status,
			triggering_event_ids, expires_at, created_at, reviewer_id, reviewed_at, review_note
		FROM %s WHERE status = 'pending' AND expires_at <= $1
		ORDER BY expires_at ASC
	`, s.tableName())
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	return s.queryApprovals(ctx, query, now)
}

func (s *ApprovalStore) queryApprovals(ctx context.Context, query string, args ...any) ([]*approval.PendingApproval, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var out []*approval.PendingApproval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type pgScanner interface {
	Scan(dest ...any) error
}

func scanApproval(row pgScanner) (*approval.PendingApproval, error) {
	var (
		a          approval.PendingApproval
		action     []byte
		status     string
		eventIDs   []byte
		reviewerID *string
		reviewNote *string
	)
	err := row.Scan(&a.ApprovalID, &a.AgentID, &a.DecisionID, &action, &a.Confidence,
		&a.Reason, &status, &eventIDs, &a.ExpiresAt, &a.CreatedAt,
		&reviewerID, &a.ReviewedAt, &reviewNote)
	if err != nil {
		return nil, err
	}

	a.Status = approval.Status(status)
	if err := json.Unmarshal(action, &a.Action); err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	if len(eventIDs) > 0 && string(eventIDs) != "null" {
		if err := json.Unmarshal(eventIDs, &a.TriggeringEventIDs); err != nil {
			return nil, fmt.Errorf("unmarshal event ids: %w", err)
		}
	}
	if reviewerID != nil {
		a.ReviewerID = *reviewerID
	}
	if reviewNote != nil {
		a.ReviewNote = *reviewNote
	}
	return &a, nil
}

func nullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Ensure ApprovalStore implements approval.Store.
var _ approval.Store = (*ApprovalStore)(nil)
