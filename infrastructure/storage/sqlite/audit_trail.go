package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/reactor-go/domain/audit"
)

// AuditTrail is a SQLite-backed implementation of audit.Trail.
type AuditTrail struct {
	db *sql.DB
}

// NewAuditTrail creates a SQLite audit trail with the given configuration.
func NewAuditTrail(cfg Config, opts ...Option) (*AuditTrail, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	t := &AuditTrail{db: db}
	if cfg.AutoMigrate {
		if err := t.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return t, nil
}

// NewAuditTrailFromDB creates an audit trail from an existing connection.
func NewAuditTrailFromDB(db *sql.DB) (*AuditTrail, error) {
	t := &AuditTrail{db: db}
	if err := t.migrate(); err != nil {
		return nil, err
	}
	return t, nil
}

// migrate creates the audit_entries table if it doesn't exist.
func (t *AuditTrail) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			decision_id TEXT,
			timestamp INTEGER NOT NULL,
			payload BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_audit_decision ON audit_entries(decision_id);
		CREATE INDEX IF NOT EXISTS idx_audit_agent ON audit_entries(agent_id, timestamp);
	`

	if _, err := t.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
}

// Append records an entry.
func (t *AuditTrail) Append(ctx context.Context, e audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var decisionID sql.NullString
	if e.DecisionID != "" {
		decisionID = sql.NullString{String: e.DecisionID, Valid: true}
	}

	_, err := t.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, type, agent_id, decision_id, timestamp, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.AgentID, decisionID, e.Timestamp.UnixNano(), []byte(e.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ByDecision returns all entries for a decision, oldest first.
func (t *AuditTrail) ByDecision(ctx context.Context, decisionID string) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT id, type, agent_id, decision_id, timestamp, payload
		 FROM audit_entries WHERE decision_id = ?
		 ORDER BY timestamp ASC, rowid ASC`,
		decisionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// ByAgent returns an agent's entries, newest first, bounded to limit.
func (t *AuditTrail) ByAgent(ctx context.Context, agentID string, limit int) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT id, type, agent_id, decision_id, timestamp, payload
		 FROM audit_entries WHERE agent_id = ?
		 ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var out []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			entryType  string
			decisionID sql.NullString
			ts         int64
			payload    []byte
		)
		if err := rows.Scan(&e.ID, &entryType, &e.AgentID, &decisionID, &ts, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Type = audit.EntryType(entryType)
		e.DecisionID = decisionID.String
		e.Timestamp = time.Unix(0, ts)
		if len(payload) > 0 {
			e.Payload = payload
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database connection.
func (t *AuditTrail) Close() error {
	return t.db.Close()
}

// Ensure AuditTrail implements audit.Trail.
var _ audit.Trail = (*AuditTrail)(nil)
