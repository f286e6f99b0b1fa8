package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"taskpulse/internal/models"
)

// Audit appends to and reads the append-only audit log. Nothing in the
// application updates or deletes rows here.
type Audit struct {
	db *sql.DB
}

// NewAudit returns an audit repository backed by db.
func NewAudit(db *sql.DB) *Audit {
	return &Audit{db: db}
}

// Append writes one audit entry.
func (r *Audit) Append(ctx context.Context, e *models.AuditEntry) error {
	var changes interface{}
	if len(e.Changes) > 0 {
		b, err := json.Marshal(e.Changes)
		if err != nil {
			return err
		}
		changes = b
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (ts, actor_id, actor_email, action, task_id, task_title, changes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Timestamp, e.ActorID, e.ActorEmail, e.Action, e.TaskID, e.TaskTitle, changes)
	return err
}

// ListRecent returns up to limit entries, newest first.
func (r *Audit) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ts, actor_id, actor_email, action, task_id, task_title, changes
		 FROM audit_log ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.AuditEntry{}
	for rows.Next() {
		var (
			e       models.AuditEntry
			id      int64
			changes []byte
		)
		if err := rows.Scan(&id, &e.Timestamp, &e.ActorID, &e.ActorEmail, &e.Action, &e.TaskID, &e.TaskTitle, &changes); err != nil {
			return nil, err
		}
		e.ID = strconv.FormatInt(id, 10)
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &e.Changes); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
