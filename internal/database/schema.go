package database

import (
	"context"

	"taskpulse/pkg/logger"
)

// Ordered so foreign keys resolve. audit_log has no task FK: entries are
// fact records and outlive the tasks they describe. Notifications likewise
// carry only a JSON payload so they survive task deletion.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		email           TEXT NOT NULL UNIQUE,
		credential_hash TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id             TEXT PRIMARY KEY,
		title          TEXT NOT NULL,
		description    TEXT,
		due_date       TIMESTAMPTZ NOT NULL,
		priority       TEXT NOT NULL,
		status         TEXT NOT NULL,
		creator_id     TEXT NOT NULL REFERENCES users(id),
		assigned_to_id TEXT REFERENCES users(id),
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_created_at_idx ON tasks (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS tasks_due_date_idx ON tasks (due_date)`,
	`CREATE INDEX IF NOT EXISTS tasks_assigned_to_idx ON tasks (assigned_to_id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		type       TEXT NOT NULL,
		title      TEXT NOT NULL,
		message    TEXT NOT NULL,
		data       JSONB NOT NULL DEFAULT '{}',
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id          BIGSERIAL PRIMARY KEY,
		ts          TIMESTAMPTZ NOT NULL,
		actor_id    TEXT NOT NULL,
		actor_email TEXT NOT NULL,
		action      TEXT NOT NULL,
		task_id     TEXT NOT NULL,
		task_title  TEXT NOT NULL,
		changes     JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS audit_log_ts_idx ON audit_log (ts DESC)`,
}

// MigrateOrCreateSchema creates all tables and indexes if missing.
func MigrateOrCreateSchema(ctx context.Context) error {
	db := DB(ctx)
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error(ctx, "Schema statement failed", "error", err)
			return err
		}
	}
	logger.Info(ctx, "Schema ensured")
	return nil
}
