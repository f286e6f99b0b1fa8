package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
)

// Notifications persists notification rows. Each row is owned by exactly
// one recipient and never contended across users.
type Notifications struct {
	db *sql.DB
}

// NewNotifications returns a notification repository backed by db.
func NewNotifications(db *sql.DB) *Notifications {
	return &Notifications{db: db}
}

const notificationCols = `id, user_id, type, title, message, data, read, created_at`

// Create inserts a notification row, assigning its id and timestamp.
func (r *Notifications) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()
	if n.Data == nil {
		n.Data = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, []byte(n.Data), n.Read, n.CreatedAt)
	return err
}

// FindByID returns the notification or apperr.ErrNotFound.
func (r *Notifications) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.Read, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("notification not found")
	}
	if err != nil {
		return nil, err
	}
	n.Data = data
	return &n, nil
}

// ListAndPrune returns the user's keep newest notifications and deletes the
// rest. Pruning rides on the read so the retention cap holds without a
// background job; callers must tolerate the side effect.
func (r *Notifications) ListAndPrune(ctx context.Context, userID string, keep int) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, keep)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Notification{}
	ids := []string{}
	for rows.Next() {
		var n models.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Data = data
		out = append(out, n)
		ids = append(ids, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND id <> ALL($2)`,
		userID, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadSince returns the user's unread notifications created at or after
// since, newest first. Used for the reconnect catch-up batch.
func (r *Notifications) UnreadSince(ctx context.Context, userID string, since time.Time) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications
		 WHERE user_id = $1 AND read = FALSE AND created_at >= $2
		 ORDER BY created_at DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Data = data
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets read = true. Idempotent: marking an already-read row again
// succeeds without effect.
func (r *Notifications) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return err
}
