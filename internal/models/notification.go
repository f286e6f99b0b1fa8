package models

import (
	"encoding/json"
	"time"
)

// NotificationType classifies the task lifecycle event behind a notification.
type NotificationType string

const (
	NotifyTaskAssigned  NotificationType = "TaskAssigned"
	NotifyTaskUpdated   NotificationType = "TaskUpdated"
	NotifyTaskCompleted NotificationType = "TaskCompleted"
	NotifyTaskDeleted   NotificationType = "TaskDeleted"
)

// Notification is owned by its recipient (UserID). Rows are pruned to the
// per-user retention cap; the only user-driven mutation is marking read.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      json.RawMessage  `json:"data"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
