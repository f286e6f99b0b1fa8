package models

import "time"

// AuditAction labels what a mutation did to a task.
type AuditAction string

const (
	AuditCreated       AuditAction = "CREATED"
	AuditUpdated       AuditAction = "UPDATED"
	AuditDeleted       AuditAction = "DELETED"
	AuditStatusChanged AuditAction = "STATUS_CHANGED"
)

// FieldChange records one field's old and new value in a task mutation.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// AuditEntry is an append-only fact record of a task mutation. Entries are
// never updated or deleted by the application.
type AuditEntry struct {
	ID         string        `json:"id,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	ActorID    string        `json:"actor_id"`
	ActorEmail string        `json:"actor_email"`
	Action     AuditAction   `json:"action"`
	TaskID     string        `json:"task_id"`
	TaskTitle  string        `json:"task_title"`
	Changes    []FieldChange `json:"changes,omitempty"`
}
