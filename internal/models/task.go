package models

import "time"

// Status is the lifecycle state of a task. No ordering is enforced among
// states; any writer with status rights may set any value.
type Status string

const (
	StatusToDo       Status = "ToDo"
	StatusInProgress Status = "InProgress"
	StatusReview     Status = "Review"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a tracked work item. CreatorID is immutable after creation.
// AssignedToID, when present, may change only via a creator-initiated update.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	DueDate      time.Time `json:"due_date"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	CreatorID    string    `json:"creator_id"`
	AssignedToID *string   `json:"assigned_to_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Joined projections, populated on reads.
	Creator    *UserSummary `json:"creator,omitempty"`
	AssignedTo *UserSummary `json:"assigned_to,omitempty"`
}

// Assigned reports whether the task currently has an assignee.
func (t *Task) Assigned() bool {
	return t.AssignedToID != nil && *t.AssignedToID != ""
}

// Clone returns a shallow copy with its own pointer fields, used as the
// pre-mutation snapshot for diffing.
func (t *Task) Clone() *Task {
	c := *t
	if t.Description != nil {
		d := *t.Description
		c.Description = &d
	}
	if t.AssignedToID != nil {
		a := *t.AssignedToID
		c.AssignedToID = &a
	}
	return &c
}
