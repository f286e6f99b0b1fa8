package models

import (
	"encoding/json"
	"time"

	"taskpulse/internal/apperr"
)

func fieldErr(field, msg string) error {
	return apperr.Validation(field, msg)
}

// Opt types give patch fields three states: absent from the request body,
// present as JSON null, or present with a value. A plain pointer cannot
// distinguish the first two.

// OptString is an optional string patch field.
type OptString struct {
	Set   bool
	Valid bool // false when the field was explicitly null
	Value string
}

// UnmarshalJSON marks the field present and records null vs value.
func (o *OptString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// OptTime is an optional RFC3339 timestamp patch field.
type OptTime struct {
	Set   bool
	Valid bool
	Value time.Time
}

func (o *OptTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// OptStatus is an optional status patch field. Null is not a legal status.
type OptStatus struct {
	Set   bool
	Value Status
}

func (o *OptStatus) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// OptPriority is an optional priority patch field. Null is not a legal priority.
type OptPriority struct {
	Set   bool
	Value Priority
}

func (o *OptPriority) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// TaskPatch is a sparse task update: only fields the client proposes to
// change are Set. Description and AssignedToID accept explicit null to
// clear the field.
type TaskPatch struct {
	Title        OptString   `json:"title"`
	Description  OptString   `json:"description"`
	DueDate      OptTime     `json:"due_date"`
	Priority     OptPriority `json:"priority"`
	Status       OptStatus   `json:"status"`
	AssignedToID OptString   `json:"assigned_to_id"`
}

// Empty reports whether the patch proposes no changes at all.
func (p *TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.DueDate.Set &&
		!p.Priority.Set && !p.Status.Set && !p.AssignedToID.Set
}

// Validate checks value shape only (lengths, enums, nullability); it runs
// before any store access and knows nothing about roles.
func (p *TaskPatch) Validate() error {
	if p.Title.Set {
		if !p.Title.Valid || p.Title.Value == "" {
			return fieldErr("title", "must be a non-empty string")
		}
		if len(p.Title.Value) > 100 {
			return fieldErr("title", "should be at most 100 characters")
		}
	}
	if p.DueDate.Set && !p.DueDate.Valid {
		return fieldErr("due_date", "must be an RFC3339 timestamp")
	}
	if p.Priority.Set && !p.Priority.Value.Valid() {
		return fieldErr("priority", "must be one of Low, Medium, High, Urgent")
	}
	if p.Status.Set && !p.Status.Value.Valid() {
		return fieldErr("status", "must be one of ToDo, InProgress, Review, Completed")
	}
	return nil
}

// ProposesOtherThanStatus reports whether any field besides status is proposed.
func (p *TaskPatch) ProposesOtherThanStatus() bool {
	return p.Title.Set || p.Description.Set || p.DueDate.Set ||
		p.Priority.Set || p.AssignedToID.Set
}
