// Package audit derives field-level diffs from task mutations and hands the
// resulting entries to a Sink. The same diff decides the action label and
// whether anything is worth recording at all.
package audit

import (
	"context"
	"time"

	"taskpulse/internal/models"
)

// Sink receives audit entries. The production sink publishes to Kafka; tests
// substitute an in-memory one. Record failures are the caller's to log and
// swallow, never to propagate.
type Sink interface {
	Record(ctx context.Context, e models.AuditEntry) error
}

// Noop discards every entry.
type Noop struct{}

// Record implements Sink.
func (Noop) Record(context.Context, models.AuditEntry) error { return nil }

// Diff compares each mutable field between the pre- and post-mutation
// snapshots. Dates are compared by instant, not string form. An empty result
// means a no-op update: no entry is written and nothing notifies.
func Diff(oldT, newT *models.Task) []models.FieldChange {
	var changes []models.FieldChange
	if oldT.Title != newT.Title {
		changes = append(changes, models.FieldChange{Field: "title", OldValue: oldT.Title, NewValue: newT.Title})
	}
	if strOrNone(oldT.Description) != strOrNone(newT.Description) {
		changes = append(changes, models.FieldChange{
			Field: "description", OldValue: strOrNone(oldT.Description), NewValue: strOrNone(newT.Description),
		})
	}
	if !oldT.DueDate.UTC().Equal(newT.DueDate.UTC()) {
		changes = append(changes, models.FieldChange{
			Field:    "due_date",
			OldValue: oldT.DueDate.UTC().Format(time.RFC3339),
			NewValue: newT.DueDate.UTC().Format(time.RFC3339),
		})
	}
	if oldT.Priority != newT.Priority {
		changes = append(changes, models.FieldChange{Field: "priority", OldValue: string(oldT.Priority), NewValue: string(newT.Priority)})
	}
	if oldT.Status != newT.Status {
		changes = append(changes, models.FieldChange{Field: "status", OldValue: string(oldT.Status), NewValue: string(newT.Status)})
	}
	if strOrUnassigned(oldT.AssignedToID) != strOrUnassigned(newT.AssignedToID) {
		changes = append(changes, models.FieldChange{
			Field: "assigned_to_id", OldValue: strOrUnassigned(oldT.AssignedToID), NewValue: strOrUnassigned(newT.AssignedToID),
		})
	}
	return changes
}

// ActionFor labels an update: STATUS_CHANGED when status is among the
// changed fields, UPDATED otherwise.
func ActionFor(changes []models.FieldChange) models.AuditAction {
	for _, c := range changes {
		if c.Field == "status" {
			return models.AuditStatusChanged
		}
	}
	return models.AuditUpdated
}

// Entry builds an audit entry stamped now.
func Entry(actor *models.User, action models.AuditAction, task *models.Task, changes []models.FieldChange) models.AuditEntry {
	return models.AuditEntry{
		Timestamp:  time.Now().UTC(),
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		TaskID:     task.ID,
		TaskTitle:  task.Title,
		Changes:    changes,
	}
}

func strOrNone(s *string) string {
	if s == nil {
		return "none"
	}
	return *s
}

func strOrUnassigned(s *string) string {
	if s == nil || *s == "" {
		return "unassigned"
	}
	return *s
}
