package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
)

// Tasks persists task records.
type Tasks struct {
	db *sql.DB
}

// NewTasks returns a task repository backed by db.
func NewTasks(db *sql.DB) *Tasks {
	return &Tasks{db: db}
}

// taskSelect joins the creator and assignee projections in one round trip.
const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
	       t.creator_id, t.assigned_to_id, t.created_at, t.updated_at,
	       c.name, c.email, a.name, a.email
	FROM tasks t
	JOIN users c ON c.id = t.creator_id
	LEFT JOIN users a ON a.id = t.assigned_to_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t                  models.Task
		creatorName        string
		creatorEmail       string
		assigneeName       sql.NullString
		assigneeEmail      sql.NullString
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&t.CreatorID, &t.AssignedToID, &t.CreatedAt, &t.UpdatedAt,
		&creatorName, &creatorEmail, &assigneeName, &assigneeEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("task not found")
	}
	if err != nil {
		return nil, err
	}
	t.Creator = &models.UserSummary{ID: t.CreatorID, Name: creatorName, Email: creatorEmail}
	if t.AssignedToID != nil {
		t.AssignedTo = &models.UserSummary{ID: *t.AssignedToID, Name: assigneeName.String, Email: assigneeEmail.String}
	}
	return &t, nil
}

func (r *Tasks) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tasks := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Create inserts a new task, assigning its id and timestamps.
func (r *Tasks) Create(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, due_date, priority, status,
			creator_id, assigned_to_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Description, t.DueDate, t.Priority, t.Status,
		t.CreatorID, t.AssignedToID, t.CreatedAt, t.UpdatedAt)
	return err
}

// FindByID returns the task with joined user projections, or apperr.ErrNotFound.
func (r *Tasks) FindByID(ctx context.Context, id string) (*models.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1`, id))
}

// ListAll returns every task, newest first.
func (r *Tasks) ListAll(ctx context.Context) ([]*models.Task, error) {
	return r.queryMany(ctx, taskSelect+` ORDER BY t.created_at DESC`)
}

// ListAssignedTo returns tasks assigned to the user, by due date.
func (r *Tasks) ListAssignedTo(ctx context.Context, userID string) ([]*models.Task, error) {
	return r.queryMany(ctx, taskSelect+` WHERE t.assigned_to_id = $1 ORDER BY t.due_date ASC`, userID)
}

// ListCreatedBy returns tasks created by the user, newest first.
func (r *Tasks) ListCreatedBy(ctx context.Context, userID string) ([]*models.Task, error) {
	return r.queryMany(ctx, taskSelect+` WHERE t.creator_id = $1 ORDER BY t.created_at DESC`, userID)
}

// ListFiltered returns tasks matching the optional status/priority filters,
// ordered by due date.
func (r *Tasks) ListFiltered(ctx context.Context, status, priority *string, sortDesc bool) ([]*models.Task, error) {
	var (
		conds []string
		args  []interface{}
	)
	if status != nil {
		args = append(args, *status)
		conds = append(conds, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if priority != nil {
		args = append(args, *priority)
		conds = append(conds, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	q := taskSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if sortDesc {
		q += " ORDER BY t.due_date DESC"
	} else {
		q += " ORDER BY t.due_date ASC"
	}
	return r.queryMany(ctx, q, args...)
}

// ApplyPatch commits the permitted fields in a single UPDATE. Concurrent
// updates to the same row resolve last-write-wins at the storage layer.
func (r *Tasks) ApplyPatch(ctx context.Context, id string, patch *models.TaskPatch) error {
	var (
		sets []string
		args []interface{}
	)
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Title.Set {
		add("title", patch.Title.Value)
	}
	if patch.Description.Set {
		if patch.Description.Valid {
			add("description", patch.Description.Value)
		} else {
			add("description", nil)
		}
	}
	if patch.DueDate.Set {
		add("due_date", patch.DueDate.Value)
	}
	if patch.Priority.Set {
		add("priority", string(patch.Priority.Value))
	}
	if patch.Status.Set {
		add("status", string(patch.Status.Value))
	}
	if patch.AssignedToID.Set {
		if patch.AssignedToID.Valid {
			add("assigned_to_id", patch.AssignedToID.Value)
		} else {
			add("assigned_to_id", nil)
		}
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)
	q := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}

// Delete removes the task row. Deletion is terminal; there is no soft delete.
func (r *Tasks) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("task not found")
	}
	return nil
}
