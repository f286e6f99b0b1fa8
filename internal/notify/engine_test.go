package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"taskpulse/internal/apperr"
	"taskpulse/internal/models"
)

// memStore is an in-memory notify.Store with the same prune-on-read
// behavior as the Postgres repository.
type memStore struct {
	rows       []models.Notification
	seq        int
	failCreate bool
}

func (m *memStore) Create(_ context.Context, n *models.Notification) error {
	if m.failCreate {
		return errors.New("store down")
	}
	m.seq++
	n.ID = fmt.Sprintf("n-%d", m.seq)
	n.CreatedAt = time.Unix(1_700_000_000, 0).Add(time.Duration(m.seq) * time.Second)
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*models.Notification, error) {
	for i := range m.rows {
		if m.rows[i].ID == id {
			n := m.rows[i]
			return &n, nil
		}
	}
	return nil, apperr.NotFound("notification not found")
}

func (m *memStore) ListAndPrune(_ context.Context, userID string, keep int) ([]models.Notification, error) {
	var mine []models.Notification
	var rest []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			mine = append(mine, n)
		} else {
			rest = append(rest, n)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	if len(mine) > keep {
		mine = mine[:keep]
	}
	m.rows = append(rest, mine...)
	return mine, nil
}

func (m *memStore) UnreadSince(_ context.Context, userID string, since time.Time) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID && !n.Read && !n.CreatedAt.Before(since) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) MarkRead(_ context.Context, id string) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Read = true
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

// recChannel records emitted events.
type recChannel struct {
	emits []string // "userID/event"
}

func (r *recChannel) EmitToUser(_ context.Context, userID, event string, _ interface{}) {
	r.emits = append(r.emits, userID+"/"+event)
}

func (r *recChannel) EmitAll(_ context.Context, event string, _ interface{}) {
	r.emits = append(r.emits, "*/"+event)
}

func newTestEngine(t *testing.T) (*Engine, *memStore, *recChannel) {
	t.Helper()
	store := &memStore{}
	ch := &recChannel{}
	return NewEngine(store, ch, 15, 7*24*time.Hour), store, ch
}

func strPtr(s string) *string { return &s }

func assignedTask() *models.Task {
	return &models.Task{
		ID:           "task-1",
		Title:        "Write report",
		Priority:     models.PriorityHigh,
		Status:       models.StatusToDo,
		CreatorID:    "creator",
		AssignedToID: strPtr("assignee"),
		Creator:      &models.UserSummary{ID: "creator", Name: "Cara"},
	}
}

func TestTaskAssigned_PersistsThenEmits(t *testing.T) {
	ctx := context.Background()
	engine, store, ch := newTestEngine(t)

	engine.TaskAssigned(ctx, assignedTask())

	if len(store.rows) != 1 {
		t.Fatalf("persisted %d rows, want 1", len(store.rows))
	}
	n := store.rows[0]
	if n.UserID != "assignee" || n.Type != models.NotifyTaskAssigned {
		t.Errorf("row = %+v", n)
	}
	if n.Read {
		t.Error("new notification must start unread")
	}
	if len(ch.emits) != 1 || ch.emits[0] != "assignee/notification" {
		t.Errorf("emits = %v", ch.emits)
	}
}

func TestTaskAssigned_NoAssigneeNoRow(t *testing.T) {
	ctx := context.Background()
	engine, store, ch := newTestEngine(t)
	task := assignedTask()
	task.AssignedToID = nil

	engine.TaskAssigned(ctx, task)

	if len(store.rows) != 0 || len(ch.emits) != 0 {
		t.Errorf("rows=%d emits=%v, want none", len(store.rows), ch.emits)
	}
}

func TestCreateAndEmit_PersistFailureSwallowedAndNotEmitted(t *testing.T) {
	ctx := context.Background()
	engine, store, ch := newTestEngine(t)
	store.failCreate = true

	// Must not panic or emit when the store is down.
	engine.TaskAssigned(ctx, assignedTask())
	engine.TaskCompleted(ctx, assignedTask(), "Al")
	engine.TaskDeleted(ctx, assignedTask())

	if len(ch.emits) != 0 {
		t.Errorf("emitted %v despite persist failure", ch.emits)
	}
}

func TestTaskCompleted_NotifiesCreator(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	engine.TaskCompleted(ctx, assignedTask(), "Al")

	if len(store.rows) != 1 {
		t.Fatalf("persisted %d rows, want 1", len(store.rows))
	}
	n := store.rows[0]
	if n.UserID != "creator" || n.Type != models.NotifyTaskCompleted {
		t.Errorf("row = %+v", n)
	}
}

func TestTaskDeleted_NotifiesAssignee(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	engine.TaskDeleted(ctx, assignedTask())

	if len(store.rows) != 1 || store.rows[0].Type != models.NotifyTaskDeleted {
		t.Fatalf("rows = %+v", store.rows)
	}
}

func TestList_RetentionCap(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	for i := 0; i < 20; i++ {
		engine.TaskAssigned(ctx, assignedTask())
	}
	got, err := engine.List(ctx, "assignee")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 15 {
		t.Fatalf("got %d notifications, want 15", len(got))
	}
	// Newest first; the 5 oldest are pruned for good.
	if got[0].ID != "n-20" || got[14].ID != "n-6" {
		t.Errorf("window = %s .. %s, want n-20 .. n-6", got[0].ID, got[14].ID)
	}
	if len(store.rows) != 15 {
		t.Errorf("store retains %d rows after prune, want 15", len(store.rows))
	}
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)
	engine.TaskAssigned(ctx, assignedTask())
	id := store.rows[0].ID

	if err := engine.MarkRead(ctx, id, "assignee"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !store.rows[0].Read {
		t.Error("row not marked read")
	}

	// Idempotent: marking again is a no-op, not an error.
	if err := engine.MarkRead(ctx, id, "assignee"); err != nil {
		t.Errorf("second MarkRead: %v", err)
	}
	if !store.rows[0].Read {
		t.Error("read flag must stay true")
	}

	if err := engine.MarkRead(ctx, id, "creator"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other user's notification: err = %v, want ErrForbidden", err)
	}
	if err := engine.MarkRead(ctx, "missing", "assignee"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing notification: err = %v, want ErrNotFound", err)
	}
}

func TestMissed_WindowAndReadFilter(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	now := time.Now().UTC()
	store.rows = []models.Notification{
		{ID: "old", UserID: "u", CreatedAt: now.Add(-8 * 24 * time.Hour)},
		{ID: "read", UserID: "u", Read: true, CreatedAt: now.Add(-time.Hour)},
		{ID: "fresh", UserID: "u", CreatedAt: now.Add(-time.Hour)},
		{ID: "other", UserID: "v", CreatedAt: now.Add(-time.Hour)},
	}

	got, err := engine.Missed(ctx, "u")
	if err != nil {
		t.Fatalf("Missed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fresh" {
		t.Errorf("missed = %+v, want just 'fresh'", got)
	}
}
