package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prismgate/prism/pkg/kv"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(kv.NewMemoryStore())
}

func TestManager_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Status != StatusCreated {
		t.Errorf("Create() status = %s, want %s", created.Status, StatusCreated)
	}
	if len(created.Messages) != 1 {
		t.Errorf("Create() messages = %d, want 1", len(created.Messages))
	}
	if created.ID == "" {
		t.Error("Create() returned empty id")
	}

	got, err := m.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != created.ID || got.AgentID != "a1" {
		t.Errorf("Get() = %+v, want id %s agent a1", got, created.ID)
	}
}

func TestManager_Create_RequiresAgent(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create(context.Background(), "", NewMessage(RoleUser, TextPart("hi")), nil); err == nil {
		t.Error("Create() with empty agent id expected error")
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get(context.Background(), "missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get() error = %v, want ErrTaskNotFound", err)
	}
}

func TestManager_AddMessage(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before := created.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	updated, err := m.AddMessage(ctx, created.ID, NewMessage(RoleAssistant, TextPart("hello")))
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("AddMessage() id = %s, want %s", updated.ID, created.ID)
	}
	if len(updated.Messages) != 2 {
		t.Errorf("AddMessage() messages = %d, want 2", len(updated.Messages))
	}
	if !updated.UpdatedAt.After(before) {
		t.Errorf("AddMessage() UpdatedAt not advanced: %v -> %v", before, updated.UpdatedAt)
	}
}

func TestManager_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	working, err := m.UpdateStatus(ctx, created.ID, StatusWorking, "")
	if err != nil {
		t.Fatalf("UpdateStatus(WORKING) error = %v", err)
	}
	if working.Status != StatusWorking {
		t.Errorf("status = %s, want %s", working.Status, StatusWorking)
	}
	if working.CompletedAt != nil {
		t.Error("CompletedAt set before completion")
	}

	done, err := m.UpdateStatus(ctx, created.ID, StatusCompleted, "")
	if err != nil {
		t.Fatalf("UpdateStatus(COMPLETED) error = %v", err)
	}
	if done.CompletedAt == nil {
		t.Error("CompletedAt not stamped on completion")
	}

	// Terminal tasks reject all further transitions.
	if _, err := m.UpdateStatus(ctx, created.ID, StatusWorking, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("UpdateStatus() out of terminal error = %v, want ErrInvalidTransition", err)
	}
}

func TestManager_UpdateStatus_Backward(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := m.UpdateStatus(ctx, created.ID, StatusWorking, ""); err != nil {
		t.Fatalf("UpdateStatus(WORKING) error = %v", err)
	}
	if _, err := m.UpdateStatus(ctx, created.ID, StatusCreated, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("backward transition error = %v, want ErrInvalidTransition", err)
	}
	if _, err := m.UpdateStatus(ctx, created.ID, Status("BOGUS"), ""); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status error = %v, want ErrInvalidStatus", err)
	}
}

func TestManager_UpdateStatus_RecordsError(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	failed, err := m.UpdateStatus(ctx, created.ID, StatusFailed, "boom")
	if err != nil {
		t.Fatalf("UpdateStatus(FAILED) error = %v", err)
	}
	if failed.Error != "boom" {
		t.Errorf("Error = %q, want %q", failed.Error, "boom")
	}
}

func TestManager_List(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	mk := func(agentID string, status Status) *Task {
		t.Helper()
		created, err := m.Create(ctx, agentID, NewMessage(RoleUser, TextPart("hi")), nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if status != StatusCreated {
			time.Sleep(time.Millisecond)
			if created, err = m.UpdateStatus(ctx, created.ID, status, ""); err != nil {
				t.Fatalf("UpdateStatus() error = %v", err)
			}
		}
		return created
	}

	mk("a1", StatusCompleted)
	newest := mk("a1", StatusCompleted)
	mk("a1", StatusWorking)
	mk("a2", StatusCompleted)

	got, err := m.List(ctx, ListFilter{AgentID: "a1", Status: StatusCompleted, Limit: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List() returned %d tasks, want 1", len(got))
	}
	if got[0].AgentID != "a1" || got[0].Status != StatusCompleted {
		t.Errorf("List() returned %s/%s, want a1/COMPLETED", got[0].AgentID, got[0].Status)
	}
	if got[0].ID != newest.ID {
		t.Errorf("List() not sorted by UpdatedAt desc: got %s, want %s", got[0].ID, newest.ID)
	}

	all, err := m.List(ctx, ListFilter{AgentID: "a1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List(a1) returned %d tasks, want 3", len(all))
	}

	offset, err := m.List(ctx, ListFilter{AgentID: "a1", Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(offset) != 1 {
		t.Errorf("List(offset=2) returned %d tasks, want 1", len(offset))
	}

	past, err := m.List(ctx, ListFilter{AgentID: "a1", Offset: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(past) != 0 {
		t.Errorf("List(offset past end) returned %d tasks, want 0", len(past))
	}
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	existed, err := m.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !existed {
		t.Error("Delete() existed = false, want true")
	}

	existed, err = m.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if existed {
		t.Error("Delete() existed = true for removed task")
	}
}

func TestManager_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	m := NewManager(store, WithTTL(5*time.Millisecond))

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if _, err := m.Get(ctx, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get() after TTL error = %v, want ErrTaskNotFound", err)
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	m := NewManager(store, WithTTL(5*time.Millisecond))

	if _, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if n := m.CleanupExpired(5 * time.Millisecond); n != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", n)
	}
	if store.Len() != 0 {
		t.Errorf("store.Len() = %d after cleanup, want 0", store.Len())
	}
}

func TestManager_TransitionHook(t *testing.T) {
	ctx := context.Background()
	var seen []Status
	m := NewManager(kv.NewMemoryStore(), WithTransitionHook(func(s Status) {
		seen = append(seen, s)
	}))

	created, err := m.Create(ctx, "a1", NewMessage(RoleUser, TextPart("hi")), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := m.UpdateStatus(ctx, created.ID, StatusWorking, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if _, err := m.UpdateStatus(ctx, created.ID, StatusCompleted, ""); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	// Rejected transitions must not fire the hook.
	m.UpdateStatus(ctx, created.ID, StatusWorking, "")

	if len(seen) != 2 || seen[0] != StatusWorking || seen[1] != StatusCompleted {
		t.Errorf("hook observed %v, want [working completed]", seen)
	}
}
