package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prismgate/prism/pkg/kv"
)

const (
	// DefaultTTL bounds how long a persisted task lives in the store.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "task:"
)

// ListFilter narrows and pages List results.
type ListFilter struct {
	// AgentID filters by exact agent id when non-empty.
	AgentID string

	// Status filters by exact status when non-empty.
	Status Status

	// Limit caps the number of returned tasks. Zero means no cap.
	Limit int

	// Offset skips that many tasks after sorting.
	Offset int
}

// Manager owns the lifecycle and persistence of Task objects. All mutating
// operations are read-modify-write at single-task granularity; the backing
// store provides whatever cross-caller consistency it can.
type Manager struct {
	store        kv.Store
	ttl          time.Duration
	onTransition func(Status)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides the default task TTL.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithTransitionHook installs a callback invoked after every successful
// status transition.
func WithTransitionHook(hook func(Status)) ManagerOption {
	return func(m *Manager) {
		m.onTransition = hook
	}
}

// NewManager creates a Manager over the given store.
func NewManager(store kv.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		ttl:   DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create allocates a fresh task holding the initial message and persists it.
func (m *Manager) Create(ctx context.Context, agentID string, initial Message, taskCtx map[string]any) (*Task, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}

	now := time.Now().UTC()
	t := &Task{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Status:    StatusCreated,
		Messages:  []Message{initial},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  taskCtx,
	}

	if err := m.save(ctx, t); err != nil {
		return nil, err
	}

	slog.Debug("task created", "taskID", t.ID, "agentID", agentID)
	return t, nil
}

// Get retrieves a task by id.
func (m *Manager) Get(ctx context.Context, id string) (*Task, error) {
	data, err := m.store.Get(ctx, keyPrefix+id)
	if err == kv.ErrNotFound {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}

	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return &t, nil
}

// UpdateStatus transitions a task to a new status. Illegal transitions
// (backward moves, or any move out of a terminal state) are rejected with
// ErrInvalidTransition. Completion states also stamp CompletedAt; a given
// error string is recorded on the task.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status Status, taskErr string) (*Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	t, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !t.Status.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, status)
	}

	now := time.Now().UTC()
	t.Status = status
	t.UpdatedAt = now
	if status == StatusCompleted || status == StatusFailed {
		t.CompletedAt = &now
	}
	if taskErr != "" {
		t.Error = taskErr
	}

	if err := m.save(ctx, t); err != nil {
		return nil, err
	}
	if m.onTransition != nil {
		m.onTransition(status)
	}

	slog.Debug("task status updated", "taskID", id, "status", status)
	return t, nil
}

// AddMessage appends a message to the task history.
func (m *Manager) AddMessage(ctx context.Context, id string, msg Message) (*Task, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Messages = append(t.Messages, msg)
	t.UpdatedAt = time.Now().UTC()

	if err := m.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns tasks matching the filter, sorted by UpdatedAt descending.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*Task, error) {
	keys, err := m.store.Scan(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}

	var tasks []*Task
	for _, key := range keys {
		t, err := m.Get(ctx, strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			// Entry may have expired between scan and load.
			if err == ErrTaskNotFound {
				continue
			}
			return nil, err
		}
		if filter.AgentID != "" && t.AgentID != filter.AgentID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(tasks) {
			return nil, nil
		}
		tasks = tasks[filter.Offset:]
	}
	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

// Delete removes a task. It reports whether the task existed.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := m.store.Delete(ctx, keyPrefix+id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return existed, nil
}

// CleanupExpired reaps tasks older than maxAge from the in-memory fallback.
// The durable store expires entries natively via TTL, so this only matters
// while the fallback is serving; an external scheduler drives it.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	type sweeper interface {
		Sweep(time.Duration) int
	}
	switch s := m.store.(type) {
	case sweeper:
		return s.Sweep(maxAge)
	case interface{ Fallback() *kv.MemoryStore }:
		return s.Fallback().Sweep(maxAge)
	}
	return 0
}

func (m *Manager) save(ctx context.Context, t *Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", t.ID, err)
	}
	if err := m.store.Set(ctx, keyPrefix+t.ID, data, m.ttl); err != nil {
		return fmt.Errorf("failed to save task %s: %w", t.ID, err)
	}
	return nil
}
