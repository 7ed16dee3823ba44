package state

import (
	"sync"
	"time"
)

// RunStatus is the coarse status of one streaming execution.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunState wraps one Synchronizer scoped to a single streaming run. It is
// created when the run starts and discarded when the run leaves the active
// table.
type RunState struct {
	RunID      string
	State      *Synchronizer
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Error      string

	mu sync.Mutex
}

// NewRunState creates a running RunState with a fresh synchronizer.
func NewRunState(runID string) *RunState {
	return &RunState{
		RunID:     runID,
		State:     NewSynchronizer(),
		StartedAt: time.Now().UTC(),
		Status:    RunRunning,
	}
}

// Finish marks the run completed or failed and stamps FinishedAt.
func (r *RunState) Finish(status RunStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Status = status
	r.Error = errMsg
	r.FinishedAt = time.Now().UTC()
}

// RunTable tracks active runs. Runs are added when a stream starts and
// removed on every exit path.
type RunTable struct {
	mu   sync.RWMutex
	runs map[string]*RunState
}

// NewRunTable creates an empty run table.
func NewRunTable() *RunTable {
	return &RunTable{runs: make(map[string]*RunState)}
}

// Add registers a run.
func (t *RunTable) Add(r *RunState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[r.RunID] = r
}

// Get returns the run with the given id.
func (t *RunTable) Get(runID string) (*RunState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runs[runID]
	return r, ok
}

// Remove drops a run from the table.
func (t *RunTable) Remove(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, runID)
}

// Count returns the number of active runs.
func (t *RunTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.runs)
}
