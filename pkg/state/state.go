// Package state implements the versioned UI state synchronizer.
//
// A Synchronizer owns one nested key/value tree. Every mutation bumps the
// version by exactly one and produces an event a client can apply: either a
// full sync (entire tree) or an incremental update (partial delta plus an
// optional dotted path). A consumer that has never seen a full sync has an
// incomplete view by design, so adapters emit one at run start.
package state

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultHistoryDepth bounds the pre-mutation snapshot ring.
const DefaultHistoryDepth = 10

// SyncType discriminates synchronizer events.
type SyncType string

const (
	// SyncFull carries the entire tree and its version.
	SyncFull SyncType = "state_sync"

	// SyncIncremental carries only a delta and an optional path.
	SyncIncremental SyncType = "state_update"
)

// Event describes one state mutation.
type Event struct {
	Type      SyncType       `json:"type"`
	State     map[string]any `json:"state,omitempty"` // full tree, SyncFull only
	Delta     map[string]any `json:"delta,omitempty"` // partial, SyncIncremental only
	Path      string         `json:"path,omitempty"`
	Version   int64          `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
}

// Snapshot is a point-in-time copy of the tree kept in the history ring.
type Snapshot struct {
	State   map[string]any
	Version int64
	TakenAt time.Time
}

// Synchronizer owns a versioned state tree. Safe for concurrent use; in
// practice a single run drives it, with occasional concurrent reads.
type Synchronizer struct {
	mu      sync.RWMutex
	data    map[string]any
	version int64
	history []Snapshot
	depth   int
}

// NewSynchronizer creates an empty tree at version 1.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{
		data:    make(map[string]any),
		version: 1,
		depth:   DefaultHistoryDepth,
	}
}

// GetState returns a deep copy of the current tree.
func (s *Synchronizer) GetState() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.data)
}

// Version returns the current version.
func (s *Synchronizer) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SetState replaces the whole tree and returns a full-sync event.
func (s *Synchronizer) SetState(tree map[string]any) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot()
	s.data = deepCopy(tree)
	s.version++
	return s.fullSyncEventLocked()
}

// UpdateState shallow-merges partial into the mapping at the dotted path
// (root when path is empty), creating intermediate mappings as needed.
// Sibling keys at the target are preserved. The returned event carries only
// the delta and path, never the full tree.
func (s *Synchronizer) UpdateState(partial map[string]any, path string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.data
	if path != "" {
		var err error
		target, err = s.descendLocked(path, true)
		if err != nil {
			return Event{}, err
		}
	}

	s.snapshot()
	for k, v := range deepCopy(partial) {
		target[k] = v
	}
	s.version++

	return Event{
		Type:      SyncIncremental,
		Delta:     deepCopy(partial),
		Path:      path,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	}, nil
}

// MergeState recursively merges partial into the root: nested mappings are
// merged, scalar leaves are overwritten.
func (s *Synchronizer) MergeState(partial map[string]any) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot()
	deepMerge(s.data, partial)
	s.version++

	return Event{
		Type:      SyncIncremental,
		Delta:     deepCopy(partial),
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	}
}

// GetValue returns the value at the dotted path, or def when any segment
// is missing.
func (s *Synchronizer) GetValue(path string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	segments := strings.Split(path, ".")
	current := any(s.data)
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return def
		}
		current, ok = m[seg]
		if !ok {
			return def
		}
	}
	if m, ok := current.(map[string]any); ok {
		return deepCopy(m)
	}
	return current
}

// SetValue sets a single value at the dotted path, bumping the version.
func (s *Synchronizer) SetValue(path string, value any) (Event, error) {
	if path == "" {
		return Event{}, fmt.Errorf("path is required")
	}

	parent := path
	key := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		parent, key = path[:i], path[i+1:]
	} else {
		parent = ""
	}
	return s.UpdateState(map[string]any{key: value}, parent)
}

// DeleteValue removes the value at the dotted path, bumping the version.
// Deleting a missing path is not an error; the version still advances.
func (s *Synchronizer) DeleteValue(path string) (Event, error) {
	if path == "" {
		return Event{}, fmt.Errorf("path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent := ""
	key := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		parent, key = path[:i], path[i+1:]
	}

	target := s.data
	if parent != "" {
		var err error
		target, err = s.descendLocked(parent, false)
		if err != nil {
			return Event{}, err
		}
	}

	s.snapshot()
	if target != nil {
		delete(target, key)
	}
	s.version++

	return Event{
		Type:      SyncIncremental,
		Delta:     map[string]any{key: nil},
		Path:      parent,
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Reset clears the tree to empty, resets the version to 1, and returns a
// full-sync event. This is the only operation that rewinds the version.
func (s *Synchronizer) Reset() Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot()
	s.data = make(map[string]any)
	s.version = 1
	return s.fullSyncEventLocked()
}

// FullSyncEvent returns a full-sync event for the current tree without
// mutating anything. Adapters use it at run start.
func (s *Synchronizer) FullSyncEvent() Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullSyncEventLocked()
}

// History returns the recorded pre-mutation snapshots, oldest first.
func (s *Synchronizer) History() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Snapshot, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Synchronizer) fullSyncEventLocked() Event {
	return Event{
		Type:      SyncFull,
		State:     deepCopy(s.data),
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	}
}

// snapshot appends the pre-mutation tree to the bounded history ring.
// Callers hold the write lock.
func (s *Synchronizer) snapshot() {
	s.history = append(s.history, Snapshot{
		State:   deepCopy(s.data),
		Version: s.version,
		TakenAt: time.Now().UTC(),
	})
	if len(s.history) > s.depth {
		s.history = s.history[len(s.history)-s.depth:]
	}
}

// descendLocked walks the dotted path from the root, optionally creating
// intermediate mappings. Callers hold the write lock.
func (s *Synchronizer) descendLocked(path string, create bool) (map[string]any, error) {
	current := s.data
	for _, seg := range strings.Split(path, ".") {
		next, ok := current[seg]
		if !ok {
			if !create {
				return nil, nil
			}
			child := make(map[string]any)
			current[seg] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			if !create {
				return nil, nil
			}
			return nil, fmt.Errorf("path segment '%s' is not a mapping", seg)
		}
		current = child
	}
	return current, nil
}

func deepCopy(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			dst[k] = deepCopy(nested)
		} else {
			dst[k] = v
		}
	}
	return dst
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[k] = deepCopy(srcMap)
			continue
		}
		dst[k] = v
	}
}
