package kv

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// FallbackStore prefers a durable primary store and transparently degrades
// to an in-memory fallback when the primary fails. Callers never see primary
// outages unless the fallback path fails too.
//
// The two stores are not kept consistent with each other: during a partial
// outage an entry may be visible through one store and not the other, so
// readers must treat the combined store as eventually consistent.
type FallbackStore struct {
	primary   Store
	fallback  *MemoryStore
	degraded  atomic.Bool
	onDegrade func()
}

// NewFallbackStore wraps primary with an in-memory fallback.
func NewFallbackStore(primary Store, fallback *MemoryStore) *FallbackStore {
	if fallback == nil {
		fallback = NewMemoryStore()
	}
	return &FallbackStore{primary: primary, fallback: fallback}
}

// OnDegrade installs a hook invoked once per degraded operation. Used to feed
// a degradation counter without coupling this package to the metrics surface.
func (s *FallbackStore) OnDegrade(hook func()) {
	s.onDegrade = hook
}

// Degraded reports whether any operation has fallen back since startup.
// Exposed for observability.
func (s *FallbackStore) Degraded() bool {
	return s.degraded.Load()
}

// Fallback returns the in-memory store, for external sweep scheduling.
func (s *FallbackStore) Fallback() *MemoryStore {
	return s.fallback
}

func (s *FallbackStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, ErrNotFound) {
		// The entry may have been written to the fallback during an
		// earlier outage.
		if s.degraded.Load() {
			return s.fallback.Get(ctx, key)
		}
		return nil, err
	}

	s.degrade("get", key, err)
	return s.fallback.Get(ctx, key)
}

func (s *FallbackStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.primary.Set(ctx, key, value, ttl); err != nil {
		s.degrade("set", key, err)
		return s.fallback.Set(ctx, key, value, ttl)
	}
	return nil
}

func (s *FallbackStore) Delete(ctx context.Context, key string) (bool, error) {
	existed, err := s.primary.Delete(ctx, key)
	if err != nil {
		s.degrade("delete", key, err)
		return s.fallback.Delete(ctx, key)
	}
	if s.degraded.Load() {
		// Remove any shadow copy written during an outage.
		shadowed, _ := s.fallback.Delete(ctx, key)
		existed = existed || shadowed
	}
	return existed, nil
}

func (s *FallbackStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.primary.Scan(ctx, prefix)
	if err != nil {
		s.degrade("scan", prefix, err)
		return s.fallback.Scan(ctx, prefix)
	}
	if !s.degraded.Load() {
		return keys, nil
	}

	// Merge keys that only exist in the fallback.
	shadow, err := s.fallback.Scan(ctx, prefix)
	if err != nil {
		return keys, nil
	}
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		seen[key] = true
	}
	for _, key := range shadow {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *FallbackStore) degrade(op, key string, err error) {
	first := s.degraded.CompareAndSwap(false, true)
	slog.Warn("durable store unavailable, falling back to memory",
		"op", op,
		"key", key,
		"error", err,
		"first", first,
	)
	if s.onDegrade != nil {
		s.onDegrade()
	}
}

var _ Store = (*FallbackStore)(nil)
