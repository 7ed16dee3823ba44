package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"
)

// flakyStore fails every operation once failing is set.
type flakyStore struct {
	inner   *MemoryStore
	failing bool
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.failing {
		return nil, fmt.Errorf("connection refused")
	}
	return s.inner.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.failing {
		return fmt.Errorf("connection refused")
	}
	return s.inner.Set(ctx, key, value, ttl)
}

func (s *flakyStore) Delete(ctx context.Context, key string) (bool, error) {
	if s.failing {
		return false, fmt.Errorf("connection refused")
	}
	return s.inner.Delete(ctx, key)
}

func (s *flakyStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	if s.failing {
		return nil, fmt.Errorf("connection refused")
	}
	return s.inner.Scan(ctx, prefix)
}

func TestFallbackStore_HealthyPrimary(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{inner: NewMemoryStore()}
	fb := NewFallbackStore(primary, NewMemoryStore())

	if err := fb.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := fb.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get() = %q, want %q", got, "v1")
	}
	if fb.Degraded() {
		t.Error("Degraded() = true with healthy primary")
	}
}

func TestFallbackStore_DegradesOnFailure(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{inner: NewMemoryStore(), failing: true}
	fb := NewFallbackStore(primary, NewMemoryStore())

	degradations := 0
	fb.OnDegrade(func() { degradations++ })

	if err := fb.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !fb.Degraded() {
		t.Error("Degraded() = false after primary failure")
	}
	if degradations != 1 {
		t.Errorf("degrade hook called %d times, want 1", degradations)
	}

	// The write landed in the fallback and stays readable while degraded.
	got, err := fb.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get() = %q, want %q", got, "v1")
	}
}

func TestFallbackStore_NotFoundChecksFallbackWhenDegraded(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{inner: NewMemoryStore()}
	fb := NewFallbackStore(primary, NewMemoryStore())

	// Write during an outage, then restore the primary.
	primary.failing = true
	if err := fb.Set(ctx, "shadow", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	primary.failing = false

	// The primary reports not found but the degraded flag routes the read
	// to the fallback copy.
	got, err := fb.Get(ctx, "shadow")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want %q", got, "v")
	}
}

func TestFallbackStore_NotFoundPassthrough(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{inner: NewMemoryStore()}
	fb := NewFallbackStore(primary, NewMemoryStore())

	if _, err := fb.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFallbackStore_ScanMergesWhenDegraded(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{inner: NewMemoryStore()}
	fb := NewFallbackStore(primary, NewMemoryStore())

	if err := fb.Set(ctx, "task:1", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	primary.failing = true
	if err := fb.Set(ctx, "task:2", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	primary.failing = false

	keys, err := fb.Scan(ctx, "task:")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "task:1" || keys[1] != "task:2" {
		t.Errorf("Scan() = %v, want [task:1 task:2]", keys)
	}
}

func TestFallbackStore_DeleteRemovesShadowCopy(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{inner: NewMemoryStore()}
	fb := NewFallbackStore(primary, NewMemoryStore())

	primary.failing = true
	if err := fb.Set(ctx, "k1", []byte("v"), 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	primary.failing = false

	existed, err := fb.Delete(ctx, "k1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !existed {
		t.Error("Delete() existed = false, want true (shadow copy)")
	}
	if _, err := fb.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}
