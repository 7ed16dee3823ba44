// Package kv defines the key/value storage contract used for task
// persistence, with a Redis-backed durable store, an in-memory store, and a
// fallback wrapper that degrades from the former to the latter on error.
//
// Values are opaque byte slices (callers serialize to JSON). Stores must be
// safe for concurrent use.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or its entry
// has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the pluggable persistence contract.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A positive ttl bounds the entry's
	// lifetime; zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. It reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Scan returns all keys with the given prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)
}
