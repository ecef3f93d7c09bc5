// Package store persists job results and dedupe markers. The API layer
// talks to the Store interface so tests can swap in a memory fake.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("key not found")

type Store interface {
	// Set writes value under key with the given TTL (0 means no expiry).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports which of keys are present, in the same order.
	Exists(ctx context.Context, keys ...string) ([]bool, error)
	// Ping verifies connectivity.
	Ping(ctx context.Context) error
	Close() error
}
