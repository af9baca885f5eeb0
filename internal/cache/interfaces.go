package cache

import (
	"context"
	"time"

	"stockcount-api/internal/model"
)

// Cache defines a byte-oriented TTL cache.
// The batch lookup resolver keeps remotely resolved product names here.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// SetMany stores several values with one TTL.
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error
}

// PendingStore holds scanned items awaiting submission, keyed by trimmed barcode.
type PendingStore interface {
	// GetAll returns items in capture order.
	GetAll(ctx context.Context) ([]model.ScannedItem, error)

	// Add stores item unless an item with the same key exists. Reports whether it was added.
	Add(ctx context.Context, item model.ScannedItem) (bool, error)

	// Remove deletes the item with the given barcode.
	Remove(ctx context.Context, barcode string) error

	// Clear deletes every item.
	Clear(ctx context.Context) error

	// Count returns the number of pending items.
	Count(ctx context.Context) (int, error)
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"

	// ErrInvalidKey indicates a pending item without a usable barcode.
	ErrInvalidKey CacheError = "invalid pending item key"
)
