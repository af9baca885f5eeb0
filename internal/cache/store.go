package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"stockcount-api/internal/model"
	"stockcount-api/internal/repository"
)

// KeyFunc extracts the business key of a record. Records without a usable key report false.
type KeyFunc[K comparable, V any] func(V) (K, bool)

// Store mirrors one remote table in memory, indexed by business key, with a durable snapshot.
// Replacement is build-then-swap, so readers never observe a half-built index.
type Store[K comparable, V any] struct {
	namespace string
	keyFn     KeyFunc[K, V]
	repo      repository.SnapshotRepository

	mu       sync.RWMutex
	items    map[K]V
	lastSync time.Time
	size     atomic.Int64

	// persistMu orders snapshot writes with index swaps.
	persistMu sync.Mutex
}

// NewStore creates an empty store persisting to namespace in repo. A nil repo disables persistence.
func NewStore[K comparable, V any](namespace string, repo repository.SnapshotRepository, keyFn KeyFunc[K, V]) *Store[K, V] {
	return &Store[K, V]{
		namespace: namespace,
		keyFn:     keyFn,
		repo:      repo,
		items:     make(map[K]V),
	}
}

// Namespace returns the snapshot namespace.
func (s *Store[K, V]) Namespace() string {
	return s.namespace
}

func (s *Store[K, V]) index(records []V) map[K]V {
	items := make(map[K]V, len(records))
	for _, r := range records {
		key, ok := s.keyFn(r)
		if !ok {
			continue
		}
		items[key] = r
	}
	return items
}

// UpsertAll replaces the contents with records and persists a snapshot.
// Unkeyable records are dropped; on duplicate keys the last record wins. Returns the indexed count.
// A snapshot write failure is logged; the in-memory index is still replaced.
func (s *Store[K, V]) UpsertAll(ctx context.Context, records []V) int {
	items := s.index(records)
	now := time.Now()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.items = items
	s.lastSync = now
	s.size.Store(int64(len(items)))
	s.mu.Unlock()

	if s.repo != nil {
		values := make([]V, 0, len(items))
		for _, v := range items {
			values = append(values, v)
		}
		if err := s.persist(ctx, values, now); err != nil {
			log.Printf("[CacheStore] Failed to persist %s snapshot: %v", s.namespace, err)
		}
	}

	return len(items)
}

func (s *Store[K, V]) persist(ctx context.Context, values []V, at time.Time) error {
	data, err := json.Marshal(model.CacheSnapshot[V]{Records: values, SyncedAt: at})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.repo.Put(ctx, s.namespace, repository.SnapshotKey, data)
}

// Get returns the record for key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Has reports whether key is indexed.
func (s *Store[K, V]) Has(key K) bool {
	_, ok := s.Get(key)
	return ok
}

// GetAll returns a copy of all records in unspecified order.
func (s *Store[K, V]) GetAll() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]V, 0, len(s.items))
	for _, v := range s.items {
		out = append(out, v)
	}
	return out
}

// Keys returns the set of indexed keys.
func (s *Store[K, V]) Keys() map[K]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[K]struct{}, len(s.items))
	for k := range s.items {
		keys[k] = struct{}{}
	}
	return keys
}

// Size returns the number of indexed records.
func (s *Store[K, V]) Size() int {
	return int(s.size.Load())
}

// IsEmpty reports whether the store holds no records.
func (s *Store[K, V]) IsEmpty() bool {
	return s.Size() == 0
}

// LastSync returns when the contents were last replaced or loaded.
func (s *Store[K, V]) LastSync() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync, !s.lastSync.IsZero()
}

// Clear empties the store and deletes its snapshot.
func (s *Store[K, V]) Clear(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.items = make(map[K]V)
	s.lastSync = time.Time{}
	s.size.Store(0)
	s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	if err := s.repo.Delete(ctx, s.namespace, repository.SnapshotKey); err != nil {
		return fmt.Errorf("failed to clear %s cache: %w", s.namespace, err)
	}
	return nil
}

// Load restores the store from its snapshot and returns the number of records indexed.
// A corrupt snapshot is deleted and the store stays empty; only storage failures are returned.
func (s *Store[K, V]) Load(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}

	data, _, err := s.repo.Get(ctx, s.namespace, repository.SnapshotKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s snapshot: %w", s.namespace, err)
	}
	if data == nil {
		return 0, nil
	}

	var snap model.CacheSnapshot[V]
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[CacheStore] Corrupt %s snapshot discarded: %v", s.namespace, err)
		if delErr := s.repo.Delete(ctx, s.namespace, repository.SnapshotKey); delErr != nil {
			log.Printf("[CacheStore] Failed to delete corrupt %s snapshot: %v", s.namespace, delErr)
		}
		return 0, nil
	}

	items := s.index(snap.Records)

	s.mu.Lock()
	s.items = items
	s.lastSync = snap.SyncedAt
	s.size.Store(int64(len(items)))
	s.mu.Unlock()

	return len(items), nil
}
