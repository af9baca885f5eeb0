package repository

import (
	"context"
	"sync"
	"time"
)

type memorySnapshot struct {
	payload   []byte
	updatedAt time.Time
}

// MemorySnapshotRepository keeps snapshots in process memory. Used by tests and STORAGE_TYPE=memory.
type MemorySnapshotRepository struct {
	mu    sync.RWMutex
	items map[string]memorySnapshot
}

// NewMemorySnapshotRepository creates an empty in-memory repository.
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{items: make(map[string]memorySnapshot)}
}

func (r *MemorySnapshotRepository) Get(ctx context.Context, namespace, key string) ([]byte, *time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[namespace+"/"+key]
	if !ok {
		return nil, nil, nil
	}
	at := item.updatedAt
	return append([]byte(nil), item.payload...), &at, nil
}

func (r *MemorySnapshotRepository) Put(ctx context.Context, namespace, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[namespace+"/"+key] = memorySnapshot{
		payload:   append([]byte(nil), value...),
		updatedAt: time.Now(),
	}
	return nil
}

func (r *MemorySnapshotRepository) Delete(ctx context.Context, namespace, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, namespace+"/"+key)
	return nil
}

func (r *MemorySnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]interface{}{"total_snapshots": int64(len(r.items))}, nil
}

func (r *MemorySnapshotRepository) Close() error { return nil }

var _ SnapshotRepository = (*MemorySnapshotRepository)(nil)
