package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"stockcount-api/internal/model"
	"stockcount-api/internal/repository"
)

// SnapshotPendingStore keeps pending items in memory and rewrites the "pending" snapshot on every change.
type SnapshotPendingStore struct {
	repo repository.SnapshotRepository

	mu    sync.Mutex
	items []model.ScannedItem
	index map[string]int
}

// NewSnapshotPendingStore creates a store and restores previously saved items.
func NewSnapshotPendingStore(ctx context.Context, repo repository.SnapshotRepository) (*SnapshotPendingStore, error) {
	s := &SnapshotPendingStore{
		repo:  repo,
		index: make(map[string]int),
	}

	data, _, err := repo.Get(ctx, repository.NamespacePending, repository.SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending snapshot: %w", err)
	}
	if data == nil {
		return s, nil
	}

	var snap model.CacheSnapshot[model.ScannedItem]
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[PendingStore] Corrupt pending snapshot discarded: %v", err)
		_ = repo.Delete(ctx, repository.NamespacePending, repository.SnapshotKey)
		return s, nil
	}
	for _, item := range snap.Records {
		key := item.Key()
		if key == "" {
			continue
		}
		if _, exists := s.index[key]; exists {
			continue
		}
		s.index[key] = len(s.items)
		s.items = append(s.items, item)
	}

	log.Printf("[PendingStore] Restored %d pending items", len(s.items))
	return s, nil
}

func (s *SnapshotPendingStore) save(ctx context.Context) error {
	data, err := json.Marshal(model.CacheSnapshot[model.ScannedItem]{Records: s.items, SyncedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode pending items: %w", err)
	}
	return s.repo.Put(ctx, repository.NamespacePending, repository.SnapshotKey, data)
}

func (s *SnapshotPendingStore) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, item := range s.items {
		s.index[item.Key()] = i
	}
}

// GetAll returns items in capture order.
func (s *SnapshotPendingStore) GetAll(ctx context.Context) ([]model.ScannedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ScannedItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

// Add stores item; an existing barcode makes it a no-op.
func (s *SnapshotPendingStore) Add(ctx context.Context, item model.ScannedItem) (bool, error) {
	key := item.Key()
	if key == "" {
		return false, ErrInvalidKey
	}
	item.BarcodeID = key

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[key]; exists {
		return false, nil
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, item)

	if err := s.save(ctx); err != nil {
		return true, fmt.Errorf("failed to persist pending item: %w", err)
	}
	return true, nil
}

// Remove deletes the item with barcode.
func (s *SnapshotPendingStore) Remove(ctx context.Context, barcode string) error {
	key := strings.TrimSpace(barcode)

	s.mu.Lock()
	defer s.mu.Unlock()

	i, exists := s.index[key]
	if !exists {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindex()

	return s.save(ctx)
}

// Clear deletes every item.
func (s *SnapshotPendingStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.index = make(map[string]int)
	return s.repo.Delete(ctx, repository.NamespacePending, repository.SnapshotKey)
}

// Count returns the number of pending items.
func (s *SnapshotPendingStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

var _ PendingStore = (*SnapshotPendingStore)(nil)
