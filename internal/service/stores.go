package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"stockcount-api/internal/cache"
	"stockcount-api/internal/model"
	"stockcount-api/internal/repository"
)

// Stores owns one cache store per mirrored table plus the row statistics snapshot.
type Stores struct {
	Comparison *cache.Store[int64, model.InventoryRecord]
	Results    *cache.Store[int64, model.InventoryRecord]
	Lookup     *cache.Store[int, model.ProductLookupRecord]
	Users      *cache.Store[string, model.UserRecord]

	repo repository.SnapshotRepository
}

// NewStores creates empty stores persisting to repo.
func NewStores(repo repository.SnapshotRepository) *Stores {
	return &Stores{
		Comparison: cache.NewStore[int64, model.InventoryRecord](repository.NamespaceComparison, repo, model.InventoryRecord.Key),
		Results:    cache.NewStore[int64, model.InventoryRecord](repository.NamespaceResults, repo, model.InventoryRecord.Key),
		Lookup:     cache.NewStore[int, model.ProductLookupRecord](repository.NamespaceLookup, repo, model.ProductLookupRecord.Key),
		Users:      cache.NewStore[string, model.UserRecord](repository.NamespaceUsers, repo, model.UserRecord.Key),
		repo:       repo,
	}
}

// Load restores every store from its snapshot. Storage failures are logged and leave the store empty.
func (s *Stores) Load(ctx context.Context) {
	type loader interface {
		Load(ctx context.Context) (int, error)
		Namespace() string
	}
	for _, st := range []loader{s.Lookup, s.Comparison, s.Results, s.Users} {
		n, err := st.Load(ctx)
		if err != nil {
			log.Printf("[Stores] Failed to load %s: %v", st.Namespace(), err)
			continue
		}
		log.Printf("[Stores] Loaded %d %s records from snapshot", n, st.Namespace())
	}
}

// Size returns the indexed record count of table.
func (s *Stores) Size(table model.Table) int {
	switch table {
	case model.TableComparison:
		return s.Comparison.Size()
	case model.TableResults:
		return s.Results.Size()
	case model.TableLookup:
		return s.Lookup.Size()
	case model.TableUsers:
		return s.Users.Size()
	}
	return 0
}

// SaveRowStats writes the row statistics snapshot.
func (s *Stores) SaveRowStats(ctx context.Context, stats model.RowStats) error {
	if s.repo == nil {
		return nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode row stats: %w", err)
	}
	return s.repo.Put(ctx, repository.NamespaceStats, repository.SnapshotKey, data)
}

// RowStats reads the row statistics snapshot. A missing or corrupt snapshot reports false.
func (s *Stores) RowStats(ctx context.Context) (model.RowStats, bool) {
	if s.repo == nil {
		return model.RowStats{}, false
	}
	data, _, err := s.repo.Get(ctx, repository.NamespaceStats, repository.SnapshotKey)
	if err != nil || data == nil {
		return model.RowStats{}, false
	}
	var stats model.RowStats
	if err := json.Unmarshal(data, &stats); err != nil {
		log.Printf("[Stores] Corrupt row stats discarded: %v", err)
		_ = s.repo.Delete(ctx, repository.NamespaceStats, repository.SnapshotKey)
		return model.RowStats{}, false
	}
	return stats, true
}

// updateRowStats applies fn to the current statistics and saves the result.
func (s *Stores) updateRowStats(ctx context.Context, fn func(*model.RowStats)) {
	stats, _ := s.RowStats(ctx)
	fn(&stats)
	if err := s.SaveRowStats(ctx, stats); err != nil {
		log.Printf("[Stores] Failed to save row stats: %v", err)
	}
}
