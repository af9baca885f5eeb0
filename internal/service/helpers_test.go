package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"stockcount-api/internal/cache"
	"stockcount-api/internal/config"
	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
	"stockcount-api/internal/remote/remotetest"
	"stockcount-api/internal/repository"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (s *recordingSink) Record(level model.AuditLevel, category, message, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, model.AuditEntry{Level: level, Category: category, Message: message, Detail: detail})
}

func (s *recordingSink) count(level model.AuditLevel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

type fixture struct {
	client *remotetest.Client
	repo   *repository.MemorySnapshotRepository
	stores *Stores
	sink   *recordingSink
	svc    *InventoryService
}

var testSyncConfig = config.SyncConfig{PageSize: 50, MaxPages: 100, UsersLimit: 100, ChunkSize: 10}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		client: remotetest.New(),
		repo:   repository.NewMemorySnapshotRepository(),
		sink:   &recordingSink{},
	}
	f.stores = NewStores(f.repo)

	names := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { names.Close() })

	pending, err := cache.NewSnapshotPendingStore(context.Background(), f.repo)
	require.NoError(t, err)

	resolver := NewResolver(f.client, f.stores.Lookup, names, time.Minute, testSyncConfig.ChunkSize)
	f.svc = NewInventoryService(f.client, f.stores, resolver, pending, f.sink, testSyncConfig)
	return f
}

func comparisonRow(barcode int64, product, round, branch, expected int) map[string]any {
	return map[string]any{
		remote.FieldBarcode:     barcode,
		remote.FieldProductCode: product,
		remote.FieldRound:       round,
		remote.FieldBranch:      branch,
		remote.FieldExpected:    expected,
	}
}

func resultRow(barcode int64, product, counted int, at time.Time) map[string]any {
	return map[string]any{
		remote.FieldBarcode:     barcode,
		remote.FieldProductCode: product,
		remote.FieldRound:       1,
		remote.FieldBranch:      1,
		remote.FieldCounted:     counted,
		remote.FieldTimestamp:   at.Format(model.TimestampLayout),
	}
}

func productRow(code int, name string) map[string]any {
	return map[string]any{remote.FieldProductCode: code, remote.FieldProductName: name}
}

// seed fills the fake remote with n comparison rows, the first done of them present in Results,
// and a product name for every product code.
func (f *fixture) seed(n, done int) {
	at := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		barcode := int64(7890000 + i)
		product := 100 + i%5
		f.client.AddRow(model.TableComparison, comparisonRow(barcode, product, 1, 1, 10))
		if i < done {
			f.client.AddRow(model.TableResults, resultRow(barcode, product, 10, at))
		}
	}
	for p := 100; p < 105; p++ {
		f.client.AddRow(model.TableLookup, productRow(p, "Product "+string(rune('A'+p-100))))
	}
	f.client.AddRow(model.TableUsers, map[string]any{"user": "ana", "password": "secret", "CODFUNC": 7})
}
