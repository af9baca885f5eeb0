package cache

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"stockcount-api/internal/model"
	"stockcount-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordStore(repo repository.SnapshotRepository) *Store[int64, model.InventoryRecord] {
	return NewStore[int64, model.InventoryRecord](repository.NamespaceComparison, repo, model.InventoryRecord.Key)
}

func TestStore_UpsertAllDropsUnkeyableAndLastWins(t *testing.T) {
	ctx := context.Background()
	s := newRecordStore(repository.NewMemorySnapshotRepository())

	n := s.UpsertAll(ctx, []model.InventoryRecord{
		{BarcodeID: "1", Status: "first"},
		{BarcodeID: "abc"},
		{BarcodeID: ""},
		{BarcodeID: "2"},
		{BarcodeID: " 1 ", Status: "second"},
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Size())
	assert.False(t, s.IsEmpty())

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "second", got.Status)

	_, ok = s.Get(3)
	assert.False(t, ok)

	_, synced := s.LastSync()
	assert.True(t, synced)
}

func TestStore_UpsertAllReplaces(t *testing.T) {
	ctx := context.Background()
	s := newRecordStore(nil)

	s.UpsertAll(ctx, []model.InventoryRecord{{BarcodeID: "1"}, {BarcodeID: "2"}})
	s.UpsertAll(ctx, []model.InventoryRecord{{BarcodeID: "3"}})

	assert.Equal(t, 1, s.Size())
	assert.False(t, s.Has(1))
	assert.True(t, s.Has(3))
	assert.Equal(t, map[int64]struct{}{3: {}}, s.Keys())
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()

	records := []model.InventoryRecord{
		{BarcodeID: "10", ProductCode: model.Int(5), CountedQty: model.Int(3)},
		{BarcodeID: "11", Status: "Pending"},
		{BarcodeID: "bad"},
	}
	first := newRecordStore(repo)
	first.UpsertAll(ctx, records)

	second := newRecordStore(repo)
	n, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ElementsMatch(t, first.GetAll(), second.GetAll())
	at1, _ := first.LastSync()
	at2, ok := second.LastSync()
	require.True(t, ok)
	assert.True(t, at1.Equal(at2))
}

func TestStore_LoadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	require.NoError(t, repo.Put(ctx, repository.NamespaceComparison, repository.SnapshotKey, []byte("{broken")))

	s := newRecordStore(repo)
	n, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, s.IsEmpty())

	data, _, err := repo.Get(ctx, repository.NamespaceComparison, repository.SnapshotKey)
	require.NoError(t, err)
	assert.Nil(t, data, "corrupt snapshot should be deleted")
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemorySnapshotRepository()
	s := newRecordStore(repo)
	s.UpsertAll(ctx, []model.InventoryRecord{{BarcodeID: "1"}})

	require.NoError(t, s.Clear(ctx))
	assert.True(t, s.IsEmpty())
	_, synced := s.LastSync()
	assert.False(t, synced)

	data, _, _ := repo.Get(ctx, repository.NamespaceComparison, repository.SnapshotKey)
	assert.Nil(t, data)
}

func TestStore_ConcurrentReadsDuringReplace(t *testing.T) {
	ctx := context.Background()
	s := newRecordStore(nil)

	batchA := make([]model.InventoryRecord, 100)
	batchB := make([]model.InventoryRecord, 50)
	for i := range batchA {
		batchA[i] = model.InventoryRecord{BarcodeID: strconv.Itoa(i)}
	}
	for i := range batchB {
		batchB[i] = model.InventoryRecord{BarcodeID: strconv.Itoa(1000 + i)}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%2 == 0 {
					s.UpsertAll(ctx, batchA)
				} else {
					s.UpsertAll(ctx, batchB)
				}
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				n := len(s.GetAll())
				assert.True(t, n == 0 || n == 100 || n == 50, "observed partial index of %d", n)
			}
		}()
	}
	wg.Wait()
}

func TestStore_StringKeys(t *testing.T) {
	ctx := context.Background()
	s := NewStore[string, model.UserRecord](repository.NamespaceUsers, nil, model.UserRecord.Key)

	s.UpsertAll(ctx, []model.UserRecord{{Username: "ana"}, {Username: ""}, {Username: "bo"}})
	assert.Equal(t, 2, s.Size())
	u, ok := s.Get("ana")
	require.True(t, ok)
	assert.Equal(t, "ana", u.Username)
}
