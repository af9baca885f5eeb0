package app

import (
	"context"
	"testing"

	"stockcount-api/internal/config"
	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
	"stockcount-api/internal/remote/remotetest"
	"stockcount-api/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Storage.Type = "sqlite"
	cfg.Storage.Path = t.TempDir() + "/snapshots.db"
	cfg.Storage.MongoURI = ""
	return cfg
}

func TestNew_SnapshotsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	client := remotetest.New()
	client.AddRow(model.TableComparison, map[string]any{remote.FieldBarcode: 11, remote.FieldExpected: 2})

	a, err := New(ctx, cfg, Options{Remote: client})
	require.NoError(t, err)
	require.True(t, a.Service.Sync(ctx).Success)
	require.NoError(t, a.Close())

	client.FailAll()
	b, err := New(ctx, cfg, Options{Remote: client})
	require.NoError(t, err)
	defer b.Close()

	res := b.Service.LookupByBarcode(ctx, "11", false)
	assert.True(t, res.Found)
	assert.Equal(t, 1, b.Stores.Comparison.Size())
	assert.Nil(t, b.Scheduler)
}

func TestNew_StorageBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		storage string
		pending string
	}{
		{"memory", "memory", "snapshot"},
		{"badger", "badger", "snapshot"},
		{"redis", "redis", "redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Storage.Type = tt.storage
			cfg.Storage.BadgerDir = ""
			cfg.Pending.Type = tt.pending
			cfg.Cache.RedisHost, cfg.Cache.RedisPort = splitAddr(t, mr)
			cfg.Sync.Interval = 0

			a, err := New(context.Background(), cfg, Options{Remote: remotetest.New()})
			require.NoError(t, err)
			defer a.Close()

			added, err := a.Service.AddPending(context.Background(), model.ScannedItem{BarcodeID: "5"})
			require.NoError(t, err)
			assert.True(t, added)

			stats, err := a.Snapshots.GetStats(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, stats)
		})
	}
}

func TestNew_UnknownStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "floppy"

	_, err := New(context.Background(), cfg, Options{Remote: remotetest.New()})
	assert.Error(t, err)
}

func TestAuditJournalUsesSnapshotStorage(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.Type = "memory"
	client := remotetest.New()
	client.FailAll()

	a, err := New(ctx, cfg, Options{Remote: client})
	require.NoError(t, err)
	a.Service.Sync(ctx)
	a.Journal.Close()

	entries, total, err := repository.NewSnapshotAuditRepository(a.Snapshots).GetAuditEntries(ctx, 10, 0)
	require.NoError(t, err)
	assert.Positive(t, total)
	assert.NotEmpty(t, entries)
	require.NoError(t, a.Close())
}
