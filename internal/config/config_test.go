package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 1000, cfg.Sync.PageSize)
	assert.Equal(t, 100, cfg.Sync.ChunkSize)
	assert.Equal(t, 10*time.Second, cfg.Remote.ConnectTimeout)
	assert.Equal(t, 15*time.Second, cfg.Remote.RequestTimeout)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "badger")
	t.Setenv("SYNC_PAGE_SIZE", "250")
	t.Setenv("API_KEYS", "a,b")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Storage.Type)
	assert.Equal(t, 250, cfg.Sync.PageSize)
	assert.Equal(t, []string{"a", "b"}, cfg.App.APIKeys)
}

func TestLoadRejectsBadPageSize(t *testing.T) {
	t.Setenv("SYNC_PAGE_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSNs(t *testing.T) {
	s := StorageConfig{User: "u", Password: "p", Host: "db", Port: 3306, Name: "inv", SSLMode: "disable"}
	assert.Equal(t, "u:p@tcp(db:3306)/inv?parseTime=true", s.MySQLDSN())
	assert.Equal(t, "postgres://u:p@db:3306/inv?sslmode=disable", s.PostgresDSN())
}
