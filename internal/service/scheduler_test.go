package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"stockcount-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	runs atomic.Int32
}

func (c *countingSyncer) Sync(ctx context.Context) model.SyncResult {
	n := c.runs.Add(1)
	return model.SyncResult{Success: n%2 == 1, TotalCount: int(n)}
}

func TestSyncScheduler_RunsPeriodically(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewSyncScheduler(syncer, SchedulerConfig{Interval: 10 * time.Millisecond, InitialDelay: time.Millisecond})

	s.Start()
	s.Start()
	require.Eventually(t, func() bool { return syncer.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	_, ok := s.LastResult()
	assert.True(t, ok)
}

func TestSyncScheduler_RunNow(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewSyncScheduler(syncer, SchedulerConfig{Interval: time.Hour})

	_, ok := s.LastResult()
	assert.False(t, ok)

	res := s.RunNow()
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalCount)

	res = s.RunNow()
	assert.False(t, res.Success)
}
