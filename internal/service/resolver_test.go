package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stockcount-api/internal/cache"
	"stockcount-api/internal/model"
	"stockcount-api/internal/remote"
	"stockcount-api/internal/remote/remotetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyClient fails the listed List calls against the Lookup table, counting from 1.
type flakyClient struct {
	remote.Client
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (c *flakyClient) List(ctx context.Context, table model.Table, opts remote.ListOptions) (*remote.Page, error) {
	if table == model.TableLookup {
		c.mu.Lock()
		c.calls++
		fail := c.failOn[c.calls]
		c.mu.Unlock()
		if fail {
			return nil, errors.New("chunk failed")
		}
	}
	return c.Client.List(ctx, table, opts)
}

func newTestResolver(t *testing.T, client remote.Client, chunk int) (*Resolver, *Stores) {
	t.Helper()
	stores := NewStores(nil)
	names := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { names.Close() })
	return NewResolver(client, stores.Lookup, names, time.Minute, chunk), stores
}

func lookupFixture() *remotetest.Client {
	c := remotetest.New()
	for code, name := range map[int]string{1: "Bolt", 2: "Nut", 3: "Washer", 4: "Screw", 5: ""} {
		c.AddRow(model.TableLookup, productRow(code, name))
	}
	return c
}

func TestResolveBatch_ChunkFailureLosesOnlyThatChunk(t *testing.T) {
	client := &flakyClient{Client: lookupFixture(), failOn: map[int]bool{1: true}}
	r, _ := newTestResolver(t, client, 2)

	names := r.ResolveBatch(context.Background(), []int{1, 2, 3, 4})

	assert.Equal(t, map[int]string{3: "Washer", 4: "Screw"}, names)
}

func TestResolveBatch_OmitsUnknownAndEmptyNames(t *testing.T) {
	r, _ := newTestResolver(t, lookupFixture(), 10)

	names := r.ResolveBatch(context.Background(), []int{1, 1, 5, 99})

	assert.Equal(t, map[int]string{1: "Bolt"}, names)
}

func TestResolveBatch_Idempotent(t *testing.T) {
	client := lookupFixture()
	r, _ := newTestResolver(t, client, 10)
	ctx := context.Background()

	first := r.ResolveBatch(ctx, []int{1, 2, 3})
	calls := client.Calls(model.TableLookup)
	second := r.ResolveBatch(ctx, []int{1, 2, 3})

	assert.Equal(t, first, second)
	assert.Equal(t, calls, client.Calls(model.TableLookup), "second batch served from the name cache")
}

func TestResolveOne_PrefersLookupStore(t *testing.T) {
	client := lookupFixture()
	r, stores := newTestResolver(t, client, 10)
	ctx := context.Background()
	stores.Lookup.UpsertAll(ctx, []model.ProductLookupRecord{{ProductCode: model.Int(1), Name: "Cached bolt"}})

	name, ok := r.ResolveOne(ctx, 1)

	require.True(t, ok)
	assert.Equal(t, "Cached bolt", name)
	assert.Equal(t, 0, client.Calls(model.TableLookup))
}

func TestResolveOne_RemoteAndFailure(t *testing.T) {
	client := lookupFixture()
	r, _ := newTestResolver(t, client, 10)
	ctx := context.Background()

	name, ok := r.ResolveOne(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, "Nut", name)

	_, ok = r.ResolveOne(ctx, 99)
	assert.False(t, ok)

	client.FailAll()
	_, ok = r.ResolveOne(ctx, 3)
	assert.False(t, ok)

	// Already resolved names survive the outage.
	name, ok = r.ResolveOne(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, "Nut", name)
}

// slowClient blocks Lookup queries until release is closed.
type slowClient struct {
	remote.Client
	release chan struct{}
	hits    atomic.Int32
}

func (c *slowClient) List(ctx context.Context, table model.Table, opts remote.ListOptions) (*remote.Page, error) {
	c.hits.Add(1)
	<-c.release
	return c.Client.List(ctx, table, opts)
}

func TestResolveOne_ConcurrentMissesShareQuery(t *testing.T) {
	client := &slowClient{Client: lookupFixture(), release: make(chan struct{})}
	r, _ := newTestResolver(t, client, 10)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.ResolveOne(context.Background(), 4)
		}(i)
	}

	require.Eventually(t, func() bool { return client.hits.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(client.release)
	wg.Wait()

	for _, name := range results {
		assert.Equal(t, "Screw", name)
	}
	assert.Equal(t, int32(1), client.hits.Load())
}
