package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"stockcount-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// Buffer configuration
const (
	MaxBatchSize    = 50
	FlushTimeout    = 120 * time.Second
	CleanupInterval = 5 * time.Minute
)

// FlushFunc submits buffered items and returns the keys that were accepted remotely.
// Keys not returned stay buffered for the next flush.
type FlushFunc func(ctx context.Context, items []model.ScannedItem) (flushed []string, err error)

// Removes the item only if it was not replaced while the flush was running.
var deleteIfUnchangedScript = redis.NewScript(`
	if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
		redis.call("HDEL", KEYS[1], ARGV[1])
		redis.call("ZREM", KEYS[2], ARGV[1])
		return 1
	else
		return 0
	end
`)

// RedisPendingBuffer is a PendingStore backed by Redis that can flush items to the Results table in the background.
// Items live in a hash keyed by barcode; a sorted set scored by capture time keeps their order.
type RedisPendingBuffer struct {
	client        *redis.Client
	flushInterval time.Duration
	keyPrefix     string

	flushFunc     FlushFunc
	flushTicker   *time.Ticker
	cleanupTicker *time.Ticker
	stopFlush     chan struct{}
	flushDone     chan struct{}
	startOnce     sync.Once
	stopOnce      sync.Once
	started       bool
}

// RedisBufferConfig holds configuration for the Redis buffer.
type RedisBufferConfig struct {
	FlushInterval time.Duration // 0 disables background flushing
	KeyPrefix     string
}

// NewRedisClient creates a client and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisPendingBuffer creates a Redis-backed pending store. Call Start to enable background flushing.
func NewRedisPendingBuffer(client *redis.Client, cfg RedisBufferConfig) *RedisPendingBuffer {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "stockcount"
	}

	return &RedisPendingBuffer{
		client:        client,
		flushInterval: cfg.FlushInterval,
		keyPrefix:     keyPrefix + ":pending",
		stopFlush:     make(chan struct{}),
		flushDone:     make(chan struct{}),
	}
}

func (b *RedisPendingBuffer) itemsKey() string {
	return b.keyPrefix + ":items"
}

func (b *RedisPendingBuffer) orderKey() string {
	return b.keyPrefix + ":order"
}

// Start launches the background flush and cleanup loops.
func (b *RedisPendingBuffer) Start(flushFunc FlushFunc) {
	if b.flushInterval <= 0 || flushFunc == nil {
		log.Printf("[RedisPendingBuffer] Background flush disabled")
		return
	}
	b.startOnce.Do(func() {
		b.flushFunc = flushFunc
		b.flushTicker = time.NewTicker(b.flushInterval)
		b.cleanupTicker = time.NewTicker(CleanupInterval)
		b.started = true

		go b.backgroundFlush()
		go b.backgroundCleanup()

		log.Printf("[RedisPendingBuffer] Started - prefix:%s, flush:%v, batch:%d",
			b.keyPrefix, b.flushInterval, MaxBatchSize)
	})
}

// Add buffers an item unless its barcode is already pending.
func (b *RedisPendingBuffer) Add(ctx context.Context, item model.ScannedItem) (bool, error) {
	key := item.Key()
	if key == "" {
		return false, ErrInvalidKey
	}
	item.BarcodeID = key
	if item.CapturedAt.IsZero() {
		item.CapturedAt = time.Now()
	}

	jsonData, err := json.Marshal(item)
	if err != nil {
		return false, err
	}

	added, err := b.client.HSetNX(ctx, b.itemsKey(), key, jsonData).Result()
	if err != nil {
		return false, fmt.Errorf("failed to buffer item %s: %w", key, err)
	}
	if !added {
		return false, nil
	}

	score := float64(item.CapturedAt.UnixNano())
	if err := b.client.ZAdd(ctx, b.orderKey(), redis.Z{Score: score, Member: key}).Err(); err != nil {
		return true, fmt.Errorf("failed to order item %s: %w", key, err)
	}
	return true, nil
}

// GetAll returns buffered items in capture order.
func (b *RedisPendingBuffer) GetAll(ctx context.Context) ([]model.ScannedItem, error) {
	items, _, err := b.read(ctx, 0)
	return items, err
}

// read loads up to limit items (0 = all) and their raw encodings.
func (b *RedisPendingBuffer) read(ctx context.Context, limit int) ([]model.ScannedItem, map[string]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	keys, err := b.client.ZRange(ctx, b.orderKey(), 0, stop).Result()
	if err != nil {
		return nil, nil, err
	}

	items := make([]model.ScannedItem, 0, len(keys))
	raw := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return items, raw, nil
	}

	vals, err := b.client.HMGet(ctx, b.itemsKey(), keys...).Result()
	if err != nil {
		return nil, nil, err
	}

	for i, v := range vals {
		data, ok := v.(string)
		if !ok {
			continue
		}
		var item model.ScannedItem
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			log.Printf("[RedisPendingBuffer] Error unmarshaling %s: %v", keys[i], err)
			b.client.HDel(ctx, b.itemsKey(), keys[i])
			b.client.ZRem(ctx, b.orderKey(), keys[i])
			continue
		}
		items = append(items, item)
		raw[keys[i]] = data
	}
	return items, raw, nil
}

// Remove deletes the item with barcode.
func (b *RedisPendingBuffer) Remove(ctx context.Context, barcode string) error {
	key := strings.TrimSpace(barcode)
	pipe := b.client.TxPipeline()
	pipe.HDel(ctx, b.itemsKey(), key)
	pipe.ZRem(ctx, b.orderKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

// Clear deletes every buffered item.
func (b *RedisPendingBuffer) Clear(ctx context.Context) error {
	return b.client.Del(ctx, b.itemsKey(), b.orderKey()).Err()
}

// Count returns the number of buffered items.
func (b *RedisPendingBuffer) Count(ctx context.Context) (int, error) {
	n, err := b.client.HLen(ctx, b.itemsKey()).Result()
	return int(n), err
}

// FlushBatch submits up to MaxBatchSize of the oldest items with fn and removes the accepted ones.
func (b *RedisPendingBuffer) FlushBatch(ctx context.Context, fn FlushFunc) (int, error) {
	items, raw, err := b.read(ctx, MaxBatchSize)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	totalPending, _ := b.Count(ctx)
	log.Printf("[RedisPendingBuffer] Flushing %d/%d items", len(items), totalPending)

	flushed, err := fn(ctx, items)
	if err != nil {
		log.Printf("[RedisPendingBuffer] Flush error: %v", err)
	}
	if len(flushed) == 0 {
		return 0, err
	}

	pipe := b.client.Pipeline()
	for _, key := range flushed {
		data, ok := raw[key]
		if !ok {
			continue
		}
		deleteIfUnchangedScript.Eval(ctx, pipe, []string{b.itemsKey(), b.orderKey()}, key, data)
	}
	if _, execErr := pipe.Exec(ctx); execErr != nil && !errors.Is(execErr, redis.Nil) {
		log.Printf("[RedisPendingBuffer] Error clearing Redis: %v", execErr)
	}

	log.Printf("[RedisPendingBuffer] Successfully flushed %d items", len(flushed))
	return len(flushed), err
}

// CleanupOrphans drops order entries whose item is gone.
func (b *RedisPendingBuffer) CleanupOrphans(ctx context.Context) (int, error) {
	keys, err := b.client.ZRange(ctx, b.orderKey(), 0, -1).Result()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	vals, err := b.client.HMGet(ctx, b.itemsKey(), keys...).Result()
	if err != nil {
		return 0, err
	}

	orphans := make([]interface{}, 0)
	for i, v := range vals {
		if v == nil {
			orphans = append(orphans, keys[i])
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	if err := b.client.ZRem(ctx, b.orderKey(), orphans...).Err(); err != nil {
		return 0, err
	}
	log.Printf("[RedisPendingBuffer] Cleaned up %d orphaned entries", len(orphans))
	return len(orphans), nil
}

func (b *RedisPendingBuffer) backgroundFlush() {
	defer close(b.flushDone)
	for {
		select {
		case <-b.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
			if _, err := b.FlushBatch(ctx, b.flushFunc); err != nil {
				log.Printf("[RedisPendingBuffer] Background flush error: %v", err)
			}
			cancel()
		case <-b.stopFlush:
			log.Printf("[RedisPendingBuffer] Shutdown: flushing remaining items...")
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			for {
				flushed, err := b.FlushBatch(ctx, b.flushFunc)
				if err != nil || flushed == 0 {
					break
				}
			}
			cancel()
			log.Printf("[RedisPendingBuffer] Shutdown flush complete")
			return
		}
	}
}

func (b *RedisPendingBuffer) backgroundCleanup() {
	for {
		select {
		case <-b.cleanupTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			b.CleanupOrphans(ctx)
			cancel()
		case <-b.stopFlush:
			return
		}
	}
}

// Close stops the background loops after a final flush. The client is owned by the caller.
func (b *RedisPendingBuffer) Close() error {
	b.stopOnce.Do(func() {
		if b.started {
			b.flushTicker.Stop()
			b.cleanupTicker.Stop()
		}
		close(b.stopFlush)
		if b.started {
			<-b.flushDone
		}
	})
	return nil
}

var _ PendingStore = (*RedisPendingBuffer)(nil)
