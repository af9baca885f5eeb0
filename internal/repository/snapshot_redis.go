package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotRepository implements SnapshotRepository on a Redis hash per snapshot.
type RedisSnapshotRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshotRepository creates a snapshot repository using an existing client.
func NewRedisSnapshotRepository(client *redis.Client, prefix string) *RedisSnapshotRepository {
	log.Printf("[RedisSnapshotRepository] Initialized with prefix %q", prefix)
	return &RedisSnapshotRepository{client: client, prefix: prefix}
}

func (r *RedisSnapshotRepository) key(namespace, key string) string {
	return fmt.Sprintf("%s:snapshot:%s:%s", r.prefix, namespace, key)
}

// Get retrieves a snapshot payload.
func (r *RedisSnapshotRepository) Get(ctx context.Context, namespace, key string) ([]byte, *time.Time, error) {
	vals, err := r.client.HMGet(ctx, r.key(namespace, key), "payload", "updated_at").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get snapshot %s/%s: %w", namespace, key, err)
	}

	payload, ok := vals[0].(string)
	if !ok {
		return nil, nil, nil
	}

	updatedAt := time.Time{}
	if s, ok := vals[1].(string); ok {
		if nanos, err := strconv.ParseInt(s, 10, 64); err == nil {
			updatedAt = time.Unix(0, nanos).UTC()
		}
	}

	return []byte(payload), &updatedAt, nil
}

// Put inserts or replaces a snapshot payload.
func (r *RedisSnapshotRepository) Put(ctx context.Context, namespace, key string, value []byte) error {
	err := r.client.HSet(ctx, r.key(namespace, key),
		"payload", value,
		"updated_at", strconv.FormatInt(time.Now().UnixNano(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to put snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes a snapshot payload.
func (r *RedisSnapshotRepository) Delete(ctx context.Context, namespace, key string) error {
	if err := r.client.Del(ctx, r.key(namespace, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetStats counts snapshot keys under the prefix.
func (r *RedisSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, r.prefix+":snapshot:*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_snapshots": count,
		"prefix":          r.prefix,
	}, nil
}

// Close closes the Redis connection.
func (r *RedisSnapshotRepository) Close() error {
	return r.client.Close()
}

var _ SnapshotRepository = (*RedisSnapshotRepository)(nil)
