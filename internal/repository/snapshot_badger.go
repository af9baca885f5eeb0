package repository

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerSnapshotRepository implements SnapshotRepository on an embedded BadgerDB.
type BadgerSnapshotRepository struct {
	db *badger.DB
}

// badgerLogger routes BadgerDB's warnings and errors through the standard logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[Badger] ERROR "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Printf("[Badger] WARN "+format, args...)
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}

// NewBadgerSnapshotRepository opens BadgerDB at dir. An empty dir opens an in-memory database.
func NewBadgerSnapshotRepository(dir string) (*BadgerSnapshotRepository, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	log.Printf("[BadgerSnapshotRepository] Initialized (dir=%q, in_memory=%v)", dir, dir == "")
	return &BadgerSnapshotRepository{db: db}, nil
}

func badgerKey(namespace, key string) []byte {
	return []byte(namespace + "/" + key)
}

// Values are stored as an 8-byte big-endian unix-nano timestamp followed by the payload.
func encodeBadgerValue(value []byte, at time.Time) []byte {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(at.UnixNano()))
	copy(buf[8:], value)
	return buf
}

// Get retrieves a snapshot payload.
func (r *BadgerSnapshotRepository) Get(ctx context.Context, namespace, key string) ([]byte, *time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var payload []byte
	var updatedAt time.Time

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(namespace, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < 8 {
				return fmt.Errorf("value too short: %d bytes", len(val))
			}
			updatedAt = time.Unix(0, int64(binary.BigEndian.Uint64(val[:8]))).UTC()
			payload = append([]byte(nil), val[8:]...)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get snapshot %s/%s: %w", namespace, key, err)
	}

	return payload, &updatedAt, nil
}

// Put inserts or replaces a snapshot payload.
func (r *BadgerSnapshotRepository) Put(ctx context.Context, namespace, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(namespace, key), encodeBadgerValue(value, time.Now()))
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes a snapshot payload.
func (r *BadgerSnapshotRepository) Delete(ctx context.Context, namespace, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(namespace, key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetStats returns key count and LSM/value log sizes.
func (r *BadgerSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	var count int64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lsm, vlog := r.db.Size()
	return map[string]interface{}{
		"total_snapshots": count,
		"lsm_size_bytes":  lsm,
		"vlog_size_bytes": vlog,
	}, nil
}

// Close closes the database.
func (r *BadgerSnapshotRepository) Close() error {
	return r.db.Close()
}

var _ SnapshotRepository = (*BadgerSnapshotRepository)(nil)
