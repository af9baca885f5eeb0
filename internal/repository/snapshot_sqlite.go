package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteSnapshotRepository implements SnapshotRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteSnapshotRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteSnapshotRepository creates a new SQLite snapshot repository.
// dbPath is the path to the SQLite database file (e.g., "./data/snapshots.db")
func NewSQLiteSnapshotRepository(dbPath string) (*SQLiteSnapshotRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Keep connection alive

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteSnapshotRepository] Initialized with database: %s", dbPath)
	return &SQLiteSnapshotRepository{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS cache_snapshots (
		namespace TEXT NOT NULL,
		snapshot_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (namespace, snapshot_key)
	);
	`
	_, err := db.Exec(query)
	return err
}

// Get retrieves a snapshot payload.
func (r *SQLiteSnapshotRepository) Get(ctx context.Context, namespace, key string) ([]byte, *time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := `SELECT payload, updated_at FROM cache_snapshots WHERE namespace = ? AND snapshot_key = ?`

	var payload string
	var updatedAt time.Time

	err := r.db.QueryRowContext(ctx, query, namespace, key).Scan(&payload, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get snapshot %s/%s: %w", namespace, key, err)
	}

	return []byte(payload), &updatedAt, nil
}

// Put inserts or replaces a snapshot payload.
func (r *SQLiteSnapshotRepository) Put(ctx context.Context, namespace, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO cache_snapshots (namespace, snapshot_key, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, snapshot_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query, namespace, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to put snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes a snapshot payload.
func (r *SQLiteSnapshotRepository) Delete(ctx context.Context, namespace, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_snapshots WHERE namespace = ? AND snapshot_key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetStats returns statistics about the snapshot database.
func (r *SQLiteSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_snapshots").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_snapshots"] = count

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteSnapshotRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteSnapshotRepository implements SnapshotRepository
var _ SnapshotRepository = (*SQLiteSnapshotRepository)(nil)
