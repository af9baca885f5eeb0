package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLSnapshotRepository implements SnapshotRepository using MySQL.
type MySQLSnapshotRepository struct {
	db *sql.DB
}

// NewMySQLSnapshotRepository opens a MySQL connection and prepares the snapshot table.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLSnapshotRepository(dsn string) (*MySQLSnapshotRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	return NewMySQLSnapshotRepositoryFromDB(db)
}

// NewMySQLSnapshotRepositoryFromDB wraps an existing connection pool.
func NewMySQLSnapshotRepositoryFromDB(db *sql.DB) (*MySQLSnapshotRepository, error) {
	query := `
	CREATE TABLE IF NOT EXISTS cache_snapshots (
		namespace VARCHAR(64) NOT NULL,
		snapshot_key VARCHAR(128) NOT NULL,
		payload LONGTEXT NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		PRIMARY KEY (namespace, snapshot_key)
	)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[MySQLSnapshotRepository] Initialized")
	return &MySQLSnapshotRepository{db: db}, nil
}

// Get retrieves a snapshot payload.
func (r *MySQLSnapshotRepository) Get(ctx context.Context, namespace, key string) ([]byte, *time.Time, error) {
	query := `SELECT payload, updated_at FROM cache_snapshots WHERE namespace = ? AND snapshot_key = ? LIMIT 1`

	var payload []byte
	var updatedAt time.Time

	err := r.db.QueryRowContext(ctx, query, namespace, key).Scan(&payload, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get snapshot %s/%s: %w", namespace, key, err)
	}

	return payload, &updatedAt, nil
}

// Put inserts or replaces a snapshot payload.
func (r *MySQLSnapshotRepository) Put(ctx context.Context, namespace, key string, value []byte) error {
	query := `
		INSERT INTO cache_snapshots (namespace, snapshot_key, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`

	if _, err := r.db.ExecContext(ctx, query, namespace, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes a snapshot payload.
func (r *MySQLSnapshotRepository) Delete(ctx context.Context, namespace, key string) error {
	query := `DELETE FROM cache_snapshots WHERE namespace = ? AND snapshot_key = ?`
	if _, err := r.db.ExecContext(ctx, query, namespace, key); err != nil {
		return fmt.Errorf("failed to delete snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetStats returns statistics about the snapshot table.
func (r *MySQLSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_snapshots").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_snapshots"] = count

	dbStats := r.db.Stats()
	stats["open_connections"] = dbStats.OpenConnections
	stats["in_use"] = dbStats.InUse

	return stats, nil
}

// Close closes the database connection.
func (r *MySQLSnapshotRepository) Close() error {
	return r.db.Close()
}

var _ SnapshotRepository = (*MySQLSnapshotRepository)(nil)
