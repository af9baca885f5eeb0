package repository

import (
	"context"
	"time"

	"stockcount-api/internal/model"
)

// Snapshot namespaces used by the cache layer.
const (
	NamespaceComparison = "comparison"
	NamespaceResults    = "results"
	NamespaceLookup     = "lookup"
	NamespaceUsers      = "users"
	NamespacePending    = "pending"
	NamespaceStats      = "stats"
	NamespaceAudit      = "audit"

	// SnapshotKey is the key under which a namespace stores its snapshot.
	SnapshotKey = "snapshot"
)

// SnapshotRepository defines durable key-value storage for serialized cache snapshots.
type SnapshotRepository interface {
	// Get returns the stored value and its write time, or nil values if the key is absent.
	Get(ctx context.Context, namespace, key string) ([]byte, *time.Time, error)

	// Put inserts or replaces a value.
	Put(ctx context.Context, namespace, key string, value []byte) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// GetStats returns statistics about the backing store.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// AuditRepository defines storage for audit journal entries.
type AuditRepository interface {
	// InsertAuditEntry appends an entry.
	InsertAuditEntry(ctx context.Context, entry *model.AuditEntry) error

	// GetAuditEntries returns entries newest first with the total count.
	GetAuditEntries(ctx context.Context, limit, offset int) ([]model.AuditEntry, int64, error)

	// ClearAuditEntries removes every entry.
	ClearAuditEntries(ctx context.Context) error
}
