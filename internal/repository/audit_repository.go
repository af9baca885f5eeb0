package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stockcount-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxAuditEntries caps the number of retained journal entries.
const MaxAuditEntries = 500

// MongoDBAuditRepository implements AuditRepository for MongoDB.
type MongoDBAuditRepository struct {
	collection *mongo.Collection
}

// NewMongoDBAuditRepository creates a new MongoDB audit repository on an existing client.
func NewMongoDBAuditRepository(client *mongo.Client, dbName, collectionName string) *MongoDBAuditRepository {
	return &MongoDBAuditRepository{
		collection: client.Database(dbName).Collection(collectionName),
	}
}

// InsertAuditEntry inserts a new entry and trims the journal to MaxAuditEntries.
func (r *MongoDBAuditRepository) InsertAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil || count <= MaxAuditEntries {
		return nil
	}

	// Find the timestamp of the oldest entry that should survive.
	findOptions := options.FindOne().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(MaxAuditEntries - 1)
	var cutoff model.AuditEntry
	if err := r.collection.FindOne(ctx, bson.M{}, findOptions).Decode(&cutoff); err != nil {
		return nil
	}
	_, err = r.collection.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff.Timestamp}})
	if err != nil {
		return fmt.Errorf("failed to trim audit entries: %w", err)
	}
	return nil
}

// GetAuditEntries retrieves entries with pagination.
func (r *MongoDBAuditRepository) GetAuditEntries(ctx context.Context, limit, offset int) ([]model.AuditEntry, int64, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "timestamp", Value: -1}})
	findOptions.SetLimit(int64(limit))
	findOptions.SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var entries []model.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}

	// Ensure not nil slice for JSON
	if entries == nil {
		entries = []model.AuditEntry{}
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	return entries, count, nil
}

// ClearAuditEntries removes every entry.
func (r *MongoDBAuditRepository) ClearAuditEntries(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

// SnapshotAuditRepository keeps the journal as a single JSON list in a SnapshotRepository.
type SnapshotAuditRepository struct {
	store SnapshotRepository
	mu    sync.Mutex
}

// NewSnapshotAuditRepository creates an audit repository on top of snapshot storage.
func NewSnapshotAuditRepository(store SnapshotRepository) *SnapshotAuditRepository {
	return &SnapshotAuditRepository{store: store}
}

func (r *SnapshotAuditRepository) load(ctx context.Context) ([]model.AuditEntry, error) {
	data, _, err := r.store.Get(ctx, NamespaceAudit, SnapshotKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var entries []model.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt journal starts over.
		return nil, nil
	}
	return entries, nil
}

// InsertAuditEntry prepends an entry, dropping the oldest beyond MaxAuditEntries.
func (r *SnapshotAuditRepository) InsertAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	entries, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load audit entries: %w", err)
	}
	entries = append([]model.AuditEntry{*entry}, entries...)
	if len(entries) > MaxAuditEntries {
		entries = entries[:MaxAuditEntries]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode audit entries: %w", err)
	}
	return r.store.Put(ctx, NamespaceAudit, SnapshotKey, data)
}

// GetAuditEntries returns entries newest first.
func (r *SnapshotAuditRepository) GetAuditEntries(ctx context.Context, limit, offset int) ([]model.AuditEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load audit entries: %w", err)
	}
	total := int64(len(entries))

	if offset > len(entries) {
		offset = len(entries)
	}
	end := len(entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]model.AuditEntry, end-offset)
	copy(page, entries[offset:end])
	return page, total, nil
}

// ClearAuditEntries removes the journal.
func (r *SnapshotAuditRepository) ClearAuditEntries(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, NamespaceAudit, SnapshotKey)
}

var (
	_ AuditRepository = (*MongoDBAuditRepository)(nil)
	_ AuditRepository = (*SnapshotAuditRepository)(nil)
)
