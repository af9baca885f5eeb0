package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBSnapshotRepository implements SnapshotRepository using MongoDB.
type MongoDBSnapshotRepository struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
}

// ConnectMongo opens a client and verifies it with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// NewMongoDBSnapshotRepository creates a snapshot repository on an existing client.
func NewMongoDBSnapshotRepository(client *mongo.Client, database, collection string) (*MongoDBSnapshotRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := client.Database(database)
	coll := db.Collection(collection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "namespace", Value: 1}, {Key: "snapshot_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		log.Printf("[MongoDB] Warning: failed to create index: %v", err)
	}

	log.Printf("[MongoDB] Snapshots stored in %s/%s", database, collection)
	return &MongoDBSnapshotRepository{
		client:     client,
		db:         db,
		collection: coll,
	}, nil
}

// SnapshotDocument represents a document in MongoDB.
type SnapshotDocument struct {
	Namespace   string    `bson:"namespace"`
	SnapshotKey string    `bson:"snapshot_key"`
	Payload     string    `bson:"payload"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// Get retrieves a snapshot payload.
func (r *MongoDBSnapshotRepository) Get(ctx context.Context, namespace, key string) ([]byte, *time.Time, error) {
	filter := bson.M{"namespace": namespace, "snapshot_key": key}

	var doc SnapshotDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get snapshot %s/%s: %w", namespace, key, err)
	}

	return []byte(doc.Payload), &doc.UpdatedAt, nil
}

// Put inserts or replaces a snapshot payload.
func (r *MongoDBSnapshotRepository) Put(ctx context.Context, namespace, key string, value []byte) error {
	filter := bson.M{"namespace": namespace, "snapshot_key": key}
	update := bson.M{
		"$set": bson.M{
			"payload":    string(value),
			"updated_at": time.Now().UTC(),
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to put snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes a snapshot payload.
func (r *MongoDBSnapshotRepository) Delete(ctx context.Context, namespace, key string) error {
	filter := bson.M{"namespace": namespace, "snapshot_key": key}
	if _, err := r.collection.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete snapshot %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetStats returns collection statistics.
func (r *MongoDBSnapshotRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_snapshots": count,
		"collection":      r.collection.Name(),
		"database":        r.db.Name(),
	}, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBSnapshotRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ SnapshotRepository = (*MongoDBSnapshotRepository)(nil)
