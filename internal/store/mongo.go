package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore writes each saved Record to a MongoDB collection, grounded
// on the teacher's MongoStorage (internal/storage/database.go) narrowed
// from batched Item inserts to one Record upsert per call.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStore creates a MongoDB-backed store.
func NewMongoStore(uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_store"),
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, record Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, map[string]string{"_id": record.ID}, record, opts)
	if err != nil {
		return "", fmt.Errorf("mongodb upsert: %w", err)
	}

	s.count++
	s.logger.Debug("record stored in mongodb", "id", record.ID, "total", s.count)
	return record.ID, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb store closing", "total_records", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
