package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Collection names
const (
	CollectionKnowledgeChunks = "knowledge_chunks"
	CollectionChatSessions    = "chat_sessions"
)

const defaultDBName = "gdg_support"

// NewMongoDB creates a new MongoDB connection with connection pooling
func NewMongoDB(uri string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)

	db := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	log.Printf("✅ Connected to MongoDB database: %s", dbName)

	return db, nil
}

// extractDBName extracts the database name from the URI path component
// mongodb://localhost:27017/gdg?authSource=admin -> gdg
func extractDBName(uri string) string {
	lastSlash := -1
	questionMark := -1

	for i, c := range uri {
		if c == '/' {
			lastSlash = i
		}
		if c == '?' && questionMark == -1 {
			questionMark = i
		}
	}

	if lastSlash != -1 {
		start := lastSlash + 1
		end := len(uri)
		if questionMark != -1 && questionMark > lastSlash {
			end = questionMark
		}
		// "mongodb://host" has its last slash inside the scheme
		if start < end && uri[lastSlash-1] != '/' {
			return uri[start:end]
		}
	}

	return defaultDBName
}

// Initialize creates indexes for all collections.
// sessionTTL drives the expiry index on chat sessions.
func (m *MongoDB) Initialize(ctx context.Context, sessionTTL time.Duration) error {
	log.Println("📦 Initializing MongoDB indexes...")

	// Knowledge chunks: contentHash is the deduplication key
	if err := m.createIndexes(ctx, CollectionKnowledgeChunks, []mongo.IndexModel{
		{Keys: bson.D{{Key: "contentHash", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "importance", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create knowledge_chunks indexes: %w", err)
	}

	// Chat sessions: unique id, TTL on last activity
	if err := m.createIndexes(ctx, CollectionChatSessions, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "lastActivityAt", Value: -1}}},
		{Keys: bson.D{{Key: "lastActivityAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(sessionTTL / time.Second))},
	}); err != nil {
		return fmt.Errorf("failed to create chat_sessions indexes: %w", err)
	}

	log.Println("✅ MongoDB indexes initialized successfully")
	return nil
}

// createIndexes creates indexes for a collection
func (m *MongoDB) createIndexes(ctx context.Context, collectionName string, indexes []mongo.IndexModel) error {
	collection := m.database.Collection(collectionName)
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Collection returns a collection handle
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Database returns the underlying MongoDB database
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Name returns the database name
func (m *MongoDB) Name() string {
	return m.dbName
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	log.Println("🔌 Closing MongoDB connection...")
	return m.client.Disconnect(ctx)
}

// Ping checks if the database connection is alive
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}
