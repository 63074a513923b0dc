package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/database"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/knowledge"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
)

var (
	ErrDuplicateContent   = errors.New("knowledge chunk with identical content already exists")
	ErrInvalidContentHash = errors.New("knowledge chunk has an invalid content hash")
)

// KnowledgeStore persists knowledge chunks keyed by content hash
type KnowledgeStore interface {
	// Insert stores a new chunk; ErrDuplicateContent when the hash exists
	Insert(ctx context.Context, chunk *models.KnowledgeChunk) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	// All returns every chunk ordered by creation time
	All(ctx context.Context) ([]models.KnowledgeChunk, error)
	// UpdateClassification saves the classification fields of an existing chunk
	UpdateClassification(ctx context.Context, chunk *models.KnowledgeChunk) error
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int, error)
	Clear(ctx context.Context) (int, error)
	Stats(ctx context.Context) (models.KnowledgeStats, error)
}

func prepareInsert(chunk *models.KnowledgeChunk, now time.Time) error {
	if !knowledge.ValidFingerprint(chunk.ContentHash) {
		return ErrInvalidContentHash
	}
	if chunk.ID.IsZero() {
		chunk.ID = primitive.NewObjectID()
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = now
	}
	chunk.UpdatedAt = now
	chunk.ApplyDefaults()
	return nil
}

// MemoryKnowledgeStore keeps chunks in process memory
type MemoryKnowledgeStore struct {
	mu     sync.RWMutex
	byHash map[string]*models.KnowledgeChunk
	now    func() time.Time
}

// NewMemoryKnowledgeStore creates an in-memory knowledge store. A nil clock uses time.Now.
func NewMemoryKnowledgeStore(now func() time.Time) *MemoryKnowledgeStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryKnowledgeStore{
		byHash: make(map[string]*models.KnowledgeChunk),
		now:    now,
	}
}

func (s *MemoryKnowledgeStore) Insert(_ context.Context, chunk *models.KnowledgeChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[chunk.ContentHash]; exists {
		return ErrDuplicateContent
	}
	if err := prepareInsert(chunk, s.now()); err != nil {
		return err
	}

	stored := *chunk
	s.byHash[chunk.ContentHash] = &stored
	return nil
}

func (s *MemoryKnowledgeStore) ExistsByHash(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.byHash[hash]
	return exists, nil
}

func (s *MemoryKnowledgeStore) All(_ context.Context) ([]models.KnowledgeChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]models.KnowledgeChunk, 0, len(s.byHash))
	for _, c := range s.byHash {
		chunks = append(chunks, *c)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].CreatedAt.Equal(chunks[j].CreatedAt) {
			return chunks[i].ID.Hex() < chunks[j].ID.Hex()
		}
		return chunks[i].CreatedAt.Before(chunks[j].CreatedAt)
	})
	return chunks, nil
}

func (s *MemoryKnowledgeStore) UpdateClassification(_ context.Context, chunk *models.KnowledgeChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stored := range s.byHash {
		if stored.ID == chunk.ID {
			stored.Category = chunk.Category
			stored.Importance = chunk.Importance
			stored.TemporalRelevance = chunk.TemporalRelevance
			stored.Keywords = chunk.Keywords
			stored.AcademicYear = chunk.AcademicYear
			stored.UpdatedAt = s.now()
			return nil
		}
	}
	return fmt.Errorf("knowledge chunk %s not found", chunk.ID.Hex())
}

func (s *MemoryKnowledgeStore) DeleteByIDs(_ context.Context, ids []primitive.ObjectID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remove := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	deleted := 0
	for hash, c := range s.byHash {
		if remove[c.ID] {
			delete(s.byHash, hash)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryKnowledgeStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.byHash)
	s.byHash = make(map[string]*models.KnowledgeChunk)
	return n, nil
}

func (s *MemoryKnowledgeStore) Stats(_ context.Context) (models.KnowledgeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.KnowledgeStats{
		TotalChunks:  int64(len(s.byHash)),
		ByCategory:   make(map[string]int64),
		ByImportance: make(map[string]int64),
	}
	for _, c := range s.byHash {
		stats.ByCategory[c.Category]++
		stats.ByImportance[string(c.Importance)]++
	}
	return stats, nil
}

// MongoKnowledgeStore persists chunks in the knowledge_chunks collection
type MongoKnowledgeStore struct {
	collection *mongo.Collection
}

// NewMongoKnowledgeStore creates a MongoDB-backed knowledge store
func NewMongoKnowledgeStore(db *database.MongoDB) *MongoKnowledgeStore {
	return &MongoKnowledgeStore{collection: db.Collection(database.CollectionKnowledgeChunks)}
}

func (s *MongoKnowledgeStore) Insert(ctx context.Context, chunk *models.KnowledgeChunk) error {
	if err := prepareInsert(chunk, time.Now()); err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, chunk); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateContent
		}
		return fmt.Errorf("failed to insert knowledge chunk: %w", err)
	}
	return nil
}

func (s *MongoKnowledgeStore) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"contentHash": hash}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up content hash: %w", err)
	}
	return n > 0, nil
}

func (s *MongoKnowledgeStore) All(ctx context.Context) ([]models.KnowledgeChunk, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge chunks: %w", err)
	}
	defer cursor.Close(ctx)

	var chunks []models.KnowledgeChunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge chunks: %w", err)
	}
	return chunks, nil
}

func (s *MongoKnowledgeStore) UpdateClassification(ctx context.Context, chunk *models.KnowledgeChunk) error {
	_, err := s.collection.UpdateByID(ctx, chunk.ID, bson.M{
		"$set": bson.M{
			"category":          chunk.Category,
			"importance":        chunk.Importance,
			"temporalRelevance": chunk.TemporalRelevance,
			"keywords":          chunk.Keywords,
			"academicYear":      chunk.AcademicYear,
			"updatedAt":         time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update knowledge chunk: %w", err)
	}
	return nil
}

func (s *MongoKnowledgeStore) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge chunks: %w", err)
	}
	return int(result.DeletedCount), nil
}

func (s *MongoKnowledgeStore) Clear(ctx context.Context) (int, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to clear knowledge chunks: %w", err)
	}
	return int(result.DeletedCount), nil
}

func (s *MongoKnowledgeStore) Stats(ctx context.Context) (models.KnowledgeStats, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return models.KnowledgeStats{}, fmt.Errorf("failed to count knowledge chunks: %w", err)
	}

	byCategory, err := s.countBy(ctx, "$category")
	if err != nil {
		return models.KnowledgeStats{}, err
	}
	byImportance, err := s.countBy(ctx, "$importance")
	if err != nil {
		return models.KnowledgeStats{}, err
	}

	return models.KnowledgeStats{
		TotalChunks:  total,
		ByCategory:   byCategory,
		ByImportance: byImportance,
	}, nil
}

func (s *MongoKnowledgeStore) countBy(ctx context.Context, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: field}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate knowledge stats: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge stats: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ID] = r.Count
	}
	return counts, nil
}
