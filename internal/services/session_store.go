package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/database"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
)

const (
	DefaultMaxSessionMessages = 50
	DefaultSessionTTL         = 24 * time.Hour
	DefaultHistoryTurns       = 10
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRole     = errors.New("message role must be user or assistant")
)

// SessionStoreConfig bounds conversation history
type SessionStoreConfig struct {
	MaxMessages int
	TTL         time.Duration
}

func (c SessionStoreConfig) withDefaults() SessionStoreConfig {
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxSessionMessages
	}
	if c.TTL <= 0 {
		c.TTL = DefaultSessionTTL
	}
	return c
}

// SessionStore keeps bounded, expiring conversation history
type SessionStore interface {
	// FindOrCreate returns the live session, creating it when missing or expired.
	// An empty sessionID gets a generated one.
	FindOrCreate(ctx context.Context, sessionID, userID string, meta models.SessionMetadata) (*models.ConversationSession, error)
	// AppendMessage appends one turn, keeping only the most recent MaxMessages
	AppendMessage(ctx context.Context, session *models.ConversationSession, role, content string) (*models.ConversationSession, error)
	Get(ctx context.Context, sessionID string) (*models.ConversationSession, error)
	Delete(ctx context.Context, sessionID string) error
	ExpireInactive(ctx context.Context) (int, error)
}

// HistoryForGeneration returns the last limit turns as role/content pairs
func HistoryForGeneration(session *models.ConversationSession, limit int) []models.HistoryTurn {
	if session == nil || limit <= 0 {
		return nil
	}
	messages := session.Messages
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	turns := make([]models.HistoryTurn, len(messages))
	for i, m := range messages {
		turns[i] = models.HistoryTurn{Role: m.Role, Content: m.Content}
	}
	return turns
}

func newSessionID() string {
	return "sess_" + uuid.New().String()
}

type memorySession struct {
	mu   sync.Mutex
	data *models.ConversationSession
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	cfg      SessionStoreConfig
	now      func() time.Time
}

// NewMemorySessionStore creates an in-memory session store. A nil clock uses time.Now.
func NewMemorySessionStore(cfg SessionStoreConfig, now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{
		sessions: make(map[string]*memorySession),
		cfg:      cfg.withDefaults(),
		now:      now,
	}
}

func (s *MemorySessionStore) expired(session *models.ConversationSession, now time.Time) bool {
	return now.Sub(session.LastActivityAt) >= s.cfg.TTL
}

func (s *MemorySessionStore) FindOrCreate(_ context.Context, sessionID, userID string, meta models.SessionMetadata) (*models.ConversationSession, error) {
	if sessionID == "" {
		sessionID = newSessionID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.sessions[sessionID]; ok {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		if !s.expired(entry.data, now) {
			entry.data.LastActivityAt = now
			if entry.data.UserID == "" && userID != "" {
				entry.data.UserID = userID
			}
			return entry.data.Clone(), nil
		}
	}

	meta.UserQueryCount = 0
	session := &models.ConversationSession{
		SessionID:      sessionID,
		UserID:         userID,
		Messages:       []models.SessionMessage{},
		LastActivityAt: now,
		Metadata:       meta,
		CreatedAt:      now,
	}
	s.sessions[sessionID] = &memorySession{data: session}
	return session.Clone(), nil
}

func (s *MemorySessionStore) AppendMessage(_ context.Context, session *models.ConversationSession, role, content string) (*models.ConversationSession, error) {
	if !models.IsValidRole(role) {
		return nil, ErrInvalidRole
	}

	s.mu.RLock()
	entry, ok := s.sessions[session.SessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := s.now()
	data := entry.data
	data.Messages = append(data.Messages, models.SessionMessage{Role: role, Content: content, Timestamp: now})
	if over := len(data.Messages) - s.cfg.MaxMessages; over > 0 {
		data.Messages = append([]models.SessionMessage(nil), data.Messages[over:]...)
	}
	if role == models.RoleUser {
		data.Metadata.UserQueryCount++
	}
	data.LastActivityAt = now

	return data.Clone(), nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*models.ConversationSession, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if s.expired(entry.data, s.now()) {
		return nil, ErrSessionNotFound
	}
	return entry.data.Clone(), nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) ExpireInactive(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired := 0
	for id, entry := range s.sessions {
		entry.mu.Lock()
		stale := s.expired(entry.data, now)
		entry.mu.Unlock()
		if stale {
			delete(s.sessions, id)
			expired++
		}
	}
	return expired, nil
}

// MongoSessionStore persists sessions in the chat_sessions collection
type MongoSessionStore struct {
	collection *mongo.Collection
	cfg        SessionStoreConfig
	now        func() time.Time
}

// NewMongoSessionStore creates a MongoDB-backed session store
func NewMongoSessionStore(db *database.MongoDB, cfg SessionStoreConfig) *MongoSessionStore {
	return &MongoSessionStore{
		collection: db.Collection(database.CollectionChatSessions),
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}
}

func (s *MongoSessionStore) cutoff() time.Time {
	return s.now().Add(-s.cfg.TTL)
}

func (s *MongoSessionStore) FindOrCreate(ctx context.Context, sessionID, userID string, meta models.SessionMetadata) (*models.ConversationSession, error) {
	if sessionID == "" {
		sessionID = newSessionID()
	}
	now := s.now()

	// The TTL monitor runs lazily; drop a stale record so it is not revived
	if _, err := s.collection.DeleteOne(ctx, bson.M{"sessionId": sessionID, "lastActivityAt": bson.M{"$lte": s.cutoff()}}); err != nil {
		return nil, fmt.Errorf("failed to clear expired session: %w", err)
	}

	update := bson.M{
		"$set": bson.M{"lastActivityAt": now},
		"$setOnInsert": bson.M{
			"sessionId": sessionID,
			"messages":  bson.A{},
			"createdAt": now,
			"metadata": bson.M{
				"userAgent":      meta.UserAgent,
				"ip":             meta.IP,
				"userQueryCount": 0,
			},
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var session models.ConversationSession
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"sessionId": sessionID}, update, opts).Decode(&session)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert created the session first
		err = s.collection.FindOneAndUpdate(ctx, bson.M{"sessionId": sessionID}, update, opts).Decode(&session)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if userID != "" && session.UserID == "" {
		_, err := s.collection.UpdateOne(ctx,
			bson.M{"sessionId": sessionID, "userId": bson.M{"$in": bson.A{"", nil}}},
			bson.M{"$set": bson.M{"userId": userID}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to attach user to session: %w", err)
		}
		session.UserID = userID
	}

	return &session, nil
}

func (s *MongoSessionStore) AppendMessage(ctx context.Context, session *models.ConversationSession, role, content string) (*models.ConversationSession, error) {
	if !models.IsValidRole(role) {
		return nil, ErrInvalidRole
	}
	now := s.now()

	update := bson.M{
		"$push": bson.M{
			"messages": bson.M{
				"$each":  bson.A{models.SessionMessage{Role: role, Content: content, Timestamp: now}},
				"$slice": -s.cfg.MaxMessages,
			},
		},
		"$set": bson.M{"lastActivityAt": now},
	}
	if role == models.RoleUser {
		update["$inc"] = bson.M{"metadata.userQueryCount": 1}
	}

	var updated models.ConversationSession
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"sessionId": session.SessionID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return &updated, nil
}

func (s *MongoSessionStore) Get(ctx context.Context, sessionID string) (*models.ConversationSession, error) {
	var session models.ConversationSession
	err := s.collection.FindOne(ctx, bson.M{
		"sessionId":      sessionID,
		"lastActivityAt": bson.M{"$gt": s.cutoff()},
	}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *MongoSessionStore) Delete(ctx context.Context, sessionID string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *MongoSessionStore) ExpireInactive(ctx context.Context) (int, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"lastActivityAt": bson.M{"$lte": s.cutoff()}})
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	return int(result.DeletedCount), nil
}
