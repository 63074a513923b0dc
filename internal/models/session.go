package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message roles stored in a conversation
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationSession is the bounded, expiring history of one chat conversation
type ConversationSession struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID      string             `bson:"sessionId" json:"sessionId"`
	UserID         string             `bson:"userId,omitempty" json:"userId,omitempty"`
	Messages       []SessionMessage   `bson:"messages" json:"messages"`
	LastActivityAt time.Time          `bson:"lastActivityAt" json:"lastActivityAt"`
	Metadata       SessionMetadata    `bson:"metadata" json:"metadata"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
}

// SessionMessage is a single turn in a conversation
type SessionMessage struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// SessionMetadata carries request details captured when the session was opened
type SessionMetadata struct {
	UserAgent      string `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	IP             string `bson:"ip,omitempty" json:"ip,omitempty"`
	UserQueryCount int    `bson:"userQueryCount" json:"userQueryCount"`
}

// HistoryTurn is the only history shape handed to the generation step
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Clone returns a deep copy so callers never share the stored message slice
func (s *ConversationSession) Clone() *ConversationSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Messages = make([]SessionMessage, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// IsValidRole reports whether role may be stored in a session
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
