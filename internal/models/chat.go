package models

// ChatRequest is the sanitized body of POST /api/chat
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// ContextItem is one retrieved knowledge snippet returned alongside an answer
type ContextItem struct {
	Title    string  `json:"title"`
	Text     string  `json:"text"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

// ChatResponse is the body returned by the chat endpoint
type ChatResponse struct {
	Success   bool          `json:"success"`
	Response  string        `json:"response"`
	Cached    bool          `json:"cached"`
	Context   []ContextItem `json:"context,omitempty"`
	SessionID string        `json:"sessionId,omitempty"`
}

// CachedResponse is what the response cache keeps per message
type CachedResponse struct {
	Response string        `json:"response"`
	Context  []ContextItem `json:"context,omitempty"`
}

// ChatHistoryResponse is the body returned by the history endpoint
type ChatHistoryResponse struct {
	Success   bool             `json:"success"`
	SessionID string           `json:"sessionId"`
	Messages  []SessionMessage `json:"messages"`
}

// CacheStats describes one cache for operator inspection
type CacheStats struct {
	Size       int   `json:"size"`
	MaxSize    int   `json:"maxSize"`
	TTLSeconds int64 `json:"ttlSeconds"`
}
