package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceKind records where a knowledge chunk came from
type SourceKind string

const (
	SourceStructuredImport SourceKind = "structured-import"
	SourceManual           SourceKind = "manual"
	SourceDerived          SourceKind = "derived"
)

// Importance ranks a chunk for retrieval
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceNormal Importance = "normal"
	ImportanceLow    Importance = "low"
)

// TemporalRelevance tags whether a chunk describes the past, present or future
type TemporalRelevance string

const (
	TemporalCurrent   TemporalRelevance = "current"
	TemporalPast      TemporalRelevance = "past"
	TemporalFuture    TemporalRelevance = "future"
	TemporalTimeless  TemporalRelevance = "timeless"
	DefaultCategory                     = "general"
	DefaultImportance                   = ImportanceNormal
	DefaultTemporal                     = TemporalTimeless
)

// KnowledgeChunk is one embedded, deduplicated segment of assistant knowledge.
// ContentHash is unique across the store.
type KnowledgeChunk struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title             string             `bson:"title" json:"title"`
	Text              string             `bson:"text" json:"text"`
	SourceKind        SourceKind         `bson:"sourceKind" json:"source_kind"`
	Embedding         []float32          `bson:"embedding,omitempty" json:"-"`
	ContentHash       string             `bson:"contentHash" json:"content_hash"`
	Category          string             `bson:"category" json:"category"`
	Importance        Importance         `bson:"importance" json:"importance"`
	Keywords          []string           `bson:"keywords" json:"keywords"`
	TemporalRelevance TemporalRelevance  `bson:"temporalRelevance" json:"temporal_relevance"`
	AcademicYear      string             `bson:"academicYear,omitempty" json:"academic_year,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updated_at"`
}

// ApplyDefaults fills unset classification fields with their defaults
func (k *KnowledgeChunk) ApplyDefaults() {
	if k.Category == "" {
		k.Category = DefaultCategory
	}
	if k.Importance == "" {
		k.Importance = DefaultImportance
	}
	if k.TemporalRelevance == "" {
		k.TemporalRelevance = DefaultTemporal
	}
	if k.Keywords == nil {
		k.Keywords = []string{}
	}
	if k.SourceKind == "" {
		k.SourceKind = SourceManual
	}
}

// KnowledgeStats summarizes the knowledge store for operators
type KnowledgeStats struct {
	TotalChunks  int64            `json:"total_chunks"`
	ByCategory   map[string]int64 `json:"by_category"`
	ByImportance map[string]int64 `json:"by_importance"`
}
