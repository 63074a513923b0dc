package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/chunker"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/embedding"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/knowledge"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/logging"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
)

const defaultIngestionWorkers = 4

// IngestOptions controls one ingestion run
type IngestOptions struct {
	Reset bool `json:"reset"`
}

// IngestReport summarizes an ingestion run
type IngestReport struct {
	Documents  int      `json:"documents"`
	Chunks     int      `json:"chunks"`
	Inserted   int      `json:"inserted"`
	Duplicates int      `json:"duplicates"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	Removed    int      `json:"removed,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// CleanupReport summarizes a cleanup run
type CleanupReport struct {
	Scanned           int `json:"scanned"`
	InvalidRemoved    int `json:"invalid_removed"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	Backfilled        int `json:"backfilled"`
}

// IngestionConfig configures chunking and fan-out
type IngestionConfig struct {
	Chunking chunker.Options
	Workers  int
}

// IngestionService chunks, deduplicates, embeds and stores knowledge
type IngestionService struct {
	store    KnowledgeStore
	embedder embedding.Provider
	chunking chunker.Options
	workers  int
	metrics  *Metrics
}

// NewIngestionService creates an ingestion service. The embedder should already be cached.
func NewIngestionService(store KnowledgeStore, embedder embedding.Provider, cfg IngestionConfig, metrics *Metrics) *IngestionService {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultIngestionWorkers
	}
	if cfg.Chunking.TargetSize <= 0 {
		cfg.Chunking = chunker.DefaultOptions()
	}
	return &IngestionService{
		store:    store,
		embedder: embedder,
		chunking: cfg.Chunking,
		workers:  cfg.Workers,
		metrics:  metrics,
	}
}

type chunkOutcome int

const (
	outcomeInserted chunkOutcome = iota
	outcomeDuplicate
	outcomeSkipped
	outcomeFailed
)

// Ingest stores every new chunk of docs. One chunk's failure never stops the batch.
func (s *IngestionService) Ingest(ctx context.Context, docs []knowledge.Document, opts IngestOptions) (*IngestReport, error) {
	startTime := time.Now()
	report := &IngestReport{Documents: len(docs)}

	if opts.Reset {
		removed, err := s.store.Clear(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reset knowledge store: %w", err)
		}
		report.Removed = removed
		log.Printf("🗑️  [INGEST] Reset knowledge store, removed %d chunks", removed)
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion pool: %w", err)
	}
	defer pool.Release()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(outcome chunkOutcome, errMsg string) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case outcomeInserted:
			report.Inserted++
		case outcomeDuplicate:
			report.Duplicates++
		case outcomeSkipped:
			report.Skipped++
		case outcomeFailed:
			report.Failed++
			report.Errors = append(report.Errors, errMsg)
		}
	}

	for _, doc := range docs {
		body, err := doc.PlainText()
		if err != nil {
			logging.WithComponent(nil, "ingestion").Warn("document conversion failed",
				"title", doc.Title, "format", doc.Format, "error", err)
			record(outcomeFailed, fmt.Sprintf("%s: %v", doc.Title, err))
			continue
		}

		spans := chunker.Split(body, s.chunking)
		report.Chunks += len(spans)

		for _, span := range spans {
			doc, text := doc, span.Text
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				record(s.ingestChunk(ctx, doc, text))
			}); err != nil {
				wg.Done()
				record(outcomeFailed, fmt.Sprintf("%s: %v", doc.Title, err))
			}
		}
	}
	wg.Wait()

	s.metrics.RecordIngestion("inserted", report.Inserted)
	s.metrics.RecordIngestion("duplicate", report.Duplicates)
	s.metrics.RecordIngestion("failed", report.Failed)

	log.Printf("✅ [INGEST] %d documents, %d chunks: %d inserted, %d duplicates, %d skipped, %d failed in %v",
		report.Documents, report.Chunks, report.Inserted, report.Duplicates, report.Skipped, report.Failed, time.Since(startTime))
	return report, nil
}

// IngestFile loads an import file and ingests it
func (s *IngestionService) IngestFile(ctx context.Context, path string, opts IngestOptions) (*IngestReport, error) {
	docs, err := knowledge.LoadSources(path)
	if err != nil {
		return nil, err
	}
	return s.Ingest(ctx, docs, opts)
}

func (s *IngestionService) ingestChunk(ctx context.Context, doc knowledge.Document, text string) (chunkOutcome, string) {
	if reason := knowledge.InvalidReason(doc.Title, text); reason != "" {
		return outcomeSkipped, ""
	}

	hash := knowledge.Fingerprint(text)
	exists, err := s.store.ExistsByHash(ctx, hash)
	if err != nil {
		log.Printf("⚠️  [INGEST] Hash lookup failed for %q: %v", doc.Title, err)
		return outcomeFailed, fmt.Sprintf("%s: %v", doc.Title, err)
	}
	if exists {
		return outcomeDuplicate, ""
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("⚠️  [INGEST] Embedding failed for %q: %v", doc.Title, err)
		return outcomeFailed, fmt.Sprintf("%s: embedding: %v", doc.Title, err)
	}

	chunk := &models.KnowledgeChunk{
		Title:       doc.Title,
		Text:        text,
		SourceKind:  doc.SourceKind,
		Embedding:   vector,
		ContentHash: hash,
	}
	knowledge.Merge(chunk, knowledge.Classify(doc.Title+"\n"+text))
	applyExplicitFields(chunk, doc)

	if err := s.store.Insert(ctx, chunk); err != nil {
		if errors.Is(err, ErrDuplicateContent) {
			return outcomeDuplicate, ""
		}
		log.Printf("⚠️  [INGEST] Insert failed for %q: %v", doc.Title, err)
		return outcomeFailed, fmt.Sprintf("%s: insert: %v", doc.Title, err)
	}
	return outcomeInserted, ""
}

func applyExplicitFields(chunk *models.KnowledgeChunk, doc knowledge.Document) {
	if doc.Category != "" {
		chunk.Category = doc.Category
	}
	if doc.Importance != "" {
		chunk.Importance = models.Importance(doc.Importance)
	}
	if doc.AcademicYear != "" {
		chunk.AcademicYear = doc.AcademicYear
	}
	if len(doc.Keywords) > 0 {
		chunk.Keywords = doc.Keywords
	}
}

// Cleanup removes invalid and duplicate chunks and backfills default classification fields
func (s *IngestionService) Cleanup(ctx context.Context) (*CleanupReport, error) {
	chunks, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge chunks: %w", err)
	}

	report := &CleanupReport{Scanned: len(chunks)}
	var invalid, duplicates []primitive.ObjectID
	seen := make(map[string]bool, len(chunks))

	// chunks arrive oldest first, so the first copy of a text is the one kept
	for i := range chunks {
		c := &chunks[i]
		if knowledge.IsInvalid(c.Title, c.Text) {
			invalid = append(invalid, c.ID)
			continue
		}
		if seen[c.Text] {
			duplicates = append(duplicates, c.ID)
			continue
		}
		seen[c.Text] = true

		if knowledge.Backfill(c) {
			if err := s.store.UpdateClassification(ctx, c); err != nil {
				log.Printf("⚠️  [CLEANUP] Backfill failed for %s: %v", c.ID.Hex(), err)
				continue
			}
			report.Backfilled++
		}
	}

	if report.InvalidRemoved, err = s.store.DeleteByIDs(ctx, invalid); err != nil {
		return nil, err
	}
	if report.DuplicatesRemoved, err = s.store.DeleteByIDs(ctx, duplicates); err != nil {
		return nil, err
	}

	log.Printf("✅ [CLEANUP] Scanned %d chunks: removed %d invalid, %d duplicates, backfilled %d",
		report.Scanned, report.InvalidRemoved, report.DuplicatesRemoved, report.Backfilled)
	return report, nil
}

// Stats returns knowledge store statistics
func (s *IngestionService) Stats(ctx context.Context) (models.KnowledgeStats, error) {
	return s.store.Stats(ctx)
}
