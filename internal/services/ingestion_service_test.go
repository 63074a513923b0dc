package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/chunker"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/knowledge"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
)

const eventText = "DevFest is the biggest GDG event of the year, with talks on Android, Flutter and Cloud for every member."

func newTestIngestion(store KnowledgeStore, embedder *countingEmbedder) *IngestionService {
	return NewIngestionService(store, embedder, IngestionConfig{Chunking: chunker.DefaultOptions(), Workers: 4}, nil)
}

func TestIngestDeduplicatesContent(t *testing.T) {
	store := NewMemoryKnowledgeStore(nil)
	svc := newTestIngestion(store, &countingEmbedder{})
	ctx := context.Background()

	docs := []knowledge.Document{
		{Title: "DevFest", Text: eventText},
		{Title: "DevFest copy", Text: "  " + strings.ToUpper(eventText) + "  "},
	}

	report, err := svc.Ingest(ctx, docs, IngestOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Inserted != 1 || report.Duplicates != 1 || report.Failed != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}

	stats, _ := store.Stats(ctx)
	if stats.TotalChunks != 1 {
		t.Errorf("Expected one stored chunk, got %d", stats.TotalChunks)
	}

	// Re-ingesting is idempotent
	report, _ = svc.Ingest(ctx, docs, IngestOptions{})
	if report.Inserted != 0 || report.Duplicates != 2 {
		t.Errorf("Expected all duplicates on re-ingest, got %+v", report)
	}
}

func TestIngestClassifiesAndKeepsExplicitFields(t *testing.T) {
	store := NewMemoryKnowledgeStore(nil)
	svc := newTestIngestion(store, &countingEmbedder{})
	ctx := context.Background()

	docs := []knowledge.Document{
		{Title: "DevFest", Text: eventText},
		{
			Title:      "Certificates",
			Text:       "Certificates for the Cloud study jam are emailed within two weeks of completion.",
			Category:   "certificates",
			Importance: "high",
		},
	}
	if _, err := svc.Ingest(ctx, docs, IngestOptions{}); err != nil {
		t.Fatal(err)
	}

	chunks, _ := store.All(ctx)
	byTitle := make(map[string]models.KnowledgeChunk)
	for _, c := range chunks {
		byTitle[c.Title] = c
	}

	if c := byTitle["DevFest"]; c.Category != knowledge.CategoryEvents || len(c.Embedding) == 0 {
		t.Errorf("Expected classified, embedded event chunk, got %+v", c)
	}
	if c := byTitle["Certificates"]; c.Category != "certificates" || c.Importance != models.ImportanceHigh {
		t.Errorf("Expected explicit fields to win, got %+v", c)
	}
	if c := byTitle["DevFest"]; c.ContentHash != knowledge.Fingerprint(eventText) {
		t.Errorf("Unexpected content hash %q", c.ContentHash)
	}
}

func TestIngestContinuesPastFailures(t *testing.T) {
	store := NewMemoryKnowledgeStore(nil)
	embedder := &countingEmbedder{fail: map[string]bool{eventText: true}}
	svc := newTestIngestion(store, embedder)

	docs := []knowledge.Document{
		{Title: "DevFest", Text: eventText},
		{Title: "Team", Text: "The core team organizes every event and mentors new members throughout the year."},
		{Title: "Short", Text: "tiny"},
	}
	report, err := svc.Ingest(context.Background(), docs, IngestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Inserted != 1 || report.Failed != 1 || len(report.Errors) != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if report.Chunks != 2 {
		t.Errorf("Expected the short document to yield no chunks, got %d", report.Chunks)
	}
}

func TestIngestConvertsFormats(t *testing.T) {
	store := NewMemoryKnowledgeStore(nil)
	svc := newTestIngestion(store, &countingEmbedder{})
	ctx := context.Background()

	docs := []knowledge.Document{
		{Title: "DevFest", Text: "**DevFest** is the biggest GDG event of the year, with talks on `Android`, Flutter and Cloud.", Format: knowledge.FormatMarkdown},
		{Title: "Brochure", Text: "%PDF-1.4", Format: "pdf"},
	}
	report, err := svc.Ingest(ctx, docs, IngestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Inserted != 1 || report.Failed != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}

	chunks, _ := store.All(ctx)
	if len(chunks) != 1 || strings.ContainsAny(chunks[0].Text, "*`") {
		t.Errorf("Expected one plain text chunk, got %+v", chunks)
	}
}

func TestIngestReset(t *testing.T) {
	store := NewMemoryKnowledgeStore(nil)
	svc := newTestIngestion(store, &countingEmbedder{})
	ctx := context.Background()

	svc.Ingest(ctx, []knowledge.Document{{Title: "DevFest", Text: eventText}}, IngestOptions{})
	report, err := svc.Ingest(ctx, []knowledge.Document{{Title: "DevFest", Text: eventText}}, IngestOptions{Reset: true})
	if err != nil {
		t.Fatal(err)
	}
	if report.Removed != 1 || report.Inserted != 1 {
		t.Errorf("Expected reset then insert, got %+v", report)
	}
}

func TestCleanup(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryKnowledgeStore(clock.Now)
	ctx := context.Background()

	insert := func(title, text, hashSeed string) *models.KnowledgeChunk {
		c := &models.KnowledgeChunk{Title: title, Text: text, ContentHash: knowledge.Fingerprint(hashSeed)}
		if err := store.Insert(ctx, c); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		clock.Advance(time.Second)
		return c
	}

	original := insert("Workshops", "An upcoming Kotlin workshop is planned for all members next month.", "a")
	insert("Workshops again", "An upcoming Kotlin workshop is planned for all members next month.", "b")
	insert("Untitled", "This chunk has a placeholder title but otherwise valid looking text.", "c")
	insert("Short", "too short", "d")

	svc := newTestIngestion(store, &countingEmbedder{})
	report, err := svc.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if report.Scanned != 4 || report.InvalidRemoved != 2 || report.DuplicatesRemoved != 1 || report.Backfilled != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}

	chunks, _ := store.All(ctx)
	if len(chunks) != 1 || chunks[0].ID != original.ID {
		t.Fatalf("Expected only the earliest copy to remain, got %+v", chunks)
	}
	if chunks[0].Category != knowledge.CategoryEvents || chunks[0].TemporalRelevance != models.TemporalFuture {
		t.Errorf("Expected backfilled classification, got %+v", chunks[0])
	}
}
