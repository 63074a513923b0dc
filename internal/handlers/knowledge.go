package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/knowledge"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

// KnowledgeHandler exposes knowledge-base maintenance to admins
type KnowledgeHandler struct {
	ingestion   *services.IngestionService
	defaultFile string
}

// NewKnowledgeHandler creates a new knowledge handler. defaultFile is ingested
// when a request carries no sources.
func NewKnowledgeHandler(ingestion *services.IngestionService, defaultFile string) *KnowledgeHandler {
	return &KnowledgeHandler{ingestion: ingestion, defaultFile: defaultFile}
}

// IngestRequest is the body of POST /api/admin/knowledge/ingest
type IngestRequest struct {
	Sources   *knowledge.SourceFile `json:"sources"`
	Documents []knowledge.Document  `json:"documents"`
	Reset     bool                  `json:"reset"`
}

func (r *IngestRequest) documents() []knowledge.Document {
	var docs []knowledge.Document
	if r.Sources != nil {
		docs = append(docs, r.Sources.Flatten()...)
	}
	return append(docs, r.Documents...)
}

// Ingest handles POST /api/admin/knowledge/ingest
func (h *KnowledgeHandler) Ingest(c *fiber.Ctx) error {
	var req IngestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
			})
		}
	}

	opts := services.IngestOptions{Reset: req.Reset}
	docs := req.documents()

	var (
		report *services.IngestReport
		err    error
	)
	switch {
	case len(docs) > 0:
		report, err = h.ingestion.Ingest(c.UserContext(), docs, opts)
	case h.defaultFile != "":
		report, err = h.ingestion.IngestFile(c.UserContext(), h.defaultFile, opts)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No sources provided and no knowledge file configured",
		})
	}

	if err != nil {
		log.Printf("❌ [KNOWLEDGE] Ingestion failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

// Cleanup handles POST /api/admin/knowledge/cleanup
func (h *KnowledgeHandler) Cleanup(c *fiber.Ctx) error {
	report, err := h.ingestion.Cleanup(c.UserContext())
	if err != nil {
		log.Printf("❌ [KNOWLEDGE] Cleanup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"report":  report,
	})
}

// Stats handles GET /api/admin/knowledge/stats
func (h *KnowledgeHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.ingestion.Stats(c.UserContext())
	if err != nil {
		log.Printf("❌ [KNOWLEDGE] Failed to read stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to read knowledge stats",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}
