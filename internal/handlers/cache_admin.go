package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/middleware"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

// Cache targets accepted by the clear endpoint
const (
	CacheTargetResponse  = "response"
	CacheTargetEmbedding = "embedding"
	CacheTargetAll       = "all"
)

// CacheAdminHandler exposes cache inspection to admins
type CacheAdminHandler struct {
	responses  *middleware.ResponseCache
	embeddings *services.EmbeddingCache
}

// NewCacheAdminHandler creates a new cache admin handler
func NewCacheAdminHandler(responses *middleware.ResponseCache, embeddings *services.EmbeddingCache) *CacheAdminHandler {
	return &CacheAdminHandler{responses: responses, embeddings: embeddings}
}

// Stats handles GET /api/admin/cache/stats
func (h *CacheAdminHandler) Stats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	responseStats, err := h.responses.Stats(ctx)
	if err != nil {
		log.Printf("❌ [CACHE-ADMIN] Failed to read response cache stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to read cache stats",
		})
	}

	embeddingStats, err := h.embeddings.Stats(ctx)
	if err != nil {
		log.Printf("❌ [CACHE-ADMIN] Failed to read embedding cache stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to read cache stats",
		})
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"responseCache":  responseStats,
		"embeddingCache": embeddingStats,
	})
}

// Clear handles POST /api/admin/cache/clear?target=response|embedding|all
func (h *CacheAdminHandler) Clear(c *fiber.Ctx) error {
	target := c.Query("target", CacheTargetAll)
	ctx := c.UserContext()

	var err error
	switch target {
	case CacheTargetResponse:
		err = h.responses.Clear(ctx)
	case CacheTargetEmbedding:
		err = h.embeddings.Clear(ctx)
	case CacheTargetAll:
		if err = h.responses.Clear(ctx); err == nil {
			err = h.embeddings.Clear(ctx)
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "target must be one of response, embedding, all",
		})
	}

	if err != nil {
		log.Printf("❌ [CACHE-ADMIN] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to clear cache",
		})
	}

	userID, _, _ := middleware.CurrentUser(c)
	log.Printf("🧹 [CACHE-ADMIN] %s cleared %s cache", userID, target)
	return c.JSON(fiber.Map{
		"success": true,
		"cleared": target,
	})
}
