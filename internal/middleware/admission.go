package middleware

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/ratelimit"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

// AdmissionMiddleware applies the chat rate-limit tiers to the caller.
// Must run after OptionalLocalAuthMiddleware.
func AdmissionMiddleware(admitter *ratelimit.Admitter, cfg *config.Config, metrics *services.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, authenticated := CurrentUser(c)
		id := ratelimit.Identity{
			UserID:        userID,
			Role:          role,
			IP:            c.IP(),
			Authenticated: authenticated,
			Superadmin:    authenticated && IsSuperadmin(userID, role, cfg),
		}

		decision, err := admitter.Admit(c.UserContext(), id)
		if err != nil {
			var limitErr *ratelimit.LimitExceededError
			if !errors.As(err, &limitErr) {
				return err
			}

			metrics.RecordAdmissionRejection(decision.Tier)
			retryAfter := decision.RetryAfterSeconds()
			log.Printf("🚫 [RATE-LIMIT] %s tier limit reached for %s", decision.Tier, id.Key())

			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Too many requests. Please try again later.",
				"tier":        decision.Tier,
				"retry_after": retryAfter,
			})
		}

		if decision.Remaining >= 0 {
			c.Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
			c.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		}
		return c.Next()
	}
}

// ChatPipeline returns the POST /api/chat middleware in order: input
// validation, admission, then the response cache. Rejected bodies are never
// counted against the caller's windows.
func ChatPipeline(maxLength int, admitter *ratelimit.Admitter, cfg *config.Config, metrics *services.Metrics, responses *ResponseCache) []fiber.Handler {
	return []fiber.Handler{
		ChatInputValidator(maxLength),
		AdmissionMiddleware(admitter, cfg, metrics),
		responses.Handler(),
	}
}
