package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
)

// Roles granted operator access
const (
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// IsSuperadmin reports whether a caller bypasses rate limits and may use the admin API
func IsSuperadmin(userID, role string, cfg *config.Config) bool {
	if role == RoleSuperadmin {
		return true
	}
	return cfg != nil && cfg.IsSuperadmin(userID)
}

// AdminMiddleware restricts a route group to community leads.
// Role "admin" or "superadmin" from the token, or an id listed in SUPERADMIN_USER_IDS, is accepted.
func AdminMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, authenticated := CurrentUser(c)
		if !authenticated {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authentication required",
			})
		}

		if role != RoleAdmin && !IsSuperadmin(userID, role, cfg) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Admin access required",
			})
		}

		c.Locals("is_superadmin", true)
		return c.Next()
	}
}
