package middleware

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/models"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/security"
)

// ChatRequestKey is the Locals key holding the sanitized models.ChatRequest
const ChatRequestKey = "chat_request"

// ChatInputValidator validates and sanitizes the chat body before any cache or store is touched
func ChatInputValidator(maxLength int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body map[string]interface{}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
			})
		}

		input, err := security.ValidateChatInput(body, maxLength)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		c.Locals(ChatRequestKey, models.ChatRequest{
			Message:   input.Message,
			SessionID: input.SessionID,
		})
		return c.Next()
	}
}

// ChatRequestFrom returns the request stored by ChatInputValidator
func ChatRequestFrom(c *fiber.Ctx) (models.ChatRequest, bool) {
	req, ok := c.Locals(ChatRequestKey).(models.ChatRequest)
	return req, ok
}
