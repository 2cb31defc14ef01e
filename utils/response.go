package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Validate is the shared request validator; handlers run it on every payload
// that carries validate tags.
var Validate = validator.New()

// ErrorResponse writes the uniform error envelope all handlers use.
func ErrorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
