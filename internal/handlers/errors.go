package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/kisanmitra/farm-assistant-backend/internal/services"
	"github.com/kisanmitra/farm-assistant-backend/utils"
)

// ErrorHandler is the app-level Fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return utils.ErrorResponse(c, code, err.Error())
}

// upstreamErrorResponse translates retry-client failures into short, user-safe
// messages. Full detail stays in the server log.
func upstreamErrorResponse(c *fiber.Ctx, err error) error {
	log.Printf("upstream failure: %v", err)
	switch {
	case errors.Is(err, services.ErrRateLimited):
		return utils.ErrorResponse(c, fiber.StatusTooManyRequests,
			"The assistant is handling too many requests right now. Please try again in a minute.")
	case errors.Is(err, services.ErrNetwork):
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable,
			"Could not reach the assistant service. Please check your connection and try again.")
	default:
		return utils.ErrorResponse(c, fiber.StatusBadGateway,
			"The assistant service could not answer. Please verify the service configuration and try again.")
	}
}
