package handlers

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kisanmitra/farm-assistant-backend/utils"
)

// AuthMiddleware resolves the caller's identity from the bearer token and
// stores it in Locals. Account management lives in a separate service; this
// backend only verifies tokens it issued.
func AuthMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Missing authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	c.Locals("userId", userID)
	return c.Next()
}
