package serverutils

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const apiKeyHeader = "RethinkAI-API-Key"

// ApiKeyMiddleware gates routes behind a shared client key. An empty
// configured key disables the check, which keeps local development easy.
func ApiKeyMiddleware(expectedKey string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if expectedKey == "" {
			return ctx.Next()
		}
		provided := ctx.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expectedKey)) != 1 {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid or missing API key"))
		}
		return ctx.Next()
	}
}
