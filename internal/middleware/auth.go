package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bozor/internal/config"
	"github.com/example/bozor/internal/services"
	"github.com/example/bozor/internal/utils"
)

const actorContextKey = "currentActor"

// AuthMiddleware validates JWT tokens and loads the authenticated principal
// into the request context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		userID, role, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(actorContextKey, services.Actor{ID: userID, Role: role})
		return c.Next()
	}
}

// GetCurrentActor extracts the authenticated principal from context.
func GetCurrentActor(c *fiber.Ctx) (services.Actor, bool) {
	value := c.Locals(actorContextKey)
	if value == nil {
		return services.Actor{}, false
	}

	if actor, ok := value.(services.Actor); ok && actor.ID != uuid.Nil {
		return actor, true
	}

	return services.Actor{}, false
}
