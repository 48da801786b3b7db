package middleware

import (
	authsvc "helpmate-backend/internal/application/auth"
	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	userLocal      = "user"
	principalLocal = "principal"
)

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		if p == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(principalLocal, p)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentPrincipal resolves the caller from the session, or nil for
// anonymous requests.
func CurrentPrincipal(c *fiber.Ctx) *domain.Principal {
	if p, ok := c.Locals(principalLocal).(*domain.Principal); ok {
		return p
	}
	p, err := authsvc.VerifyUser(GetUser(c))
	if err != nil {
		return nil
	}
	return p
}
