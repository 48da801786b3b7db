package health

import (
	healthsvc "helpmate-backend/internal/application/health"
	"helpmate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Service        *healthsvc.Service
	HealthAdminKey string
}

func (h *Handlers) authorized(c *fiber.Ctx) bool {
	key := c.Query("key")
	return h.HealthAdminKey != "" && key == h.HealthAdminKey
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.Service.Collect(c.UserContext())
	status := fiber.StatusOK
	if result.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}

// Reset GET /health/reset?key= clears request counters.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	if err := h.Service.Reset(c.UserContext()); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// Errors GET /health/errors?key= returns the most recent failed requests.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if !h.authorized(c) {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	entries, err := h.Service.Errors(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Recent errors", entries, fiber.Map{"count": len(entries)})
}
