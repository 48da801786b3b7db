package volunteers

import (
	volsvc "helpmate-backend/internal/application/volunteers"
	"helpmate-backend/internal/middleware"
	"helpmate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *volsvc.Service
}

// Profile GET /api/v1/volunteers/me
func (h *Handlers) Profile(c *fiber.Ctx) error {
	v, err := h.Service.Profile(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile retrieved", v, nil)
}

// UpdateProfile PUT /api/v1/volunteers/me
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	var in volsvc.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	v, err := h.Service.UpdateProfile(c.UserContext(), middleware.CurrentPrincipal(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Profile updated", v, nil)
}

// Applications GET /api/v1/volunteers/me/applications
func (h *Handlers) Applications(c *fiber.Ctx) error {
	view, err := h.Service.MyApplications(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Applications retrieved", view, nil)
}
