package donations

import (
	"strconv"

	donsvc "helpmate-backend/internal/application/donations"
	"helpmate-backend/internal/pkg/response"
	"helpmate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *donsvc.Service
}

// Add POST /api/v1/projects/:id/donations
func (h *Handlers) Add(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	var in donsvc.DonationInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	d, err := h.Service.AddDonation(c.UserContext(), projectID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Donation recorded", d, nil)
}

// List GET /api/v1/projects/:id/donations?limit=: newest first; no limit returns all.
func (h *Handlers) List(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			return response.Error(c, "Invalid limit", fiber.StatusBadRequest, nil)
		}
	}
	list, err := h.Service.RecentDonations(c.UserContext(), projectID, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Donations retrieved", list, fiber.Map{"count": len(list)})
}
