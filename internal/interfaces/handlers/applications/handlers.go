package applications

import (
	appsvc "helpmate-backend/internal/application/applications"
	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/middleware"
	"helpmate-backend/internal/pkg/response"
	"helpmate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *appsvc.Service
}

// DecisionRequest body for the decision endpoint.
type DecisionRequest struct {
	Decision domain.Decision `json:"decision"`
}

// Apply POST /api/v1/projects/:id/apply: 201 on a new request, 200 when one already exists.
func (h *Handlers) Apply(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	app, created, err := h.Service.Apply(c.UserContext(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	if created {
		return response.SuccessCreated(c, "Application submitted", app, nil)
	}
	return response.Success(c, "Application already exists", app, nil)
}

// Reapply POST /api/v1/projects/:id/reapply
func (h *Handlers) Reapply(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	app, err := h.Service.Reapply(c.UserContext(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Application resubmitted", app, nil)
}

// Status GET /api/v1/projects/:id/status: the caller's application status.
func (h *Handlers) Status(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	status, err := h.Service.StatusFor(c.UserContext(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Application status retrieved", fiber.Map{"status": status}, nil)
}

// Requests GET /api/v1/projects/:id/requests: pending applications, oldest first.
func (h *Handlers) Requests(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	list, err := h.Service.PendingRequests(c.UserContext(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Pending requests retrieved", list, fiber.Map{"count": len(list)})
}

// Roster GET /api/v1/projects/:id/roster
func (h *Handlers) Roster(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	list, err := h.Service.Roster(c.UserContext(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Roster retrieved", list, fiber.Map{"count": len(list)})
}

// Decide POST /api/v1/projects/:id/applications/:volunteerId/decision
func (h *Handlers) Decide(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	volunteerID, err := validation.ParseUUID(c.Params("volunteerId"), "volunteer id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	app, err := h.Service.Decide(c.UserContext(), middleware.CurrentPrincipal(c), projectID, volunteerID, req.Decision)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Decision recorded", app, nil)
}

// RemoveVolunteer DELETE /api/v1/projects/:id/roster/:volunteerId
func (h *Handlers) RemoveVolunteer(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	volunteerID, err := validation.ParseUUID(c.Params("volunteerId"), "volunteer id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.RemoveVolunteer(c.UserContext(), middleware.CurrentPrincipal(c), projectID, volunteerID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Volunteer removed from project", nil, nil)
}
