package projects

import (
	projsvc "helpmate-backend/internal/application/projects"
	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/middleware"
	"helpmate-backend/internal/pkg/response"
	"helpmate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *projsvc.Service
}

// CancelRequest body for POST /projects/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

func projectID(c *fiber.Ctx) (uuid.UUID, error) {
	return validation.ParseUUID(c.Params("id"), "project id")
}

func filterFromQuery(c *fiber.Ctx) (domain.ProjectFilter, error) {
	f := domain.ProjectFilter{
		Status:   domain.ProjectStatus(c.Query("status")),
		Priority: domain.Priority(c.Query("priority")),
		Location: c.Query("location"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, domain.NewError(domain.ErrInvalidInput, "Invalid status filter")
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return f, domain.NewError(domain.ErrInvalidInput, "Invalid priority filter")
	}
	if s := c.Query("organizer_id"); s != "" {
		id, err := validation.ParseUUID(s, "organizer id")
		if err != nil {
			return f, err
		}
		f.OrganizerID = &id
	}
	return f, nil
}

// List GET /api/v1/projects: filtered list, or search when q is set.
func (h *Handlers) List(c *fiber.Ctx) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var list []domain.Project
	if q := c.Query("q"); q != "" {
		list, err = h.Service.Search(c.UserContext(), q, f)
	} else {
		list, err = h.Service.List(c.UserContext(), f)
	}
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Projects retrieved successfully", list, fiber.Map{"count": len(list)})
}

// Stats GET /api/v1/projects/stats: optionally scoped by organizer_id.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	var organizerID *uuid.UUID
	if s := c.Query("organizer_id"); s != "" {
		id, err := validation.ParseUUID(s, "organizer id")
		if err != nil {
			return response.FromError(c, err)
		}
		organizerID = &id
	}
	st, err := h.Service.Stats(c.UserContext(), organizerID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project statistics retrieved successfully", st, nil)
}

// Get GET /api/v1/projects/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := projectID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	project, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project retrieved successfully", project, nil)
}

// Create POST /api/v1/projects
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in projsvc.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	project, err := h.Service.Create(c.UserContext(), middleware.CurrentPrincipal(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Project created successfully", project, nil)
}

// Update PATCH /api/v1/projects/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := projectID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var in projsvc.UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	project, err := h.Service.Update(c.UserContext(), middleware.CurrentPrincipal(c), id, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project updated successfully", project, nil)
}

// Activate POST /api/v1/projects/:id/activate
func (h *Handlers) Activate(c *fiber.Ctx) error {
	id, err := projectID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	project, err := h.Service.Activate(c.UserContext(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project activated", project, nil)
}

// Cancel POST /api/v1/projects/:id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := projectID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
		}
	}
	project, err := h.Service.Cancel(c.UserContext(), middleware.CurrentPrincipal(c), id, req.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project cancelled", project, nil)
}

// Complete POST /api/v1/projects/:id/complete
func (h *Handlers) Complete(c *fiber.Ctx) error {
	id, err := projectID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	project, err := h.Service.MarkCompleted(c.UserContext(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project marked as completed", project, nil)
}

// Delete DELETE /api/v1/projects/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := projectID(c)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.Delete(c.UserContext(), middleware.CurrentPrincipal(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project deleted", nil, nil)
}
