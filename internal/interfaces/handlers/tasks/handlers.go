package tasks

import (
	progsvc "helpmate-backend/internal/application/progress"
	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/middleware"
	"helpmate-backend/internal/pkg/response"
	"helpmate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *progsvc.Service
}

type StatusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

type HoursRequest struct {
	Hours *float64 `json:"hours"`
}

// List GET /api/v1/projects/:id/tasks
func (h *Handlers) List(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	list, err := h.Service.ListTasks(c.UserContext(), middleware.CurrentPrincipal(c), projectID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Tasks retrieved", list, fiber.Map{"count": len(list)})
}

// Create POST /api/v1/projects/:id/tasks
func (h *Handlers) Create(c *fiber.Ctx) error {
	projectID, err := validation.ParseUUID(c.Params("id"), "project id")
	if err != nil {
		return response.FromError(c, err)
	}
	var in progsvc.TaskInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	task, err := h.Service.CreateTask(c.UserContext(), middleware.CurrentPrincipal(c), projectID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Task created", task, nil)
}

// UpdateStatus PATCH /api/v1/tasks/:taskId/status
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	taskID, err := validation.ParseUUID(c.Params("taskId"), "task id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	task, err := h.Service.UpdateTaskStatus(c.UserContext(), middleware.CurrentPrincipal(c), taskID, req.Status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Task status updated", task, nil)
}

// LogHours PATCH /api/v1/tasks/:taskId/hours: replaces the task's actual hours.
func (h *Handlers) LogHours(c *fiber.Ctx) error {
	taskID, err := validation.ParseUUID(c.Params("taskId"), "task id")
	if err != nil {
		return response.FromError(c, err)
	}
	var req HoursRequest
	if err := c.BodyParser(&req); err != nil || req.Hours == nil {
		return response.Error(c, "hours is required", fiber.StatusBadRequest, nil)
	}
	task, err := h.Service.LogTaskHours(c.UserContext(), middleware.CurrentPrincipal(c), taskID, *req.Hours)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Task hours logged", task, nil)
}

// Delete DELETE /api/v1/tasks/:taskId
func (h *Handlers) Delete(c *fiber.Ctx) error {
	taskID, err := validation.ParseUUID(c.Params("taskId"), "task id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Service.DeleteTask(c.UserContext(), middleware.CurrentPrincipal(c), taskID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Task deleted", nil, nil)
}

// Mine GET /api/v1/volunteers/me/tasks
func (h *Handlers) Mine(c *fiber.Ctx) error {
	list, err := h.Service.TasksForVolunteer(c.UserContext(), middleware.CurrentPrincipal(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Tasks retrieved", list, fiber.Map{"count": len(list)})
}
