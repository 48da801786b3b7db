package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	progsvc "helpmate-backend/internal/application/progress"
	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/database"
	"helpmate-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	store     *database.Store
	project   *domain.Project
	organizer *domain.Principal
	h         *Handlers
}

func setup(t *testing.T) *env {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	store := database.NewStore(db)
	organizer := &domain.Principal{ID: uuid.New(), Role: constants.Organizer}
	project := &domain.Project{OrganizerID: organizer.ID, Title: "Garden", Status: domain.ProjectActive, Priority: domain.PriorityMedium, MaxVolunteers: 4}
	require.NoError(t, store.CreateProject(context.Background(), project))
	return &env{store: store, project: project, organizer: organizer, h: &Handlers{Service: progsvc.NewService(store, nil)}}
}

func (e *env) app(p *domain.Principal) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": p.ID.String(), "role": p.Role})
		return c.Next()
	})
	app.Get("/projects/:id/tasks", e.h.List)
	app.Post("/projects/:id/tasks", e.h.Create)
	app.Patch("/tasks/:taskId/status", e.h.UpdateStatus)
	app.Patch("/tasks/:taskId/hours", e.h.LogHours)
	app.Delete("/tasks/:taskId", e.h.Delete)
	app.Get("/me/tasks", e.h.Mine)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	b, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(b, &out)
	return resp, out
}

func TestTaskFlow(t *testing.T) {
	e := setup(t)
	org := e.app(e.organizer)
	base := "/projects/" + e.project.ProjectID.String()

	resp, out := do(t, org, "POST", base+"/tasks", map[string]interface{}{"title": "Plant trees", "estimated_hours": 4})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	taskID := out["data"].(map[string]interface{})["task_id"].(string)

	resp, _ = do(t, org, "PATCH", "/tasks/"+taskID+"/hours", map[string]interface{}{"hours": 3.5})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, org, "PATCH", "/tasks/"+taskID+"/hours", map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, out = do(t, org, "PATCH", "/tasks/"+taskID+"/status", map[string]string{"status": "completed"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotNil(t, out["data"].(map[string]interface{})["completed_at"])

	project, err := e.store.Project(context.Background(), e.project.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, 100, project.Progress)
	assert.Equal(t, domain.ProjectCompleted, project.Status)
	assert.InDelta(t, 3.5, project.TotalHours, 1e-9)

	resp, _ = do(t, org, "PATCH", "/tasks/"+taskID+"/status", map[string]string{"status": "todo"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, out = do(t, org, "GET", base+"/tasks", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["metadata"].(map[string]interface{})["count"])
}

func TestTaskPermissions(t *testing.T) {
	e := setup(t)
	base := "/projects/" + e.project.ProjectID.String()
	_, out := do(t, e.app(e.organizer), "POST", base+"/tasks", map[string]interface{}{"title": "Paint fence"})
	taskID := out["data"].(map[string]interface{})["task_id"].(string)

	stranger := e.app(&domain.Principal{ID: uuid.New(), Role: constants.Volunteer})
	resp, _ := do(t, stranger, "PATCH", "/tasks/"+taskID+"/status", map[string]string{"status": "in_progress"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, stranger, "DELETE", "/tasks/"+taskID, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, stranger, "POST", base+"/tasks", map[string]interface{}{"title": "Sneaky"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, e.app(e.organizer), "DELETE", "/tasks/"+taskID, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, e.app(e.organizer), "DELETE", "/tasks/"+uuid.NewString(), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
