package progress

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/cache"
	"helpmate-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service manages project tasks and keeps the project's derived task
// counters, hours and progress in step with them.
type Service struct {
	Store domain.Store
	Cache cache.Cache
	Now   func() time.Time
}

func NewService(store domain.Store, c cache.Cache) *Service {
	return &Service{Store: store, Cache: c}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// TaskInput is the organizer-supplied part of a task.
type TaskInput struct {
	Title               string            `json:"title" validate:"required"`
	Description         string            `json:"description"`
	AssignedVolunteerID *uuid.UUID        `json:"assigned_volunteer_id"`
	Status              domain.TaskStatus `json:"status" validate:"omitempty,oneof=todo in_progress completed blocked"`
	Priority            domain.Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
	EstimatedHours      float64           `json:"estimated_hours" validate:"gte=0"`
	DueDate             *time.Time        `json:"due_date"`
}

func ownerOf(project *domain.Project, p *domain.Principal) error {
	if err := domain.RequireOrganizer(p); err != nil {
		return err
	}
	if project.OrganizerID != p.ID {
		return domain.ErrNotProjectOwner
	}
	return nil
}

func participantOf(project *domain.Project, task *domain.Task, p *domain.Principal) error {
	if p == nil {
		return domain.ErrAuthenticationRequired
	}
	if p.IsOrganizer() && project.OrganizerID == p.ID {
		return nil
	}
	if p.IsVolunteer() && task.AssignedVolunteerID != nil && *task.AssignedVolunteerID == p.ID {
		return nil
	}
	return domain.ErrNotTaskParticipant
}

func (s *Service) afterWrite(ctx context.Context, project *domain.Project, autoCompleted bool) {
	if autoCompleted {
		metrics.ProjectsAutoCompleted.Inc()
		log.Info().Str("project_id", project.ProjectID.String()).Msg("project auto-completed")
	}
	if err := cache.InvalidateStats(ctx, s.Cache); err != nil {
		log.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}

// CreateTask adds a task to an open project owned by the caller.
func (s *Service) CreateTask(ctx context.Context, p *domain.Principal, projectID uuid.UUID, in TaskInput) (*domain.Task, error) {
	task := &domain.Task{
		ProjectID:           projectID,
		Title:               strings.TrimSpace(in.Title),
		Description:         in.Description,
		AssignedVolunteerID: in.AssignedVolunteerID,
		Status:              in.Status,
		Priority:            in.Priority,
		EstimatedHours:      in.EstimatedHours,
		DueDate:             in.DueDate,
	}
	if task.Status == "" {
		task.Status = domain.TaskTodo
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	var (
		project       *domain.Project
		autoCompleted bool
	)
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		project, err = tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if err := ownerOf(project, p); err != nil {
			return err
		}
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}
		if task.AssignedVolunteerID != nil {
			if err := assignable(ctx, tx, projectID, *task.AssignedVolunteerID); err != nil {
				return err
			}
		}

		project.TotalTasks++
		if task.IsCompleted() {
			project.CompletedTasks++
			now := s.now()
			task.CompletedAt = &now
		}
		autoCompleted = Settle(project)
		if err := tx.CreateTask(ctx, task); err != nil {
			return err
		}
		return tx.SaveProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, project, autoCompleted)
	return task, nil
}

// assignable requires the volunteer to be approved on the project.
func assignable(ctx context.Context, tx domain.Store, projectID, volunteerID uuid.UUID) error {
	app, err := tx.Application(ctx, projectID, volunteerID)
	if errors.Is(err, domain.ErrApplicationNotFound) || (err == nil && app.Status != domain.ApplicationApproved) {
		return domain.NewError(domain.ErrInvalidInput, "assigned volunteer is not on the project roster")
	}
	return err
}

// UpdateTaskStatus changes a task's status. The project organizer and the
// assigned volunteer may do this while the project is open.
func (s *Service) UpdateTaskStatus(ctx context.Context, p *domain.Principal, taskID uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, domain.NewError(domain.ErrInvalidInput, "invalid task status")
	}

	var (
		task          *domain.Task
		project       *domain.Project
		autoCompleted bool
	)
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		task, err = tx.Task(ctx, taskID)
		if err != nil {
			return err
		}
		project, err = tx.LockProject(ctx, task.ProjectID)
		if err != nil {
			return err
		}
		if err := participantOf(project, task, p); err != nil {
			return err
		}
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}
		if task.Status == status {
			return nil
		}

		autoCompleted = OnTaskStatusChange(project, task, status)
		if task.IsCompleted() {
			now := s.now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}
		return tx.SaveProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, project, autoCompleted)
	log.Info().
		Str("task_id", taskID.String()).
		Str("status", string(task.Status)).
		Int("progress", project.Progress).
		Msg("task status updated")
	return task, nil
}

// LogTaskHours replaces the task's actual hours; the project total moves by
// the difference.
func (s *Service) LogTaskHours(ctx context.Context, p *domain.Principal, taskID uuid.UUID, hours float64) (*domain.Task, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return nil, domain.NewError(domain.ErrInvalidInput, "hours must be a finite number")
	}
	if hours < 0 {
		return nil, domain.ErrNegativeHours
	}

	var (
		task    *domain.Task
		project *domain.Project
	)
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		task, err = tx.Task(ctx, taskID)
		if err != nil {
			return err
		}
		project, err = tx.LockProject(ctx, task.ProjectID)
		if err != nil {
			return err
		}
		if err := participantOf(project, task, p); err != nil {
			return err
		}
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}
		if err := OnHoursLogged(project, hours-task.ActualHours); err != nil {
			return err
		}
		task.ActualHours = hours
		if err := tx.SaveTask(ctx, task); err != nil {
			return err
		}
		return tx.SaveProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, project, false)
	return task, nil
}

// DeleteTask removes a task from an open project and takes its counts and
// hours off the project.
func (s *Service) DeleteTask(ctx context.Context, p *domain.Principal, taskID uuid.UUID) error {
	var (
		project       *domain.Project
		autoCompleted bool
	)
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		task, err := tx.Task(ctx, taskID)
		if err != nil {
			return err
		}
		project, err = tx.LockProject(ctx, task.ProjectID)
		if err != nil {
			return err
		}
		if err := ownerOf(project, p); err != nil {
			return err
		}
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}

		if project.TotalTasks > 0 {
			project.TotalTasks--
		}
		if task.IsCompleted() && project.CompletedTasks > 0 {
			project.CompletedTasks--
		}
		if err := OnHoursLogged(project, -task.ActualHours); err != nil {
			return err
		}
		autoCompleted = Settle(project)
		if err := tx.DeleteTask(ctx, task); err != nil {
			return err
		}
		return tx.SaveProject(ctx, project)
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, project, autoCompleted)
	return nil
}

// ListTasks returns a project's tasks, oldest first.
func (s *Service) ListTasks(ctx context.Context, p *domain.Principal, projectID uuid.UUID) ([]domain.Task, error) {
	if p == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if _, err := s.Store.Project(ctx, projectID); err != nil {
		return nil, err
	}
	return s.Store.Tasks(ctx, projectID)
}

// TasksForVolunteer returns the tasks assigned to the calling volunteer.
func (s *Service) TasksForVolunteer(ctx context.Context, p *domain.Principal) ([]domain.Task, error) {
	if err := domain.RequireVolunteer(p); err != nil {
		return nil, err
	}
	return s.Store.TasksForVolunteer(ctx, p.ID)
}
