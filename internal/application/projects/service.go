package projects

import (
	"context"
	"errors"
	"strings"
	"time"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/cache"
	"helpmate-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// Service owns the project lifecycle: creation, edits, status changes and
// the listing and statistics views.
type Service struct {
	Store    domain.Store
	Cache    cache.Cache
	StatsTTL time.Duration
	Now      func() time.Time
}

func NewService(store domain.Store, c cache.Cache, statsTTL time.Duration) *Service {
	return &Service{Store: store, Cache: c, StatsTTL: statsTTL}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateInput is the organizer-supplied part of a new project.
type CreateInput struct {
	Title          string          `json:"title" validate:"required"`
	Description    string          `json:"description"`
	Priority       domain.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Location       string          `json:"location"`
	StartDate      *time.Time      `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
	MaxVolunteers  int             `json:"max_volunteers" validate:"required,gt=0"`
	RequiredSkills []string        `json:"required_skills"`
}

// UpdateInput carries the editable fields; nil leaves a field unchanged.
// Counters, progress and status are not editable here.
type UpdateInput struct {
	Title          *string          `json:"title"`
	Description    *string          `json:"description"`
	Priority       *domain.Priority `json:"priority"`
	Location       *string          `json:"location"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	MaxVolunteers  *int             `json:"max_volunteers"`
	RequiredSkills []string         `json:"required_skills"`
}

func cleanSkills(skills []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

func (s *Service) invalidate(ctx context.Context) {
	if err := cache.InvalidateStats(ctx, s.Cache); err != nil {
		log.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}

// Create makes a Planned project with zeroed counters for the calling organizer.
func (s *Service) Create(ctx context.Context, p *domain.Principal, in CreateInput) (*domain.Project, error) {
	if err := domain.RequireOrganizer(p); err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	project := &domain.Project{
		OrganizerID:    p.ID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Status:         domain.ProjectPlanned,
		Priority:       priority,
		Location:       strings.TrimSpace(in.Location),
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		MaxVolunteers:  in.MaxVolunteers,
		RequiredSkills: cleanSkills(in.RequiredSkills),
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	if err := s.Store.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	metrics.ProjectTransitions.WithLabelValues(string(domain.ProjectPlanned)).Inc()
	log.Info().Str("project_id", project.ProjectID.String()).Str("organizer_id", p.ID.String()).Msg("project created")
	return project, nil
}

// mutate loads the project under lock, checks ownership, applies fn and
// saves the result if it still validates. fn runs in the same unit of work.
func (s *Service) mutate(ctx context.Context, p *domain.Principal, id uuid.UUID, fn func(tx domain.Store, project *domain.Project) error) (*domain.Project, error) {
	if err := domain.RequireOrganizer(p); err != nil {
		return nil, err
	}
	var project *domain.Project
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		project, err = tx.LockProject(ctx, id)
		if err != nil {
			return err
		}
		if project.OrganizerID != p.ID {
			return domain.ErrNotProjectOwner
		}
		if err := fn(tx, project); err != nil {
			return err
		}
		if err := project.Validate(); err != nil {
			return err
		}
		return tx.SaveProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return project, nil
}

// Update edits descriptive fields. MaxVolunteers may not drop below the
// current roster size.
func (s *Service) Update(ctx context.Context, p *domain.Principal, id uuid.UUID, in UpdateInput) (*domain.Project, error) {
	return s.mutate(ctx, p, id, func(_ domain.Store, project *domain.Project) error {
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}
		if in.Title != nil {
			project.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			project.Description = *in.Description
		}
		if in.Priority != nil {
			project.Priority = *in.Priority
		}
		if in.Location != nil {
			project.Location = strings.TrimSpace(*in.Location)
		}
		if in.StartDate != nil {
			project.StartDate = in.StartDate
		}
		if in.EndDate != nil {
			project.EndDate = in.EndDate
		}
		if in.RequiredSkills != nil {
			project.RequiredSkills = cleanSkills(in.RequiredSkills)
		}
		if in.MaxVolunteers != nil {
			if *in.MaxVolunteers < project.CurrentVolunteers {
				return domain.NewError(domain.ErrInvalidInput, "max_volunteers cannot be lower than the number of approved volunteers")
			}
			project.MaxVolunteers = *in.MaxVolunteers
		}
		return nil
	})
}

// transition wraps mutate for status changes and logs them.
func (s *Service) transition(ctx context.Context, p *domain.Principal, id uuid.UUID, to domain.ProjectStatus, fn func(tx domain.Store, project *domain.Project) error) (*domain.Project, error) {
	project, err := s.mutate(ctx, p, id, func(tx domain.Store, project *domain.Project) error {
		if err := project.TransitionTo(to); err != nil {
			return err
		}
		if fn != nil {
			return fn(tx, project)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ProjectTransitions.WithLabelValues(string(to)).Inc()
	log.Info().Str("project_id", id.String()).Str("status", string(to)).Msg("project status changed")
	return project, nil
}

// Activate moves a Planned project to Active.
func (s *Service) Activate(ctx context.Context, p *domain.Principal, id uuid.UUID) (*domain.Project, error) {
	return s.transition(ctx, p, id, domain.ProjectActive, nil)
}

// Cancel closes the project for good and records why.
func (s *Service) Cancel(ctx context.Context, p *domain.Principal, id uuid.UUID, reason string) (*domain.Project, error) {
	return s.transition(ctx, p, id, domain.ProjectCancelled, func(_ domain.Store, project *domain.Project) error {
		if reason = strings.TrimSpace(reason); reason != "" {
			project.CancellationReason = &reason
		}
		return nil
	})
}

// MarkCompleted completes the project and every task still open on it, so
// the task rows agree with the completed counters.
func (s *Service) MarkCompleted(ctx context.Context, p *domain.Principal, id uuid.UUID) (*domain.Project, error) {
	return s.transition(ctx, p, id, domain.ProjectCompleted, func(tx domain.Store, project *domain.Project) error {
		tasks, err := tx.Tasks(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		for i := range tasks {
			if tasks[i].IsCompleted() {
				continue
			}
			tasks[i].Status = domain.TaskCompleted
			tasks[i].CompletedAt = &now
			if err := tx.SaveTask(ctx, &tasks[i]); err != nil {
				return err
			}
		}
		project.TotalTasks = len(tasks)
		project.CompletedTasks = len(tasks)
		project.RefreshProgress()
		return nil
	})
}

// Delete removes a project the caller owns, with its tasks and applications.
// Projects with approved volunteers or recorded donations are kept: the
// roster and the donation ledger outlive edits.
func (s *Service) Delete(ctx context.Context, p *domain.Principal, id uuid.UUID) error {
	if err := domain.RequireOrganizer(p); err != nil {
		return err
	}
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		project, err := tx.LockProject(ctx, id)
		if err != nil {
			return err
		}
		if project.OrganizerID != p.ID {
			return domain.ErrNotProjectOwner
		}
		approved, err := tx.Applications(ctx, id, domain.ApplicationApproved)
		if err != nil {
			return err
		}
		donations, err := tx.Donations(ctx, id, 1)
		if err != nil {
			return err
		}
		if project.CurrentVolunteers > 0 || len(approved) > 0 || project.DonationCount > 0 || len(donations) > 0 {
			return domain.ErrProjectInUse
		}

		apps, err := tx.Applications(ctx, id, "")
		if err != nil {
			return err
		}
		for _, a := range apps {
			v, err := tx.Volunteer(ctx, a.VolunteerID)
			if errors.Is(err, domain.ErrVolunteerNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			v.MoveTo(id, domain.ApplicationNone)
			if err := tx.SaveVolunteer(ctx, v); err != nil {
				return err
			}
		}
		return tx.DeleteProject(ctx, project)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	log.Info().Str("project_id", id.String()).Str("organizer_id", p.ID.String()).Msg("project deleted")
	return nil
}

// Get returns one project. Progress is recomputed on read.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	project, err := s.Store.Project(ctx, id)
	if err != nil {
		return nil, err
	}
	project.RefreshProgress()
	return project, nil
}

// List returns projects matching f, newest first.
func (s *Service) List(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, error) {
	list, err := s.Store.ListProjects(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].RefreshProgress()
	}
	return list, nil
}

// ByOrganizer lists the projects an organizer owns.
func (s *Service) ByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]domain.Project, error) {
	return s.List(ctx, domain.ProjectFilter{OrganizerID: &organizerID})
}

// Search matches term case-insensitively against title, description,
// location and required skills, within the filter.
func (s *Service) Search(ctx context.Context, term string, f domain.ProjectFilter) ([]domain.Project, error) {
	list, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list, nil
	}
	out := make([]domain.Project, 0, len(list))
	for _, project := range list {
		if matches(project, term) {
			out = append(out, project)
		}
	}
	return out, nil
}

func matches(p domain.Project, term string) bool {
	for _, field := range []string{p.Title, p.Description, p.Location} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	for _, skill := range p.RequiredSkills {
		if strings.Contains(strings.ToLower(skill), term) {
			return true
		}
	}
	return false
}
