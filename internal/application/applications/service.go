package applications

import (
	"context"
	"errors"
	"time"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/cache"
	"helpmate-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Policy holds the configurable parts of the application workflow.
type Policy struct {
	// CheckCapacityOnApply rejects applications to a full project up front.
	// Capacity is always enforced again when a decision approves.
	CheckCapacityOnApply bool
	// AllowReapply lets a refused volunteer move back to pending via Reapply.
	AllowReapply bool
}

// DecisionNotifier is told about every decision after it commits.
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, project domain.Project, application domain.Application) error
}

// Service runs the volunteer/project application workflow.
type Service struct {
	Store    domain.Store
	Cache    cache.Cache
	Notifier DecisionNotifier
	Policy   Policy
	Now      func() time.Time
}

func NewService(store domain.Store, c cache.Cache, notifier DecisionNotifier, policy Policy) *Service {
	return &Service{Store: store, Cache: c, Notifier: notifier, Policy: policy}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Apply creates a pending application for the calling volunteer. If a record
// for the pair already exists, in any status, it is returned unchanged with
// created=false.
func (s *Service) Apply(ctx context.Context, p *domain.Principal, projectID uuid.UUID) (app *domain.Application, created bool, err error) {
	if err := domain.RequireVolunteer(p); err != nil {
		return nil, false, err
	}

	err = s.Store.Atomically(ctx, func(tx domain.Store) error {
		existing, err := tx.Application(ctx, projectID, p.ID)
		if err == nil {
			app = existing
			return nil
		}
		if !errors.Is(err, domain.ErrApplicationNotFound) {
			return err
		}

		project, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		volunteer, err := tx.Volunteer(ctx, p.ID)
		if err != nil {
			return err
		}
		if !volunteer.ProfileComplete {
			return domain.ErrProfileIncomplete
		}
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}
		if s.Policy.CheckCapacityOnApply && project.AtCapacity() {
			metrics.Applications.WithLabelValues(metrics.OutcomeRejectedCapacity).Inc()
			return domain.ErrCapacityExceeded
		}

		a := &domain.Application{
			ProjectID:      projectID,
			VolunteerID:    p.ID,
			ApplicantName:  volunteer.Fullname,
			ApplicantEmail: volunteer.Email,
			Status:         domain.ApplicationPending,
			AppliedAt:      s.now(),
		}
		if err := tx.CreateApplication(ctx, a); err != nil {
			return err
		}
		volunteer.MoveTo(projectID, domain.ApplicationPending)
		if err := tx.SaveVolunteer(ctx, volunteer); err != nil {
			return err
		}
		app, created = a, true
		return nil
	})
	if errors.Is(err, domain.ErrApplicationExists) {
		// A concurrent apply for the same pair won the unique index.
		existing, rerr := s.Store.Application(ctx, projectID, p.ID)
		if rerr != nil {
			return nil, false, rerr
		}
		return existing, false, nil
	}
	if err != nil {
		if domain.KindOf(err) == nil {
			log.Error().Err(err).Str("project_id", projectID.String()).Str("volunteer_id", p.ID.String()).Msg("apply failed")
		}
		return nil, false, err
	}
	if created {
		metrics.Applications.WithLabelValues(metrics.OutcomeApplied).Inc()
		log.Info().Str("project_id", projectID.String()).Str("volunteer_id", p.ID.String()).Msg("application created")
	}
	return app, created, nil
}

// Decide approves or refuses a pending application. Only the owning
// organizer may decide. Approval re-checks capacity against a freshly locked
// project row before incrementing CurrentVolunteers.
func (s *Service) Decide(ctx context.Context, p *domain.Principal, projectID, volunteerID uuid.UUID, decision domain.Decision) (*domain.Application, error) {
	target, ok := decision.Status()
	if !ok {
		return nil, domain.NewError(domain.ErrInvalidInput, "decision must be approve or refuse")
	}
	if err := domain.RequireOrganizer(p); err != nil {
		return nil, err
	}

	var (
		app     *domain.Application
		project *domain.Project
	)
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		project, err = tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.OrganizerID != p.ID {
			return domain.ErrNotProjectOwner
		}
		app, err = tx.Application(ctx, projectID, volunteerID)
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return domain.ErrApplicationNotPending
		}
		if err != nil {
			return err
		}
		if !domain.ApplicationFlow.CanTransition(app.Status, target) {
			return domain.ErrApplicationNotPending
		}
		volunteer, err := tx.Volunteer(ctx, volunteerID)
		if err != nil {
			return err
		}

		now := s.now()
		if target == domain.ApplicationApproved {
			if project.AtCapacity() {
				return domain.ErrCapacityExceeded
			}
			project.CurrentVolunteers++
			if err := tx.SaveProject(ctx, project); err != nil {
				return err
			}
			if err := tx.CreateRosterMember(ctx, &domain.RosterMember{
				ProjectID:   projectID,
				VolunteerID: volunteerID,
				Fullname:    app.ApplicantName,
				Email:       app.ApplicantEmail,
				JoinedAt:    now,
			}); err != nil {
				return err
			}
		}

		app.Status = target
		app.DecidedAt = &now
		app.DecidedBy = &p.ID
		if err := tx.SaveApplication(ctx, app); err != nil {
			return err
		}
		volunteer.MoveTo(projectID, target)
		return tx.SaveVolunteer(ctx, volunteer)
	})
	if errors.Is(err, domain.ErrCapacityExceeded) {
		metrics.Applications.WithLabelValues(metrics.OutcomeRejectedCapacity).Inc()
	}
	if err != nil {
		return nil, err
	}

	outcome := metrics.OutcomeRefused
	if target == domain.ApplicationApproved {
		outcome = metrics.OutcomeApproved
		if err := cache.InvalidateStats(ctx, s.Cache); err != nil {
			log.Warn().Err(err).Msg("stats cache invalidation failed")
		}
	}
	metrics.Applications.WithLabelValues(outcome).Inc()
	log.Info().
		Str("project_id", projectID.String()).
		Str("volunteer_id", volunteerID.String()).
		Str("status", string(target)).
		Int("current_volunteers", project.CurrentVolunteers).
		Msg("application decided")

	if s.Notifier != nil {
		if err := s.Notifier.NotifyDecision(ctx, *project, *app); err != nil {
			log.Warn().Err(err).Str("volunteer_id", volunteerID.String()).Msg("decision notification failed")
		}
	}
	return app, nil
}

// Reapply moves a refused application back to pending. It is only available
// when the policy allows re-application.
func (s *Service) Reapply(ctx context.Context, p *domain.Principal, projectID uuid.UUID) (*domain.Application, error) {
	if err := domain.RequireVolunteer(p); err != nil {
		return nil, err
	}
	if !s.Policy.AllowReapply {
		return nil, domain.ErrReapplyNotAllowed
	}

	var app *domain.Application
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		app, err = tx.Application(ctx, projectID, p.ID)
		if err != nil {
			return err
		}
		if !domain.ApplicationFlow.CanTransition(app.Status, domain.ApplicationPending) {
			return domain.ErrApplicationNotRefused
		}
		project, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}
		if s.Policy.CheckCapacityOnApply && project.AtCapacity() {
			return domain.ErrCapacityExceeded
		}
		volunteer, err := tx.Volunteer(ctx, p.ID)
		if err != nil {
			return err
		}
		if !volunteer.ProfileComplete {
			return domain.ErrProfileIncomplete
		}

		app.Status = domain.ApplicationPending
		app.AppliedAt = s.now()
		app.DecidedAt = nil
		app.DecidedBy = nil
		if err := tx.SaveApplication(ctx, app); err != nil {
			return err
		}
		volunteer.MoveTo(projectID, domain.ApplicationPending)
		return tx.SaveVolunteer(ctx, volunteer)
	})
	if err != nil {
		return nil, err
	}
	metrics.Applications.WithLabelValues(metrics.OutcomeReapplied).Inc()
	log.Info().Str("project_id", projectID.String()).Str("volunteer_id", p.ID.String()).Msg("application resubmitted")
	return app, nil
}

// RemoveVolunteer takes an approved volunteer off the project roster. The
// application record is deleted, so the volunteer is back to no relationship
// with the project and may apply again. Their tasks on the project are
// unassigned.
func (s *Service) RemoveVolunteer(ctx context.Context, p *domain.Principal, projectID, volunteerID uuid.UUID) error {
	if err := domain.RequireOrganizer(p); err != nil {
		return err
	}
	var project *domain.Project
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		project, err = tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.OrganizerID != p.ID {
			return domain.ErrNotProjectOwner
		}
		if project.IsClosed() {
			return domain.ErrProjectClosed
		}
		app, err := tx.Application(ctx, projectID, volunteerID)
		if errors.Is(err, domain.ErrApplicationNotFound) {
			return domain.ErrApplicationNotApproved
		}
		if err != nil {
			return err
		}
		if app.Status != domain.ApplicationApproved {
			return domain.ErrApplicationNotApproved
		}

		if err := tx.DeleteApplication(ctx, app); err != nil {
			return err
		}
		if err := tx.DeleteRosterMember(ctx, projectID, volunteerID); err != nil {
			return err
		}
		if project.CurrentVolunteers > 0 {
			project.CurrentVolunteers--
		}
		if err := tx.SaveProject(ctx, project); err != nil {
			return err
		}

		tasks, err := tx.Tasks(ctx, projectID)
		if err != nil {
			return err
		}
		for i := range tasks {
			if tasks[i].AssignedVolunteerID != nil && *tasks[i].AssignedVolunteerID == volunteerID {
				tasks[i].AssignedVolunteerID = nil
				if err := tx.SaveTask(ctx, &tasks[i]); err != nil {
					return err
				}
			}
		}

		volunteer, err := tx.Volunteer(ctx, volunteerID)
		if errors.Is(err, domain.ErrVolunteerNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		volunteer.MoveTo(projectID, domain.ApplicationNone)
		return tx.SaveVolunteer(ctx, volunteer)
	})
	if err != nil {
		return err
	}
	if err := cache.InvalidateStats(ctx, s.Cache); err != nil {
		log.Warn().Err(err).Msg("stats cache invalidation failed")
	}
	metrics.Applications.WithLabelValues(metrics.OutcomeRemoved).Inc()
	log.Info().
		Str("project_id", projectID.String()).
		Str("volunteer_id", volunteerID.String()).
		Int("current_volunteers", project.CurrentVolunteers).
		Msg("volunteer removed from project")
	return nil
}

// StatusFor reports the caller's relationship to a project, read from the
// volunteer's reference lists.
func (s *Service) StatusFor(ctx context.Context, p *domain.Principal, projectID uuid.UUID) (domain.ApplicationStatus, error) {
	if err := domain.RequireVolunteer(p); err != nil {
		return "", err
	}
	volunteer, err := s.Store.Volunteer(ctx, p.ID)
	if errors.Is(err, domain.ErrVolunteerNotFound) {
		return domain.ApplicationNone, nil
	}
	if err != nil {
		return "", err
	}
	return volunteer.StatusFor(projectID), nil
}

// PendingRequests lists the pending applications of a project, oldest first,
// for its organizer to review.
func (s *Service) PendingRequests(ctx context.Context, p *domain.Principal, projectID uuid.UUID) ([]domain.Application, error) {
	if err := domain.RequireOrganizer(p); err != nil {
		return nil, err
	}
	project, err := s.Store.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OrganizerID != p.ID {
		return nil, domain.ErrNotProjectOwner
	}
	return s.Store.Applications(ctx, projectID, domain.ApplicationPending)
}

// Roster lists the approved volunteers of a project.
func (s *Service) Roster(ctx context.Context, p *domain.Principal, projectID uuid.UUID) ([]domain.RosterMember, error) {
	if p == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if _, err := s.Store.Project(ctx, projectID); err != nil {
		return nil, err
	}
	return s.Store.Roster(ctx, projectID)
}
