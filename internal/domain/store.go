package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence boundary of the rules services. Each method is
// atomic on its own; Atomically groups several into one unit of work so the
// project and volunteer writes of a single operation commit together.
// Lookups of missing rows return the matching ErrXxxNotFound.
type Store interface {
	Atomically(ctx context.Context, fn func(tx Store) error) error

	Project(ctx context.Context, id uuid.UUID) (*Project, error)
	// LockProject re-reads the project for an update that depends on its
	// current counters, holding a row lock where the database supports it.
	LockProject(ctx context.Context, id uuid.UUID) (*Project, error)
	CreateProject(ctx context.Context, p *Project) error
	SaveProject(ctx context.Context, p *Project) error
	ListProjects(ctx context.Context, f ProjectFilter) ([]Project, error)
	// DeleteProject removes the project with its tasks, applications and
	// roster rows. Donations are never deleted.
	DeleteProject(ctx context.Context, p *Project) error

	Volunteer(ctx context.Context, id uuid.UUID) (*Volunteer, error)
	CreateVolunteer(ctx context.Context, v *Volunteer) error
	SaveVolunteer(ctx context.Context, v *Volunteer) error

	Application(ctx context.Context, projectID, volunteerID uuid.UUID) (*Application, error)
	// CreateApplication returns ErrApplicationExists when the pair already has a record.
	CreateApplication(ctx context.Context, a *Application) error
	SaveApplication(ctx context.Context, a *Application) error
	DeleteApplication(ctx context.Context, a *Application) error
	// Applications lists a project's records; an empty status lists all.
	Applications(ctx context.Context, projectID uuid.UUID, status ApplicationStatus) ([]Application, error)

	CreateRosterMember(ctx context.Context, m *RosterMember) error
	Roster(ctx context.Context, projectID uuid.UUID) ([]RosterMember, error)
	DeleteRosterMember(ctx context.Context, projectID, volunteerID uuid.UUID) error

	CreateDonation(ctx context.Context, d *Donation) error
	// Donations returns the newest limit entries, newest first; limit <= 0 returns all.
	Donations(ctx context.Context, projectID uuid.UUID, limit int) ([]Donation, error)

	Task(ctx context.Context, id uuid.UUID) (*Task, error)
	CreateTask(ctx context.Context, t *Task) error
	SaveTask(ctx context.Context, t *Task) error
	DeleteTask(ctx context.Context, t *Task) error
	Tasks(ctx context.Context, projectID uuid.UUID) ([]Task, error)
	TasksForVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]Task, error)
}
