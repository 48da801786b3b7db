package database

import (
	"context"
	"errors"
	"strings"

	"helpmate-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements domain.Store on GORM.
type Store struct {
	DB *gorm.DB
}

var _ domain.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

// Atomically runs fn in a database transaction; any error rolls back every
// write fn made through tx.
func (s *Store) Atomically(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// first loads one row into dest, mapping a missing row to notFound.
func first(q *gorm.DB, dest interface{}, notFound error) error {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// isDuplicate reports a unique-constraint violation, using the dialect's
// error translation when the connection was opened without TranslateError.
func (s *Store) isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if t, ok := s.DB.Dialector.(gorm.ErrorTranslator); ok && errors.Is(t.Translate(err), gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) Project(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var p domain.Project
	if err := first(s.db(ctx).Where("project_id = ?", id), &p, domain.ErrProjectNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) LockProject(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	q := s.db(ctx).Where("project_id = ?", id)
	// SQLite serialises writers on its own and has no FOR UPDATE.
	if s.DB.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p domain.Project
	if err := first(q, &p, domain.ErrProjectNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	return s.db(ctx).Create(p).Error
}

func (s *Store) SaveProject(ctx context.Context, p *domain.Project) error {
	return s.db(ctx).Save(p).Error
}

func (s *Store) DeleteProject(ctx context.Context, p *domain.Project) error {
	db := s.db(ctx)
	if err := db.Where("project_id = ?", p.ProjectID).Delete(&domain.Task{}).Error; err != nil {
		return err
	}
	if err := db.Where("project_id = ?", p.ProjectID).Delete(&domain.RosterMember{}).Error; err != nil {
		return err
	}
	if err := db.Where("project_id = ?", p.ProjectID).Delete(&domain.Application{}).Error; err != nil {
		return err
	}
	return db.Delete(p).Error
}

func (s *Store) ListProjects(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, error) {
	q := s.db(ctx).Model(&domain.Project{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Location != "" {
		q = q.Where("location = ?", f.Location)
	}
	if f.OrganizerID != nil {
		q = q.Where("organizer_id = ?", *f.OrganizerID)
	}
	var out []domain.Project
	if err := q.Order(`"createdAt" DESC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Volunteer(ctx context.Context, id uuid.UUID) (*domain.Volunteer, error) {
	var v domain.Volunteer
	if err := first(s.db(ctx).Where("volunteer_id = ?", id), &v, domain.ErrVolunteerNotFound); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) CreateVolunteer(ctx context.Context, v *domain.Volunteer) error {
	return s.db(ctx).Create(v).Error
}

func (s *Store) SaveVolunteer(ctx context.Context, v *domain.Volunteer) error {
	return s.db(ctx).Save(v).Error
}

func (s *Store) Application(ctx context.Context, projectID, volunteerID uuid.UUID) (*domain.Application, error) {
	var a domain.Application
	q := s.db(ctx).Where("project_id = ? AND volunteer_id = ?", projectID, volunteerID)
	if err := first(q, &a, domain.ErrApplicationNotFound); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateApplication(ctx context.Context, a *domain.Application) error {
	err := s.db(ctx).Create(a).Error
	if s.isDuplicate(err) {
		return domain.ErrApplicationExists
	}
	return err
}

func (s *Store) SaveApplication(ctx context.Context, a *domain.Application) error {
	return s.db(ctx).Save(a).Error
}

func (s *Store) DeleteApplication(ctx context.Context, a *domain.Application) error {
	return s.db(ctx).Delete(a).Error
}

func (s *Store) Applications(ctx context.Context, projectID uuid.UUID, status domain.ApplicationStatus) ([]domain.Application, error) {
	q := s.db(ctx).Where("project_id = ?", projectID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Application
	if err := q.Order("applied_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateRosterMember(ctx context.Context, m *domain.RosterMember) error {
	return s.db(ctx).Create(m).Error
}

func (s *Store) Roster(ctx context.Context, projectID uuid.UUID) ([]domain.RosterMember, error) {
	var out []domain.RosterMember
	if err := s.db(ctx).Where("project_id = ?", projectID).Order("joined_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteRosterMember(ctx context.Context, projectID, volunteerID uuid.UUID) error {
	return s.db(ctx).Where("project_id = ? AND volunteer_id = ?", projectID, volunteerID).Delete(&domain.RosterMember{}).Error
}

func (s *Store) CreateDonation(ctx context.Context, d *domain.Donation) error {
	return s.db(ctx).Create(d).Error
}

func (s *Store) Donations(ctx context.Context, projectID uuid.UUID, limit int) ([]domain.Donation, error) {
	q := s.db(ctx).Where("project_id = ?", projectID).Order("donated_at DESC").Order("sequence DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Donation
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Task(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var t domain.Task
	if err := first(s.db(ctx).Where("task_id = ?", id), &t, domain.ErrTaskNotFound); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	return s.db(ctx).Create(t).Error
}

func (s *Store) SaveTask(ctx context.Context, t *domain.Task) error {
	return s.db(ctx).Save(t).Error
}

func (s *Store) DeleteTask(ctx context.Context, t *domain.Task) error {
	return s.db(ctx).Delete(t).Error
}

func (s *Store) Tasks(ctx context.Context, projectID uuid.UUID) ([]domain.Task, error) {
	var out []domain.Task
	if err := s.db(ctx).Where("project_id = ?", projectID).Order(`"createdAt" ASC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) TasksForVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]domain.Task, error) {
	var out []domain.Task
	if err := s.db(ctx).Where("assigned_volunteer_id = ?", volunteerID).Order(`"createdAt" ASC`).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
