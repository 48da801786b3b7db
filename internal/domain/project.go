package domain

import (
	"math"
	"strings"
	"time"

	"helpmate-backend/internal/pkg/workflows"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectPlanned   ProjectStatus = "planned"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanned, ProjectActive, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ProjectFlow is the project status lifecycle. Completed and Cancelled are terminal.
var ProjectFlow = workflows.NewStateMachine(map[ProjectStatus][]ProjectStatus{
	ProjectPlanned: {ProjectActive, ProjectCompleted, ProjectCancelled},
	ProjectActive:  {ProjectCompleted, ProjectCancelled},
})

// Project is a volunteering initiative. Progress, CurrentVolunteers and the
// donation totals are derived fields: only the services write them.
type Project struct {
	ProjectID          uuid.UUID                   `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	OrganizerID        uuid.UUID                   `gorm:"column:organizer_id;type:uuid;not null;index" json:"organizer_id"`
	Title              string                      `gorm:"column:title;not null" json:"title"`
	Description        string                      `gorm:"column:description" json:"description"`
	Status             ProjectStatus               `gorm:"column:status;type:varchar(20);not null;default:'planned';index" json:"status"`
	Priority           Priority                    `gorm:"column:priority;type:varchar(10);not null;default:'medium'" json:"priority"`
	Location           string                      `gorm:"column:location" json:"location"`
	StartDate          *time.Time                  `gorm:"column:start_date" json:"start_date"`
	EndDate            *time.Time                  `gorm:"column:end_date" json:"end_date"`
	MaxVolunteers      int                         `gorm:"column:max_volunteers;not null" json:"max_volunteers"`
	CurrentVolunteers  int                         `gorm:"column:current_volunteers;not null;default:0" json:"current_volunteers"`
	TotalTasks         int                         `gorm:"column:total_tasks;not null;default:0" json:"total_tasks"`
	CompletedTasks     int                         `gorm:"column:completed_tasks;not null;default:0" json:"completed_tasks"`
	Progress           int                         `gorm:"column:progress;not null;default:0" json:"progress"`
	TotalHours         float64                     `gorm:"column:total_hours;not null;default:0" json:"total_hours"`
	RequiredSkills     datatypes.JSONSlice[string] `gorm:"column:required_skills" json:"required_skills"`
	TotalDonations     float64                     `gorm:"column:total_donations;not null;default:0" json:"total_donations"`
	DonationCount      int                         `gorm:"column:donation_count;not null;default:0" json:"donation_count"`
	LastDonationAt     *time.Time                  `gorm:"column:last_donation_at" json:"last_donation_at"`
	CancellationReason *string                     `gorm:"column:cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time                   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt          time.Time                   `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Project) TableName() string {
	return "Projects"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ProjectID == uuid.Nil {
		p.ProjectID = uuid.New()
	}
	return nil
}

// RecomputeProgress returns round(100 * completed / total) with halves
// rounded up, or 0 when there are no tasks.
func RecomputeProgress(completedTasks, totalTasks int) int {
	if totalTasks <= 0 {
		return 0
	}
	return int(math.Floor(float64(100*completedTasks)/float64(totalTasks) + 0.5))
}

// RefreshProgress stores the recomputed progress on the project.
func (p *Project) RefreshProgress() int {
	p.Progress = RecomputeProgress(p.CompletedTasks, p.TotalTasks)
	return p.Progress
}

func (p *Project) IsComplete() bool {
	return p.Status == ProjectCompleted || RecomputeProgress(p.CompletedTasks, p.TotalTasks) == 100
}

func (p *Project) IsClosed() bool {
	return p.Status == ProjectCompleted || p.Status == ProjectCancelled
}

func (p *Project) AtCapacity() bool {
	return p.CurrentVolunteers >= p.MaxVolunteers
}

func (p *Project) SpotsLeft() int {
	if p.AtCapacity() {
		return 0
	}
	return p.MaxVolunteers - p.CurrentVolunteers
}

// TransitionTo moves the project along ProjectFlow.
func (p *Project) TransitionTo(status ProjectStatus) error {
	if !ProjectFlow.CanTransition(p.Status, status) {
		return ErrInvalidTransition
	}
	p.Status = status
	return nil
}

// Validate checks the field invariants of a project.
func (p *Project) Validate() error {
	switch {
	case strings.TrimSpace(p.Title) == "":
		return NewError(ErrInvalidInput, "title is required")
	case !p.Status.Valid():
		return NewError(ErrInvalidInput, "invalid project status")
	case !p.Priority.Valid():
		return NewError(ErrInvalidInput, "invalid project priority")
	case p.MaxVolunteers <= 0:
		return NewError(ErrInvalidInput, "max_volunteers must be a positive integer")
	case p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate):
		return NewError(ErrInvalidInput, "end_date must not be before start_date")
	case p.CurrentVolunteers < 0 || p.CurrentVolunteers > p.MaxVolunteers:
		return ErrCountersOutOfRange
	case p.TotalTasks < 0 || p.CompletedTasks < 0 || p.CompletedTasks > p.TotalTasks:
		return ErrCountersOutOfRange
	case p.TotalHours < 0:
		return ErrNegativeHours
	}
	return nil
}

// ProjectFilter narrows project listings. Zero values match everything.
type ProjectFilter struct {
	Status      ProjectStatus
	Priority    Priority
	Location    string
	OrganizerID *uuid.UUID
}
