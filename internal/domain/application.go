package domain

import (
	"time"

	"helpmate-backend/internal/pkg/workflows"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	// ApplicationNone is never stored; it reports that no record exists.
	ApplicationNone     ApplicationStatus = "none"
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRefused  ApplicationStatus = "refused"
)

// ApplicationFlow is the volunteer/project relationship lifecycle.
// Refused -> Pending is only taken by an explicit re-application.
var ApplicationFlow = workflows.NewStateMachine(map[ApplicationStatus][]ApplicationStatus{
	ApplicationNone:    {ApplicationPending},
	ApplicationPending: {ApplicationApproved, ApplicationRefused},
	ApplicationRefused: {ApplicationPending},
})

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionRefuse  Decision = "refuse"
)

// Status returns the application status a decision leads to.
func (d Decision) Status() (ApplicationStatus, bool) {
	switch d {
	case DecisionApprove:
		return ApplicationApproved, true
	case DecisionRefuse:
		return ApplicationRefused, true
	}
	return "", false
}

// Application is a volunteer's request to join a project. At most one exists
// per (project, volunteer); the unique index backs that up in the database.
type Application struct {
	ApplicationID  uuid.UUID         `gorm:"column:application_id;type:uuid;primaryKey" json:"application_id"`
	ProjectID      uuid.UUID         `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_applications_project_volunteer" json:"project_id"`
	VolunteerID    uuid.UUID         `gorm:"column:volunteer_id;type:uuid;not null;uniqueIndex:idx_applications_project_volunteer;index" json:"volunteer_id"`
	ApplicantName  string            `gorm:"column:applicant_name;not null" json:"applicant_name"`
	ApplicantEmail string            `gorm:"column:applicant_email;not null" json:"applicant_email"`
	Status         ApplicationStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	AppliedAt      time.Time         `gorm:"column:applied_at;not null" json:"applied_at"`
	DecidedAt      *time.Time        `gorm:"column:decided_at" json:"decided_at"`
	DecidedBy      *uuid.UUID        `gorm:"column:decided_by;type:uuid" json:"decided_by"`
	CreatedAt      time.Time         `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time         `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Application) TableName() string {
	return "Applications"
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ApplicationID == uuid.Nil {
		a.ApplicationID = uuid.New()
	}
	return nil
}

// RosterMember is an approved volunteer on a project's team.
type RosterMember struct {
	MemberID    uuid.UUID `gorm:"column:member_id;type:uuid;primaryKey" json:"member_id"`
	ProjectID   uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_roster_project_volunteer" json:"project_id"`
	VolunteerID uuid.UUID `gorm:"column:volunteer_id;type:uuid;not null;uniqueIndex:idx_roster_project_volunteer" json:"volunteer_id"`
	Fullname    string    `gorm:"column:fullname;not null" json:"fullname"`
	Email       string    `gorm:"column:email;not null" json:"email"`
	JoinedAt    time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
}

func (RosterMember) TableName() string {
	return "RosterMembers"
}

func (m *RosterMember) BeforeCreate(tx *gorm.DB) error {
	if m.MemberID == uuid.Nil {
		m.MemberID = uuid.New()
	}
	return nil
}
