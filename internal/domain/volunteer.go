package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Volunteer is the volunteer-side view of project applications. Its id is
// the owning user's id. A project id sits in at most one of the three lists.
type Volunteer struct {
	VolunteerID      uuid.UUID                   `gorm:"column:volunteer_id;type:uuid;primaryKey" json:"volunteer_id"`
	Fullname         string                      `gorm:"column:fullname;not null" json:"fullname"`
	Email            string                      `gorm:"column:email;not null" json:"email"`
	Phone            string                      `gorm:"column:phone" json:"phone"`
	City             string                      `gorm:"column:city" json:"city"`
	Bio              string                      `gorm:"column:bio" json:"bio"`
	Availability     string                      `gorm:"column:availability" json:"availability"`
	Skills           datatypes.JSONSlice[string] `gorm:"column:skills" json:"skills"`
	ProfileComplete  bool                        `gorm:"column:profile_complete;not null;default:false" json:"profile_complete"`
	PendingProjects  RefList                     `gorm:"column:pending_projects;type:text" json:"pending_projects"`
	ApprovedProjects RefList                     `gorm:"column:approved_projects;type:text" json:"approved_projects"`
	RefusedProjects  RefList                     `gorm:"column:refused_projects;type:text" json:"refused_projects"`
	CreatedAt        time.Time                   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time                   `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Volunteer) TableName() string {
	return "Volunteers"
}

// MoveTo places projectID in the list for status and removes it from the
// other two. ApplicationNone removes it everywhere.
func (v *Volunteer) MoveTo(projectID uuid.UUID, status ApplicationStatus) {
	v.PendingProjects = v.PendingProjects.Without(projectID)
	v.ApprovedProjects = v.ApprovedProjects.Without(projectID)
	v.RefusedProjects = v.RefusedProjects.Without(projectID)
	switch status {
	case ApplicationPending:
		v.PendingProjects = v.PendingProjects.With(projectID)
	case ApplicationApproved:
		v.ApprovedProjects = v.ApprovedProjects.With(projectID)
	case ApplicationRefused:
		v.RefusedProjects = v.RefusedProjects.With(projectID)
	}
}

// StatusFor checks approved, then pending, then refused; the first list that
// holds projectID wins even if the lists disagree.
func (v *Volunteer) StatusFor(projectID uuid.UUID) ApplicationStatus {
	switch {
	case v.ApprovedProjects.Contains(projectID):
		return ApplicationApproved
	case v.PendingProjects.Contains(projectID):
		return ApplicationPending
	case v.RefusedProjects.Contains(projectID):
		return ApplicationRefused
	}
	return ApplicationNone
}

// RefreshProfileComplete recomputes the completeness flag consulted by apply.
func (v *Volunteer) RefreshProfileComplete() bool {
	hasSkill := false
	for _, s := range v.Skills {
		if strings.TrimSpace(s) != "" {
			hasSkill = true
			break
		}
	}
	v.ProfileComplete = strings.TrimSpace(v.Fullname) != "" &&
		strings.TrimSpace(v.Phone) != "" &&
		strings.TrimSpace(v.City) != "" &&
		hasSkill
	return v.ProfileComplete
}
