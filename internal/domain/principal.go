package domain

import (
	"helpmate-backend/internal/pkg/constants"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a rules operation. A nil
// *Principal means nobody is signed in.
type Principal struct {
	ID       uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	Fullname string    `json:"fullname"`
	Email    string    `json:"email"`
}

func (p *Principal) IsVolunteer() bool { return p != nil && p.Role == constants.Volunteer }
func (p *Principal) IsOrganizer() bool { return p != nil && p.Role == constants.Organizer }

// RequireVolunteer returns the rule error for a caller that may not act as a volunteer.
func RequireVolunteer(p *Principal) error {
	if p == nil {
		return ErrAuthenticationRequired
	}
	if !p.IsVolunteer() {
		return ErrVolunteerRoleRequired
	}
	return nil
}

// RequireOrganizer returns the rule error for a caller that may not act as an organizer.
func RequireOrganizer(p *Principal) error {
	if p == nil {
		return ErrAuthenticationRequired
	}
	if !p.IsOrganizer() {
		return ErrOrganizerRoleRequired
	}
	return nil
}
