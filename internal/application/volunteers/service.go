package volunteers

import (
	"context"
	"strings"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Service manages the volunteer profile that backs application decisions.
type Service struct {
	Store domain.Store
}

func NewService(store domain.Store) *Service {
	return &Service{Store: store}
}

// ForUser builds the empty volunteer profile created alongside a volunteer account.
func ForUser(u *domain.User) *domain.Volunteer {
	v := &domain.Volunteer{
		VolunteerID:      u.UserID,
		Fullname:         u.Fullname,
		Email:            u.Email,
		PendingProjects:  domain.RefList{},
		ApprovedProjects: domain.RefList{},
		RefusedProjects:  domain.RefList{},
	}
	v.RefreshProfileComplete()
	return v
}

// ProfileInput carries editable profile fields; nil leaves a field unchanged.
type ProfileInput struct {
	Fullname     *string  `json:"fullname"`
	Phone        *string  `json:"phone"`
	City         *string  `json:"city"`
	Bio          *string  `json:"bio"`
	Availability *string  `json:"availability"`
	Skills       []string `json:"skills"`
}

// ApplicationsView groups a volunteer's project ids by application status.
type ApplicationsView struct {
	Pending  []uuid.UUID `json:"pending"`
	Approved []uuid.UUID `json:"approved"`
	Refused  []uuid.UUID `json:"refused"`
}

// Profile returns the calling volunteer's profile.
func (s *Service) Profile(ctx context.Context, p *domain.Principal) (*domain.Volunteer, error) {
	if err := domain.RequireVolunteer(p); err != nil {
		return nil, err
	}
	return s.Store.Volunteer(ctx, p.ID)
}

// UpdateProfile edits the profile and recomputes ProfileComplete.
func (s *Service) UpdateProfile(ctx context.Context, p *domain.Principal, in ProfileInput) (*domain.Volunteer, error) {
	if err := domain.RequireVolunteer(p); err != nil {
		return nil, err
	}
	if in.Fullname != nil && !validation.IsValidFullname(*in.Fullname) {
		return nil, domain.NewError(domain.ErrInvalidInput, "Full name can only contain letters, spaces, hyphens, and apostrophes")
	}
	if in.Phone != nil && strings.TrimSpace(*in.Phone) != "" && !validation.IsValidPhone(strings.TrimSpace(*in.Phone)) {
		return nil, domain.NewError(domain.ErrInvalidInput, "Invalid phone number")
	}

	var v *domain.Volunteer
	err := s.Store.Atomically(ctx, func(tx domain.Store) error {
		var err error
		v, err = tx.Volunteer(ctx, p.ID)
		if err != nil {
			return err
		}
		if in.Fullname != nil {
			v.Fullname = strings.TrimSpace(*in.Fullname)
		}
		if in.Phone != nil {
			v.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.City != nil {
			v.City = strings.TrimSpace(*in.City)
		}
		if in.Bio != nil {
			v.Bio = *in.Bio
		}
		if in.Availability != nil {
			v.Availability = strings.TrimSpace(*in.Availability)
		}
		if in.Skills != nil {
			skills := make(datatypes.JSONSlice[string], 0, len(in.Skills))
			for _, sk := range in.Skills {
				if sk = strings.TrimSpace(sk); sk != "" {
					skills = append(skills, sk)
				}
			}
			v.Skills = skills
		}
		v.RefreshProfileComplete()
		return tx.SaveVolunteer(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// MyApplications lists the caller's projects by application status.
func (s *Service) MyApplications(ctx context.Context, p *domain.Principal) (*ApplicationsView, error) {
	v, err := s.Profile(ctx, p)
	if err != nil {
		return nil, err
	}
	return &ApplicationsView{
		Pending:  append([]uuid.UUID{}, v.PendingProjects...),
		Approved: append([]uuid.UUID{}, v.ApprovedProjects...),
		Refused:  append([]uuid.UUID{}, v.RefusedProjects...),
	}, nil
}
