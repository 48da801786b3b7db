package user

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"helpmate-backend/internal/application/volunteers"
	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/pkg/constants"
	"helpmate-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrEmailRegistered = domain.NewError(domain.ErrInvalidState, "Email already registered")

// Welcomer greets new accounts. Optional.
type Welcomer interface {
	SendWelcome(ctx context.Context, u *domain.User) error
}

// Service holds DB for account operations.
type Service struct {
	DB       *gorm.DB
	Welcomer Welcomer
}

// RegisterInput is the signup request body.
type RegisterInput struct {
	Fullname string `json:"fullname" validate:"required,fullname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Role     string `json:"role" validate:"required,oneof=volunteer organizer"`
}

// Register creates an account. Volunteer accounts get an empty volunteer
// profile in the same transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Role = strings.TrimSpace(strings.ToLower(in.Role))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !constants.IsValidRole(in.Role) {
		return nil, domain.NewError(domain.ErrInvalidInput, "Invalid role")
	}

	var existing domain.User
	if err := s.DB.WithContext(ctx).Where("email = ?", in.Email).First(&existing).Error; err == nil {
		return nil, ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Fullname:     titleCaseAndNormalize(in.Fullname),
		Role:         in.Role,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if u.Role == constants.Volunteer {
			return tx.Create(volunteers.ForUser(u)).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Welcomer != nil {
		if err := s.Welcomer.SendWelcome(ctx, u); err != nil {
			log.Warn().Err(err).Str("user_id", u.UserID.String()).Msg("welcome email failed")
		}
	}
	return u, nil
}

// ViewUser returns user by ID.
func (s *Service) ViewUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func titleCaseAndNormalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	runes := []rune(s)
	var b strings.Builder
	capitalize := true
	for _, r := range runes {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
