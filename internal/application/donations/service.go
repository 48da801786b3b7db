package donations

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/cache"
	"helpmate-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const anonymousDonor = "Anonymous"

// Service appends donations to a project's ledger and keeps the project's
// running totals. No payment is processed.
type Service struct {
	Store domain.Store
	Cache cache.Cache
	Now   func() time.Time
}

func NewService(store domain.Store, c cache.Cache) *Service {
	return &Service{Store: store, Cache: c}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// DonationInput is what a donor submits.
type DonationInput struct {
	Amount    float64 `json:"amount"`
	DonorName string  `json:"donor_name"`
	// CardNumber is reduced to its last four digits before anything is stored.
	CardNumber string `json:"card_number"`
}

// AddDonation appends a donation and adds it to the project totals in the
// same unit of work.
func (s *Service) AddDonation(ctx context.Context, projectID uuid.UUID, in DonationInput) (*domain.Donation, error) {
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	digits, err := lastFour(in.CardNumber)
	if err != nil {
		return nil, err
	}

	donation := &domain.Donation{
		ProjectID:      projectID,
		Amount:         in.Amount,
		DonorName:      donorName(in.DonorName),
		LastFourDigits: digits,
		DonatedAt:      s.now(),
	}
	err = s.Store.Atomically(ctx, func(tx domain.Store) error {
		project, err := tx.LockProject(ctx, projectID)
		if err != nil {
			return err
		}
		donation.Sequence = project.DonationCount + 1
		if err := tx.CreateDonation(ctx, donation); err != nil {
			return err
		}
		project.DonationCount = donation.Sequence
		project.TotalDonations += donation.Amount
		if project.LastDonationAt == nil || donation.DonatedAt.After(*project.LastDonationAt) {
			ts := donation.DonatedAt
			project.LastDonationAt = &ts
		}
		return tx.SaveProject(ctx, project)
	})
	if err != nil {
		return nil, err
	}

	metrics.Donations.Inc()
	metrics.DonationAmount.Add(donation.Amount)
	if err := cache.InvalidateStats(ctx, s.Cache); err != nil {
		log.Warn().Err(err).Msg("stats cache invalidation failed")
	}
	log.Info().
		Str("project_id", projectID.String()).
		Int("sequence", donation.Sequence).
		Float64("amount", donation.Amount).
		Msg("donation recorded")
	return donation, nil
}

// RecentDonations returns up to limit donations, newest first. limit <= 0
// returns the whole ledger.
func (s *Service) RecentDonations(ctx context.Context, projectID uuid.UUID, limit int) ([]domain.Donation, error) {
	if _, err := s.Store.Project(ctx, projectID); err != nil {
		return nil, err
	}
	return s.Store.Donations(ctx, projectID, limit)
}

func donorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return anonymousDonor
	}
	return name
}

// lastFour keeps the last four digits of a card number. No card is allowed;
// a card with fewer than four digits is not.
func lastFour(card string) (string, error) {
	if strings.TrimSpace(card) == "" {
		return "", nil
	}
	digits := make([]rune, 0, len(card))
	for _, r := range card {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return "", domain.NewError(domain.ErrInvalidInput, "card_number must contain at least four digits")
	}
	return string(digits[len(digits)-4:]), nil
}
