package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Donation is an immutable ledger entry. Sequence is its 1-based position in
// the project's ledger.
type Donation struct {
	DonationID     uuid.UUID `gorm:"column:donation_id;type:uuid;primaryKey" json:"donation_id"`
	ProjectID      uuid.UUID `gorm:"column:project_id;type:uuid;not null;index:idx_donations_project_seq,priority:1" json:"project_id"`
	Sequence       int       `gorm:"column:sequence;not null;index:idx_donations_project_seq,priority:2" json:"sequence"`
	Amount         float64   `gorm:"column:amount;not null" json:"amount"`
	DonorName      string    `gorm:"column:donor_name;not null" json:"donor_name"`
	LastFourDigits string    `gorm:"column:last_four_digits;type:varchar(4)" json:"last_four_digits"`
	DonatedAt      time.Time `gorm:"column:donated_at;not null" json:"timestamp"`
}

func (Donation) TableName() string {
	return "Donations"
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.DonationID == uuid.Nil {
		d.DonationID = uuid.New()
	}
	return nil
}

func (d *Donation) BeforeUpdate(tx *gorm.DB) error { return ErrDonationImmutable }
func (d *Donation) BeforeDelete(tx *gorm.DB) error { return ErrDonationImmutable }

// LedgerTotals recomputes the running total and last timestamp from scratch.
// Entries must be in ledger (Sequence ascending) order for the float sum to
// match the incrementally maintained total bit for bit.
func LedgerTotals(ledger []Donation) (total float64, last *time.Time) {
	for i := range ledger {
		total += ledger[i].Amount
		if last == nil || ledger[i].DonatedAt.After(*last) {
			ts := ledger[i].DonatedAt
			last = &ts
		}
	}
	return total, last
}
