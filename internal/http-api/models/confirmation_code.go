package models

import "time"

// Confirmation code lifecycle. A code leaves CodeStateIssued on the first
// redemption attempt and never returns to it without a new signup.
const (
	CodeStateIssued          = "issued"
	CodeStateConsumedSuccess = "consumed_success"
	CodeStateConsumedFailure = "consumed_failure"
)

// ConfirmationCode holds the hash of the last code issued to a user.
type ConfirmationCode struct {
	UserID     string     `gorm:"primaryKey;type:uuid" json:"user_id"`
	CodeHash   string     `gorm:"not null" json:"-"`
	State      string     `gorm:"size:32;not null;default:'issued'" json:"state"`
	IssuedAt   time.Time  `gorm:"not null" json:"issued_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`

	// Associations
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
}

func (ConfirmationCode) TableName() string {
	return "confirmation_codes"
}

// Redeemable reports whether the code may still be exchanged for a token at now.
func (c *ConfirmationCode) Redeemable(now time.Time, ttl time.Duration) bool {
	if c.State != CodeStateIssued || c.CodeHash == "" {
		return false
	}
	return !now.After(c.IssuedAt.Add(ttl))
}
