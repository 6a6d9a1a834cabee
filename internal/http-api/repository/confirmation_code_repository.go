package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yamdb/internal/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RedeemFunc inspects a locked confirmation code and returns the state to
// store. A missing row is passed as a code with an empty State. Returning an
// error rolls the transaction back and leaves the row untouched.
type RedeemFunc func(code *models.ConfirmationCode) (next string, err error)

type ConfirmationCodeRepository interface {
	// Issue stores hash as the user's only live code, replacing any previous one.
	Issue(ctx context.Context, userID, hash string, issuedAt time.Time) error
	// Redeem runs fn while holding a row lock on the user's code.
	Redeem(ctx context.Context, userID string, now time.Time, fn RedeemFunc) error
}

type confirmationCodeRepository struct {
	db *gorm.DB
}

func NewConfirmationCodeRepository(db *gorm.DB) ConfirmationCodeRepository {
	return &confirmationCodeRepository{db: db}
}

func (r *confirmationCodeRepository) Issue(ctx context.Context, userID, hash string, issuedAt time.Time) error {
	code := models.ConfirmationCode{
		UserID:   userID,
		CodeHash: hash,
		State:    models.CodeStateIssued,
		IssuedAt: issuedAt,
	}

	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"code_hash":   hash,
				"state":       models.CodeStateIssued,
				"issued_at":   issuedAt,
				"consumed_at": nil,
			}),
		}).
		Create(&code).Error
	if err != nil {
		return fmt.Errorf("issue confirmation code: %w", err)
	}
	return nil
}

func (r *confirmationCodeRepository) Redeem(ctx context.Context, userID string, now time.Time, fn RedeemFunc) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var code models.ConfirmationCode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			Take(&code).Error

		found := true
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
			code = models.ConfirmationCode{UserID: userID}
		} else if err != nil {
			return fmt.Errorf("lock confirmation code: %w", err)
		}

		next, err := fn(&code)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}

		if err := tx.Model(&models.ConfirmationCode{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{"state": next, "consumed_at": now}).Error; err != nil {
			return fmt.Errorf("consume confirmation code: %w", err)
		}
		return nil
	})
}
