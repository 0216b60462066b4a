package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// OTPRepo implements repository.OTPRepository
type OTPRepo struct {
	db *gorm.DB
}

// NewOTPRepo creates the one-time code repository
func NewOTPRepo(db *gorm.DB) *OTPRepo {
	return &OTPRepo{db: db}
}

// Create stores a new one-time code
func (r *OTPRepo) Create(otp *entity.OTP) error {
	return translateError(r.db.Create(otp).Error, "otp")
}

// GetLatestActive returns the newest unconsumed code of a user for purpose.
func (r *OTPRepo) GetLatestActive(userID uint, purpose string) (*entity.OTP, error) {
	var otp entity.OTP
	err := r.db.
		Where("user_id = ? AND purpose = ? AND consumed_at IS NULL", userID, purpose).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return nil, translateError(err, "otp")
	}
	return &otp, nil
}

// IncrementAttempts bumps the counter in one conditional UPDATE so parallel
// guesses can never push it past max_attempts.
func (r *OTPRepo) IncrementAttempts(id uint) (bool, error) {
	result := r.db.Model(&entity.OTP{}).
		Where("id = ? AND attempt_count < max_attempts", id).
		Update("attempt_count", gorm.Expr("attempt_count + 1"))
	if result.Error != nil {
		return false, translateError(result.Error, "otp")
	}
	return result.RowsAffected == 1, nil
}

// Consume succeeds for exactly one caller per code.
func (r *OTPRepo) Consume(id uint, now time.Time) (bool, error) {
	result := r.db.Model(&entity.OTP{}).
		Where("id = ? AND consumed_at IS NULL AND attempt_count < max_attempts AND expires_at > ?", id, now).
		Update("consumed_at", now)
	if result.Error != nil {
		return false, translateError(result.Error, "otp")
	}
	return result.RowsAffected == 1, nil
}

// DeleteByUser removes every code of a user for purpose.
func (r *OTPRepo) DeleteByUser(userID uint, purpose string) error {
	return translateError(r.db.Where("user_id = ? AND purpose = ?", userID, purpose).Delete(&entity.OTP{}).Error, "otp")
}

// CleanupExpired deletes codes that expired before cutoff and reports how many.
func (r *OTPRepo) CleanupExpired(cutoff time.Time) (int64, error) {
	// Expired codes, and consumed ones older than cutoff
	result := r.db.
		Where("expires_at < ? OR (consumed_at IS NOT NULL AND consumed_at < ?)", cutoff, cutoff).
		Delete(&entity.OTP{})
	if result.Error != nil {
		return 0, translateError(result.Error, "otp cleanup")
	}
	return result.RowsAffected, nil
}
