package repository

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// OTPRepository persists one-time codes and their attempts.
type OTPRepository interface {
	Create(otp *entity.OTP) error
	GetLatestActive(userID uint, purpose string) (*entity.OTP, error)
	// IncrementAttempts counts a failed verification. It reports false, without
	// counting, when the code has no attempts left.
	IncrementAttempts(id uint) (bool, error)
	// Consume marks the code used. It reports false when another request
	// consumed it first or it expired or ran out of attempts meanwhile.
	Consume(id uint, now time.Time) (bool, error)
	// DeleteByUser removes every code of the user for purpose
	DeleteByUser(userID uint, purpose string) error
	// CleanupExpired removes codes that expired or were consumed before cutoff.
	CleanupExpired(cutoff time.Time) (int64, error)
}
