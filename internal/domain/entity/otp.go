package entity

import "time"

// OTP purposes
const (
	OTPPurposePasswordReset = "password_reset"
)

// OTP stores a hashed one-time code sent to a user's email.
type OTP struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	Email        string     `gorm:"size:100;not null" json:"email"`
	CodeHash     string     `gorm:"size:64;not null" json:"-"`
	CodeSalt     string     `gorm:"size:64;not null" json:"-"`
	Purpose      string     `gorm:"size:30;not null;index" json:"purpose"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	AttemptCount int        `gorm:"not null;default:0" json:"attempt_count"`
	MaxAttempts  int        `gorm:"not null;default:5" json:"max_attempts"`
	LastSentAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"last_sent_at"`
	ConsumedAt   *time.Time `gorm:"index" json:"consumed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName defines the table name for GORM
func (OTP) TableName() string {
	return "otps"
}

// IsConsumed reports whether the code was already used.
func (o *OTP) IsConsumed() bool {
	return o.ConsumedAt != nil
}

// IsExpired reports whether the code is past its expiry at now.
func (o *OTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// AttemptsExhausted reports whether no verification attempts remain.
func (o *OTP) AttemptsExhausted() bool {
	return o.AttemptCount >= o.MaxAttempts
}
