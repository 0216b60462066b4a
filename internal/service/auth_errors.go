package service

import "errors"

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInactiveUser        = errors.New("inactive_user")
	ErrSessionIdleTimeout  = errors.New("session_idle_timeout")
	ErrInvalidOTP          = errors.New("invalid_otp")
	ErrOTPExpired          = errors.New("otp_expired")
	ErrOTPAttemptsExceeded = errors.New("otp_attempts_exceeded")
	ErrOTPResendCooldown   = errors.New("otp_resend_cooldown")
	ErrInvalidResetToken   = errors.New("invalid_reset_token")
)
