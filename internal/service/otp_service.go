package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/pkg/auth"
)

// PurposeTokenIssuer issues single-purpose tokens such as password reset tokens.
type PurposeTokenIssuer interface {
	GeneratePurposeToken(userID uint, email, usage string) (string, error)
}

// OTPService issues and verifies emailed one-time codes for password reset.
type OTPService struct {
	userRepo       repository.UserRepository
	otpRepo        repository.OTPRepository
	emailService   EmailService
	tokenIssuer    PurposeTokenIssuer
	codeTTL        time.Duration
	resendCooldown time.Duration
	maxAttempts    int
	codePepper     string
	now            func() time.Time
}

// NewOTPService creates the one-time code service; unset limits get defaults.
func NewOTPService(
	userRepo repository.UserRepository,
	otpRepo repository.OTPRepository,
	emailService EmailService,
	tokenIssuer PurposeTokenIssuer,
	codeTTL time.Duration,
	resendCooldown time.Duration,
	maxAttempts int,
	codePepper string,
) (*OTPService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if otpRepo == nil {
		return nil, fmt.Errorf("otp repository is required")
	}
	if emailService == nil {
		return nil, fmt.Errorf("email service is required")
	}
	if tokenIssuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	// Defaults
	if codeTTL <= 0 {
		codeTTL = 10 * time.Minute
	}
	if resendCooldown <= 0 {
		resendCooldown = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	return &OTPService{
		userRepo:       userRepo,
		otpRepo:        otpRepo,
		emailService:   emailService,
		tokenIssuer:    tokenIssuer,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
		maxAttempts:    maxAttempts,
		codePepper:     codePepper,
		now:            time.Now,
	}, nil
}

// SendCode emails a password reset code. Unknown and deactivated accounts get
// the same nil result as known ones so callers cannot enumerate accounts.
func (s *OTPService) SendCode(ctx context.Context, email string) error {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[OTPService] reset code requested for unknown email, skipping")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		log.Printf("[OTPService] reset code requested for inactive user ID=%d, skipping", user.ID)
		return nil
	}

	// Resend cooldown
	now := s.now()
	latest, err := s.otpRepo.GetLatestActive(user.ID, entity.OTPPurposePasswordReset)
	if err == nil && latest != nil {
		if now.Before(latest.LastSentAt.Add(s.resendCooldown)) {
			return fmt.Errorf("%w: %w: please wait before requesting a new code", ErrOTPResendCooldown, apperrors.ErrTooManyRequests)
		}
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("failed to check previous codes: %w", err)
	}

	// Only the salted hash is stored
	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	salt, err := generateOTPSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	record := &entity.OTP{
		UserID:       user.ID,
		Email:        user.Email,
		CodeHash:     hashOTPCode(code, salt, s.codePepper),
		CodeSalt:     salt,
		Purpose:      entity.OTPPurposePasswordReset,
		ExpiresAt:    now.Add(s.codeTTL),
		AttemptCount: 0,
		MaxAttempts:  s.maxAttempts,
		LastSentAt:   now,
	}
	if err := s.otpRepo.Create(record); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	// One key per code so a retried send is not delivered twice
	idempotencyKey := fmt.Sprintf("password-reset:%d:%d", user.ID, record.ID)
	if err := s.emailService.SendPasswordResetCode(ctx, user.Email, user.Name, code, idempotencyKey); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	log.Printf("[OTPService] password reset code sent to user ID=%d", user.ID)
	return nil
}

// VerifyCode checks the latest code for email and, on success, consumes it
// and returns a short-lived password reset token.
func (s *OTPService) VerifyCode(ctx context.Context, email, code string) (string, error) {
	email = entity.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", fmt.Errorf("%w: email and code are required", apperrors.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrInvalidOTP
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	// Only the newest code counts
	record, err := s.otpRepo.GetLatestActive(user.ID, entity.OTPPurposePasswordReset)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", ErrInvalidOTP
		}
		return "", err
	}

	// Fast rejections from the loaded record
	if record.IsConsumed() {
		return "", ErrInvalidOTP
	}
	if record.IsExpired(s.now()) {
		return "", ErrOTPExpired
	}
	if record.AttemptsExhausted() {
		return "", ErrOTPAttemptsExceeded
	}

	// Constant-time comparison
	expectedHash := hashOTPCode(code, record.CodeSalt, s.codePepper)
	if subtle.ConstantTimeCompare([]byte(expectedHash), []byte(record.CodeHash)) != 1 {
		// The counter is checked again in the database, the record may be stale
		counted, err := s.otpRepo.IncrementAttempts(record.ID)
		if err != nil {
			log.Printf("[OTPService] failed to count attempt on code ID=%d: %v", record.ID, err)
			return "", ErrInvalidOTP
		}
		if !counted || record.AttemptCount+1 >= record.MaxAttempts {
			return "", ErrOTPAttemptsExceeded
		}
		return "", ErrInvalidOTP
	}

	// Only one of several concurrent verifications of the same code wins
	consumed, err := s.otpRepo.Consume(record.ID, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to consume code: %w", err)
	}
	if !consumed {
		log.Printf("[OTPService] code ID=%d was consumed by another request", record.ID)
		return "", ErrInvalidOTP
	}

	// Exchange the code for a reset token
	resetToken, err := s.tokenIssuer.GeneratePurposeToken(user.ID, user.Email, auth.UsagePasswordReset)
	if err != nil {
		return "", fmt.Errorf("failed to issue reset token: %w", err)
	}
	return resetToken, nil
}

// PurgeCodes drops every outstanding password reset code of the user.
func (s *OTPService) PurgeCodes(userID uint) error {
	if err := s.otpRepo.DeleteByUser(userID, entity.OTPPurposePasswordReset); err != nil {
		return fmt.Errorf("failed to purge reset codes: %w", err)
	}
	return nil
}

// Cleanup removes codes that expired or were consumed before cutoff.
func (s *OTPService) Cleanup(cutoff time.Time) (int64, error) {
	return s.otpRepo.CleanupExpired(cutoff)
}

// generateOTPCode returns a uniformly random 6-digit code.
func generateOTPCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// generateOTPSalt returns 16 random bytes, hex encoded.
func generateOTPSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashOTPCode hashes the code with its per-record salt and the server pepper.
func hashOTPCode(code, salt, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + ":" + salt + ":" + code))
	return hex.EncodeToString(sum[:])
}
