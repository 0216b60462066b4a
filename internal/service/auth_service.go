package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/pkg/auth"
	"github.com/yourusername/lms-api/pkg/auth/manager"
)

const minPasswordLength = 8

// ResetCodePurger drops the outstanding reset codes of a user.
type ResetCodePurger interface {
	PurgeCodes(userID uint) error
}

// AuthService handles login, token rotation, logout and password changes.
type AuthService struct {
	userRepo     repository.UserRepository
	jwtService   *auth.JWTService
	tokenManager *manager.TokenManager
	sessions     *SessionService
	audit        *AuditService
	codePurger   ResetCodePurger
}

// NewAuthService creates the auth service and returns an error when a required dependency is missing.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	tokenManager *manager.TokenManager,
	sessions *SessionService,
	audit *AuditService,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	if tokenManager == nil {
		return nil, fmt.Errorf("TokenManager is required for AuthService")
	}
	if sessions == nil {
		return nil, fmt.Errorf("SessionService is required for AuthService")
	}

	return &AuthService{
		userRepo:     userRepo,
		jwtService:   jwtService,
		tokenManager: tokenManager,
		sessions:     sessions,
		audit:        audit,
	}, nil
}

// SetResetCodePurger makes ResetPassword discard the user's other reset codes.
func (s *AuthService) SetResetCodePurger(purger ResetCodePurger) {
	s.codePurger = purger
}

// AuthenticateUser checks credentials and returns the user.
func (s *AuthService) AuthenticateUser(email, password string) (*entity.User, error) {
	email = entity.NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[AuthService] login attempt for unknown email %s", email)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Unknown email and wrong password answer the same
	if !user.CheckPassword(password) {
		log.Printf("[AuthService] wrong password for user ID=%d", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// LoginUser authenticates the user, issues a token pair and starts idle tracking.
func (s *AuthService) LoginUser(email, password, deviceID, ipAddress, userAgent string) (*entity.User, *manager.TokenResponse, error) {
	user, err := s.AuthenticateUser(email, password)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		log.Printf("[AuthService] login refused for deactivated user ID=%d", user.ID)
		return nil, nil, ErrInactiveUser
	}

	// Issue the access/refresh pair
	tokens, err := s.tokenManager.GenerateTokenPair(user.ID, deviceID, ipAddress, userAgent)
	if err != nil {
		log.Printf("[AuthService] failed to issue tokens for user ID=%d: %v", user.ID, err)
		return nil, nil, err
	}

	// Bookkeeping, never fails the login
	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		log.Printf("[AuthService] failed to update last login of user ID=%d: %v", user.ID, err)
	}
	s.sessions.Touch(user.ID)
	s.audit.Record(Actor{UserID: user.ID, Role: user.Role, IP: ipAddress}, entity.AuditLogin, entity.EntityUser, uintPtr(user.ID),
		map[string]interface{}{"user_agent": userAgent})

	log.Printf("[AuthService] user ID=%d (%s) logged in", user.ID, user.Email)
	return user, tokens, nil
}

// RefreshTokens rotates the refresh token into a new token pair. A session
// idle past the timeout cannot be revived by a refresh.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken, deviceID, ipAddress, userAgent string) (*manager.TokenResponse, error) {
	tokens, err := s.tokenManager.RefreshTokens(refreshToken, deviceID, ipAddress, userAgent)
	if err != nil {
		var tokenErr *manager.TokenError
		if errors.As(err, &tokenErr) {
			log.Printf("[AuthService] token refresh failed: %s - %s", tokenErr.Type, tokenErr.Message)
		} else {
			log.Printf("[AuthService] token refresh failed: %v", err)
		}
		return nil, err
	}
	// Idle sessions stay dead even with a valid refresh token
	if err := s.sessions.Enforce(ctx, tokens.UserID); err != nil {
		return nil, err
	}
	return tokens, nil
}

// LogoutUser revokes the refresh token and ends idle tracking.
func (s *AuthService) LogoutUser(actor Actor, refreshToken string) error {
	if refreshToken != "" {
		if err := s.tokenManager.RevokeRefreshToken(refreshToken); err != nil {
			// An unknown token is already logged out
			var tokenErr *manager.TokenError
			if !errors.As(err, &tokenErr) || tokenErr.Type != manager.InvalidRefreshToken {
				log.Printf("[AuthService] failed to revoke refresh token: %v", err)
				return err
			}
		}
	}
	if actor.UserID != 0 {
		s.sessions.Clear(actor.UserID)
		s.audit.Record(actor, entity.AuditLogout, entity.EntityUser, uintPtr(actor.UserID), nil)
	}
	return nil
}

// LogoutAllDevices revokes every session of the user.
func (s *AuthService) LogoutAllDevices(ctx context.Context, userID uint) error {
	if err := s.tokenManager.RevokeAllUserTokens(ctx, userID); err != nil {
		log.Printf("[AuthService] failed to revoke sessions of user ID=%d: %v", userID, err)
		return err
	}
	s.sessions.Clear(userID)
	return nil
}

// GetUserByID returns the user with its role profile. A token whose account
// has since been deleted is treated as unauthenticated.
func (s *AuthService) GetUserByID(userID uint) (*entity.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password, stores the new one and ends every session.
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return fmt.Errorf("%w: new password must differ from the current one", apperrors.ErrValidation)
	}

	// Re-check the current password
	user, err := s.GetUserByID(actor.UserID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(currentPassword) {
		return fmt.Errorf("%w: current password is incorrect", apperrors.ErrValidation)
	}

	if err := s.userRepo.UpdatePassword(user.ID, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.LogoutAllDevices(ctx, user.ID); err != nil {
		log.Printf("[AuthService] password of user ID=%d changed but sessions were not revoked: %v", user.ID, err)
	}

	s.audit.Record(actor, entity.AuditPasswordChange, entity.EntityUser, uintPtr(user.ID), nil)
	log.Printf("[AuthService] password changed for user ID=%d", user.ID)
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset token
// and ends every session of that user.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword, ipAddress string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	// The token must be a password reset token
	claims, err := s.jwtService.ParsePurposeToken(resetToken, auth.UsagePasswordReset)
	if err != nil {
		log.Printf("[AuthService] rejected reset token: %v", err)
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	// An email change since the code was sent voids the token
	if entity.NormalizeEmail(user.Email) != entity.NormalizeEmail(claims.Email) {
		return ErrInvalidResetToken
	}

	if err := s.userRepo.UpdatePassword(user.ID, newPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	// Codes sent before the reset must not open a second one
	if s.codePurger != nil {
		if err := s.codePurger.PurgeCodes(user.ID); err != nil {
			log.Printf("[AuthService] failed to purge reset codes of user ID=%d: %v", user.ID, err)
		}
	}
	// Also invalidates the reset token itself, since it was issued before now.
	if err := s.LogoutAllDevices(ctx, user.ID); err != nil {
		log.Printf("[AuthService] password of user ID=%d reset but sessions were not revoked: %v", user.ID, err)
	}

	s.audit.Record(Actor{UserID: user.ID, Role: user.Role, IP: ipAddress}, entity.AuditPasswordReset, entity.EntityUser, uintPtr(user.ID), nil)
	log.Printf("[AuthService] password reset for user ID=%d", user.ID)
	return nil
}

// validatePassword enforces the length bounds; bcrypt reads at most 72 bytes.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLength)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", apperrors.ErrValidation)
	}
	return nil
}
