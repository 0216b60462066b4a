package manager

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/pkg/auth"
)

const (
	// DefaultRefreshTokenLifetime is used when no lifetime is configured
	DefaultRefreshTokenLifetime = 30 * 24 * time.Hour
	// DefaultMaxRefreshTokensPerUser caps concurrent sessions per user
	DefaultMaxRefreshTokensPerUser = 10
	RefreshTokenCookie             = "refresh_token"
	AccessTokenCookie              = "access_token"
	// CSRFHeader carries the hashed CSRF secret on unsafe requests
	CSRFHeader = "X-CSRF-Token"
	// CSRFSecretCookie uses the __Host- prefix when cookies are Secure
	CSRFSecretCookie = "__Host-csrf-secret"
)

// TokenErrorType classifies token failures
type TokenErrorType string

const (
	TokenGenerationFailed TokenErrorType = "TOKEN_GENERATION_FAILED"
	InvalidRefreshToken   TokenErrorType = "INVALID_REFRESH_TOKEN"
	ExpiredRefreshToken   TokenErrorType = "EXPIRED_REFRESH_TOKEN"
	InvalidAccessToken    TokenErrorType = "INVALID_ACCESS_TOKEN"
	ExpiredAccessToken    TokenErrorType = "EXPIRED_ACCESS_TOKEN"
	InvalidCSRFToken      TokenErrorType = "INVALID_CSRF_TOKEN"
	UserNotFound          TokenErrorType = "USER_NOT_FOUND"
	InactiveUser          TokenErrorType = "INACTIVE_USER"
	DatabaseError         TokenErrorType = "DATABASE_ERROR"
)

// TokenError describes a token failure
type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

// Error implements error.
func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// NewTokenError wraps err as a TokenError of tokenType.
func NewTokenError(tokenType TokenErrorType, message string, err error) *TokenError {
	return &TokenError{Type: tokenType, Message: message, Err: err}
}

// TokenResponse is returned after login and refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
	CSRFToken    string `json:"csrfToken"`
	UserID       uint   `json:"userId"`
	RefreshToken string `json:"-"`
	CSRFSecret   string `json:"-"`
}

// UserGetter loads users for token issuance
type UserGetter interface {
	GetByID(id uint) (*entity.User, error)
}

// TokenManager issues, rotates and revokes token pairs and manages auth cookies
type TokenManager struct {
	jwtService              *auth.JWTService
	refreshTokenRepo        repository.RefreshTokenRepository
	userRepo                UserGetter
	refreshTokenExpiry      time.Duration
	maxRefreshTokensPerUser int
	cookiePath              string
	cookieDomain            string
	cookieSecure            bool
	cookieSameSite          http.SameSite
}

// NewTokenManager creates a token manager
func NewTokenManager(
	jwtService *auth.JWTService,
	refreshTokenRepo repository.RefreshTokenRepository,
	userRepo UserGetter,
) (*TokenManager, error) {
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for TokenManager")
	}
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for TokenManager")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for TokenManager")
	}

	return &TokenManager{
		jwtService:              jwtService,
		refreshTokenRepo:        refreshTokenRepo,
		userRepo:                userRepo,
		refreshTokenExpiry:      DefaultRefreshTokenLifetime,
		maxRefreshTokensPerUser: DefaultMaxRefreshTokensPerUser,
		cookiePath:              "/",
		cookieSecure:            true,
		cookieSameSite:          http.SameSiteStrictMode,
	}, nil
}

// SetRefreshTokenExpiry overrides the refresh token lifetime; non-positive values are ignored.
func (m *TokenManager) SetRefreshTokenExpiry(duration time.Duration) {
	if duration > 0 {
		m.refreshTokenExpiry = duration
	}
}

// SetMaxRefreshTokensPerUser overrides the per-user session cap; non-positive values are ignored.
func (m *TokenManager) SetMaxRefreshTokensPerUser(limit int) {
	if limit > 0 {
		m.maxRefreshTokensPerUser = limit
	}
}

// SetSecureCookies toggles the Secure attribute; disable only for plain-HTTP development.
func (m *TokenManager) SetSecureCookies(secure bool) {
	m.cookieSecure = secure
	if !secure {
		m.cookieSameSite = http.SameSiteLaxMode
	}
}

// GenerateTokenPair issues an access token, a CSRF secret and a refresh token for the user.
func (m *TokenManager) GenerateTokenPair(userID uint, deviceID, ipAddress, userAgent string) (*TokenResponse, error) {
	user, err := m.userRepo.GetByID(userID)
	if err != nil {
		return nil, NewTokenError(UserNotFound, "user not found", err)
	}
	if !user.IsActive {
		return nil, NewTokenError(InactiveUser, "account is deactivated", nil)
	}
	return m.issue(user, deviceID, ipAddress, userAgent)
}

// RefreshTokens rotates a refresh token into a new token pair.
func (m *TokenManager) RefreshTokens(refreshToken, deviceID, ipAddress, userAgent string) (*TokenResponse, error) {
	// Look up the presented token
	tokenEntity, err := m.refreshTokenRepo.GetTokenByValue(refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrExpiredToken) {
			return nil, NewTokenError(ExpiredRefreshToken, "refresh token expired or revoked", err)
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, NewTokenError(InvalidRefreshToken, "invalid refresh token", err)
		}
		log.Printf("[TokenManager] failed to look up refresh token: %v", err)
		return nil, NewTokenError(DatabaseError, "failed to check refresh token", err)
	}

	// The owner must still exist and be active
	user, err := m.userRepo.GetByID(tokenEntity.UserID)
	if err != nil {
		return nil, NewTokenError(UserNotFound, "user not found", err)
	}
	if !user.IsActive {
		return nil, NewTokenError(InactiveUser, "account is deactivated", nil)
	}

	// Rotate: the old token is single use
	if err := m.refreshTokenRepo.MarkTokenAsExpired(refreshToken); err != nil {
		log.Printf("[TokenManager] failed to revoke rotated refresh token ID=%d: %v", tokenEntity.ID, err)
	}

	return m.issue(user, deviceID, ipAddress, userAgent)
}

// issue creates a fresh CSRF secret, access token and refresh token for user.
func (m *TokenManager) issue(user *entity.User, deviceID, ipAddress, userAgent string) (*TokenResponse, error) {
	csrfSecret, err := generateRandomString(32)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate CSRF secret", err)
	}

	accessToken, err := m.jwtService.GenerateToken(user, csrfSecret)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate access token", err)
	}

	refreshToken, err := m.generateRefreshToken(user.ID, deviceID, ipAddress, userAgent)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to generate refresh token", err)
	}

	// Enforce the session cap after the new token exists
	if err := m.limitUserSessions(user.ID); err != nil {
		log.Printf("[TokenManager] failed to limit sessions of user ID=%d: %v", user.ID, err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(m.jwtService.AccessExpiry().Seconds()),
		CSRFToken:    HashCSRFSecret(csrfSecret),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		CSRFSecret:   csrfSecret,
	}, nil
}

// RevokeRefreshToken revokes a single refresh token.
func (m *TokenManager) RevokeRefreshToken(refreshToken string) error {
	if err := m.refreshTokenRepo.MarkTokenAsExpired(refreshToken); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return NewTokenError(InvalidRefreshToken, "token not found", err)
		}
		return NewTokenError(DatabaseError, "failed to revoke token", err)
	}
	return nil
}

// RevokeAllUserTokens revokes every refresh token and invalidates every access token of the user.
func (m *TokenManager) RevokeAllUserTokens(ctx context.Context, userID uint) error {
	refreshErr := m.refreshTokenRepo.MarkAllAsExpiredForUser(userID)
	if jwtErr := m.jwtService.InvalidateTokensForUser(ctx, userID); jwtErr != nil {
		log.Printf("[TokenManager] failed to invalidate access tokens of user ID=%d: %v", userID, jwtErr)
	}
	if refreshErr != nil {
		return NewTokenError(DatabaseError, "failed to revoke refresh tokens", refreshErr)
	}
	log.Printf("[TokenManager] revoked all tokens of user ID=%d", userID)
	return nil
}

// CleanupExpiredTokens deletes expired refresh tokens and stale invalidation records.
func (m *TokenManager) CleanupExpiredTokens(ctx context.Context) error {
	count, err := m.refreshTokenRepo.CleanupExpiredTokens()
	if jwtErr := m.jwtService.CleanupInvalidatedUsers(ctx, m.refreshTokenExpiry); jwtErr != nil {
		log.Printf("[TokenManager] failed to clean up invalidated users: %v", jwtErr)
	}
	if err != nil {
		return NewTokenError(DatabaseError, "failed to clean up expired tokens", err)
	}
	log.Printf("[TokenManager] cleaned up %d expired refresh tokens", count)
	return nil
}

// setCookie writes an HttpOnly SameSite=Strict cookie; maxAge < 0 deletes it.
func (m *TokenManager) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.cookiePath,
		Domain:   m.cookieDomain,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		MaxAge:   maxAge,
	})
}

// csrfCookieName drops the __Host- prefix when cookies are not Secure.
func (m *TokenManager) csrfCookieName() string {
	if !m.cookieSecure {
		return strings.TrimPrefix(CSRFSecretCookie, "__Host-")
	}
	return CSRFSecretCookie
}

// SetAuthCookies writes the access, refresh and CSRF secret cookies.
func (m *TokenManager) SetAuthCookies(w http.ResponseWriter, tokens *TokenResponse) {
	accessMaxAge := int(m.jwtService.AccessExpiry().Seconds())
	m.setCookie(w, AccessTokenCookie, tokens.AccessToken, accessMaxAge)
	m.setCookie(w, RefreshTokenCookie, tokens.RefreshToken, int(m.refreshTokenExpiry.Seconds()))
	m.setCookie(w, m.csrfCookieName(), tokens.CSRFSecret, accessMaxAge)
}

// ClearAuthCookies expires every auth cookie.
func (m *TokenManager) ClearAuthCookies(w http.ResponseWriter) {
	m.setCookie(w, AccessTokenCookie, "", -1)
	m.setCookie(w, RefreshTokenCookie, "", -1)
	m.setCookie(w, CSRFSecretCookie, "", -1)
	m.setCookie(w, strings.TrimPrefix(CSRFSecretCookie, "__Host-"), "", -1)
}

// GetRefreshTokenFromCookie reads the refresh token cookie.
func (m *TokenManager) GetRefreshTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil {
		return "", NewTokenError(InvalidRefreshToken, "refresh_token cookie not found", err)
	}
	return cookie.Value, nil
}

// GetAccessTokenFromCookie reads the access token cookie.
func (m *TokenManager) GetAccessTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil {
		return "", NewTokenError(InvalidAccessToken, "access_token cookie not found", err)
	}
	return cookie.Value, nil
}

// GetCSRFSecretFromCookie reads the CSRF secret with or without the __Host- prefix.
func (m *TokenManager) GetCSRFSecretFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CSRFSecretCookie)
	if err != nil {
		cookie, err = r.Cookie(strings.TrimPrefix(CSRFSecretCookie, "__Host-"))
		if err != nil {
			return "", NewTokenError(InvalidCSRFToken, "CSRF secret cookie not found", err)
		}
	}
	return cookie.Value, nil
}

// generateRefreshToken stores a new random refresh token and returns its value.
func (m *TokenManager) generateRefreshToken(userID uint, deviceID, ipAddress, userAgent string) (string, error) {
	tokenString, err := generateRandomString(64)
	if err != nil {
		return "", err
	}

	token := entity.NewRefreshToken(userID, tokenString, deviceID, ipAddress, userAgent, time.Now().Add(m.refreshTokenExpiry))
	if _, err := m.refreshTokenRepo.CreateToken(token); err != nil {
		return "", err
	}
	return tokenString, nil
}

// limitUserSessions revokes the oldest refresh tokens beyond maxRefreshTokensPerUser.
func (m *TokenManager) limitUserSessions(userID uint) error {
	count, err := m.refreshTokenRepo.CountTokensForUser(userID)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	if count > m.maxRefreshTokensPerUser {
		log.Printf("[TokenManager] session limit exceeded for user ID=%d (%d > %d), revoking oldest",
			userID, count, m.maxRefreshTokensPerUser)
		if err := m.refreshTokenRepo.MarkOldestAsExpiredForUser(userID, m.maxRefreshTokensPerUser); err != nil {
			return fmt.Errorf("revoke oldest sessions: %w", err)
		}
	}
	return nil
}

// generateRandomString returns length hex characters of crypto randomness.
func generateRandomString(length int) (string, error) {
	b := make([]byte, length/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashCSRFSecret returns the hex SHA-256 of secret; clients echo it in CSRFHeader.
func HashCSRFSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
