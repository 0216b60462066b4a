package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// RefreshTokenRepository stores refresh-token sessions. Raw token values are
// hashed by the implementation and never persisted.
type RefreshTokenRepository interface {
	// CreateToken stores the session and returns its ID
	CreateToken(refreshToken *entity.RefreshToken) (uint, error)

	// GetTokenByValue finds an active session by raw token value
	GetTokenByValue(token string) (*entity.RefreshToken, error)

	// MarkTokenAsExpired revokes the session with the given raw token value
	MarkTokenAsExpired(token string) error

	// MarkAllAsExpiredForUser revokes every session of the user
	MarkAllAsExpiredForUser(userID uint) error

	// CleanupExpiredTokens deletes expired and revoked sessions
	CleanupExpiredTokens() (int64, error)

	// CountTokensForUser counts active sessions of the user
	CountTokensForUser(userID uint) (int, error)

	// MarkOldestAsExpiredForUser revokes the oldest sessions, keeping the newest limit
	MarkOldestAsExpiredForUser(userID uint, limit int) error
}
