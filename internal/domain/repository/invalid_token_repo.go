package repository

import (
	"context"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// InvalidTokenRepository persists per-user token invalidation times.
type InvalidTokenRepository interface {
	// AddInvalidToken upserts the invalidation time for a user
	AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error

	// IsTokenInvalid reports whether a token issued at tokenIssuedAt was invalidated
	IsTokenInvalid(ctx context.Context, userID uint, tokenIssuedAt time.Time) (bool, error)

	// GetAllInvalidTokens returns every invalidation record
	GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error)

	// CleanupOldInvalidTokens removes records older than cutoffTime
	CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error
}
