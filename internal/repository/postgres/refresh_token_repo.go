package postgres

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// RefreshTokenRepo implements repository.RefreshTokenRepository on PostgreSQL
type RefreshTokenRepo struct {
	db *gorm.DB
}

// NewRefreshTokenRepo creates a refresh token repository
func NewRefreshTokenRepo(gormDB *gorm.DB) (*RefreshTokenRepo, error) {
	if gormDB == nil {
		return nil, fmt.Errorf("GORM DB instance is required for RefreshTokenRepo")
	}
	return &RefreshTokenRepo{db: gormDB}, nil
}

// hashToken returns the hex SHA-256 of a raw refresh token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateToken stores the session; TokenHash must carry the raw token and is hashed here.
func (r *RefreshTokenRepo) CreateToken(token *entity.RefreshToken) (uint, error) {
	// Only the hash is stored
	token.TokenHash = hashToken(token.TokenHash)
	if err := r.db.Create(token).Error; err != nil {
		return 0, fmt.Errorf("create refresh token: %w", err)
	}
	return token.ID, nil
}

// GetTokenByValue finds a session by raw token value.
func (r *RefreshTokenRepo) GetTokenByValue(tokenValue string) (*entity.RefreshToken, error) {
	var token entity.RefreshToken
	err := r.db.Where("token_hash = ?", hashToken(tokenValue)).First(&token).Error
	if err != nil {
		return nil, translateError(err, "refresh token")
	}
	// Revoked or past expiry
	if !token.IsValid() {
		return nil, apperrors.ErrExpiredToken
	}
	return &token, nil
}

// MarkTokenAsExpired revokes a single refresh token
func (r *RefreshTokenRepo) MarkTokenAsExpired(tokenValue string) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("token_hash = ?", hashToken(tokenValue)).
		Updates(map[string]interface{}{
			"is_expired": true,
			"revoked_at": time.Now(),
			"reason":     "revoked",
		})
	if result.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkAllAsExpiredForUser revokes every refresh token of a user
func (r *RefreshTokenRepo) MarkAllAsExpiredForUser(userID uint) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND is_expired = ?", userID, false).
		Updates(map[string]interface{}{
			"is_expired": true,
			"revoked_at": time.Now(),
			"reason":     "revoked_all",
		})
	if result.Error != nil {
		return fmt.Errorf("revoke refresh tokens of user %d: %w", userID, result.Error)
	}
	return nil
}

// CleanupExpiredTokens deletes sessions that are past expiry or revoked.
func (r *RefreshTokenRepo) CleanupExpiredTokens() (int64, error) {
	result := r.db.Where("expires_at <= ? OR is_expired = ?", time.Now(), true).Delete(&entity.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountTokensForUser counts the user's live refresh tokens
func (r *RefreshTokenRepo) CountTokensForUser(userID uint) (int, error) {
	var count int64
	err := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND is_expired = ? AND expires_at > ?", userID, false, time.Now()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count refresh tokens of user %d: %w", userID, err)
	}
	return int(count), nil
}

// MarkOldestAsExpiredForUser revokes active sessions beyond the newest keepCount.
func (r *RefreshTokenRepo) MarkOldestAsExpiredForUser(userID uint, keepCount int) error {
	// Everything after the newest keepCount active sessions
	var ids []uint
	err := r.db.Model(&entity.RefreshToken{}).
		Select("id").
		Where("user_id = ? AND is_expired = ? AND expires_at > ?", userID, false, time.Now()).
		Order("created_at DESC").
		Offset(keepCount).
		Find(&ids).Error
	if err != nil {
		return fmt.Errorf("find old refresh tokens of user %d: %w", userID, err)
	}
	if len(ids) == 0 {
		return nil
	}

	// Revoke them in one statement
	err = r.db.Model(&entity.RefreshToken{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"is_expired": true,
			"revoked_at": time.Now(),
			"reason":     "session_limit",
		}).Error
	if err != nil {
		return fmt.Errorf("revoke old refresh tokens of user %d: %w", userID, err)
	}

	log.Printf("[RefreshTokenRepo] revoked %d old sessions for user %d", len(ids), userID)
	return nil
}
