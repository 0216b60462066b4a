package postgres

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// InvalidTokenRepo implements repository.InvalidTokenRepository
type InvalidTokenRepo struct {
	db *gorm.DB
}

// NewInvalidTokenRepo creates the token invalidation repository
func NewInvalidTokenRepo(db *gorm.DB) *InvalidTokenRepo {
	return &InvalidTokenRepo{db: db}
}

// AddInvalidToken upserts the invalidation time for the user. A later time always wins.
func (r *InvalidTokenRepo) AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error {
	record := entity.InvalidToken{UserID: userID, InvalidationTime: invalidationTime}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Set{{
			Column: clause.Column{Name: "invalidation_time"},
			Value:  gorm.Expr("GREATEST(invalid_tokens.invalidation_time, EXCLUDED.invalidation_time)"),
		}},
	}).Create(&record).Error
	if err != nil {
		log.Printf("[InvalidTokenRepo] failed to upsert invalidation for user ID=%d: %v", userID, err)
		return err
	}
	return nil
}

// IsTokenInvalid reports whether tokens issued at tokenIssuedAt were invalidated for the user.
func (r *InvalidTokenRepo) IsTokenInvalid(ctx context.Context, userID uint, tokenIssuedAt time.Time) (bool, error) {
	var invalidToken entity.InvalidToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&invalidToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return invalidToken.IsTokenInvalidAt(tokenIssuedAt), nil
}

// GetAllInvalidTokens loads every invalidation record
func (r *InvalidTokenRepo) GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error) {
	var tokens []entity.InvalidToken
	if err := r.db.WithContext(ctx).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// CleanupOldInvalidTokens deletes records older than cutoffTime
func (r *InvalidTokenRepo) CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error {
	result := r.db.WithContext(ctx).Where("invalidation_time < ?", cutoffTime).Delete(&entity.InvalidToken{})
	if result.Error != nil {
		return result.Error
	}
	log.Printf("[InvalidTokenRepo] removed %d stale invalidation records", result.RowsAffected)
	return nil
}
