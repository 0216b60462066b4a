package entity

import (
	"time"
)

// InvalidToken marks every token of a user issued before InvalidationTime as revoked.
type InvalidToken struct {
	UserID           uint      `gorm:"primaryKey" json:"user_id"`
	InvalidationTime time.Time `gorm:"not null" json:"invalidation_time"`
}

// TableName defines the table name for GORM
func (InvalidToken) TableName() string {
	return "invalid_tokens"
}

// IsTokenInvalidAt reports whether a token issued at issuedAt predates the invalidation.
func (it *InvalidToken) IsTokenInvalidAt(issuedAt time.Time) bool {
	return issuedAt.Before(it.InvalidationTime)
}
