package repository

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
)

// AuditLogFilter narrows audit log listings. Limit 0 returns every match.
type AuditLogFilter struct {
	UserID     *uint
	Action     string
	EntityType string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// AuditLogRepository defines append-only persistence for audit logs.
type AuditLogRepository interface {
	Create(log *entity.AuditLog) error
	List(filter AuditLogFilter) ([]entity.AuditLog, int64, error)
}
