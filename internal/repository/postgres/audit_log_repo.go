package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
)

// AuditLogRepo implements repository.AuditLogRepository
type AuditLogRepo struct {
	db *gorm.DB
}

// NewAuditLogRepo creates the audit log repository
func NewAuditLogRepo(db *gorm.DB) *AuditLogRepo {
	return &AuditLogRepo{db: db}
}

// Create appends an audit entry
func (r *AuditLogRepo) Create(log *entity.AuditLog) error {
	return translateError(r.db.Omit("User").Create(log).Error, "audit log")
}

// List returns matching logs newest first together with the total match count.
func (r *AuditLogRepo) List(filter repository.AuditLogFilter) ([]entity.AuditLog, int64, error) {
	// Filters
	query := r.db.Model(&entity.AuditLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "audit logs")
	}

	// Limit 0 returns every match, used by exports
	q := query.Preload("User").Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	var logs []entity.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, 0, translateError(err, "audit logs")
	}
	return logs, total, nil
}
