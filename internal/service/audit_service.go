package service

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

const maxAuditPageSize = 200

// AuditService records and lists the action trail.
type AuditService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditService creates the audit service
func NewAuditService(auditRepo repository.AuditLogRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Record appends an audit row. Failures are logged and never returned.
func (s *AuditService) Record(actor Actor, action, entityType string, entityID *uint, details map[string]interface{}) {
	if s == nil || s.auditRepo == nil {
		return
	}

	entry := &entity.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  actor.IP,
	}
	if actor.UserID != 0 {
		entry.UserID = uintPtr(actor.UserID)
	}

	if err := s.auditRepo.Create(entry); err != nil {
		log.Printf("[AuditService] failed to record action=%s entity=%s user=%d: %v", action, entityType, actor.UserID, err)
	}
}

// AuditLogPage is one page of the audit trail, with the page actually served.
type AuditLogPage struct {
	Logs     []entity.AuditLog `json:"logs"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// List returns a page of audit logs and the total number of matches.
func (s *AuditService) List(filter repository.AuditLogFilter, page, pageSize int) (*AuditLogPage, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: 'to' must not be before 'from'", apperrors.ErrValidation)
	}
	page, pageSize = normalizePage(page, pageSize, maxAuditPageSize)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	logs, total, err := s.auditRepo.List(filter)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []entity.AuditLog{}
	}
	return &AuditLogPage{Logs: logs, Total: total, Page: page, PageSize: pageSize}, nil
}

// All returns every audit log matching filter, newest first.
func (s *AuditService) All(filter repository.AuditLogFilter) ([]entity.AuditLog, error) {
	filter.Limit = 0
	filter.Offset = 0
	logs, _, err := s.auditRepo.List(filter)
	return logs, err
}

// Latest returns the n newest audit logs.
func (s *AuditService) Latest(n int) ([]entity.AuditLog, error) {
	logs, _, err := s.auditRepo.List(repository.AuditLogFilter{Limit: n})
	return logs, err
}

// DateRange parses optional RFC3339 or YYYY-MM-DD bounds. A bare date for
// the upper bound covers the whole day.
func DateRange(from, to string) (*time.Time, *time.Time, error) {
	var fromT, toT *time.Time
	if from != "" {
		t, _, err := parseDate(from)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid 'from' date", apperrors.ErrValidation)
		}
		fromT = &t
	}
	if to != "" {
		t, dateOnly, err := parseDate(to)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid 'to' date", apperrors.ErrValidation)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		toT = &t
	}
	return fromT, toT, nil
}

// parseDate accepts RFC 3339 or YYYY-MM-DD; dateOnly is true for the latter.
func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse("2006-01-02", s)
	return t, true, err
}
