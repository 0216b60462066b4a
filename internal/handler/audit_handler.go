package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/domain/repository"
	"github.com/yourusername/lms-api/internal/service"
)

// AuditHandler serves the admin audit trail
type AuditHandler struct {
	auditService *service.AuditService
}

// NewAuditHandler creates the audit log handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// auditFilter reads userId, action, entityType, from and to from the query.
func auditFilter(c *gin.Context) (repository.AuditLogFilter, error) {
	userID, err := queryUint(c, "userId")
	if err != nil {
		return repository.AuditLogFilter{}, err
	}
	from, to, err := service.DateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return repository.AuditLogFilter{}, err
	}
	return repository.AuditLogFilter{
		UserID:     userID,
		Action:     c.Query("action"),
		EntityType: c.Query("entityType"),
		From:       from,
		To:         to,
	}, nil
}

// ListLogs returns a page of audit logs, newest first.
func (h *AuditHandler) ListLogs(c *gin.Context) {
	filter, err := auditFilter(c)
	if err != nil {
		handleError(c, err)
		return
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)
	result, err := h.auditService.List(filter, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"logs":      result.Logs,
		"total":     result.Total,
		"page":      result.Page,
		"page_size": result.PageSize,
	})
}

// ExportLogs downloads every audit log matching the filter.
func (h *AuditHandler) ExportLogs(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	filter, err := auditFilter(c)
	if err != nil {
		handleError(c, err)
		return
	}

	logs, err := h.auditService.All(filter)
	if err != nil {
		handleError(c, err)
		return
	}
	sendExport(c, "audit-logs", format, service.AuditLogTable(logs))
}
