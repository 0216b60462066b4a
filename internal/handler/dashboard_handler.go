package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/service"
)

// DashboardHandler serves the per-role dashboard summaries
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates the dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Admin returns platform-wide totals
func (h *DashboardHandler) Admin(c *gin.Context) {
	dashboard, err := h.dashboardService.Admin()
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"dashboard": dashboard})
}

// Educator returns totals for the calling educator's content
func (h *DashboardHandler) Educator(c *gin.Context) {
	dashboard, err := h.dashboardService.Educator(actorFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"dashboard": dashboard})
}

// Student returns the calling student's progress
func (h *DashboardHandler) Student(c *gin.Context) {
	dashboard, err := h.dashboardService.Student(actorFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"dashboard": dashboard})
}
