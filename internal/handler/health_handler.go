package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck is one named dependency check
type HealthCheck struct {
	Name  string
	Check func() error
}

// HealthHandler reports whether the service and its dependencies are reachable
type HealthHandler struct {
	checks []HealthCheck
}

// NewHealthHandler creates a health handler over the given checks
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Healthz answers 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	results := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(); err != nil {
			log.Printf("[Health] %s check failed: %v", check.Name, err)
			results[check.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "up"
	}
	respond(c, status, gin.H{"checks": results})
}
