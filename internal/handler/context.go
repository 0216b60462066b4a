package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/middleware"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service"
)

// actorFrom builds the caller identity set by the auth middleware.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{IP: c.ClientIP()}
	if v, ok := c.Get(middleware.ContextUserID); ok {
		actor.UserID, _ = v.(uint)
	}
	if v, ok := c.Get(middleware.ContextRole); ok {
		actor.Role, _ = v.(string)
	}
	return actor
}

// queryUint parses an optional unsigned id from the query string.
func queryUint(c *gin.Context, name string) (*uint, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	// Positive, at most 32 bits
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		return nil, fmt.Errorf("%w: invalid %s", apperrors.ErrValidation, name)
	}
	id := uint(v)
	return &id, nil
}

// requiredQueryUint parses a mandatory unsigned id from the query string.
func requiredQueryUint(c *gin.Context, name string) (uint, error) {
	id, err := queryUint(c, name)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, fmt.Errorf("%w: %s is required", apperrors.ErrValidation, name)
	}
	return *id, nil
}

// queryInt parses an integer query parameter, falling back when absent or malformed.
func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}
