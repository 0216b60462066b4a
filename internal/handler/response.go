package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/pkg/auth/manager"
)

// respond writes payload with the HTTP status mirrored in the body.
func respond(c *gin.Context, status int, payload gin.H) {
	if payload == nil {
		payload = gin.H{}
	}
	payload["status"] = status
	c.JSON(status, payload)
}

// respondError writes the error envelope: status, message and a stable error_type.
func respondError(c *gin.Context, status int, message, errorType string) {
	c.JSON(status, gin.H{"status": status, "error": message, "error_type": errorType})
}

// respondBindError reports a request body or query that failed binding.
func respondBindError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "Invalid request data: "+err.Error(), "validation_error")
}

// serviceErrors maps errors that carry their own error_type to a status and message.
var serviceErrors = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{service.ErrInactiveUser, http.StatusForbidden, "Account is deactivated"},
	{service.ErrSessionIdleTimeout, http.StatusUnauthorized, "Session ended after inactivity, please log in again"},
	{service.ErrInvalidOTP, http.StatusBadRequest, "Invalid verification code"},
	{service.ErrOTPExpired, http.StatusBadRequest, "Verification code has expired"},
	{service.ErrOTPAttemptsExceeded, http.StatusBadRequest, "Too many attempts, request a new code"},
	{service.ErrOTPResendCooldown, http.StatusTooManyRequests, "Please wait before requesting another code"},
	{service.ErrInvalidResetToken, http.StatusUnauthorized, "Reset link is invalid or has expired"},
	{service.ErrSelfDelete, http.StatusBadRequest, "You cannot delete your own account"},
	{service.ErrUnknownQuestion, http.StatusBadRequest, "Submission references an unknown question"},
	{service.ErrEmptySubmission, http.StatusBadRequest, "Submission has no answers"},
	{service.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "File type is not allowed"},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File is too large"},
}

// handleError converts service and repository errors into JSON responses.
func handleError(c *gin.Context, err error) {
	// Token manager errors carry their own type
	var tokenErr *manager.TokenError
	if errors.As(err, &tokenErr) {
		handleTokenError(c, tokenErr)
		return
	}

	// Flow-specific errors before the generic sentinels
	for _, se := range serviceErrors {
		if errors.Is(err, se.err) {
			respondError(c, se.status, se.message, se.err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, "Requested resource not found", "not_found")
	case errors.Is(err, apperrors.ErrValidation):
		respondError(c, http.StatusBadRequest, detail(err, apperrors.ErrValidation, "Validation failed"), "validation_error")
	case errors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, detail(err, apperrors.ErrConflict, "Resource already exists"), "conflict")
	case errors.Is(err, apperrors.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "Authentication required", "unauthorized")
	case errors.Is(err, apperrors.ErrForbidden):
		respondError(c, http.StatusForbidden, detail(err, apperrors.ErrForbidden, "Access denied"), "forbidden")
	case errors.Is(err, apperrors.ErrExpiredToken):
		respondError(c, http.StatusUnauthorized, "Token has expired", "token_expired")
	case errors.Is(err, apperrors.ErrTooManyRequests):
		respondError(c, http.StatusTooManyRequests, "Too many requests", "rate_limited")
	default:
		// Unexpected errors are logged and never echoed
		log.Printf("[Handler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, "Internal server error", "internal_server_error")
	}
}

// handleTokenError maps token manager failures to auth responses.
func handleTokenError(c *gin.Context, tokenErr *manager.TokenError) {
	log.Printf("[Handler] token error: %v", tokenErr)
	switch tokenErr.Type {
	case manager.ExpiredRefreshToken, manager.ExpiredAccessToken:
		respondError(c, http.StatusUnauthorized, "Session has expired", "token_expired")
	case manager.InvalidRefreshToken, manager.InvalidAccessToken:
		respondError(c, http.StatusUnauthorized, "Invalid token", "token_invalid")
	case manager.InvalidCSRFToken:
		respondError(c, http.StatusForbidden, "Invalid CSRF token", "csrf_mismatch")
	// Same answer as a wrong password
	case manager.UserNotFound:
		respondError(c, http.StatusUnauthorized, "Invalid email or password", "invalid_credentials")
	case manager.InactiveUser:
		respondError(c, http.StatusForbidden, "Account is deactivated", "inactive_user")
	case manager.TokenGenerationFailed:
		respondError(c, http.StatusInternalServerError, "Failed to process request", "token_generation_failed")
	default:
		respondError(c, http.StatusInternalServerError, "Internal server error", "internal_server_error")
	}
}

// detail returns the text a service appended to sentinel, or fallback.
func detail(err, sentinel error, fallback string) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == err.Error() || msg == "" {
		return fallback
	}
	return msg
}
