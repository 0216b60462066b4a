package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/handler/dto"
	"github.com/yourusername/lms-api/internal/middleware"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/pkg/auth/manager"
)

// AuthHandler serves login, session and password reset endpoints
type AuthHandler struct {
	authService  *service.AuthService
	otpService   *service.OTPService
	tokenManager *manager.TokenManager
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(authService *service.AuthService, otpService *service.OTPService, tokenManager *manager.TokenManager) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		otpService:   otpService,
		tokenManager: tokenManager,
	}
}

// Login checks credentials, sets the auth cookies and returns the access token
// for clients that use the Authorization header.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// The user agent stands in for a missing device ID
	userAgent := c.Request.UserAgent()
	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = userAgent
	}

	user, tokens, err := h.authService.LoginUser(req.Email, req.Password, deviceID, c.ClientIP(), userAgent)
	if err != nil {
		handleError(c, err)
		return
	}

	// Cookies for browsers, the body for header-based clients
	h.tokenManager.SetAuthCookies(c.Writer, tokens)
	respond(c, http.StatusOK, gin.H{
		"user":        user,
		"accessToken": tokens.AccessToken,
		"csrfToken":   tokens.CSRFToken,
		"expiresIn":   tokens.ExpiresIn,
		"tokenType":   tokens.TokenType,
	})
}

// Refresh rotates the refresh token held in the cookie. The X-CSRF-Token
// header must carry the hash of the CSRF secret cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := h.tokenManager.GetRefreshTokenFromCookie(c.Request)
	if err != nil {
		handleError(c, err)
		return
	}

	// Double-submit CSRF check
	csrfHeader := c.GetHeader(manager.CSRFHeader)
	if csrfHeader == "" {
		handleError(c, manager.NewTokenError(manager.InvalidCSRFToken, "CSRF token missing from header", nil))
		return
	}
	csrfSecret, err := h.tokenManager.GetCSRFSecretFromCookie(c.Request)
	if err != nil {
		handleError(c, err)
		return
	}
	if csrfHeader != manager.HashCSRFSecret(csrfSecret) {
		log.Printf("[AuthHandler] refresh rejected: CSRF hash mismatch from %s", c.ClientIP())
		handleError(c, manager.NewTokenError(manager.InvalidCSRFToken, "Invalid CSRF token", nil))
		return
	}

	// Rotate; a rejected token also clears the cookies
	userAgent := c.Request.UserAgent()
	tokens, err := h.authService.RefreshTokens(c.Request.Context(), refreshToken, userAgent, c.ClientIP(), userAgent)
	if err != nil {
		h.tokenManager.ClearAuthCookies(c.Writer)
		handleError(c, err)
		return
	}

	h.tokenManager.SetAuthCookies(c.Writer, tokens)
	respond(c, http.StatusOK, gin.H{
		"accessToken": tokens.AccessToken,
		"csrfToken":   tokens.CSRFToken,
		"expiresIn":   tokens.ExpiresIn,
		"tokenType":   tokens.TokenType,
	})
}

// Logout revokes the refresh token from the cookie, if any, and clears the cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	// Logout succeeds even without a refresh cookie
	refreshToken, _ := h.tokenManager.GetRefreshTokenFromCookie(c.Request)
	if err := h.authService.LogoutUser(actorFrom(c), refreshToken); err != nil {
		log.Printf("[AuthHandler] logout of user ID=%d could not revoke the refresh token: %v", c.GetUint(middleware.ContextUserID), err)
	}
	h.tokenManager.ClearAuthCookies(c.Writer)
	respond(c, http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// Me returns the current user with its role profile.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUserByID(c.GetUint(middleware.ContextUserID))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}

// ChangePassword replaces the password and ends every session of the user.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), actorFrom(c), req.CurrentPassword, req.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	// Every session was revoked, including this one
	h.tokenManager.ClearAuthCookies(c.Writer)
	respond(c, http.StatusOK, gin.H{"message": "Password changed, please log in again"})
}

// SendOTP emails a reset code. The answer is the same whether or not the
// email belongs to an account.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.otpService.SendCode(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "If the email is registered, a verification code has been sent"})
}

// VerifyOTP exchanges a valid code for a short-lived reset token.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resetToken, err := h.otpService.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"reset_token": resetToken})
}

// ResetPassword sets a new password using a reset token from VerifyOTP.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.ResetToken, req.NewPassword, c.ClientIP()); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Password has been reset, please log in"})
}
