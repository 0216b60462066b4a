package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/pkg/auth"
	"github.com/yourusername/lms-api/pkg/auth/manager"
)

// Gin context keys set by RequireAuth
const (
	ContextUserID     = "user_id"
	ContextEmail      = "email"
	ContextRole       = "role"
	ContextCSRFSecret = "csrf_secret"
	// ContextCookieAuth is true when the access token came from the cookie
	ContextCookieAuth = "cookie_auth"
)

// AuthMiddleware authenticates requests and enforces roles, CSRF and the idle timeout.
type AuthMiddleware struct {
	jwtService   *auth.JWTService
	tokenManager *manager.TokenManager
	sessions     *service.SessionService
}

// NewAuthMiddleware creates the middleware. sessions may be nil to disable the idle timeout.
func NewAuthMiddleware(jwtService *auth.JWTService, tokenManager *manager.TokenManager, sessions *service.SessionService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:   jwtService,
		tokenManager: tokenManager,
		sessions:     sessions,
	}
}

// abortJSON stops the chain with the standard error body.
func abortJSON(c *gin.Context, status int, message, errorType string) {
	c.AbortWithStatusJSON(status, gin.H{"status": status, "error": message, "error_type": errorType})
}

// RequireAuth accepts the access token from the cookie or an Authorization: Bearer header.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the token from the cookie or header
		token, fromCookie, ok := m.extractToken(c)
		if !ok {
			return
		}

		// Validate it
		claims, err := m.jwtService.ParseToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortJSON(c, http.StatusUnauthorized, "Access token has expired", "token_expired")
				return
			}
			abortJSON(c, http.StatusUnauthorized, "Invalid or expired token", "token_invalid")
			return
		}

		// Expose the claims to handlers
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextCSRFSecret, claims.CSRFSecret)
		c.Set(ContextCookieAuth, fromCookie)
		c.Next()
	}
}

// extractToken prefers the cookie and falls back to the Bearer header.
// It aborts the request when neither is usable.
func (m *AuthMiddleware) extractToken(c *gin.Context) (string, bool, bool) {
	if m.tokenManager != nil {
		if token, err := m.tokenManager.GetAccessTokenFromCookie(c.Request); err == nil && token != "" {
			return token, true, true
		}
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		abortJSON(c, http.StatusUnauthorized, "Authentication required", "token_missing")
		return "", false, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		abortJSON(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}", "token_format")
		return "", false, false
	}
	return parts[1], false, true
}

// RequireRole lets only the listed roles through. Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		log.Printf("[AuthMiddleware] role %q denied for %s %s (user ID=%d)",
			role, c.Request.Method, c.FullPath(), c.GetUint(ContextUserID))
		abortJSON(c, http.StatusForbidden, "You do not have permission to perform this action", "forbidden")
	}
}

// RequireCSRF applies the double-submit check to unsafe methods of
// cookie-authenticated requests: the X-CSRF-Token header must equal the hash
// of the secret held in both the CSRF cookie and the access token.
// Bearer-authenticated requests are not exposed to CSRF and skip the check.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			c.Next()
			return
		}
		if !c.GetBool(ContextCookieAuth) {
			c.Next()
			return
		}

		// Header token
		header := c.GetHeader(manager.CSRFHeader)
		if header == "" {
			abortJSON(c, http.StatusForbidden, "CSRF token missing from header", "csrf_token_missing")
			return
		}

		// Cookie secret
		cookieSecret, err := m.tokenManager.GetCSRFSecretFromCookie(c.Request)
		if err != nil || cookieSecret == "" {
			abortJSON(c, http.StatusForbidden, "CSRF secret cookie missing or invalid", "csrf_secret_cookie_invalid")
			return
		}

		// The cookie must belong to this access token
		tokenSecret := c.GetString(ContextCSRFSecret)
		if tokenSecret == "" || tokenSecret != cookieSecret {
			log.Printf("[CSRF] secret mismatch for user ID=%d, path %s", c.GetUint(ContextUserID), c.Request.URL.Path)
			abortJSON(c, http.StatusForbidden, "CSRF secret mismatch", "csrf_secret_mismatch")
			return
		}

		// And the header must be its hash
		if header != manager.HashCSRFSecret(cookieSecret) {
			log.Printf("[CSRF] invalid token for user ID=%d", c.GetUint(ContextUserID))
			abortJSON(c, http.StatusForbidden, "Invalid CSRF token", "csrf_token_invalid")
			return
		}
		c.Next()
	}
}

// EnforceIdleTimeout logs the user out after a period of inactivity and
// records activity otherwise. Must run after RequireAuth.
func (m *AuthMiddleware) EnforceIdleTimeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.sessions == nil {
			c.Next()
			return
		}
		userID := c.GetUint(ContextUserID)
		if err := m.sessions.Enforce(c.Request.Context(), userID); err != nil {
			if errors.Is(err, service.ErrSessionIdleTimeout) {
				if m.tokenManager != nil {
					m.tokenManager.ClearAuthCookies(c.Writer)
				}
				abortJSON(c, http.StatusUnauthorized, "Session ended after inactivity, please log in again", "session_idle_timeout")
				return
			}
			log.Printf("[AuthMiddleware] idle check failed for user ID=%d: %v", userID, err)
		}
		c.Next()
	}
}
