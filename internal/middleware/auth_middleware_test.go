package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/pkg/auth"
	"github.com/yourusername/lms-api/pkg/auth/manager"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockInvalidTokenRepo struct {
	mock.Mock
}

func (m *mockInvalidTokenRepo) AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error {
	return m.Called(ctx, userID, invalidationTime).Error(0)
}

func (m *mockInvalidTokenRepo) IsTokenInvalid(ctx context.Context, userID uint, tokenIssuedAt time.Time) (bool, error) {
	args := m.Called(ctx, userID, tokenIssuedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockInvalidTokenRepo) GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.InvalidToken), args.Error(1)
}

func (m *mockInvalidTokenRepo) CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error {
	return m.Called(ctx, cutoffTime).Error(0)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Set(key string, value interface{}, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *mockCache) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *mockCache) Delete(key string) error {
	return m.Called(key).Error(0)
}

func (m *mockCache) SetJSON(key string, value interface{}, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *mockCache) GetJSON(key string, dest interface{}) error {
	return m.Called(key, dest).Error(0)
}

func (m *mockCache) DeleteByPrefix(prefix string) (int64, error) {
	args := m.Called(prefix)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCache) Ping() error {
	return m.Called().Error(0)
}

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) RevokeAllUserTokens(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

// stubRefreshRepo satisfies the token manager constructor; cookie helpers never touch it.
type stubRefreshRepo struct {
	repository.RefreshTokenRepository
}

type stubUsers struct{}

func (stubUsers) GetByID(id uint) (*entity.User, error) { return nil, apperrors.ErrNotFound }

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestJWT(t *testing.T) *auth.JWTService {
	t.Helper()
	repo := new(mockInvalidTokenRepo)
	repo.On("GetAllInvalidTokens", mock.Anything).Return([]entity.InvalidToken{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc, err := auth.NewJWTService(testSecret, time.Minute, time.Minute, repo, time.Hour, ctx)
	require.NoError(t, err)
	return svc
}

func newTestManager(t *testing.T, jwtService *auth.JWTService) *manager.TokenManager {
	t.Helper()
	tm, err := manager.NewTokenManager(jwtService, stubRefreshRepo{}, stubUsers{})
	require.NoError(t, err)
	return tm
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	jwtService := newTestJWT(t)
	token, err := jwtService.GenerateToken(&entity.User{ID: 5, Email: "e@school.test", Role: entity.RoleEducator}, "csrf-secret")
	require.NoError(t, err)
	resetToken, err := jwtService.GeneratePurposeToken(5, "e@school.test", auth.UsagePasswordReset)
	require.NoError(t, err)

	mw := NewAuthMiddleware(jwtService, nil, nil)
	r := gin.New()
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetUint(ContextUserID),
			"role":    c.GetString(ContextRole),
			"cookie":  c.GetBool(ContextCookieAuth),
		})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid bearer", header: "Bearer " + token, wantStatus: http.StatusOK, wantBody: `"role":"educator"`},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantBody: "token_missing"},
		{name: "wrong scheme", header: "Token " + token, wantStatus: http.StatusUnauthorized, wantBody: "token_format"},
		{name: "garbage token", header: "Bearer abc.def.ghi", wantStatus: http.StatusUnauthorized, wantBody: "token_invalid"},
		{name: "reset token is not an access token", header: "Bearer " + resetToken, wantStatus: http.StatusUnauthorized, wantBody: "token_invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := performRequest(r, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestRequireAuth_CookieTakesPrecedence(t *testing.T) {
	jwtService := newTestJWT(t)
	tm := newTestManager(t, jwtService)
	token, err := jwtService.GenerateToken(&entity.User{ID: 9, Role: entity.RoleStudent}, "s")
	require.NoError(t, err)

	mw := NewAuthMiddleware(jwtService, tm, nil)
	r := gin.New()
	r.GET("/me", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint(ContextUserID), "cookie": c.GetBool(ContextCookieAuth)})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: manager.AccessTokenCookie, Value: token})
	w := performRequest(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":9,"cookie":true}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	mw := NewAuthMiddleware(nil, nil, nil)

	tests := []struct {
		role       string
		wantStatus int
	}{
		{role: entity.RoleAdmin, wantStatus: http.StatusOK},
		{role: entity.RoleEducator, wantStatus: http.StatusOK},
		{role: entity.RoleStudent, wantStatus: http.StatusForbidden},
		{role: "", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run("role "+tt.role, func(t *testing.T) {
			r := gin.New()
			r.GET("/staff", func(c *gin.Context) {
				c.Set(ContextRole, tt.role)
				c.Next()
			}, mw.RequireRole(entity.RoleAdmin, entity.RoleEducator), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := performRequest(r, httptest.NewRequest(http.MethodGet, "/staff", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireCSRF(t *testing.T) {
	jwtService := newTestJWT(t)
	tm := newTestManager(t, jwtService)
	mw := NewAuthMiddleware(jwtService, tm, nil)
	secret := "csrf-secret"

	tests := []struct {
		name       string
		method     string
		cookieAuth bool
		cookie     string
		header     string
		wantStatus int
	}{
		{name: "safe method skips", method: http.MethodGet, cookieAuth: true, wantStatus: http.StatusOK},
		{name: "bearer skips", method: http.MethodPost, cookieAuth: false, wantStatus: http.StatusOK},
		{name: "valid double submit", method: http.MethodPost, cookieAuth: true, cookie: secret, header: manager.HashCSRFSecret(secret), wantStatus: http.StatusOK},
		{name: "missing header", method: http.MethodPost, cookieAuth: true, cookie: secret, wantStatus: http.StatusForbidden},
		{name: "missing cookie", method: http.MethodDelete, cookieAuth: true, header: manager.HashCSRFSecret(secret), wantStatus: http.StatusForbidden},
		{name: "cookie differs from token", method: http.MethodPut, cookieAuth: true, cookie: "other", header: manager.HashCSRFSecret("other"), wantStatus: http.StatusForbidden},
		{name: "wrong hash", method: http.MethodPost, cookieAuth: true, cookie: secret, header: "deadbeef", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Handle(tt.method, "/x", func(c *gin.Context) {
				c.Set(ContextUserID, uint(1))
				c.Set(ContextCSRFSecret, secret)
				c.Set(ContextCookieAuth, tt.cookieAuth)
				c.Next()
			}, mw.RequireCSRF(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/x", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: manager.CSRFSecretCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(manager.CSRFHeader, tt.header)
			}
			w := performRequest(r, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestEnforceIdleTimeout(t *testing.T) {
	key := "session:last_activity:7"

	tests := []struct {
		name       string
		stored     string
		getErr     error
		wantStatus int
		wantRevoke bool
	}{
		{name: "recent activity", stored: strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10), wantStatus: http.StatusOK},
		{name: "first request", getErr: apperrors.ErrNotFound, wantStatus: http.StatusOK},
		{name: "idle too long", stored: strconv.FormatInt(time.Now().Add(-2*time.Hour).Unix(), 10), wantStatus: http.StatusUnauthorized, wantRevoke: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := new(mockCache)
			revoker := new(mockRevoker)
			cache.On("Get", key).Return(tt.stored, tt.getErr)
			cache.On("Set", key, mock.Anything, mock.Anything).Return(nil).Maybe()
			cache.On("Delete", key).Return(nil).Maybe()
			revoker.On("RevokeAllUserTokens", mock.Anything, uint(7)).Return(nil).Maybe()

			sessions := service.NewSessionService(cache, revoker, 30*time.Minute, 24*time.Hour)
			mw := NewAuthMiddleware(nil, nil, sessions)

			r := gin.New()
			r.GET("/x", func(c *gin.Context) {
				c.Set(ContextUserID, uint(7))
				c.Next()
			}, mw.EnforceIdleTimeout(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := performRequest(r, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantRevoke {
				assert.Contains(t, w.Body.String(), "session_idle_timeout")
				revoker.AssertCalled(t, "RevokeAllUserTokens", mock.Anything, uint(7))
			} else {
				revoker.AssertNotCalled(t, "RevokeAllUserTokens", mock.Anything, mock.Anything)
				cache.AssertCalled(t, "Set", key, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestExtractUintParam(t *testing.T) {
	r := gin.New()
	r.GET("/modules/:id", ExtractUintParam("id", "moduleID"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetUint("moduleID")})
	})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/modules/42", wantStatus: http.StatusOK},
		{path: "/modules/0", wantStatus: http.StatusBadRequest},
		{path: "/modules/abc", wantStatus: http.StatusBadRequest},
		{path: "/modules/-3", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := performRequest(r, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
