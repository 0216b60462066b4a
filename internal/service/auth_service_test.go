package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/pkg/auth"
	"github.com/yourusername/lms-api/pkg/auth/manager"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc         *AuthService
	jwt         *auth.JWTService
	userRepo    *MockUserRepository
	refreshRepo *MockRefreshTokenRepository
	invalidRepo *MockInvalidTokenRepository
	cache       *MockCacheRepository
	auditRepo   *MockAuditLogRepository
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		userRepo:    new(MockUserRepository),
		refreshRepo: new(MockRefreshTokenRepository),
		invalidRepo: new(MockInvalidTokenRepository),
		cache:       new(MockCacheRepository),
	}
	f.invalidRepo.On("GetAllInvalidTokens", mock.Anything).Return([]entity.InvalidToken{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	jwtService, err := auth.NewJWTService(strings.Repeat("s", 32), 15*time.Minute, 10*time.Minute, f.invalidRepo, time.Hour, ctx)
	require.NoError(t, err)
	f.jwt = jwtService

	tokenManager, err := manager.NewTokenManager(jwtService, f.refreshRepo, f.userRepo)
	require.NoError(t, err)

	sessions := NewSessionService(f.cache, tokenManager, 30*time.Minute, 24*time.Hour)
	audit, auditRepo := newTestAudit()
	f.auditRepo = auditRepo

	f.svc, err = NewAuthService(f.userRepo, jwtService, tokenManager, sessions, audit)
	require.NoError(t, err)
	return f
}

func userWithPassword(t *testing.T, password string) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &entity.User{
		ID:       5,
		Name:     "Maria Santos",
		Email:    "maria@school.test",
		Password: string(hash),
		Role:     entity.RoleEducator,
		IsActive: true,
	}
}

func TestNewAuthService_RequiresDependencies(t *testing.T) {
	_, err := NewAuthService(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestAuthService_LoginUser_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "correct-horse")

	f.userRepo.On("GetByEmail", "maria@school.test").Return(user, nil)
	f.userRepo.On("GetByID", user.ID).Return(user, nil)
	f.userRepo.On("UpdateLastLogin", user.ID).Return(nil)
	f.refreshRepo.On("CreateToken", mock.AnythingOfType("*entity.RefreshToken")).Return(uint(1), nil)
	f.refreshRepo.On("CountTokensForUser", user.ID).Return(1, nil)
	f.cache.On("Set", lastActivityKey(user.ID), mock.AnythingOfType("string"), 24*time.Hour).Return(nil)

	got, tokens, err := f.svc.LoginUser(" Maria@School.test", "correct-horse", "device", "10.0.0.1", "test-agent")

	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotNil(t, tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, manager.HashCSRFSecret(tokens.CSRFSecret), tokens.CSRFToken)

	claims, err := f.jwt.ParseToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleEducator, claims.Role)
	assert.Equal(t, tokens.CSRFSecret, claims.CSRFSecret)

	f.userRepo.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.auditRepo.AssertCalled(t, "Create", mock.MatchedBy(func(l *entity.AuditLog) bool {
		return l.Action == entity.AuditLogin && l.UserID != nil && *l.UserID == user.ID && l.IPAddress == "10.0.0.1"
	}))
}

func TestAuthService_LoginUser_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *authFixture)
		password string
		wantErr  error
	}{
		{
			name: "unknown email",
			setup: func(f *authFixture) {
				f.userRepo.On("GetByEmail", "maria@school.test").Return(nil, apperrors.ErrNotFound)
			},
			password: "whatever1",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			setup: func(f *authFixture) {
				f.userRepo.On("GetByEmail", "maria@school.test").Return(userWithPassword(t, "correct-horse"), nil)
			},
			password: "wrong-horse",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "inactive user",
			setup: func(f *authFixture) {
				user := userWithPassword(t, "correct-horse")
				user.IsActive = false
				f.userRepo.On("GetByEmail", "maria@school.test").Return(user, nil)
			},
			password: "correct-horse",
			wantErr:  ErrInactiveUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tt.setup(f)

			user, tokens, err := f.svc.LoginUser("maria@school.test", tt.password, "", "", "")

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, user)
			assert.Nil(t, tokens)
			f.refreshRepo.AssertNotCalled(t, "CreateToken", mock.Anything)
		})
	}
}

func TestAuthService_ChangePassword_WrongCurrentPassword(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "correct-horse")
	f.userRepo.On("GetByID", user.ID).Return(user, nil)

	err := f.svc.ChangePassword(context.Background(), Actor{UserID: user.ID}, "wrong-horse", "brand-new-pass")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	f.userRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything)
}

func TestAuthService_ChangePassword_TooShort(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ChangePassword(context.Background(), Actor{UserID: 5}, "correct-horse", "short")

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAuthService_ChangePassword_RevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "correct-horse")
	f.userRepo.On("GetByID", user.ID).Return(user, nil)
	f.userRepo.On("UpdatePassword", user.ID, "brand-new-pass").Return(nil)
	f.refreshRepo.On("MarkAllAsExpiredForUser", user.ID).Return(nil)
	f.invalidRepo.On("AddInvalidToken", mock.Anything, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
	f.cache.On("Delete", lastActivityKey(user.ID)).Return(nil)

	err := f.svc.ChangePassword(context.Background(), Actor{UserID: user.ID, Role: user.Role}, "correct-horse", "brand-new-pass")

	require.NoError(t, err)
	f.refreshRepo.AssertExpectations(t)
	f.invalidRepo.AssertExpectations(t)
	f.auditRepo.AssertCalled(t, "Create", mock.MatchedBy(func(l *entity.AuditLog) bool {
		return l.Action == entity.AuditPasswordChange
	}))
}

type recordingPurger struct {
	purged []uint
}

func (p *recordingPurger) PurgeCodes(userID uint) error {
	p.purged = append(p.purged, userID)
	return nil
}

func TestAuthService_ResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	purger := &recordingPurger{}
	f.svc.SetResetCodePurger(purger)
	user := userWithPassword(t, "forgotten-pass")
	f.userRepo.On("GetByID", user.ID).Return(user, nil)
	f.userRepo.On("UpdatePassword", user.ID, "brand-new-pass").Return(nil)
	f.refreshRepo.On("MarkAllAsExpiredForUser", user.ID).Return(nil)
	f.invalidRepo.On("AddInvalidToken", mock.Anything, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
	f.cache.On("Delete", lastActivityKey(user.ID)).Return(nil)

	resetToken, err := f.jwt.GeneratePurposeToken(user.ID, user.Email, auth.UsagePasswordReset)
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetPassword(context.Background(), resetToken, "brand-new-pass", "10.0.0.2"))
	f.userRepo.AssertCalled(t, "UpdatePassword", user.ID, "brand-new-pass")
	assert.Equal(t, []uint{user.ID}, purger.purged)

	// the revocation that follows a reset also burns the reset token
	err = f.svc.ResetPassword(context.Background(), resetToken, "another-new-pass", "10.0.0.2")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestAuthService_ResetPassword_RejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "forgotten-pass")

	accessToken, err := f.jwt.GenerateToken(user, "csrf-secret")
	require.NoError(t, err)

	err = f.svc.ResetPassword(context.Background(), accessToken, "brand-new-pass", "")

	assert.ErrorIs(t, err, ErrInvalidResetToken)
	f.userRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything)
}

func TestAuthService_GetUserByID_DeletedAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.userRepo.On("GetByID", uint(404)).Return(nil, apperrors.ErrNotFound)

	user, err := f.svc.GetUserByID(404)

	assert.Nil(t, user)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAuthService_LogoutUser(t *testing.T) {
	f := newAuthFixture(t)
	f.refreshRepo.On("MarkTokenAsExpired", "refresh-value").Return(nil)
	f.cache.On("Delete", lastActivityKey(5)).Return(nil)

	err := f.svc.LogoutUser(Actor{UserID: 5, Role: entity.RoleStudent}, "refresh-value")

	require.NoError(t, err)
	f.refreshRepo.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.auditRepo.AssertCalled(t, "Create", mock.MatchedBy(func(l *entity.AuditLog) bool {
		return l.Action == entity.AuditLogout
	}))
}

func TestAuthService_LogoutUser_UnknownTokenIsIgnored(t *testing.T) {
	f := newAuthFixture(t)
	f.refreshRepo.On("MarkTokenAsExpired", "stale").Return(apperrors.ErrNotFound)
	f.cache.On("Delete", lastActivityKey(5)).Return(nil)

	assert.NoError(t, f.svc.LogoutUser(Actor{UserID: 5}, "stale"))
}
