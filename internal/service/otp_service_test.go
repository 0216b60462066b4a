package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/pkg/auth"
)

const testPepper = "pepper"

func newTestOTPService(t *testing.T) (*OTPService, *MockUserRepository, *MockOTPRepository, *MockEmailService, *MockPurposeTokenIssuer) {
	t.Helper()
	userRepo := new(MockUserRepository)
	otpRepo := new(MockOTPRepository)
	email := new(MockEmailService)
	issuer := new(MockPurposeTokenIssuer)

	svc, err := NewOTPService(userRepo, otpRepo, email, issuer, 10*time.Minute, time.Minute, 3, testPepper)
	require.NoError(t, err)
	return svc, userRepo, otpRepo, email, issuer
}

func activeUser() *entity.User {
	return &entity.User{ID: 7, Name: "Ana Cruz", Email: "ana@school.test", Role: entity.RoleStudent, IsActive: true}
}

func TestOTPService_SendCode_UnknownEmailIsSilent(t *testing.T) {
	svc, userRepo, otpRepo, email, _ := newTestOTPService(t)
	userRepo.On("GetByEmail", "ghost@school.test").Return(nil, apperrors.ErrNotFound)

	err := svc.SendCode(context.Background(), "  Ghost@School.test ")

	require.NoError(t, err)
	otpRepo.AssertNotCalled(t, "Create", mock.Anything)
	email.AssertNotCalled(t, "SendPasswordResetCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOTPService_SendCode_StoresHashAndSends(t *testing.T) {
	svc, userRepo, otpRepo, email, _ := newTestOTPService(t)
	user := activeUser()
	userRepo.On("GetByEmail", user.Email).Return(user, nil)
	otpRepo.On("GetLatestActive", user.ID, entity.OTPPurposePasswordReset).Return(nil, apperrors.ErrNotFound)

	var stored *entity.OTP
	otpRepo.On("Create", mock.AnythingOfType("*entity.OTP")).Run(func(args mock.Arguments) {
		stored = args.Get(0).(*entity.OTP)
		stored.ID = 11
	}).Return(nil)

	var sentCode string
	email.On("SendPasswordResetCode", mock.Anything, user.Email, user.Name, mock.AnythingOfType("string"), "password-reset:7:11").
		Run(func(args mock.Arguments) { sentCode = args.String(3) }).
		Return(nil)

	require.NoError(t, svc.SendCode(context.Background(), user.Email))

	require.NotNil(t, stored)
	assert.Len(t, sentCode, 6)
	assert.NotEqual(t, sentCode, stored.CodeHash, "raw code must never be stored")
	assert.Equal(t, hashOTPCode(sentCode, stored.CodeSalt, testPepper), stored.CodeHash)
	assert.Equal(t, 3, stored.MaxAttempts)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), stored.ExpiresAt, 5*time.Second)
	email.AssertExpectations(t)
}

func TestOTPService_SendCode_Cooldown(t *testing.T) {
	svc, userRepo, otpRepo, _, _ := newTestOTPService(t)
	user := activeUser()
	userRepo.On("GetByEmail", user.Email).Return(user, nil)
	otpRepo.On("GetLatestActive", user.ID, entity.OTPPurposePasswordReset).
		Return(&entity.OTP{ID: 3, LastSentAt: time.Now().Add(-20 * time.Second)}, nil)

	err := svc.SendCode(context.Background(), user.Email)

	assert.ErrorIs(t, err, ErrOTPResendCooldown)
	assert.ErrorIs(t, err, apperrors.ErrTooManyRequests)
	otpRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func otpRecord(code string, mutate func(*entity.OTP)) *entity.OTP {
	salt := "abcdef"
	rec := &entity.OTP{
		ID:          21,
		UserID:      7,
		CodeHash:    hashOTPCode(code, salt, testPepper),
		CodeSalt:    salt,
		Purpose:     entity.OTPPurposePasswordReset,
		ExpiresAt:   time.Now().Add(5 * time.Minute),
		MaxAttempts: 3,
		LastSentAt:  time.Now(),
	}
	if mutate != nil {
		mutate(rec)
	}
	return rec
}

func TestOTPService_VerifyCode(t *testing.T) {
	consumedAt := time.Now().Add(-time.Minute)

	tests := []struct {
		name        string
		record      *entity.OTP
		code        string
		counted     bool
		consumed    bool
		wantErr     error
		wantAttempt bool
		wantConsume bool
	}{
		{name: "valid code", record: otpRecord("123456", nil), code: "123456", consumed: true, wantConsume: true},
		{name: "wrong code", record: otpRecord("123456", nil), code: "654321", counted: true, wantErr: ErrInvalidOTP, wantAttempt: true},
		{name: "last attempt exhausts", record: otpRecord("123456", func(o *entity.OTP) { o.AttemptCount = 2 }), code: "000000", counted: true, wantErr: ErrOTPAttemptsExceeded, wantAttempt: true},
		{name: "limit reached by a parallel guess", record: otpRecord("123456", nil), code: "000000", counted: false, wantErr: ErrOTPAttemptsExceeded, wantAttempt: true},
		{name: "expired", record: otpRecord("123456", func(o *entity.OTP) { o.ExpiresAt = time.Now().Add(-time.Second) }), code: "123456", wantErr: ErrOTPExpired},
		{name: "attempts exhausted", record: otpRecord("123456", func(o *entity.OTP) { o.AttemptCount = 3 }), code: "123456", wantErr: ErrOTPAttemptsExceeded},
		{name: "already consumed", record: otpRecord("123456", func(o *entity.OTP) { o.ConsumedAt = &consumedAt }), code: "123456", wantErr: ErrInvalidOTP},
		{name: "consumed by a parallel request", record: otpRecord("123456", nil), code: "123456", consumed: false, wantErr: ErrInvalidOTP, wantConsume: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, userRepo, otpRepo, _, issuer := newTestOTPService(t)
			user := activeUser()
			userRepo.On("GetByEmail", user.Email).Return(user, nil)
			otpRepo.On("GetLatestActive", user.ID, entity.OTPPurposePasswordReset).Return(tt.record, nil)
			otpRepo.On("IncrementAttempts", tt.record.ID).Return(tt.counted, nil)
			otpRepo.On("Consume", tt.record.ID, mock.AnythingOfType("time.Time")).Return(tt.consumed, nil)
			issuer.On("GeneratePurposeToken", user.ID, user.Email, auth.UsagePasswordReset).Return("reset-token", nil)

			token, err := svc.VerifyCode(context.Background(), user.Email, tt.code)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				issuer.AssertNotCalled(t, "GeneratePurposeToken", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "reset-token", token)
			}
			if tt.wantConsume {
				otpRepo.AssertCalled(t, "Consume", tt.record.ID, mock.AnythingOfType("time.Time"))
			} else {
				otpRepo.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
			}
			if tt.wantAttempt {
				otpRepo.AssertCalled(t, "IncrementAttempts", tt.record.ID)
			} else {
				otpRepo.AssertNotCalled(t, "IncrementAttempts", tt.record.ID)
			}
		})
	}
}

// oneShotOTPRepo behaves like the conditional UPDATE: only the first Consume succeeds.
type oneShotOTPRepo struct {
	MockOTPRepository
	record   *entity.OTP
	consumed int32
}

func (r *oneShotOTPRepo) GetLatestActive(userID uint, purpose string) (*entity.OTP, error) {
	rec := *r.record
	return &rec, nil
}

func (r *oneShotOTPRepo) Consume(id uint, now time.Time) (bool, error) {
	return atomic.CompareAndSwapInt32(&r.consumed, 0, 1), nil
}

func TestOTPService_VerifyCode_ConcurrentIssuesOneToken(t *testing.T) {
	userRepo := new(MockUserRepository)
	issuer := new(MockPurposeTokenIssuer)
	repo := &oneShotOTPRepo{record: otpRecord("123456", nil)}
	svc, err := NewOTPService(userRepo, repo, new(MockEmailService), issuer, 10*time.Minute, time.Minute, 3, testPepper)
	require.NoError(t, err)

	user := activeUser()
	userRepo.On("GetByEmail", user.Email).Return(user, nil)
	issuer.On("GeneratePurposeToken", user.ID, user.Email, auth.UsagePasswordReset).Return("reset-token", nil)

	const callers = 5
	var (
		wg     sync.WaitGroup
		issued int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if token, err := svc.VerifyCode(context.Background(), user.Email, "123456"); err == nil && token != "" {
				atomic.AddInt32(&issued, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), issued)
	issuer.AssertNumberOfCalls(t, "GeneratePurposeToken", 1)
}

func TestOTPService_PurgeCodes(t *testing.T) {
	svc, _, otpRepo, _, _ := newTestOTPService(t)
	otpRepo.On("DeleteByUser", uint(7), entity.OTPPurposePasswordReset).Return(nil).Once()
	otpRepo.On("DeleteByUser", uint(8), entity.OTPPurposePasswordReset).Return(errors.New("db down")).Once()

	assert.NoError(t, svc.PurgeCodes(7))
	assert.Error(t, svc.PurgeCodes(8))
	otpRepo.AssertExpectations(t)
}

func TestOTPService_VerifyCode_UnknownEmail(t *testing.T) {
	svc, userRepo, _, _, _ := newTestOTPService(t)
	userRepo.On("GetByEmail", "ghost@school.test").Return(nil, apperrors.ErrNotFound)

	_, err := svc.VerifyCode(context.Background(), "ghost@school.test", "123456")

	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestOTPService_VerifyCode_RequiresInput(t *testing.T) {
	svc, _, _, _, _ := newTestOTPService(t)

	_, err := svc.VerifyCode(context.Background(), "", " ")

	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestGenerateOTPCode_IsSixDigits(t *testing.T) {
	for i := 0; i < 20; i++ {
		code, err := generateOTPCode()
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}
