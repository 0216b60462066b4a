package service

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
)

// MockUserRepository implements repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateWithProfile(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateWithProfile(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(userID uint, newPassword string) error {
	args := m.Called(userID, newPassword)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateLastLogin(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockUserRepository) List(filter repository.UserFilter) ([]entity.User, int64, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) CountByRole() (map[string]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockEducatorRepository implements repository.EducatorRepository
type MockEducatorRepository struct {
	mock.Mock
}

func (m *MockEducatorRepository) GetByUserID(userID uint) (*entity.Educator, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Educator), args.Error(1)
}

func (m *MockEducatorRepository) List() ([]entity.Educator, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Educator), args.Error(1)
}

// MockStudentRepository implements repository.StudentRepository
type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) GetByID(id uint) (*entity.Student, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

func (m *MockStudentRepository) GetByUserID(userID uint) (*entity.Student, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

func (m *MockStudentRepository) List(grade, section string) ([]entity.Student, error) {
	args := m.Called(grade, section)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Student), args.Error(1)
}

// MockModuleRepository implements repository.ModuleRepository
type MockModuleRepository struct {
	mock.Mock
}

func (m *MockModuleRepository) Create(module *entity.Module) error {
	args := m.Called(module)
	return args.Error(0)
}

func (m *MockModuleRepository) GetByID(id uint) (*entity.Module, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Module), args.Error(1)
}

func (m *MockModuleRepository) GetWithQuestions(id uint) (*entity.Module, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Module), args.Error(1)
}

func (m *MockModuleRepository) Update(module *entity.Module) error {
	args := m.Called(module)
	return args.Error(0)
}

func (m *MockModuleRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockModuleRepository) List(filter repository.ModuleFilter) ([]entity.Module, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Module), args.Error(1)
}

func (m *MockModuleRepository) Count(filter repository.ModuleFilter) (int64, error) {
	args := m.Called(filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockQuestionRepository implements repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(id uint) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) Update(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockQuestionRepository) ListByModule(moduleID uint) ([]entity.Question, error) {
	args := m.Called(moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

// MockVoiceExerciseRepository implements repository.VoiceExerciseRepository
type MockVoiceExerciseRepository struct {
	mock.Mock
}

func (m *MockVoiceExerciseRepository) Create(exercise *entity.VoiceExercise) error {
	args := m.Called(exercise)
	return args.Error(0)
}

func (m *MockVoiceExerciseRepository) GetByID(id uint) (*entity.VoiceExercise, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VoiceExercise), args.Error(1)
}

func (m *MockVoiceExerciseRepository) GetWithTests(id uint) (*entity.VoiceExercise, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VoiceExercise), args.Error(1)
}

func (m *MockVoiceExerciseRepository) Update(exercise *entity.VoiceExercise) error {
	args := m.Called(exercise)
	return args.Error(0)
}

func (m *MockVoiceExerciseRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockVoiceExerciseRepository) List(filter repository.VoiceExerciseFilter) ([]entity.VoiceExercise, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.VoiceExercise), args.Error(1)
}

func (m *MockVoiceExerciseRepository) Count(filter repository.VoiceExerciseFilter) (int64, error) {
	args := m.Called(filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockComprehensionTestRepository implements repository.ComprehensionTestRepository
type MockComprehensionTestRepository struct {
	mock.Mock
}

func (m *MockComprehensionTestRepository) Create(test *entity.ComprehensionTest) error {
	args := m.Called(test)
	return args.Error(0)
}

func (m *MockComprehensionTestRepository) GetByID(id uint) (*entity.ComprehensionTest, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ComprehensionTest), args.Error(1)
}

func (m *MockComprehensionTestRepository) Update(test *entity.ComprehensionTest) error {
	args := m.Called(test)
	return args.Error(0)
}

func (m *MockComprehensionTestRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockComprehensionTestRepository) ListByExercise(voiceExerciseID uint) ([]entity.ComprehensionTest, error) {
	args := m.Called(voiceExerciseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ComprehensionTest), args.Error(1)
}

// MockHistoryRepository implements repository.HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) CreateQuizAttempt(studentID, moduleID uint, rows []entity.StudentQuizHistory) (int, error) {
	args := m.Called(studentID, moduleID, rows)
	return args.Int(0), args.Error(1)
}

func (m *MockHistoryRepository) ListQuizHistory(studentID uint) ([]entity.StudentQuizHistory, error) {
	args := m.Called(studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.StudentQuizHistory), args.Error(1)
}

func (m *MockHistoryRepository) QuizStats(filter repository.StatsFilter) (*repository.AttemptStats, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AttemptStats), args.Error(1)
}

func (m *MockHistoryRepository) CreateVoiceAttempt(row *entity.VoiceExercisesHistory) error {
	args := m.Called(row)
	return args.Error(0)
}

func (m *MockHistoryRepository) ListVoiceHistory(studentID uint) ([]entity.VoiceExercisesHistory, error) {
	args := m.Called(studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.VoiceExercisesHistory), args.Error(1)
}

func (m *MockHistoryRepository) VoiceStats(filter repository.StatsFilter) (*repository.VoiceStats, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.VoiceStats), args.Error(1)
}

func (m *MockHistoryRepository) CreateComprehensionAttempt(studentID, voiceExerciseID uint, rows []entity.ComprehensionHistory) (int, error) {
	args := m.Called(studentID, voiceExerciseID, rows)
	return args.Int(0), args.Error(1)
}

func (m *MockHistoryRepository) ListComprehensionHistory(studentID uint) ([]entity.ComprehensionHistory, error) {
	args := m.Called(studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ComprehensionHistory), args.Error(1)
}

// MockAuditLogRepository implements repository.AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(log *entity.AuditLog) error {
	args := m.Called(log)
	return args.Error(0)
}

func (m *MockAuditLogRepository) List(filter repository.AuditLogFilter) ([]entity.AuditLog, int64, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.AuditLog), args.Get(1).(int64), args.Error(2)
}

// MockOTPRepository implements repository.OTPRepository
type MockOTPRepository struct {
	mock.Mock
}

func (m *MockOTPRepository) Create(otp *entity.OTP) error {
	args := m.Called(otp)
	return args.Error(0)
}

func (m *MockOTPRepository) GetLatestActive(userID uint, purpose string) (*entity.OTP, error) {
	args := m.Called(userID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.OTP), args.Error(1)
}

func (m *MockOTPRepository) IncrementAttempts(id uint) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOTPRepository) Consume(id uint, now time.Time) (bool, error) {
	args := m.Called(id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockOTPRepository) DeleteByUser(userID uint, purpose string) error {
	args := m.Called(userID, purpose)
	return args.Error(0)
}

func (m *MockOTPRepository) CleanupExpired(cutoff time.Time) (int64, error) {
	args := m.Called(cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheRepository implements repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) DeleteByPrefix(prefix string) (int64, error) {
	args := m.Called(prefix)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// MockMediaRepository implements repository.MediaRepository
type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*repository.MediaObject, error) {
	args := m.Called(ctx, key, r, size, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.MediaObject), args.Error(1)
}

func (m *MockMediaRepository) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockMediaRepository) KeyFromURL(url string) (string, bool) {
	args := m.Called(url)
	return args.String(0), args.Bool(1)
}

func (m *MockMediaRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRefreshTokenRepository implements repository.RefreshTokenRepository
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) CreateToken(token *entity.RefreshToken) (uint, error) {
	args := m.Called(token)
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockRefreshTokenRepository) GetTokenByValue(token string) (*entity.RefreshToken, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) MarkTokenAsExpired(token string) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) MarkAllAsExpiredForUser(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) CleanupExpiredTokens() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshTokenRepository) CountTokensForUser(userID uint) (int, error) {
	args := m.Called(userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRefreshTokenRepository) MarkOldestAsExpiredForUser(userID uint, limit int) error {
	args := m.Called(userID, limit)
	return args.Error(0)
}

// MockInvalidTokenRepository implements repository.InvalidTokenRepository
type MockInvalidTokenRepository struct {
	mock.Mock
}

func (m *MockInvalidTokenRepository) AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error {
	args := m.Called(ctx, userID, invalidationTime)
	return args.Error(0)
}

func (m *MockInvalidTokenRepository) IsTokenInvalid(ctx context.Context, userID uint, tokenIssuedAt time.Time) (bool, error) {
	args := m.Called(ctx, userID, tokenIssuedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvalidTokenRepository) GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.InvalidToken), args.Error(1)
}

func (m *MockInvalidTokenRepository) CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error {
	args := m.Called(ctx, cutoffTime)
	return args.Error(0)
}

// MockEmailService implements EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendPasswordResetCode(ctx context.Context, toEmail, name, code, idempotencyKey string) error {
	args := m.Called(ctx, toEmail, name, code, idempotencyKey)
	return args.Error(0)
}

// MockTokenRevoker implements TokenRevoker
type MockTokenRevoker struct {
	mock.Mock
}

func (m *MockTokenRevoker) RevokeAllUserTokens(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockPurposeTokenIssuer implements PurposeTokenIssuer
type MockPurposeTokenIssuer struct {
	mock.Mock
}

func (m *MockPurposeTokenIssuer) GeneratePurposeToken(userID uint, email, usage string) (string, error) {
	args := m.Called(userID, email, usage)
	return args.String(0), args.Error(1)
}

// newTestAudit returns an audit service whose writes always succeed.
func newTestAudit() (*AuditService, *MockAuditLogRepository) {
	repo := new(MockAuditLogRepository)
	repo.On("Create", mock.AnythingOfType("*entity.AuditLog")).Return(nil).Maybe()
	return NewAuditService(repo), repo
}
