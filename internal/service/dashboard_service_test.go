package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

type dashboardFixture struct {
	users     *MockUserRepository
	educators *MockEducatorRepository
	students  *MockStudentRepository
	modules   *MockModuleRepository
	exercises *MockVoiceExerciseRepository
	history   *MockHistoryRepository
	auditRepo *MockAuditLogRepository
	svc       *DashboardService
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		users:     new(MockUserRepository),
		educators: new(MockEducatorRepository),
		students:  new(MockStudentRepository),
		modules:   new(MockModuleRepository),
		exercises: new(MockVoiceExerciseRepository),
		history:   new(MockHistoryRepository),
		auditRepo: new(MockAuditLogRepository),
	}
	f.svc = NewDashboardService(f.users, f.educators, f.students, f.modules, f.exercises, f.history, NewAuditService(f.auditRepo))
	return f
}

func TestDashboardService_Admin(t *testing.T) {
	f := newDashboardFixture()
	f.users.On("CountByRole").Return(map[string]int64{"admin": 1, "educator": 4, "student": 120}, nil)
	f.modules.On("Count", repository.ModuleFilter{}).Return(int64(12), nil)
	f.exercises.On("Count", repository.VoiceExerciseFilter{}).Return(int64(5), nil)
	f.history.On("QuizStats", repository.StatsFilter{}).Return(&repository.AttemptStats{Attempts: 300}, nil)
	f.auditRepo.On("List", repository.AuditLogFilter{Limit: 10}).Return(nil, int64(0), errors.New("timeout"))

	dash, err := f.svc.Admin()

	require.NoError(t, err)
	assert.Equal(t, int64(125), dash.TotalUsers)
	assert.Equal(t, int64(12), dash.Modules)
	assert.Equal(t, int64(5), dash.VoiceExercises)
	assert.Equal(t, int64(300), dash.QuizAttempts)
	assert.NotNil(t, dash.RecentActivity)
}

func TestDashboardService_Educator_ScopedToOwnContent(t *testing.T) {
	f := newDashboardFixture()
	educatorID := uint(7)
	scope := repository.StatsFilter{EducatorID: &educatorID}
	f.educators.On("GetByUserID", uint(2)).Return(&entity.Educator{ID: 7}, nil)
	f.modules.On("Count", repository.ModuleFilter{EducatorID: &educatorID}).Return(int64(3), nil)
	f.exercises.On("Count", repository.VoiceExerciseFilter{EducatorID: &educatorID}).Return(int64(2), nil)
	f.history.On("QuizStats", scope).Return(&repository.AttemptStats{Attempts: 40, AveragePercentage: 71.456}, nil)
	f.history.On("VoiceStats", scope).Return(&repository.VoiceStats{Attempts: 9, AverageAccuracy: 88.004}, nil)

	dash, err := f.svc.Educator(educatorActor)

	require.NoError(t, err)
	assert.Equal(t, int64(3), dash.Modules)
	assert.Equal(t, 71.46, dash.AverageScore)
	assert.Equal(t, 88.0, dash.AverageAccuracy)
}

func TestDashboardService_Educator_MissingProfile(t *testing.T) {
	f := newDashboardFixture()
	f.educators.On("GetByUserID", uint(2)).Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.Educator(educatorActor)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDashboardService_Student(t *testing.T) {
	f := newDashboardFixture()
	studentID := uint(12)
	scope := repository.StatsFilter{StudentID: &studentID}
	f.students.On("GetByUserID", uint(30)).Return(&entity.Student{ID: 12, Grade: "4"}, nil)
	f.history.On("QuizStats", scope).Return(&repository.AttemptStats{Attempts: 6, AveragePercentage: 80}, nil)
	f.history.On("VoiceStats", scope).Return(&repository.VoiceStats{Attempts: 2, AverageAccuracy: 95.5}, nil)
	f.modules.On("Count", mock.MatchedBy(func(filter repository.ModuleFilter) bool {
		return filter.Grade == "4" && filter.EducatorID == nil
	})).Return(int64(8), nil)

	dash, err := f.svc.Student(studentActor)

	require.NoError(t, err)
	assert.Equal(t, uint(12), dash.StudentID)
	assert.Equal(t, int64(8), dash.ModulesAvailable)
	assert.Equal(t, 95.5, dash.AverageAccuracy)
}
