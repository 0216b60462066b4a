package service

import (
	"log"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
)

const dashboardRecentLogs = 10

// AdminDashboard is the platform-wide summary
type AdminDashboard struct {
	UsersByRole    map[string]int64  `json:"users_by_role"`
	TotalUsers     int64             `json:"total_users"`
	Modules        int64             `json:"modules"`
	VoiceExercises int64             `json:"voice_exercises"`
	QuizAttempts   int64             `json:"quiz_attempts"`
	RecentActivity []entity.AuditLog `json:"recent_activity"`
}

// EducatorDashboard summarizes one educator's content and its use
type EducatorDashboard struct {
	Modules         int64   `json:"modules"`
	VoiceExercises  int64   `json:"voice_exercises"`
	QuizAttempts    int64   `json:"quiz_attempts"`
	AverageScore    float64 `json:"average_score"`
	VoiceAttempts   int64   `json:"voice_attempts"`
	AverageAccuracy float64 `json:"average_accuracy"`
}

// StudentDashboard summarizes one student's progress
type StudentDashboard struct {
	StudentID         uint    `json:"student_id"`
	Grade             string  `json:"grade"`
	QuizAttempts      int64   `json:"quiz_attempts"`
	AveragePercentage float64 `json:"average_percentage"`
	VoiceAttempts     int64   `json:"voice_attempts"`
	AverageAccuracy   float64 `json:"average_accuracy"`
	ModulesAvailable  int64   `json:"modules_available"`
}

// DashboardService builds role-specific summary views.
type DashboardService struct {
	userRepo     repository.UserRepository
	educatorRepo repository.EducatorRepository
	studentRepo  repository.StudentRepository
	moduleRepo   repository.ModuleRepository
	exerciseRepo repository.VoiceExerciseRepository
	historyRepo  repository.HistoryRepository
	audit        *AuditService
}

// NewDashboardService creates the dashboard service
func NewDashboardService(
	userRepo repository.UserRepository,
	educatorRepo repository.EducatorRepository,
	studentRepo repository.StudentRepository,
	moduleRepo repository.ModuleRepository,
	exerciseRepo repository.VoiceExerciseRepository,
	historyRepo repository.HistoryRepository,
	audit *AuditService,
) *DashboardService {
	return &DashboardService{
		userRepo:     userRepo,
		educatorRepo: educatorRepo,
		studentRepo:  studentRepo,
		moduleRepo:   moduleRepo,
		exerciseRepo: exerciseRepo,
		historyRepo:  historyRepo,
		audit:        audit,
	}
}

// Admin reports platform-wide totals and the latest audit activity.
func (s *DashboardService) Admin() (*AdminDashboard, error) {
	// Content and attempt totals
	counts, err := s.userRepo.CountByRole()
	if err != nil {
		return nil, err
	}
	modules, err := s.moduleRepo.Count(repository.ModuleFilter{})
	if err != nil {
		return nil, err
	}
	exercises, err := s.exerciseRepo.Count(repository.VoiceExerciseFilter{})
	if err != nil {
		return nil, err
	}
	quiz, err := s.historyRepo.QuizStats(repository.StatsFilter{})
	if err != nil {
		return nil, err
	}

	// Recent activity is optional
	recent, err := s.audit.Latest(dashboardRecentLogs)
	if err != nil {
		log.Printf("[DashboardService] failed to load recent audit logs: %v", err)
	}
	if recent == nil {
		recent = []entity.AuditLog{}
	}

	// Sum of all roles
	var total int64
	for _, n := range counts {
		total += n
	}

	return &AdminDashboard{
		UsersByRole:    counts,
		TotalUsers:     total,
		Modules:        modules,
		VoiceExercises: exercises,
		QuizAttempts:   quiz.Attempts,
		RecentActivity: recent,
	}, nil
}

// Educator reports totals over the content the educator owns.
func (s *DashboardService) Educator(actor Actor) (*EducatorDashboard, error) {
	// Resolve the educator profile of the caller
	educatorID, err := educatorIDFor(s.educatorRepo, actor)
	if err != nil {
		return nil, err
	}

	modules, err := s.moduleRepo.Count(repository.ModuleFilter{EducatorID: &educatorID})
	if err != nil {
		return nil, err
	}
	exercises, err := s.exerciseRepo.Count(repository.VoiceExerciseFilter{EducatorID: &educatorID})
	if err != nil {
		return nil, err
	}
	// Attempts by any student on this educator's content
	quiz, err := s.historyRepo.QuizStats(repository.StatsFilter{EducatorID: &educatorID})
	if err != nil {
		return nil, err
	}
	voice, err := s.historyRepo.VoiceStats(repository.StatsFilter{EducatorID: &educatorID})
	if err != nil {
		return nil, err
	}

	return &EducatorDashboard{
		Modules:         modules,
		VoiceExercises:  exercises,
		QuizAttempts:    quiz.Attempts,
		AverageScore:    roundTo(quiz.AveragePercentage, 2),
		VoiceAttempts:   voice.Attempts,
		AverageAccuracy: roundTo(voice.AverageAccuracy, 2),
	}, nil
}

// Student reports the calling student's attempts and averages.
func (s *DashboardService) Student(actor Actor) (*StudentDashboard, error) {
	// Resolve the student profile of the caller
	student, err := studentFor(s.studentRepo, actor)
	if err != nil {
		return nil, err
	}

	quiz, err := s.historyRepo.QuizStats(repository.StatsFilter{StudentID: &student.ID})
	if err != nil {
		return nil, err
	}
	voice, err := s.historyRepo.VoiceStats(repository.StatsFilter{StudentID: &student.ID})
	if err != nil {
		return nil, err
	}
	// Modules of the student's grade
	available, err := s.moduleRepo.Count(repository.ModuleFilter{Grade: student.Grade})
	if err != nil {
		return nil, err
	}

	return &StudentDashboard{
		StudentID:         student.ID,
		Grade:             student.Grade,
		QuizAttempts:      quiz.Attempts,
		AveragePercentage: roundTo(quiz.AveragePercentage, 2),
		VoiceAttempts:     voice.Attempts,
		AverageAccuracy:   roundTo(voice.AverageAccuracy, 2),
		ModulesAvailable:  available,
	}, nil
}
