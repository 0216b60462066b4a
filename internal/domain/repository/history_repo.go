package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// AttemptStats is an aggregate over graded attempts.
type AttemptStats struct {
	Attempts          int64   `json:"attempts"`
	AveragePercentage float64 `json:"average_percentage"`
}

// VoiceStats is an aggregate over read-aloud attempts.
type VoiceStats struct {
	Attempts        int64   `json:"attempts"`
	AverageAccuracy float64 `json:"average_accuracy"`
}

// StatsFilter scopes aggregates to a student or to an educator's content.
type StatsFilter struct {
	StudentID  *uint
	EducatorID *uint
}

// HistoryRepository defines persistence for student attempt records.
type HistoryRepository interface {
	// CreateQuizAttempt stores rows under the next attempt number for the
	// student and module and returns that number.
	CreateQuizAttempt(studentID, moduleID uint, rows []entity.StudentQuizHistory) (int, error)
	ListQuizHistory(studentID uint) ([]entity.StudentQuizHistory, error)
	QuizStats(filter StatsFilter) (*AttemptStats, error)

	CreateVoiceAttempt(row *entity.VoiceExercisesHistory) error
	ListVoiceHistory(studentID uint) ([]entity.VoiceExercisesHistory, error)
	VoiceStats(filter StatsFilter) (*VoiceStats, error)

	// CreateComprehensionAttempt stores rows under the next attempt number
	// for the student and voice exercise and returns that number.
	CreateComprehensionAttempt(studentID, voiceExerciseID uint, rows []entity.ComprehensionHistory) (int, error)
	ListComprehensionHistory(studentID uint) ([]entity.ComprehensionHistory, error)
}
