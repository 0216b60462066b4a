package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// QuizAttemptSummary aggregates the rows of one quiz attempt.
type QuizAttemptSummary struct {
	ModuleID    uint      `json:"module_id"`
	ModuleTitle string    `json:"module_title"`
	AttemptNo   int       `json:"attempt_no"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	TakenAt     time.Time `json:"taken_at"`
}

// ComprehensionAttemptSummary aggregates the rows of one comprehension attempt.
type ComprehensionAttemptSummary struct {
	VoiceExerciseID    uint      `json:"voice_exercise_id"`
	VoiceExerciseTitle string    `json:"voice_exercise_title"`
	AttemptNo          int       `json:"attempt_no"`
	Score              int       `json:"score"`
	Total              int       `json:"total"`
	Percentage         float64   `json:"percentage"`
	TakenAt            time.Time `json:"taken_at"`
}

// VoiceHistory lists read-aloud attempts with their mean accuracy.
type VoiceHistory struct {
	Attempts        []entity.VoiceExercisesHistory `json:"attempts"`
	AverageAccuracy float64                        `json:"average_accuracy"`
}

// HistoryService reads and summarizes student attempt history.
type HistoryService struct {
	studentRepo repository.StudentRepository
	historyRepo repository.HistoryRepository
}

// NewHistoryService creates the history service
func NewHistoryService(studentRepo repository.StudentRepository, historyRepo repository.HistoryRepository) *HistoryService {
	return &HistoryService{studentRepo: studentRepo, historyRepo: historyRepo}
}

// ResolveStudent picks whose history the actor may read. Students always
// read their own; staff must name a student.
func (s *HistoryService) ResolveStudent(actor Actor, requested *uint) (*entity.Student, error) {
	// Students
	if actor.IsStudent() {
		own, err := studentFor(s.studentRepo, actor)
		if err != nil {
			return nil, err
		}
		if requested != nil && *requested != own.ID {
			return nil, fmt.Errorf("%w: students can only view their own history", apperrors.ErrForbidden)
		}
		return own, nil
	}
	if requested == nil || *requested == 0 {
		return nil, fmt.Errorf("%w: studentId is required", apperrors.ErrValidation)
	}
	return s.studentRepo.GetByID(*requested)
}

// QuizHistory returns one summary per quiz attempt, newest first.
func (s *HistoryService) QuizHistory(actor Actor, requested *uint) ([]QuizAttemptSummary, error) {
	student, err := s.ResolveStudent(actor, requested)
	if err != nil {
		return nil, err
	}
	rows, err := s.historyRepo.ListQuizHistory(student.ID)
	if err != nil {
		return nil, err
	}
	return summarizeQuizHistory(rows), nil
}

// VoiceHistory returns read-aloud attempts and their mean accuracy.
func (s *HistoryService) VoiceHistory(actor Actor, requested *uint) (*VoiceHistory, error) {
	student, err := s.ResolveStudent(actor, requested)
	if err != nil {
		return nil, err
	}
	rows, err := s.historyRepo.ListVoiceHistory(student.ID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []entity.VoiceExercisesHistory{}
	}
	return &VoiceHistory{Attempts: rows, AverageAccuracy: averageAccuracy(rows)}, nil
}

// ComprehensionHistory returns one summary per comprehension attempt, newest first.
func (s *HistoryService) ComprehensionHistory(actor Actor, requested *uint) ([]ComprehensionAttemptSummary, error) {
	student, err := s.ResolveStudent(actor, requested)
	if err != nil {
		return nil, err
	}
	rows, err := s.historyRepo.ListComprehensionHistory(student.ID)
	if err != nil {
		return nil, err
	}
	return summarizeComprehensionHistory(rows), nil
}

type attemptKey struct {
	parentID  uint
	attemptNo int
}

// summarizeQuizHistory folds answer rows into one summary per module attempt
// in a single pass, newest first.
func summarizeQuizHistory(rows []entity.StudentQuizHistory) []QuizAttemptSummary {
	summaries := make([]QuizAttemptSummary, 0)
	index := make(map[attemptKey]int)
	for _, row := range rows {
		key := attemptKey{parentID: row.ModuleID, attemptNo: row.AttemptNo}
		i, ok := index[key]
		if !ok {
			// First row of this attempt
			title := ""
			if row.Module != nil {
				title = row.Module.Title
			}
			summaries = append(summaries, QuizAttemptSummary{
				ModuleID:    row.ModuleID,
				ModuleTitle: title,
				AttemptNo:   row.AttemptNo,
				TakenAt:     row.CreatedAt,
			})
			i = len(summaries) - 1
			index[key] = i
		}
		// An attempt is dated by its latest row
		sum := &summaries[i]
		sum.Score += row.Score
		sum.Total++
		if row.CreatedAt.After(sum.TakenAt) {
			sum.TakenAt = row.CreatedAt
		}
	}

	for i := range summaries {
		summaries[i].Percentage = percentage(summaries[i].Score, summaries[i].Total)
	}
	// Newest first, higher attempt number on ties
	sort.SliceStable(summaries, func(a, b int) bool {
		if !summaries[a].TakenAt.Equal(summaries[b].TakenAt) {
			return summaries[a].TakenAt.After(summaries[b].TakenAt)
		}
		return summaries[a].AttemptNo > summaries[b].AttemptNo
	})
	return summaries
}

// summarizeComprehensionHistory groups answer rows by exercise and attempt number.
func summarizeComprehensionHistory(rows []entity.ComprehensionHistory) []ComprehensionAttemptSummary {
	summaries := make([]ComprehensionAttemptSummary, 0)
	index := make(map[attemptKey]int)
	for _, row := range rows {
		key := attemptKey{parentID: row.VoiceExerciseID, attemptNo: row.AttemptNo}
		i, ok := index[key]
		if !ok {
			// First row of this attempt
			title := ""
			if row.VoiceExercise != nil {
				title = row.VoiceExercise.Title
			}
			summaries = append(summaries, ComprehensionAttemptSummary{
				VoiceExerciseID:    row.VoiceExerciseID,
				VoiceExerciseTitle: title,
				AttemptNo:          row.AttemptNo,
				TakenAt:            row.CreatedAt,
			})
			i = len(summaries) - 1
			index[key] = i
		}
		// An attempt is dated by its latest row
		sum := &summaries[i]
		sum.Score += row.Score
		sum.Total++
		if row.CreatedAt.After(sum.TakenAt) {
			sum.TakenAt = row.CreatedAt
		}
	}

	for i := range summaries {
		summaries[i].Percentage = percentage(summaries[i].Score, summaries[i].Total)
	}
	// Newest first, higher attempt number on ties
	sort.SliceStable(summaries, func(a, b int) bool {
		if !summaries[a].TakenAt.Equal(summaries[b].TakenAt) {
			return summaries[a].TakenAt.After(summaries[b].TakenAt)
		}
		return summaries[a].AttemptNo > summaries[b].AttemptNo
	})
	return summaries
}

// averageAccuracy is the mean accuracy of rows, 0 when empty.
func averageAccuracy(rows []entity.VoiceExercisesHistory) float64 {
	if len(rows) == 0 {
		return 0
	}
	var total float64
	for _, row := range rows {
		total += row.Accuracy
	}
	return roundTo(total/float64(len(rows)), 2)
}
