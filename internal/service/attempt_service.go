package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

const (
	unanswered          = -1
	maxTranscriptLength = 20000
)

// AnswerInput is one selected option of a submission.
type AnswerInput struct {
	QuestionID     uint
	SelectedAnswer int
}

// AnswerResult reports how one question was graded. It never carries the
// answer key.
type AnswerResult struct {
	QuestionID     uint `json:"question_id"`
	SelectedAnswer int  `json:"selected_answer"`
	IsCorrect      bool `json:"is_correct"`
}

// SubmissionResult is the outcome of a graded quiz or comprehension attempt.
type SubmissionResult struct {
	Score      int            `json:"score"`
	Total      int            `json:"total"`
	Percentage float64        `json:"percentage"`
	AttemptNo  int            `json:"attempt_no"`
	Results    []AnswerResult `json:"results"`
}

// VoiceSubmissionResult is the outcome of a read-aloud attempt.
type VoiceSubmissionResult struct {
	ID uint `json:"id"`
	WordAccuracy
}

// choiceItem is a gradable multiple-choice item: a question or a comprehension test.
type choiceItem interface {
	IsCorrect(selected int) bool
	IsValidOption(idx int) bool
}

// AttemptService grades student submissions and stores them as history.
type AttemptService struct {
	moduleRepo   repository.ModuleRepository
	exerciseRepo repository.VoiceExerciseRepository
	studentRepo  repository.StudentRepository
	historyRepo  repository.HistoryRepository
	audit        *AuditService
}

// NewAttemptService creates the submission service
func NewAttemptService(
	moduleRepo repository.ModuleRepository,
	exerciseRepo repository.VoiceExerciseRepository,
	studentRepo repository.StudentRepository,
	historyRepo repository.HistoryRepository,
	audit *AuditService,
) *AttemptService {
	return &AttemptService{
		moduleRepo:   moduleRepo,
		exerciseRepo: exerciseRepo,
		studentRepo:  studentRepo,
		historyRepo:  historyRepo,
		audit:        audit,
	}
}

// SubmitQuiz grades answers against every question of the module. Questions
// left out of the submission are stored as unanswered and count as wrong.
func (s *AttemptService) SubmitQuiz(actor Actor, moduleID uint, answers []AnswerInput) (*SubmissionResult, error) {
	// Only students with a profile may submit
	student, err := studentFor(s.studentRepo, actor)
	if err != nil {
		return nil, err
	}
	module, err := s.moduleRepo.GetWithQuestions(moduleID)
	if err != nil {
		return nil, err
	}
	if len(module.Questions) == 0 {
		return nil, fmt.Errorf("%w: module has no questions", apperrors.ErrValidation)
	}

	// Index questions, keeping their order for grading
	items := make(map[uint]choiceItem, len(module.Questions))
	order := make([]uint, 0, len(module.Questions))
	for i := range module.Questions {
		q := &module.Questions[i]
		items[q.ID] = q
		order = append(order, q.ID)
	}

	selected, err := collectAnswers(answers, items)
	if err != nil {
		return nil, err
	}

	// Grade, then one history row per question
	result, graded := gradeItems(order, items, selected)
	rows := make([]entity.StudentQuizHistory, len(graded))
	for i, g := range graded {
		rows[i] = entity.StudentQuizHistory{
			QuestionID:     uintPtr(g.QuestionID),
			SelectedAnswer: g.SelectedAnswer,
			IsCorrect:      g.IsCorrect,
			Score:          boolScore(g.IsCorrect),
		}
	}

	// The repository numbers the attempt
	attemptNo, err := s.historyRepo.CreateQuizAttempt(student.ID, module.ID, rows)
	if err != nil {
		log.Printf("[AttemptService] failed to store quiz attempt student ID=%d module ID=%d: %v", student.ID, module.ID, err)
		return nil, err
	}
	result.AttemptNo = attemptNo

	s.audit.Record(actor, entity.AuditSubmitQuiz, entity.EntityModule, uintPtr(module.ID),
		map[string]interface{}{"attempt_no": attemptNo, "score": result.Score, "total": result.Total})
	return result, nil
}

// SubmitComprehension grades answers against the exercise's comprehension tests.
func (s *AttemptService) SubmitComprehension(actor Actor, voiceExerciseID uint, answers []AnswerInput) (*SubmissionResult, error) {
	student, err := studentFor(s.studentRepo, actor)
	if err != nil {
		return nil, err
	}
	exercise, err := s.exerciseRepo.GetWithTests(voiceExerciseID)
	if err != nil {
		return nil, err
	}
	if len(exercise.ComprehensionTests) == 0 {
		return nil, fmt.Errorf("%w: voice exercise has no comprehension tests", apperrors.ErrValidation)
	}

	// Index tests by ID
	items := make(map[uint]choiceItem, len(exercise.ComprehensionTests))
	order := make([]uint, 0, len(exercise.ComprehensionTests))
	for i := range exercise.ComprehensionTests {
		t := &exercise.ComprehensionTests[i]
		items[t.ID] = t
		order = append(order, t.ID)
	}

	selected, err := collectAnswers(answers, items)
	if err != nil {
		return nil, err
	}

	result, graded := gradeItems(order, items, selected)
	rows := make([]entity.ComprehensionHistory, len(graded))
	for i, g := range graded {
		rows[i] = entity.ComprehensionHistory{
			ComprehensionTestID: uintPtr(g.QuestionID),
			SelectedAnswer:      g.SelectedAnswer,
			IsCorrect:           g.IsCorrect,
			Score:               boolScore(g.IsCorrect),
		}
	}

	attemptNo, err := s.historyRepo.CreateComprehensionAttempt(student.ID, exercise.ID, rows)
	if err != nil {
		log.Printf("[AttemptService] failed to store comprehension attempt student ID=%d exercise ID=%d: %v", student.ID, exercise.ID, err)
		return nil, err
	}
	result.AttemptNo = attemptNo

	s.audit.Record(actor, entity.AuditSubmitTest, entity.EntityVoiceExercise, uintPtr(exercise.ID),
		map[string]interface{}{"attempt_no": attemptNo, "score": result.Score, "total": result.Total})
	return result, nil
}

// SubmitVoice scores a transcript against the exercise passage.
func (s *AttemptService) SubmitVoice(actor Actor, voiceExerciseID uint, transcript string) (*VoiceSubmissionResult, error) {
	// Validate the transcript before any lookup
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptySubmission
	}
	if utf8.RuneCountInString(transcript) > maxTranscriptLength {
		return nil, fmt.Errorf("%w: transcript is longer than %d characters", apperrors.ErrValidation, maxTranscriptLength)
	}

	student, err := studentFor(s.studentRepo, actor)
	if err != nil {
		return nil, err
	}
	exercise, err := s.exerciseRepo.GetByID(voiceExerciseID)
	if err != nil {
		return nil, err
	}

	// Score and store
	score := scoreTranscript(exercise.Passage, transcript)
	row := &entity.VoiceExercisesHistory{
		StudentID:       student.ID,
		VoiceExerciseID: exercise.ID,
		Transcript:      transcript,
		Accuracy:        score.Accuracy,
		WordsMatched:    score.WordsMatched,
		WordsTotal:      score.WordsTotal,
	}
	if err := s.historyRepo.CreateVoiceAttempt(row); err != nil {
		log.Printf("[AttemptService] failed to store voice attempt student ID=%d exercise ID=%d: %v", student.ID, exercise.ID, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditSubmitVoice, entity.EntityVoiceExercise, uintPtr(exercise.ID),
		map[string]interface{}{"accuracy": score.Accuracy})
	return &VoiceSubmissionResult{ID: row.ID, WordAccuracy: score}, nil
}

// collectAnswers validates a submission against the known items.
func collectAnswers(answers []AnswerInput, items map[uint]choiceItem) (map[uint]int, error) {
	if len(answers) == 0 {
		return nil, ErrEmptySubmission
	}
	selected := make(map[uint]int, len(answers))
	for _, a := range answers {
		item, ok := items[a.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: question %d does not belong to this activity", ErrUnknownQuestion, a.QuestionID)
		}
		if _, dup := selected[a.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %d answered more than once", apperrors.ErrValidation, a.QuestionID)
		}
		// -1 marks a skipped question
		if a.SelectedAnswer != unanswered && !item.IsValidOption(a.SelectedAnswer) {
			return nil, fmt.Errorf("%w: answer %d is not an option of question %d", apperrors.ErrValidation, a.SelectedAnswer, a.QuestionID)
		}
		selected[a.QuestionID] = a.SelectedAnswer
	}
	return selected, nil
}

// gradeItems grades every item in order; missing answers are unanswered.
func gradeItems(order []uint, items map[uint]choiceItem, selected map[uint]int) (*SubmissionResult, []AnswerResult) {
	graded := make([]AnswerResult, 0, len(order))
	score := 0
	for _, id := range order {
		choice, ok := selected[id]
		if !ok {
			choice = unanswered
		}
		item := items[id]
		correct := choice != unanswered && item.IsCorrect(choice)
		if correct {
			score++
		}
		graded = append(graded, AnswerResult{
			QuestionID:     id,
			SelectedAnswer: choice,
			IsCorrect:      correct,
		})
	}
	return &SubmissionResult{
		Score:      score,
		Total:      len(order),
		Percentage: percentage(score, len(order)),
		Results:    graded,
	}, graded
}

// boolScore is the per-row score: 1 when correct.
func boolScore(correct bool) int {
	if correct {
		return 1
	}
	return 0
}

// studentFor returns the student profile of a student actor.
func studentFor(studentRepo repository.StudentRepository, actor Actor) (*entity.Student, error) {
	if !actor.IsStudent() {
		return nil, fmt.Errorf("%w: only students can submit attempts", apperrors.ErrForbidden)
	}
	student, err := studentRepo.GetByUserID(actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: student profile missing", apperrors.ErrForbidden)
		}
		return nil, err
	}
	return student, nil
}
