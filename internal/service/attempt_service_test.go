package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

type attemptFixture struct {
	svc          *AttemptService
	moduleRepo   *MockModuleRepository
	exerciseRepo *MockVoiceExerciseRepository
	studentRepo  *MockStudentRepository
	historyRepo  *MockHistoryRepository
}

func newAttemptFixture() *attemptFixture {
	f := &attemptFixture{
		moduleRepo:   new(MockModuleRepository),
		exerciseRepo: new(MockVoiceExerciseRepository),
		studentRepo:  new(MockStudentRepository),
		historyRepo:  new(MockHistoryRepository),
	}
	audit, _ := newTestAudit()
	f.svc = NewAttemptService(f.moduleRepo, f.exerciseRepo, f.studentRepo, f.historyRepo, audit)
	return f
}

var studentActor = Actor{UserID: 30, Role: entity.RoleStudent, IP: "10.1.1.1"}

func quizModule() *entity.Module {
	return &entity.Module{
		ID:    4,
		Title: "Fractions",
		Questions: []entity.Question{
			{ID: 101, ModuleID: 4, Question: "1/2 + 1/2?", Options: entity.StringArray{"1", "2"}, Answer: 0},
			{ID: 102, ModuleID: 4, Question: "1/4 of 8?", Options: entity.StringArray{"2", "4", "8"}, Answer: 0},
			{ID: 103, ModuleID: 4, Question: "3/3?", Options: entity.StringArray{"0", "1"}, Answer: 1},
		},
	}
}

func TestAttemptService_SubmitQuiz_GradesEveryQuestion(t *testing.T) {
	f := newAttemptFixture()
	f.studentRepo.On("GetByUserID", uint(30)).Return(&entity.Student{ID: 12, UserID: 30, Grade: "5"}, nil)
	f.moduleRepo.On("GetWithQuestions", uint(4)).Return(quizModule(), nil)

	var stored []entity.StudentQuizHistory
	f.historyRepo.On("CreateQuizAttempt", uint(12), uint(4), mock.AnythingOfType("[]entity.StudentQuizHistory")).
		Run(func(args mock.Arguments) { stored = args.Get(2).([]entity.StudentQuizHistory) }).
		Return(2, nil)

	result, err := f.svc.SubmitQuiz(studentActor, 4, []AnswerInput{
		{QuestionID: 101, SelectedAnswer: 0},
		{QuestionID: 102, SelectedAnswer: 2},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 33.33, result.Percentage)
	assert.Equal(t, 2, result.AttemptNo)

	require.Len(t, stored, 3)
	require.NotNil(t, stored[0].QuestionID)
	assert.Equal(t, uint(101), *stored[0].QuestionID)
	assert.True(t, stored[0].IsCorrect)
	assert.Equal(t, 1, stored[0].Score)
	assert.False(t, stored[1].IsCorrect)
	assert.Equal(t, unanswered, stored[2].SelectedAnswer)
	assert.False(t, stored[2].IsCorrect)
	assert.False(t, result.Results[2].IsCorrect)
}

func TestAttemptService_SubmitQuiz_WithholdsAnswerKey(t *testing.T) {
	f := newAttemptFixture()
	f.studentRepo.On("GetByUserID", uint(30)).Return(&entity.Student{ID: 12, UserID: 30}, nil)
	f.moduleRepo.On("GetWithQuestions", uint(4)).Return(quizModule(), nil)
	f.historyRepo.On("CreateQuizAttempt", uint(12), uint(4), mock.Anything).Return(1, nil)

	// a single skipped answer must not reveal the key of any question
	result, err := f.svc.SubmitQuiz(studentActor, 4, []AnswerInput{{QuestionID: 101, SelectedAnswer: unanswered}})
	require.NoError(t, err)
	require.Len(t, result.Results, 3)

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "correct_answer")
	for _, r := range result.Results {
		assert.Equal(t, unanswered, r.SelectedAnswer)
		assert.False(t, r.IsCorrect)
	}
}

func TestAttemptService_SubmitQuiz_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		answers []AnswerInput
		wantErr error
	}{
		{name: "educator cannot submit", actor: Actor{UserID: 2, Role: entity.RoleEducator}, answers: []AnswerInput{{QuestionID: 101}}, wantErr: apperrors.ErrForbidden},
		{name: "empty submission", actor: studentActor, answers: nil, wantErr: ErrEmptySubmission},
		{name: "unknown question", actor: studentActor, answers: []AnswerInput{{QuestionID: 999, SelectedAnswer: 0}}, wantErr: ErrUnknownQuestion},
		{name: "duplicate question", actor: studentActor, answers: []AnswerInput{{QuestionID: 101}, {QuestionID: 101}}, wantErr: apperrors.ErrValidation},
		{name: "option out of range", actor: studentActor, answers: []AnswerInput{{QuestionID: 101, SelectedAnswer: 5}}, wantErr: apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAttemptFixture()
			f.studentRepo.On("GetByUserID", uint(30)).Return(&entity.Student{ID: 12, UserID: 30}, nil)
			f.moduleRepo.On("GetWithQuestions", uint(4)).Return(quizModule(), nil)

			result, err := f.svc.SubmitQuiz(tt.actor, 4, tt.answers)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)
			f.historyRepo.AssertNotCalled(t, "CreateQuizAttempt", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAttemptService_SubmitQuiz_ModuleNotFound(t *testing.T) {
	f := newAttemptFixture()
	f.studentRepo.On("GetByUserID", uint(30)).Return(&entity.Student{ID: 12}, nil)
	f.moduleRepo.On("GetWithQuestions", uint(77)).Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.SubmitQuiz(studentActor, 77, []AnswerInput{{QuestionID: 1}})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAttemptService_SubmitComprehension(t *testing.T) {
	f := newAttemptFixture()
	f.studentRepo.On("GetByUserID", uint(30)).Return(&entity.Student{ID: 12}, nil)
	f.exerciseRepo.On("GetWithTests", uint(8)).Return(&entity.VoiceExercise{
		ID:    8,
		Title: "The Ant",
		ComprehensionTests: []entity.ComprehensionTest{
			{ID: 201, VoiceExerciseID: 8, Question: "Who?", Options: entity.StringArray{"ant", "bee"}, Answer: 0},
			{ID: 202, VoiceExerciseID: 8, Question: "Where?", Options: entity.StringArray{"hill", "sea"}, Answer: 0},
		},
	}, nil)
	f.historyRepo.On("CreateComprehensionAttempt", uint(12), uint(8), mock.AnythingOfType("[]entity.ComprehensionHistory")).Return(1, nil)

	result, err := f.svc.SubmitComprehension(studentActor, 8, []AnswerInput{
		{QuestionID: 201, SelectedAnswer: 0},
		{QuestionID: 202, SelectedAnswer: 0},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 100.0, result.Percentage)
	assert.Equal(t, 1, result.AttemptNo)
}

func TestAttemptService_SubmitVoice(t *testing.T) {
	f := newAttemptFixture()
	f.studentRepo.On("GetByUserID", uint(30)).Return(&entity.Student{ID: 12}, nil)
	f.exerciseRepo.On("GetByID", uint(8)).Return(&entity.VoiceExercise{ID: 8, Passage: "An ant lived on a hill."}, nil)

	var stored *entity.VoiceExercisesHistory
	f.historyRepo.On("CreateVoiceAttempt", mock.AnythingOfType("*entity.VoiceExercisesHistory")).
		Run(func(args mock.Arguments) {
			stored = args.Get(0).(*entity.VoiceExercisesHistory)
			stored.ID = 55
		}).
		Return(nil)

	result, err := f.svc.SubmitVoice(studentActor, 8, "an ant lived on hill")

	require.NoError(t, err)
	assert.Equal(t, uint(55), result.ID)
	assert.Equal(t, 5, result.WordsMatched)
	assert.Equal(t, 6, result.WordsTotal)
	assert.Equal(t, 83.33, result.Accuracy)
	assert.Equal(t, uint(12), stored.StudentID)
	assert.Equal(t, "an ant lived on hill", stored.Transcript)
}

func TestAttemptService_SubmitVoice_EmptyTranscript(t *testing.T) {
	f := newAttemptFixture()

	_, err := f.svc.SubmitVoice(studentActor, 8, "  ")

	assert.ErrorIs(t, err, ErrEmptySubmission)
}
