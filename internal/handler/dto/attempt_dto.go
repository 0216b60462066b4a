package dto

import "github.com/yourusername/lms-api/internal/service"

// AnswerRequest is one selected option of a submission
type AnswerRequest struct {
	QuestionID     uint `json:"question_id" binding:"required"`
	SelectedAnswer *int `json:"selected_answer" binding:"required"`
}

// SubmitQuizRequest is the body of POST /api/submit-quiz
type SubmitQuizRequest struct {
	ModuleID uint            `json:"module_id" binding:"required"`
	Answers  []AnswerRequest `json:"answers" binding:"required,min=1,dive"`
}

// SubmitComprehensionRequest is the body of POST /api/submit-comprehension
type SubmitComprehensionRequest struct {
	VoiceExerciseID uint            `json:"voice_exercise_id" binding:"required"`
	Answers         []AnswerRequest `json:"answers" binding:"required,min=1,dive"`
}

// SubmitVoiceRequest is the body of POST /api/submit-voice-exercise
type SubmitVoiceRequest struct {
	VoiceExerciseID uint   `json:"voice_exercise_id" binding:"required"`
	Transcript      string `json:"transcript" binding:"required"`
}

// ToAnswerInputs converts submitted answers into service input
func ToAnswerInputs(answers []AnswerRequest) []service.AnswerInput {
	out := make([]service.AnswerInput, 0, len(answers))
	for _, a := range answers {
		out = append(out, service.AnswerInput{QuestionID: a.QuestionID, SelectedAnswer: *a.SelectedAnswer})
	}
	return out
}
