package dto

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/service"
)

// CreateVoiceExerciseRequest is the body of POST /api/create-voice-exercise
type CreateVoiceExerciseRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Passage string `json:"passage" binding:"required"`
	Grade   string `json:"grade" binding:"required,max=20"`
	Subject string `json:"subject" binding:"omitempty,max=100"`
}

// ToInput converts the request to service input
func (r CreateVoiceExerciseRequest) ToInput() service.VoiceExerciseInput {
	return service.VoiceExerciseInput{Title: r.Title, Passage: r.Passage, Grade: r.Grade, Subject: r.Subject}
}

// UpdateVoiceExerciseRequest is the body of PUT /api/edit-voice-exercise
type UpdateVoiceExerciseRequest struct {
	ID      uint    `json:"id" binding:"required"`
	Title   *string `json:"title" binding:"omitempty,max=200"`
	Passage *string `json:"passage"`
	Grade   *string `json:"grade" binding:"omitempty,max=20"`
	Subject *string `json:"subject" binding:"omitempty,max=100"`
}

// ToInput converts the request to a partial service update
func (r UpdateVoiceExerciseRequest) ToInput() service.VoiceExerciseUpdate {
	return service.VoiceExerciseUpdate{ID: r.ID, Title: r.Title, Passage: r.Passage, Grade: r.Grade, Subject: r.Subject}
}

// CreateComprehensionTestRequest is the body of POST /api/create-comprehension-test
type CreateComprehensionTestRequest struct {
	VoiceExerciseID uint     `json:"voice_exercise_id" binding:"required"`
	Question        string   `json:"question" binding:"required"`
	Options         []string `json:"options" binding:"required,min=2,max=6"`
	Answer          *int     `json:"answer" binding:"required,min=0"`
}

// ToInput converts the request to service input
func (r CreateComprehensionTestRequest) ToInput() service.QuestionInput {
	return service.QuestionInput{Question: r.Question, Options: r.Options, Answer: *r.Answer}
}

// ComprehensionTestDTO hides the answer from students
type ComprehensionTestDTO struct {
	ID              uint     `json:"id"`
	VoiceExerciseID uint     `json:"voice_exercise_id"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	Answer          *int     `json:"answer,omitempty"`
}

// VoiceExerciseDTO is an exercise with its comprehension tests
type VoiceExerciseDTO struct {
	ID                 uint                   `json:"id"`
	Title              string                 `json:"title"`
	Passage            string                 `json:"passage"`
	Grade              string                 `json:"grade"`
	Subject            string                 `json:"subject"`
	EducatorID         *uint                  `json:"educator_id,omitempty"`
	ComprehensionTests []ComprehensionTestDTO `json:"comprehension_tests"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// NewComprehensionTestDTOs converts tests, including answers only when withAnswers is set.
func NewComprehensionTestDTOs(tests []entity.ComprehensionTest, withAnswers bool) []ComprehensionTestDTO {
	out := make([]ComprehensionTestDTO, 0, len(tests))
	for i := range tests {
		t := &tests[i]
		item := ComprehensionTestDTO{
			ID:              t.ID,
			VoiceExerciseID: t.VoiceExerciseID,
			Question:        t.Question,
			Options:         append([]string{}, t.Options...),
		}
		if withAnswers {
			answer := t.Answer
			item.Answer = &answer
		}
		out = append(out, item)
	}
	return out
}

// NewVoiceExerciseDTO converts an exercise and its tests
func NewVoiceExerciseDTO(v *entity.VoiceExercise, withAnswers bool) VoiceExerciseDTO {
	return VoiceExerciseDTO{
		ID:                 v.ID,
		Title:              v.Title,
		Passage:            v.Passage,
		Grade:              v.Grade,
		Subject:            v.Subject,
		EducatorID:         v.EducatorID,
		ComprehensionTests: NewComprehensionTestDTOs(v.ComprehensionTests, withAnswers),
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}
