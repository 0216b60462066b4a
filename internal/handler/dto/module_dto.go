package dto

import (
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/service"
)

// CreateModuleRequest is the body of POST /api/create-module
type CreateModuleRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required,oneof=video text image"`
	Content     string `json:"content"`
	MediaURL    string `json:"media_url" binding:"omitempty,max=500"`
	Grade       string `json:"grade" binding:"required,max=20"`
	Subject     string `json:"subject" binding:"required,max=100"`
}

// ToInput converts the request to service input
func (r CreateModuleRequest) ToInput() service.ModuleInput {
	return service.ModuleInput{
		Title:       r.Title,
		Description: r.Description,
		Type:        r.Type,
		Content:     r.Content,
		MediaURL:    r.MediaURL,
		Grade:       r.Grade,
		Subject:     r.Subject,
	}
}

// UpdateModuleRequest is the body of PUT /api/edit-module
type UpdateModuleRequest struct {
	ID          uint    `json:"id" binding:"required"`
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description"`
	Type        *string `json:"type" binding:"omitempty,oneof=video text image"`
	Content     *string `json:"content"`
	MediaURL    *string `json:"media_url" binding:"omitempty,max=500"`
	Grade       *string `json:"grade" binding:"omitempty,max=20"`
	Subject     *string `json:"subject" binding:"omitempty,max=100"`
}

// ToInput converts the request to a partial service update
func (r UpdateModuleRequest) ToInput() service.ModuleUpdate {
	return service.ModuleUpdate{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Type:        r.Type,
		Content:     r.Content,
		MediaURL:    r.MediaURL,
		Grade:       r.Grade,
		Subject:     r.Subject,
	}
}

// CreateQuestionRequest is the body of POST /api/create-question
type CreateQuestionRequest struct {
	ModuleID uint     `json:"module_id" binding:"required"`
	Question string   `json:"question" binding:"required"`
	Options  []string `json:"options" binding:"required,min=2,max=6"`
	Answer   *int     `json:"answer" binding:"required,min=0"`
}

// ToInput converts the request to service input
func (r CreateQuestionRequest) ToInput() service.QuestionInput {
	return service.QuestionInput{Question: r.Question, Options: r.Options, Answer: *r.Answer}
}

// UpdateQuestionRequest is the body of PUT /api/edit-question and
// PUT /api/edit-comprehension-test
type UpdateQuestionRequest struct {
	ID       uint     `json:"id" binding:"required"`
	Question *string  `json:"question"`
	Options  []string `json:"options" binding:"omitempty,min=2,max=6"`
	Answer   *int     `json:"answer" binding:"omitempty,min=0"`
}

// ToInput converts the request to a partial service update
func (r UpdateQuestionRequest) ToInput() service.QuestionUpdate {
	return service.QuestionUpdate{ID: r.ID, Question: r.Question, Options: r.Options, Answer: r.Answer}
}

// QuestionDTO is a question as served to clients. Answer is omitted for students.
type QuestionDTO struct {
	ID       uint     `json:"id"`
	ModuleID uint     `json:"module_id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   *int     `json:"answer,omitempty"`
}

// ModuleDTO is a module with its questions
type ModuleDTO struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        string        `json:"type"`
	Content     string        `json:"content"`
	MediaURL    string        `json:"media_url"`
	Grade       string        `json:"grade"`
	Subject     string        `json:"subject"`
	EducatorID  *uint         `json:"educator_id,omitempty"`
	Questions   []QuestionDTO `json:"questions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewQuestionDTOs maps questions, exposing answers only when withAnswers is set.
func NewQuestionDTOs(questions []entity.Question, withAnswers bool) []QuestionDTO {
	out := make([]QuestionDTO, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		item := QuestionDTO{
			ID:       q.ID,
			ModuleID: q.ModuleID,
			Question: q.Question,
			Options:  append([]string{}, q.Options...),
		}
		if withAnswers {
			answer := q.Answer
			item.Answer = &answer
		}
		out = append(out, item)
	}
	return out
}

// NewModuleDTO converts a module and its questions, including answers only when withAnswers is set.
func NewModuleDTO(m *entity.Module, withAnswers bool) ModuleDTO {
	return ModuleDTO{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Type:        m.Type,
		Content:     m.Content,
		MediaURL:    m.MediaURL,
		Grade:       m.Grade,
		Subject:     m.Subject,
		EducatorID:  m.EducatorID,
		Questions:   NewQuestionDTOs(m.Questions, withAnswers),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
