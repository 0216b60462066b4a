package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// ModuleFilter narrows module listings; zero values match everything.
type ModuleFilter struct {
	Grade      string
	Subject    string
	Type       string
	EducatorID *uint
}

// ModuleRepository defines persistence for modules.
type ModuleRepository interface {
	Create(module *entity.Module) error
	GetByID(id uint) (*entity.Module, error)
	// GetWithQuestions returns the module with its questions ordered by id.
	GetWithQuestions(id uint) (*entity.Module, error)
	Update(module *entity.Module) error
	Delete(id uint) error
	List(filter ModuleFilter) ([]entity.Module, error)
	Count(filter ModuleFilter) (int64, error)
}

// QuestionRepository defines persistence for module questions.
type QuestionRepository interface {
	Create(question *entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	Update(question *entity.Question) error
	Delete(id uint) error
	ListByModule(moduleID uint) ([]entity.Question, error)
}
