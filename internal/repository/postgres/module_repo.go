package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// ModuleRepo implements repository.ModuleRepository
type ModuleRepo struct {
	db *gorm.DB
}

// NewModuleRepo creates the module repository
func NewModuleRepo(db *gorm.DB) *ModuleRepo {
	return &ModuleRepo{db: db}
}

// Create stores a module
func (r *ModuleRepo) Create(module *entity.Module) error {
	// Questions are created separately
	return translateError(r.db.Omit(clause.Associations).Create(module).Error, "module")
}

// GetByID returns a module without its questions
func (r *ModuleRepo) GetByID(id uint) (*entity.Module, error) {
	var module entity.Module
	if err := r.db.First(&module, id).Error; err != nil {
		return nil, translateError(err, "module")
	}
	return &module, nil
}

// GetWithQuestions returns a module with its questions
func (r *ModuleRepo) GetWithQuestions(id uint) (*entity.Module, error) {
	var module entity.Module
	// Questions in creation order
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&module, id).Error
	if err != nil {
		return nil, translateError(err, "module")
	}
	return &module, nil
}

// Update saves every column of the module
func (r *ModuleRepo) Update(module *entity.Module) error {
	return translateError(r.db.Omit(clause.Associations).Save(module).Error, "module")
}

// Delete removes a module; questions and history cascade
func (r *ModuleRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.Module{}, id)
	if result.Error != nil {
		return translateError(result.Error, "module")
	}
	// Nothing deleted means the row was already gone
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns modules matching filter, newest first
func (r *ModuleRepo) List(filter repository.ModuleFilter) ([]entity.Module, error) {
	var modules []entity.Module
	err := applyModuleFilter(r.db.Model(&entity.Module{}), filter).
		Order("created_at DESC, id DESC").
		Find(&modules).Error
	if err != nil {
		return nil, translateError(err, "modules")
	}
	return modules, nil
}

// Count returns the number of modules matching filter
func (r *ModuleRepo) Count(filter repository.ModuleFilter) (int64, error) {
	var count int64
	if err := applyModuleFilter(r.db.Model(&entity.Module{}), filter).Count(&count).Error; err != nil {
		return 0, translateError(err, "modules")
	}
	return count, nil
}

// applyModuleFilter narrows query to the set filter fields; empty fields match all.
func applyModuleFilter(query *gorm.DB, filter repository.ModuleFilter) *gorm.DB {
	if filter.Grade != "" {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.EducatorID != nil {
		query = query.Where("educator_id = ?", *filter.EducatorID)
	}
	return query
}

// QuestionRepo implements repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo creates the question repository
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// Create stores a question
func (r *QuestionRepo) Create(question *entity.Question) error {
	return translateError(r.db.Create(question).Error, "question")
}

// GetByID returns a question
func (r *QuestionRepo) GetByID(id uint) (*entity.Question, error) {
	var question entity.Question
	if err := r.db.First(&question, id).Error; err != nil {
		return nil, translateError(err, "question")
	}
	return &question, nil
}

// Update saves every column of the question
func (r *QuestionRepo) Update(question *entity.Question) error {
	return translateError(r.db.Save(question).Error, "question")
}

// Delete removes a question; history rows keep a NULL reference
func (r *QuestionRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.Question{}, id)
	if result.Error != nil {
		return translateError(result.Error, "question")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListByModule returns the questions of a module in creation order
func (r *QuestionRepo) ListByModule(moduleID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("module_id = ?", moduleID).Order("id ASC").Find(&questions).Error
	if err != nil {
		return nil, translateError(err, "questions")
	}
	return questions, nil
}
