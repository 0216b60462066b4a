package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

const (
	moduleListCachePrefix = "modules:list:"
	moduleListCacheTTL    = 5 * time.Minute
	mediaCleanupTimeout   = 10 * time.Second
	minQuestionOptions    = 2
	maxQuestionOptions    = 6
)

// ModuleInput carries the fields of a new module.
type ModuleInput struct {
	Title       string
	Description string
	Type        string
	Content     string
	MediaURL    string
	Grade       string
	Subject     string
}

// ModuleUpdate is a partial module update; nil fields are left unchanged.
type ModuleUpdate struct {
	ID          uint
	Title       *string
	Description *string
	Type        *string
	Content     *string
	MediaURL    *string
	Grade       *string
	Subject     *string
}

// QuestionInput carries a multiple-choice question.
type QuestionInput struct {
	Question string
	Options  []string
	Answer   int
}

// QuestionUpdate is a partial question update; nil fields are left unchanged.
type QuestionUpdate struct {
	ID       uint
	Question *string
	Options  []string
	Answer   *int
}

// MediaCleaner deletes uploaded media that a module no longer references.
type MediaCleaner interface {
	RemoveByURL(ctx context.Context, url string) error
}

// ModuleService manages modules and their questions.
type ModuleService struct {
	moduleRepo   repository.ModuleRepository
	questionRepo repository.QuestionRepository
	educatorRepo repository.EducatorRepository
	cacheRepo    repository.CacheRepository
	audit        *AuditService
	media        MediaCleaner
}

// NewModuleService creates the module service
func NewModuleService(
	moduleRepo repository.ModuleRepository,
	questionRepo repository.QuestionRepository,
	educatorRepo repository.EducatorRepository,
	cacheRepo repository.CacheRepository,
	audit *AuditService,
) *ModuleService {
	return &ModuleService{
		moduleRepo:   moduleRepo,
		questionRepo: questionRepo,
		educatorRepo: educatorRepo,
		cacheRepo:    cacheRepo,
		audit:        audit,
	}
}

// SetMediaCleaner enables removal of replaced and orphaned module media.
func (s *ModuleService) SetMediaCleaner(media MediaCleaner) {
	s.media = media
}

// CreateModule stores a module owned by the calling educator.
func (s *ModuleService) CreateModule(actor Actor, input ModuleInput) (*entity.Module, error) {
	// Normalize input
	module := &entity.Module{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Type:        strings.ToLower(strings.TrimSpace(input.Type)),
		Content:     input.Content,
		MediaURL:    strings.TrimSpace(input.MediaURL),
		Grade:       strings.TrimSpace(input.Grade),
		Subject:     strings.TrimSpace(input.Subject),
	}
	if err := validateModule(module); err != nil {
		return nil, err
	}

	// Admin-created modules have no owner
	owner, err := ownerFor(s.educatorRepo, actor)
	if err != nil {
		return nil, err
	}
	module.EducatorID = owner

	if err := s.moduleRepo.Create(module); err != nil {
		log.Printf("[ModuleService] failed to create module %q: %v", module.Title, err)
		return nil, err
	}
	// Cached listings are stale now
	s.invalidateListCache()

	s.audit.Record(actor, entity.AuditCreateModule, entity.EntityModule, uintPtr(module.ID),
		map[string]interface{}{"title": module.Title, "grade": module.Grade, "subject": module.Subject})
	return module, nil
}

// ListModules returns modules newest first, served from the cache when possible.
func (s *ModuleService) ListModules(filter repository.ModuleFilter) ([]entity.Module, error) {
	// Validate the type filter
	filter.Type = strings.ToLower(strings.TrimSpace(filter.Type))
	if filter.Type != "" && !entity.IsValidModuleType(filter.Type) {
		return nil, fmt.Errorf("%w: type must be one of video, text, image", apperrors.ErrValidation)
	}

	// Serve from cache; a cache failure falls through to the database
	key := moduleListCacheKey(filter)
	var cached []entity.Module
	if err := s.cacheRepo.GetJSON(key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[ModuleService] cache read failed for %s: %v", key, err)
	}

	modules, err := s.moduleRepo.List(filter)
	if err != nil {
		return nil, err
	}
	if modules == nil {
		modules = []entity.Module{}
	}

	// Fill the cache
	if err := s.cacheRepo.SetJSON(key, modules, moduleListCacheTTL); err != nil {
		log.Printf("[ModuleService] cache write failed for %s: %v", key, err)
	}
	return modules, nil
}

// GetModule returns the module with its questions.
func (s *ModuleService) GetModule(id uint) (*entity.Module, error) {
	return s.moduleRepo.GetWithQuestions(id)
}

// UpdateModule applies a partial update; educators may only touch their own modules.
func (s *ModuleService) UpdateModule(actor Actor, input ModuleUpdate) (*entity.Module, error) {
	if input.ID == 0 {
		return nil, fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	module, err := s.moduleRepo.GetByID(input.ID)
	if err != nil {
		return nil, err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, module); err != nil {
		return nil, err
	}
	previousMedia := module.MediaURL

	// Apply only the fields that were sent
	if input.Title != nil {
		module.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		module.Description = strings.TrimSpace(*input.Description)
	}
	if input.Type != nil {
		module.Type = strings.ToLower(strings.TrimSpace(*input.Type))
	}
	if input.Content != nil {
		module.Content = *input.Content
	}
	if input.MediaURL != nil {
		module.MediaURL = strings.TrimSpace(*input.MediaURL)
	}
	if input.Grade != nil {
		module.Grade = strings.TrimSpace(*input.Grade)
	}
	if input.Subject != nil {
		module.Subject = strings.TrimSpace(*input.Subject)
	}
	if err := validateModule(module); err != nil {
		return nil, err
	}

	if err := s.moduleRepo.Update(module); err != nil {
		log.Printf("[ModuleService] failed to update module ID=%d: %v", module.ID, err)
		return nil, err
	}
	s.invalidateListCache()
	// Replaced uploads are no longer reachable from any module
	if previousMedia != "" && previousMedia != module.MediaURL {
		s.discardMedia(previousMedia)
	}

	s.audit.Record(actor, entity.AuditUpdateModule, entity.EntityModule, uintPtr(module.ID),
		map[string]interface{}{"title": module.Title})
	return module, nil
}

// DeleteModule removes the module together with its questions and history.
func (s *ModuleService) DeleteModule(actor Actor, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	module, err := s.moduleRepo.GetByID(id)
	if err != nil {
		return err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, module); err != nil {
		return err
	}

	// Questions and history cascade
	if err := s.moduleRepo.Delete(id); err != nil {
		log.Printf("[ModuleService] failed to delete module ID=%d: %v", id, err)
		return err
	}
	s.invalidateListCache()
	if module.MediaURL != "" {
		s.discardMedia(module.MediaURL)
	}

	s.audit.Record(actor, entity.AuditDeleteModule, entity.EntityModule, uintPtr(id),
		map[string]interface{}{"title": module.Title})
	return nil
}

// CreateQuestion adds a question to a module the actor may edit.
func (s *ModuleService) CreateQuestion(actor Actor, moduleID uint, input QuestionInput) (*entity.Question, error) {
	if moduleID == 0 {
		return nil, fmt.Errorf("%w: module_id is required", apperrors.ErrValidation)
	}
	module, err := s.moduleRepo.GetByID(moduleID)
	if err != nil {
		return nil, err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, module); err != nil {
		return nil, err
	}

	// Questions inherit the module's ownership
	question := &entity.Question{
		ModuleID: module.ID,
		Question: strings.TrimSpace(input.Question),
		Options:  cleanOptions(input.Options),
		Answer:   input.Answer,
	}
	if err := validateChoiceItem(question.Question, question.Options, question.Answer); err != nil {
		return nil, err
	}

	if err := s.questionRepo.Create(question); err != nil {
		log.Printf("[ModuleService] failed to create question for module ID=%d: %v", module.ID, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditCreateQuestion, entity.EntityQuestion, uintPtr(question.ID),
		map[string]interface{}{"module_id": module.ID})
	return question, nil
}

// ListQuestions returns the questions of a module ordered by id.
func (s *ModuleService) ListQuestions(moduleID uint) ([]entity.Question, error) {
	// Unknown module is a 404
	if _, err := s.moduleRepo.GetByID(moduleID); err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.ListByModule(moduleID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []entity.Question{}
	}
	return questions, nil
}

// UpdateQuestion applies a partial update to a question.
func (s *ModuleService) UpdateQuestion(actor Actor, input QuestionUpdate) (*entity.Question, error) {
	if input.ID == 0 {
		return nil, fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	question, module, err := s.questionWithModule(input.ID)
	if err != nil {
		return nil, err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, module); err != nil {
		return nil, err
	}

	// Apply only the fields that were sent
	if input.Question != nil {
		question.Question = strings.TrimSpace(*input.Question)
	}
	if input.Options != nil {
		question.Options = cleanOptions(input.Options)
	}
	if input.Answer != nil {
		question.Answer = *input.Answer
	}
	if err := validateChoiceItem(question.Question, question.Options, question.Answer); err != nil {
		return nil, err
	}

	if err := s.questionRepo.Update(question); err != nil {
		log.Printf("[ModuleService] failed to update question ID=%d: %v", question.ID, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditUpdateQuestion, entity.EntityQuestion, uintPtr(question.ID),
		map[string]interface{}{"module_id": question.ModuleID})
	return question, nil
}

// DeleteQuestion removes a question.
func (s *ModuleService) DeleteQuestion(actor Actor, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	question, module, err := s.questionWithModule(id)
	if err != nil {
		return err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, module); err != nil {
		return err
	}

	// Past answers keep their rows with a NULL question
	if err := s.questionRepo.Delete(id); err != nil {
		log.Printf("[ModuleService] failed to delete question ID=%d: %v", id, err)
		return err
	}

	s.audit.Record(actor, entity.AuditDeleteQuestion, entity.EntityQuestion, uintPtr(id),
		map[string]interface{}{"module_id": question.ModuleID})
	return nil
}

// questionWithModule loads a question and the module that owns it.
func (s *ModuleService) questionWithModule(id uint) (*entity.Question, *entity.Module, error) {
	question, err := s.questionRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	module, err := s.moduleRepo.GetByID(question.ModuleID)
	if err != nil {
		return nil, nil, err
	}
	return question, module, nil
}

// discardMedia removes an upload, logging failures. A leftover object never
// fails the module write.
func (s *ModuleService) discardMedia(url string) {
	// No storage configured
	if s.media == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mediaCleanupTimeout)
	defer cancel()
	if err := s.media.RemoveByURL(ctx, url); err != nil {
		log.Printf("[ModuleService] failed to remove media %s: %v", url, err)
	}
}

// invalidateListCache drops every cached module listing.
func (s *ModuleService) invalidateListCache() {
	if _, err := s.cacheRepo.DeleteByPrefix(moduleListCachePrefix); err != nil {
		log.Printf("[ModuleService] failed to invalidate module list cache: %v", err)
	}
}

// moduleListCacheKey builds one key per filter combination.
func moduleListCacheKey(filter repository.ModuleFilter) string {
	educator := ""
	if filter.EducatorID != nil {
		educator = fmt.Sprintf("%d", *filter.EducatorID)
	}
	return fmt.Sprintf("%sgrade=%s|subject=%s|type=%s|educator=%s",
		moduleListCachePrefix, filter.Grade, filter.Subject, filter.Type, educator)
}

// validateModule checks the required fields and the module type.
func validateModule(m *entity.Module) error {
	if m.Title == "" || m.Grade == "" || m.Subject == "" || m.Type == "" {
		return fmt.Errorf("%w: title, type, grade and subject are required", apperrors.ErrValidation)
	}
	if !entity.IsValidModuleType(m.Type) {
		return fmt.Errorf("%w: type must be one of video, text, image", apperrors.ErrValidation)
	}
	return nil
}

// validateChoiceItem checks a multiple-choice question and its answer index.
func validateChoiceItem(question string, options []string, answer int) error {
	if question == "" {
		return fmt.Errorf("%w: question is required", apperrors.ErrValidation)
	}
	if len(options) < minQuestionOptions || len(options) > maxQuestionOptions {
		return fmt.Errorf("%w: between %d and %d options are required", apperrors.ErrValidation, minQuestionOptions, maxQuestionOptions)
	}
	for _, option := range options {
		if option == "" {
			return fmt.Errorf("%w: options cannot be empty", apperrors.ErrValidation)
		}
	}
	if answer < 0 || answer >= len(options) {
		return fmt.Errorf("%w: answer must be an option index between 0 and %d", apperrors.ErrValidation, len(options)-1)
	}
	return nil
}

// cleanOptions trims every option, keeping their order.
func cleanOptions(options []string) entity.StringArray {
	cleaned := make(entity.StringArray, len(options))
	for i, option := range options {
		cleaned[i] = strings.TrimSpace(option)
	}
	return cleaned
}
