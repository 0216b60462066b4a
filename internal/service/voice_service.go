package service

import (
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// VoiceExerciseInput carries the fields of a new voice exercise.
type VoiceExerciseInput struct {
	Title   string
	Passage string
	Grade   string
	Subject string
}

// VoiceExerciseUpdate is a partial update; nil fields are left unchanged.
type VoiceExerciseUpdate struct {
	ID      uint
	Title   *string
	Passage *string
	Grade   *string
	Subject *string
}

// VoiceService manages voice exercises and their comprehension tests.
type VoiceService struct {
	exerciseRepo repository.VoiceExerciseRepository
	testRepo     repository.ComprehensionTestRepository
	educatorRepo repository.EducatorRepository
	audit        *AuditService
}

// NewVoiceService creates the voice exercise service
func NewVoiceService(
	exerciseRepo repository.VoiceExerciseRepository,
	testRepo repository.ComprehensionTestRepository,
	educatorRepo repository.EducatorRepository,
	audit *AuditService,
) *VoiceService {
	return &VoiceService{
		exerciseRepo: exerciseRepo,
		testRepo:     testRepo,
		educatorRepo: educatorRepo,
		audit:        audit,
	}
}

// CreateExercise stores a read-aloud passage owned by the calling educator.
func (s *VoiceService) CreateExercise(actor Actor, input VoiceExerciseInput) (*entity.VoiceExercise, error) {
	exercise := &entity.VoiceExercise{
		Title:   strings.TrimSpace(input.Title),
		Passage: strings.TrimSpace(input.Passage),
		Grade:   strings.TrimSpace(input.Grade),
		Subject: strings.TrimSpace(input.Subject),
	}
	if err := validateExercise(exercise); err != nil {
		return nil, err
	}

	// Admin-created exercises have no owner
	owner, err := ownerFor(s.educatorRepo, actor)
	if err != nil {
		return nil, err
	}
	exercise.EducatorID = owner

	if err := s.exerciseRepo.Create(exercise); err != nil {
		log.Printf("[VoiceService] failed to create voice exercise %q: %v", exercise.Title, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditCreateVoice, entity.EntityVoiceExercise, uintPtr(exercise.ID),
		map[string]interface{}{"title": exercise.Title, "grade": exercise.Grade})
	return exercise, nil
}

// ListExercises returns exercises matching filter, newest first.
func (s *VoiceService) ListExercises(filter repository.VoiceExerciseFilter) ([]entity.VoiceExercise, error) {
	exercises, err := s.exerciseRepo.List(filter)
	if err != nil {
		return nil, err
	}
	if exercises == nil {
		exercises = []entity.VoiceExercise{}
	}
	return exercises, nil
}

// GetExercise returns the exercise with its comprehension tests.
func (s *VoiceService) GetExercise(id uint) (*entity.VoiceExercise, error) {
	return s.exerciseRepo.GetWithTests(id)
}

// UpdateExercise applies a partial update; educators may only touch their own exercises.
func (s *VoiceService) UpdateExercise(actor Actor, input VoiceExerciseUpdate) (*entity.VoiceExercise, error) {
	if input.ID == 0 {
		return nil, fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	exercise, err := s.exerciseRepo.GetByID(input.ID)
	if err != nil {
		return nil, err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, exercise); err != nil {
		return nil, err
	}

	// Apply only the fields that were sent
	if input.Title != nil {
		exercise.Title = strings.TrimSpace(*input.Title)
	}
	if input.Passage != nil {
		exercise.Passage = strings.TrimSpace(*input.Passage)
	}
	if input.Grade != nil {
		exercise.Grade = strings.TrimSpace(*input.Grade)
	}
	if input.Subject != nil {
		exercise.Subject = strings.TrimSpace(*input.Subject)
	}
	if err := validateExercise(exercise); err != nil {
		return nil, err
	}

	if err := s.exerciseRepo.Update(exercise); err != nil {
		log.Printf("[VoiceService] failed to update voice exercise ID=%d: %v", exercise.ID, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditUpdateVoice, entity.EntityVoiceExercise, uintPtr(exercise.ID),
		map[string]interface{}{"title": exercise.Title})
	return exercise, nil
}

// DeleteExercise removes an exercise with its tests and history.
func (s *VoiceService) DeleteExercise(actor Actor, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	exercise, err := s.exerciseRepo.GetByID(id)
	if err != nil {
		return err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, exercise); err != nil {
		return err
	}

	// Tests and history rows cascade
	if err := s.exerciseRepo.Delete(id); err != nil {
		log.Printf("[VoiceService] failed to delete voice exercise ID=%d: %v", id, err)
		return err
	}

	s.audit.Record(actor, entity.AuditDeleteVoice, entity.EntityVoiceExercise, uintPtr(id),
		map[string]interface{}{"title": exercise.Title})
	return nil
}

// CreateTest adds a comprehension test to an exercise the actor may edit.
func (s *VoiceService) CreateTest(actor Actor, voiceExerciseID uint, input QuestionInput) (*entity.ComprehensionTest, error) {
	if voiceExerciseID == 0 {
		return nil, fmt.Errorf("%w: voice_exercise_id is required", apperrors.ErrValidation)
	}
	exercise, err := s.exerciseRepo.GetByID(voiceExerciseID)
	if err != nil {
		return nil, err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, exercise); err != nil {
		return nil, err
	}

	// Tests inherit the exercise's ownership
	test := &entity.ComprehensionTest{
		VoiceExerciseID: exercise.ID,
		Question:        strings.TrimSpace(input.Question),
		Options:         cleanOptions(input.Options),
		Answer:          input.Answer,
	}
	if err := validateChoiceItem(test.Question, test.Options, test.Answer); err != nil {
		return nil, err
	}

	if err := s.testRepo.Create(test); err != nil {
		log.Printf("[VoiceService] failed to create comprehension test for exercise ID=%d: %v", exercise.ID, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditCreateTest, entity.EntityComprehensionTest, uintPtr(test.ID),
		map[string]interface{}{"voice_exercise_id": exercise.ID})
	return test, nil
}

// ListTests returns the tests of an exercise.
func (s *VoiceService) ListTests(voiceExerciseID uint) ([]entity.ComprehensionTest, error) {
	// 404 for an unknown exercise rather than an empty list
	if _, err := s.exerciseRepo.GetByID(voiceExerciseID); err != nil {
		return nil, err
	}
	tests, err := s.testRepo.ListByExercise(voiceExerciseID)
	if err != nil {
		return nil, err
	}
	if tests == nil {
		tests = []entity.ComprehensionTest{}
	}
	return tests, nil
}

// UpdateTest applies a partial test update.
func (s *VoiceService) UpdateTest(actor Actor, input QuestionUpdate) (*entity.ComprehensionTest, error) {
	if input.ID == 0 {
		return nil, fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	test, exercise, err := s.testWithExercise(input.ID)
	if err != nil {
		return nil, err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, exercise); err != nil {
		return nil, err
	}

	// Apply only the fields that were sent
	if input.Question != nil {
		test.Question = strings.TrimSpace(*input.Question)
	}
	if input.Options != nil {
		test.Options = cleanOptions(input.Options)
	}
	if input.Answer != nil {
		test.Answer = *input.Answer
	}
	if err := validateChoiceItem(test.Question, test.Options, test.Answer); err != nil {
		return nil, err
	}

	if err := s.testRepo.Update(test); err != nil {
		log.Printf("[VoiceService] failed to update comprehension test ID=%d: %v", test.ID, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditUpdateTest, entity.EntityComprehensionTest, uintPtr(test.ID),
		map[string]interface{}{"voice_exercise_id": test.VoiceExerciseID})
	return test, nil
}

// DeleteTest removes a comprehension test.
func (s *VoiceService) DeleteTest(actor Actor, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	test, exercise, err := s.testWithExercise(id)
	if err != nil {
		return err
	}
	// Owner or admin only
	if err := authorizeWrite(s.educatorRepo, actor, exercise); err != nil {
		return err
	}

	// History rows keep the answer with a NULL test reference
	if err := s.testRepo.Delete(id); err != nil {
		log.Printf("[VoiceService] failed to delete comprehension test ID=%d: %v", id, err)
		return err
	}

	s.audit.Record(actor, entity.AuditDeleteTest, entity.EntityComprehensionTest, uintPtr(id),
		map[string]interface{}{"voice_exercise_id": test.VoiceExerciseID})
	return nil
}

// testWithExercise loads a test and the exercise that owns it.
func (s *VoiceService) testWithExercise(id uint) (*entity.ComprehensionTest, *entity.VoiceExercise, error) {
	test, err := s.testRepo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	exercise, err := s.exerciseRepo.GetByID(test.VoiceExerciseID)
	if err != nil {
		return nil, nil, err
	}
	return test, exercise, nil
}

// validateExercise requires a title, a grade and a passage with at least one word.
func validateExercise(v *entity.VoiceExercise) error {
	if v.Title == "" || v.Passage == "" || v.Grade == "" {
		return fmt.Errorf("%w: title, passage and grade are required", apperrors.ErrValidation)
	}
	if len(tokenizeWords(v.Passage)) == 0 {
		return fmt.Errorf("%w: passage must contain words", apperrors.ErrValidation)
	}
	return nil
}
