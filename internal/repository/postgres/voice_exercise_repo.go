package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// VoiceExerciseRepo implements repository.VoiceExerciseRepository
type VoiceExerciseRepo struct {
	db *gorm.DB
}

// NewVoiceExerciseRepo creates the voice exercise repository
func NewVoiceExerciseRepo(db *gorm.DB) *VoiceExerciseRepo {
	return &VoiceExerciseRepo{db: db}
}

// Create stores a voice exercise
func (r *VoiceExerciseRepo) Create(exercise *entity.VoiceExercise) error {
	return translateError(r.db.Omit(clause.Associations).Create(exercise).Error, "voice exercise")
}

// GetByID returns a voice exercise without its tests
func (r *VoiceExerciseRepo) GetByID(id uint) (*entity.VoiceExercise, error) {
	var exercise entity.VoiceExercise
	if err := r.db.First(&exercise, id).Error; err != nil {
		return nil, translateError(err, "voice exercise")
	}
	return &exercise, nil
}

// GetWithTests returns a voice exercise with its comprehension tests
func (r *VoiceExerciseRepo) GetWithTests(id uint) (*entity.VoiceExercise, error) {
	var exercise entity.VoiceExercise
	err := r.db.Preload("ComprehensionTests", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&exercise, id).Error
	if err != nil {
		return nil, translateError(err, "voice exercise")
	}
	return &exercise, nil
}

// Update saves every column of the exercise
func (r *VoiceExerciseRepo) Update(exercise *entity.VoiceExercise) error {
	return translateError(r.db.Omit(clause.Associations).Save(exercise).Error, "voice exercise")
}

// Delete removes an exercise; tests and history cascade
func (r *VoiceExerciseRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.VoiceExercise{}, id)
	if result.Error != nil {
		return translateError(result.Error, "voice exercise")
	}
	// Already gone
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns exercises matching filter, newest first
func (r *VoiceExerciseRepo) List(filter repository.VoiceExerciseFilter) ([]entity.VoiceExercise, error) {
	var exercises []entity.VoiceExercise
	err := applyVoiceFilter(r.db.Model(&entity.VoiceExercise{}), filter).
		Order("created_at DESC, id DESC").
		Find(&exercises).Error
	if err != nil {
		return nil, translateError(err, "voice exercises")
	}
	return exercises, nil
}

// Count returns the number of exercises matching filter
func (r *VoiceExerciseRepo) Count(filter repository.VoiceExerciseFilter) (int64, error) {
	var count int64
	if err := applyVoiceFilter(r.db.Model(&entity.VoiceExercise{}), filter).Count(&count).Error; err != nil {
		return 0, translateError(err, "voice exercises")
	}
	return count, nil
}

// applyVoiceFilter narrows query by grade, subject and owner.
func applyVoiceFilter(query *gorm.DB, filter repository.VoiceExerciseFilter) *gorm.DB {
	if filter.Grade != "" {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.EducatorID != nil {
		query = query.Where("educator_id = ?", *filter.EducatorID)
	}
	return query
}

// ComprehensionTestRepo implements repository.ComprehensionTestRepository
type ComprehensionTestRepo struct {
	db *gorm.DB
}

// NewComprehensionTestRepo creates the comprehension test repository
func NewComprehensionTestRepo(db *gorm.DB) *ComprehensionTestRepo {
	return &ComprehensionTestRepo{db: db}
}

// Create stores a comprehension test
func (r *ComprehensionTestRepo) Create(test *entity.ComprehensionTest) error {
	return translateError(r.db.Create(test).Error, "comprehension test")
}

// GetByID returns a comprehension test
func (r *ComprehensionTestRepo) GetByID(id uint) (*entity.ComprehensionTest, error) {
	var test entity.ComprehensionTest
	if err := r.db.First(&test, id).Error; err != nil {
		return nil, translateError(err, "comprehension test")
	}
	return &test, nil
}

// Update saves every column of the test
func (r *ComprehensionTestRepo) Update(test *entity.ComprehensionTest) error {
	return translateError(r.db.Save(test).Error, "comprehension test")
}

// Delete removes a test; history rows keep a NULL reference
func (r *ComprehensionTestRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.ComprehensionTest{}, id)
	if result.Error != nil {
		return translateError(result.Error, "comprehension test")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListByExercise returns the tests of an exercise in creation order
func (r *ComprehensionTestRepo) ListByExercise(voiceExerciseID uint) ([]entity.ComprehensionTest, error) {
	var tests []entity.ComprehensionTest
	err := r.db.Where("voice_exercise_id = ?", voiceExerciseID).Order("id ASC").Find(&tests).Error
	if err != nil {
		return nil, translateError(err, "comprehension tests")
	}
	return tests, nil
}
