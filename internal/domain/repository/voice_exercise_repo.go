package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// VoiceExerciseFilter narrows voice exercise listings.
type VoiceExerciseFilter struct {
	Grade      string
	Subject    string
	EducatorID *uint
}

// VoiceExerciseRepository defines persistence for voice exercises.
type VoiceExerciseRepository interface {
	Create(exercise *entity.VoiceExercise) error
	GetByID(id uint) (*entity.VoiceExercise, error)
	// GetWithTests returns the exercise with its comprehension tests ordered by id.
	GetWithTests(id uint) (*entity.VoiceExercise, error)
	Update(exercise *entity.VoiceExercise) error
	Delete(id uint) error
	List(filter VoiceExerciseFilter) ([]entity.VoiceExercise, error)
	Count(filter VoiceExerciseFilter) (int64, error)
}

// ComprehensionTestRepository defines persistence for comprehension tests.
type ComprehensionTestRepository interface {
	Create(test *entity.ComprehensionTest) error
	GetByID(id uint) (*entity.ComprehensionTest, error)
	Update(test *entity.ComprehensionTest) error
	Delete(id uint) error
	ListByExercise(voiceExerciseID uint) ([]entity.ComprehensionTest, error)
}
