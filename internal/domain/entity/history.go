package entity

import "time"

// StudentQuizHistory stores one graded answer of a quiz attempt on a Module.
type StudentQuizHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StudentID      uint      `gorm:"not null;index:idx_quiz_history_student_module" json:"student_id"`
	ModuleID       uint      `gorm:"not null;index:idx_quiz_history_student_module" json:"module_id"`
	// QuestionID is nil once the question has been deleted
	QuestionID     *uint     `gorm:"index" json:"question_id"`
	SelectedAnswer int       `gorm:"not null;default:-1" json:"selected_answer"`
	IsCorrect      bool      `gorm:"not null" json:"is_correct"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	AttemptNo      int       `gorm:"not null;default:1" json:"attempt_no"`
	Module         *Module   `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (StudentQuizHistory) TableName() string {
	return "student_quiz_history"
}

// VoiceExercisesHistory stores one read-aloud attempt and its word accuracy.
type VoiceExercisesHistory struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	StudentID       uint           `gorm:"not null;index" json:"student_id"`
	VoiceExerciseID uint           `gorm:"not null;index" json:"voice_exercise_id"`
	Transcript      string         `gorm:"type:text;not null;default:''" json:"transcript"`
	Accuracy        float64        `gorm:"not null;default:0" json:"accuracy"`
	WordsMatched    int            `gorm:"not null;default:0" json:"words_matched"`
	WordsTotal      int            `gorm:"not null;default:0" json:"words_total"`
	VoiceExercise   *VoiceExercise `gorm:"foreignKey:VoiceExerciseID" json:"voice_exercise,omitempty"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}

func (VoiceExercisesHistory) TableName() string {
	return "voice_exercises_history"
}

// ComprehensionHistory stores one graded comprehension answer.
type ComprehensionHistory struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	StudentID           uint           `gorm:"not null;index" json:"student_id"`
	VoiceExerciseID     uint           `gorm:"not null;index" json:"voice_exercise_id"`
	// ComprehensionTestID is nil once the test has been deleted
	ComprehensionTestID *uint          `gorm:"index" json:"comprehension_test_id"`
	SelectedAnswer      int            `gorm:"not null;default:-1" json:"selected_answer"`
	IsCorrect           bool           `gorm:"not null" json:"is_correct"`
	Score               int            `gorm:"not null;default:0" json:"score"`
	AttemptNo           int            `gorm:"not null;default:1" json:"attempt_no"`
	VoiceExercise       *VoiceExercise `gorm:"foreignKey:VoiceExerciseID" json:"voice_exercise,omitempty"`
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`
}

func (ComprehensionHistory) TableName() string {
	return "comprehension_history"
}
