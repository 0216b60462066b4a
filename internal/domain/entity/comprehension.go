package entity

import "time"

// ComprehensionTest is a multiple-choice item attached to a VoiceExercise.
type ComprehensionTest struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	VoiceExerciseID uint        `gorm:"not null;index" json:"voice_exercise_id"`
	Question        string      `gorm:"type:text;not null" json:"question"`
	Options         StringArray `gorm:"type:jsonb;not null" json:"options"`
	Answer          int         `gorm:"not null" json:"answer"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName overrides the table name
func (ComprehensionTest) TableName() string {
	return "comprehension_tests"
}

// IsCorrect reports whether selected is the right option
func (t *ComprehensionTest) IsCorrect(selected int) bool {
	return selected == t.Answer
}

// IsValidOption reports whether idx names an option
func (t *ComprehensionTest) IsValidOption(idx int) bool {
	return idx >= 0 && idx < len(t.Options)
}
