package entity

import "time"

// VoiceExercise is a passage a student reads aloud, followed by comprehension tests.
type VoiceExercise struct {
	ID                 uint                `gorm:"primaryKey" json:"id"`
	Title              string              `gorm:"size:200;not null" json:"title"`
	Passage            string              `gorm:"type:text;not null" json:"passage"`
	Grade              string              `gorm:"size:20;not null;index" json:"grade"`
	Subject            string              `gorm:"size:100;not null;default:''" json:"subject"`
	EducatorID         *uint               `gorm:"index" json:"educator_id,omitempty"`
	ComprehensionTests []ComprehensionTest `gorm:"foreignKey:VoiceExerciseID;constraint:OnDelete:CASCADE" json:"comprehension_tests,omitempty"`
	CreatedAt          time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// TableName overrides the table name
func (VoiceExercise) TableName() string {
	return "voice_exercises"
}

// IsOwnedBy reports whether the exercise belongs to the educator
func (v *VoiceExercise) IsOwnedBy(educatorID uint) bool {
	return v.EducatorID != nil && *v.EducatorID == educatorID
}
