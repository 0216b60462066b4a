package entity

import "time"

// Module content types
const (
	ModuleTypeVideo = "video"
	ModuleTypeText  = "text"
	ModuleTypeImage = "image"
)

// Module is a curriculum unit assigned to a grade and subject.
type Module struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text;not null;default:''" json:"description"`
	Type        string     `gorm:"size:20;not null" json:"type"`
	Content     string     `gorm:"type:text;not null;default:''" json:"content"`
	MediaURL    string     `gorm:"size:500;not null;default:''" json:"media_url"`
	Grade       string     `gorm:"size:20;not null;index" json:"grade"`
	Subject     string     `gorm:"size:100;not null;index" json:"subject"`
	EducatorID  *uint      `gorm:"index" json:"educator_id,omitempty"`
	Questions   []Question `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName defines the table name for GORM
func (Module) TableName() string {
	return "modules"
}

// IsValidModuleType reports whether t is a supported content type.
func IsValidModuleType(t string) bool {
	switch t {
	case ModuleTypeVideo, ModuleTypeText, ModuleTypeImage:
		return true
	}
	return false
}

// IsOwnedBy reports whether the module was created by the given educator.
func (m *Module) IsOwnedBy(educatorID uint) bool {
	return m.EducatorID != nil && *m.EducatorID == educatorID
}
