package entity

import "time"

// Educator holds the teacher-specific part of an account.
type Educator struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Department string    `gorm:"size:100;not null;default:''" json:"department"`
	Subject    string    `gorm:"size:100;not null;default:''" json:"subject"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Educator) TableName() string {
	return "educators"
}
