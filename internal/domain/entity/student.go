package entity

import "time"

// Student holds the learner-specific part of an account.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Grade     string    `gorm:"size:20;not null;index" json:"grade"`
	Section   string    `gorm:"size:50;not null;default:''" json:"section"`
	LRN       *string   `gorm:"column:lrn;size:20;uniqueIndex" json:"lrn,omitempty"` // learner reference number
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName defines the table name for GORM
func (Student) TableName() string {
	return "students"
}
