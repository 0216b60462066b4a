package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a []string stored as a JSONB array.
type StringArray []string

// Scan implements sql.Scanner for JSONB columns.
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value implements driver.Valuer; nil and empty arrays are stored as "[]".
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// Question is a multiple-choice quiz item attached to a Module.
// Answer is the zero-based index of the correct option.
type Question struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ModuleID  uint        `gorm:"not null;index" json:"module_id"`
	Question  string      `gorm:"type:text;not null" json:"question"`
	Options   StringArray `gorm:"type:jsonb;not null" json:"options"`
	Answer    int         `gorm:"not null" json:"answer"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName defines the table name for GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect reports whether selected is the right option.
func (q *Question) IsCorrect(selected int) bool {
	return selected == q.Answer
}

// IsValidOption reports whether idx points at one of the options.
func (q *Question) IsValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}
