package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions
const (
	AuditLogin          = "login"
	AuditLogout         = "logout"
	AuditPasswordChange = "change_password"
	AuditPasswordReset  = "password_reset"
	AuditCreateUser     = "create_user"
	AuditUpdateUser     = "update_user"
	AuditDeleteUser     = "delete_user"
	AuditCreateModule   = "create_module"
	AuditUpdateModule   = "update_module"
	AuditDeleteModule   = "delete_module"
	AuditCreateQuestion = "create_question"
	AuditUpdateQuestion = "update_question"
	AuditDeleteQuestion = "delete_question"
	AuditCreateVoice    = "create_voice_exercise"
	AuditUpdateVoice    = "update_voice_exercise"
	AuditDeleteVoice    = "delete_voice_exercise"
	AuditCreateTest     = "create_comprehension_test"
	AuditUpdateTest     = "update_comprehension_test"
	AuditDeleteTest     = "delete_comprehension_test"
	AuditSubmitQuiz     = "submit_quiz"
	AuditSubmitVoice    = "submit_voice_exercise"
	AuditSubmitTest     = "submit_comprehension"
	AuditUploadMedia    = "upload_media"
)

// Audited entity types
const (
	EntityUser              = "user"
	EntityModule            = "module"
	EntityQuestion          = "question"
	EntityVoiceExercise     = "voice_exercise"
	EntityComprehensionTest = "comprehension_test"
	EntityMedia             = "media"
)

// AuditLog is an append-only record of a mutating action.
type AuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	UserID     *uint             `gorm:"index" json:"user_id,omitempty"`
	Action     string            `gorm:"size:50;not null;index" json:"action"`
	EntityType string            `gorm:"size:50;not null;default:'';index" json:"entity_type"`
	EntityID   *uint             `json:"entity_id,omitempty"`
	Details    datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	IPAddress  string            `gorm:"size:50;not null;default:''" json:"ip_address"`
	User       *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// TableName overrides the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}
