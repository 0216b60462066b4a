package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Account roles
const (
	RoleAdmin    = "admin"
	RoleEducator = "educator"
	RoleStudent  = "student"
)

// User is an account record; role-specific data lives in Educator or Student.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:100;not null" json:"name"`
	Email       string     `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password    string     `gorm:"size:100;not null" json:"-"`
	Role        string     `gorm:"size:20;not null;default:'student';index" json:"role"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt *time.Time `gorm:"type:timestamp" json:"last_login_at,omitempty"`

	Educator *Educator `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"educator,omitempty"`
	Student  *Student  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the GORM table name
func (User) TableName() string {
	return "users"
}

// IsValidRole reports whether role is one of the known account roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEducator, RoleStudent:
		return true
	}
	return false
}

// Role checks
func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsEducator() bool { return u.Role == RoleEducator }
func (u *User) IsStudent() bool  { return u.Role == RoleStudent }

// BeforeSave hashes the password unless it is already a bcrypt hash.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) > 0 && !IsBcryptHash(u.Password) {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] failed to hash password for email=%s: %v", u.Email, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword compares password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// IsBcryptHash reports whether s already looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
