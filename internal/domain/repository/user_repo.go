package repository

import (
	"github.com/yourusername/lms-api/internal/domain/entity"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role   string
	Search string
	Limit  int
	Offset int
}

// UserRepository defines persistence for accounts and their role profiles.
type UserRepository interface {
	// CreateWithProfile inserts the user and its Educator/Student row in one transaction.
	CreateWithProfile(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	// UpdateWithProfile saves the user and its attached profile in one transaction.
	UpdateWithProfile(user *entity.User) error
	UpdatePassword(userID uint, newPassword string) error
	UpdateLastLogin(userID uint) error
	Delete(id uint) error
	List(filter UserFilter) ([]entity.User, int64, error)
	CountByRole() (map[string]int64, error)
}

// EducatorRepository defines read access to educator profiles.
type EducatorRepository interface {
	GetByUserID(userID uint) (*entity.Educator, error)
	List() ([]entity.Educator, error)
}

// StudentRepository defines read access to student profiles.
type StudentRepository interface {
	GetByID(id uint) (*entity.Student, error)
	GetByUserID(userID uint) (*entity.Student, error)
	List(grade, section string) ([]entity.Student, error)
}
