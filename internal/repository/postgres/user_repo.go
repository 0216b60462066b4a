package postgres

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

// UserRepo implements repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo creates a user repository
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateWithProfile inserts the user and its role profile atomically.
func (r *UserRepo) CreateWithProfile(user *entity.User) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// User first, the profile needs its ID
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		if user.Educator != nil {
			user.Educator.UserID = user.ID
			if err := tx.Omit(clause.Associations).Create(user.Educator).Error; err != nil {
				return err
			}
		}
		if user.Student != nil {
			user.Student.UserID = user.ID
			if err := tx.Omit(clause.Associations).Create(user.Student).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err, "user")
}

// GetByID loads a user with its role profile
func (r *UserRepo) GetByID(id uint) (*entity.User, error) {
	var user entity.User
	err := r.db.Preload("Educator").Preload("Student").First(&user, id).Error
	if err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

// GetByEmail looks a user up by normalized email
func (r *UserRepo) GetByEmail(email string) (*entity.User, error) {
	var user entity.User
	err := r.db.Preload("Educator").Preload("Student").
		Where("email = ?", entity.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

// UpdateWithProfile saves the user row and whichever profile is attached.
func (r *UserRepo) UpdateWithProfile(user *entity.User) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Save upserts a profile row that was missing
		if err := tx.Omit(clause.Associations).Save(user).Error; err != nil {
			return err
		}
		if user.Educator != nil {
			user.Educator.UserID = user.ID
			if err := tx.Omit(clause.Associations).Save(user.Educator).Error; err != nil {
				return err
			}
		}
		if user.Student != nil {
			user.Student.UserID = user.ID
			if err := tx.Omit(clause.Associations).Save(user.Student).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError(err, "user")
}

// UpdatePassword hashes newPassword and writes it bypassing the BeforeSave hook.
func (r *UserRepo) UpdatePassword(userID uint, newPassword string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[UserRepo.UpdatePassword] failed to hash password for user ID=%d: %v", userID, err)
		return err
	}

	// Raw update so the hook does not hash twice
	result := r.db.Exec(
		"UPDATE users SET password = ?, updated_at = ? WHERE id = ?",
		string(hashedPassword),
		time.Now(),
		userID,
	)
	if result.Error != nil {
		log.Printf("[UserRepo.UpdatePassword] failed to update password for user ID=%d: %v", userID, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	log.Printf("[UserRepo.UpdatePassword] password updated for user ID=%d", userID)
	return nil
}

// UpdateLastLogin stamps the current time as the last login
func (r *UserRepo) UpdateLastLogin(userID uint) error {
	return r.db.Model(&entity.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_login_at", time.Now()).Error
}

// Delete removes a user; profiles and history cascade
func (r *UserRepo) Delete(id uint) error {
	result := r.db.Delete(&entity.User{}, id)
	if result.Error != nil {
		return translateError(result.Error, "user")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns a page of users and the total number of matches.
func (r *UserRepo) List(filter repository.UserFilter) ([]entity.User, int64, error) {
	query := r.db.Model(&entity.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	// Total before paging
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "users")
	}

	var users []entity.User
	q := query.Preload("Educator").Preload("Student").Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, translateError(err, "users")
	}
	return users, total, nil
}

// CountByRole returns the number of users per role.
func (r *UserRepo) CountByRole() (map[string]int64, error) {
	var rows []struct {
		Role  string
		Count int64
	}
	err := r.db.Model(&entity.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err, "user counts")
	}

	// Roles without users report 0
	counts := map[string]int64{
		entity.RoleAdmin:    0,
		entity.RoleEducator: 0,
		entity.RoleStudent:  0,
	}
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// EducatorRepo implements repository.EducatorRepository
type EducatorRepo struct {
	db *gorm.DB
}

// NewEducatorRepo creates the educator profile repository
func NewEducatorRepo(db *gorm.DB) *EducatorRepo {
	return &EducatorRepo{db: db}
}

// GetByUserID returns the educator profile of a user
func (r *EducatorRepo) GetByUserID(userID uint) (*entity.Educator, error) {
	var educator entity.Educator
	if err := r.db.Where("user_id = ?", userID).First(&educator).Error; err != nil {
		return nil, translateError(err, "educator")
	}
	return &educator, nil
}

// List returns every educator with its user, ordered by name
func (r *EducatorRepo) List() ([]entity.Educator, error) {
	var educators []entity.Educator
	err := r.db.Preload("User").
		Joins("JOIN users ON users.id = educators.user_id").
		Order("users.name ASC").
		Find(&educators).Error
	if err != nil {
		return nil, translateError(err, "educators")
	}
	return educators, nil
}

// StudentRepo implements repository.StudentRepository
type StudentRepo struct {
	db *gorm.DB
}

// NewStudentRepo creates the student profile repository
func NewStudentRepo(db *gorm.DB) *StudentRepo {
	return &StudentRepo{db: db}
}

// GetByID returns a student profile with its user
func (r *StudentRepo) GetByID(id uint) (*entity.Student, error) {
	var student entity.Student
	if err := r.db.Preload("User").First(&student, id).Error; err != nil {
		return nil, translateError(err, "student")
	}
	return &student, nil
}

// GetByUserID returns the student profile of a user
func (r *StudentRepo) GetByUserID(userID uint) (*entity.Student, error) {
	var student entity.Student
	if err := r.db.Where("user_id = ?", userID).First(&student).Error; err != nil {
		return nil, translateError(err, "student")
	}
	return &student, nil
}

// List returns students ordered by grade and name, optionally filtered by grade and section
func (r *StudentRepo) List(grade, section string) ([]entity.Student, error) {
	query := r.db.Preload("User").
		Joins("JOIN users ON users.id = students.user_id")
	if grade != "" {
		query = query.Where("students.grade = ?", grade)
	}
	if section != "" {
		query = query.Where("students.section = ?", section)
	}

	var students []entity.Student
	if err := query.Order("students.grade ASC, users.name ASC").Find(&students).Error; err != nil {
		return nil, translateError(err, "students")
	}
	return students, nil
}
