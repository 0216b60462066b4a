package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

const maxUserPageSize = 100

// CreateUserInput carries an account and its role profile fields.
type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	Grade      string
	Section    string
	LRN        string
	Department string
	Subject    string
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	ID         uint
	Name       *string
	Email      *string
	Password   *string
	IsActive   *bool
	Grade      *string
	Section    *string
	LRN        *string
	Department *string
	Subject    *string
}

// UserService manages accounts on behalf of administrators.
type UserService struct {
	userRepo     repository.UserRepository
	educatorRepo repository.EducatorRepository
	studentRepo  repository.StudentRepository
	revoker      TokenRevoker
	audit        *AuditService
}

// NewUserService creates the user service
func NewUserService(
	userRepo repository.UserRepository,
	educatorRepo repository.EducatorRepository,
	studentRepo repository.StudentRepository,
	revoker TokenRevoker,
	audit *AuditService,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		educatorRepo: educatorRepo,
		studentRepo:  studentRepo,
		revoker:      revoker,
		audit:        audit,
	}
}

// CreateUser inserts the account together with its Student or Educator row.
func (s *UserService) CreateUser(actor Actor, input CreateUserInput) (*entity.User, error) {
	// Normalize
	input.Name = strings.TrimSpace(input.Name)
	input.Email = entity.NormalizeEmail(input.Email)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))

	// Validate
	if input.Name == "" || input.Email == "" || input.Password == "" || input.Role == "" {
		return nil, fmt.Errorf("%w: name, email, password and role are required", apperrors.ErrValidation)
	}
	if !entity.IsValidRole(input.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, input.Role)
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	user := &entity.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
		Role:     input.Role,
		IsActive: true,
	}

	// Attach the role profile, created in the same transaction
	switch input.Role {
	case entity.RoleStudent:
		grade := strings.TrimSpace(input.Grade)
		if grade == "" {
			return nil, fmt.Errorf("%w: grade is required for students", apperrors.ErrValidation)
		}
		user.Student = &entity.Student{
			Grade:   grade,
			Section: strings.TrimSpace(input.Section),
			LRN:     optionalString(input.LRN),
		}
	case entity.RoleEducator:
		user.Educator = &entity.Educator{
			Department: strings.TrimSpace(input.Department),
			Subject:    strings.TrimSpace(input.Subject),
		}
	}

	// Save the user and profile
	if err := s.userRepo.CreateWithProfile(user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: email or LRN already in use", apperrors.ErrConflict)
		}
		log.Printf("[UserService] failed to create user %s: %v", input.Email, err)
		return nil, err
	}

	// Audit
	s.audit.Record(actor, entity.AuditCreateUser, entity.EntityUser, uintPtr(user.ID),
		map[string]interface{}{"email": user.Email, "role": user.Role})
	log.Printf("[UserService] user ID=%d (%s) created by user ID=%d", user.ID, user.Role, actor.UserID)
	return user, nil
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users    []entity.User `json:"users"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ListUsers returns a page of users filtered by role and a name/email search.
func (s *UserService) ListUsers(role, search string, page, pageSize int) (*UserPage, error) {
	// Validate the filter
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "" && !entity.IsValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, role)
	}
	page, pageSize = normalizePage(page, pageSize, maxUserPageSize)

	users, total, err := s.userRepo.List(repository.UserFilter{
		Role:   role,
		Search: search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		log.Printf("[UserService] failed to list users: %v", err)
		return nil, err
	}
	if users == nil {
		users = []entity.User{}
	}
	return &UserPage{Users: users, Total: total, Page: page, PageSize: pageSize}, nil
}

// GetUser returns a user with its profile
func (s *UserService) GetUser(id uint) (*entity.User, error) {
	return s.userRepo.GetByID(id)
}

// UpdateUser applies a partial update. Deactivation or a password change ends the user's sessions.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, input UpdateUserInput) (*entity.User, error) {
	if input.ID == 0 {
		return nil, fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	// Load the current state
	user, err := s.userRepo.GetByID(input.ID)
	if err != nil {
		return nil, err
	}

	// Account fields
	changed := make([]string, 0, 8)
	revokeSessions := false

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", apperrors.ErrValidation)
		}
		user.Name = name
		changed = append(changed, "name")
	}
	if input.Email != nil {
		email := entity.NormalizeEmail(*input.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
		changed = append(changed, "email")
	}
	// An empty password means no change
	if input.Password != nil && *input.Password != "" {
		if err := validatePassword(*input.Password); err != nil {
			return nil, err
		}
		user.Password = *input.Password
		changed = append(changed, "password")
		revokeSessions = true
	}
	if input.IsActive != nil {
		if !*input.IsActive && user.ID == actor.UserID {
			return nil, fmt.Errorf("%w: you cannot deactivate your own account", apperrors.ErrValidation)
		}
		if user.IsActive && !*input.IsActive {
			revokeSessions = true
		}
		user.IsActive = *input.IsActive
		changed = append(changed, "is_active")
	}

	// Profile fields; a missing profile row is recreated
	switch user.Role {
	case entity.RoleStudent:
		if user.Student == nil {
			user.Student = &entity.Student{UserID: user.ID}
		}
		if input.Grade != nil {
			grade := strings.TrimSpace(*input.Grade)
			if grade == "" {
				return nil, fmt.Errorf("%w: grade cannot be empty", apperrors.ErrValidation)
			}
			user.Student.Grade = grade
			changed = append(changed, "grade")
		}
		if input.Section != nil {
			user.Student.Section = strings.TrimSpace(*input.Section)
			changed = append(changed, "section")
		}
		if input.LRN != nil {
			user.Student.LRN = optionalString(*input.LRN)
			changed = append(changed, "lrn")
		}
		if user.Student.Grade == "" {
			return nil, fmt.Errorf("%w: grade is required for students", apperrors.ErrValidation)
		}
	case entity.RoleEducator:
		if user.Educator == nil {
			user.Educator = &entity.Educator{UserID: user.ID}
		}
		if input.Department != nil {
			user.Educator.Department = strings.TrimSpace(*input.Department)
			changed = append(changed, "department")
		}
		if input.Subject != nil {
			user.Educator.Subject = strings.TrimSpace(*input.Subject)
			changed = append(changed, "subject")
		}
	}

	// Nothing to store
	if len(changed) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateWithProfile(user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: email or LRN already in use", apperrors.ErrConflict)
		}
		log.Printf("[UserService] failed to update user ID=%d: %v", user.ID, err)
		return nil, err
	}

	// Sessions are revoked only after the update is stored
	if revokeSessions && s.revoker != nil {
		if err := s.revoker.RevokeAllUserTokens(ctx, user.ID); err != nil {
			log.Printf("[UserService] failed to revoke sessions of user ID=%d: %v", user.ID, err)
		}
	}

	s.audit.Record(actor, entity.AuditUpdateUser, entity.EntityUser, uintPtr(user.ID),
		map[string]interface{}{"fields": changed})
	return user, nil
}

// DeleteUser removes the account and everything that cascades from it.
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: id is required", apperrors.ErrValidation)
	}
	if id == actor.UserID {
		return ErrSelfDelete
	}

	// Keep the email and role for the audit entry
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return err
	}
	// Delete, then end its sessions
	if err := s.userRepo.Delete(id); err != nil {
		log.Printf("[UserService] failed to delete user ID=%d: %v", id, err)
		return err
	}
	if s.revoker != nil {
		if err := s.revoker.RevokeAllUserTokens(ctx, id); err != nil {
			log.Printf("[UserService] failed to revoke sessions of deleted user ID=%d: %v", id, err)
		}
	}

	s.audit.Record(actor, entity.AuditDeleteUser, entity.EntityUser, uintPtr(id),
		map[string]interface{}{"email": user.Email, "role": user.Role})
	log.Printf("[UserService] user ID=%d deleted by user ID=%d", id, actor.UserID)
	return nil
}

// ListEducators returns every educator profile
func (s *UserService) ListEducators() ([]entity.Educator, error) {
	return s.educatorRepo.List()
}

// ListStudents returns students, optionally filtered by grade and section
func (s *UserService) ListStudents(grade, section string) ([]entity.Student, error) {
	return s.studentRepo.List(strings.TrimSpace(grade), strings.TrimSpace(section))
}

// validateEmail accepts a bare address only, without a display name.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", apperrors.ErrValidation)
	}
	return nil
}

// optionalString trims s and maps the empty string to nil.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
