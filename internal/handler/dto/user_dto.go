package dto

import "github.com/yourusername/lms-api/internal/service"

// CreateUserRequest is the body of POST /api/create-user. Grade is required
// for students and ignored for other roles.
type CreateUserRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8,max=72"`
	Role       string `json:"role" binding:"required,oneof=admin educator student"`
	Grade      string `json:"grade" binding:"omitempty,max=20"`
	Section    string `json:"section" binding:"omitempty,max=50"`
	LRN        string `json:"lrn" binding:"omitempty,max=20"`
	Department string `json:"department" binding:"omitempty,max=100"`
	Subject    string `json:"subject" binding:"omitempty,max=100"`
}

// ToInput converts the request into service input
func (r CreateUserRequest) ToInput() service.CreateUserInput {
	return service.CreateUserInput{
		Name:       r.Name,
		Email:      r.Email,
		Password:   r.Password,
		Role:       r.Role,
		Grade:      r.Grade,
		Section:    r.Section,
		LRN:        r.LRN,
		Department: r.Department,
		Subject:    r.Subject,
	}
}

// UpdateUserRequest is the body of PUT /api/edit-user; absent fields stay unchanged
type UpdateUserRequest struct {
	ID         uint    `json:"id" binding:"required"`
	Name       *string `json:"name" binding:"omitempty,max=100"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Password   *string `json:"password" binding:"omitempty,min=8,max=72"`
	IsActive   *bool   `json:"is_active"`
	Grade      *string `json:"grade" binding:"omitempty,max=20"`
	Section    *string `json:"section" binding:"omitempty,max=50"`
	LRN        *string `json:"lrn" binding:"omitempty,max=20"`
	Department *string `json:"department" binding:"omitempty,max=100"`
	Subject    *string `json:"subject" binding:"omitempty,max=100"`
}

// ToInput converts the request to a service update
func (r UpdateUserRequest) ToInput() service.UpdateUserInput {
	return service.UpdateUserInput{
		ID:         r.ID,
		Name:       r.Name,
		Email:      r.Email,
		Password:   r.Password,
		IsActive:   r.IsActive,
		Grade:      r.Grade,
		Section:    r.Section,
		LRN:        r.LRN,
		Department: r.Department,
		Subject:    r.Subject,
	}
}
