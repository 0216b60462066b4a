package service

import "github.com/yourusername/lms-api/internal/domain/entity"

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   string
	IP     string
}

// Role checks
func (a Actor) IsAdmin() bool    { return a.Role == entity.RoleAdmin }
func (a Actor) IsEducator() bool { return a.Role == entity.RoleEducator }
func (a Actor) IsStudent() bool  { return a.Role == entity.RoleStudent }

// uintPtr returns a pointer to a copy of v.
func uintPtr(v uint) *uint {
	return &v
}
