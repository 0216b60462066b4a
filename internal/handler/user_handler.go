package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/handler/dto"
	"github.com/yourusername/lms-api/internal/service"
)

// UserHandler serves the admin user management endpoints
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates the user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUser creates an account together with its role profile.
func (h *UserHandler) CreateUser(c *gin.Context) {
	// Parse the request body
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Call the service
	user, err := h.userService.CreateUser(actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "User created", "user": user})
}

// ListUsers returns a page of users filtered by role and a name/email search.
func (h *UserHandler) ListUsers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	result, err := h.userService.ListUsers(c.Query("role"), c.Query("search"), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"users":     result.Users,
		"total":     result.Total,
		"page":      result.Page,
		"page_size": result.PageSize,
	})
}

// GetUser returns one user by path ID
func (h *UserHandler) GetUser(c *gin.Context) {
	// userID is set by ExtractUintParam
	user, err := h.userService.GetUser(c.GetUint("userID"))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": user})
}

// UpdateUser applies a partial update. Deactivating an account or changing
// its password ends its sessions.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	// Parse the request body
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Call the service
	user, err := h.userService.UpdateUser(c.Request.Context(), actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "User updated", "user": user})
}

// DeleteUser removes the user named by the id query parameter
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := requiredQueryUint(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}

	// Self-deletion is refused by the service
	if err := h.userService.DeleteUser(c.Request.Context(), actorFrom(c), id); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "User deleted"})
}

// ListEducators returns every educator profile
func (h *UserHandler) ListEducators(c *gin.Context) {
	educators, err := h.userService.ListEducators()
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"educators": educators})
}

// ListStudents returns students, optionally narrowed to a grade and section.
func (h *UserHandler) ListStudents(c *gin.Context) {
	students, err := h.userService.ListStudents(c.Query("grade"), c.Query("section"))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"students": students})
}
