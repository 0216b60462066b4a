package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	"github.com/yourusername/lms-api/internal/handler/dto"
	"github.com/yourusername/lms-api/internal/middleware"
	"github.com/yourusername/lms-api/internal/service"
)

// ModuleHandler serves modules, their quiz questions and media uploads
type ModuleHandler struct {
	moduleService *service.ModuleService
	mediaService  *service.MediaService
}

// NewModuleHandler creates the module handler
func NewModuleHandler(moduleService *service.ModuleService, mediaService *service.MediaService) *ModuleHandler {
	return &ModuleHandler{
		moduleService: moduleService,
		mediaService:  mediaService,
	}
}

// canSeeAnswers reports whether the caller may read correct answers.
func canSeeAnswers(c *gin.Context) bool {
	return c.GetString(middleware.ContextRole) != entity.RoleStudent
}

// CreateModule creates a learning module
func (h *ModuleHandler) CreateModule(c *gin.Context) {
	// Parse the request body
	var req dto.CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Call the service
	module, err := h.moduleService.CreateModule(actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "Module created", "module": dto.NewModuleDTO(module, true)})
}

// ListModules returns modules newest first, filtered by grade, subject, type and owner.
func (h *ModuleHandler) ListModules(c *gin.Context) {
	// Optional owner filter
	educatorID, err := queryUint(c, "educatorId")
	if err != nil {
		handleError(c, err)
		return
	}

	modules, err := h.moduleService.ListModules(repository.ModuleFilter{
		Grade:      c.Query("grade"),
		Subject:    c.Query("subject"),
		Type:       c.Query("type"),
		EducatorID: educatorID,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	// Students get the questions without answers
	withAnswers := canSeeAnswers(c)
	out := make([]dto.ModuleDTO, 0, len(modules))
	for i := range modules {
		out = append(out, dto.NewModuleDTO(&modules[i], withAnswers))
	}
	respond(c, http.StatusOK, gin.H{"modules": out})
}

// GetModule returns one module with its questions.
func (h *ModuleHandler) GetModule(c *gin.Context) {
	module, err := h.moduleService.GetModule(c.GetUint("moduleID"))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"module": dto.NewModuleDTO(module, canSeeAnswers(c))})
}

// UpdateModule applies a partial module update
func (h *ModuleHandler) UpdateModule(c *gin.Context) {
	// Parse the request body
	var req dto.UpdateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Call the service
	module, err := h.moduleService.UpdateModule(actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Module updated", "module": dto.NewModuleDTO(module, true)})
}

// DeleteModule removes the module named by the id query parameter
func (h *ModuleHandler) DeleteModule(c *gin.Context) {
	id, err := requiredQueryUint(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.moduleService.DeleteModule(actorFrom(c), id); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Module deleted"})
}

// CreateQuestion adds a multiple-choice question to a module
func (h *ModuleHandler) CreateQuestion(c *gin.Context) {
	// Parse the request body
	var req dto.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Call the service
	question, err := h.moduleService.CreateQuestion(actorFrom(c), req.ModuleID, req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"message":  "Question created",
		"question": dto.NewQuestionDTOs([]entity.Question{*question}, true)[0],
	})
}

// ListQuestions returns the questions of one module
func (h *ModuleHandler) ListQuestions(c *gin.Context) {
	moduleID, err := requiredQueryUint(c, "moduleId")
	if err != nil {
		handleError(c, err)
		return
	}

	questions, err := h.moduleService.ListQuestions(moduleID)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"questions": dto.NewQuestionDTOs(questions, canSeeAnswers(c))})
}

// UpdateQuestion applies a partial question update
func (h *ModuleHandler) UpdateQuestion(c *gin.Context) {
	// Parse the request body
	var req dto.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Call the service
	question, err := h.moduleService.UpdateQuestion(actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":  "Question updated",
		"question": dto.NewQuestionDTOs([]entity.Question{*question}, true)[0],
	})
}

// DeleteQuestion removes the question named by the id query parameter
func (h *ModuleHandler) DeleteQuestion(c *gin.Context) {
	id, err := requiredQueryUint(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.moduleService.DeleteQuestion(actorFrom(c), id); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Question deleted"})
}

// Upload stores a multipart "file" in object storage and returns its public URL.
func (h *ModuleHandler) Upload(c *gin.Context) {
	maxSize := h.mediaService.MaxSize()
	// Multipart framing adds a little on top of the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+1<<20)

	// Read the "file" form field
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleError(c, service.ErrFileTooLarge)
			return
		}
		respondError(c, http.StatusBadRequest, "A file must be sent in the \"file\" form field", "validation_error")
		return
	}

	// Open the uploaded part
	file, err := fileHeader.Open()
	if err != nil {
		handleError(c, err)
		return
	}
	defer file.Close()

	// Validate and store
	object, err := h.mediaService.Upload(c.Request.Context(), actorFrom(c), fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), fileHeader.Size, file)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"url":          object.URL,
		"key":          object.Key,
		"size":         object.Size,
		"content_type": object.ContentType,
	})
}
