package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	"github.com/yourusername/lms-api/internal/handler/dto"
	"github.com/yourusername/lms-api/internal/service"
)

// VoiceHandler serves voice exercises and their comprehension tests
type VoiceHandler struct {
	voiceService *service.VoiceService
}

// NewVoiceHandler creates the voice exercise handler
func NewVoiceHandler(voiceService *service.VoiceService) *VoiceHandler {
	return &VoiceHandler{voiceService: voiceService}
}

// CreateExercise creates a read-aloud exercise
func (h *VoiceHandler) CreateExercise(c *gin.Context) {
	// Bind the request
	var req dto.CreateVoiceExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Hand off to the service
	exercise, err := h.voiceService.CreateExercise(actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "Voice exercise created", "voice_exercise": dto.NewVoiceExerciseDTO(exercise, true)})
}

// ListExercises returns exercises filtered by grade and subject
func (h *VoiceHandler) ListExercises(c *gin.Context) {
	// Optional owner filter
	educatorID, err := queryUint(c, "educatorId")
	if err != nil {
		handleError(c, err)
		return
	}

	exercises, err := h.voiceService.ListExercises(repository.VoiceExerciseFilter{
		Grade:      c.Query("grade"),
		Subject:    c.Query("subject"),
		EducatorID: educatorID,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	// Answers are hidden from students
	withAnswers := canSeeAnswers(c)
	out := make([]dto.VoiceExerciseDTO, 0, len(exercises))
	for i := range exercises {
		out = append(out, dto.NewVoiceExerciseDTO(&exercises[i], withAnswers))
	}
	respond(c, http.StatusOK, gin.H{"voice_exercises": out})
}

// GetExercise returns an exercise with its comprehension tests.
func (h *VoiceHandler) GetExercise(c *gin.Context) {
	exercise, err := h.voiceService.GetExercise(c.GetUint("voiceExerciseID"))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"voice_exercise": dto.NewVoiceExerciseDTO(exercise, canSeeAnswers(c))})
}

// UpdateExercise applies a partial exercise update
func (h *VoiceHandler) UpdateExercise(c *gin.Context) {
	// Bind the request
	var req dto.UpdateVoiceExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Hand off to the service
	exercise, err := h.voiceService.UpdateExercise(actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Voice exercise updated", "voice_exercise": dto.NewVoiceExerciseDTO(exercise, true)})
}

// DeleteExercise removes the exercise named by the id query parameter
func (h *VoiceHandler) DeleteExercise(c *gin.Context) {
	id, err := requiredQueryUint(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.voiceService.DeleteExercise(actorFrom(c), id); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Voice exercise deleted"})
}

// CreateTest adds a comprehension test to an exercise
func (h *VoiceHandler) CreateTest(c *gin.Context) {
	// Bind the request
	var req dto.CreateComprehensionTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Hand off to the service
	test, err := h.voiceService.CreateTest(actorFrom(c), req.VoiceExerciseID, req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"message":            "Comprehension test created",
		"comprehension_test": dto.NewComprehensionTestDTOs([]entity.ComprehensionTest{*test}, true)[0],
	})
}

// ListTests returns the tests of one exercise
func (h *VoiceHandler) ListTests(c *gin.Context) {
	exerciseID, err := requiredQueryUint(c, "voiceExerciseId")
	if err != nil {
		handleError(c, err)
		return
	}

	tests, err := h.voiceService.ListTests(exerciseID)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"comprehension_tests": dto.NewComprehensionTestDTOs(tests, canSeeAnswers(c))})
}

// UpdateTest applies a partial test update
func (h *VoiceHandler) UpdateTest(c *gin.Context) {
	// Bind the request
	var req dto.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Hand off to the service
	test, err := h.voiceService.UpdateTest(actorFrom(c), req.ToInput())
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":            "Comprehension test updated",
		"comprehension_test": dto.NewComprehensionTestDTOs([]entity.ComprehensionTest{*test}, true)[0],
	})
}

// DeleteTest removes the test named by the id query parameter
func (h *VoiceHandler) DeleteTest(c *gin.Context) {
	id, err := requiredQueryUint(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.voiceService.DeleteTest(actorFrom(c), id); err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Comprehension test deleted"})
}
