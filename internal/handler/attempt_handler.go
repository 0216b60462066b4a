package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/lms-api/internal/handler/dto"
	"github.com/yourusername/lms-api/internal/service"
)

// AttemptHandler serves student submissions and attempt history
type AttemptHandler struct {
	attemptService *service.AttemptService
	historyService *service.HistoryService
}

// NewAttemptHandler creates the attempt handler
func NewAttemptHandler(attemptService *service.AttemptService, historyService *service.HistoryService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		historyService: historyService,
	}
}

// SubmitQuiz grades a module quiz attempt.
func (h *AttemptHandler) SubmitQuiz(c *gin.Context) {
	var req dto.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Grade and store the attempt
	result, err := h.attemptService.SubmitQuiz(actorFrom(c), req.ModuleID, dto.ToAnswerInputs(req.Answers))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"score":      result.Score,
		"total":      result.Total,
		"percentage": result.Percentage,
		"attempt_no": result.AttemptNo,
		"results":    result.Results,
	})
}

// SubmitComprehension grades the comprehension tests of a voice exercise.
func (h *AttemptHandler) SubmitComprehension(c *gin.Context) {
	var req dto.SubmitComprehensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Grade and store the attempt
	result, err := h.attemptService.SubmitComprehension(actorFrom(c), req.VoiceExerciseID, dto.ToAnswerInputs(req.Answers))
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"score":      result.Score,
		"total":      result.Total,
		"percentage": result.Percentage,
		"attempt_no": result.AttemptNo,
		"results":    result.Results,
	})
}

// SubmitVoice scores a read-aloud transcript against the passage.
func (h *AttemptHandler) SubmitVoice(c *gin.Context) {
	var req dto.SubmitVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.attemptService.SubmitVoice(actorFrom(c), req.VoiceExerciseID, req.Transcript)
	if err != nil {
		handleError(c, err)
		return
	}
	// Accuracy is a percentage of passage words
	respond(c, http.StatusCreated, gin.H{
		"id":            result.ID,
		"accuracy":      result.Accuracy,
		"words_matched": result.WordsMatched,
		"words_total":   result.WordsTotal,
	})
}

// QuizHistory returns per-attempt quiz summaries
func (h *AttemptHandler) QuizHistory(c *gin.Context) {
	// Staff pass studentId; students read their own
	studentID, err := queryUint(c, "studentId")
	if err != nil {
		handleError(c, err)
		return
	}
	history, err := h.historyService.QuizHistory(actorFrom(c), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"history": history})
}

// VoiceHistory returns read-aloud attempts and their mean accuracy
func (h *AttemptHandler) VoiceHistory(c *gin.Context) {
	studentID, err := queryUint(c, "studentId")
	if err != nil {
		handleError(c, err)
		return
	}
	history, err := h.historyService.VoiceHistory(actorFrom(c), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"history":          history.Attempts,
		"average_accuracy": history.AverageAccuracy,
	})
}

// ComprehensionHistory returns per-attempt comprehension summaries
func (h *AttemptHandler) ComprehensionHistory(c *gin.Context) {
	studentID, err := queryUint(c, "studentId")
	if err != nil {
		handleError(c, err)
		return
	}
	history, err := h.historyService.ComprehensionHistory(actorFrom(c), studentID)
	if err != nil {
		handleError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"history": history})
}

// ExportQuizHistory downloads the quiz history summaries as CSV or XLSX.
func (h *AttemptHandler) ExportQuizHistory(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	studentID, err := queryUint(c, "studentId")
	if err != nil {
		handleError(c, err)
		return
	}

	history, err := h.historyService.QuizHistory(actorFrom(c), studentID)
	if err != nil {
		handleError(c, err)
		return
	}

	// File name
	base := "quiz-history"
	if studentID != nil {
		base = fmt.Sprintf("quiz-history-student-%d", *studentID)
	}
	sendExport(c, base, format, service.QuizHistoryTable(history))
}
