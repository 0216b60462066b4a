package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/handler/dto"
	"github.com/yourusername/lms-api/internal/middleware"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
	"github.com/yourusername/lms-api/internal/pkg/export"
	"github.com/yourusername/lms-api/internal/service"
	"github.com/yourusername/lms-api/pkg/auth/manager"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{"not found", fmt.Errorf("module 5: %w", apperrors.ErrNotFound), http.StatusNotFound, "not_found", ""},
		{"validation keeps detail", fmt.Errorf("%w: grade is required", apperrors.ErrValidation), http.StatusBadRequest, "validation_error", "grade is required"},
		{"conflict", fmt.Errorf("%w: email already in use", apperrors.ErrConflict), http.StatusConflict, "conflict", "email already in use"},
		{"forbidden", fmt.Errorf("%w: not your module", apperrors.ErrForbidden), http.StatusForbidden, "forbidden", "not your module"},
		{"bare forbidden", apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "Access denied"},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
		{"inactive user", service.ErrInactiveUser, http.StatusForbidden, "inactive_user", ""},
		{"otp cooldown", fmt.Errorf("%w: wait", service.ErrOTPResendCooldown), http.StatusTooManyRequests, "otp_resend_cooldown", ""},
		{"self delete", service.ErrSelfDelete, http.StatusBadRequest, "cannot_delete_self", ""},
		{"unsupported media", service.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "unsupported_media_type", ""},
		{"too large", service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large", ""},
		{"expired refresh", manager.NewTokenError(manager.ExpiredRefreshToken, "expired", nil), http.StatusUnauthorized, "token_expired", ""},
		{"csrf", manager.NewTokenError(manager.InvalidCSRFToken, "bad", nil), http.StatusForbidden, "csrf_mismatch", ""},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "internal_server_error", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/", "")
			handleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, tt.wantType, body["error_type"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["error"])
			}
		})
	}
}

func TestRespondMirrorsStatus(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/", "")
	respond(c, http.StatusCreated, gin.H{"id": 3})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":201,"id":3}`, w.Body.String())
}

func TestBindingFailuresReturn400(t *testing.T) {
	users := NewUserHandler(nil)
	modules := NewModuleHandler(nil, nil)
	voice := NewVoiceHandler(nil)
	attempts := NewAttemptHandler(nil, nil)
	authH := NewAuthHandler(nil, nil, nil)

	tests := []struct {
		name    string
		handler gin.HandlerFunc
		body    string
	}{
		{"login without password", authH.Login, `{"email":"a@b.test"}`},
		{"login with bad email", authH.Login, `{"email":"nope","password":"x"}`},
		{"otp code too short", authH.VerifyOTP, `{"email":"a@b.test","code":"123"}`},
		{"reset short password", authH.ResetPassword, `{"reset_token":"t","new_password":"short"}`},
		{"user with unknown role", users.CreateUser, `{"name":"A","email":"a@b.test","password":"longenough","role":"parent"}`},
		{"edit user without id", users.UpdateUser, `{"name":"A"}`},
		{"module with bad type", modules.CreateModule, `{"title":"T","type":"audio","grade":"4","subject":"Math"}`},
		{"question without answer", modules.CreateQuestion, `{"module_id":1,"question":"Q","options":["a","b"]}`},
		{"question with one option", modules.CreateQuestion, `{"module_id":1,"question":"Q","options":["a"],"answer":0}`},
		{"exercise without passage", voice.CreateExercise, `{"title":"T","grade":"4"}`},
		{"quiz without answers", attempts.SubmitQuiz, `{"module_id":1,"answers":[]}`},
		{"quiz answer without selection", attempts.SubmitQuiz, `{"module_id":1,"answers":[{"question_id":2}]}`},
		{"voice without transcript", attempts.SubmitVoice, `{"voice_exercise_id":1}`},
		{"malformed json", attempts.SubmitComprehension, `{"voice_exercise_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodPost, "/", tt.body)
			tt.handler(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "validation_error", decodeBody(t, w)["error_type"])
		})
	}
}

func TestDeleteHandlersRequireID(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
		target  string
	}{
		{"user missing id", NewUserHandler(nil).DeleteUser, "/api/delete-user"},
		{"module zero id", NewModuleHandler(nil, nil).DeleteModule, "/api/delete-module?id=0"},
		{"question text id", NewModuleHandler(nil, nil).DeleteQuestion, "/api/delete-question?id=abc"},
		{"tests missing exercise", NewVoiceHandler(nil).ListTests, "/api/fetch-comprehension-tests"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodDelete, tt.target, "")
			tt.handler(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestQueryUint(t *testing.T) {
	tests := []struct {
		query   string
		want    *uint
		wantErr bool
	}{
		{query: "", want: nil},
		{query: "studentId=12", want: uintPtr(12)},
		{query: "studentId=0", wantErr: true},
		{query: "studentId=-1", wantErr: true},
		{query: "studentId=x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/?"+tt.query, "")
			got, err := queryUint(c, "studentId")
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func uintPtr(v uint) *uint { return &v }

func TestActorFrom(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/", "")
	c.Request.RemoteAddr = "10.1.2.3:5555"
	c.Set(middleware.ContextUserID, uint(4))
	c.Set(middleware.ContextRole, entity.RoleEducator)

	actor := actorFrom(c)
	assert.Equal(t, uint(4), actor.UserID)
	assert.True(t, actor.IsEducator())
	assert.Equal(t, "10.1.2.3", actor.IP)
}

func TestModuleDTOHidesAnswersFromStudents(t *testing.T) {
	module := &entity.Module{
		ID:    1,
		Title: "Fractions",
		Questions: []entity.Question{
			{ID: 10, ModuleID: 1, Question: "1/2 + 1/2?", Options: entity.StringArray{"1", "2"}, Answer: 0},
		},
	}

	studentView, err := json.Marshal(dto.NewModuleDTO(module, false))
	require.NoError(t, err)
	assert.NotContains(t, string(studentView), `"answer"`)

	staffView, err := json.Marshal(dto.NewModuleDTO(module, true))
	require.NoError(t, err)
	assert.Contains(t, string(staffView), `"answer":0`)
}

func TestCanSeeAnswers(t *testing.T) {
	for role, want := range map[string]bool{
		entity.RoleAdmin:    true,
		entity.RoleEducator: true,
		entity.RoleStudent:  false,
	} {
		c, _ := newTestContext(http.MethodGet, "/", "")
		c.Set(middleware.ContextRole, role)
		assert.Equal(t, want, canSeeAnswers(c), role)
	}
}

func TestHealthz(t *testing.T) {
	t.Run("all up", func(t *testing.T) {
		h := NewHealthHandler(
			HealthCheck{Name: "postgres", Check: func() error { return nil }},
			HealthCheck{Name: "redis", Check: func() error { return nil }},
		)
		c, w := newTestContext(http.MethodGet, "/healthz", "")
		h.Healthz(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":200,"checks":{"postgres":"up","redis":"up"}}`, w.Body.String())
	})

	t.Run("redis down", func(t *testing.T) {
		h := NewHealthHandler(
			HealthCheck{Name: "postgres", Check: func() error { return nil }},
			HealthCheck{Name: "redis", Check: func() error { return errors.New("dial tcp: refused") }},
		)
		c, w := newTestContext(http.MethodGet, "/healthz", "")
		h.Healthz(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":503,"checks":{"postgres":"up","redis":"down"}}`, w.Body.String())
	})
}

func TestSendExport(t *testing.T) {
	table := export.Table{
		Sheet:   "Quiz History",
		Headers: []string{"Module", "Score"},
		Rows:    [][]interface{}{{"=HYPERLINK(\"x\")", 3}},
	}

	c, w := newTestContext(http.MethodGet, "/", "")
	sendExport(c, "quiz-history", export.FormatCSV, table)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="quiz-history-`)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `.csv"`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "\xEF\xBB\xBF"))
	assert.Contains(t, w.Body.String(), `'=HYPERLINK`)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	h := NewAttemptHandler(nil, nil)
	c, w := newTestContext(http.MethodGet, "/api/export-quiz-history?format=pdf", "")
	h.ExportQuizHistory(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decodeBody(t, w)["error_type"])
}
