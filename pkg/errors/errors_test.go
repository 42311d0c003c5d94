package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name    string
		err     *AppError
		errType ErrorType
		status  int
		message string
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest, "bad"},
		{"not found", NewNotFoundError("tree"), ErrorTypeNotFound, http.StatusNotFound, "tree not found"},
		{"conflict", NewConflictError("Nothing to undo"), ErrorTypeConflict, http.StatusConflict, "Nothing to undo"},
		{"no config", NewNoConfigSelectedError("p1"), ErrorTypeNoConfigSelected, http.StatusConflict, "no configuration selected for project p1"},
		{"unauthorized default", NewUnauthorizedError(""), ErrorTypeUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"rate limit", NewRateLimitError(), ErrorTypeRateLimit, http.StatusTooManyRequests, "rate limit exceeded"},
		{"internal", NewInternalError("oops"), ErrorTypeInternal, http.StatusInternalServerError, "oops"},
		{"database", NewDatabaseError("get tree", cause), ErrorTypeDatabase, http.StatusInternalServerError, "database operation 'get tree' failed"},
		{"external", NewExternalError("eventbridge", cause), ErrorTypeExternal, http.StatusBadGateway, "external service 'eventbridge' error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.True(t, IsType(tt.err, tt.errType))
		})
	}
}

func TestAppError_Chain(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("command handler failed: %w", NewDatabaseError("save tree", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Contains(t, err.Error(), "caused by: connection reset")

	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", NewNotFoundError("project"))))
	assert.True(t, IsValidation(NewValidationError("x")))
	assert.True(t, IsNoConfigSelected(NewNoConfigSelectedError("p")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Nil(t, GetAppError(errors.New("plain")))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(&AppError{Type: ErrorTypeInternal}))

	stale := fmt.Errorf("failed to save project: %w", NewStaleWriteError("project"))
	assert.True(t, IsStaleWrite(stale))
	assert.Equal(t, http.StatusConflict, HTTPStatus(stale))
	assert.False(t, IsStaleWrite(NewConflictError("Nothing to undo")))

	coded := NewConflictError("x").WithCode("DUP")
	assert.Equal(t, "DUP", coded.Code)
	assert.Equal(t, "CONFLICT: x", coded.Error())
}

type envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func handle(t *testing.T, h *ErrorHandler, err error) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/projects/p1", nil), err)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler_Handle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewErrorHandler(zap.New(core), false)

	status, body := handle(t, h, fmt.Errorf("query handler failed: %w", NewNotFoundError("project")))
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, body.OK)
	assert.Equal(t, "project not found", body.Message)

	status, body = handle(t, h, NewDatabaseError("list trees", errors.New("timeout")))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "database operation 'list trees' failed", body.Message)

	status, body = handle(t, h, errors.New("secret detail"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "An internal error occurred", body.Message)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "Unhandled error", entries[2].Message)
}

func TestErrorHandler_DebugShowsForeignErrors(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)

	_, body := handle(t, h, errors.New("secret detail"))
	assert.Equal(t, "secret detail", body.Message)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, rec.Body.Len())
}
