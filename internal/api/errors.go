package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/nh-parity-go/internal/converge"
	"github.com/MJE43/nh-parity-go/internal/fixture"
	"github.com/MJE43/nh-parity-go/internal/oracle"
	"github.com/MJE43/nh-parity-go/internal/store"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]any),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records the underlying error's text.
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   eb.context,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler writes error responses and logs them.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError maps err onto a status and error type. Errors the handler
// does not recognise become defaultStatus internal errors.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error, defaultStatus int) {
	requestID := middleware.GetReqID(r.Context())

	var engineErr EngineError
	if errors.As(err, &engineErr) {
		eh.respond(w, r, defaultStatus, engineErr)
		return
	}

	status, errType, message := classify(err, defaultStatus)
	engineErr = NewError(errType, message).
		WithRequestID(requestID).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		WithCause(err).
		Build()
	eh.respond(w, r, status, engineErr)
}

func classify(err error, defaultStatus int) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrTypeNotFound, "Resource not found"
	case errors.Is(err, fixture.ErrInvalid), errors.Is(err, fixture.ErrUnsupported):
		return http.StatusBadRequest, ErrTypeInvalidFixture, "Fixture is invalid"
	case errors.Is(err, converge.ErrNoFixtures):
		return http.StatusBadRequest, ErrTypeValidation, "Validation failed: no fixtures"
	case errors.Is(err, errNoStore):
		return http.StatusServiceUnavailable, ErrTypeServiceUnavailable, "Result store unavailable"
	case errors.Is(err, oracle.ErrOracleUnavailable):
		return http.StatusServiceUnavailable, ErrTypeOracleUnavailable, "Oracle unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, oracle.ErrTimeout):
		return http.StatusGatewayTimeout, ErrTypeTimeout, "Operation timed out"
	}
	return defaultStatus, ErrTypeInternal, err.Error()
}

// HandleValidationError handles validation-specific errors
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		Build()

	eh.respond(w, r, http.StatusBadRequest, engineErr)
}

func (eh *ErrorHandler) respond(w http.ResponseWriter, r *http.Request, status int, engineErr EngineError) {
	eh.logError(r, engineErr, status)
	writeErrorResponse(w, status, engineErr)
}

// logError logs validation problems at warn and everything else at error.
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	category := GetErrorCategory(engineErr.Type)
	level := slog.LevelError
	if category == CategoryValidation || category == CategoryLookup {
		level = slog.LevelWarn
	}

	attrs := []any{
		"type", engineErr.Type,
		"category", category,
		"status", status,
		"request_id", engineErr.RequestID,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_ip", r.RemoteAddr,
	}
	for key, value := range engineErr.Context {
		if key == "path" || key == "method" {
			continue
		}
		attrs = append(attrs, key, value)
	}
	eh.logger.Log(r.Context(), level, "error_occurred: "+engineErr.Message, attrs...)
}

func writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// RecoveryHandler turns panics into structured 500 responses.
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			requestID := middleware.GetReqID(r.Context())
			eh.logger.Error("panic_recovered",
				"request_id", requestID,
				"path", r.URL.Path,
				"method", r.Method,
				"panic", fmt.Sprint(rvr))

			engineErr := NewError(ErrTypeInternal, "Internal server error").
				WithRequestID(requestID).
				WithContext("panic", fmt.Sprint(rvr)).
				WithContext("path", r.URL.Path).
				WithContext("method", r.Method).
				Build()
			writeErrorResponse(w, http.StatusInternalServerError, engineErr)
		}()

		next.ServeHTTP(w, r)
	})
}
