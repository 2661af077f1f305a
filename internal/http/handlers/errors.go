package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vietcms/moderation/internal/service"
)

// ErrorDetail is the error object inside the error envelope.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIError is the error envelope returned for every failed request.
type APIError struct {
	status  int
	Success bool        `json:"success"`
	Detail  ErrorDetail `json:"error"`
}

func (e *APIError) Error() string  { return e.Detail.Message }
func (e *APIError) GetStatus() int { return e.status }

// Error builds an envelope error with an explicit code.
func Error(status int, code, message string) *APIError {
	return &APIError{
		status:  status,
		Success: false,
		Detail:  ErrorDetail{Code: code, Message: message},
	}
}

// Framework-generated errors (validation failures, unknown routes) get
// codes derived from their status.
func init() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		return Error(status, codeForStatus(status), message)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}

// serviceError converts service-layer sentinels to envelope errors.
func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		return Error(http.StatusConflict, "EMAIL_EXISTS", "email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		return Error(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, service.ErrInvalidWebhookURL):
		return Error(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "webhook_url must be an http or https URL")
	case errors.Is(err, service.ErrJobNotFound):
		return Error(http.StatusNotFound, "JOB_NOT_FOUND", "job not found")
	default:
		return Error(http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
