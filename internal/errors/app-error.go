package app_error

import (
	"encoding/json"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e AppError) Error() string {
	return e.Message
}

func (e AppError) JSON(w http.ResponseWriter) error {
	return json.NewEncoder(w).Encode(e)
}

func NewAppError(code int, msg, field string) *AppError {
	return &AppError{
		Code:    code,
		Message: msg,
		Field:   field,
	}
}

func NewValidationError(msg, field string) *AppError {
	return NewAppError(http.StatusBadRequest, msg, field)
}

func NewForbiddenError(msg string) *AppError {
	return NewAppError(http.StatusForbidden, msg, "permission")
}

func NewNotFoundError(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg, "not-found")
}

func NewConflictError(msg, field string) *AppError {
	return NewAppError(http.StatusConflict, msg, field)
}

// NewServerError carries a generic client-facing message; the underlying
// cause must be logged at the call site, never sent over the wire.
func NewServerError(field string) *AppError {
	return NewAppError(http.StatusInternalServerError, "Internal server error", field)
}

// IsClientSafe reports whether the message may be shown to the caller as-is.
func (e *AppError) IsClientSafe() bool {
	return e.Code != http.StatusInternalServerError
}
