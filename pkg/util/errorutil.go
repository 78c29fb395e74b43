package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers.
const (
	CodeNotFound          = "not_found"
	CodeForbidden         = "forbidden"
	CodeUnauthorized      = "unauthorized"
	CodeValidationFailed  = "validation_failed"
	CodeInvalidStatus     = "invalid_status"
	CodeThreadArchived    = "thread_archived"
	CodeAlreadyAssigned   = "already_assigned"
	CodeInvalidAssignedTo = "invalid_assigned_to"
	CodeConflict          = "conflict"
	CodeInternal          = "internal_error"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInvalidStatus(status string) error {
	return NewDomainError(CodeInvalidStatus, "invalid status", http.StatusUnprocessableEntity, map[string]any{"status": status})
}

func NewThreadArchived(threadID string) error {
	return NewDomainError(CodeThreadArchived, "thread is archived", http.StatusConflict, map[string]any{"thread_id": threadID})
}

func NewAlreadyAssigned(assigneeID string) error {
	return NewDomainError(CodeAlreadyAssigned, "already assigned to another staff member", http.StatusConflict,
		map[string]any{"assigned_staff_user_id": assigneeID})
}

func NewInvalidAssignedTo(staffUserID string) error {
	return NewDomainError(CodeInvalidAssignedTo, "assignee is not a staff member of this hotel", http.StatusUnprocessableEntity,
		map[string]any{"assigned_to": staffUserID})
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func MapError(err error) error {
	return ToDomainError(err)
}
