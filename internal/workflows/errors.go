package workflows

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the workflow does not exist.
	ErrNotFound = errors.New("workflow not found")
	// ErrDuplicate indicates another workflow exists for the application.
	ErrDuplicate = errors.New("workflow already exists for application")
	// ErrInvalidTransition indicates an illegal state change request.
	ErrInvalidTransition = errors.New("invalid workflow transition")
	// ErrRetryLimitExceeded indicates start attempts have been exhausted.
	ErrRetryLimitExceeded = errors.New("workflow retry limit exceeded")
	// ErrDuplicateEvent indicates a callback re-delivery, ignored not erred.
	ErrDuplicateEvent = errors.New("duplicate callback event")
	// ErrInvalidPayload indicates a malformed callback payload.
	ErrInvalidPayload = errors.New("invalid callback payload")
)

// MapHTTPStatus translates domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrRetryLimitExceeded):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
