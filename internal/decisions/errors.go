package decisions

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the decision or condition does not exist.
	ErrNotFound = errors.New("decision not found")
	// ErrNoDecision indicates the workflow has not produced a decision yet.
	ErrNoDecision = errors.New("workflow has no decision")
	// ErrDuplicate indicates a decision already exists for the workflow.
	ErrDuplicate = errors.New("decision already exists for workflow")
	// ErrInvalidDecision indicates a value outside the decision vocabulary.
	ErrInvalidDecision = errors.New("invalid decision value")
	// ErrInvalidCondition indicates a malformed condition input.
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrConditionClosed indicates the condition is already satisfied or waived.
	ErrConditionClosed = errors.New("condition already cleared")
	// ErrNotesRequired indicates a waiver was submitted without notes.
	ErrNotesRequired = errors.New("waiver notes are required")
)

// MapHTTPStatus translates domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoDecision):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrConditionClosed):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidDecision),
		errors.Is(err, ErrInvalidCondition),
		errors.Is(err, ErrNotesRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
