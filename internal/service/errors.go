package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
)

// FieldError is one problem with a booking request. Conflict marks problems
// caused by other bookings rather than by the request itself.
type FieldError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Conflict bool   `json:"conflict,omitempty"`
}

// ValidationErrors is the full set of problems found in a request.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, fe := range v {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) HasConflict() bool {
	for _, fe := range v {
		if fe.Conflict {
			return true
		}
	}
	return false
}

// Fields returns the distinct field names in the set.
func (v ValidationErrors) Fields() []string {
	seen := make(map[string]bool, len(v))
	var fields []string
	for _, fe := range v {
		if !seen[fe.Field] {
			seen[fe.Field] = true
			fields = append(fields, fe.Field)
		}
	}
	return fields
}

func (v ValidationErrors) Is(target error) bool {
	switch target {
	case ErrValidation:
		return !v.HasConflict()
	case ErrConflict:
		return v.HasConflict()
	}
	return false
}

func (v *ValidationErrors) add(field, msg string) {
	*v = append(*v, FieldError{Field: field, Message: msg})
}

func (v *ValidationErrors) addConflict(field, msg string) {
	*v = append(*v, FieldError{Field: field, Message: msg, Conflict: true})
}

// ConflictError names the resource that blocked an operation.
type ConflictError struct {
	Resource string // "venue" or "equipment"
	ID       int64
	Reason   string
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Resource, e.ID, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

type InvalidTransitionError struct {
	BookingID int64
	From      model.BookingStatus
	Action    string
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s booking %d in status %s", e.Action, e.BookingID, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
