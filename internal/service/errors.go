package service

import (
	"errors"
	"fmt"
)

// Kind classifies service errors for callers (the HTTP layer maps kinds to
// status codes).
type Kind int

const (
	KindPersistence Kind = iota // Store failure; the operation is atomic and safe to retry
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "persistence"
	}
}

// Error is a classified sentinel. Code is stable for API clients. Detail is
// attached by wrapping: fmt.Errorf("%w: age must be positive", ErrValidation).
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// --- Error Definitions ---
var (
	ErrValidation = &Error{KindValidation, "invalid_input", "invalid input"}
	ErrEmptyPlan  = &Error{KindValidation, "empty_plan", "plan has no workouts"}

	ErrMemberNotFound  = &Error{KindNotFound, "member_not_found", "member not found"}
	ErrTrainerNotFound = &Error{KindNotFound, "trainer_not_found", "trainer not found"}
	ErrRequestNotFound = &Error{KindNotFound, "request_not_found", "schedule request not found"}
	ErrPlanNotFound    = &Error{KindNotFound, "plan_not_found", "workout plan not found"}
	ErrSlotNotFound    = &Error{KindNotFound, "slot_not_found", "availability slot not found"}
	ErrUnknownWorkout  = &Error{KindNotFound, "unknown_workout", "workout not found in catalog"}

	ErrRequestNotApprovable = &Error{KindConflict, "request_not_approvable", "schedule request cannot be turned into a plan"}
	ErrInvalidTransition    = &Error{KindConflict, "invalid_transition", "status transition not allowed"}
	ErrConflictingBooking   = &Error{KindConflict, "conflicting_booking", "member already has a booking in this time window"}
	ErrNoAvailableSlot      = &Error{KindConflict, "no_available_slot", "trainer has no slot covering this time window"}
	ErrSlotUnavailable      = &Error{KindConflict, "slot_unavailable", "trainer slot is already booked"}
	ErrSlotOverlap          = &Error{KindConflict, "slot_overlap", "slot overlaps an existing slot of the trainer"}

	ErrPersistence = &Error{KindPersistence, "persistence_failure", "persistence failure"}
)

// KindOf reports the kind of err. Errors that carry no service sentinel are
// infrastructure failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindPersistence
}

// CodeOf returns the stable code of the service sentinel in err.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrPersistence.Code
}

// persistence wraps a store error, keeping service errors unchanged.
func persistence(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
