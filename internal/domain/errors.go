package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidID         = errors.New("invalid id")
	ErrForbidden         = errors.New("not permitted for this identity")
	ErrUnknownReviewer   = errors.New("unknown reviewer")
	ErrPastItem          = errors.New("booking lies in the past and can no longer be changed")
	ErrConflict          = errors.New("date range overlaps an existing booking")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")

	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
)

// ConflictError names the blocking booking that won the date range.
type ConflictError struct {
	BookingID     string
	RequesterName string
	Status        Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("date range overlaps an existing booking (%s, %s)", e.RequesterName, e.Status)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
	ActionEdit    Action = "edit"
	ActionCancel  Action = "cancel"
	ActionReopen  Action = "reopen"
)

type InvalidTransitionError struct {
	From   Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s booking", e.Action, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
