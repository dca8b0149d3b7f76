package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks malformed shop settings. It is fatal to the computation.
	ErrConfiguration = errors.New("invalid shop configuration")
	// ErrNotFound is returned by collaborators for a missing shop or booking.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is returned by Store.CreateBooking when a concurrent booking claimed the staff first.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrBookingChanged is returned by Store.CreateBooking when the booking being
	// rebooked stopped being active before the swap.
	ErrBookingChanged = errors.New("booking changed concurrently")
)

const (
	// ReasonSlotTaken is reported when the slot was claimed between validation and insert.
	ReasonSlotTaken = "the selected time was just booked by someone else"
	// ReasonBookingChanged is reported when the original was cancelled or rebooked mid-flight.
	ReasonBookingChanged = "the booking was changed by another request"
)

// ValidationError carries user-correctable reasons.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// Invalid builds a ValidationError from reasons.
func Invalid(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

// CollaboratorError wraps a failed storage or payment call.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// collaborator wraps err unless it is nil or already a not-found.
func collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &CollaboratorError{Op: op, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCollaborator reports whether err carries a CollaboratorError.
func IsCollaborator(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce)
}
