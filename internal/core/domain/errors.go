package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Services wrap them with detail via fmt.Errorf("%w: ...")
// and handlers map them to status codes with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)

// Login gate outcomes for registrants without an active account
var (
	ErrAwaitingApproval     = errors.New("registration is awaiting administrator approval")
	ErrRegistrationRejected = errors.New("registration was rejected, please contact the administrator")
)

// Registration errors
var (
	ErrInvalidAdminCode  = fmt.Errorf("%w: invalid admin verification code", ErrForbidden)
	ErrEmailRegistered   = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrRequestInProgress = fmt.Errorf("%w: a registration request for this email is already pending or approved", ErrConflict)
	ErrRequestProcessed  = fmt.Errorf("%w: registration request has already been processed", ErrConflict)
	ErrApprovalStarted   = fmt.Errorf("%w: an approval was already started for this request, approve it to finish", ErrConflict)
	ErrRequestNotFound   = fmt.Errorf("%w: registration request not found", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrInsufficientRole  = fmt.Errorf("%w: insufficient role", ErrForbidden)
)

// Validation returns a validation error carrying msg
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Unavailable wraps a dependency failure. Deadlines and cancellations are
// reported the same way so callers know the operation can be retried.
func Unavailable(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s timed out", ErrServiceUnavailable, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrServiceUnavailable, op, err)
}
