package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the kind shared by every store lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrValidationFailed marks a submission whose user or question cannot be resolved.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUserNotFound is returned when no user matches the id or username.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrQuestionNotFound is returned for unknown or already answered secret keys.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrDuplicateIdentity indicates a username or email collision.
	ErrDuplicateIdentity = errors.New("username or email already in use")
	// ErrProvider covers unreachable or invalid content and entropy providers.
	ErrProvider = errors.New("provider error")
	// ErrMalformedSubmission indicates a submission missing required fields.
	ErrMalformedSubmission = errors.New("malformed submission")
	// ErrInvalidUser indicates a user payload missing username or email.
	ErrInvalidUser = errors.New("invalid user")
)

// Rejected tags err as a reconciliation validation failure while keeping its kind.
func Rejected(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}
