package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusMismatch is returned by conditional transitions when the
	// booking is missing or not in the expected state.
	ErrStatusMismatch = errors.New("booking is not in the expected status")

	ErrLockHeld = errors.New("booking lock is held by another request")

	ErrInvalidDateRange = errors.New("check-out must be after check-in")

	ErrListingNotFound = errors.New("listing not found")
)
