package subscription

import "errors"

// Outcomes of the subscribe workflow.
var (
	ErrValidation        = errors.New("email is required")
	ErrAlreadySubscribed = errors.New("email is already subscribed")
	ErrPersistence       = errors.New("subscriber store failure")
)

// Errors a Store reports.
var (
	// ErrDuplicate means the store's uniqueness constraint rejected an insert.
	ErrDuplicate = errors.New("duplicate subscriber email")
	// ErrUnavailable wraps any storage failure other than a duplicate.
	ErrUnavailable = errors.New("subscriber store unavailable")
)
