package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a checkout session cannot be found
	ErrSessionNotFound = errors.New("checkout session not found")

	// ErrSessionFinalized is returned when attempting to mutate a session that was already submitted
	ErrSessionFinalized = errors.New("checkout session already finalized")

	// ErrAlreadySubmitted is returned when a session is submitted a second time
	ErrAlreadySubmitted = errors.New("order already submitted for this session")

	// ErrPlanNotFound is returned when the selected plan does not exist in the catalog
	ErrPlanNotFound = errors.New("plan not found")

	// ErrOrderNotFound is returned when a finalized order cannot be found
	ErrOrderNotFound = errors.New("order not found")

	// ErrEmailNotVerified is returned when submit's forced re-verification does not resolve to valid
	ErrEmailNotVerified = errors.New("email address could not be verified")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)

// MissingFieldError reports which required field was empty at submit time so
// the handler can surface a field-level message.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %s is empty", e.Field)
}
