package delivery

import "fmt"

// ValidationError marks input the user can fix by editing the form.
type ValidationError struct {
	Message string
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError marks a lookup for an entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError creates a NotFoundError for the given entity and identifier.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidStateError marks a status transition the state machine forbids.
type InvalidStateError struct {
	From string
	To   string
}

// NewInvalidStateError creates an InvalidStateError for the attempted transition.
func NewInvalidStateError(from, to string) *InvalidStateError {
	return &InvalidStateError{From: from, To: to}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ExternalServiceError wraps a failure of an outbound collaborator (pricing,
// geocoding). It surfaces to the user as a single generic retry prompt.
type ExternalServiceError struct {
	Op  string
	Err error
}

// NewExternalServiceError wraps err as a failure of the named operation.
func NewExternalServiceError(op string, err error) *ExternalServiceError {
	return &ExternalServiceError{Op: op, Err: err}
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying collaborator error.
func (e *ExternalServiceError) Unwrap() error { return e.Err }
