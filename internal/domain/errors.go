package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ValidationError is returned for malformed input, before anything is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input"
	}
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// AuthorizationError is returned when the caller lacks a relationship to the resource.
type AuthorizationError struct {
	Action string
}

func (e AuthorizationError) Error() string {
	if e.Action == "" {
		return "forbidden"
	}
	return fmt.Sprintf("forbidden: %s", e.Action)
}

func (e AuthorizationError) Is(target error) bool {
	_, ok := target.(AuthorizationError)
	if ok {
		return true
	}
	_, ok = target.(*AuthorizationError)
	return ok
}

// PersistenceError wraps a failed durable write. The mutation it belonged to was not applied.
type PersistenceError struct {
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %v", e.Err)
}

func (e PersistenceError) Unwrap() error {
	return e.Err
}

func (e PersistenceError) Is(target error) bool {
	_, ok := target.(PersistenceError)
	if ok {
		return true
	}
	_, ok = target.(*PersistenceError)
	return ok
}

var (
	// ErrNotFound is the sentinel error for missing resources.
	ErrNotFound = NotFoundError{}
	// ErrValidation is the sentinel error for rejected input.
	ErrValidation = ValidationError{}
	// ErrForbidden is the sentinel error for authorization failures.
	ErrForbidden = AuthorizationError{}
	// ErrPersistence is the sentinel error for failed durable writes.
	ErrPersistence = PersistenceError{}
)
