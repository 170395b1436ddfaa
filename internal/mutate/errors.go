package mutate

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable cause of a rejected command.
type Reason string

const (
	ReasonEmptyField      Reason = "empty-field"
	ReasonNotFound        Reason = "not-found"
	ReasonMalformedImport Reason = "malformed-import"
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (NotFoundError) RejectReason() Reason { return ReasonNotFound }

// ValidationError rejects input before it reaches the store.
type ValidationError struct {
	Code  Reason
	Field string
	Err   error
}

func (e ValidationError) Error() string {
	switch {
	case e.Code == ReasonEmptyField:
		return fmt.Sprintf("%s must not be empty", e.Field)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e ValidationError) Unwrap() error { return e.Err }

func (e ValidationError) RejectReason() Reason { return e.Code }

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var r interface{ RejectReason() Reason }
	if errors.As(err, &r) {
		return r.RejectReason(), true
	}
	return "", false
}

func emptyField(field string) error {
	return ValidationError{Code: ReasonEmptyField, Field: field}
}
