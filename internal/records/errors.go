package records

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the acting session may not mutate the
// record.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports a required field that was missing or blank.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

type requiredField struct {
	name  string
	value string
}

func requireFields(fields []requiredField) error {
	for _, f := range fields {
		if f.value == "" {
			return &ValidationError{Field: f.name}
		}
	}
	return nil
}
