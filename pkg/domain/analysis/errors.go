package analysis

import (
	"errors"
	"fmt"
)

// SchemaViolationError means the remote reply broke the response contract.
// It is the one failure a submission surfaces to its caller.
type SchemaViolationError struct {
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("analysis reply violates schema: field %q %s", e.Field, e.Reason)
}

func NewSchemaViolation(field, reason string) error {
	return &SchemaViolationError{Field: field, Reason: reason}
}

func IsSchemaViolation(err error) bool {
	var target *SchemaViolationError
	return errors.As(err, &target)
}
