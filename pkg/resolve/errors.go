package resolve

import (
	"errors"
	"fmt"

	"github.com/ccollicutt/log2sql/pkg/errdefs"
)

var errMalformedNumber = errors.New("malformed number(a.b) annotation")

// FieldNotFoundError reports a schema column with no source field.
type FieldNotFoundError struct {
	Column string
	Field  string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("column %q: field %q not in record", e.Column, e.Field)
}

func (e *FieldNotFoundError) Unwrap() error {
	return errdefs.ErrFieldNotFound
}

// CoercionError reports a value that does not parse as its column type.
type CoercionError struct {
	Column string
	Type   string
	Value  string
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q: cannot convert %q to %s: %v", e.Column, e.Value, e.Type, e.Err)
}

func (e *CoercionError) Unwrap() []error {
	return []error{errdefs.ErrTypeCoercion, e.Err}
}
