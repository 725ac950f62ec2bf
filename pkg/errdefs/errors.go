// Package errdefs defines the error taxonomy shared by every stage of a run.
//
// Structural errors abort the whole run. Row errors only discard the line
// that produced them.
package errdefs

import "errors"

var (
	// ErrStructuralConfig marks a malformed template or schema, or a table that
	// does not fit the schema. Fatal.
	ErrStructuralConfig = errors.New("structural configuration error")

	// ErrSchema marks a schema description that could not be parsed.
	// Always reported together with ErrStructuralConfig.
	ErrSchema = errors.New("schema error")

	// ErrFieldNotFound is returned when a schema column has no source field
	// in a matched record. Row-local.
	ErrFieldNotFound = errors.New("field not found")

	// ErrTypeCoercion is returned when a captured value cannot be converted
	// to its column type. Row-local.
	ErrTypeCoercion = errors.New("type coercion failed")

	// ErrRowRejected is returned by a sink when the store refused a single
	// row. Row-local.
	ErrRowRejected = errors.New("row rejected by store")

	// ErrDedupPrecondition is returned when a dedup pass is enabled but the
	// table has no usable datetime column. Fatal.
	ErrDedupPrecondition = errors.New("dedup precondition failed")
)

// IsRowError reports whether err only concerns the current row.
func IsRowError(err error) bool {
	return errors.Is(err, ErrFieldNotFound) ||
		errors.Is(err, ErrTypeCoercion) ||
		errors.Is(err, ErrRowRejected)
}
