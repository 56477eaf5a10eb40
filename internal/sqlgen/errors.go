package sqlgen

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPrimaryKey indicates an update or delete on a type without primary key
	ErrNoPrimaryKey = errors.New("could not find primary key")

	// ErrMergeWithoutPrimaryKey indicates a merge on a type without primary key
	ErrMergeWithoutPrimaryKey = errors.New("can only merge if a primary key field is present")

	// ErrUnresolvedJoins indicates explicit joins whose source never gets bound
	ErrUnresolvedJoins = errors.New("could not resolve all added joins")

	// ErrFieldNotFound indicates a field that no type in the chain contains
	ErrFieldNotFound = errors.New("could not find the type that contains the field")

	// ErrTooManyBindings indicates more than 99 tables sharing one short alias
	ErrTooManyBindings = errors.New("too many bindings for name")

	// ErrUnsupportedOperator indicates a filter operator outside the known set
	ErrUnsupportedOperator = errors.New("unsupported filter operator")

	// ErrNothingToUpdate signals an update without any writable column.
	// It is a skip condition, not a failure.
	ErrNothingToUpdate = errors.New("nothing to update")

	// ErrNothingToInsert indicates a merge into a table without any writable column
	ErrNothingToInsert = errors.New("nothing to insert")
)

// IsSkip reports whether err only signals that a statement has nothing to do.
func IsSkip(err error) bool {
	return errors.Is(err, ErrNothingToUpdate)
}

// BuildError describes a statement that could not be generated.
type BuildError struct {
	Op    string // insert, merge, update, delete, select, where, from
	Type  string // offending type id
	Field string // offending field, if any
	Err   error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Op, e.Type, e.Err, e.Field)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Type, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *BuildError) Unwrap() error {
	return e.Err
}
