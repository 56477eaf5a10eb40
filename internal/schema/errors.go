package schema

import "errors"

var (
	// ErrTypeNotFound indicates a type id that is not registered
	ErrTypeNotFound = errors.New("type not found")

	// ErrDuplicateType indicates a type id registered twice
	ErrDuplicateType = errors.New("duplicate type")

	// ErrTypeCycle indicates a supertype chain that loops back on itself
	ErrTypeCycle = errors.New("type hierarchy contains a cycle")

	// ErrNoBinding indicates two tables in a chain that cannot be joined
	ErrNoBinding = errors.New("no binding between tables")

	// ErrInvalidDefinition indicates a malformed type definition file
	ErrInvalidDefinition = errors.New("invalid type definition")
)
