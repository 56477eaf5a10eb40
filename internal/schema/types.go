package schema

import "strings"

// Kind is the semantic scalar type of a field.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindLong    Kind = "long"
	KindFloat   Kind = "float"
	KindDouble  Kind = "double"
	KindDecimal Kind = "decimal"
	KindBoolean Kind = "boolean"
	KindDate    Kind = "date"
	KindUUID    Kind = "uuid"
	KindBytes   Kind = "bytes"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInteger, KindLong, KindFloat, KindDouble,
		KindDecimal, KindBoolean, KindDate, KindUUID, KindBytes:
		return true
	}
	return false
}

// Unbounded is the MaxOccurs value for list fields.
const Unbounded = 0

// Field is a named, typed member of a Type.
type Field struct {
	Name string
	Kind Kind

	// MinOccurs is 0 for optional fields and 1 for required ones.
	MinOccurs int
	// MaxOccurs is 1 for single values and Unbounded for lists.
	MaxOccurs int

	PrimaryKey bool
	Generated  bool

	// ForeignName is a dotted table.column path the field is read through.
	ForeignName string
	// ForeignKey references the table this field points at, as "type-or-table[:field]".
	ForeignKey string

	DefaultValue string
}

// IsList reports whether the field holds more than one value.
func (f *Field) IsList() bool {
	return f.MaxOccurs != 1
}

// IsOptional reports whether the field may be absent.
func (f *Field) IsOptional() bool {
	return f.MinOccurs == 0
}

// Column returns the underscore-cased column name of the field.
func (f *Field) Column() string {
	return Underscore(f.Name)
}

// ForeignNamePath splits ForeignName into its table segments and final column.
// A path without a dot has no table segments.
func (f *Field) ForeignNamePath() (tables []string, column string) {
	parts := strings.Split(f.ForeignName, ".")
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// Type is a record shape that may extend one supertype.
type Type struct {
	// ID is the identifier the type is resolved by.
	ID   string
	Name string

	// CollectionName overrides the physical table name.
	CollectionName string

	// SuperID names the supertype; Super is linked on registration.
	SuperID string
	Super   *Type

	// Hidden types have no table of their own, their fields fold into the next visible subtype.
	Hidden bool

	// Restricted lists inherited field names this type excludes.
	Restricted []string

	Fields []*Field
}

// Field returns the field declared on t itself, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsRestricted reports whether t excludes the inherited field name.
func (t *Type) IsRestricted(name string) bool {
	for _, r := range t.Restricted {
		if r == name {
			return true
		}
	}
	return false
}

// String returns the type id, falling back to its name.
func (t *Type) String() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Name
}
