package schema

import (
	"fmt"
	"strings"
)

// Binder supplies the columns that join a type's table to its parent's table.
type Binder interface {
	// Binding returns the child field and the parent field that are equal
	// across the two tables.
	Binding(child, parent *Type) (childField, parentField string, err error)
}

// KeyBinder binds tables through foreign keys, falling back to shared primary keys.
type KeyBinder struct{}

// Binding looks for a field in child's table whose ForeignKey references parent
// by id or by table name. Without one, the two primary keys are paired, which
// is the usual layout for extension tables.
func (KeyBinder) Binding(child, parent *Type) (string, string, error) {
	parentKey := PrimaryKey(parent)
	for _, f := range FieldsInTable(child) {
		if f.ForeignKey == "" {
			continue
		}
		target, field, _ := strings.Cut(f.ForeignKey, ":")
		if target != parent.ID && target != TableName(parent) {
			continue
		}
		if field == "" {
			if parentKey == nil {
				return "", "", fmt.Errorf("%w: %s has no primary key for %s.%s", ErrNoBinding, parent, child, f.Name)
			}
			field = parentKey.Name
		}
		return f.Name, field, nil
	}

	childKey := PrimaryKey(child)
	if childKey == nil || parentKey == nil {
		return "", "", fmt.Errorf("%w: %s and %s", ErrNoBinding, child, parent)
	}
	return childKey.Name, parentKey.Name, nil
}
