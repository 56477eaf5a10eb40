package schema

// TableName returns the physical table of t: its own collection name, else the
// nearest ancestor's collection name, else its own name. The result is underscore-cased.
func TableName(t *Type) string {
	for search := t; search != nil; search = search.Super {
		if search.CollectionName != "" {
			return Underscore(search.CollectionName)
		}
	}
	return Underscore(t.Name)
}

// Chain returns t and its ancestors, root first.
func Chain(t *Type) []*Type {
	var chain []*Type
	for current := t; current != nil; current = current.Super {
		chain = append(chain, current)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// TableTypes returns the types of t's chain that own a table, child first.
// Hidden ancestors and ancestors stored in the same table as their subtype are
// folded into that subtype.
func TableTypes(t *Type) []*Type {
	owners := []*Type{t}
	previous := TableName(t)
	for current := t.Super; current != nil; current = current.Super {
		if current.Hidden {
			continue
		}
		name := TableName(current)
		if name == previous {
			continue
		}
		owners = append(owners, current)
		previous = name
	}
	return owners
}

// FieldsInTable returns the fields stored in t's table, ancestors first. Fields
// of hidden ancestors and of ancestors sharing t's table are included unless t
// restricts them. A redeclared field keeps its ancestor position with the
// subtype's definition.
func FieldsInTable(t *Type) []*Field {
	table := TableName(t)
	group := []*Type{t}
	for current := t.Super; current != nil; current = current.Super {
		if !current.Hidden && TableName(current) != table {
			break
		}
		group = append(group, current)
	}
	return mergeFields(group)
}

// AllFields returns every field visible on t across its whole chain, ancestors
// first, honoring restrictions and overrides.
func AllFields(t *Type) []*Field {
	var group []*Type
	for current := t; current != nil; current = current.Super {
		group = append(group, current)
	}
	return mergeFields(group)
}

// mergeFields merges the fields of a child-first slice of types.
func mergeFields(group []*Type) []*Field {
	var (
		fields []*Field
		index  = map[string]int{}
	)
	for i := len(group) - 1; i >= 0; i-- {
		for _, f := range group[i].Fields {
			if restrictedBelow(group[:i], f.Name) {
				continue
			}
			if pos, ok := index[f.Name]; ok {
				fields[pos] = f
				continue
			}
			index[f.Name] = len(fields)
			fields = append(fields, f)
		}
	}
	return fields
}

// restrictedBelow reports whether any of the given subtypes restricts name.
func restrictedBelow(subtypes []*Type, name string) bool {
	for _, sub := range subtypes {
		if sub.IsRestricted(name) {
			return true
		}
	}
	return false
}

// PrimaryKey returns the primary key field stored in t's table, or nil.
func PrimaryKey(t *Type) *Field {
	for _, f := range FieldsInTable(t) {
		if f.PrimaryKey {
			return f
		}
	}
	return nil
}

// Lookup finds the field name along a root-first chain. It returns the type
// whose table the field should be addressed through. A field a type restricts
// is still found on that type's supertype but addressed through the type itself.
func Lookup(chain []*Type, name string) (*Type, *Field) {
	for _, t := range chain {
		if f := t.Field(name); f != nil {
			return t, f
		}
		if t.Super != nil && t.IsRestricted(name) {
			if f := findInChain(t.Super, name); f != nil {
				return t, f
			}
		}
	}
	return nil, nil
}

func findInChain(t *Type, name string) *Field {
	for current := t; current != nil; current = current.Super {
		if f := current.Field(name); f != nil {
			return f
		}
	}
	return nil
}
