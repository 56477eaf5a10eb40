package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Registry and definition loading:
// - Register links supertypes declared in the same call, in any order
// - Register links supertypes registered earlier
// - Register rejects duplicates, unknown supertypes and cycles
// - Resolve returns ErrTypeNotFound for unknown ids
// - IDs and Subtypes report the hierarchy sorted
// - ParseDefinitions applies occurrence defaults and validates kinds
// - LoadFiles reads YAML files into a linked registry
// - Naming helpers underscore, shorten and clean up names

func TestRegistry_RegisterLinksSupertypes(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	child := &Type{ID: "b", Name: "B", SuperID: "a"}
	root := &Type{ID: "a", Name: "A"}
	require.NoError(t, reg.Register(child, root))

	assert.Same(t, root, child.Super)

	later := &Type{ID: "c", Name: "C", SuperID: "b"}
	require.NoError(t, reg.Register(later))
	assert.Same(t, child, later.Super)

	resolved, err := reg.Resolve("c")
	require.NoError(t, err)
	assert.Same(t, later, resolved)

	assert.Equal(t, []string{"a", "b", "c"}, reg.IDs())

	subs, err := reg.Subtypes("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, subs)
}

func TestRegistry_Errors(t *testing.T) {
	t.Parallel()

	t.Run("duplicate", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&Type{ID: "a"}))
		assert.ErrorIs(t, reg.Register(&Type{ID: "a"}), ErrDuplicateType)
	})

	t.Run("unknown supertype", func(t *testing.T) {
		reg := NewRegistry()
		assert.ErrorIs(t, reg.Register(&Type{ID: "a", SuperID: "missing"}), ErrTypeNotFound)
	})

	t.Run("cycle", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register(&Type{ID: "a", SuperID: "b"}, &Type{ID: "b", SuperID: "a"})
		assert.ErrorIs(t, err, ErrTypeCycle)
	})

	t.Run("missing id", func(t *testing.T) {
		reg := NewRegistry()
		assert.ErrorIs(t, reg.Register(&Type{Name: "anonymous"}), ErrInvalidDefinition)
	})

	t.Run("resolve unknown", func(t *testing.T) {
		_, err := NewRegistry().Resolve("nope")
		assert.ErrorIs(t, err, ErrTypeNotFound)
	})
}

const definitions = `
types:
  - id: crm.Party
    name: Party
    collection: party
    fields:
      - name: id
        type: uuid
        primary_key: true
        generated: true
      - name: tags
        max_occurs: 0
  - id: crm.Customer
    name: Customer
    extends: crm.Party
    restricted: [tags]
    fields:
      - name: active
        type: boolean
        min_occurs: 0
        default: "true"
`

func TestParseDefinitions(t *testing.T) {
	t.Parallel()

	types, err := ParseDefinitions([]byte(definitions))
	require.NoError(t, err)
	require.Len(t, types, 2)

	party := types[0]
	assert.Equal(t, "party", party.CollectionName)
	require.Len(t, party.Fields, 2)
	assert.True(t, party.Fields[0].PrimaryKey)
	assert.True(t, party.Fields[0].Generated)
	assert.Equal(t, KindString, party.Fields[1].Kind)
	assert.True(t, party.Fields[1].IsList())
	assert.False(t, party.Fields[1].IsOptional())

	customer := types[1]
	assert.Equal(t, "crm.Party", customer.SuperID)
	assert.Equal(t, []string{"tags"}, customer.Restricted)
	assert.True(t, customer.Fields[0].IsOptional())
	assert.Equal(t, "true", customer.Fields[0].DefaultValue)

	_, err = ParseDefinitions([]byte("types:\n  - id: x\n    fields:\n      - name: a\n        type: blob\n"))
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = ParseDefinitions([]byte("types: ["))
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestLoadFiles(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(definitions), 0o644))

	reg, err := LoadFiles(path)
	require.NoError(t, err)

	customer, err := reg.Resolve("crm.Customer")
	require.NoError(t, err)
	require.NotNil(t, customer.Super)
	assert.Equal(t, "party", TableName(customer))

	_, err = LoadFiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNaming(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "order_line", Underscore("orderLine"))
	assert.Equal(t, "order_line", Underscore("OrderLine"))
	assert.Equal(t, "created_at", Underscore("created_at"))
	assert.Equal(t, "", Underscore(""))

	assert.Equal(t, "ol", ShortName("order_line"))
	assert.Equal(t, "n", ShortName("node"))
	assert.Equal(t, "abc", ShortName("a__b_c"))

	assert.Equal(t, "firstName", CleanupName("first_name"))
	assert.Equal(t, "firstName", CleanupName("FIRST_NAME"))
	assert.Equal(t, "arg1", CleanupName("1"))
}
