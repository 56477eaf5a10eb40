package sqlgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/typedsql/internal/schema"
)

// Test Plan for the predicate compiler:
// - Single comparisons bind consecutive inputN slots
// - Toggle operators with false are skipped (skip policy) or inverted (invert policy)
// - Toggle operators with nil are always skipped, with true or no value they apply
// - Comparisons without values are skipped and take no slot
// - OR groups wrap exactly the filters chained by OrWithNext
// - Multi-value comparisons bind lists through any()/all()
// - Case-insensitive filters lowercase both sides
// - Default-value widening only applies to = on optional defaulted fields
// - Foreign-name fields are addressed through the last path table
// - Statistics mode makes each comparison optional through its input
// - Fields are addressed through the alias of their table in an inheritance chain
// - Unknown fields and operators fail with descriptive errors
// - Input slots carry the source field's kind and the filter key as label

func taskType() *schema.Type {
	done := optional("done", schema.KindBoolean)
	done.DefaultValue = "false"
	owner := optional("ownerName", schema.KindString)
	owner.ForeignName = "users.name"
	return &schema.Type{ID: "todo.Task", Name: "Task", Fields: []*schema.Field{
		key("id", true),
		required("title", schema.KindString),
		done,
		required("priority", schema.KindInteger),
		owner,
		optional("archivedAt", schema.KindDate),
	}}
}

func compile(t *testing.T, opts Options, typ *schema.Type, nullSupport bool, filters ...Filter) *Where {
	t.Helper()
	chain := schema.Chain(typ)
	aliases, err := AllocateAliases(chain)
	require.NoError(t, err)
	g := New(nil, opts)
	from, err := g.BuildFrom(chain, aliases, nil)
	require.NoError(t, err)
	where, err := g.CompileWhere(filters, chain, from.AliasOf, nullSupport)
	require.NoError(t, err)
	return where
}

// sqlOf renders the predicates of where the way a select joins them.
func sqlOf(t *testing.T, where *Where) string {
	t.Helper()
	text, args, err := where.ToSql()
	require.NoError(t, err)
	assert.Empty(t, args)
	return text
}

func TestCompileWhere_Rules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     Options
		filters  []Filter
		expected string
		values   Values
	}{
		{
			name:     "single comparison",
			filters:  []Filter{{Key: "title", Operator: "=", Values: []any{"x"}}},
			expected: "t.title = :input0",
			values:   Values{"input0": "x"},
		},
		{
			name: "consecutive slots",
			filters: []Filter{
				{Key: "title", Operator: "=", Values: []any{"x"}},
				{Key: "priority", Operator: ">=", Values: []any{2}},
			},
			expected: "t.title = :input0 AND t.priority >= :input1",
			values:   Values{"input0": "x", "input1": 2},
		},
		{
			name: "false toggle is skipped",
			filters: []Filter{
				{Key: "archivedAt", Operator: "is null", Values: []any{false}},
				{Key: "title", Operator: "=", Values: []any{"x"}},
			},
			expected: "t.title = :input0",
			values:   Values{"input0": "x"},
		},
		{
			name: "true toggle applies",
			filters: []Filter{
				{Key: "archivedAt", Operator: "is null", Values: []any{true}},
				{Key: "title", Operator: "=", Values: []any{"x"}},
			},
			expected: "t.archived_at is null AND t.title = :input0",
			values:   Values{"input0": "x"},
		},
		{
			name:     "nil toggle is skipped",
			filters:  []Filter{{Key: "archivedAt", Operator: "IS NULL", Values: []any{nil}}},
			expected: "",
			values:   Values{},
		},
		{
			name:     "toggle without value applies",
			filters:  []Filter{{Key: "archivedAt", Operator: "is not null"}},
			expected: "t.archived_at is not null",
			values:   Values{},
		},
		{
			name:     "inverted null toggle swaps operator",
			opts:     Options{Toggle: ToggleInvert},
			filters:  []Filter{{Key: "archivedAt", Operator: "is null", Values: []any{false}}},
			expected: "t.archived_at is not null",
			values:   Values{},
		},
		{
			name:     "inverted toggle wraps in not",
			opts:     Options{Toggle: ToggleInvert},
			filters:  []Filter{{Key: "done", Operator: "is true", Values: []any{false}}},
			expected: "not(t.done is true)",
			values:   Values{},
		},
		{
			name: "comparison without values is skipped",
			filters: []Filter{
				{Key: "title", Operator: "="},
				{Key: "priority", Operator: "<", Values: []any{5}},
			},
			expected: "t.priority < :input0",
			values:   Values{"input0": 5},
		},
		{
			name:     "multi value any",
			filters:  []Filter{{Key: "priority", Operator: "=", Values: []any{1, 2}}},
			expected: "t.priority = any(:input0)",
			values:   Values{"input0": []any{1, 2}},
		},
		{
			name:     "multi value all",
			filters:  []Filter{{Key: "priority", Operator: "<>", Values: []any{1, 2}}},
			expected: "t.priority <> all(:input0)",
			values:   Values{"input0": []any{1, 2}},
		},
		{
			name:     "case insensitive",
			filters:  []Filter{{Key: "title", Operator: "LIKE", Values: []any{"%x%"}, CaseInsensitive: true}},
			expected: "lower(t.title) like lower(:input0)",
			values:   Values{"input0": "%x%"},
		},
		{
			name:     "default value widening",
			filters:  []Filter{{Key: "done", Operator: "=", Values: []any{false}}},
			expected: "(t.done is null OR t.done = :input0)",
			values:   Values{"input0": false},
		},
		{
			name:     "default value widening from text",
			filters:  []Filter{{Key: "done", Operator: "=", Values: []any{"false"}}},
			expected: "(t.done is null OR t.done = :input0)",
			values:   Values{"input0": "false"},
		},
		{
			name:     "non default value is not widened",
			filters:  []Filter{{Key: "done", Operator: "=", Values: []any{true}}},
			expected: "t.done = :input0",
			values:   Values{"input0": true},
		},
		{
			name:     "widening only for equality",
			filters:  []Filter{{Key: "done", Operator: "<>", Values: []any{false}}},
			expected: "t.done <> :input0",
			values:   Values{"input0": false},
		},
		{
			name:     "widening disabled",
			opts:     Options{Widening: WidenOff},
			filters:  []Filter{{Key: "done", Operator: "=", Values: []any{false}}},
			expected: "t.done = :input0",
			values:   Values{"input0": false},
		},
		{
			name:     "foreign name",
			filters:  []Filter{{Key: "ownerName", Operator: "=", Values: []any{"bob"}}},
			expected: "users.name = :input0",
			values:   Values{"input0": "bob"},
		},
		{
			name:     "nil key is ignored",
			filters:  []Filter{{Operator: "=", Values: []any{1}}},
			expected: "",
			values:   Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where := compile(t, tt.opts, taskType(), false, tt.filters...)
			assert.Equal(t, tt.expected, sqlOf(t, where))
			assert.Equal(t, tt.values, where.Values)
		})
	}
}

func TestCompileWhere_OrGrouping(t *testing.T) {
	t.Parallel()

	where := compile(t, Options{}, taskType(), false,
		Filter{Key: "title", Operator: "=", Values: []any{"a"}},
		Filter{Key: "priority", Operator: ">", Values: []any{1}, OrWithNext: true},
		Filter{Key: "priority", Operator: "<", Values: []any{9}},
	)
	assert.Equal(t, "t.title = :input0 AND (t.priority > :input1 OR t.priority < :input2)", sqlOf(t, where))
	assert.Equal(t, 1, strings.Count(sqlOf(t, where), "("))

	where = compile(t, Options{}, taskType(), false,
		Filter{Key: "title", Operator: "=", Values: []any{"a"}, OrWithNext: true},
		Filter{Key: "title", Operator: "=", Values: []any{"b"}, OrWithNext: true},
		Filter{Key: "title", Operator: "=", Values: []any{"c"}},
		Filter{Key: "priority", Operator: "=", Values: []any{1}},
	)
	assert.Equal(t, "(t.title = :input0 OR t.title = :input1 OR t.title = :input2) AND t.priority = :input3", sqlOf(t, where))

	where = compile(t, Options{}, taskType(), false,
		Filter{Key: "priority", Operator: "=", Values: []any{1}},
		Filter{Key: "title", Operator: "=", Values: []any{"a"}, OrWithNext: true},
	)
	assert.Equal(t, "t.priority = :input0 AND (t.title = :input1)", sqlOf(t, where), "a trailing open group is closed")
}

func TestCompileWhere_Statistics(t *testing.T) {
	t.Parallel()

	where := compile(t, Options{}, taskType(), true,
		Filter{Key: "title", Operator: "=", Values: []any{"a"}},
		Filter{Key: "archivedAt", Operator: "is null"},
	)
	assert.Equal(t, "(:input0 is null OR t.title = :input0) AND t.archived_at is null", sqlOf(t, where))

	element, ok := where.Parameters.Get("input0")
	require.True(t, ok)
	assert.True(t, element.Optional)
}

func TestCompileWhere_Parameters(t *testing.T) {
	t.Parallel()

	where := compile(t, Options{}, taskType(), false,
		Filter{Key: "priority", Operator: "=", Values: []any{1, 2, 3}},
		Filter{Key: "title", Operator: "like", Values: []any{"x%"}},
		Filter{Key: "priority", Operator: "<", Values: []any{7}},
	)

	elements := where.Parameters.Elements()
	require.Len(t, elements, 3)
	assert.Equal(t, Element{Name: "input0", Kind: schema.KindInteger, List: true, Label: "priority"}, elements[0])
	assert.Equal(t, Element{Name: "input1", Kind: schema.KindString, Label: "title"}, elements[1])
	assert.Equal(t, []string{"input0", "input2"}, where.Parameters.Labelled("priority"))
}

func TestCompileWhere_InheritedAliases(t *testing.T) {
	t.Parallel()

	_, _, customer := partyHierarchy()
	where := compile(t, Options{}, customer, false,
		Filter{Key: "name", Operator: "=", Values: []any{"acme"}},
		Filter{Key: "modifiedBy", Operator: "=", Values: []any{"me"}},
		Filter{Key: "loyaltyLevel", Operator: ">", Values: []any{1}},
	)
	assert.Equal(t, "p1.name = :input0 AND c.modified_by = :input1 AND c.loyalty_level > :input2", sqlOf(t, where))
}

func TestCompileWhere_Errors(t *testing.T) {
	t.Parallel()

	chain := schema.Chain(taskType())
	aliases, err := AllocateAliases(chain)
	require.NoError(t, err)
	g := New(nil, Options{})
	from, err := g.BuildFrom(chain, aliases, nil)
	require.NoError(t, err)

	_, err = g.CompileWhere([]Filter{{Key: "missing", Operator: "=", Values: []any{1}}}, chain, from.AliasOf, false)
	assert.ErrorIs(t, err, ErrFieldNotFound)
	assert.Contains(t, err.Error(), "missing")

	_, err = g.CompileWhere([]Filter{{Key: "title", Operator: "; drop table x", Values: []any{1}}}, chain, from.AliasOf, false)
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
}
