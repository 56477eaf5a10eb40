package dialect

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for binding:
// - Named placeholders become $N for postgres and ? elsewhere, values in order
// - Repeated names bind once per occurrence
// - Missing values bind as NULL
// - Lists bind as arrays on postgres
// - Lists expand into IN / NOT IN lists without array support
// - Empty lists compare constantly, scalars in list position compare directly
// - A list input outside its IN list binds by nullness

func TestBind_Positional(t *testing.T) {
	t.Parallel()

	sql := "SELECT * FROM t WHERE a = :a and b::text = :b or a > :a"
	values := map[string]any{"a": 1, "b": "x"}

	text, args, err := Bind(NewPostgres(), sql, values)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 and b::text = $2 or a > $3", text)
	assert.Equal(t, []any{1, "x", 1}, args)

	text, args, err = Bind(NewSQLite(), sql, values)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = ? and b::text = ? or a > ?", text)
	assert.Equal(t, []any{1, "x", 1}, args)

	_, args, err = Bind(NewSQLite(), "a = :missing", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, args)
}

func TestBind_Arrays(t *testing.T) {
	t.Parallel()

	text, args, err := Bind(NewPostgres(), "t.p = any(:input0)", map[string]any{"input0": []any{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "t.p = any($1)", text)
	require.Len(t, args, 1)
	assert.Equal(t, pq.Array([]any{1, 2}), args[0])

	_, args, err = Bind(NewPostgres(), "t.b = :blob", map[string]any{"blob": []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, []any{[]byte("x")}, args, "byte slices are scalars")
}

func TestBind_Expansion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sql      string
		values   map[string]any
		expected string
		args     []any
	}{
		{
			name:     "any becomes in",
			sql:      "t.p = any(:input0) and t.q = :input1",
			values:   map[string]any{"input0": []int{1, 2, 3}, "input1": "x"},
			expected: "t.p in (?, ?, ?) and t.q = ?",
			args:     []any{1, 2, 3, "x"},
		},
		{
			name:     "all becomes not in",
			sql:      "t.p <> all(:input0)",
			values:   map[string]any{"input0": []string{"a", "b"}},
			expected: "t.p not in (?, ?)",
			args:     []any{"a", "b"},
		},
		{
			name:     "lowercased operand",
			sql:      "lower(t.name) = any(:input0)",
			values:   map[string]any{"input0": []string{"a"}},
			expected: "lower(t.name) in (?)",
			args:     []any{"a"},
		},
		{
			name:     "query object list",
			sql:      "a.tags = ANY(:tags)",
			values:   map[string]any{"tags": []string{"x", "y"}},
			expected: "a.tags in (?, ?)",
			args:     []any{"x", "y"},
		},
		{
			name:     "empty in list",
			sql:      "t.p = any(:input0)",
			values:   map[string]any{"input0": []int{}},
			expected: "1 = 0",
		},
		{
			name:     "empty not in list",
			sql:      "t.p <> all(:input0)",
			values:   map[string]any{"input0": []int{}},
			expected: "1 = 1",
		},
		{
			name:     "scalar in list position",
			sql:      "t.p <> all(:input0)",
			values:   map[string]any{"input0": 4},
			expected: "t.p <> ?",
			args:     []any{4},
		},
		{
			name:     "unset statistics input",
			sql:      "(:input0 is null or t.p = any(:input0))",
			values:   map[string]any{"input0": nil},
			expected: "(? is null or t.p = ?)",
			args:     []any{nil, nil},
		},
		{
			name:     "statistics input with list",
			sql:      "(:input0 is null or t.p = any(:input0))",
			values:   map[string]any{"input0": []int{7, 8}},
			expected: "(? is null or t.p in (?, ?))",
			args:     []any{7, 7, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, args, err := Bind(NewMySQL(), tt.sql, tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
			assert.Equal(t, tt.args, args)
		})
	}
}
