package sqlgen

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/typedsql/internal/schema"
)

// Values binds named parameters to values.
type Values map[string]any

// Kind classifies a statement.
type Kind string

const (
	KindSelect Kind = "select"
	KindInsert Kind = "insert"
	KindMerge  Kind = "merge"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindRaw    Kind = "raw"
)

// Statement is generated SQL with named placeholders and the document
// describing them. Write statements carry one row of values per instance.
type Statement struct {
	Kind Kind
	// Type is the type the statement was generated for; nil for raw SQL.
	Type       *schema.Type
	SQL        string
	Parameters Structure
	Rows       []Values

	// GeneratedField names the primary key the database assigns on insert.
	GeneratedField string

	query *sq.SelectBuilder
	// columns maps field names to the qualified column a filtered select reads them from.
	columns map[string]string
}

// Values returns the first parameter row, or nil.
func (s *Statement) Values() Values {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0]
}

// Query returns the select builder behind a generated select, so callers can
// extend it with ordering and paging.
func (s *Statement) Query() (sq.SelectBuilder, bool) {
	if s.query == nil {
		return sq.SelectBuilder{}, false
	}
	return *s.query, true
}

// Column returns the qualified column of a field of a filtered select.
func (s *Statement) Column(field string) (string, bool) {
	column, ok := s.columns[field]
	return column, ok
}

// WithRows returns a copy of the statement bound to rows. Rows that are
// shared with the caller's instances are not copied.
func (s *Statement) WithRows(rows ...Values) *Statement {
	clone := *s
	clone.Rows = rows
	return &clone
}

// String returns the SQL text.
func (s *Statement) String() string {
	return s.SQL
}

func selectStatement(t *schema.Type, b sq.SelectBuilder, params Structure, values Values) (*Statement, error) {
	text, _, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}
	stmt := &Statement{
		Kind:       KindSelect,
		Type:       t,
		SQL:        text,
		Parameters: params,
		query:      &b,
	}
	if values != nil {
		stmt.Rows = []Values{values}
	}
	return stmt, nil
}
