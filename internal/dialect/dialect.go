// Package dialect adapts generated SQL to concrete databases.
//
// Statements are generated once in a postgres-flavoured form with named
// placeholders (:name) and table tokens (~table). Before execution a Dialect
// rewrites the text, affixes resolve the table tokens and Bind turns the named
// placeholders into the driver's positional form.
//
// Supported dialects:
//
//   - postgres: pgx driver, array binding, RETURNING
//   - sqlite: go-sqlite3 driver, IN-list expansion, LastInsertId
//   - mysql: go-sql-driver, IN-list expansion, ON DUPLICATE KEY UPDATE
//   - ansi: no driver, used for rendering only
package dialect

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
)

// Dialect names.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
	MySQL    = "mysql"
	ANSI     = "ansi"
)

var (
	// ErrUnknownDialect indicates a dialect name that was never registered
	ErrUnknownDialect = errors.New("unknown dialect")

	// ErrNoLiteral indicates a value that has no literal form in the dialect
	ErrNoLiteral = errors.New("value has no literal representation")

	// ErrUnsupported indicates a feature the dialect cannot express
	ErrUnsupported = errors.New("not supported by dialect")

	// ErrInvalidSQL indicates text the dialect's parser rejected
	ErrInvalidSQL = errors.New("invalid SQL")

	// ErrInvalidDSN indicates a data source name the driver cannot parse
	ErrInvalidDSN = errors.New("invalid data source name")
)

// Dialect describes how one database family spells generated SQL.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver the dialect opens connections with.
	DriverName() string
	// Placeholder converts ? markers to the driver's positional form.
	Placeholder() sq.PlaceholderFormat
	// HasArraySupport reports whether lists bind as a single array parameter.
	HasArraySupport() bool
	// NumericGroupBy reports whether GROUP BY accepts column ordinals.
	NumericGroupBy() bool

	// Rewrite adapts generated SQL to the dialect. It must be a pure function
	// of its input; results are cached per dialect.
	Rewrite(sql string) string
	// Array wraps a list value for binding as one parameter.
	Array(list any) any
	// Literal renders a value as an SQL literal.
	Literal(value any) (string, error)
	QuoteIdentifier(name string) string

	// Returning returns the clause that reads back a generated column, or an
	// empty string when the key comes from LastInsertId.
	Returning(column string) string
	// Call renders the call of a stored procedure with arity positional
	// arguments. With returns set the procedure's return value is read as a row.
	Call(name string, arity int, returns bool) (string, error)
	// ExplainPrefix is prepended to a statement to get its plan.
	ExplainPrefix() string

	// CheckDSN validates a data source name without connecting.
	CheckDSN(dsn string) error
	// Validate parses positional, affixed SQL when the dialect has a parser.
	Validate(sql string) error
}

// base carries the static properties shared by every dialect.
type base struct {
	name           string
	driver         string
	placeholder    sq.PlaceholderFormat
	arrays         bool
	numericGroupBy bool
}

func (b base) Name() string                      { return b.name }
func (b base) DriverName() string                { return b.driver }
func (b base) Placeholder() sq.PlaceholderFormat { return b.placeholder }
func (b base) HasArraySupport() bool             { return b.arrays }
func (b base) NumericGroupBy() bool              { return b.numericGroupBy }
func (b base) ExplainPrefix() string             { return "EXPLAIN" }

func (b base) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// questionMarks returns n comma separated ? markers.
func questionMarks(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// Registry holds the dialects available by name.
type Registry struct {
	mu       sync.RWMutex
	dialects map[string]Dialect
}

// NewRegistry creates a registry holding the given dialects.
func NewRegistry(dialects ...Dialect) *Registry {
	r := &Registry{dialects: make(map[string]Dialect, len(dialects))}
	for _, d := range dialects {
		r.Register(d)
	}
	return r
}

// Default returns a registry with every built-in dialect.
func Default() *Registry {
	return NewRegistry(NewPostgres(), NewSQLite(), NewMySQL(), NewANSI())
}

// Register adds or replaces a dialect.
func (r *Registry) Register(d Dialect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialects[d.Name()] = d
}

// Get returns the dialect registered under name.
func (r *Registry) Get(name string) (Dialect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}
	return d, nil
}

// Names returns the registered dialect names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
