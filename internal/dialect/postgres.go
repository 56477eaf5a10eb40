package dialect

import (
	"encoding/hex"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// postgresDialect is the native dialect of generated SQL.
type postgresDialect struct {
	base
	quoter quoter
}

// NewPostgres returns the postgres dialect. Connections use the pgx driver.
func NewPostgres() Dialect {
	return &postgresDialect{
		base: base{
			name:           Postgres,
			driver:         "pgx",
			placeholder:    sq.Dollar,
			arrays:         true,
			numericGroupBy: true,
		},
		quoter: quoter{
			text: pq.QuoteLiteral,
			bytes: func(b []byte) string {
				return `'\x` + hex.EncodeToString(b) + `'`
			},
			list: func(elements []string) string {
				return "ARRAY[" + strings.Join(elements, ", ") + "]"
			},
		},
	}
}

func (d *postgresDialect) Rewrite(sql string) string {
	return sql
}

func (d *postgresDialect) Array(list any) any {
	return pq.Array(list)
}

func (d *postgresDialect) Literal(value any) (string, error) {
	return d.quoter.literal(value)
}

func (d *postgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *postgresDialect) Returning(column string) string {
	return "RETURNING " + column
}

// Call uses CALL for procedures; functions with a return value are selected
// from so their result comes back as a row.
func (d *postgresDialect) Call(name string, arity int, returns bool) (string, error) {
	text := "CALL " + name + "(" + questionMarks(arity) + ")"
	if returns {
		text = "SELECT * FROM " + name + "(" + questionMarks(arity) + ")"
	}
	return d.placeholder.ReplacePlaceholders(text)
}

func (d *postgresDialect) CheckDSN(dsn string) error {
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	return nil
}

// Validate runs the postgres parser over sql.
func (d *postgresDialect) Validate(sql string) error {
	if _, err := pg_query.Parse(sql); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSQL, err)
	}
	return nil
}
