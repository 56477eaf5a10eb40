package dialect

import (
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var (
	notILikePattern = regexp.MustCompile(`(?i)\bnot\s+ilike\b`)
	iLikePattern    = regexp.MustCompile(`(?i)\bilike\b`)
)

// rewriteILike maps ilike onto like, which is case-insensitive for ASCII in
// sqlite and under mysql's default collations.
func rewriteILike(sql string) string {
	sql = notILikePattern.ReplaceAllString(sql, "not like")
	return iLikePattern.ReplaceAllString(sql, "like")
}

type sqliteDialect struct {
	base
	quoter quoter
}

// NewSQLite returns the sqlite dialect. Connections use the sqlite3 driver.
func NewSQLite() Dialect {
	return &sqliteDialect{
		base: base{
			name:        SQLite,
			driver:      "sqlite3",
			placeholder: sq.Question,
		},
		quoter: quoter{text: standardText, bytes: hexBytes},
	}
}

func (d *sqliteDialect) Rewrite(sql string) string {
	return rewriteILike(sql)
}

// Array returns list unchanged; lists are expanded by Bind.
func (d *sqliteDialect) Array(list any) any {
	return list
}

func (d *sqliteDialect) Literal(value any) (string, error) {
	return d.quoter.literal(value)
}

func (d *sqliteDialect) Returning(string) string {
	return ""
}

func (d *sqliteDialect) Call(name string, _ int, _ bool) (string, error) {
	return "", fmt.Errorf("%w: sqlite has no stored procedures: %s", ErrUnsupported, name)
}

func (d *sqliteDialect) ExplainPrefix() string {
	return "EXPLAIN QUERY PLAN"
}

func (d *sqliteDialect) CheckDSN(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("%w: empty sqlite file name", ErrInvalidDSN)
	}
	return nil
}

func (d *sqliteDialect) Validate(string) error {
	return nil
}
