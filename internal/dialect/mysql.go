package dialect

import (
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
)

var (
	conflictUpdatePattern  = regexp.MustCompile(`(?i)ON CONFLICT\s*\(\s*\w+\s*\)\s*DO UPDATE SET`)
	conflictNothingPattern = regexp.MustCompile(`(?i)ON CONFLICT\s*\(\s*(\w+)\s*\)\s*DO NOTHING`)
	excludedPattern        = regexp.MustCompile(`(?i)\bEXCLUDED\.(\w+)`)
	containsPattern        = regexp.MustCompile(`'%' \|\| (.+?) \|\| '%'`)
	defaultValuesPattern   = regexp.MustCompile(`(?i)\bDEFAULT VALUES\b`)
)

var mysqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\x00", `\0`, "\n", `\n`, "\r", `\r`, "\x1a", `\Z`)

type mysqlDialect struct {
	base
	quoter quoter
}

// NewMySQL returns the mysql dialect.
func NewMySQL() Dialect {
	return &mysqlDialect{
		base: base{
			name:           MySQL,
			driver:         "mysql",
			placeholder:    sq.Question,
			numericGroupBy: true,
		},
		quoter: quoter{
			text: func(s string) string {
				return "'" + mysqlEscaper.Replace(s) + "'"
			},
			bytes: hexBytes,
		},
	}
}

// Rewrite turns upserts into ON DUPLICATE KEY UPDATE, DEFAULT VALUES into an
// empty value list and string concatenation into concat().
func (d *mysqlDialect) Rewrite(sql string) string {
	sql = rewriteILike(sql)
	sql = defaultValuesPattern.ReplaceAllString(sql, "() VALUES ()")
	sql = conflictNothingPattern.ReplaceAllString(sql, "ON DUPLICATE KEY UPDATE $1 = $1")
	if loc := conflictUpdatePattern.FindStringIndex(sql); loc != nil {
		sql = sql[:loc[0]] + "ON DUPLICATE KEY UPDATE" + excludedPattern.ReplaceAllString(sql[loc[1]:], "VALUES($1)")
	}
	return containsPattern.ReplaceAllString(sql, "concat('%', $1, '%')")
}

func (d *mysqlDialect) Array(list any) any {
	return list
}

func (d *mysqlDialect) Literal(value any) (string, error) {
	return d.quoter.literal(value)
}

func (d *mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *mysqlDialect) Returning(string) string {
	return ""
}

func (d *mysqlDialect) Call(name string, arity int, _ bool) (string, error) {
	return "CALL " + name + "(" + questionMarks(arity) + ")", nil
}

func (d *mysqlDialect) CheckDSN(dsn string) error {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	return nil
}

func (d *mysqlDialect) Validate(string) error {
	return nil
}
