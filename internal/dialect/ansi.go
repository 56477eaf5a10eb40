package dialect

import (
	sq "github.com/Masterminds/squirrel"
)

type ansiDialect struct {
	base
	quoter quoter
}

// NewANSI returns a dialect restricted to standard SQL. It has no driver and
// serves literal rendering and explain output.
func NewANSI() Dialect {
	return &ansiDialect{
		base: base{
			name:        ANSI,
			placeholder: sq.Question,
		},
		quoter: quoter{text: standardText, bytes: hexBytes},
	}
}

func (d *ansiDialect) Rewrite(sql string) string {
	return rewriteILike(sql)
}

func (d *ansiDialect) Array(list any) any {
	return list
}

func (d *ansiDialect) Literal(value any) (string, error) {
	return d.quoter.literal(value)
}

func (d *ansiDialect) Returning(string) string {
	return ""
}

func (d *ansiDialect) Call(name string, arity int, returns bool) (string, error) {
	if returns {
		return "{? = call " + name + "(" + questionMarks(arity) + ")}", nil
	}
	return "{call " + name + "(" + questionMarks(arity) + ")}", nil
}

func (d *ansiDialect) CheckDSN(string) error {
	return nil
}

func (d *ansiDialect) Validate(string) error {
	return nil
}
