package sqlgen

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/schema"
)

// Operator is a filter operator.
type Operator string

// Comparison operators bind one input placeholder.
const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "<>"
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpLike           Operator = "like"
	OpILike          Operator = "ilike"
	OpNotLike        Operator = "not like"
	OpNotILike       Operator = "not ilike"
)

// Toggle operators bind nothing and are switched by a boolean value.
const (
	OpIsNull     Operator = "is null"
	OpIsNotNull  Operator = "is not null"
	OpIsTrue     Operator = "is true"
	OpIsFalse    Operator = "is false"
	OpIsNotTrue  Operator = "is not true"
	OpIsNotFalse Operator = "is not false"
)

// Normalize lowercases the operator and collapses inner whitespace.
func (o Operator) Normalize() Operator {
	return Operator(strings.Join(strings.Fields(strings.ToLower(string(o))), " "))
}

// IsComparison reports whether o binds an input value.
func (o Operator) IsComparison() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual,
		OpLike, OpILike, OpNotLike, OpNotILike:
		return true
	}
	return false
}

// IsToggle reports whether o is a known non-comparison operator.
func (o Operator) IsToggle() bool {
	switch o {
	case OpIsNull, OpIsNotNull, OpIsTrue, OpIsFalse, OpIsNotTrue, OpIsNotFalse:
		return true
	}
	return false
}

// Filter is one runtime condition on a field.
type Filter struct {
	Key      string
	Operator Operator
	Values   []any
	// OrWithNext combines this filter with the next one using OR.
	OrWithNext      bool
	CaseInsensitive bool
}

// Where is a compiled WHERE clause body.
type Where struct {
	// Predicates are combined with AND, an OR group being one predicate.
	// Empty when every filter was skipped.
	Predicates []sq.Sqlizer
	Values     Values
	Parameters Structure
}

// Apply adds the predicates to b as WHERE parts.
func (w *Where) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	for _, p := range w.Predicates {
		b = b.Where(p)
	}
	return b
}

// ToSql renders the predicates without the WHERE keyword, joined the way a
// select joins its WHERE parts.
func (w *Where) ToSql() (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	for _, p := range w.Predicates {
		text, pargs, err := p.ToSql()
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, text)
		args = append(args, pargs...)
	}
	return strings.Join(parts, " AND "), args, nil
}

// Resolve maps a type of the chain to the alias its columns are addressed by.
type Resolve func(*schema.Type) string

// inputName returns the placeholder name of the n-th bound filter.
func inputName(n int) string {
	return "input" + strconv.Itoa(n)
}

// CompileWhere translates filters into predicates over the chain. Every filter
// that binds a value gets the next inputN slot; skipped filters take none.
// With nullSupport set each comparison is also satisfied by a NULL input, so
// a caller can disable single filters by unsetting their input.
func (g *Generator) CompileWhere(filters []Filter, chain []*schema.Type, aliasOf Resolve, nullSupport bool) (*Where, error) {
	var (
		predicates []sq.Sqlizer
		group      sq.Or
		values     = Values{}
		params     = NewStructure("parameters")
		counter    int
	)

	for _, f := range filters {
		if f.Key == "" {
			continue
		}
		op := f.Operator.Normalize()
		if !op.IsComparison() && !op.IsToggle() {
			return nil, &BuildError{Op: "where", Type: typeOf(chain), Field: f.Key, Err: fmt.Errorf("%w: %q", ErrUnsupportedOperator, f.Operator)}
		}

		inverse := false
		if op.IsComparison() && len(f.Values) == 0 {
			logger.Get().Debug("skipping comparison filter without values", "key", f.Key, "operator", op)
			continue
		}
		if op.IsToggle() && len(f.Values) > 0 {
			switch v := f.Values[0].(type) {
			case nil:
				logger.Get().Debug("skipping toggle filter with nil value", "key", f.Key)
				continue
			case bool:
				if !v {
					if g.opts.Toggle == ToggleSkip {
						logger.Get().Debug("skipping disabled toggle filter", "key", f.Key)
						continue
					}
					inverse = true
				}
			}
		}

		owner, field := schema.Lookup(chain, f.Key)
		if field == nil {
			return nil, &BuildError{Op: "where", Type: typeOf(chain), Field: f.Key, Err: ErrFieldNotFound}
		}
		alias := aliasOf(owner)

		if inverse {
			switch op {
			case OpIsNull:
				op, inverse = OpIsNotNull, false
			case OpIsNotNull:
				op, inverse = OpIsNull, false
			}
		}

		column := alias + "." + field.Column()
		target := fieldTarget(alias, field)
		if f.CaseInsensitive {
			target = "lower(" + target + ")"
		}

		expr := target + " " + string(op)
		var pred sq.Sqlizer
		if op.IsComparison() {
			input := inputName(counter)
			counter++
			switch {
			case len(f.Values) == 1 && f.CaseInsensitive:
				expr += " lower(:" + input + ")"
			case len(f.Values) == 1:
				expr += " :" + input
			case op == OpNotEqual:
				expr += " all(:" + input + ")"
			default:
				expr += " any(:" + input + ")"
			}
			pred = sq.Expr(expr)

			if len(f.Values) == 1 {
				values[input] = f.Values[0]
			} else {
				values[input] = f.Values
			}
			params.Add(Element{
				Name:     input,
				Kind:     field.Kind,
				List:     len(f.Values) >= 2,
				Optional: nullSupport || field.IsOptional(),
				Label:    f.Key,
			})

			if g.widens(op, field, f.Values) {
				pred = sq.Or{sq.Expr(column + " is null"), pred}
			}
			if nullSupport {
				pred = sq.Or{sq.Expr(":" + input + " is null"), pred}
			}
		} else {
			pred = sq.Expr(expr)
		}
		if inverse {
			pred = sq.Expr("not(?)", pred)
		}

		// a run of OrWithNext filters and the one closing it form one group
		if f.OrWithNext || len(group) > 0 {
			group = append(group, pred)
			if !f.OrWithNext {
				predicates = append(predicates, group)
				group = nil
			}
			continue
		}
		predicates = append(predicates, pred)
	}
	if len(group) > 0 {
		predicates = append(predicates, group)
	}

	return &Where{Predicates: predicates, Values: values, Parameters: params.Build()}, nil
}

// fieldTarget returns the column a field is compared on: its own column under
// alias, or for foreign-name fields the column of the last path table.
func fieldTarget(alias string, field *schema.Field) string {
	if field.ForeignName != "" {
		if tables, name := field.ForeignNamePath(); len(tables) > 0 {
			return tables[len(tables)-1] + "." + schema.Underscore(name)
		}
	}
	return alias + "." + field.Column()
}

// widens reports whether an equality on an optional field should also match
// NULL because the compared values include the field's default.
func (g *Generator) widens(op Operator, field *schema.Field, values []any) bool {
	if g.opts.Widening == WidenOff || op != OpEqual || !field.IsOptional() {
		return false
	}
	def := strings.TrimSpace(field.DefaultValue)
	if def == "" {
		return false
	}
	expected, err := schema.Convert(def, field.Kind)
	if err != nil {
		return false
	}
	for _, v := range values {
		actual, err := schema.Convert(v, field.Kind)
		if err != nil {
			continue
		}
		if reflect.DeepEqual(expected, actual) {
			return true
		}
	}
	return false
}
