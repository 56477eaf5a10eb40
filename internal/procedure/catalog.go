package procedure

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/typedsql/internal/dialect"
)

// patternOrEq filters column by a LIKE pattern when value holds a wildcard,
// by equality otherwise. An empty value matches everything.
func patternOrEq(b sq.SelectBuilder, column, value string) sq.SelectBuilder {
	switch {
	case value == "":
		return b
	case strings.Contains(value, "%"):
		return b.Where(sq.Like{column: value})
	default:
		return b.Where(sq.Eq{column: value})
	}
}

func catalogSupported(d dialect.Dialect) error {
	if d.Name() == dialect.SQLite {
		return fmt.Errorf("%w: stored procedures in %s", dialect.ErrUnsupported, d.Name())
	}
	return nil
}

// Procedures lists the stored procedures matching the catalogue, schema and
// name filters. Schema and name accept LIKE patterns.
func Procedures(ctx context.Context, q Querier, d dialect.Dialect, catalogue, schema, name string) ([]*Procedure, error) {
	if err := catalogSupported(d); err != nil {
		return nil, err
	}

	b := sq.Select("routine_catalog", "routine_schema", "routine_name", "specific_name", "routine_type").
		From("information_schema.routines").
		OrderBy("routine_schema", "routine_name", "specific_name").
		PlaceholderFormat(d.Placeholder())
	b = patternOrEq(b, "routine_catalog", catalogue)
	b = patternOrEq(b, "routine_schema", schema)
	b = patternOrEq(b, "routine_name", name)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build procedure query: %w", err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer rows.Close()

	var procedures []*Procedure
	for rows.Next() {
		var cat, sch, nm, specific, routineType sql.NullString
		if err := rows.Scan(&cat, &sch, &nm, &specific, &routineType); err != nil {
			return nil, fmt.Errorf("failed to scan procedure: %w", err)
		}
		p := newProcedure(cat.String, sch.String, nm.String, specific.String)
		p.Function = strings.EqualFold(routineType.String, "FUNCTION")
		procedures = append(procedures, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list procedures: %w", err)
	}
	return procedures, nil
}

func newProcedure(catalogue, schema, name, specific string) *Procedure {
	p := &Procedure{Catalogue: catalogue, Schema: schema, Name: name, UniqueName: specific}
	if p.UniqueName == "" {
		p.UniqueName = p.QualifiedName()
	}
	return p
}

// parameterRow is one row of the routines/parameters join.
type parameterRow struct {
	catalogue, schema, name, specific sql.NullString
	routineType, returnType           sql.NullString
	ordinal                           sql.NullInt64
	mode, paramName, dataType         sql.NullString
	length, precision, scale, radix   sql.NullInt64
}

// ProcedureInterface loads the procedures matching the filters together with
// their parameters. A non-empty uniqueName selects one overload. Functions
// get a RETURN parameter for their declared return type.
func ProcedureInterface(ctx context.Context, q Querier, d dialect.Dialect, catalogue, schema, name, uniqueName string) ([]*Procedure, error) {
	if err := catalogSupported(d); err != nil {
		return nil, err
	}

	b := sq.Select(
		"r.routine_catalog", "r.routine_schema", "r.routine_name", "r.specific_name",
		"r.routine_type", "r.data_type",
		"p.ordinal_position", "p.parameter_mode", "p.parameter_name", "p.data_type",
		"p.character_maximum_length", "p.numeric_precision", "p.numeric_scale", "p.numeric_precision_radix",
	).
		From("information_schema.routines r").
		LeftJoin("information_schema.parameters p ON p.specific_schema = r.specific_schema AND p.specific_name = r.specific_name").
		OrderBy("r.routine_schema", "r.routine_name", "r.specific_name", "p.ordinal_position").
		PlaceholderFormat(d.Placeholder())
	b = patternOrEq(b, "r.routine_catalog", catalogue)
	b = patternOrEq(b, "r.routine_schema", schema)
	b = patternOrEq(b, "r.routine_name", name)
	if uniqueName != "" {
		b = b.Where(sq.Eq{"r.specific_name": uniqueName})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build parameter query: %w", err)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load procedure parameters: %w", err)
	}
	defer rows.Close()

	var (
		procedures []*Procedure
		bySpecific = map[string]*Procedure{}
		returned   = map[string]bool{}
		routines   = map[string]parameterRow{}
	)
	for rows.Next() {
		var r parameterRow
		if err := rows.Scan(
			&r.catalogue, &r.schema, &r.name, &r.specific,
			&r.routineType, &r.returnType,
			&r.ordinal, &r.mode, &r.paramName, &r.dataType,
			&r.length, &r.precision, &r.scale, &r.radix,
		); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}

		key := r.schema.String + "." + r.specific.String
		p, ok := bySpecific[key]
		if !ok {
			p = newProcedure(r.catalogue.String, r.schema.String, r.name.String, r.specific.String)
			p.Function = strings.EqualFold(r.routineType.String, "FUNCTION")
			bySpecific[key] = p
			routines[key] = r
			procedures = append(procedures, p)
		}
		if !r.ordinal.Valid {
			continue
		}

		param, err := r.parameter(p.UniqueName)
		if err != nil {
			return nil, err
		}
		if _, ok := param.Direction.(Return); ok {
			returned[key] = true
		}
		p.Parameters = append(p.Parameters, param)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load procedure parameters: %w", err)
	}

	for key, p := range bySpecific {
		if returned[key] {
			continue
		}
		if ret, ok := routines[key].returnParameter(p.UniqueName); ok {
			p.Parameters = append([]Parameter{ret}, p.Parameters...)
		}
	}
	return procedures, nil
}

// parameter maps a parameters row. Position 0 is a function's return value;
// unnamed parameters are named by their position.
func (r parameterRow) parameter(procedure string) (Parameter, error) {
	direction, err := ParseDirection(r.mode.String)
	if err != nil {
		return Parameter{}, fmt.Errorf("parameter %d of %s: %w", r.ordinal.Int64, procedure, err)
	}
	if r.ordinal.Int64 == 0 {
		direction = Return{}
	}
	name := r.paramName.String
	if name == "" {
		if _, ok := direction.(Return); ok {
			name = "return"
		} else {
			name = strconv.FormatInt(r.ordinal.Int64, 10)
		}
	}
	return Parameter{
		Name:      name,
		Procedure: procedure,
		Direction: direction,
		SQLType:   SQLTypeOf(r.dataType.String),
		Precision: int(r.precision.Int64),
		Length:    int(r.length.Int64),
		Scale:     int(r.scale.Int64),
		Radix:     int(r.radix.Int64),
		// the information schema does not report parameter nullability
		Nullable: true,
	}, nil
}

// returnParameter describes the value a function returns, if it returns one.
// Procedures, void functions and functions returning their OUT parameters as
// a record have none.
func (r parameterRow) returnParameter(procedure string) (Parameter, bool) {
	if !strings.EqualFold(r.routineType.String, "FUNCTION") {
		return Parameter{}, false
	}
	switch strings.ToLower(r.returnType.String) {
	case "", "void", "record":
		return Parameter{}, false
	}
	return Parameter{
		Name:      "return",
		Procedure: procedure,
		Direction: Return{},
		SQLType:   SQLTypeOf(r.returnType.String),
		Nullable:  true,
	}, true
}
