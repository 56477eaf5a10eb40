package procedure

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// Querier runs SQL. *sql.DB, *sql.Conn and *sql.Tx satisfy it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Output is what a call produced.
type Output struct {
	// Return holds the RETURN, OUT and IN_OUT values; nil when the procedure
	// reads nothing back.
	Return sqlgen.Values `json:"return,omitempty"`
	// Results holds one entry per row of the produced result set.
	Results []sqlgen.Values `json:"results,omitempty"`
}

// Convert reads a value returned for param as the parameter's kind. Values
// that do not convert are an error, unless the parameter is a string, in
// which case their default formatting is used.
func Convert(value any, param Parameter) (any, error) {
	if value == nil {
		return nil, nil
	}
	kind := param.SQLType.Kind()
	out, err := schema.Convert(value, kind)
	if err == nil {
		return out, nil
	}
	if kind == schema.KindString {
		return fmt.Sprint(value), nil
	}
	return nil, fmt.Errorf("parameter %s: %w", param.Name, err)
}

// Invoke calls p with the input values keyed by cleaned parameter names.
// Postgres returns OUT values as a row; other drivers read them through
// sql.Out destinations.
func Invoke(ctx context.Context, q Querier, d dialect.Dialect, p *Procedure, input sqlgen.Values) (*Output, error) {
	if d.Name() == dialect.Postgres {
		return invokeRow(ctx, q, d, p, input)
	}
	return invokeOut(ctx, q, d, p, input)
}

// readBackParameters returns the RETURN parameter followed by every OUT and
// IN_OUT parameter, in declaration order.
func readBackParameters(p *Procedure) []Parameter {
	var params []Parameter
	if ret := p.ReturnParameter(); ret != nil {
		params = append(params, *ret)
	}
	for _, param := range p.Parameters {
		if readBack(param.Direction) && positional(param.Direction) {
			params = append(params, param)
		}
	}
	return params
}

func invokeRow(ctx context.Context, q Querier, d dialect.Dialect, p *Procedure, input sqlgen.Values) (*Output, error) {
	function := p.Function || p.ReturnParameter() != nil || p.HasResult()

	var args []any
	for _, param := range p.arguments() {
		switch {
		case bound(param.Direction):
			args = append(args, input[param.Field()])
		case !function:
			// procedures take a NULL placeholder for OUT arguments
			args = append(args, nil)
		}
	}
	text, err := d.Call(p.QualifiedName(), len(args), function)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug("calling stored procedure", "procedure", p.QualifiedName(), "sql", text)

	out := &Output{}
	if p.HasResult() {
		out.Results, err = queryResults(ctx, q, p, text, args)
		return out, err
	}

	targets := readBackParameters(p)
	if len(targets) == 0 {
		if _, err := q.ExecContext(ctx, text, args...); err != nil {
			return nil, fmt.Errorf("failed to call %s: %w", p.QualifiedName(), err)
		}
		return out, nil
	}

	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", p.QualifiedName(), err)
	}
	defer rows.Close()

	_, data, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.QualifiedName(), err)
	}
	out.Return = sqlgen.Values{}
	if len(data) == 0 {
		return out, nil
	}
	for i, param := range targets {
		if i >= len(data[0]) {
			break
		}
		value, err := Convert(data[0][i], param)
		if err != nil {
			return nil, err
		}
		out.Return[param.Field()] = value
	}
	return out, nil
}

func invokeOut(ctx context.Context, q Querier, d dialect.Dialect, p *Procedure, input sqlgen.Values) (*Output, error) {
	var (
		args    []any
		dests   []*any
		targets []Parameter
	)
	if ret := p.ReturnParameter(); ret != nil {
		dest := new(any)
		args = append(args, sql.Out{Dest: dest})
		dests, targets = append(dests, dest), append(targets, *ret)
	}
	arity := 0
	for _, param := range p.arguments() {
		arity++
		switch param.Direction.(type) {
		case In:
			args = append(args, input[param.Field()])
		case Out:
			dest := new(any)
			args = append(args, sql.Out{Dest: dest})
			dests, targets = append(dests, dest), append(targets, param)
		case InOut:
			dest := new(any)
			*dest = input[param.Field()]
			args = append(args, sql.Out{Dest: dest, In: true})
			dests, targets = append(dests, dest), append(targets, param)
		}
	}
	text, err := d.Call(p.QualifiedName(), arity, p.ReturnParameter() != nil)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug("calling stored procedure", "procedure", p.QualifiedName(), "sql", text)

	out := &Output{}
	if p.HasResult() {
		if out.Results, err = queryResults(ctx, q, p, text, args); err != nil {
			return nil, err
		}
	} else if _, err := q.ExecContext(ctx, text, args...); err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", p.QualifiedName(), err)
	}

	if len(targets) > 0 {
		out.Return = sqlgen.Values{}
		for i, param := range targets {
			value, err := Convert(*dests[i], param)
			if err != nil {
				return nil, err
			}
			out.Return[param.Field()] = value
		}
	}
	return out, nil
}

// queryResults reads the result set of a call. Columns are named after the
// RESULT parameters when their count matches, else after the result columns.
func queryResults(ctx context.Context, q Querier, p *Procedure, text string, args []any) ([]sqlgen.Values, error) {
	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", p.QualifiedName(), err)
	}
	defer rows.Close()

	columns, data, err := scanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.QualifiedName(), err)
	}

	var declared []Parameter
	for _, param := range p.Parameters {
		if _, ok := param.Direction.(Result); ok {
			declared = append(declared, param)
		}
	}

	results := make([]sqlgen.Values, 0, len(data))
	for _, row := range data {
		values := sqlgen.Values{}
		for i, raw := range row {
			if len(declared) != len(columns) {
				if b, ok := raw.([]byte); ok {
					raw = string(b)
				}
				values[columns[i]] = raw
				continue
			}
			value, err := Convert(raw, declared[i])
			if err != nil {
				return nil, err
			}
			values[declared[i].Field()] = value
		}
		results = append(results, values)
	}
	return results, nil
}

// scanAll reads every row as a slice of driver values.
func scanAll(rows *sql.Rows) ([]string, [][]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, err
		}
		data = append(data, values)
	}
	return columns, data, rows.Err()
}
