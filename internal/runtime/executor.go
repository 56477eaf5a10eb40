// Package runtime executes generated statements against a database/sql pool.
//
// It owns what happens after generation: dialect rendering and binding,
// paging with has-next detection, total counts, per-field statistics,
// generated key backfill, transactions under caller ids and explain.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/paging"
	"github.com/mvp-joe/typedsql/internal/procedure"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// Executor runs statements on one database. It is safe for concurrent use.
type Executor struct {
	db           *sql.DB
	pipeline     *Pipeline
	transactions *Transactions
}

// NewExecutor creates an Executor that uses the provided database connection.
// The database connection is not owned by the executor and will not be closed.
func NewExecutor(db *sql.DB, pipeline *Pipeline) *Executor {
	return &Executor{db: db, pipeline: pipeline, transactions: NewTransactions(db)}
}

// Open connects to dsn with the dialect's driver. The DSN is checked first so
// malformed names fail before any connection attempt.
func Open(d dialect.Dialect, dsn string) (*sql.DB, error) {
	if d.DriverName() == "" {
		return nil, fmt.Errorf("%w: %s has no driver", dialect.ErrUnsupported, d.Name())
	}
	if err := d.CheckDSN(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.Name(), err)
	}
	return db, nil
}

// Pipeline returns the pipeline statements are prepared with.
func (e *Executor) Pipeline() *Pipeline {
	return e.pipeline
}

// Transactions returns the transaction registry of the executor.
func (e *Executor) Transactions() *Transactions {
	return e.transactions
}

// QueryOptions tune a select execution.
type QueryOptions struct {
	// Transaction runs the select inside an open transaction.
	Transaction string
	// OrderBy holds SQL order expressions.
	OrderBy []string
	Paging  paging.Paging
	// Count requests the total row count without paging.
	Count bool
	// Statistics lists the fields to report per-value row counts for.
	Statistics []string
}

// Query runs a select statement and returns its rows. With a limit one extra
// row is fetched to detect whether a next page exists.
func (e *Executor) Query(ctx context.Context, stmt *sqlgen.Statement, opts QueryOptions) (*Result, error) {
	q, err := e.transactions.Querier(opts.Transaction)
	if err != nil {
		return nil, err
	}

	base := baseQuery(stmt)
	main := base
	if len(opts.OrderBy) > 0 {
		main = main.OrderBy(opts.OrderBy...)
	}
	limit := opts.Paging.Limit
	if limit != nil {
		main = main.Limit(uint64(*limit) + 1)
	}
	if opts.Paging.Offset > 0 {
		main = main.Offset(uint64(opts.Paging.Offset))
	}

	text, _, err := main.ToSql()
	if err != nil {
		return nil, fmt.Errorf("query build failed: %w", err)
	}

	start := time.Now()
	executed, columns, rows, err := e.fetch(ctx, q, text, stmt.Values())
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: columns, Rows: rows}
	if limit != nil && len(rows) > *limit {
		result.Rows = rows[:*limit]
		result.HasNext = true
	}
	result.RowCount = len(result.Rows)

	if opts.Count {
		total, err := e.count(ctx, q, base, stmt.Values())
		if err != nil {
			return nil, err
		}
		result.TotalRowCount = &total
	}
	if len(opts.Statistics) > 0 {
		if result.Statistics, err = e.statistics(ctx, q, stmt, base, opts.Statistics); err != nil {
			return nil, err
		}
	}

	result.Metadata = Metadata{TookMs: time.Since(start).Milliseconds(), Query: executed}
	logger.Get().Debug("query executed", "sql", executed, "rows", result.RowCount, "took_ms", result.Metadata.TookMs)
	return result, nil
}

// baseQuery returns the builder behind a generated select, or wraps raw SQL
// so it can be paged and counted.
func baseQuery(stmt *sqlgen.Statement) sq.SelectBuilder {
	if b, ok := stmt.Query(); ok {
		return b
	}
	return sq.Select("*").From("(" + strings.TrimRight(strings.TrimSpace(stmt.SQL), ";") + ") q")
}

// fetch prepares and runs text, returning the executed SQL and the rows with
// textual byte values converted to strings.
func (e *Executor) fetch(ctx context.Context, q procedure.Querier, text string, values sqlgen.Values) (string, []string, [][]any, error) {
	prepared, args, err := e.pipeline.Prepare(text, values)
	if err != nil {
		return "", nil, nil, err
	}

	rows, err := q.QueryContext(ctx, prepared, args...)
	if err != nil {
		return "", nil, nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get column names: %w", err)
	}

	data := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return "", nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return "", nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return prepared, columns, data, nil
}

func (e *Executor) count(ctx context.Context, q procedure.Querier, base sq.SelectBuilder, values sqlgen.Values) (int64, error) {
	text, _, err := sq.Select("count(*)").FromSelect(base, "c").ToSql()
	if err != nil {
		return 0, fmt.Errorf("count build failed: %w", err)
	}
	_, _, rows, err := e.fetch(ctx, q, text, values)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return cast.ToInt64E(rows[0][0])
}

// statistics counts rows per value of each named field. A field is counted
// with its own filters disabled, so the counts show what choosing a different
// value would return. The statement must be generated with statistics support
// for inputs to be unset. Counting runs over a * projection of the select, so
// a custom selection need not include the counted column.
func (e *Executor) statistics(ctx context.Context, q procedure.Querier, stmt *sqlgen.Statement, base sq.SelectBuilder, fields []string) (map[string][]Statistic, error) {
	stats := make(map[string][]Statistic, len(fields))
	for _, name := range fields {
		if _, done := stats[name]; done {
			continue
		}
		column, ok := stmt.Column(name)
		if !ok {
			return nil, &sqlgen.BuildError{Op: "statistics", Type: statementType(stmt), Field: name, Err: sqlgen.ErrFieldNotFound}
		}

		values := sqlgen.Values{}
		for k, v := range stmt.Values() {
			values[k] = v
		}
		for _, input := range stmt.Parameters.Labelled(name) {
			values[input] = nil
		}

		counted := base.RemoveColumns().Columns("*", column+" AS stat_value")
		text, _, err := sq.Select("s.stat_value", "count(*)").
			FromSelect(counted, "s").
			GroupBy("s.stat_value").
			OrderBy("s.stat_value").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("statistics build failed: %w", err)
		}
		_, _, rows, err := e.fetch(ctx, q, text, values)
		if err != nil {
			return nil, err
		}
		stats[name] = make([]Statistic, 0, len(rows))
		for _, row := range rows {
			count, err := cast.ToInt64E(row[1])
			if err != nil {
				return nil, fmt.Errorf("statistics for %s: %w", name, err)
			}
			stats[name] = append(stats[name], Statistic{Value: row[0], Count: count})
		}
	}
	return stats, nil
}

func statementType(stmt *sqlgen.Statement) string {
	if stmt.Type == nil {
		return "statement"
	}
	return stmt.Type.String()
}

// Exec runs a write statement once per parameter row and returns the number
// of affected rows. Inserts of a generated key that is unset read the key back
// into the row, through RETURNING or LastInsertId depending on the dialect.
func (e *Executor) Exec(ctx context.Context, stmt *sqlgen.Statement, transaction string) (int64, error) {
	q, err := e.transactions.Querier(transaction)
	if err != nil {
		return 0, err
	}

	var key *schema.Field
	if stmt.GeneratedField != "" && stmt.Type != nil {
		_, key = schema.Lookup(schema.Chain(stmt.Type), stmt.GeneratedField)
	}

	if len(stmt.Rows) == 0 {
		logger.Get().Debug("skipping statement without rows", "sql", stmt.SQL)
		return 0, nil
	}

	var affected int64
	for _, row := range stmt.Rows {
		start := time.Now()
		text, args, err := e.pipeline.Prepare(stmt.SQL, row)
		if err != nil {
			return affected, err
		}

		if key != nil && row[key.Name] == nil {
			n, err := e.insertReturning(ctx, q, text, args, key, row)
			if err != nil {
				return affected, err
			}
			affected += n
		} else {
			res, err := q.ExecContext(ctx, text, args...)
			if err != nil {
				return affected, fmt.Errorf("statement execution failed: %w", err)
			}
			n, _ := res.RowsAffected()
			affected += n
		}
		logger.Get().Debug("statement executed", "sql", text, "took_ms", time.Since(start).Milliseconds())
	}
	return affected, nil
}

func (e *Executor) insertReturning(ctx context.Context, q procedure.Querier, text string, args []any, key *schema.Field, row sqlgen.Values) (int64, error) {
	d := e.pipeline.Dialect()
	if returning := d.Returning(key.Column()); returning != "" {
		rows, err := q.QueryContext(ctx, text+" "+returning, args...)
		if err != nil {
			return 0, fmt.Errorf("statement execution failed: %w", err)
		}
		defer rows.Close()

		var n int64
		for rows.Next() {
			var id any
			if err := rows.Scan(&id); err != nil {
				return 0, fmt.Errorf("failed to read generated key: %w", err)
			}
			if row[key.Name], err = schema.Convert(id, key.Kind); err != nil {
				return 0, err
			}
			n++
		}
		return n, rows.Err()
	}

	res, err := q.ExecContext(ctx, text, args...)
	if err != nil {
		return 0, fmt.Errorf("statement execution failed: %w", err)
	}
	n, _ := res.RowsAffected()
	id, err := res.LastInsertId()
	if err != nil {
		return n, fmt.Errorf("failed to read generated key: %w", err)
	}
	if n > 0 {
		if row[key.Name], err = schema.Convert(id, key.Kind); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Call invokes a stored procedure, inside transaction when it is set.
func (e *Executor) Call(ctx context.Context, p *procedure.Procedure, input sqlgen.Values, transaction string) (*procedure.Output, error) {
	q, err := e.transactions.Querier(transaction)
	if err != nil {
		return nil, err
	}
	return procedure.Invoke(ctx, q, e.pipeline.Dialect(), p, input)
}

// Procedures lists the stored procedures matching the filters.
func (e *Executor) Procedures(ctx context.Context, catalogue, schemaName, name string) ([]*procedure.Procedure, error) {
	return procedure.Procedures(ctx, e.db, e.pipeline.Dialect(), catalogue, schemaName, name)
}

// ProcedureInterface loads the matching procedures with their parameters.
func (e *Executor) ProcedureInterface(ctx context.Context, catalogue, schemaName, name, uniqueName string) ([]*procedure.Procedure, error) {
	return procedure.ProcedureInterface(ctx, e.db, e.pipeline.Dialect(), catalogue, schemaName, name, uniqueName)
}

// Plan is the outcome of explaining a statement.
type Plan struct {
	Lines []string
	Query string
}

// Explain runs the dialect's EXPLAIN over stmt with placeholder values of the
// right kind and returns one line per plan row. When a plan row has a detail
// column, that column is reported, otherwise the first one.
func (e *Executor) Explain(ctx context.Context, stmt *sqlgen.Statement) (*Plan, error) {
	values := sqlgen.Values{}
	for _, el := range stmt.Parameters.Elements() {
		values[el.Name] = dummy(el)
	}

	text, args, err := e.pipeline.Prepare(stmt.SQL, values)
	if err != nil {
		return nil, err
	}
	query := e.pipeline.Dialect().ExplainPrefix() + " " + text

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("explain failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get column names: %w", err)
	}
	pick := 0
	for i, c := range columns {
		if strings.EqualFold(c, "detail") {
			pick = i
		}
	}

	plan := &Plan{Query: query}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		v := values[pick]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		plan.Lines = append(plan.Lines, cast.ToString(v))
	}
	return plan, rows.Err()
}

// dummy returns a value of the element's kind to bind while explaining.
func dummy(el sqlgen.Element) any {
	var v any
	switch el.Kind {
	case schema.KindInteger:
		v = 0
	case schema.KindLong:
		v = int64(0)
	case schema.KindFloat, schema.KindDouble, schema.KindDecimal:
		v = 0.0
	case schema.KindBoolean:
		v = false
	case schema.KindDate:
		v = time.Unix(0, 0).UTC()
	case schema.KindUUID:
		v = uuid.NewString()
	case schema.KindBytes:
		v = []byte{}
	default:
		v = ""
	}
	if el.List {
		return []any{v}
	}
	return v
}
