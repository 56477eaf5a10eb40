package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/runtime"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// WriteResult reports the rows a write touched.
type WriteResult struct {
	// Affected sums the affected rows of every table statement.
	Affected int64 `json:"affected"`
	// Instances are the written instances, generated keys filled in.
	Instances []sqlgen.Values `json:"instances,omitempty"`
}

// plan builds one statement per table-owning type of t. Inserts run parent
// first so generated keys exist before the child rows reference them.
func (e *Engine) plan(t *schema.Type, kind sqlgen.Kind, patch bool) ([]*sqlgen.Statement, error) {
	owners := schema.TableTypes(t)
	if kind == sqlgen.KindInsert || kind == sqlgen.KindMerge {
		owners = slices.Clone(owners)
		slices.Reverse(owners)
	}

	statements := make([]*sqlgen.Statement, 0, len(owners))
	for _, owner := range owners {
		var (
			stmt *sqlgen.Statement
			err  error
		)
		switch kind {
		case sqlgen.KindInsert:
			stmt, err = e.generator.Insert(owner, false)
		case sqlgen.KindMerge:
			stmt, err = e.generator.Insert(owner, true)
		case sqlgen.KindUpdate:
			stmt, err = e.generator.Update(owner, patch)
		case sqlgen.KindDelete:
			stmt, err = e.generator.Delete(owner)
		default:
			return nil, fmt.Errorf("unsupported write kind %s", kind)
		}
		if sqlgen.IsSkip(err) {
			logger.Get().Debug("skipping table", "type", owner.String(), "kind", kind, "reason", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// write runs the table statements of t for every instance. Without a caller
// transaction the statements run in one of their own.
func (e *Engine) write(ctx context.Context, typeID string, kind sqlgen.Kind, patch bool, instances []sqlgen.Values, transaction string) (*WriteResult, error) {
	ex, err := e.executorFor(typeID)
	if err != nil {
		return nil, err
	}
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	statements, err := e.plan(t, kind, patch)
	if err != nil {
		return nil, err
	}

	result := &WriteResult{Instances: instances}
	if len(instances) == 0 || len(statements) == 0 {
		return result, nil
	}

	tx := transaction
	if tx == "" {
		if tx, err = ex.Transactions().Begin(ctx); err != nil {
			return nil, err
		}
	}
	for _, stmt := range statements {
		n, err := ex.Exec(ctx, stmt.WithRows(instances...), tx)
		if err != nil {
			if transaction == "" {
				if rbErr := ex.Transactions().Rollback(tx); rbErr != nil {
					logger.Get().Warn("rollback failed", "transaction", tx, "error", rbErr)
				}
			}
			return nil, err
		}
		result.Affected += n
	}
	if transaction == "" {
		if err := ex.Transactions().Commit(tx); err != nil {
			return nil, err
		}
	}

	if err := e.tracker.Track(ctx, runtime.Event{Kind: kind, TypeID: typeID, Instances: instances}); err != nil {
		return result, fmt.Errorf("failed to track %s of %s: %w", kind, typeID, err)
	}
	logger.Get().Debug("instances written", "type", typeID, "kind", kind, "instances", len(instances), "affected", result.Affected)
	return result, nil
}

// Insert stores new instances of a type across its tables.
func (e *Engine) Insert(ctx context.Context, typeID string, instances []sqlgen.Values, transaction string) (*WriteResult, error) {
	return e.write(ctx, typeID, sqlgen.KindInsert, false, instances, transaction)
}

// Merge inserts instances or updates the ones whose key already exists.
func (e *Engine) Merge(ctx context.Context, typeID string, instances []sqlgen.Values, transaction string) (*WriteResult, error) {
	return e.write(ctx, typeID, sqlgen.KindMerge, false, instances, transaction)
}

// Update overwrites instances by primary key. A patch update keeps the
// columns whose value is nil.
func (e *Engine) Update(ctx context.Context, typeID string, instances []sqlgen.Values, patch bool, transaction string) (*WriteResult, error) {
	return e.write(ctx, typeID, sqlgen.KindUpdate, patch, instances, transaction)
}

// Delete removes instances by primary key.
func (e *Engine) Delete(ctx context.Context, typeID string, instances []sqlgen.Values, transaction string) (*WriteResult, error) {
	return e.write(ctx, typeID, sqlgen.KindDelete, false, instances, transaction)
}

// DeleteByID removes the instances with the given primary keys.
func (e *Engine) DeleteByID(ctx context.Context, typeID string, ids []any, transaction string) (*WriteResult, error) {
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	_, pk := schema.Lookup(schema.Chain(t), primaryKeyName(t))
	if pk == nil {
		return nil, &sqlgen.BuildError{Op: "delete", Type: t.String(), Err: sqlgen.ErrNoPrimaryKey}
	}
	instances := make([]sqlgen.Values, len(ids))
	for i, id := range ids {
		instances[i] = sqlgen.Values{pk.Name: id}
	}
	return e.write(ctx, typeID, sqlgen.KindDelete, false, instances, transaction)
}

// primaryKeyName returns the key of the first table of t that has one.
func primaryKeyName(t *schema.Type) string {
	for _, owner := range schema.TableTypes(t) {
		if pk := schema.PrimaryKey(owner); pk != nil {
			return pk.Name
		}
	}
	return ""
}

// BuildInserts renders literal INSERT statements for instances in the named
// dialect. Compact statements are single lines.
func (e *Engine) BuildInserts(typeID string, instances []sqlgen.Values, dialectName string, compact bool) ([]string, error) {
	d, err := e.dialects.Get(dialectName)
	if err != nil {
		return nil, err
	}
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	statements, err := e.plan(t, sqlgen.KindInsert, false)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, instance := range instances {
		for _, stmt := range statements {
			text, err := dialect.Inline(d, e.affixes.Apply(d.Rewrite(stmt.SQL)), instance)
			if err != nil {
				return nil, fmt.Errorf("failed to render insert of %s: %w", statementType(stmt), err)
			}
			if !compact {
				text = strings.Replace(text, " VALUES ", "\nVALUES ", 1)
				text = strings.Replace(text, " ON CONFLICT", "\nON CONFLICT", 1)
			}
			out = append(out, text+";")
		}
	}
	return out, nil
}

func statementType(stmt *sqlgen.Statement) string {
	if stmt.Type == nil {
		return "statement"
	}
	return stmt.Type.String()
}
