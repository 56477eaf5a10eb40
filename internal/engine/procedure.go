package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/procedure"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

var (
	// ErrProcedureNotFound indicates a call of a procedure the catalog does not list.
	ErrProcedureNotFound = errors.New("procedure not found")

	// ErrAmbiguousProcedure indicates a call matching several overloads.
	ErrAmbiguousProcedure = errors.New("procedure is ambiguous")
)

// StoredProcedures lists the procedures matching the filters. Empty filters
// match everything; filters containing % are patterns.
func (e *Engine) StoredProcedures(ctx context.Context, catalogue, schemaName, name string) ([]*procedure.Procedure, error) {
	ex, err := e.requireExecutor()
	if err != nil {
		return nil, err
	}
	return ex.Procedures(ctx, catalogue, schemaName, name)
}

// ProcedureInterface loads the matching procedures with their parameters.
func (e *Engine) ProcedureInterface(ctx context.Context, catalogue, schemaName, name, uniqueName string) ([]*procedure.Procedure, error) {
	ex, err := e.requireExecutor()
	if err != nil {
		return nil, err
	}
	return ex.ProcedureInterface(ctx, catalogue, schemaName, name, uniqueName)
}

// CallProcedure resolves one procedure from the catalog and invokes it with
// input keyed by the cleaned parameter names.
func (e *Engine) CallProcedure(ctx context.Context, catalogue, schemaName, name, uniqueName string, input sqlgen.Values, transaction string) (*procedure.Output, error) {
	ex, err := e.requireExecutor()
	if err != nil {
		return nil, err
	}
	found, err := ex.ProcedureInterface(ctx, catalogue, schemaName, name, uniqueName)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s.%s", ErrProcedureNotFound, schemaName, name)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s.%s has %d overloads, pass a unique name", ErrAmbiguousProcedure, schemaName, name, len(found))
	}
	return ex.Call(ctx, found[0], input, transaction)
}

// Generated is the SQL of one statement generated for a type.
type Generated struct {
	Kind  sqlgen.Kind `json:"kind" yaml:"kind"`
	Table string      `json:"table,omitempty" yaml:"table,omitempty"`
	SQL   string      `json:"sql" yaml:"sql"`
}

// Generate renders every statement the engine builds for a type in the
// engine's dialect: the joined select, then the table writes.
func (e *Engine) Generate(typeID string) ([]Generated, error) {
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}

	joined, err := e.generator.SelectJoined(t)
	if err != nil {
		return nil, err
	}
	text, err := e.render(joined.SQL)
	if err != nil {
		return nil, err
	}
	out := []Generated{{Kind: sqlgen.KindSelect, SQL: text}}

	for _, kind := range []sqlgen.Kind{sqlgen.KindInsert, sqlgen.KindMerge, sqlgen.KindUpdate, sqlgen.KindDelete} {
		statements, err := e.plan(t, kind, false)
		if kind == sqlgen.KindMerge && errors.Is(err, sqlgen.ErrNothingToInsert) {
			logger.Get().Debug("type cannot be merged", "type", typeID, "reason", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, stmt := range statements {
			text, err := e.render(stmt.SQL)
			if err != nil {
				return nil, err
			}
			out = append(out, Generated{Kind: kind, Table: schema.TableName(stmt.Type), SQL: text})
		}
	}
	return out, nil
}

// render rewrites SQL for the engine's dialect, checks it and applies the
// table affixes. Named placeholders are kept.
func (e *Engine) render(sql string) (string, error) {
	text := e.affixes.Apply(e.dialect.Rewrite(sql))
	bound, _, err := dialect.Bind(e.dialect, text, nil)
	if err != nil {
		return "", err
	}
	if err := e.dialect.Validate(bound); err != nil {
		return "", err
	}
	return text, nil
}
