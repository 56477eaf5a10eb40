// Package engine resolves type ids and composes statement generation with
// execution. It is the entry point the CLI and embedding services use.
package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/paging"
	"github.com/mvp-joe/typedsql/internal/runtime"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// ErrNoDatabase indicates an operation that needs a database on an engine
// configured for generation only.
var ErrNoDatabase = errors.New("no database configured")

// Limits bound the paging callers may request.
type Limits struct {
	MaxLimit  *int
	MaxOffset *int
	// PageOffset treats offsets as page indexes.
	PageOffset bool
}

// Engine generates and runs statements for registered types.
type Engine struct {
	types     schema.Resolver
	generator *sqlgen.Generator
	dialects  *dialect.Registry
	dialect   dialect.Dialect
	affixes   *dialect.Affixes
	executor  *runtime.Executor
	sources   *runtime.Resolver
	tracker   runtime.ChangeTracker
	limits    Limits
}

// Option configures an Engine.
type Option func(*Engine)

// WithExecutor runs statements through e. Without it the engine only generates.
func WithExecutor(e *runtime.Executor) Option {
	return func(en *Engine) { en.executor = e }
}

// WithSources routes statements on type ids matching a registered prefix to
// that prefix's executor. Other type ids and dynamic statements use the
// WithExecutor one.
func WithSources(r *runtime.Resolver) Option {
	return func(en *Engine) { en.sources = r }
}

// WithTracker notifies t after every successful write.
func WithTracker(t runtime.ChangeTracker) Option {
	return func(en *Engine) { en.tracker = t }
}

// WithLimits bounds requested paging.
func WithLimits(l Limits) Option {
	return func(en *Engine) { en.limits = l }
}

// WithDialect sets the dialect statements are rendered for, postgres by default.
func WithDialect(d dialect.Dialect) Option {
	return func(en *Engine) { en.dialect = d }
}

// WithDialects replaces the dialects available for rendering inserts.
func WithDialects(r *dialect.Registry) Option {
	return func(en *Engine) { en.dialects = r }
}

// WithAffixes qualifies table names when rendering.
func WithAffixes(a *dialect.Affixes) Option {
	return func(en *Engine) { en.affixes = a }
}

// New creates an Engine over the given types.
func New(types schema.Resolver, generator *sqlgen.Generator, opts ...Option) *Engine {
	e := &Engine{
		types:     types,
		generator: generator,
		dialects:  dialect.Default(),
		tracker:   runtime.NopTracker{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.dialect == nil {
		e.dialect = dialect.NewPostgres()
	}
	return e
}

// TypeDescription names a type and its table.
type TypeDescription struct {
	TypeName       string `json:"typeName"`
	CollectionName string `json:"collectionName"`
}

// Describe returns the name and table of a type.
func (e *Engine) Describe(typeID string) (*TypeDescription, error) {
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	return &TypeDescription{TypeName: t.Name, CollectionName: schema.TableName(t)}, nil
}

// Dialects returns the names of the registered dialects.
func (e *Engine) Dialects() []string {
	return e.dialects.Names()
}

// ConvertFilters coerces the values of comparison filters to the kind of the
// field they compare with, for callers that receive untyped input such as
// JSON numbers. Toggle filters keep their boolean switch.
func (e *Engine) ConvertFilters(typeID string, filters []sqlgen.Filter) error {
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return err
	}
	chain := schema.Chain(t)
	for i := range filters {
		f := &filters[i]
		if !f.Operator.Normalize().IsComparison() {
			continue
		}
		_, field := schema.Lookup(chain, f.Key)
		if field == nil {
			return &sqlgen.BuildError{Op: "where", Type: typeID, Field: f.Key, Err: sqlgen.ErrFieldNotFound}
		}
		for j, v := range f.Values {
			if f.Values[j], err = schema.Convert(v, field.Kind); err != nil {
				return &sqlgen.BuildError{Op: "where", Type: typeID, Field: f.Key, Err: err}
			}
		}
	}
	return nil
}

func (e *Engine) requireExecutor() (*runtime.Executor, error) {
	if e.executor == nil {
		return nil, ErrNoDatabase
	}
	return e.executor, nil
}

// executorFor returns the executor serving typeID.
func (e *Engine) executorFor(typeID string) (*runtime.Executor, error) {
	if e.sources != nil && typeID != "" {
		ex, err := e.sources.DataSource(typeID)
		if err == nil {
			return ex, nil
		}
		if !errors.Is(err, runtime.ErrNoExecutor) {
			return nil, err
		}
	}
	return e.requireExecutor()
}

// Page selects a window of rows and the order it is read in.
type Page struct {
	// OrderBy lists field names, each optionally followed by asc or desc.
	OrderBy []string
	Limit   *int
	Offset  *int
	// Count requests the total row count.
	Count       bool
	Transaction string
}

// Response is a select result with its paging descriptors.
type Response struct {
	*runtime.Result
	Paging paging.Paging `json:"paging"`
	Page   *paging.Page  `json:"page,omitempty"`
	Window paging.Window `json:"window"`
}

// run executes a select with the caller's ordering and paging.
func (e *Engine) run(ctx context.Context, t *schema.Type, stmt *sqlgen.Statement, page Page, statistics []string) (*Response, error) {
	var typeID string
	if t != nil {
		typeID = t.String()
	}
	ex, err := e.executorFor(typeID)
	if err != nil {
		return nil, err
	}

	var order []string
	if t != nil {
		if order, err = e.orderBy(t, page.OrderBy); err != nil {
			return nil, err
		}
	} else {
		order = page.OrderBy
	}

	window := paging.Resolve(page.Limit, e.limits.MaxLimit, page.Offset, e.limits.MaxOffset, e.limits.PageOffset)
	result, err := ex.Query(ctx, stmt, runtime.QueryOptions{
		Transaction: page.Transaction,
		OrderBy:     order,
		Paging:      window,
		Count:       page.Count,
		Statistics:  statistics,
	})
	if err != nil {
		return nil, err
	}

	offset := int64(window.Offset)
	resp := &Response{Result: result, Paging: window}
	resp.Window = paging.NewWindow(window.Limit, &offset, int64(result.RowCount), &result.HasNext)
	if result.TotalRowCount != nil {
		p := paging.NewPage(window.Limit, &offset, *result.TotalRowCount)
		resp.Page = &p
	}
	return resp, nil
}

// orderBy turns "field [asc|desc]" entries into alias qualified columns.
func (e *Engine) orderBy(t *schema.Type, entries []string) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	chain := schema.Chain(t)
	aliases, err := sqlgen.AllocateAliases(chain)
	if err != nil {
		return nil, err
	}
	from, err := e.generator.BuildFrom(chain, aliases, nil)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Fields(entry)
		if len(parts) == 0 {
			continue
		}
		owner, field := schema.Lookup(chain, parts[0])
		if field == nil {
			return nil, &sqlgen.BuildError{Op: "order by", Type: t.String(), Field: parts[0], Err: sqlgen.ErrFieldNotFound}
		}
		column := from.AliasOf(owner) + "." + field.Column()
		if len(parts) > 1 {
			switch direction := strings.ToLower(parts[1]); direction {
			case "asc", "desc":
				column += " " + direction
			default:
				var errs runtime.ValidationErrors
				errs.Add("orderBy", entry, "invalid order direction", "Use asc or desc")
				return nil, errs.Err()
			}
		}
		order = append(order, column)
	}
	return order, nil
}

// SelectRequest selects instances of a type by id or by example.
type SelectRequest struct {
	sqlgen.SelectRequest
	Page
}

// Select runs SELECT * over a type's chain.
func (e *Engine) Select(ctx context.Context, typeID string, req SelectRequest) (*Response, error) {
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	stmt, err := e.generator.Select(t, req.SelectRequest)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, t, stmt, req.Page, nil)
}

// FilterRequest selects instances of a type through runtime filters.
type FilterRequest struct {
	sqlgen.FilterRequest
	Page
}

// SelectFiltered runs a filtered select and counts rows per value of the
// fields the request names for statistics.
func (e *Engine) SelectFiltered(ctx context.Context, typeID string, req FilterRequest) (*Response, error) {
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	stmt, err := e.generator.SelectFiltered(t, req.FilterRequest)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, t, stmt, req.Page, req.Statistics)
}

// SelectDynamic runs caller SQL with typed properties. Ordering entries are
// used as SQL expressions.
func (e *Engine) SelectDynamic(ctx context.Context, sql string, properties []sqlgen.Property, page Page) (*Response, error) {
	return e.run(ctx, nil, sqlgen.Dynamic(sql, properties), page, nil)
}

// ExecuteDynamic runs caller SQL that returns no rows.
func (e *Engine) ExecuteDynamic(ctx context.Context, sql string, properties []sqlgen.Property, transaction string) (int64, error) {
	ex, err := e.requireExecutor()
	if err != nil {
		return 0, err
	}
	return ex.Exec(ctx, sqlgen.Dynamic(sql, properties), transaction)
}

// Explain returns the database plan of a filtered select.
func (e *Engine) Explain(ctx context.Context, typeID string, req sqlgen.FilterRequest) (*runtime.Plan, error) {
	ex, err := e.executorFor(typeID)
	if err != nil {
		return nil, err
	}
	t, err := e.types.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	stmt, err := e.generator.SelectFiltered(t, req)
	if err != nil {
		return nil, err
	}
	plan, err := ex.Explain(ctx, stmt)
	if err != nil {
		return nil, err
	}
	logger.Get().Debug("explained select", "type", typeID, "lines", len(plan.Lines))
	return plan, nil
}
