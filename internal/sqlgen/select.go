package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/typedsql/internal/schema"
)

// SelectRequest selects instances of a type, optionally by id or by example.
type SelectRequest struct {
	// ID selects the single instance with this primary key when non-nil.
	ID any
	// Query matches instances against the supplied field values. A nil value
	// on a required field matches NULL columns, on an optional field it is ignored.
	Query Values
}

// Select builds SELECT * over t's whole chain.
func (g *Generator) Select(t *schema.Type, req SelectRequest) (*Statement, error) {
	chain := schema.Chain(t)
	aliases, err := AllocateAliases(chain)
	if err != nil {
		return nil, &BuildError{Op: "select", Type: t.String(), Err: err}
	}
	from, err := g.BuildFrom(chain, aliases, nil)
	if err != nil {
		return nil, err
	}

	b := from.Apply(sq.Select("*"))
	params := NewStructure("select")
	values := Values{}

	var idField *schema.Field
	if req.ID != nil {
		owner, pk := chainKey(chain)
		if pk == nil {
			return nil, &BuildError{Op: "select", Type: t.String(), Field: "id", Err: ErrNoPrimaryKey}
		}
		idField = pk
		b = b.Where(from.AliasOf(owner) + "." + pk.Column() + " = :id")
		params.Add(Element{Name: "id", Kind: pk.Kind})
		values["id"] = req.ID
	}

	if req.Query != nil {
		for _, f := range schema.AllFields(t) {
			value, ok := req.Query[f.Name]
			if !ok || (idField != nil && f.Name == idField.Name) {
				continue
			}
			owner, _ := schema.Lookup(chain, f.Name)
			if owner == nil {
				owner = t
			}
			column := from.AliasOf(owner) + "." + f.Column()

			switch {
			case value == nil && f.IsOptional():
				continue
			case value == nil:
				b = b.Where(column + " is null")
			case f.IsList():
				b = b.Where(column + " = any(:" + f.Name + ")")
				params.AddField(f)
				values[f.Name] = value
			case f.Kind == schema.KindString:
				b = b.Where("lower(" + column + ") like '%' || lower(:" + f.Name + ") || '%'")
				params.AddField(f)
				values[f.Name] = value
			default:
				b = b.Where(column + " = :" + f.Name)
				params.AddField(f)
				values[f.Name] = value
			}
		}
	}

	return selectStatement(t, b, params.Build(), values)
}

// chainKey finds the primary key of the root-most type declaring one.
func chainKey(chain []*schema.Type) (*schema.Type, *schema.Field) {
	for _, t := range chain {
		for _, f := range t.Fields {
			if f.PrimaryKey {
				return t, f
			}
		}
	}
	return nil, nil
}

// FilterRequest selects instances of a type through runtime filters.
type FilterRequest struct {
	Filters []Filter
	Joins   []Join
	// GroupBy lists field names to group on.
	GroupBy []string
	// Selection replaces the * projection.
	Selection string
	// Statistics lists the fields to count rows per value for. When set every
	// comparison is optional through its input so a field's own filters can be
	// lifted while counting it.
	Statistics []string
}

// SelectFiltered builds a select over t's chain with the compiled filters,
// explicit joins and grouping.
func (g *Generator) SelectFiltered(t *schema.Type, req FilterRequest) (*Statement, error) {
	chain := schema.Chain(t)
	aliases, err := AllocateAliases(chain)
	if err != nil {
		return nil, &BuildError{Op: "select", Type: t.String(), Err: err}
	}
	from, err := g.BuildFrom(chain, aliases, req.Joins)
	if err != nil {
		return nil, err
	}

	selection := req.Selection
	if strings.TrimSpace(selection) == "" {
		selection = "*"
	}
	b := from.Apply(sq.Select(selection))
	if from.WantsDistinct(selection) {
		b = b.Distinct()
	}

	for _, name := range req.Statistics {
		if _, field := schema.Lookup(chain, name); field == nil {
			return nil, &BuildError{Op: "statistics", Type: t.String(), Field: name, Err: ErrFieldNotFound}
		}
	}

	where, err := g.CompileWhere(req.Filters, chain, from.AliasOf, len(req.Statistics) > 0)
	if err != nil {
		return nil, err
	}
	b = where.Apply(b)

	if len(req.GroupBy) > 0 {
		groups, err := g.groupBy(t, req.GroupBy)
		if err != nil {
			return nil, err
		}
		b = b.GroupBy(groups...)
	}

	stmt, err := selectStatement(t, b, where.Parameters, where.Values)
	if err != nil {
		return nil, err
	}
	stmt.columns = make(map[string]string)
	for _, f := range schema.AllFields(t) {
		if owner, field := schema.Lookup(chain, f.Name); field != nil {
			stmt.columns[f.Name] = fieldTarget(from.AliasOf(owner), field)
		}
	}
	return stmt, nil
}

// groupBy renders field names as ordinals or column names.
func (g *Generator) groupBy(t *schema.Type, names []string) ([]string, error) {
	fields := schema.AllFields(t)
	groups := make([]string, 0, len(names))
	for _, name := range names {
		position := -1
		for i, f := range fields {
			if f.Name == name {
				position = i
				break
			}
		}
		if position < 0 {
			return nil, &BuildError{Op: "group by", Type: t.String(), Field: name, Err: ErrFieldNotFound}
		}
		if g.opts.NumericGroupBy {
			groups = append(groups, strconv.Itoa(position+1))
		} else {
			groups = append(groups, fields[position].Column())
		}
	}
	return groups, nil
}

// SelectJoined projects every visible column of t's chain qualified by alias.
// Fields a subtype redeclares or restricts are only projected once, from the
// subtype; fields of hidden types are projected through the next visible type.
func (g *Generator) SelectJoined(t *schema.Type) (*Statement, error) {
	chain := schema.Chain(t)
	aliases, err := AllocateAliases(chain)
	if err != nil {
		return nil, &BuildError{Op: "select", Type: t.String(), Err: err}
	}
	from, err := g.BuildFrom(chain, aliases, nil)
	if err != nil {
		return nil, err
	}

	var columns []string
	for i, owner := range chain {
		alias := from.AliasOf(owner)
		for _, f := range owner.Fields {
			if shadowed(chain[i+1:], f.Name) {
				continue
			}
			columns = append(columns, alias+"."+f.Column())
		}
	}
	if len(columns) == 0 {
		return nil, &BuildError{Op: "select", Type: t.String(), Err: fmt.Errorf("%w: no columns", ErrFieldNotFound)}
	}
	return selectStatement(t, from.Apply(sq.Select(columns...)), NewStructure("select").Build(), nil)
}

func shadowed(subtypes []*schema.Type, name string) bool {
	for _, sub := range subtypes {
		if sub.Field(name) != nil || sub.IsRestricted(name) {
			return true
		}
	}
	return false
}
