package sqlgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/typedsql/internal/schema"
)

const defaultJoinOn = "source.id = target.id"

var distinctPattern = regexp.MustCompile(`(?i)\bdistinct\b`)

// Join declares an explicit join spliced in after its source table is bound.
type Join struct {
	// Source is the table name (or the target of another join) to join from.
	Source string
	// Target is the table or subquery text to join to.
	Target string
	// On is a condition template using "source." and "target." prefixes.
	On string
	// Type is the join keyword, JOIN when empty.
	Type string
	// MultipleMatches forces DISTINCT on the outer select.
	MultipleMatches bool
}

// From is a synthesized FROM clause for a type chain.
type From struct {
	// Table is the first bound table with its alias.
	Table string
	// Joins holds the join clauses in order.
	Joins []string
	// Distinct is set when a spliced join may multiply rows.
	Distinct bool

	aliases *Aliases
	owners  map[*schema.Type]*schema.Type
	custom  map[string]string
}

// String renders the clause without the FROM keyword.
func (f *From) String() string {
	if len(f.Joins) == 0 {
		return f.Table
	}
	return f.Table + " " + strings.Join(f.Joins, " ")
}

// Apply adds the clause to a select builder.
func (f *From) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	b = b.From(f.Table)
	for _, join := range f.Joins {
		b = b.JoinClause(join)
	}
	return b
}

// AliasOf returns the alias through which columns of t are addressed: the
// alias of the type that bound t's table.
func (f *From) AliasOf(t *schema.Type) string {
	if owner, ok := f.owners[t]; ok {
		return f.aliases.Of(owner)
	}
	return f.aliases.Of(t)
}

// JoinAlias returns the synthetic alias of an explicit join target.
func (f *From) JoinAlias(target string) (string, bool) {
	alias, ok := f.custom[target]
	return alias, ok
}

// WantsDistinct reports whether DISTINCT must be added for the given projection.
func (f *From) WantsDistinct(selection string) bool {
	return f.Distinct && !distinctPattern.MatchString(selection)
}

// BuildFrom walks chain root first and binds one table per visible type. A
// type stored in the same table as the previously bound one is folded into
// it; hidden types are folded into the next visible type.
func (g *Generator) BuildFrom(chain []*schema.Type, aliases *Aliases, joins []Join) (*From, error) {
	from := &From{
		aliases: aliases,
		owners:  map[*schema.Type]*schema.Type{},
		custom:  map[string]string{},
	}

	var (
		pending   = newJoinQueue(joins)
		hidden    []*schema.Type
		previous  *schema.Type
		prevTable string
		counter   = 1
	)

	for _, t := range chain {
		if t.Hidden {
			hidden = append(hidden, t)
			continue
		}
		table := schema.TableName(t)
		if previous != nil && table == prevTable {
			from.fold(previous, append(hidden, t)...)
			hidden = nil
			continue
		}
		from.fold(t, hidden...)
		hidden = nil

		alias := aliases.Of(t)
		if previous == nil {
			from.Table = "~" + table + " " + alias
		} else {
			childField, parentField, err := g.binder.Binding(t, previous)
			if err != nil {
				return nil, &BuildError{Op: "from", Type: t.String(), Err: err}
			}
			from.Joins = append(from.Joins, fmt.Sprintf("JOIN ~%s %s ON %s.%s = %s.%s",
				table, alias, alias, schema.Underscore(childField), aliases.Of(previous), schema.Underscore(parentField)))
		}

		for _, j := range pending.take(table) {
			from.splice(j, alias, &counter)
		}
		previous = t
		prevTable = table
	}
	if previous != nil {
		from.fold(previous, hidden...)
	}

	for pending.size() > 0 {
		progress := false
		for _, source := range pending.sources() {
			alias, ok := from.custom[source]
			if !ok {
				continue
			}
			for _, j := range pending.take(source) {
				from.splice(j, alias, &counter)
			}
			progress = true
		}
		if !progress {
			return nil, &BuildError{Op: "from", Type: typeOf(chain), Field: strings.Join(pending.sources(), ", "), Err: ErrUnresolvedJoins}
		}
	}
	return from, nil
}

func (f *From) fold(owner *schema.Type, types ...*schema.Type) {
	if binder, ok := f.owners[owner]; ok {
		owner = binder
	}
	for _, t := range types {
		if t != owner {
			f.owners[t] = owner
		}
	}
}

func (f *From) splice(j Join, sourceAlias string, counter *int) {
	if j.MultipleMatches {
		f.Distinct = true
	}
	name := "auto_join_" + strconv.Itoa(*counter)
	*counter++

	on := j.On
	if on == "" {
		on = defaultJoinOn
	}
	on = strings.ReplaceAll(on, "source.", sourceAlias+".")
	on = strings.ReplaceAll(on, "target.", name+".")

	keyword := j.Type
	if keyword == "" {
		keyword = "JOIN"
	}
	f.Joins = append(f.Joins, fmt.Sprintf("%s %s %s ON %s", keyword, j.Target, name, on))
	f.custom[j.Target] = name
}

// joinQueue keeps explicit joins grouped by source in first-seen order.
type joinQueue struct {
	order []string
	bySrc map[string][]Join
}

func newJoinQueue(joins []Join) *joinQueue {
	q := &joinQueue{bySrc: map[string][]Join{}}
	for _, j := range joins {
		if _, ok := q.bySrc[j.Source]; !ok {
			q.order = append(q.order, j.Source)
		}
		q.bySrc[j.Source] = append(q.bySrc[j.Source], j)
	}
	return q
}

func (q *joinQueue) take(source string) []Join {
	joins, ok := q.bySrc[source]
	if !ok {
		return nil
	}
	delete(q.bySrc, source)
	for i, s := range q.order {
		if s == source {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return joins
}

func (q *joinQueue) sources() []string {
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}

func (q *joinQueue) size() int {
	return len(q.order)
}

func typeOf(chain []*schema.Type) string {
	if len(chain) == 0 {
		return ""
	}
	return chain[len(chain)-1].String()
}
