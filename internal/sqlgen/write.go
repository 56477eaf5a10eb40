package sqlgen

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/typedsql/internal/schema"
)

// Insert builds the INSERT for t's own table. Generated fields are left to the
// database; a table holding nothing else is inserted with DEFAULT VALUES so
// its generated key still reaches the subtype rows. With merge set, an ON
// CONFLICT clause on the primary key updates every written column.
func (g *Generator) Insert(t *schema.Type, merge bool) (*Statement, error) {
	op, kind := "insert", KindInsert
	if merge {
		op, kind = "merge", KindMerge
	}

	var (
		pk      *schema.Field
		columns []string
		exprs   []any
		params  = NewStructure(op)
	)
	for _, f := range schema.FieldsInTable(t) {
		if f.PrimaryKey {
			pk = f
		}
		if f.Generated && !(merge && g.opts.Merge == MergeIncludeGenerated && !f.PrimaryKey) {
			continue
		}
		columns = append(columns, f.Column())
		exprs = append(exprs, sq.Expr(":"+f.Name))
		params.AddField(f)
	}
	if merge && pk == nil {
		return nil, &BuildError{Op: op, Type: t.String(), Err: ErrMergeWithoutPrimaryKey}
	}

	var text string
	switch {
	case len(columns) == 0 && merge:
		return nil, &BuildError{Op: op, Type: t.String(), Err: ErrNothingToInsert}
	case len(columns) == 0:
		text = "INSERT INTO ~" + schema.TableName(t) + " DEFAULT VALUES"
	default:
		b := sq.Insert("~" + schema.TableName(t)).Columns(columns...).Values(exprs...)
		if merge {
			b = b.Suffix(conflictClause(pk.Column(), columns))
		}
		var err error
		if text, _, err = b.ToSql(); err != nil {
			return nil, fmt.Errorf("failed to generate SQL: %w", err)
		}
	}

	stmt := &Statement{Kind: kind, Type: t, SQL: text, Parameters: params.Build()}
	if pk != nil && pk.Generated {
		stmt.GeneratedField = pk.Name
	}
	return stmt, nil
}

func conflictClause(key string, columns []string) string {
	var sets []string
	for _, c := range columns {
		if c == key {
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	if len(sets) == 0 {
		return "ON CONFLICT(" + key + ") DO NOTHING"
	}
	return "ON CONFLICT(" + key + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// Update builds the UPDATE for t's own table keyed on the primary key. A
// patch update only overwrites columns whose bound value is not NULL.
func (g *Generator) Update(t *schema.Type, patch bool) (*Statement, error) {
	var (
		pk     *schema.Field
		b      = sq.Update("~" + schema.TableName(t))
		params = NewStructure("update")
		sets   int
	)
	for _, f := range schema.FieldsInTable(t) {
		if f.PrimaryKey {
			pk = f
			continue
		}
		if f.Generated {
			continue
		}
		value := ":" + f.Name
		if patch {
			value = fmt.Sprintf("CASE WHEN :%s IS NULL THEN %s ELSE :%s END", f.Name, f.Column(), f.Name)
		}
		b = b.Set(f.Column(), sq.Expr(value))
		params.AddField(f)
		sets++
	}
	if pk == nil {
		return nil, &BuildError{Op: "update", Type: t.String(), Err: ErrNoPrimaryKey}
	}
	if sets == 0 {
		return nil, &BuildError{Op: "update", Type: t.String(), Err: ErrNothingToUpdate}
	}
	params.AddField(pk)

	text, _, err := b.Where(pk.Column() + " = :" + pk.Name).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}
	return &Statement{Kind: KindUpdate, Type: t, SQL: text, Parameters: params.Build()}, nil
}

// Delete builds the DELETE for t's own table keyed on the primary key.
func (g *Generator) Delete(t *schema.Type) (*Statement, error) {
	pk := schema.PrimaryKey(t)
	if pk == nil {
		return nil, &BuildError{Op: "delete", Type: t.String(), Err: ErrNoPrimaryKey}
	}

	text, _, err := sq.Delete("~" + schema.TableName(t)).Where(pk.Column() + " = :" + pk.Name).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}
	params := NewStructure("delete").AddField(pk).Build()
	return &Statement{Kind: KindDelete, Type: t, SQL: text, Parameters: params}, nil
}
