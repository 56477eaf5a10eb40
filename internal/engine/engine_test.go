package engine

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/paging"
	"github.com/mvp-joe/typedsql/internal/runtime"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// Test Plan for the engine:
// - Describe reports the type name and the table walked up the hierarchy
// - Inserts run parent first and carry the generated key into the child table
// - A parent holding only its generated key is inserted with default values
// - Selects page, count and order by field names through the owning alias
// - Unknown order fields and directions are rejected
// - Patch updates keep columns whose value is nil
// - Merge updates rows whose key exists
// - Delete by id removes the rows of every table, child first
// - A failing table statement rolls back the rows already written
// - Writes join caller transactions and notify the change tracker
// - Generation-only engines fail database operations with ErrNoDatabase
// - Type ids matching a data source prefix run on that source's database
// - Literal inserts render per dialect, compact or broken before VALUES
// - Generate renders the statements of a type for the engine dialect

func registry(t *testing.T) *schema.Registry {
	t.Helper()

	r := schema.NewRegistry()
	require.NoError(t, r.Register(
		&schema.Type{ID: "crm.Party", Name: "Party", CollectionName: "party", Fields: []*schema.Field{
			{Name: "id", Kind: schema.KindLong, MinOccurs: 1, MaxOccurs: 1, PrimaryKey: true, Generated: true},
			{Name: "name", Kind: schema.KindString, MinOccurs: 1, MaxOccurs: 1},
		}},
		&schema.Type{ID: "crm.Customer", Name: "Customer", CollectionName: "customer", SuperID: "crm.Party", Fields: []*schema.Field{
			{Name: "id", Kind: schema.KindLong, MinOccurs: 1, MaxOccurs: 1, PrimaryKey: true},
			{Name: "loyaltyLevel", Kind: schema.KindInteger, MaxOccurs: 1},
		}},
		&schema.Type{ID: "crm.Tag", Name: "Tag", CollectionName: "tag", Fields: []*schema.Field{
			{Name: "code", Kind: schema.KindString, MinOccurs: 1, MaxOccurs: 1, PrimaryKey: true},
			{Name: "label", Kind: schema.KindString, MaxOccurs: 1},
		}},
		&schema.Type{ID: "crm.Entity", Name: "Entity", CollectionName: "entity", Fields: []*schema.Field{
			{Name: "id", Kind: schema.KindLong, MinOccurs: 1, MaxOccurs: 1, PrimaryKey: true, Generated: true},
		}},
		&schema.Type{ID: "crm.Document", Name: "Document", CollectionName: "document", SuperID: "crm.Entity", Fields: []*schema.Field{
			{Name: "id", Kind: schema.KindLong, MinOccurs: 1, MaxOccurs: 1, PrimaryKey: true},
			{Name: "title", Kind: schema.KindString, MinOccurs: 1, MaxOccurs: 1},
		}},
	))
	return r
}

// newEngine returns an engine over an in-memory sqlite database holding the
// party, customer, tag, entity and document tables.
func newEngine(t *testing.T, opts ...Option) (*Engine, *sql.DB) {
	t.Helper()

	d := dialect.NewSQLite()
	db, err := runtime.Open(d, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, ddl := range []string{
		`CREATE TABLE party (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`,
		`CREATE TABLE customer (id INTEGER PRIMARY KEY REFERENCES party(id), loyalty_level INTEGER)`,
		`CREATE TABLE tag (code TEXT PRIMARY KEY, label TEXT)`,
		`CREATE TABLE entity (id INTEGER PRIMARY KEY AUTOINCREMENT)`,
		`CREATE TABLE document (id INTEGER PRIMARY KEY REFERENCES entity(id), title TEXT NOT NULL)`,
	} {
		_, err := db.Exec(ddl)
		require.NoError(t, err)
	}

	cache := dialect.NewRewriteCache(dialect.DefaultCacheCapacity)
	t.Cleanup(cache.Close)
	executor := runtime.NewExecutor(db, runtime.NewPipeline(d, cache, nil))

	opts = append([]Option{WithExecutor(executor), WithDialect(d)}, opts...)
	return New(registry(t), sqlgen.New(nil, sqlgen.Options{}), opts...), db
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func insertCustomers(t *testing.T, e *Engine) []sqlgen.Values {
	t.Helper()
	customers := []sqlgen.Values{
		{"name": "Ann", "loyaltyLevel": 3},
		{"name": "Bob", "loyaltyLevel": 1},
	}
	_, err := e.Insert(context.Background(), "crm.Customer", customers, "")
	require.NoError(t, err)
	return customers
}

func TestEngine_Describe(t *testing.T) {
	t.Parallel()

	e := New(registry(t), sqlgen.New(nil, sqlgen.Options{}))

	got, err := e.Describe("crm.Customer")
	require.NoError(t, err)
	assert.Equal(t, &TypeDescription{TypeName: "Customer", CollectionName: "customer"}, got)

	_, err = e.Describe("crm.Nobody")
	assert.ErrorIs(t, err, schema.ErrTypeNotFound)

	assert.Equal(t, []string{"ansi", "mysql", "postgres", "sqlite"}, e.Dialects())
}

func TestEngine_InsertAcrossTables(t *testing.T) {
	t.Parallel()

	e, db := newEngine(t)
	customers := insertCustomers(t, e)

	assert.Equal(t, int64(1), customers[0]["id"])
	assert.Equal(t, int64(2), customers[1]["id"])
	assert.Equal(t, 2, count(t, db, "party"))
	assert.Equal(t, 2, count(t, db, "customer"))

	var level int
	require.NoError(t, db.QueryRow("SELECT loyalty_level FROM customer WHERE id = 2").Scan(&level))
	assert.Equal(t, 1, level)
}

func TestEngine_InsertKeyOnlyParent(t *testing.T) {
	t.Parallel()

	e, db := newEngine(t)
	ctx := context.Background()

	docs := []sqlgen.Values{{"title": "a"}, {"title": "b"}}
	res, err := e.Insert(ctx, "crm.Document", docs, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Affected)
	assert.Equal(t, int64(1), docs[0]["id"])
	assert.Equal(t, int64(2), docs[1]["id"])
	assert.Equal(t, 2, count(t, db, "entity"))
	assert.Equal(t, 2, count(t, db, "document"))

	resp, err := e.Select(ctx, "crm.Document", SelectRequest{SelectRequest: sqlgen.SelectRequest{ID: int64(2)}})
	require.NoError(t, err)
	require.Len(t, resp.Records(), 1)
	assert.Equal(t, "b", resp.Records()[0]["title"])

	inserts, err := e.BuildInserts("crm.Document", []sqlgen.Values{{"id": int64(9), "title": "c"}}, "mysql", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"INSERT INTO entity () VALUES ();",
		"INSERT INTO document (id,title) VALUES (9,'c');",
	}, inserts)

	_, err = e.Merge(ctx, "crm.Document", docs, "")
	assert.ErrorIs(t, err, sqlgen.ErrNothingToInsert)

	generated, err := e.Generate("crm.Document")
	require.NoError(t, err)
	for _, g := range generated {
		assert.NotEqual(t, sqlgen.KindMerge, g.Kind)
	}
	assert.Contains(t, generated, Generated{Kind: sqlgen.KindInsert, Table: "entity", SQL: "INSERT INTO entity DEFAULT VALUES"})
}

func TestEngine_SelectFiltered(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	insertCustomers(t, e)

	tests := []struct {
		name     string
		page     Page
		filters  []sqlgen.Filter
		expected []string
		hasNext  bool
	}{
		{
			name:     "ordered by a parent field",
			page:     Page{OrderBy: []string{"name desc"}},
			expected: []string{"Bob", "Ann"},
		},
		{
			name:     "ordered by a child field",
			page:     Page{OrderBy: []string{"loyaltyLevel"}},
			expected: []string{"Bob", "Ann"},
		},
		{
			name:     "first page",
			page:     Page{OrderBy: []string{"name ASC"}, Limit: paging.Int(1), Count: true},
			expected: []string{"Ann"},
			hasNext:  true,
		},
		{
			name:     "filtered",
			filters:  []sqlgen.Filter{{Key: "loyaltyLevel", Operator: sqlgen.OpGreater, Values: []any{2}}},
			expected: []string{"Ann"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := e.SelectFiltered(context.Background(), "crm.Customer", FilterRequest{
				FilterRequest: sqlgen.FilterRequest{Filters: tt.filters},
				Page:          tt.page,
			})
			require.NoError(t, err)

			var names []string
			for _, r := range resp.Records() {
				names = append(names, r["name"].(string))
			}
			assert.Equal(t, tt.expected, names)
			assert.Equal(t, tt.hasNext, resp.Window.HasNext)
			if tt.page.Count {
				require.NotNil(t, resp.Page)
				assert.Equal(t, int64(2), resp.Page.TotalRowCount)
			} else {
				assert.Nil(t, resp.Page)
			}
		})
	}
}

func TestEngine_OrderByErrors(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)

	_, err := e.SelectFiltered(context.Background(), "crm.Customer", FilterRequest{Page: Page{OrderBy: []string{"nickname"}}})
	assert.ErrorIs(t, err, sqlgen.ErrFieldNotFound)

	_, err = e.SelectFiltered(context.Background(), "crm.Customer", FilterRequest{Page: Page{OrderBy: []string{"name sideways"}}})
	var errs runtime.ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, "orderBy", errs[0].Field)
}

func TestEngine_PatchUpdate(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	insertCustomers(t, e)

	res, err := e.Update(context.Background(), "crm.Customer", []sqlgen.Values{{"id": int64(1), "name": "Ann B", "loyaltyLevel": nil}}, true, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)

	resp, err := e.Select(context.Background(), "crm.Customer", SelectRequest{SelectRequest: sqlgen.SelectRequest{ID: int64(1)}})
	require.NoError(t, err)
	require.Len(t, resp.Records(), 1)
	record := resp.Records()[0]
	assert.Equal(t, "Ann B", record["name"])
	assert.Equal(t, int64(3), record["loyalty_level"])
}

func TestEngine_Merge(t *testing.T) {
	t.Parallel()

	e, db := newEngine(t)
	ctx := context.Background()

	_, err := e.Merge(ctx, "crm.Tag", []sqlgen.Values{{"code": "vip", "label": "VIP"}}, "")
	require.NoError(t, err)
	_, err = e.Merge(ctx, "crm.Tag", []sqlgen.Values{{"code": "vip", "label": "Very important"}, {"code": "new", "label": "New"}}, "")
	require.NoError(t, err)

	assert.Equal(t, 2, count(t, db, "tag"))
	var label string
	require.NoError(t, db.QueryRow("SELECT label FROM tag WHERE code = 'vip'").Scan(&label))
	assert.Equal(t, "Very important", label)
}

func TestEngine_DeleteByID(t *testing.T) {
	t.Parallel()

	e, db := newEngine(t)
	insertCustomers(t, e)

	res, err := e.DeleteByID(context.Background(), "crm.Customer", []any{int64(2)}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)
	assert.Equal(t, 1, count(t, db, "party"))
	assert.Equal(t, 1, count(t, db, "customer"))

	_, err = e.Delete(context.Background(), "crm.Customer", []sqlgen.Values{{"id": int64(1)}}, "")
	require.NoError(t, err)
	assert.Equal(t, 0, count(t, db, "party"))
}

func TestEngine_WriteRollsBack(t *testing.T) {
	t.Parallel()

	e, db := newEngine(t)
	insertCustomers(t, e)

	// the party row is written before the customer key collides
	_, err := e.Insert(context.Background(), "crm.Customer", []sqlgen.Values{{"id": int64(1), "name": "Dup"}}, "")
	require.Error(t, err)
	assert.Equal(t, 2, count(t, db, "party"))
}

func TestEngine_TransactionsAndTracker(t *testing.T) {
	t.Parallel()

	var events []runtime.Event
	tracker := runtime.TrackerFunc(func(_ context.Context, ev runtime.Event) error {
		events = append(events, ev)
		return nil
	})
	e, db := newEngine(t, WithTracker(tracker))
	ctx := context.Background()

	tx, err := e.executor.Transactions().Begin(ctx)
	require.NoError(t, err)
	_, err = e.Insert(ctx, "crm.Tag", []sqlgen.Values{{"code": "a"}}, tx)
	require.NoError(t, err)
	require.NoError(t, e.executor.Transactions().Rollback(tx))
	assert.Equal(t, 0, count(t, db, "tag"))

	_, err = e.Insert(ctx, "crm.Tag", []sqlgen.Values{{"code": "b"}}, "")
	require.NoError(t, err)
	_, err = e.DeleteByID(ctx, "crm.Tag", []any{"b"}, "")
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, sqlgen.KindInsert, events[0].Kind)
	assert.Equal(t, sqlgen.KindDelete, events[2].Kind)
	assert.Equal(t, []sqlgen.Values{{"code": "b"}}, events[2].Instances)

	_, err = e.Insert(ctx, "crm.Tag", []sqlgen.Values{{"code": "c"}}, "missing")
	assert.ErrorIs(t, err, runtime.ErrUnknownTransaction)
}

func TestEngine_WithoutDatabase(t *testing.T) {
	t.Parallel()

	e := New(registry(t), sqlgen.New(nil, sqlgen.Options{}))
	ctx := context.Background()

	_, err := e.Insert(ctx, "crm.Tag", []sqlgen.Values{{"code": "a"}}, "")
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = e.SelectFiltered(ctx, "crm.Tag", FilterRequest{})
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = e.StoredProcedures(ctx, "", "", "")
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestEngine_DataSources(t *testing.T) {
	t.Parallel()

	d := dialect.NewSQLite()
	tags, err := runtime.Open(d, ":memory:")
	require.NoError(t, err)
	tags.SetMaxOpenConns(1)
	t.Cleanup(func() { tags.Close() })
	_, err = tags.Exec(`CREATE TABLE tag (code TEXT PRIMARY KEY, label TEXT)`)
	require.NoError(t, err)

	sources := runtime.NewResolver()
	sources.Register("crm.Tag", runtime.NewExecutor(tags, runtime.NewPipeline(d, nil, nil)))
	e, db := newEngine(t, WithSources(sources))
	ctx := context.Background()

	_, err = e.Insert(ctx, "crm.Tag", []sqlgen.Values{{"code": "vip", "label": "VIP"}}, "")
	require.NoError(t, err)
	insertCustomers(t, e)

	assert.Equal(t, 1, count(t, tags, "tag"))
	assert.Equal(t, 0, count(t, db, "tag"))
	assert.Equal(t, 2, count(t, db, "customer"))

	resp, err := e.SelectFiltered(ctx, "crm.Tag", FilterRequest{})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"code": "vip", "label": "VIP"}}, resp.Records())

	plan, err := e.Explain(ctx, "crm.Tag", sqlgen.FilterRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Lines)

	// Types without a source need the default database.
	only := New(registry(t), sqlgen.New(nil, sqlgen.Options{}), WithDialect(d), WithSources(sources))
	_, err = only.SelectFiltered(ctx, "crm.Tag", FilterRequest{})
	require.NoError(t, err)
	_, err = only.SelectFiltered(ctx, "crm.Party", FilterRequest{})
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestEngine_Dynamic(t *testing.T) {
	t.Parallel()

	e, _ := newEngine(t)
	ctx := context.Background()

	n, err := e.ExecuteDynamic(ctx, "INSERT INTO tag (code, label) VALUES (:code, :label)",
		[]sqlgen.Property{{Key: "code", Value: "x", Kind: schema.KindString}, {Key: "label", Value: "X"}}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	resp, err := e.SelectDynamic(ctx, "SELECT code, label FROM tag WHERE code = :code",
		[]sqlgen.Property{{Key: "code", Value: "x"}}, Page{OrderBy: []string{"code"}})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"code": "x", "label": "X"}}, resp.Records())
}

func TestEngine_BuildInserts(t *testing.T) {
	t.Parallel()

	affixes, err := dialect.CompileAffixes([]dialect.Affix{{Prefix: "crm_", Tables: []string{"party"}}})
	require.NoError(t, err)
	e := New(registry(t), sqlgen.New(nil, sqlgen.Options{}), WithAffixes(affixes))
	instances := []sqlgen.Values{{"id": int64(7), "name": "O'Hara", "loyaltyLevel": 2}}

	tests := []struct {
		name     string
		dialect  string
		compact  bool
		expected []string
	}{
		{
			name:    "compact",
			dialect: "sqlite",
			compact: true,
			expected: []string{
				"INSERT INTO crm_party (name) VALUES ('O''Hara');",
				"INSERT INTO customer (id,loyalty_level) VALUES (7,2);",
			},
		},
		{
			name:    "broken before values",
			dialect: "mysql",
			expected: []string{
				"INSERT INTO crm_party (name)\nVALUES ('O\\'Hara');",
				"INSERT INTO customer (id,loyalty_level)\nVALUES (7,2);",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.BuildInserts("crm.Customer", instances, tt.dialect, tt.compact)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err = e.BuildInserts("crm.Customer", instances, "oracle", true)
	assert.ErrorIs(t, err, dialect.ErrUnknownDialect)
}

func TestEngine_Generate(t *testing.T) {
	t.Parallel()

	e := New(registry(t), sqlgen.New(nil, sqlgen.Options{}))

	got, err := e.Generate("crm.Customer")
	require.NoError(t, err)
	assert.Equal(t, []Generated{
		{Kind: sqlgen.KindSelect, SQL: "SELECT p.name, c.id, c.loyalty_level FROM party p JOIN customer c ON c.id = p.id"},
		{Kind: sqlgen.KindInsert, Table: "party", SQL: "INSERT INTO party (name) VALUES (:name)"},
		{Kind: sqlgen.KindInsert, Table: "customer", SQL: "INSERT INTO customer (id,loyalty_level) VALUES (:id,:loyaltyLevel)"},
		{Kind: sqlgen.KindMerge, Table: "party", SQL: "INSERT INTO party (name) VALUES (:name) ON CONFLICT(id) DO UPDATE SET name = EXCLUDED.name"},
		{Kind: sqlgen.KindMerge, Table: "customer", SQL: "INSERT INTO customer (id,loyalty_level) VALUES (:id,:loyaltyLevel) ON CONFLICT(id) DO UPDATE SET loyalty_level = EXCLUDED.loyalty_level"},
		{Kind: sqlgen.KindUpdate, Table: "customer", SQL: "UPDATE customer SET loyalty_level = :loyaltyLevel WHERE id = :id"},
		{Kind: sqlgen.KindUpdate, Table: "party", SQL: "UPDATE party SET name = :name WHERE id = :id"},
		{Kind: sqlgen.KindDelete, Table: "customer", SQL: "DELETE FROM customer WHERE id = :id"},
		{Kind: sqlgen.KindDelete, Table: "party", SQL: "DELETE FROM party WHERE id = :id"},
	}, got)
}

func TestEngine_CallProcedure(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d := dialect.NewPostgres()
	executor := runtime.NewExecutor(db, runtime.NewPipeline(d, nil, nil))
	e := New(registry(t), sqlgen.New(nil, sqlgen.Options{}), WithExecutor(executor), WithDialect(d))

	columns := []string{
		"routine_catalog", "routine_schema", "routine_name", "specific_name",
		"routine_type", "data_type",
		"ordinal_position", "parameter_mode", "parameter_name", "data_type",
		"character_maximum_length", "numeric_precision", "numeric_scale", "numeric_precision_radix",
	}
	catalog := regexp.QuoteMeta("FROM information_schema.routines r LEFT JOIN information_schema.parameters p") +
		".+" + regexp.QuoteMeta("WHERE r.routine_schema = $1 AND r.routine_name = $2")

	mock.ExpectQuery(catalog).WithArgs("public", "add_tax").WillReturnRows(sqlmock.NewRows(columns).
		AddRow("db", "public", "add_tax", "add_tax_1", "FUNCTION", "numeric", 1, "IN", "amount", "numeric", nil, nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM public.add_tax($1)")).WithArgs(10.5).
		WillReturnRows(sqlmock.NewRows([]string{"add_tax"}).AddRow([]byte("11.55")))

	out, err := e.CallProcedure(context.Background(), "", "public", "add_tax", "", sqlgen.Values{"amount": 10.5}, "")
	require.NoError(t, err)
	assert.Equal(t, sqlgen.Values{"return": 11.55}, out.Return)

	mock.ExpectQuery(catalog).WithArgs("public", "missing").WillReturnRows(sqlmock.NewRows(columns))
	_, err = e.CallProcedure(context.Background(), "", "public", "missing", "", nil, "")
	assert.ErrorIs(t, err, ErrProcedureNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_ConvertFilters(t *testing.T) {
	t.Parallel()

	e := New(registry(t), sqlgen.New(nil, sqlgen.Options{}))

	filters := []sqlgen.Filter{
		{Key: "loyaltyLevel", Operator: sqlgen.OpGreater, Values: []any{float64(2)}},
		{Key: "id", Operator: "= ", Values: []any{"7"}},
		{Key: "loyaltyLevel", Operator: sqlgen.OpIsNull, Values: []any{true}},
	}
	require.NoError(t, e.ConvertFilters("crm.Customer", filters[:2]))
	assert.Equal(t, []any{2}, filters[0].Values)
	assert.Equal(t, []any{int64(7)}, filters[1].Values)

	require.NoError(t, e.ConvertFilters("crm.Customer", filters[2:]))
	assert.Equal(t, []any{true}, filters[2].Values)

	err := e.ConvertFilters("crm.Customer", []sqlgen.Filter{{Key: "email", Operator: sqlgen.OpEqual, Values: []any{"x"}}})
	assert.ErrorIs(t, err, sqlgen.ErrFieldNotFound)

	err = e.ConvertFilters("crm.Customer", []sqlgen.Filter{{Key: "loyaltyLevel", Operator: sqlgen.OpEqual, Values: []any{"high"}}})
	assert.ErrorIs(t, err, schema.ErrNotConvertible)

	err = e.ConvertFilters("crm.Nobody", nil)
	assert.ErrorIs(t, err, schema.ErrTypeNotFound)
}
