package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/engine"
	"github.com/mvp-joe/typedsql/internal/runtime"
	"github.com/mvp-joe/typedsql/internal/schema"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// errNoTypes is returned by commands that need type definitions when none are configured.
var errNoTypes = errors.New("no type definition files configured (set types.files or pass --types)")

// app holds what a command needs to generate or run statements.
type app struct {
	engine  *engine.Engine
	types   schema.Resolver
	dialect dialect.Dialect
	close   func()
}

// newApp builds the engine from the loaded configuration. With needDB set a
// connection is opened from database.dsn and one per database.sources entry,
// all sharing one rewrite cache.
func newApp(needDB bool) (*app, error) {
	d, err := dialect.Default().Get(cfg.Dialect.Name)
	if err != nil {
		return nil, err
	}
	affixes, err := dialect.CompileAffixes(cfg.Dialect.Affixes)
	if err != nil {
		return nil, err
	}

	var types schema.Resolver = schema.NewRegistry()
	if len(cfg.Types.Files) > 0 {
		if types, err = schema.LoadFiles(cfg.Types.Files...); err != nil {
			return nil, err
		}
	}

	opts := []engine.Option{
		engine.WithDialect(d),
		engine.WithAffixes(affixes),
		engine.WithLimits(cfg.ToLimits()),
	}
	a := &app{dialect: d, types: types, close: func() {}}

	if needDB {
		if !cfg.HasDatabase() {
			return nil, fmt.Errorf("%w: set database.dsn, database.sources or TYPEDSQL_DATABASE_DSN", engine.ErrNoDatabase)
		}
		cache := dialect.NewRewriteCache(cfg.Cache.Capacity)
		pipeline := runtime.NewPipeline(d, cache, affixes)
		var dbs []*sql.DB
		a.close = func() {
			cache.Close()
			for _, db := range dbs {
				db.Close()
			}
		}
		open := func(dsn string) (*runtime.Executor, error) {
			db, err := openDatabase(d, dsn)
			if err != nil {
				a.close()
				return nil, err
			}
			dbs = append(dbs, db)
			return runtime.NewExecutor(db, pipeline), nil
		}

		if cfg.Database.DSN != "" {
			ex, err := open(cfg.Database.DSN)
			if err != nil {
				return nil, err
			}
			opts = append(opts, engine.WithExecutor(ex))
		}
		if len(cfg.Database.Sources) > 0 {
			sources := runtime.NewResolver()
			for _, src := range cfg.Database.Sources {
				ex, err := open(src.DSN)
				if err != nil {
					return nil, err
				}
				sources.Register(src.Prefix, ex)
			}
			opts = append(opts, engine.WithSources(sources))
		}
	}

	a.engine = engine.New(types, sqlgen.New(nil, cfg.ToGeneratorOptions(d)), opts...)
	return a, nil
}

func openDatabase(d dialect.Dialect, dsn string) (*sql.DB, error) {
	driver := cfg.DriverName(d)
	if driver == d.DriverName() {
		return runtime.Open(d, dsn)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return db, nil
}

func requireTypes() error {
	if len(cfg.Types.Files) == 0 {
		return errNoTypes
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}
