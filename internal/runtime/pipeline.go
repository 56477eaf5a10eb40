package runtime

import (
	"fmt"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/logger"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// Pipeline turns generated SQL into driver SQL: dialect rewrite (cached),
// table affixes, then positional binding.
type Pipeline struct {
	dialect dialect.Dialect
	cache   *dialect.RewriteCache
	affixes *dialect.Affixes
}

// NewPipeline creates a pipeline. A nil cache rewrites on every call and nil
// affixes only strip the table markers.
func NewPipeline(d dialect.Dialect, cache *dialect.RewriteCache, affixes *dialect.Affixes) *Pipeline {
	return &Pipeline{dialect: d, cache: cache, affixes: affixes}
}

// Dialect returns the dialect the pipeline targets.
func (p *Pipeline) Dialect() dialect.Dialect {
	return p.dialect
}

// Render rewrites sql for the dialect and resolves its table names. Named
// placeholders are kept.
func (p *Pipeline) Render(sql string) (string, error) {
	if p.cache == nil {
		return p.affixes.Apply(p.dialect.Rewrite(sql)), nil
	}
	rewritten, err := p.cache.Rewrite(p.dialect, sql)
	if err != nil {
		return "", fmt.Errorf("failed to rewrite SQL: %w", err)
	}
	return p.affixes.Apply(rewritten), nil
}

// Prepare renders sql and binds values to its placeholders.
func (p *Pipeline) Prepare(sql string, values sqlgen.Values) (string, []any, error) {
	rendered, err := p.Render(sql)
	if err != nil {
		return "", nil, err
	}
	text, args, err := dialect.Bind(p.dialect, rendered, values)
	if err != nil {
		return "", nil, fmt.Errorf("failed to bind parameters: %w", err)
	}
	logger.Get().Debug("prepared statement", "dialect", p.dialect.Name(), "sql", text, "args", len(args))
	return text, args, nil
}
