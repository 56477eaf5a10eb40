package sqlgen

import (
	"github.com/mvp-joe/typedsql/internal/schema"
)

// MergePolicy decides whether generated columns take part in a merge.
type MergePolicy int

const (
	// MergeExcludeGenerated leaves generated columns out of the insert and the
	// conflict update alike.
	MergeExcludeGenerated MergePolicy = iota
	// MergeIncludeGenerated writes generated non-key columns on merge.
	MergeIncludeGenerated
)

// TogglePolicy decides what a false value does to a non-comparison filter.
type TogglePolicy int

const (
	// ToggleSkip drops the filter.
	ToggleSkip TogglePolicy = iota
	// ToggleInvert applies the inverse of the filter.
	ToggleInvert
)

// WideningPolicy decides when equality on an optional defaulted field also
// matches NULL.
type WideningPolicy int

const (
	// WidenEquals widens "=" comparisons that include the default value.
	WidenEquals WideningPolicy = iota
	// WidenOff never widens.
	WidenOff
)

// Options tune statement generation.
type Options struct {
	Merge    MergePolicy
	Toggle   TogglePolicy
	Widening WideningPolicy
	// NumericGroupBy renders GROUP BY as 1-based column ordinals.
	NumericGroupBy bool
}

// Generator builds SQL statements for types. It holds no per-call state and is
// safe for concurrent use.
type Generator struct {
	binder schema.Binder
	opts   Options
}

// New creates a Generator. A nil binder falls back to schema.KeyBinder.
func New(binder schema.Binder, opts Options) *Generator {
	if binder == nil {
		binder = schema.KeyBinder{}
	}
	return &Generator{binder: binder, opts: opts}
}

// Options returns the generator options.
func (g *Generator) Options() Options {
	return g.opts
}
