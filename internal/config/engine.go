package config

import (
	"strings"

	"github.com/mvp-joe/typedsql/internal/dialect"
	"github.com/mvp-joe/typedsql/internal/engine"
	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// ToGeneratorOptions converts the generation policies to sqlgen options for d.
func (c *Config) ToGeneratorOptions(d dialect.Dialect) sqlgen.Options {
	opts := sqlgen.Options{NumericGroupBy: d.NumericGroupBy()}
	if strings.EqualFold(c.Generation.MergeGenerated, "include") {
		opts.Merge = sqlgen.MergeIncludeGenerated
	}
	if strings.EqualFold(c.Generation.TogglePolicy, "invert") {
		opts.Toggle = sqlgen.ToggleInvert
	}
	if strings.EqualFold(c.Generation.DefaultWidening, "off") {
		opts.Widening = sqlgen.WidenOff
	}
	return opts
}

// ToLimits converts the paging bounds to engine limits. Zero bounds are unset.
func (c *Config) ToLimits() engine.Limits {
	limits := engine.Limits{PageOffset: c.Paging.PageOffset}
	if c.Paging.MaxLimit > 0 {
		limits.MaxLimit = &c.Paging.MaxLimit
	}
	if c.Paging.MaxOffset > 0 {
		limits.MaxOffset = &c.Paging.MaxOffset
	}
	return limits
}

// DriverName returns the configured driver, or the dialect's own.
func (c *Config) DriverName(d dialect.Dialect) string {
	if c.Database.Driver != "" {
		return c.Database.Driver
	}
	return d.DriverName()
}
