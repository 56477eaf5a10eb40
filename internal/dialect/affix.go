package dialect

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"
)

var tableToken = regexp.MustCompile(`~(\w+)`)

// Affix qualifies the tables matching one of its patterns, e.g. with a schema
// prefix or a tenant suffix. An affix without patterns matches every table.
type Affix struct {
	Prefix string   `mapstructure:"prefix" yaml:"prefix"`
	Suffix string   `mapstructure:"suffix" yaml:"suffix"`
	Tables []string `mapstructure:"tables" yaml:"tables"`
}

type compiledAffix struct {
	Affix
	globs []glob.Glob
}

func (a compiledAffix) matches(table string) bool {
	if len(a.globs) == 0 {
		return true
	}
	for _, g := range a.globs {
		if g.Match(table) {
			return true
		}
	}
	return false
}

// Affixes resolves ~table tokens in generated SQL.
type Affixes struct {
	entries []compiledAffix
}

// CompileAffixes compiles the table patterns of each affix. The first affix
// that matches a table wins.
func CompileAffixes(affixes []Affix) (*Affixes, error) {
	compiled := &Affixes{}
	for _, a := range affixes {
		entry := compiledAffix{Affix: a}
		for _, pattern := range a.Tables {
			g, err := glob.Compile(pattern, '.')
			if err != nil {
				return nil, fmt.Errorf("invalid affix table pattern %q: %w", pattern, err)
			}
			entry.globs = append(entry.globs, g)
		}
		compiled.entries = append(compiled.entries, entry)
	}
	return compiled, nil
}

// Table returns the physical name of table.
func (a *Affixes) Table(table string) string {
	if a != nil {
		for _, e := range a.entries {
			if e.matches(table) {
				return e.Prefix + table + e.Suffix
			}
		}
	}
	return table
}

// Apply replaces every ~table token in sql. A nil receiver strips the tokens.
func (a *Affixes) Apply(sql string) string {
	return tableToken.ReplaceAllStringFunc(sql, func(token string) string {
		return a.Table(token[1:])
	})
}
