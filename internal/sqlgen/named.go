package sqlgen

import (
	"github.com/mvp-joe/typedsql/internal/schema"
)

// Placeholder is a named parameter reference inside SQL text.
type Placeholder struct {
	Name  string
	Start int // offset of the colon
	End   int // offset after the name
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// Placeholders finds :name references in sql, in order. Casts (::type),
// quoted literals and quoted identifiers are skipped.
func Placeholders(sql string) []Placeholder {
	var found []Placeholder
	for i := 0; i < len(sql); i++ {
		switch c := sql[i]; c {
		case '\'', '"':
			for i++; i < len(sql); i++ {
				if sql[i] == c {
					if i+1 < len(sql) && sql[i+1] == c {
						i++
						continue
					}
					break
				}
			}
		case ':':
			if i+1 < len(sql) && sql[i+1] == ':' {
				i++
				continue
			}
			if i > 0 && sql[i-1] == ':' {
				continue
			}
			end := i + 1
			for end < len(sql) && isWordByte(sql[end]) {
				end++
			}
			if end > i+1 {
				found = append(found, Placeholder{Name: sql[i+1 : end], Start: i, End: end})
				i = end - 1
			}
		}
	}
	return found
}

// Property is a typed value bound to dynamic SQL.
type Property struct {
	Key   string
	Value any
	Kind  schema.Kind
}

// Dynamic wraps caller supplied SQL. Its parameter document lists the named
// placeholders in order of first use, typed by the matching property or as
// strings.
func Dynamic(sql string, properties []Property) *Statement {
	byKey := make(map[string]Property, len(properties))
	for _, p := range properties {
		byKey[p.Key] = p
	}

	params := NewStructure("dynamic")
	values := Values{}
	for _, ph := range Placeholders(sql) {
		kind := schema.KindString
		if p, ok := byKey[ph.Name]; ok {
			if p.Kind != "" {
				kind = p.Kind
			}
			values[ph.Name] = p.Value
		} else {
			values[ph.Name] = nil
		}
		params.Add(Element{Name: ph.Name, Kind: kind, Optional: true})
	}
	return &Statement{Kind: KindRaw, SQL: sql, Parameters: params.Build(), Rows: []Values{values}}
}
