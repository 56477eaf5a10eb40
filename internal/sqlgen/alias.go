package sqlgen

import (
	"fmt"
	"strconv"

	"github.com/mvp-joe/typedsql/internal/schema"
)

// maxAliasSuffix bounds the numeric suffixes tried for one short name.
const maxAliasSuffix = 100

// Aliases maps each type of a statement to a unique SQL alias.
type Aliases struct {
	names   map[*schema.Type]string
	holders map[string]*schema.Type
}

// AllocateAliases derives short aliases from the table names of types, in the
// order given. The first type with a short name gets it bare; when a second
// one arrives the first becomes name1 and the second name2, later ones take
// the first free suffix from 3 upward.
func AllocateAliases(types []*schema.Type) (*Aliases, error) {
	a := &Aliases{
		names:   make(map[*schema.Type]string, len(types)),
		holders: make(map[string]*schema.Type, len(types)),
	}
	for _, t := range types {
		if _, ok := a.names[t]; ok {
			continue
		}
		short := schema.ShortName(schema.TableName(t))
		if short == "" {
			short = "t"
		}

		switch {
		case a.taken(short + "1"):
			name, err := a.scan(short, 3)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", err, short)
			}
			a.assign(t, name)
		case a.taken(short):
			holder := a.holders[short]
			delete(a.holders, short)
			a.assign(holder, short+"1")
			second := short + "2"
			if a.taken(second) {
				name, err := a.scan(short, 3)
				if err != nil {
					return nil, fmt.Errorf("%w: %s", err, short)
				}
				second = name
			}
			a.assign(t, second)
		default:
			a.assign(t, short)
		}
	}
	return a, nil
}

func (a *Aliases) taken(name string) bool {
	_, ok := a.holders[name]
	return ok
}

func (a *Aliases) assign(t *schema.Type, name string) {
	a.names[t] = name
	a.holders[name] = t
}

func (a *Aliases) scan(short string, from int) (string, error) {
	for i := from; i < maxAliasSuffix; i++ {
		candidate := short + strconv.Itoa(i)
		if !a.taken(candidate) {
			return candidate, nil
		}
	}
	return "", ErrTooManyBindings
}

// Of returns the alias of t, or "" if t was not part of the allocation.
func (a *Aliases) Of(t *schema.Type) string {
	return a.names[t]
}

// Map returns a copy of the alias assignment keyed by type id.
func (a *Aliases) Map() map[string]string {
	out := make(map[string]string, len(a.names))
	for t, name := range a.names {
		out[t.String()] = name
	}
	return out
}
