package dialect

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

// listMarker prefixes placeholders that expand into an IN list.
const listMarker = "__in__"

var listComparison = regexp.MustCompile(`(?i)(lower\([\w.]+\)|[\w.]+)\s*(=|<>)\s*(any|all)\(\s*:(\w+)\s*\)`)

// listLen returns the length of a list value, or -1 for scalars. Byte slices
// are scalars.
func listLen(value any) int {
	if value == nil {
		return -1
	}
	if _, ok := value.([]byte); ok {
		return -1
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len()
	}
	return -1
}

// expandLists rewrites = any(:x) and <> all(:x) into IN lists for dialects
// without array binding. Comparisons against an empty list become constant.
func expandLists(sql string, values map[string]any) string {
	return listComparison.ReplaceAllStringFunc(sql, func(match string) string {
		groups := listComparison.FindStringSubmatch(match)
		operand, negate, name := groups[1], groups[2] == "<>", groups[4]
		switch n := listLen(values[name]); {
		case n < 0:
			return operand + " " + groups[2] + " :" + name
		case n == 0 && negate:
			return "1 = 1"
		case n == 0:
			return "1 = 0"
		case negate:
			return operand + " not in (:" + listMarker + name + ")"
		default:
			return operand + " in (:" + listMarker + name + ")"
		}
	})
}

// Bind turns the named placeholders of sql into d's positional form and
// returns the values in placeholder order. Missing values bind as NULL. Lists
// bind as one array parameter when d supports arrays and expand into IN lists
// otherwise.
func Bind(d Dialect, sql string, values map[string]any) (string, []any, error) {
	if !d.HasArraySupport() {
		sql = expandLists(sql, values)
	}

	var (
		sb   strings.Builder
		args []any
		last int
	)
	for _, ph := range sqlgen.Placeholders(sql) {
		sb.WriteString(sql[last:ph.Start])
		last = ph.End

		if name, ok := strings.CutPrefix(ph.Name, listMarker); ok {
			rv := reflect.ValueOf(values[name])
			for i := 0; i < rv.Len(); i++ {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString("?")
				args = append(args, rv.Index(i).Interface())
			}
			continue
		}

		value := values[ph.Name]
		sb.WriteString("?")
		switch n := listLen(value); {
		case n < 0:
			args = append(args, value)
		case d.HasArraySupport():
			args = append(args, d.Array(value))
		case n == 0:
			args = append(args, nil)
		default:
			// Outside an IN list only the nullness of a list is observable.
			args = append(args, reflect.ValueOf(value).Index(0).Interface())
		}
	}
	sb.WriteString(sql[last:])

	positional, err := d.Placeholder().ReplacePlaceholders(sb.String())
	if err != nil {
		return "", nil, fmt.Errorf("failed to bind placeholders: %w", err)
	}
	return positional, args, nil
}
