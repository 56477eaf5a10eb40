package dialect

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/mvp-joe/typedsql/internal/sqlgen"
)

const timestampLayout = "2006-01-02 15:04:05.999999999"

// quoter holds the dialect specific parts of literal rendering.
type quoter struct {
	text  func(string) string
	bytes func([]byte) string
	// list renders already rendered elements; nil when the dialect has no
	// array literals.
	list func([]string) string
}

func standardText(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func hexBytes(b []byte) string {
	return "X'" + hex.EncodeToString(b) + "'"
}

func (q quoter) literal(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return q.text(v), nil
	case []byte:
		return q.bytes(v), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case time.Time:
		return q.text(v.Format(timestampLayout)), nil
	case uuid.UUID:
		return q.text(v.String()), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "null", nil
		}
		return q.literal(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return cast.ToStringE(value)
	case reflect.String:
		return q.text(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if q.list == nil {
			return "", fmt.Errorf("%w: list %T", ErrNoLiteral, value)
		}
		elements := make([]string, rv.Len())
		for i := range elements {
			rendered, err := q.literal(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			elements[i] = rendered
		}
		return q.list(elements), nil
	}

	if s, ok := value.(fmt.Stringer); ok {
		return q.text(s.String()), nil
	}
	return "", fmt.Errorf("%w: %T", ErrNoLiteral, value)
}

// Inline replaces every named placeholder in sql with the literal of its
// value. Missing values render as null.
func Inline(d Dialect, sql string, values map[string]any) (string, error) {
	var (
		sb   strings.Builder
		last int
	)
	for _, ph := range sqlgen.Placeholders(sql) {
		sb.WriteString(sql[last:ph.Start])
		last = ph.End
		rendered, err := d.Literal(values[ph.Name])
		if err != nil {
			return "", fmt.Errorf("parameter %s: %w", ph.Name, err)
		}
		sb.WriteString(rendered)
	}
	sb.WriteString(sql[last:])
	return sb.String(), nil
}
