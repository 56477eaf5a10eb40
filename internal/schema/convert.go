package schema

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// ErrNotConvertible indicates a value that cannot be represented as a kind.
var ErrNotConvertible = errors.New("can not convert value")

// Convert coerces value to the Go representation of kind. Nil passes through.
func Convert(value any, kind Kind) (any, error) {
	if value == nil {
		return nil, nil
	}
	// drivers report textual columns as raw bytes
	if b, ok := value.([]byte); ok && kind != KindBytes && kind != KindUUID {
		value = string(b)
	}

	var (
		out any
		err error
	)
	switch kind {
	case KindString, "":
		out, err = cast.ToStringE(value)
	case KindInteger:
		out, err = cast.ToIntE(value)
	case KindLong:
		out, err = cast.ToInt64E(value)
	case KindFloat:
		out, err = cast.ToFloat32E(value)
	case KindDouble, KindDecimal:
		out, err = cast.ToFloat64E(value)
	case KindBoolean:
		out, err = cast.ToBoolE(value)
	case KindDate:
		out, err = cast.ToTimeE(value)
	case KindUUID:
		out, err = toUUID(value)
	case KindBytes:
		out, err = toBytes(value)
	default:
		err = fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %v (%T) to %s: %v", ErrNotConvertible, value, value, kind, err)
	}
	return out, nil
}

func toUUID(value any) (string, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v.String(), nil
	case []byte:
		if len(v) == 16 {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
		value = string(v)
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return "", err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func toBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unsupported type %T", value)
}
