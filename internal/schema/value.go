package schema

import (
	"bytes"
	"math"
	"reflect"
)

// Normalize converts a scanned driver value to the canonical Go type of the
// column: int64 for integer and boolean, float64 for real, string for text,
// []byte for blob. nil stays nil. Values that do not fit are returned as-is.
func (c Column) Normalize(v any) any {
	if v == nil {
		return nil
	}
	switch c.Type {
	case TypeText:
		switch x := v.(type) {
		case []byte:
			return string(x)
		}
	case TypeBlob:
		switch x := v.(type) {
		case string:
			return []byte(x)
		}
	case TypeInteger, TypeBoolean:
		switch x := v.(type) {
		case bool:
			if x {
				return int64(1)
			}
			return int64(0)
		case int:
			return int64(x)
		case int32:
			return int64(x)
		case float64:
			if x == math.Trunc(x) {
				return int64(x)
			}
		}
	case TypeReal:
		switch x := v.(type) {
		case int64:
			return float64(x)
		case int:
			return float64(x)
		}
	}
	return v
}

// Equal compares two normalized values. NULL equals only NULL; integers and
// floats compare numerically.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return x == y
		case int64:
			return x == float64(y)
		}
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case []byte:
			return x == string(y)
		}
	case []byte:
		switch y := b.(type) {
		case []byte:
			return bytes.Equal(x, y)
		case string:
			return string(x) == y
		}
	}
	return reflect.DeepEqual(a, b)
}
