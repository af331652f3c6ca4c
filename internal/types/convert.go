// Package types contains value conversion helpers shared across packages.
package types

import (
	"strconv"
	"strings"
)

// ToInt64 converts an interface{} to int64.
// Supports int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, and float64.
func ToInt64(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case int16:
		return int64(i)
	case int8:
		return int64(i)
	case uint:
		return int64(i)
	case uint64:
		return int64(i)
	case uint32:
		return int64(i)
	case uint16:
		return int64(i)
	case uint8:
		return int64(i)
	case float64:
		return int64(i)
	case float32:
		return int64(i)
	case []byte:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(i)), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(i), 10, 64)
		return n
	default:
		return 0
	}
}

var (
	truthyTokens = map[string]bool{"1": true, "true": true, "t": true, "yes": true, "y": true}
	falsyTokens  = map[string]bool{"0": true, "false": true, "f": true, "no": true, "n": true}
)

// CoerceBool converts a loosely typed source value into a boolean for a
// boolean-typed target column.
//
// NULL stays NULL, integers are true unless zero, text is matched
// case-insensitively against 1/true/t/yes/y and 0/false/f/no/n and otherwise
// parsed as an integer. Anything else is returned unchanged with ok=false so
// the insert can reject it instead of a guess being stored.
func CoerceBool(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case bool:
		return val, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return ToInt64(val) != 0, true
	case []byte:
		return coerceBoolText(string(val), v)
	case string:
		return coerceBoolText(val, v)
	default:
		return v, false
	}
}

func coerceBoolText(s string, original interface{}) (interface{}, bool) {
	token := strings.ToLower(strings.TrimSpace(s))
	if truthyTokens[token] {
		return true, true
	}
	if falsyTokens[token] {
		return false, true
	}
	// Known soft spot: any integer-looking text is accepted via integer truthiness.
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return n != 0, true
	}
	return original, false
}
