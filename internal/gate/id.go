package gate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseID converts a decoded JSON value into a suggestion id. Only
// non-negative integers are accepted; strings, fractions, booleans and
// out-of-range numbers fail with a *ValidationError.
func ParseID(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, &ValidationError{Field: "id", Reason: "is required"}
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, &ValidationError{Field: "id", Reason: "must be an integer"}
		}
		if v < 0 {
			return 0, &ValidationError{Field: "id", Reason: "must not be negative"}
		}
		if v > float64(1<<53) {
			return 0, &ValidationError{Field: "id", Reason: "is out of range"}
		}
		return int64(v), nil
	case json.Number:
		return parseNumber(string(v))
	case int:
		return checkSigned(int64(v))
	case int32:
		return checkSigned(int64(v))
	case int64:
		return checkSigned(v)
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, &ValidationError{Field: "id", Reason: "is out of range"}
		}
		return int64(v), nil
	default:
		return 0, &ValidationError{Field: "id", Reason: "must be an integer"}
	}
}

func parseNumber(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return checkSigned(n)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{Field: "id", Reason: "must be an integer"}
	}
	return ParseID(f)
}

func checkSigned(n int64) (int64, error) {
	if n < 0 {
		return 0, &ValidationError{Field: "id", Reason: "must not be negative"}
	}
	return n, nil
}
