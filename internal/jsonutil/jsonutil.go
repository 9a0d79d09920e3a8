// Package jsonutil provides shared utilities for JSON parsing patterns:
// error handling, type conversion, and loosely-shaped error bodies.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnmarshalWithContext decodes data into v, prefixing errors with context.
func UnmarshalWithContext(data []byte, v any, context string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

// DecodeObject decodes a JSON object. Bodies that are not an object (plain
// text from a proxy, an array, nothing at all) come back as {"raw": body}.
func DecodeObject(data []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil && m != nil {
		return m
	}
	return map[string]any{"raw": strings.TrimSpace(string(data))}
}

// FirstString returns the first non-empty string found under keys, in order.
// Numbers are formatted, so {"code": 400} yields "400".
func FirstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return ToString(v)
		}
	}
	return ""
}

// ToString renders a decoded JSON scalar as cell text. Whole numbers drop
// their decimal point and nil renders empty.
func ToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToFloat reports v as a float64 when it is numeric or a numeric string.
func ToFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
