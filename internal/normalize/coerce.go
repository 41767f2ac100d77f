package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knoguchi/freightquote/internal/quote"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Lenient accessors over untyped record fields. Missing or uncoercible
// values yield the zero value.

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := toString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstFloat(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if f, err := cast.ToFloat64E(v); err == nil && f != 0 {
				return f
			}
		}
	}
	return 0
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if n, err := cast.ToIntE(v); err == nil && n != 0 {
				return n
			}
		}
	}
	return 0
}

func firstBool(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if b, err := cast.ToBoolE(v); err == nil && b {
				return true
			}
		}
	}
	return false
}

// firstDecimal returns the first non-zero amount among keys.
func firstDecimal(m map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		if d, ok := toDecimal(m[k]); ok && !d.IsZero() {
			return d, true
		}
	}
	return decimal.Zero, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	default:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(n), true
	}
}

// dig walks nested objects by key.
func dig(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

func digMap(m map[string]any, path ...string) map[string]any {
	obj, _ := dig(m, path...).(map[string]any)
	return obj
}

func digString(m map[string]any, path ...string) string {
	return toString(dig(m, path...))
}

// decodeJSON accepts an already-decoded value or a JSON-encoded string.
// Absent values return (nil, nil); undecodable strings return
// quote.ErrMalformedRecord.
func decodeJSON(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", quote.ErrMalformedRecord, err)
	}
	return out, nil
}
