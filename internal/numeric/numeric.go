// Package numeric is the single coercion point for money and rate values.
// Storage and upstream payloads hand us floats, numeric strings, and
// arbitrary-precision decimal wrappers interchangeably; everything funnels
// through Normalize before any arithmetic. No other package inspects a
// value's runtime shape.
package numeric

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Float64er matches wrapper types exposing a zero-argument to-number
// conversion, e.g. decimal.Decimal's InexactFloat64.
type Float64er interface {
	InexactFloat64() float64
}

// Normalize coerces v to a finite float64. Missing, non-numeric, and
// non-finite inputs normalize to 0. It never panics: a dirty value degrades
// to an understated figure instead of failing the whole statement.
func Normalize(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case decimal.Decimal:
		return finite(n.InexactFloat64())
	case *decimal.Decimal:
		if n == nil {
			return 0
		}
		return finite(n.InexactFloat64())
	case decimal.NullDecimal:
		if !n.Valid {
			return 0
		}
		return finite(n.Decimal.InexactFloat64())
	case Float64er:
		return finite(n.InexactFloat64())
	case string:
		return parseString(n)
	default:
		return 0
	}
}

func parseString(s string) float64 {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
