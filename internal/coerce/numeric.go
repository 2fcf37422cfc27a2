package coerce

import (
	"math"
	"strconv"
	"strings"

	"etlcore/internal/schema"

	"github.com/shopspring/decimal"
)

// Integer bounds per column type, matching the SQL Server storage sizes.
var intRange = map[schema.ColumnType][2]int64{
	schema.SmallInteger: {math.MinInt16, math.MaxInt16},
	schema.Integer:      {math.MinInt32, math.MaxInt32},
	schema.BigInteger:   {math.MinInt64, math.MaxInt64},
}

// numericConverter returns the per-value conversion for a numeric column type.
func numericConverter(t schema.ColumnType) converter {
	switch {
	case t.IsInteger():
		bounds := intRange[t]
		return func(v any) (any, error) {
			n, err := toInt64(v)
			if err != nil || n == nil {
				return nil, err
			}
			if i := n.(int64); i < bounds[0] || i > bounds[1] {
				return nil, errBadValue
			}
			return n, nil
		}
	case t == schema.Decimal:
		return toDecimal
	default:
		return toFloat64
	}
}

// toInt64 accepts integral values only: "3", "3.0", 3.0. Fractions are rejected.
func toInt64(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return parseInt(x)
	case []byte:
		return parseInt(string(x))
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case decimal.Decimal:
		return decimalToInt64(x)
	default:
		if isKnownValue(v) {
			return nil, errBadValue
		}
		return nil, errUnsupportedKind
	}
}

func parseInt(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errBadValue
	}
	return decimalToInt64(d)
}

func uintToInt64(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, errBadValue
	}
	return int64(u), nil
}

func floatToInt64(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, errBadValue
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, errBadValue
	}
	return int64(f), nil
}

func decimalToInt64(d decimal.Decimal) (any, error) {
	if !d.IsInteger() {
		return nil, errBadValue
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return nil, errBadValue
	}
	return bi.Int64(), nil
}

func toDecimal(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return x, nil
	case string:
		return parseDecimal(x)
	case []byte:
		return parseDecimal(string(x))
	case float32:
		return floatToDecimal(float64(x))
	case float64:
		return floatToDecimal(x)
	case bool:
		if x {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	}
	n, err := toInt64(v)
	if err != nil || n == nil {
		return nil, err
	}
	return decimal.NewFromInt(n.(int64)), nil
}

func parseDecimal(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errBadValue
	}
	return d, nil
}

func floatToDecimal(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errBadValue
	}
	return decimal.NewFromFloat(f), nil
}

func toFloat64(v any) (any, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case decimal.Decimal:
		f = x.InexactFloat64()
	case string, []byte:
		s := strings.TrimSpace(asString(x))
		if s == "" {
			return nil, nil
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, errBadValue
		}
	default:
		n, err := toInt64(v)
		if err != nil || n == nil {
			return nil, err
		}
		f = float64(n.(int64))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errBadValue
	}
	return f, nil
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}
