package datatype

import (
	"bytes"
	"cmp"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Compare orders two values. ok is false when either side is null or the
// kinds are not mutually ordered (string vs number, geometries, ...).
// Numbers of different kinds compare by numeric value.
func Compare(a, b Value) (c int, ok bool) {
	if IsNull(a) || IsNull(b) {
		return 0, false
	}
	if isNumber(a) && isNumber(b) {
		return compareNumbers(a, b)
	}
	switch x := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return strings.Compare(string(x), string(y)), true
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			return cmp.Compare(boolRank(bool(x)), boolRank(bool(y))), true
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			return bytes.Compare(x, y), true
		}
	case Time:
		if y, ok := b.(Time); ok {
			return x.Compare(y.Time), true
		}
	case List:
		if y, ok := b.(List); ok {
			return compareLists(x, y)
		}
	}
	return 0, false
}

// Equal reports whether two values are the same. Unlike Compare, two nulls are
// equal, and geometries compare structurally.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	if x, ok := a.(Geom); ok {
		y, ok := b.(Geom)
		return ok && x.Geometry.Equal(y.Geometry)
	}
	if x, ok := a.(List); ok {
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, UInt, Float, Num:
		return true
	}
	return false
}

func compareNumbers(a, b Value) (int, bool) {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Int); ok {
			return cmp.Compare(x, y), true
		}
	case UInt:
		if y, ok := b.(UInt); ok {
			return cmp.Compare(x, y), true
		}
	}
	_, af := a.(Float)
	_, bf := b.(Float)
	_, an := a.(Num)
	_, bn := b.(Num)
	if (af || bf) && !an && !bn {
		fa, fb := toFloat(a), toFloat(b)
		if math.IsNaN(fa) || math.IsNaN(fb) {
			return 0, false
		}
		return cmp.Compare(fa, fb), true
	}
	da, okA := toDecimal(a)
	db, okB := toDecimal(b)
	if !okA || !okB {
		return 0, false
	}
	return da.Cmp(db), true
}

func toFloat(v Value) float64 {
	switch x := v.(type) {
	case Int:
		return float64(x)
	case UInt:
		return float64(x)
	case Float:
		return float64(x)
	case Num:
		f, _ := x.Float64()
		return f
	}
	return math.NaN()
}

func toDecimal(v Value) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case Int:
		return decimal.NewFromInt(int64(x)), true
	case UInt:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(x)), 0), true
	case Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(f), true
	case Num:
		return x.Decimal, true
	}
	return decimal.Decimal{}, false
}

func compareLists(x, y List) (int, bool) {
	for i := 0; i < len(x) && i < len(y); i++ {
		c, ok := Compare(x[i], y[i])
		if !ok {
			return 0, false
		}
		if c != 0 {
			return c, true
		}
	}
	return cmp.Compare(len(x), len(y)), true
}
