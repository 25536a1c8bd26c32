package model

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

//////
// Helper functions.
//////

// NormalCDF computes the cumulative distribution function of the standard
// normal distribution.
//
// Returns:
// - Probability that a standard normal random variable is less than x.
func NormalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// NormalPDF computes the probability density function of the standard
// normal distribution.
//
// Returns:
// - Value of the standard normal PDF at x.
func NormalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}

// NormalQuantile is the inverse of NormalCDF. p must be in (0, 1).
func NormalQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// Clamp limits v to the inclusive range [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToFloat converts any Go numeric scalar to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toInt converts a numeric scalar holding an integral value to int.
func toInt(v any) (int, bool) {
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// scalarEqual compares two decoded scalars. Numbers compare by value
// regardless of their Go type, since a choice declared as int comes back
// from JSON as float64.
func scalarEqual(a, b any) bool {
	fa, aok := ToFloat(a)
	fb, bok := ToFloat(b)
	if aok && bok {
		return fa == fb
	}
	if aok != bok {
		return false
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

// isScalar tells whether v can be used as a choice option.
func isScalar(v any) bool {
	if _, ok := ToFloat(v); ok {
		return true
	}
	switch v.(type) {
	case string, bool, nil:
		return true
	default:
		return false
	}
}
