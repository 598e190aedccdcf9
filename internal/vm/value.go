// Package vm implements the Lox bytecode virtual machine: values, chunks,
// the handle-addressed object heap, the mark-and-sweep collector and the
// interpreter loop.
package vm

import (
	"math"
	"strconv"
)

// IsFalsey reports whether v is nil or false. Every other value, including
// 0 and the empty string, is truthy.
func IsFalsey(v Value) bool {
	return v.IsNil() || (v.IsBool() && !v.AsBool())
}

// formatNumber renders a number the way C's "%g" does, except that NaN
// always prints as "nan". The NaN-boxed encoding stores one canonical NaN and
// the union encoding keeps the sign bit, so dropping the sign here keeps both
// builds printing the same text.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}
