//go:build !loxunion

package vm

import "math"

// Value is a NaN-boxed runtime value.
//
// Any bit pattern that is not a quiet NaN with the qnan prefix is a float64.
// The remaining patterns encode the singletons and object handles:
//   - Nil, False, True: qnan | 1, 2, 3
//   - Object: signBit | qnan | handle
type Value uint64

const (
	signBit uint64 = 0x8000000000000000
	qnan    uint64 = 0x7ffc000000000000

	tagNil   uint64 = 1
	tagFalse uint64 = 2
	tagTrue  uint64 = 3

	// canonicalNaN is the bit pattern every NaN number is folded into so
	// that arithmetic results never collide with the tagged encodings.
	canonicalNaN uint64 = 0x7ff8000000000000
)

const (
	Nil   Value = Value(qnan | tagNil)
	False Value = Value(qnan | tagFalse)
	True  Value = Value(qnan | tagTrue)
)

// NumberValue boxes a float64.
func NumberValue(f float64) Value {
	if f != f {
		return Value(canonicalNaN)
	}
	return Value(math.Float64bits(f))
}

// BoolValue boxes a bool.
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// ObjectValue boxes a heap handle.
func ObjectValue(h Handle) Value {
	return Value(signBit | qnan | uint64(h))
}

func (v Value) IsNumber() bool { return uint64(v)&qnan != qnan }
func (v Value) IsNil() bool    { return v == Nil }
func (v Value) IsBool() bool   { return v|1 == True }
func (v Value) IsObject() bool { return uint64(v)&(qnan|signBit) == qnan|signBit }

func (v Value) AsNumber() float64 { return math.Float64frombits(uint64(v)) }
func (v Value) AsBool() bool      { return v == True }

// AsHandle returns the object handle of an object value.
func (v Value) AsHandle() Handle {
	return Handle(uint64(v) &^ (signBit | qnan))
}

// ValuesEqual compares numbers by value and everything else by bit pattern.
func ValuesEqual(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() == b.AsNumber()
	}
	return a == b
}
