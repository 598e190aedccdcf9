//go:build loxunion

package vm

type valueKind uint8

const (
	kindNil valueKind = iota
	kindBool
	kindNumber
	kindObject
)

// Value is a discriminated union. It is selected with the loxunion build tag
// and behaves exactly like the NaN-boxed encoding.
type Value struct {
	kind valueKind
	b    bool
	num  float64
	h    Handle
}

var (
	Nil   = Value{kind: kindNil}
	False = Value{kind: kindBool, b: false}
	True  = Value{kind: kindBool, b: true}
)

// NumberValue boxes a float64.
func NumberValue(f float64) Value { return Value{kind: kindNumber, num: f} }

// BoolValue boxes a bool.
func BoolValue(b bool) Value { return Value{kind: kindBool, b: b} }

// ObjectValue boxes a heap handle.
func ObjectValue(h Handle) Value { return Value{kind: kindObject, h: h} }

func (v Value) IsNumber() bool { return v.kind == kindNumber }
func (v Value) IsNil() bool    { return v.kind == kindNil }
func (v Value) IsBool() bool   { return v.kind == kindBool }
func (v Value) IsObject() bool { return v.kind == kindObject }

func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsBool() bool      { return v.b }
func (v Value) AsHandle() Handle  { return v.h }

// ValuesEqual requires matching kinds; numbers follow IEEE-754.
func ValuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case kindNil:
		return true
	case kindBool:
		return a.b == b.b
	case kindNumber:
		return a.num == b.num
	case kindObject:
		return a.h == b.h
	default:
		return false
	}
}
