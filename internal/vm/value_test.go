package vm

import (
	"math"
	"testing"
)

func TestValueKinds(t *testing.T) {
	tests := []struct {
		name                        string
		v                           Value
		isNil, isBool, isNum, isObj bool
	}{
		{"nil", Nil, true, false, false, false},
		{"true", True, false, true, false, false},
		{"false", False, false, true, false, false},
		{"zero", NumberValue(0), false, false, true, false},
		{"negative zero", NumberValue(math.Copysign(0, -1)), false, false, true, false},
		{"nan", NumberValue(math.NaN()), false, false, true, false},
		{"inf", NumberValue(math.Inf(-1)), false, false, true, false},
		{"object", ObjectValue(42), false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.IsNil() != tt.isNil || tt.v.IsBool() != tt.isBool ||
				tt.v.IsNumber() != tt.isNum || tt.v.IsObject() != tt.isObj {
				t.Fatalf("kinds = nil:%v bool:%v number:%v object:%v",
					tt.v.IsNil(), tt.v.IsBool(), tt.v.IsNumber(), tt.v.IsObject())
			}
		})
	}
}

func TestValueRoundTrip(t *testing.T) {
	for _, f := range []float64{0, 1, -2.5, 1e300, math.MaxFloat64, math.SmallestNonzeroFloat64} {
		if got := NumberValue(f).AsNumber(); got != f {
			t.Fatalf("NumberValue(%v).AsNumber() = %v", f, got)
		}
	}
	if !BoolValue(true).AsBool() || BoolValue(false).AsBool() {
		t.Fatal("bool round trip failed")
	}
	for _, h := range []Handle{1, 7, 1 << 20, math.MaxUint32} {
		if got := ObjectValue(h).AsHandle(); got != h {
			t.Fatalf("ObjectValue(%d).AsHandle() = %d", h, got)
		}
	}
}

func TestValuesEqual(t *testing.T) {
	nan := NumberValue(math.NaN())
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same number", NumberValue(3), NumberValue(3), true},
		{"different numbers", NumberValue(3), NumberValue(4), false},
		{"signed zeros", NumberValue(0), NumberValue(math.Copysign(0, -1)), true},
		{"nan", nan, nan, false},
		{"nil", Nil, Nil, true},
		{"nil and false", Nil, False, false},
		{"bools", True, BoolValue(true), true},
		{"zero and false", NumberValue(0), False, false},
		{"same handle", ObjectValue(5), ObjectValue(5), true},
		{"different handles", ObjectValue(5), ObjectValue(6), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValuesEqual(tt.a, tt.b); got != tt.want {
				t.Fatalf("ValuesEqual = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFalsey(t *testing.T) {
	if !IsFalsey(Nil) || !IsFalsey(False) {
		t.Fatal("nil and false must be falsey")
	}
	for _, v := range []Value{True, NumberValue(0), NumberValue(math.NaN()), ObjectValue(1)} {
		if IsFalsey(v) {
			t.Fatalf("%v is falsey", v)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{7, "7"},
		{2.5, "2.5"},
		{-0.125, "-0.125"},
		{1.0 / 3, "0.333333"},
		{100000, "100000"},
		{1e21, "1e+21"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
		{math.NaN(), "nan"},
		{math.Copysign(math.NaN(), -1), "nan"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Fatalf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
