// Package fuzz holds the fixed boundary-value datasets replayed by fuzz cases.
//
// A dataset is an immutable, ordered sequence of values keyed by a
// primitive type tag. The runner treats datasets as opaque: it asks for the
// length and replays each element through the case body in order.
package fuzz

import "math"

// Type tags the primitive type of a dataset.
type Type uint8

const (
	Int    Type = iota // int32 boundaries
	SizeT              // uint64 boundaries
	Float              // float32 boundaries and specials
	Byte               // int8 boundaries
	Custom             // caller-supplied values
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case SizeT:
		return "size_t"
	case Float:
		return "float"
	case Byte:
		return "byte"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Dataset is a fixed sequence of values.
type Dataset interface {
	Type() Type
	Len() int
	At(i int) any
}

type slice[E any] struct {
	typ  Type
	vals []E
}

func (s slice[E]) Type() Type   { return s.typ }
func (s slice[E]) Len() int     { return len(s.vals) }
func (s slice[E]) At(i int) any { return s.vals[i] }

// Of builds a Custom dataset from vals. The slice is copied.
func Of[E any](vals ...E) Dataset {
	return slice[E]{typ: Custom, vals: append([]E(nil), vals...)}
}

// smallestNormal32 is the smallest positive normal float32.
const smallestNormal32 = 1.17549435e-38

var (
	intValues = []int32{
		math.MinInt32, math.MinInt32 + 1,
		-1, 0, 1,
		math.MaxInt32 - 1, math.MaxInt32,
	}

	sizeTValues = []uint64{
		0, 1,
		math.MaxUint64 / 2,
		math.MaxUint64 - 1,
		math.MaxUint64,
	}

	floatValues = []float32{
		float32(math.Inf(-1)),
		-math.MaxFloat32,
		-1.0,
		float32(math.Copysign(0, -1)),
		0.0,
		1.0,
		math.MaxFloat32,
		float32(math.Inf(1)),
		float32(math.NaN()),
		smallestNormal32,
		-smallestNormal32,
	}

	byteValues = []int8{math.MinInt8, -1, 0, 1, math.MaxInt8}
)

// Values returns the built-in dataset for t, or nil for Custom and unknown tags.
func Values(t Type) Dataset {
	switch t {
	case Int:
		return slice[int32]{typ: Int, vals: intValues}
	case SizeT:
		return slice[uint64]{typ: SizeT, vals: sizeTValues}
	case Float:
		return slice[float32]{typ: Float, vals: floatValues}
	case Byte:
		return slice[int8]{typ: Byte, vals: byteValues}
	default:
		return nil
	}
}
