package ir

import (
	"fmt"
	"math"

	"irlib/internal/ilist"
	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

type constKind uint8

const (
	constUndef constKind = iota
	constInt
	constFloat
	constNull
	constArray
)

// Constant is a Value variant for compile-time-known values: undef, an
// integer, a float, a null pointer, or a byte array. Constants are always
// obtained from a Context (ConstUndef/ConstInt/ConstFloat/...), never
// constructed directly, so that interning holds.
type Constant struct {
	vType *types.Type
	uses  ilist.List

	kind     constKind
	intVal   uint64
	floatVal float64
	bytes    []byte // constArray of i8: the string's bytes plus a trailing NUL.
}

// ---------------------
// ----- Functions -----
// ---------------------

func (c *Constant) Kind() Kind           { return KindConstant }
func (c *Constant) Name() string         { return c.String() }
func (c *Constant) SetName(string)       { panic("ir: constants are interned and cannot be renamed") }
func (c *Constant) Type() *types.Type    { return c.vType }
func (c *Constant) usesHead() *ilist.List { return &c.uses }

// IsUndef reports whether c is the undef constant of its type.
func (c *Constant) IsUndef() bool { return c.kind == constUndef }

// IsInt reports whether c is an integer constant.
func (c *Constant) IsInt() bool { return c.kind == constInt }

// IsFloat reports whether c is a float constant.
func (c *Constant) IsFloat() bool { return c.kind == constFloat }

// IsNull reports whether c is the null pointer constant of its type.
func (c *Constant) IsNull() bool { return c.kind == constNull }

// IsArray reports whether c is a constant byte array (currently only
// produced by ConstString).
func (c *Constant) IsArray() bool { return c.kind == constArray }

// Bytes returns c's raw bytes; it panics unless c.IsArray().
func (c *Constant) Bytes() []byte {
	if c.kind != constArray {
		panic("ir: Bytes on non-array constant")
	}
	return c.bytes
}

// IntValue returns c's raw bit pattern; it panics unless c.IsInt().
func (c *Constant) IntValue() uint64 {
	if c.kind != constInt {
		panic("ir: IntValue on non-integer constant")
	}
	return c.intVal
}

// SignedValue returns c's value sign-extended from its type's bit width.
func (c *Constant) SignedValue() int64 {
	if c.kind != constInt {
		panic("ir: SignedValue on non-integer constant")
	}
	width := c.vType.BitWidth()
	shift := 64 - width
	return int64(c.intVal<<uint(shift)) >> uint(shift)
}

// FloatValue returns c's value; it panics unless c.IsFloat().
func (c *Constant) FloatValue() float64 {
	if c.kind != constFloat {
		panic("ir: FloatValue on non-float constant")
	}
	return c.floatVal
}

// String returns the textual IR spelling of c, without its type suffix.
func (c *Constant) String() string {
	switch c.kind {
	case constUndef:
		return "undef"
	case constNull:
		return "null"
	case constInt:
		if c.vType.Kind() == types.I1 {
			if c.intVal != 0 {
				return "true"
			}
			return "false"
		}
		return fmt.Sprintf("%d", c.SignedValue())
	case constFloat:
		if math.IsInf(c.floatVal, 0) || math.IsNaN(c.floatVal) {
			return fmt.Sprintf("0x%x", math.Float64bits(c.floatVal))
		}
		return fmt.Sprintf("%g", c.floatVal)
	case constArray:
		return fmt.Sprintf("%q", c.bytes)
	}
	return "<invalid constant>"
}
