package compiler

import "fmt"

// ValueType is the closed enumeration of WebAssembly value types the cache
// state can hold. I32 and F32 are fully supported by the baseline. I64 is
// supported read-only, as a 64-bit general-purpose register value, solely
// for global.get: the baseline has no i64 arithmetic, so it still bails out
// the moment an i64 would need anything beyond loading and holding it. F64
// is unsupported outright and bails out wherever it would need to be pushed
// onto the cache state.
type ValueType byte

const (
	I32 ValueType = iota
	I64
	F32
	F64
)

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("ValueType(%d)", byte(t))
	}
}

// RegisterClass partitions the machine's cache registers. Every ValueType
// maps to exactly one class.
type RegisterClass byte

const (
	// GP is the general-purpose integer register class.
	GP RegisterClass = iota
	// FP is the floating-point register class.
	FP
)

func (c RegisterClass) String() string {
	if c == FP {
		return "fp"
	}
	return "gp"
}

// classOf returns the register class that holds values of type t. I64 maps
// to GP since global.get is allowed to load one; the translator must still
// bail out before asking for a class for any type genuinely unsupported
// (F64, or I64 anywhere but that read-only path).
func classOf(t ValueType) RegisterClass {
	switch t {
	case I32, I64:
		return GP
	case F32:
		return FP
	default:
		panic(fmt.Sprintf("compiler bug: classOf called with unsupported type %s", t))
	}
}

// MaxStackHeight bounds the operand stack (locals + operand-stack slots).
// Exceeding it is a bailout, never an internal error.
const MaxStackHeight = 8192
