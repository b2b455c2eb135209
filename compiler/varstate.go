package compiler

import (
	"fmt"

	"github.com/wazerobaseline/compilercore/internal/asm"
)

// LocationKind tags which of the three storage forms a VarState currently
// occupies.
type LocationKind byte

const (
	// LocRegister: the value is resident in machine register Reg.
	LocRegister LocationKind = iota
	// LocConstant: the value is a compile-time integer constant Const.
	// Floating-point constants are never represented this way; they are
	// materialised eagerly into a register.
	LocConstant
	// LocStack: the value is spilled to this slot's physical stack offset.
	LocStack
)

func (k LocationKind) String() string {
	switch k {
	case LocRegister:
		return "register"
	case LocConstant:
		return "constant"
	case LocStack:
		return "stack"
	default:
		return fmt.Sprintf("LocationKind(%d)", byte(k))
	}
}

// VarState is the fundamental unit of the cache state: a virtual-stack
// slot that is either a local or an operand-stack entry, holding a value
// type and a location.
type VarState struct {
	Type ValueType
	Kind LocationKind

	// Reg is valid when Kind == LocRegister.
	Reg asm.Register
	// Const is valid when Kind == LocConstant.
	Const uint64

	// index is this slot's position in the owning CacheState, used to derive
	// its physical spill offset as a pure function of index alone. Set by
	// CacheState whenever a slot is placed or moved.
	index int
}

// Index reports this slot's position in the owning cache state.
func (v *VarState) Index() int { return v.index }

// OnRegister reports whether the slot is currently register-resident.
func (v *VarState) OnRegister() bool { return v.Kind == LocRegister }

// OnConstant reports whether the slot currently holds a compile-time constant.
func (v *VarState) OnConstant() bool { return v.Kind == LocConstant }

// OnStack reports whether the slot is currently spilled.
func (v *VarState) OnStack() bool { return v.Kind == LocStack }

// Class reports the register class this slot's value belongs to.
func (v *VarState) Class() RegisterClass { return classOf(v.Type) }

func (v *VarState) String() string {
	switch v.Kind {
	case LocRegister:
		return fmt.Sprintf("{%s @reg(%d)}", v.Type, v.Reg)
	case LocConstant:
		return fmt.Sprintf("{%s @const(%d)}", v.Type, v.Const)
	default:
		return fmt.Sprintf("{%s @stack(%d)}", v.Type, v.index)
	}
}

// clone returns an independent copy of v; CacheState.Clone relies on this to
// avoid any aliasing between a live cache state and a label-state snapshot.
func (v *VarState) clone() *VarState {
	cp := *v
	return &cp
}
