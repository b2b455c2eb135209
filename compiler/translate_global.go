package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// GlobalSpec describes a module global as the decoder reports it.
type GlobalSpec struct {
	Type ValueType
	// Offset is the byte offset of this global's value within the
	// per-instance globals region pointed to by the globals-base pointer.
	Offset int32
}

// globalSize returns 4 bytes for the 32-bit types this baseline supports on
// the write path, 8 for i64 (read only).
func globalSize(t ValueType) int {
	switch t {
	case I32, F32:
		return 4
	case I64, F64:
		return 8
	default:
		internalError("globalSize: unsupported type %s", t)
		return 0
	}
}

// contextGlobalsBaseOffset is the offset, within the thread-local runtime
// context, of the pointer to this instance's globals region. A concrete
// embedding configures this once; it defaults to zero so unit tests that
// fake the context layout can pick any convention.
var contextGlobalsBaseOffset int32

// SetContextGlobalsBaseOffset configures where GlobalGet/GlobalSet find the
// globals-base pointer in the thread-local context.
func SetContextGlobalsBaseOffset(offset int32) {
	contextGlobalsBaseOffset = offset
}

// GlobalGet loads the globals-base pointer from the thread-local context,
// then loads the value at global.offset.
//
// i64 globals may be read: the value lands in a GP cache-state slot exactly
// like an i32 one, just 8 bytes wide. The baseline has no i64 arithmetic, so
// such a value can only be consumed by something that doesn't need it (a
// drop, or an immediate return; an i64 local already makes NewCompiler bail
// out, so there is no i64 local to store it into) — any opcode
// that would need to compute on it is outside the supported subset and bails
// out on its own. F64 has no such carve-out and bails out here.
func (c *Compiler) GlobalGet(g GlobalSpec) {
	if c.failed {
		return
	}
	if g.Type == F64 {
		c.bailout(BailoutUnsupportedValueType)
		return
	}
	if globalSize(g.Type) > 8 {
		c.bailout(BailoutOversizedGlobal)
		return
	}

	class := classOf(g.Type)
	base := c.alloc.GetUnused(GP, nil, c.cache.spillVictim)
	c.em.LoadFromContext(base, contextGlobalsBaseOffset, 8)

	dst := base
	if class == FP {
		dst = c.alloc.GetUnused(FP, []asm.Register{base}, c.cache.spillVictim)
	}
	c.em.Load(dst, base, g.Offset, globalSize(g.Type), class)
	c.cache.PushRegister(g.Type, dst)
	c.checkStackSizeLimit()
}

// GlobalSet loads the globals-base pointer from the thread-local context,
// pops the value, and stores it at global.offset.
func (c *Compiler) GlobalSet(g GlobalSpec) {
	if c.failed {
		return
	}
	if g.Type != I32 && g.Type != F32 {
		c.bailout(BailoutUnsupportedValueType)
		return
	}

	class := classOf(g.Type)
	valueReg := c.cache.PopToRegister(class, nil)
	base := c.alloc.GetUnused(GP, []asm.Register{valueReg}, c.cache.spillVictim)
	c.em.LoadFromContext(base, contextGlobalsBaseOffset, 8)
	c.em.Store(base, g.Offset, valueReg, globalSize(g.Type), class)
	c.checkStackSizeLimit()
}
