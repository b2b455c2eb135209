package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// CacheState is the symbolic model of a function's locals and operand
// stack: a value type with explicit clone semantics. The live compiler owns
// one, and every block/loop snapshot is an independent Clone(), never an
// alias.
type CacheState struct {
	slots []*VarState
	// numLocals is the height at which the operand stack begins at function
	// entry.
	numLocals int
	// stackBase is the current operand-stack base; equals numLocals at
	// function entry, but may be re-based to the enclosing height at a
	// nested block.
	stackBase int

	alloc *RegisterAllocator
	em    Emitter

	// heightCeil is the high-water mark of len(slots) across this cache
	// state's lifetime (SPEC_FULL.md supplemented feature #3).
	heightCeil int
}

// NewCacheState builds an empty cache state over numLocals locals, wired to
// the given allocator and emitter.
func NewCacheState(numLocals int, alloc *RegisterAllocator, em Emitter) *CacheState {
	return &CacheState{
		numLocals:  numLocals,
		stackBase:  numLocals,
		alloc:      alloc,
		em:         em,
		heightCeil: numLocals,
	}
}

// Height is the current number of slots (locals + live operand-stack
// entries).
func (c *CacheState) Height() int { return len(c.slots) }

// HeightCeil is the high-water mark of Height(), used to size the physical
// spill frame.
func (c *CacheState) HeightCeil() int { return c.heightCeil }

// NumLocals is the fixed count of local slots at the bottom of the stack.
func (c *CacheState) NumLocals() int { return c.numLocals }

// StackBase is the height at which the operand stack begins for the
// current block.
func (c *CacheState) StackBase() int { return c.stackBase }

// SetStackBase rebases the operand stack for a newly entered block.
func (c *CacheState) SetStackBase(base int) { c.stackBase = base }

// Local returns the slot for local index i.
func (c *CacheState) Local(i int) *VarState {
	if i < 0 || i >= c.numLocals {
		internalError("local index %d out of range [0, %d)", i, c.numLocals)
	}
	return c.slots[i]
}

// Slot returns the slot at absolute index i (locals and operand stack are
// a single indexed sequence).
func (c *CacheState) Slot(i int) *VarState {
	if i < 0 || i >= len(c.slots) {
		internalError("slot index %d out of range [0, %d)", i, len(c.slots))
	}
	return c.slots[i]
}

func (c *CacheState) offsetOf(index int) int32 {
	// Spill-slot offset is a pure function of index alone.
	return int32(index) * 8
}

// checkStackLimit catches pushes made after a stack-height bailout. The
// translator's checkStackSizeLimit runs after each push and bails out once
// the height passes MaxStackHeight, so the push that crosses the bound is
// legitimate; only a further push means an entry point ignored the bailout.
func (c *CacheState) checkStackLimit() {
	if len(c.slots) > MaxStackHeight+1 {
		internalError("operand stack height %d exceeds MaxStackHeight+1 (%d); no push may follow a stack-height bailout", len(c.slots), MaxStackHeight+1)
	}
}

func (c *CacheState) appendSlot(v *VarState) {
	v.index = len(c.slots)
	c.slots = append(c.slots, v)
	if len(c.slots) > c.heightCeil {
		c.heightCeil = len(c.slots)
	}
}

// initLocal places local index i directly, used only at function prologue
// construction (locals start at Stack or a materialised zero, never pushed
// through push_register/push_constant since they predate the operand
// stack).
func (c *CacheState) initLocal(t ValueType, kind LocationKind, reg asm.Register, constant uint64) {
	v := &VarState{Type: t, Kind: kind, Reg: reg, Const: constant}
	c.appendSlot(v)
}

// PushRegister appends a slot resident in register r.
func (c *CacheState) PushRegister(t ValueType, r asm.Register) *VarState {
	v := &VarState{Type: t, Kind: LocRegister, Reg: r}
	c.appendSlot(v)
	c.alloc.Inc(r)
	c.checkStackLimit()
	return v
}

// PushConstant appends a slot holding compile-time integer constant value.
// Non-integer constants must be pre-materialised via PushRegister.
func (c *CacheState) PushConstant(t ValueType, value uint64) *VarState {
	if t == F32 || t == F64 {
		internalError("PushConstant called with float type %s; float constants must be materialised to a register", t)
	}
	v := &VarState{Type: t, Kind: LocConstant, Const: value}
	c.appendSlot(v)
	c.checkStackLimit()
	return v
}

func (c *CacheState) popRaw() *VarState {
	n := len(c.slots)
	if n == 0 {
		internalError("pop from empty cache state")
	}
	v := c.slots[n-1]
	c.slots = c.slots[:n-1]
	return v
}

// Peek returns the top slot without removing it.
func (c *CacheState) Peek() *VarState {
	if len(c.slots) == 0 {
		internalError("peek on empty cache state")
	}
	return c.slots[len(c.slots)-1]
}

// DropTop pops and discards the top slot: if it is in a register, its use
// count is decremented; the slot is removed either way.
func (c *CacheState) DropTop() {
	v := c.popRaw()
	if v.OnRegister() {
		c.alloc.Dec(v.Reg)
	}
}

// PopToRegister pops the top slot and returns a register holding its value,
// materialising it from a constant or stack slot if necessary.
func (c *CacheState) PopToRegister(class RegisterClass, pinned []asm.Register) asm.Register {
	v := c.popRaw()
	switch v.Kind {
	case LocRegister:
		if classOf(v.Type) != class {
			internalError("pop_to_register: slot class %s does not match requested class %s", classOf(v.Type), class)
		}
		c.alloc.Dec(v.Reg)
		return v.Reg
	case LocConstant:
		// The returned register is bare (not referenced by any slot): the
		// caller now owns it directly, so use-count stays at zero.
		r := c.alloc.GetUnused(class, pinned, c.spillVictim)
		c.em.LoadConstant(r, v.Const, class)
		return r
	default: // LocStack
		r := c.alloc.GetUnused(class, pinned, c.spillVictim)
		c.em.Fill(r, c.offsetOf(v.index), class)
		return r
	}
}

// GetBinaryOpTarget is the two-address-friendly hook that tries to reclaim
// one of the two operand
// registers (rhs, then lhs) rather than allocating a fresh one, provided the
// popped operand's slot was the register's only reference (use count 0: the
// caller has already popped the operand off the stack, which released that
// reference, so no remaining slot refers to the register).
func (c *CacheState) GetBinaryOpTarget(class RegisterClass, rhsReg, lhsReg asm.Register) asm.Register {
	if rhsReg != asm.NilRegister && c.alloc.UseCount(rhsReg) == 0 {
		return rhsReg
	}
	if lhsReg != asm.NilRegister && c.alloc.UseCount(lhsReg) == 0 {
		return lhsReg
	}
	return c.alloc.GetUnused(class, []asm.Register{rhsReg, lhsReg}, c.spillVictim)
}

// spillVictim spills register r: every slot referencing r is stored to its
// physical offset, its location becomes LocStack, and r's use-count is
// reset to zero.
func (c *CacheState) spillVictim(r asm.Register) {
	for _, v := range c.slots {
		if v.OnRegister() && v.Reg == r {
			c.em.Spill(c.offsetOf(v.index), r, classOf(v.Type))
			v.Kind = LocStack
			v.Reg = asm.NilRegister
		}
	}
	c.alloc.Reset(r)
}

// SpillLocals stores every local slot whose location is a register or
// constant to its physical offset and marks it Stack. Idempotent: a second
// call finds nothing left to spill.
func (c *CacheState) SpillLocals() {
	for i := 0; i < c.numLocals; i++ {
		v := c.slots[i]
		switch v.Kind {
		case LocRegister:
			c.em.Spill(c.offsetOf(i), v.Reg, classOf(v.Type))
			c.alloc.Dec(v.Reg)
			v.Kind = LocStack
			v.Reg = asm.NilRegister
		case LocConstant:
			r := c.alloc.GetUnused(classOf(v.Type), nil, c.spillVictim)
			c.em.LoadConstant(r, v.Const, classOf(v.Type))
			c.em.Spill(c.offsetOf(i), r, classOf(v.Type))
			v.Kind = LocStack
			v.Const = 0
		case LocStack:
			// already spilled: no-op, preserves idempotence.
		}
	}
}

// Fill requests the emitter to load from the physical offset of slot index
// into reg, without touching cache-state
// bookkeeping (the caller updates the owning slot separately, e.g. local.set
// from a stack-resident source).
func (c *CacheState) Fill(reg asm.Register, index int) {
	v := c.slots[index]
	c.em.Fill(reg, c.offsetOf(index), classOf(v.Type))
}

// Clone returns an independent deep copy of the cache state, sharing the
// allocator and emitter (they are process-wide for this compilation) but
// never aliasing a VarState.
func (c *CacheState) Clone() *CacheState {
	cp := &CacheState{
		numLocals:  c.numLocals,
		stackBase:  c.stackBase,
		alloc:      c.alloc,
		em:         c.em,
		heightCeil: c.heightCeil,
		slots:      make([]*VarState, len(c.slots)),
	}
	for i, v := range c.slots {
		cp.slots[i] = v.clone()
	}
	return cp
}
