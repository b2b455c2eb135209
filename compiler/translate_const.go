package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// I32Const pushes an integer constant directly, without touching a register.
func (c *Compiler) I32Const(value int32) {
	if c.failed {
		return
	}
	c.cache.PushConstant(I32, uint64(uint32(value)))
	c.checkStackSizeLimit()
}

// F32Const materialises the constant into a register and pushes it.
// Floating-point constants are never represented symbolically: they are
// materialised eagerly and held in a register.
func (c *Compiler) F32Const(bits uint32) {
	if c.failed {
		return
	}
	r := c.alloc.GetUnused(FP, nil, c.cache.spillVictim)
	c.em.LoadConstant(r, uint64(bits), FP)
	c.cache.PushRegister(F32, r)
	c.checkStackSizeLimit()
}

// LocalGet reads local slot index: if register, pushes the same register
// and increments its use count; if constant, pushes the constant; if stack,
// allocates a register and emits a fill.
func (c *Compiler) LocalGet(index int) {
	if c.failed {
		return
	}
	src := c.cache.Local(index)
	switch src.Kind {
	case LocRegister:
		c.cache.PushRegister(src.Type, src.Reg)
	case LocConstant:
		c.cache.PushConstant(src.Type, src.Const)
	case LocStack:
		r := c.alloc.GetUnused(classOf(src.Type), nil, c.cache.spillVictim)
		c.cache.Fill(r, src.Index())
		c.cache.PushRegister(src.Type, r)
	}
	c.checkStackSizeLimit()
}

// localSetOrTee implements the shared body of local.set and local.tee.
// When keepOnStack is true this is local.tee; otherwise local.set.
func (c *Compiler) localSetOrTee(index int, keepOnStack bool) {
	if c.failed {
		return
	}
	src := c.cache.Peek()
	dst := c.cache.Local(index)

	switch src.Kind {
	case LocRegister:
		// src's register reference transfers straight to dst: remove src
		// from the stack without decrementing (no net use-count change),
		// release whatever dst held before, and point dst at the register.
		// keepOnStack (tee) re-pushes a fresh reference via PushRegister,
		// which increments the use count by exactly one: tee keeps the value
		// live on the stack in addition to the local.
		reg, typ := src.Reg, src.Type
		c.releaseLocalSlot(dst)
		c.cache.popRaw()
		dst.Kind = LocRegister
		dst.Reg = reg
		dst.Const = 0
		if keepOnStack {
			c.cache.PushRegister(typ, reg)
		}

	case LocConstant:
		val, typ := src.Const, src.Type
		c.releaseLocalSlot(dst)
		c.cache.popRaw()
		dst.Kind = LocConstant
		dst.Reg = asm.NilRegister
		dst.Const = val
		if keepOnStack {
			c.cache.PushConstant(typ, val)
		}

	case LocStack:
		idx, typ := src.Index(), src.Type
		var newReg asm.Register
		if dst.Kind == LocRegister && c.alloc.UseCount(dst.Reg) == 1 {
			// dst's register is held by no one else: fill straight into it.
			newReg = dst.Reg
			c.cache.Fill(newReg, idx)
		} else {
			c.releaseLocalSlot(dst)
			newReg = c.alloc.GetUnused(classOf(typ), nil, c.cache.spillVictim)
			c.cache.Fill(newReg, idx)
			dst.Kind = LocRegister
			dst.Reg = newReg
			dst.Const = 0
			c.alloc.Inc(newReg)
		}
		c.cache.popRaw()
		if keepOnStack {
			c.cache.PushRegister(dst.Type, newReg)
		}
	}
	c.checkStackSizeLimit()
}

// releaseLocalSlot drops dst's current reference (decrementing its
// register's use count, or no-op if it is already Stack/Constant) before
// dst is overwritten.
func (c *Compiler) releaseLocalSlot(dst *VarState) {
	if dst.OnRegister() {
		c.alloc.Dec(dst.Reg)
	}
}

// LocalSet implements local.set.
func (c *Compiler) LocalSet(index int) { c.localSetOrTee(index, false) }

// LocalTee implements local.tee.
func (c *Compiler) LocalTee(index int) { c.localSetOrTee(index, true) }
