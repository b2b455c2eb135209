package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// binOpFn is one of the Emitter's dst ← lhs OP rhs primitives.
type binOpFn func(em Emitter, dst, lhs, rhs asm.Register)

// binaryOp pops RHS into a register (pinning none), pops LHS into a
// register (pinning RHS), obtains a target register via GetBinaryOpTarget
// (pinning both operand regs), emits the machine op, and pushes the target.
func (c *Compiler) binaryOp(t ValueType, op binOpFn) {
	if c.failed {
		return
	}
	class := classOf(t)

	rhs := c.cache.PopToRegister(class, nil)
	lhs := c.cache.PopToRegister(class, []asm.Register{rhs})
	target := c.cache.GetBinaryOpTarget(class, rhs, lhs)

	op(c.em, target, lhs, rhs)

	c.cache.PushRegister(t, target)
	c.checkStackSizeLimit()
}

// I32Add, I32Sub, I32Mul, I32And, I32Or, I32Xor implement the integer
// binops i32.add/sub/mul/and/or/xor.
func (c *Compiler) I32Add() { c.binaryOp(I32, func(em Emitter, d, l, r asm.Register) { em.I32Add(d, l, r) }) }
func (c *Compiler) I32Sub() { c.binaryOp(I32, func(em Emitter, d, l, r asm.Register) { em.I32Sub(d, l, r) }) }
func (c *Compiler) I32Mul() { c.binaryOp(I32, func(em Emitter, d, l, r asm.Register) { em.I32Mul(d, l, r) }) }
func (c *Compiler) I32And() { c.binaryOp(I32, func(em Emitter, d, l, r asm.Register) { em.I32And(d, l, r) }) }
func (c *Compiler) I32Or() { c.binaryOp(I32, func(em Emitter, d, l, r asm.Register) { em.I32Or(d, l, r) }) }
func (c *Compiler) I32Xor() { c.binaryOp(I32, func(em Emitter, d, l, r asm.Register) { em.I32Xor(d, l, r) }) }

// F32Add, F32Sub, F32Mul implement the floating-point binops
// f32.add/sub/mul.
func (c *Compiler) F32Add() { c.binaryOp(F32, func(em Emitter, d, l, r asm.Register) { em.F32Add(d, l, r) }) }
func (c *Compiler) F32Sub() { c.binaryOp(F32, func(em Emitter, d, l, r asm.Register) { em.F32Sub(d, l, r) }) }
func (c *Compiler) F32Mul() { c.binaryOp(F32, func(em Emitter, d, l, r asm.Register) { em.F32Mul(d, l, r) }) }
