package compiler

// Drop pops and discards the top of the operand stack.
func (c *Compiler) Drop() {
	if c.failed {
		return
	}
	c.cache.DropTop()
	c.checkStackSizeLimit()
}

// Return pops the result (if any) into a fixed return register and emits
// the epilogue. resultCount is the function's result arity: 0 for no return
// value, 1 for a single value in resultType. The baseline has no wire-format
// for returning more than one value on a fixed pair of return registers, so
// anything above 1 bails out rather than silently dropping values.
func (c *Compiler) Return(resultCount int, resultType ValueType) {
	if c.failed {
		return
	}
	if resultCount > 1 {
		c.bailout(BailoutMultiValueReturn)
		return
	}
	if resultCount == 1 {
		class := classOf(resultType)
		r := c.cache.PopToRegister(class, nil)
		c.em.MoveToReturnRegister(r, class)
	}
	c.em.LeaveFrame()
	c.em.Ret()
}

// UnsupportedOpcode is the opcode-translator entry point for any decoded
// instruction outside the baseline's supported subset: calls, memory ops,
// SIMD, threads, atomics, and anything else not in the translator's opcode
// set. The decoder is expected to dispatch straight here for every opcode
// it does not recognize as one of the translator's other entry points,
// rather than the translator needing to enumerate them.
func (c *Compiler) UnsupportedOpcode() {
	if c.failed {
		return
	}
	c.bailout(BailoutUnsupportedOpcode)
}

// BranchUnconditional is the opcode-translator entry point for `br`,
// delegating to the control-flow coordinator's Br (control.go).
func (c *Compiler) BranchUnconditional(target *ControlBlock) {
	c.Br(target)
}

// BranchIf is the opcode-translator entry point for `br_if` (pops a GP
// value, emits a jump-if-zero over the branch), delegating to the
// control-flow coordinator's BrIf.
func (c *Compiler) BranchIf(target *ControlBlock) {
	c.BrIf(target)
}
