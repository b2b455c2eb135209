package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// Emitter is the narrow, architecture-neutral interface the core requires
// from a concrete code generator. The core never emits machine code itself;
// every side effect on the instruction stream goes through this capability.
// Selection of a concrete Emitter is static per build — the core treats it
// as a constructor parameter, not a base class.
type Emitter interface {
	// NewLabel allocates a fresh, unbound jump target.
	NewLabel() asm.Label
	// Bind marks the current emit position as the destination of label.
	// A label must be bound at most once.
	Bind(label asm.Label)
	// Jmp emits an unconditional jump to label.
	Jmp(label asm.Label)
	// JumpIfZero pops no operand; it emits a test-and-branch over reg,
	// jumping to label when reg holds zero.
	JumpIfZero(reg asm.Register, label asm.Label)

	// EnterFrame emits the function prologue (excluding stack-space
	// reservation, which is a separate call once the frame size is known).
	EnterFrame()
	// ReserveStackSpace reserves physical stack space for the given number
	// of spill slots.
	ReserveStackSpace(slots int)
	// LeaveFrame emits the function epilogue counterpart to EnterFrame.
	LeaveFrame()
	// Ret emits a return instruction.
	Ret()

	// Move emits dst ← src within the same register class.
	Move(dst, src asm.Register, class RegisterClass)
	// LoadConstant emits reg ← value, materialising an integer or
	// bit-pattern constant into reg.
	LoadConstant(reg asm.Register, value uint64, class RegisterClass)

	// Load emits reg ← [baseReg + offset], reading size bytes (1, 2, 4 or 8).
	Load(reg, baseReg asm.Register, offset int32, size int, class RegisterClass)
	// Store emits [baseReg + offset] ← reg, writing size bytes.
	Store(baseReg asm.Register, offset int32, reg asm.Register, size int, class RegisterClass)

	// Spill emits a store of reg to this function's physical spill frame
	// at the given slot offset.
	Spill(offset int32, reg asm.Register, class RegisterClass)
	// Fill emits a load from the spill frame at the given slot offset into reg.
	Fill(reg asm.Register, offset int32, class RegisterClass)

	// LoadFromContext emits reg ← [contextBase + offset], reading size
	// bytes from the thread-local module/runtime context (used for the
	// globals-base pointer).
	LoadFromContext(reg asm.Register, offset int32, size int)
	// SpillContext emits the counterpart store: [contextBase + offset] ←
	// reg, writing the thread-local context register itself back to its
	// fixed context slot (used when the context register is needed as a
	// scratch general-purpose register across a call and must be
	// rematerialised afterwards).
	SpillContext(reg asm.Register)

	// LoadCallerFrameSlot emits reg ← the slotIndex'th argument the caller
	// passed on the stack, above this function's own frame. Used for
	// parameters beyond what fits in the fixed set of argument registers.
	LoadCallerFrameSlot(reg asm.Register, slotIndex int)

	// MoveToReturnRegister emits a move of reg into the fixed return
	// location for its class.
	MoveToReturnRegister(reg asm.Register, class RegisterClass)

	// I32Add, I32Sub, ... emit dst ← lhs OP rhs for the supported integer
	// binops.
	I32Add(dst, lhs, rhs asm.Register)
	I32Sub(dst, lhs, rhs asm.Register)
	I32Mul(dst, lhs, rhs asm.Register)
	I32And(dst, lhs, rhs asm.Register)
	I32Or(dst, lhs, rhs asm.Register)
	I32Xor(dst, lhs, rhs asm.Register)

	// F32Add, F32Sub, F32Mul emit dst ← lhs OP rhs for the float binops.
	F32Add(dst, lhs, rhs asm.Register)
	F32Sub(dst, lhs, rhs asm.Register)
	F32Mul(dst, lhs, rhs asm.Register)

	// Assemble finalises the instruction stream into a machine-code buffer.
	// Every label must have been bound before this is called.
	Assemble() ([]byte, error)
}
