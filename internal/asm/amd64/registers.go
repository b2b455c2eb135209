// Package amd64 provides the concrete amd64 Emitter backend: the cache
// register lists the baseline allocator is permitted to use, and a
// golang-asm-backed implementation of compiler.Emitter.
package amd64

import "github.com/wazerobaseline/compilercore/internal/asm"

// General-purpose and XMM register constants (REG_AX.. REG_X15).
const (
	REG_AX asm.Register = asm.NilRegister + 1 + iota
	REG_CX
	REG_DX
	REG_BX
	REG_SP
	REG_BP
	REG_SI
	REG_DI
	REG_R8
	REG_R9
	REG_R10
	REG_R11
	REG_R12
	REG_R13
	REG_R14
	REG_R15
	REG_X0
	REG_X1
	REG_X2
	REG_X3
	REG_X4
	REG_X5
	REG_X6
	REG_X7
	REG_X8
	REG_X9
	REG_X10
	REG_X11
	REG_X12
	REG_X13
	REG_X14
	REG_X15
)

// GPCacheList is the subset of general-purpose registers the baseline
// allocator may hand out. RSP and RBP are the stack/frame pointers, RAX is
// the fixed integer return register, R14 is the GP scratch register and R15
// is the context register, so all of these stay reserved; RDX is not in the
// list either.
var GPCacheList = []asm.Register{
	REG_CX, REG_BX, REG_SI, REG_DI,
	REG_R8, REG_R9, REG_R10, REG_R11, REG_R12, REG_R13,
}

// FPCacheList is the subset of XMM registers the baseline allocator may
// hand out. X0 is the fixed float return register and X15 is the scratch
// register used to break merge cycles, so both stay reserved.
var FPCacheList = []asm.Register{
	REG_X1, REG_X2, REG_X3, REG_X4, REG_X5, REG_X6, REG_X7,
	REG_X8, REG_X9, REG_X10, REG_X11, REG_X12, REG_X13, REG_X14,
}

// Reserved fixed-role registers, referenced by emitter.go.
const (
	ReturnRegisterGP = REG_AX
	ReturnRegisterFP = REG_X0

	ScratchRegisterGP = REG_R14
	ScratchRegisterFP = REG_X15

	ContextRegister = REG_R15
	StackPointerReg = REG_SP
)
