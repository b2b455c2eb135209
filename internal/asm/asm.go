// Package asm defines the architecture-neutral vocabulary shared by every
// concrete Emitter backend: registers and jump labels.
//
// Concrete architectures live in their own subpackage (internal/asm/amd64,
// and so on); the compiler core never imports one directly, only this
// package plus the compiler.Emitter interface it is handed.
package asm

// Register represents an architecture-specific machine register. The zero
// value, NilRegister, means "no register."
type Register uint16

// NilRegister is the only architecture-independent register value.
const NilRegister Register = 0

// Label identifies a jump target in the emitted instruction stream. Labels
// are opaque handles; only the Emitter that created one knows how to bind
// or branch to it.
type Label uint32
