package compiler

import (
	"fmt"

	"github.com/wazerobaseline/compilercore/internal/asm"
)

// LocalKind describes how a declared local's initial value arrives.
type LocalKind byte

const (
	// LocalParam: the local is a function parameter, already resident
	// somewhere the caller placed it (a register in this baseline; any
	// other parameter-passing location is a bailout).
	LocalParam LocalKind = iota
	// LocalDeclared: the local is declared in the body and starts
	// zero-valued.
	LocalDeclared
)

// LocalSpec describes one function local (parameter or declared) as the
// decoder reports it.
type LocalSpec struct {
	Type ValueType
	Kind LocalKind
	// ParamReg is valid when Kind == LocalParam: the register the caller
	// placed this parameter's value in.
	ParamReg asm.Register
}

// Result describes the outcome of compiling one function body.
type Result struct {
	Code            []byte
	StackPointerCeil uint64
	OK              bool
	BailoutReason   BailoutReason
}

// Compiler is the per-function-body aggregate: each instance owns its own
// cache state, allocator, and emitter. It is not safe for concurrent use;
// callers compile each function body on its own Compiler instance, possibly
// on different goroutines, since no state is shared between instances.
type Compiler struct {
	em    Emitter
	alloc *RegisterAllocator
	cache *CacheState

	blocks []*ControlBlock

	// failed is the global error/bailout flag: once set, every translator
	// entry point short-circuits.
	failed bool
	reason BailoutReason

	numLocals int
}

// NewCompiler constructs a Compiler for one function body over the given
// locals, wired to em and the given cache register lists.
func NewCompiler(em Emitter, locals []LocalSpec, gpCacheList, fpCacheList []asm.Register) (*Compiler, error) {
	alloc := NewRegisterAllocator(gpCacheList, fpCacheList)
	cache := NewCacheState(len(locals), alloc, em)

	c := &Compiler{em: em, alloc: alloc, cache: cache, numLocals: len(locals)}

	// Every local still gets a slot even on bailout, keeping cache-state
	// indices aligned with the decoder's local indices; Result.OK=false
	// means the caller discards the emitted buffer regardless.
	for _, l := range locals {
		if l.Type == I64 || l.Type == F64 {
			c.bailout(BailoutUnsupportedValueType)
			cache.initLocal(I32, LocConstant, asm.NilRegister, 0)
			continue
		}
		switch l.Kind {
		case LocalParam:
			if l.ParamReg == asm.NilRegister {
				c.bailout(BailoutUnsupportedParamLocation)
				cache.initLocal(l.Type, LocConstant, asm.NilRegister, 0)
				continue
			}
			cache.initLocal(l.Type, LocRegister, l.ParamReg, 0)
			alloc.Inc(l.ParamReg)
		case LocalDeclared:
			if l.Type == F32 {
				// Per-local zero materialisation: each uninitialised f32
				// local gets its own zero-valued register up front, rather
				// than sharing one lazily-initialised zero register across
				// all f32 locals.
				r := alloc.GetUnused(FP, nil, cache.spillVictim)
				em.LoadConstant(r, 0, FP)
				cache.initLocal(l.Type, LocRegister, r, 0)
				alloc.Inc(r)
			} else {
				cache.initLocal(l.Type, LocConstant, asm.NilRegister, 0)
			}
		}
	}

	if c.failed {
		return c, fmt.Errorf("compiler: bailout during prologue: %s", c.reason)
	}
	return c, nil
}

// bailout sets the global failure flag the first time it is called; later
// calls are no-ops so the first (most specific) reason wins.
func (c *Compiler) bailout(reason BailoutReason) {
	if c.failed {
		return
	}
	c.failed = true
	c.reason = reason
}

// Failed reports whether compilation has bailed out.
func (c *Compiler) Failed() bool { return c.failed }

// CacheState exposes the live cache state, mainly for tests.
func (c *Compiler) CacheState() *CacheState { return c.cache }

// EnterFrame emits the function prologue. Must be called once, after
// NewCompiler and before the first opcode.
func (c *Compiler) EnterFrame() {
	c.em.EnterFrame()
}

// Finish completes compilation of the function body: if the compilation
// bailed out, every still-unbound label is bound (so every label ends up
// bound) and no further code is considered valid; the caller must discard
// the emitter's buffer. Otherwise ReserveStackSpace is called for
// HeightCeil() slots and the final buffer is assembled; the epilogue itself
// is emitted by Return, not here.
func (c *Compiler) Finish() (Result, error) {
	if c.failed {
		c.UnboundLabelSweep()
		return Result{OK: false, BailoutReason: c.reason}, nil
	}

	for _, cb := range c.blocks {
		if !cb.bound {
			internalError("control block for label %d unbound at function end", cb.Label)
		}
	}

	c.em.ReserveStackSpace(c.cache.HeightCeil())
	code, err := c.em.Assemble()
	if err != nil {
		return Result{OK: false}, err
	}
	return Result{Code: code, StackPointerCeil: uint64(c.cache.HeightCeil()), OK: true}, nil
}

// checkStackSizeLimit is called at the end of every opcode translation to
// check the operand stack has not exceeded MaxStackHeight. Exceeding it is
// a graceful bailout, not an error.
func (c *Compiler) checkStackSizeLimit() {
	if c.cache.Height() > MaxStackHeight {
		c.bailout(BailoutOversizedOperandStack)
	}
}
