package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// blockState tags a control block's position in its lifecycle state machine.
type blockState byte

const (
	blockOpen blockState = iota
	blockReached
	blockClosing
	blockBound
)

// ControlBlock is the control-flow coordinator's unit of bookkeeping: a
// label paired with the canonical cache-state shape (LabelState) that every
// edge into it must produce.
//
// ControlBlocks are owned by the per-compilation arena in Compiler.blocks;
// BlockEntry hands the caller a pointer to the new block for later
// Br/BrIf/BlockExit calls. The label itself is an asm.Label handle, not an
// address, so labels never need a platform-stable address on their own
// account.
type ControlBlock struct {
	Label  asm.Label
	IsLoop bool
	Arity  int

	LabelState LabelState

	state  blockState
	reached bool
	bound   bool
}

// Compiler.blocks is a per-compilation arena of ControlBlocks; see
// Compiler.BlockEntry/BlockExit/Br/FallthruTo below for the control-flow
// operations.

// BlockEntry handles entry into a block or loop. For a loop, the label is
// bound immediately (loops branch backwards) and locals are spilled first so
// that the backward branch always finds them on the stack. For a plain
// block, the label state starts uninitialised and is filled in by the first
// branch or by the fall-through/end path.
func (c *Compiler) BlockEntry(isLoop bool, arity int) *ControlBlock {
	cb := &ControlBlock{IsLoop: isLoop, Arity: arity}
	cb.Label = c.em.NewLabel()
	cb.LabelState.state = nil

	current := c.cache
	current.SetStackBase(current.Height())

	if isLoop {
		current.SpillLocals()
		c.em.Bind(cb.Label)
		cb.bound = true
		cb.state = blockBound
		cb.LabelState.Split(current)
	} else {
		cb.state = blockOpen
	}

	c.blocks = append(c.blocks, cb)
	return cb
}

// FallthruTo handles falling through into a block's label: if the label has
// already been reached by a forward branch, merge the current state into
// the existing label state; otherwise the current state becomes the label
// state via Split.
func (c *Compiler) FallthruTo(cb *ControlBlock) {
	if cb.reached {
		cb.LabelState.MergeInto(c.cache)
	} else {
		cb.LabelState.Split(c.cache)
	}
}

// BlockExit handles reaching the end of a block or loop. For a plain block
// reached by a forward branch, every incoming edge (the branches, via Br,
// and the final fall-through, via FallthruTo) has already been merged into
// the label state, so the live cache state is replaced wholesale by it
// (Steal) — they are, by construction, meant to be identical.
//
// A loop's label sits at its start, not its end: branches that reached it
// are backward edges to the top of the loop, entirely unrelated to what is
// live when the loop's body falls through past its own end. Stealing the
// label state there would incorrectly replace the real, live post-loop
// state with the loop's entry snapshot, so loops never steal here.
//
// If the label is still unbound — no branch ever targeted it and no
// fall-through materialisation bound it — it is bound now so every label
// ends up bound before the function ends.
func (c *Compiler) BlockExit(cb *ControlBlock) {
	if cb.reached && !cb.IsLoop {
		c.cache = cb.LabelState.Steal()
	}
	if !cb.bound {
		c.em.Bind(cb.Label)
		cb.bound = true
	}
	cb.state = blockBound
}

// Br handles an unconditional branch to target: if the target's merge has
// not been initialised yet, InitMerge seeds it from the current state;
// either way, the current state is then reconciled into the target's label
// state and an unconditional jump is emitted.
func (c *Compiler) Br(target *ControlBlock) {
	if c.failed {
		return
	}
	if !target.LabelState.initialised {
		target.LabelState.InitMerge(c.cache, target.Arity)
	} else {
		target.LabelState.MergeInto(c.cache)
	}
	target.reached = true
	if target.state == blockOpen {
		target.state = blockReached
	}
	c.em.Jmp(target.Label)
}

// BrIf handles a conditional branch: pop a GP value, emit a jump-if-zero
// over the branch, and perform the same merge Br does when the branch is
// taken.
//
// The merge instructions Br emits (spills/fills/moves reconciling the live
// state into the target's shape) are physically reachable only when the
// branch is taken — they sit between the jump-if-zero and the jump to
// target, so the not-taken path skips straight over them. But
// MergeInto mutates its CacheState argument's slots in place to reflect
// the post-merge shape, regardless of whether that shape will ever be
// physically true. Without correcting for this, the not-taken path would
// silently inherit the branch-taken path's register/stack bookkeeping.
// Cloning the state beforehand and restoring it after Br keeps the
// fall-through continuation describing what is actually still true when no
// branch was taken.
//
// The merge also drives Inc/Dec/Reset calls against the shared allocator's
// use-count table, which Clone does not copy (every CacheState clone shares
// one allocator by design, so simultaneous snapshots of the same point stay
// consistent with each other). Those count changes are just as conditional
// on the branch being taken as the cache-state shape is, so the use-count
// table is snapshotted and restored the same way.
func (c *Compiler) BrIf(target *ControlBlock) {
	if c.failed {
		return
	}
	cond := c.cache.PopToRegister(GP, nil)
	skip := c.em.NewLabel()
	c.em.JumpIfZero(cond, skip)

	fallthroughState := c.cache.Clone()
	savedCounts := c.alloc.snapshotCounts()
	c.Br(target)
	c.cache = fallthroughState
	c.alloc.restoreCounts(savedCounts)

	c.em.Bind(skip)
}

// UnboundLabelSweep binds every still-unbound control block's label on
// bailout, so every label ends up bound even though no further code will
// execute past this point.
func (c *Compiler) UnboundLabelSweep() {
	for _, cb := range c.blocks {
		if !cb.bound {
			c.em.Bind(cb.Label)
			cb.bound = true
		}
	}
}
