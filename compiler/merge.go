package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// LabelState is the canonical cache-state shape a branch or fall-through
// into a control block must produce.
type LabelState struct {
	state *CacheState
	// arity is the number of top-of-stack values live across the edge.
	arity int
	// initialised is false until the first predecessor reaches this label.
	initialised bool
}

// Height reports the label state's operand-stack height, including locals.
func (ls *LabelState) Height() int {
	if ls.state == nil {
		return 0
	}
	return ls.state.Height()
}

// InitMerge handles the first time a label is targeted: the current cache
// state is snapshotted into a template other
// predecessors must match. The top `arity` operand-stack slots are forced to
// Register or Stack (never Constant, so later predecessors always have a
// deterministic target); every slot below stackBase, locals included, is
// forced to Stack so that later merges are simple structural comparisons.
// Slots between stackBase and the top `arity` keep their current location.
func (ls *LabelState) InitMerge(current *CacheState, arity int) {
	snap := current.Clone()
	ls.arity = arity

	belowArity := snap.stackBase
	top := len(snap.slots)
	for i := top - arity; i < top; i++ {
		if i < 0 {
			continue
		}
		v := snap.slots[i]
		if v.Kind == LocConstant {
			r := snap.alloc.GetUnused(classOf(v.Type), nil, snap.spillVictim)
			snap.em.LoadConstant(r, v.Const, classOf(v.Type))
			v.Kind = LocRegister
			v.Reg = r
			snap.alloc.Inc(r)
		}
	}
	// Force everything below the mergeable region to Stack so later merges
	// never have to reconcile register choices made for dead locals.
	for i := 0; i < belowArity && i < len(snap.slots); i++ {
		v := snap.slots[i]
		if v.OnRegister() {
			snap.em.Spill(snap.offsetOf(i), v.Reg, classOf(v.Type))
			snap.alloc.Dec(v.Reg)
			v.Kind = LocStack
			v.Reg = asm.NilRegister
		} else if v.OnConstant() {
			v.Kind = LocStack
			v.Const = 0
		}
	}

	ls.state = snap
	ls.initialised = true
}

// Split is used at block entry when no predecessor exists yet — the
// current state becomes the label state verbatim.
func (ls *LabelState) Split(current *CacheState) {
	ls.state = current.Clone()
	ls.arity = 0
	ls.initialised = true
}

// Steal is used at block exit when falling through — the current state is
// replaced with the label state wholesale, dropping
// any transient bookkeeping. The emitter will already have materialised
// values at the branches or fall-through arrival.
func (ls *LabelState) Steal() *CacheState {
	return ls.state.Clone()
}

// MergeInto reconciles current with an existing label state, emitting
// whatever register moves / spills / fills / loads
// are needed so that current matches ls.state exactly afterward. Spills are
// emitted first, then the register moves, then the constant loads and fills
// that write target registers, so no move reads a register already
// overwritten. current's slots are rewritten in place to the label state's
// shape; the rewrite exists purely to drive the correct emission at this
// branch site.
func (ls *LabelState) MergeInto(current *CacheState) {
	target := ls.state
	if len(current.slots) != len(target.slots) {
		internalError("merge: height mismatch (%d vs %d); decoder must guarantee matching heights at a control-flow join", len(current.slots), len(target.slots))
	}

	var moves []pendingMove
	var loads []func()

	for i := range current.slots {
		cur := current.slots[i]
		tgt := target.slots[i]
		if cur.Type != tgt.Type {
			internalError("merge: type mismatch at index %d (%s vs %s)", i, cur.Type, tgt.Type)
		}

		switch {
		case tgt.Kind == LocStack && cur.Kind == LocStack:
			// no-op

		case tgt.Kind == LocStack && cur.Kind != LocStack:
			if cur.Kind == LocRegister {
				current.em.Spill(current.offsetOf(i), cur.Reg, classOf(cur.Type))
				current.alloc.Dec(cur.Reg)
			} else { // LocConstant
				r := current.alloc.GetUnused(classOf(cur.Type), nil, current.spillVictim)
				current.em.LoadConstant(r, cur.Const, classOf(cur.Type))
				current.em.Spill(current.offsetOf(i), r, classOf(cur.Type))
			}

		case tgt.Kind == LocRegister && cur.Kind == LocRegister && cur.Reg == tgt.Reg:
			// no-op

		case tgt.Kind == LocRegister && cur.Kind == LocRegister:
			moves = append(moves, pendingMove{dst: tgt.Reg, src: cur.Reg, class: classOf(cur.Type)})

		case tgt.Kind == LocRegister && cur.Kind == LocConstant:
			reg, val, class := tgt.Reg, cur.Const, classOf(cur.Type)
			loads = append(loads, func() { current.em.LoadConstant(reg, val, class) })

		case tgt.Kind == LocRegister && cur.Kind == LocStack:
			reg, off, class := tgt.Reg, current.offsetOf(i), classOf(cur.Type)
			loads = append(loads, func() { current.em.Fill(reg, off, class) })

		case tgt.Kind == LocConstant && cur.Kind == LocConstant && cur.Const == tgt.Const:
			// no-op

		default:
			internalError("merge: unreachable target/current combination at index %d (target=%s current=%s); init-merge should have ruled this out", i, tgt.Kind, cur.Kind)
		}

		cur.Kind = tgt.Kind
		cur.Reg = tgt.Reg
		cur.Const = tgt.Const
	}

	emitMovesBreakingCycles(current.em, moves)
	for _, load := range loads {
		load()
	}
}

// pendingMove is a register move still awaiting emission while the merge
// resolves a potential cycle.
type pendingMove struct {
	dst, src asm.Register
	class    RegisterClass
}

// emitMovesBreakingCycles resolves the register-move graph implied by moves,
// which may contain cycles (e.g. r1←r2, r2←r1). It performs the acyclic
// portion first, then breaks any remaining cycles using a scratch register,
// one cycle at a time.
func emitMovesBreakingCycles(em Emitter, moves []pendingMove) {
	if len(moves) == 0 {
		return
	}

	// pending[r] = the move that writes r; consumed as moves complete.
	pending := make(map[asm.Register]pendingMove, len(moves))
	order := make([]asm.Register, 0, len(moves))
	for _, m := range moves {
		if _, dup := pending[m.dst]; !dup {
			order = append(order, m.dst)
		}
		pending[m.dst] = m
	}

	progress := true
	for progress {
		progress = false
		for _, dst := range order {
			m, ok := pending[dst]
			if !ok {
				continue
			}
			if m.src == dst {
				delete(pending, dst)
				progress = true
				continue
			}
			// Safe to emit now if nothing else still needs to read dst's
			// current value (i.e. dst is not itself a pending source that
			// some other still-pending move depends on reading first), and
			// m.src is not itself awaiting an incoming move that would be
			// clobbered by acting now... the simple sufficient condition:
			// dst is not the source of any other still-pending move.
			usedAsSourceElsewhere := false
			for _, other := range order {
				if other == dst {
					continue
				}
				if om, ok := pending[other]; ok && om.src == dst {
					usedAsSourceElsewhere = true
					break
				}
			}
			if usedAsSourceElsewhere {
				continue
			}
			em.Move(dst, m.src, m.class)
			delete(pending, dst)
			progress = true
		}
	}

	// Whatever remains is one or more genuine cycles. Borrowing a register
	// from the cycle itself would clobber a still-needed value, so each cycle
	// is broken with the dedicated scratch register: save the value of the
	// register that starts the cycle into it, then walk the chain.
	for len(pending) > 0 {
		var start asm.Register
		for r := range pending {
			start = r
			break
		}
		class := pending[start].class

		// scratch temporarily holds start's original value while the
		// chain shifts into place.
		scratch := cycleScratchRegister(class)
		em.Move(scratch, start, class)

		cur := start
		for {
			m := pending[cur]
			delete(pending, cur)
			if m.src == start {
				em.Move(cur, scratch, class)
				break
			}
			em.Move(cur, m.src, class)
			cur = m.src
		}
	}
}

// cycleScratchRegister returns the fixed scratch register used to break a
// register-move cycle, one per class. These registers are reserved outside
// the cache lists, so they are safe to clobber here without any cache-state
// bookkeeping.
func cycleScratchRegister(class RegisterClass) asm.Register {
	if class == FP {
		return scratchFPRegister
	}
	return scratchGPRegister
}

// These are overridable by the concrete backend wiring (see internal/asm/amd64)
// through SetScratchRegisters; they default to NilRegister+1/+2 placeholders
// so unit tests that never hit a merge cycle don't need to configure them.
var (
	scratchGPRegister asm.Register = asm.NilRegister + 1
	scratchFPRegister asm.Register = asm.NilRegister + 2
)

// SetScratchRegisters configures the two non-cache scratch registers used to
// break register-move cycles during a merge. A concrete Emitter backend
// must call this once, at construction, with registers outside both cache
// lists.
func SetScratchRegisters(gp, fp asm.Register) {
	scratchGPRegister = gp
	scratchFPRegister = fp
}
