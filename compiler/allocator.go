package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// RegisterAllocator tracks which cache registers are currently in use and
// picks spill victims on pressure.
//
// It holds no reference to the cache state; CacheState owns one allocator
// and passes itself in whenever a spill needs to walk the stack. The split
// keeps the cache-register list and use-count bookkeeping unit testable on
// their own, separate from the free/steal search logic that walks the
// operand stack.
type RegisterAllocator struct {
	gpCacheList []asm.Register
	fpCacheList []asm.Register

	// useCount[r] is the number of cache-state slots currently referencing
	// register r.
	useCount map[asm.Register]int
}

// NewRegisterAllocator builds an allocator over the given cache register
// lists. The lists are the subset of architecture registers the baseline is
// permitted to allocate; registers outside these lists are never handed out.
func NewRegisterAllocator(gpCacheList, fpCacheList []asm.Register) *RegisterAllocator {
	return &RegisterAllocator{
		gpCacheList: gpCacheList,
		fpCacheList: fpCacheList,
		useCount:    make(map[asm.Register]int),
	}
}

func (a *RegisterAllocator) cacheList(class RegisterClass) []asm.Register {
	if class == FP {
		return a.fpCacheList
	}
	return a.gpCacheList
}

// UseCount returns the current use-count of r.
func (a *RegisterAllocator) UseCount(r asm.Register) int {
	return a.useCount[r]
}

// Inc increments r's use-count; called whenever a new VarState references r.
func (a *RegisterAllocator) Inc(r asm.Register) {
	a.useCount[r]++
}

// Dec decrements r's use-count; called whenever a VarState stops
// referencing r (removed from the stack, or spilled).
func (a *RegisterAllocator) Dec(r asm.Register) {
	if a.useCount[r] <= 0 {
		internalError("register %d use-count decremented below zero", r)
	}
	a.useCount[r]--
}

// Reset forces r's use-count to zero, used when Spill releases every slot
// referencing r in one step.
func (a *RegisterAllocator) Reset(r asm.Register) {
	a.useCount[r] = 0
}

// snapshotCounts returns an independent copy of the current use-count
// table, for callers that need to undo a sequence of Inc/Dec/Reset calls
// whose effects turn out not to be physically real on every path (a
// conditional branch's merge, for instance).
func (a *RegisterAllocator) snapshotCounts() map[asm.Register]int {
	cp := make(map[asm.Register]int, len(a.useCount))
	for r, n := range a.useCount {
		cp[r] = n
	}
	return cp
}

// restoreCounts replaces the use-count table wholesale with a previously
// captured snapshot.
func (a *RegisterAllocator) restoreCounts(saved map[asm.Register]int) {
	a.useCount = saved
}

func isPinned(pinned []asm.Register, r asm.Register) bool {
	for _, p := range pinned {
		if p == r {
			return true
		}
	}
	return false
}

// HasFree reports whether an unpinned cache register of class is available
// without spilling.
func (a *RegisterAllocator) HasFree(class RegisterClass, pinned []asm.Register) bool {
	for _, r := range a.cacheList(class) {
		if a.useCount[r] == 0 && !isPinned(pinned, r) {
			return true
		}
	}
	return false
}

// GetUnused returns a cache register of class not in pinned: if a free
// register exists it is returned; otherwise a victim already in use is
// chosen, spilled by the caller (via spillVictim, which must release every
// slot referencing the victim and report it unused here), and returned.
//
// pinned must never cover the entire cache list for class; that is a
// compiler bug the caller is responsible for avoiding.
func (a *RegisterAllocator) GetUnused(class RegisterClass, pinned []asm.Register, spillVictim func(asm.Register)) asm.Register {
	list := a.cacheList(class)

	for _, r := range list {
		if a.useCount[r] == 0 && !isPinned(pinned, r) {
			return r
		}
	}

	// No free register: pick the lowest-index unpinned cache register as
	// victim (deterministic policy, see DESIGN.md Open Question #2) and have
	// the caller spill every slot referencing it.
	for _, r := range list {
		if !isPinned(pinned, r) {
			spillVictim(r)
			if a.useCount[r] != 0 {
				internalError("spillVictim did not release register %d", r)
			}
			return r
		}
	}

	internalError("GetUnused(%s): all %d cache registers pinned", class, len(list))
	return asm.NilRegister
}
