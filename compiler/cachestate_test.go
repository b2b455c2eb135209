package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazerobaseline/compilercore/internal/asm"
)

func newTestCacheState(numLocals int) (*CacheState, *RegisterAllocator, *fakeEmitter) {
	alloc := newTestAllocator()
	em := newFakeEmitter()
	cache := NewCacheState(numLocals, alloc, em)
	for i := 0; i < numLocals; i++ {
		cache.initLocal(I32, LocConstant, asm.NilRegister, 0)
	}
	return cache, alloc, em
}

func TestCacheState_PushPopRegister(t *testing.T) {
	cache, alloc, _ := newTestCacheState(0)
	r := fakeGPCacheList[0]
	cache.PushRegister(I32, r)
	require.Equal(t, 1, cache.Height())
	require.Equal(t, 1, alloc.UseCount(r))

	got := cache.PopToRegister(GP, nil)
	require.Equal(t, r, got)
	require.Equal(t, 0, alloc.UseCount(r))
	require.Equal(t, 0, cache.Height())
}

func TestCacheState_PopConstantMaterialises(t *testing.T) {
	cache, _, em := newTestCacheState(0)
	cache.PushConstant(I32, 42)
	r := cache.PopToRegister(GP, nil)
	require.Equal(t, 1, em.countOps("LoadConstant"))
	require.Equal(t, fakeGPCacheList[0], r)
}

func TestCacheState_DropTopReleasesRegister(t *testing.T) {
	cache, alloc, _ := newTestCacheState(0)
	r := fakeGPCacheList[0]
	cache.PushRegister(I32, r)
	cache.DropTop()
	require.Equal(t, 0, alloc.UseCount(r))
	require.Equal(t, 0, cache.Height())
}

func TestCacheState_SpillLocalsIsIdempotent(t *testing.T) {
	alloc := newTestAllocator()
	em := newFakeEmitter()
	cache := NewCacheState(2, alloc, em)
	cache.initLocal(I32, LocRegister, fakeGPCacheList[0], 0)
	alloc.Inc(fakeGPCacheList[0])
	cache.initLocal(I32, LocConstant, asm.NilRegister, 7)

	cache.SpillLocals()
	require.Equal(t, 2, em.countOps("Spill"))
	require.True(t, cache.Local(0).OnStack())
	require.True(t, cache.Local(1).OnStack())

	em.ops = nil
	cache.SpillLocals()
	require.Equal(t, 0, em.countOps("Spill"), "second call finds nothing left to spill")
}

func TestCacheState_GetBinaryOpTargetReclaimsRHS(t *testing.T) {
	cache, alloc, _ := newTestCacheState(0)
	lhs := fakeGPCacheList[0]
	rhs := fakeGPCacheList[1]
	alloc.Inc(lhs)
	alloc.Inc(rhs)
	// Simulate the operands having just been popped off the stack: their
	// sole reference is the one the caller is about to reuse.
	alloc.Dec(lhs)
	alloc.Dec(rhs)

	target := cache.GetBinaryOpTarget(GP, rhs, lhs)
	require.Equal(t, rhs, target, "rhs is reclaimed first when both are free")
}

func TestCacheState_GetBinaryOpTargetFallsBackToLHS(t *testing.T) {
	cache, alloc, _ := newTestCacheState(0)
	lhs := fakeGPCacheList[0]
	rhs := fakeGPCacheList[1]
	alloc.Inc(lhs)
	alloc.Inc(rhs)
	alloc.Inc(rhs) // rhs still referenced elsewhere, not reclaimable
	alloc.Dec(lhs)

	target := cache.GetBinaryOpTarget(GP, rhs, lhs)
	require.Equal(t, lhs, target)
}

func TestCacheState_CloneIsIndependent(t *testing.T) {
	cache, alloc, _ := newTestCacheState(0)
	r := fakeGPCacheList[0]
	cache.PushRegister(I32, r)

	clone := cache.Clone()
	clone.DropTop()

	require.Equal(t, 1, cache.Height(), "original's slot list unaffected by clone mutation")
	require.Equal(t, 0, clone.Height())
	require.Equal(t, 0, alloc.UseCount(r), "allocator is shared, so clone's drop still releases it")
}

func TestCacheState_HeightCeilTracksHighWaterMark(t *testing.T) {
	cache, _, _ := newTestCacheState(0)
	cache.PushConstant(I32, 1)
	cache.PushConstant(I32, 2)
	require.Equal(t, 2, cache.HeightCeil())
	cache.DropTop()
	require.Equal(t, 2, cache.HeightCeil(), "ceil is a high-water mark, not current height")
	require.Equal(t, 1, cache.Height())
}
