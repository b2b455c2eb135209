package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazerobaseline/compilercore/internal/asm"
)

func TestRegisterAllocator_GetUnusedPicksFree(t *testing.T) {
	a := newTestAllocator()
	r := a.GetUnused(GP, nil, func(asm.Register) { t.Fatal("should not need to spill") })
	require.Equal(t, fakeGPCacheList[0], r)
	require.Equal(t, 0, a.UseCount(r))
}

func TestRegisterAllocator_GetUnusedSkipsPinned(t *testing.T) {
	a := newTestAllocator()
	r := a.GetUnused(GP, []asm.Register{fakeGPCacheList[0]}, func(asm.Register) { t.Fatal("no spill needed") })
	require.Equal(t, fakeGPCacheList[1], r)
}

func TestRegisterAllocator_IncDecRoundTrip(t *testing.T) {
	a := newTestAllocator()
	r := fakeGPCacheList[0]
	a.Inc(r)
	a.Inc(r)
	require.Equal(t, 2, a.UseCount(r))
	a.Dec(r)
	require.Equal(t, 1, a.UseCount(r))
}

func TestRegisterAllocator_DecBelowZeroPanics(t *testing.T) {
	a := newTestAllocator()
	require.Panics(t, func() { a.Dec(fakeGPCacheList[0]) })
}

func TestRegisterAllocator_GetUnusedSpillsWhenExhausted(t *testing.T) {
	a := newTestAllocator()
	for _, r := range fakeGPCacheList {
		a.Inc(r)
	}
	require.False(t, a.HasFree(GP, nil))

	spilled := asm.NilRegister
	victim := a.GetUnused(GP, nil, func(r asm.Register) {
		spilled = r
		a.Reset(r)
	})
	require.Equal(t, fakeGPCacheList[0], victim, "lowest cache-list index wins as spill victim")
	require.Equal(t, victim, spilled)
	require.Equal(t, 0, a.UseCount(victim))
}

func TestRegisterAllocator_HasFreeRespectsPinned(t *testing.T) {
	a := newTestAllocator()
	a.Inc(fakeGPCacheList[0])
	a.Inc(fakeGPCacheList[2])
	a.Inc(fakeGPCacheList[3])
	require.True(t, a.HasFree(GP, nil))
	require.False(t, a.HasFree(GP, []asm.Register{fakeGPCacheList[1]}))
}
