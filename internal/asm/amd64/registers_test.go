package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazerobaseline/compilercore/internal/asm"
)

// TestCacheLists_ExcludeReservedRegisters checks that the fixed-role
// registers (return, scratch, context, stack pointer) never leak into the
// lists the allocator is permitted to hand out.
func TestCacheLists_ExcludeReservedRegisters(t *testing.T) {
	reserved := []asm.Register{
		ReturnRegisterGP, ReturnRegisterFP,
		ScratchRegisterGP, ScratchRegisterFP,
		ContextRegister, StackPointerReg, REG_BP,
	}

	for _, r := range reserved {
		for _, c := range GPCacheList {
			require.NotEqual(t, r, c, "reserved register %d leaked into GPCacheList", r)
		}
		for _, c := range FPCacheList {
			require.NotEqual(t, r, c, "reserved register %d leaked into FPCacheList", r)
		}
	}
}

// TestCacheLists_NoDuplicates checks each cache list names every register at
// most once; a duplicate would let the allocator believe it has two distinct
// cache slots backed by the same physical register.
func TestCacheLists_NoDuplicates(t *testing.T) {
	for _, list := range [][]asm.Register{GPCacheList, FPCacheList} {
		seen := make(map[asm.Register]bool, len(list))
		for _, r := range list {
			require.False(t, seen[r], "register %d appears twice in cache list", r)
			seen[r] = true
		}
	}
}
