package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazerobaseline/compilercore/internal/asm"
)

// TestScenario_Identity compiles a function that returns its single
// parameter unchanged: local.get 0; return.
func TestScenario_Identity(t *testing.T) {
	c, em := newTestCompiler(t, []LocalSpec{{Type: I32, Kind: LocalParam, ParamReg: fakeGPCacheList[0]}})
	c.EnterFrame()
	c.LocalGet(0)
	c.Return(1, I32)

	res, err := c.Finish()
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, 1, em.countOps("MoveToReturnRegister"))
}

// TestScenario_AddTwoParams compiles: local.get 0; local.get 1; i32.add; return.
func TestScenario_AddTwoParams(t *testing.T) {
	locals := []LocalSpec{
		{Type: I32, Kind: LocalParam, ParamReg: fakeGPCacheList[0]},
		{Type: I32, Kind: LocalParam, ParamReg: fakeGPCacheList[1]},
	}
	c, em := newTestCompiler(t, locals)
	c.EnterFrame()
	c.LocalGet(0)
	c.LocalGet(1)
	c.I32Add()
	c.Return(1, I32)

	res, err := c.Finish()
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, 1, em.countOps("I32Add"))
}

// TestScenario_ConstantFoldingPersists checks that an i32.const pushed and
// immediately consumed by local.set never touches a register at all: the
// constant survives purely in cache-state bookkeeping.
func TestScenario_ConstantFoldingPersists(t *testing.T) {
	c, em := newTestCompiler(t, []LocalSpec{{Type: I32, Kind: LocalDeclared}})
	c.EnterFrame()
	em.ops = nil // only the body's emission is under test, not the prologue
	c.I32Const(11)
	c.LocalSet(0)

	require.Empty(t, em.ops, "constant never materialises into a register")
	require.True(t, c.cache.Local(0).OnConstant())
	require.Equal(t, uint64(11), c.cache.Local(0).Const)
}

// TestScenario_LoopWithLocalMutation compiles a countdown loop driven by a
// real br_if: local.get 0; i32.const 1; i32.sub; local.tee 0; br_if (loop);
// local.get 0; return. The final iteration falls through rather than taking
// the backward branch, so this exercises the not-taken continuation of a
// br_if targeting an already-bound loop label, not just the taken path.
func TestScenario_LoopWithLocalMutation(t *testing.T) {
	c, em := newTestCompiler(t, []LocalSpec{{Type: I32, Kind: LocalParam, ParamReg: fakeGPCacheList[0]}})
	c.EnterFrame()

	loop := c.BlockEntry(true, 0)
	require.True(t, c.cache.Local(0).OnStack(), "loop entry spills locals up front")

	c.LocalGet(0)
	c.I32Const(1)
	c.I32Sub()
	c.LocalTee(0)
	c.BranchIf(loop)

	require.True(t, c.cache.Local(0).OnRegister(), "the not-taken path never executes the merge's spill, so local 0 is still register-resident")

	c.BlockExit(loop)
	require.True(t, c.cache.Local(0).OnRegister(), "falling through past the loop's end must not steal the loop-entry snapshot")

	c.LocalGet(0)
	c.Return(1, I32)

	res, err := c.Finish()
	require.NoError(t, err)
	require.True(t, res.OK)
	require.GreaterOrEqual(t, em.countOps("Jmp"), 1)
}

// TestScenario_BailoutGraceful checks an unsupported value type causes a
// clean bailout rather than a panic, with every label still bound.
func TestScenario_BailoutGraceful(t *testing.T) {
	c, _ := newTestCompiler(t, nil)
	c.EnterFrame()
	cb := c.BlockEntry(false, 0)
	c.GlobalGet(GlobalSpec{Type: F64, Offset: 0})
	c.BranchUnconditional(cb)

	res, err := c.Finish()
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, BailoutUnsupportedValueType, res.BailoutReason)
	require.True(t, cb.bound, "unbound-label sweep runs on bailout")
}

// TestScenario_MergeWithCycle drives two predecessors into the same label
// with their live values in swapped registers, forcing the merge algorithm
// through its cycle-breaking path.
func TestScenario_MergeWithCycle(t *testing.T) {
	SetScratchRegisters(900, 901)
	defer SetScratchRegisters(asm.NilRegister+1, asm.NilRegister+2)

	c, em := newTestCompiler(t, nil)
	c.EnterFrame()

	target := c.BlockEntry(false, 1)

	// First predecessor: values in (r0, r1).
	c.cache.PushRegister(I32, fakeGPCacheList[0])
	c.cache.PushRegister(I32, fakeGPCacheList[1])
	c.BranchUnconditional(target)

	// Roll back to a fresh state with the same two values in swapped
	// registers — a merge into the already-initialised label state now
	// needs a genuine 2-cycle of moves to reconcile.
	c.cache = NewCacheState(0, c.alloc, c.em)
	c.alloc.Reset(fakeGPCacheList[0])
	c.alloc.Reset(fakeGPCacheList[1])
	c.cache.PushRegister(I32, fakeGPCacheList[1])
	c.cache.PushRegister(I32, fakeGPCacheList[0])

	c.BranchUnconditional(target)
	c.BlockExit(target)

	res, err := c.Finish()
	require.NoError(t, err)
	require.True(t, res.OK)
	require.GreaterOrEqual(t, em.countOps("Move"), 1, "the second branch's merge needs at least one register move")
}
