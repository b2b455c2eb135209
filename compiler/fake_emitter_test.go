package compiler

import "github.com/wazerobaseline/compilercore/internal/asm"

// recordedOp is one call made against a fakeEmitter, kept generic so tests
// can assert on call shape without a combinatorial explosion of recorder
// fields.
type recordedOp struct {
	op   string
	args []interface{}
}

// fakeEmitter is a recording test double for Emitter. It never produces real
// machine code; it exists so cache-state and control-flow logic can be unit
// tested deterministically without an architecture backend.
type fakeEmitter struct {
	ops        []recordedOp
	nextLabel  asm.Label
	bound      map[asm.Label]bool
	nextScratch asm.Register
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{
		bound:       make(map[asm.Label]bool),
		nextLabel:   1,
		nextScratch: 1000,
	}
}

func (f *fakeEmitter) record(op string, args ...interface{}) {
	f.ops = append(f.ops, recordedOp{op: op, args: args})
}

func (f *fakeEmitter) NewLabel() asm.Label {
	l := f.nextLabel
	f.nextLabel++
	return l
}

func (f *fakeEmitter) Bind(label asm.Label) {
	f.bound[label] = true
	f.record("Bind", label)
}

func (f *fakeEmitter) Jmp(label asm.Label) { f.record("Jmp", label) }

func (f *fakeEmitter) JumpIfZero(reg asm.Register, label asm.Label) {
	f.record("JumpIfZero", reg, label)
}

func (f *fakeEmitter) EnterFrame()                 { f.record("EnterFrame") }
func (f *fakeEmitter) ReserveStackSpace(slots int) { f.record("ReserveStackSpace", slots) }
func (f *fakeEmitter) LeaveFrame()                 { f.record("LeaveFrame") }
func (f *fakeEmitter) Ret()                        { f.record("Ret") }

func (f *fakeEmitter) Move(dst, src asm.Register, class RegisterClass) {
	f.record("Move", dst, src, class)
}

func (f *fakeEmitter) LoadConstant(reg asm.Register, value uint64, class RegisterClass) {
	f.record("LoadConstant", reg, value, class)
}

func (f *fakeEmitter) Load(reg, baseReg asm.Register, offset int32, size int, class RegisterClass) {
	f.record("Load", reg, baseReg, offset, size, class)
}

func (f *fakeEmitter) Store(baseReg asm.Register, offset int32, reg asm.Register, size int, class RegisterClass) {
	f.record("Store", baseReg, offset, reg, size, class)
}

func (f *fakeEmitter) Spill(offset int32, reg asm.Register, class RegisterClass) {
	f.record("Spill", offset, reg, class)
}

func (f *fakeEmitter) Fill(reg asm.Register, offset int32, class RegisterClass) {
	f.record("Fill", reg, offset, class)
}

func (f *fakeEmitter) LoadFromContext(reg asm.Register, offset int32, size int) {
	f.record("LoadFromContext", reg, offset, size)
}

func (f *fakeEmitter) SpillContext(reg asm.Register) { f.record("SpillContext", reg) }

func (f *fakeEmitter) LoadCallerFrameSlot(reg asm.Register, slotIndex int) {
	f.record("LoadCallerFrameSlot", reg, slotIndex)
}

func (f *fakeEmitter) MoveToReturnRegister(reg asm.Register, class RegisterClass) {
	f.record("MoveToReturnRegister", reg, class)
}

func (f *fakeEmitter) I32Add(dst, lhs, rhs asm.Register) { f.record("I32Add", dst, lhs, rhs) }
func (f *fakeEmitter) I32Sub(dst, lhs, rhs asm.Register) { f.record("I32Sub", dst, lhs, rhs) }
func (f *fakeEmitter) I32Mul(dst, lhs, rhs asm.Register) { f.record("I32Mul", dst, lhs, rhs) }
func (f *fakeEmitter) I32And(dst, lhs, rhs asm.Register) { f.record("I32And", dst, lhs, rhs) }
func (f *fakeEmitter) I32Or(dst, lhs, rhs asm.Register)  { f.record("I32Or", dst, lhs, rhs) }
func (f *fakeEmitter) I32Xor(dst, lhs, rhs asm.Register) { f.record("I32Xor", dst, lhs, rhs) }

func (f *fakeEmitter) F32Add(dst, lhs, rhs asm.Register) { f.record("F32Add", dst, lhs, rhs) }
func (f *fakeEmitter) F32Sub(dst, lhs, rhs asm.Register) { f.record("F32Sub", dst, lhs, rhs) }
func (f *fakeEmitter) F32Mul(dst, lhs, rhs asm.Register) { f.record("F32Mul", dst, lhs, rhs) }

func (f *fakeEmitter) Assemble() ([]byte, error) { return []byte{0xc3}, nil }

// countOps returns how many recorded calls match name.
func (f *fakeEmitter) countOps(name string) int {
	n := 0
	for _, o := range f.ops {
		if o.op == name {
			n++
		}
	}
	return n
}

// fakeGPCacheList/fakeFPCacheList are small, deterministic register lists
// for unit tests: enough registers to exercise spilling without real
// architecture constants.
var (
	fakeGPCacheList = []asm.Register{10, 11, 12, 13}
	fakeFPCacheList = []asm.Register{20, 21, 22, 23}
)

func newTestAllocator() *RegisterAllocator {
	return NewRegisterAllocator(fakeGPCacheList, fakeFPCacheList)
}
