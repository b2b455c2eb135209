package amd64

import (
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/wazerobaseline/compilercore/compiler"
	"github.com/wazerobaseline/compilercore/internal/asm"
)

// toGoObjReg maps this package's Register constants to golang-asm's x86
// register constants, the same kind of translation the golang_asm wrapper
// performs between the architecture-neutral Register type and the
// underlying assembler's own register numbering.
func toGoObjReg(r asm.Register) int16 {
	switch r {
	case REG_AX:
		return x86.REG_AX
	case REG_CX:
		return x86.REG_CX
	case REG_DX:
		return x86.REG_DX
	case REG_BX:
		return x86.REG_BX
	case REG_SP:
		return x86.REG_SP
	case REG_BP:
		return x86.REG_BP
	case REG_SI:
		return x86.REG_SI
	case REG_DI:
		return x86.REG_DI
	case REG_R8:
		return x86.REG_R8
	case REG_R9:
		return x86.REG_R9
	case REG_R10:
		return x86.REG_R10
	case REG_R11:
		return x86.REG_R11
	case REG_R12:
		return x86.REG_R12
	case REG_R13:
		return x86.REG_R13
	case REG_R14:
		return x86.REG_R14
	case REG_R15:
		return x86.REG_R15
	case REG_X0:
		return x86.REG_X0
	case REG_X1:
		return x86.REG_X1
	case REG_X2:
		return x86.REG_X2
	case REG_X3:
		return x86.REG_X3
	case REG_X4:
		return x86.REG_X4
	case REG_X5:
		return x86.REG_X5
	case REG_X6:
		return x86.REG_X6
	case REG_X7:
		return x86.REG_X7
	case REG_X8:
		return x86.REG_X8
	case REG_X9:
		return x86.REG_X9
	case REG_X10:
		return x86.REG_X10
	case REG_X11:
		return x86.REG_X11
	case REG_X12:
		return x86.REG_X12
	case REG_X13:
		return x86.REG_X13
	case REG_X14:
		return x86.REG_X14
	case REG_X15:
		return x86.REG_X15
	default:
		panic(fmt.Sprintf("amd64: unknown register %d", r))
	}
}

// Emitter is the amd64 implementation of compiler.Emitter, backed by
// golang-asm's instruction builder (github.com/twitchyliquid64/golang-asm):
// a correct, tested amd64 instruction encoder, the same dependency and
// reasoning recorded in go.mod and DESIGN.md.
type Emitter struct {
	b      *goasm.Builder
	labels map[asm.Label]*obj.Prog
	// pendingJumps holds not-yet-bound labels whose jump's target must be
	// filled in once the label is bound.
	pendingJumps map[asm.Label][]*obj.Prog
	nextLabel    asm.Label
	frameSize    int32
}

// New constructs an amd64 Emitter and configures the package-level scratch
// registers used to break register-move cycles during a merge.
func New() (*Emitter, error) {
	b, err := goasm.NewBuilder("amd64", 1024)
	if err != nil {
		return nil, fmt.Errorf("amd64: failed to create assembler builder: %w", err)
	}
	compiler.SetScratchRegisters(ScratchRegisterGP, ScratchRegisterFP)
	return &Emitter{
		b:            b,
		labels:       make(map[asm.Label]*obj.Prog),
		pendingJumps: make(map[asm.Label][]*obj.Prog),
		nextLabel:    1,
	}, nil
}

func (e *Emitter) add(p *obj.Prog) *obj.Prog {
	e.b.AddInstruction(p)
	return p
}

func (e *Emitter) newProg() *obj.Prog {
	return e.b.NewProg()
}

// NewLabel implements compiler.Emitter.
func (e *Emitter) NewLabel() asm.Label {
	l := e.nextLabel
	e.nextLabel++
	return l
}

// Bind implements compiler.Emitter.
func (e *Emitter) Bind(label asm.Label) {
	nop := e.newProg()
	nop.As = obj.ANOP
	e.add(nop)
	e.labels[label] = nop
	for _, jump := range e.pendingJumps[label] {
		jump.To.SetTarget(nop)
	}
	delete(e.pendingJumps, label)
}

func (e *Emitter) resolveOrDefer(jump *obj.Prog, label asm.Label) {
	if target, ok := e.labels[label]; ok {
		jump.To.SetTarget(target)
		return
	}
	e.pendingJumps[label] = append(e.pendingJumps[label], jump)
}

// Jmp implements compiler.Emitter.
func (e *Emitter) Jmp(label asm.Label) {
	p := e.newProg()
	p.As = x86.AJMP
	p.To.Type = obj.TYPE_BRANCH
	e.add(p)
	e.resolveOrDefer(p, label)
}

// JumpIfZero implements compiler.Emitter: test reg, reg; jz label.
func (e *Emitter) JumpIfZero(reg asm.Register, label asm.Label) {
	test := e.newProg()
	test.As = x86.ATESTL
	test.From.Type = obj.TYPE_REG
	test.From.Reg = toGoObjReg(reg)
	test.To.Type = obj.TYPE_REG
	test.To.Reg = toGoObjReg(reg)
	e.add(test)

	jz := e.newProg()
	jz.As = x86.AJEQ
	jz.To.Type = obj.TYPE_BRANCH
	e.add(jz)
	e.resolveOrDefer(jz, label)
}

// EnterFrame implements compiler.Emitter.
func (e *Emitter) EnterFrame() {
	push := e.newProg()
	push.As = x86.APUSHQ
	push.From.Type = obj.TYPE_REG
	push.From.Reg = toGoObjReg(REG_BP)
	e.add(push)

	mov := e.newProg()
	mov.As = x86.AMOVQ
	mov.From.Type = obj.TYPE_REG
	mov.From.Reg = toGoObjReg(REG_SP)
	mov.To.Type = obj.TYPE_REG
	mov.To.Reg = toGoObjReg(REG_BP)
	e.add(mov)
}

// ReserveStackSpace implements compiler.Emitter: sub $(8*slots), %rsp.
func (e *Emitter) ReserveStackSpace(slots int) {
	e.frameSize = int32(slots) * 8
	if e.frameSize == 0 {
		return
	}
	sub := e.newProg()
	sub.As = x86.ASUBQ
	sub.From.Type = obj.TYPE_CONST
	sub.From.Offset = int64(e.frameSize)
	sub.To.Type = obj.TYPE_REG
	sub.To.Reg = toGoObjReg(REG_SP)
	e.add(sub)
}

// LeaveFrame implements compiler.Emitter.
func (e *Emitter) LeaveFrame() {
	leave := e.newProg()
	leave.As = x86.ALEAVE
	e.add(leave)
}

// Ret implements compiler.Emitter.
func (e *Emitter) Ret() {
	ret := e.newProg()
	ret.As = obj.ARET
	e.add(ret)
}

func movInstruction(class compiler.RegisterClass) obj.As {
	// Scalar MOVQ covers both GP registers and the low/high XMM halves this
	// baseline ever touches (f32 values are carried in the low 32 bits).
	_ = class
	return x86.AMOVQ
}

// Move implements compiler.Emitter.
func (e *Emitter) Move(dst, src asm.Register, class compiler.RegisterClass) {
	p := e.newProg()
	p.As = movInstruction(class)
	p.From.Type = obj.TYPE_REG
	p.From.Reg = toGoObjReg(src)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = toGoObjReg(dst)
	e.add(p)
}

// LoadConstant implements compiler.Emitter.
func (e *Emitter) LoadConstant(reg asm.Register, value uint64, class compiler.RegisterClass) {
	if class == compiler.GP {
		p := e.newProg()
		p.As = x86.AMOVQ
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = int64(value)
		p.To.Type = obj.TYPE_REG
		p.To.Reg = toGoObjReg(reg)
		e.add(p)
		return
	}
	// Float immediates go through a GP scratch register and a bit-cast move
	// (MOVQ GP->XMM), for lack of a direct float-immediate instruction.
	scratch := toGoObjReg(ScratchRegisterGP)
	movImm := e.newProg()
	movImm.As = x86.AMOVQ
	movImm.From.Type = obj.TYPE_CONST
	movImm.From.Offset = int64(value)
	movImm.To.Type = obj.TYPE_REG
	movImm.To.Reg = scratch
	e.add(movImm)

	bitcast := e.newProg()
	bitcast.As = x86.AMOVQ
	bitcast.From.Type = obj.TYPE_REG
	bitcast.From.Reg = scratch
	bitcast.To.Type = obj.TYPE_REG
	bitcast.To.Reg = toGoObjReg(reg)
	e.add(bitcast)
}

// Load implements compiler.Emitter.
func (e *Emitter) Load(reg, baseReg asm.Register, offset int32, size int, class compiler.RegisterClass) {
	p := e.newProg()
	p.As = loadInstruction(size, class)
	p.From.Type = obj.TYPE_MEM
	p.From.Reg = toGoObjReg(baseReg)
	p.From.Offset = int64(offset)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = toGoObjReg(reg)
	e.add(p)
}

// Store implements compiler.Emitter.
func (e *Emitter) Store(baseReg asm.Register, offset int32, reg asm.Register, size int, class compiler.RegisterClass) {
	p := e.newProg()
	p.As = storeInstruction(size, class)
	p.From.Type = obj.TYPE_REG
	p.From.Reg = toGoObjReg(reg)
	p.To.Type = obj.TYPE_MEM
	p.To.Reg = toGoObjReg(baseReg)
	p.To.Offset = int64(offset)
	e.add(p)
}

func loadInstruction(size int, class compiler.RegisterClass) obj.As {
	if class == compiler.FP {
		if size == 4 {
			return x86.AMOVSS
		}
		return x86.AMOVSD
	}
	switch size {
	case 1:
		return x86.AMOVBLZX
	case 2:
		return x86.AMOVWLZX
	case 4:
		return x86.AMOVL
	default:
		return x86.AMOVQ
	}
}

func storeInstruction(size int, class compiler.RegisterClass) obj.As {
	if class == compiler.FP {
		if size == 4 {
			return x86.AMOVSS
		}
		return x86.AMOVSD
	}
	switch size {
	case 1:
		return x86.AMOVB
	case 2:
		return x86.AMOVW
	case 4:
		return x86.AMOVL
	default:
		return x86.AMOVQ
	}
}

// Spill implements compiler.Emitter: store reg to [RBP-offset-8] in the
// reserved spill frame, one 8-byte slot per cache-state index.
func (e *Emitter) Spill(offset int32, reg asm.Register, class compiler.RegisterClass) {
	e.Store(REG_BP, -8-offset, reg, 8, class)
}

// Fill implements compiler.Emitter: the inverse of Spill.
func (e *Emitter) Fill(reg asm.Register, offset int32, class compiler.RegisterClass) {
	e.Load(reg, REG_BP, -8-offset, 8, class)
}

// LoadFromContext implements compiler.Emitter: the runtime context pointer
// lives in the reserved ContextRegister for the duration of the function.
func (e *Emitter) LoadFromContext(reg asm.Register, offset int32, size int) {
	e.Load(reg, ContextRegister, offset, size, compiler.GP)
}

// contextScratchOffset is the byte offset, within the thread-local context,
// reserved for SpillContext/restore round-trips. It is a single fixed slot
// rather than a caller-supplied one: SpillContext exists to let
// ContextRegister itself be repurposed as an ordinary scratch register for
// a stretch of code, with its pointer value parked here and reloaded with
// an ordinary LoadFromContext(reg, contextScratchOffset, 8) afterwards.
const contextScratchOffset = 0

// SpillContext implements compiler.Emitter: store reg to the reserved
// context scratch slot.
func (e *Emitter) SpillContext(reg asm.Register) {
	e.Store(ContextRegister, contextScratchOffset, reg, 8, compiler.GP)
}

// LoadCallerFrameSlot implements compiler.Emitter: the caller's stack-passed
// arguments sit above the return address and saved frame pointer, at
// [RBP+16+8*slotIndex] per the amd64 calling convention EnterFrame
// establishes (push RBP; mov RSP, RBP leaves RBP+0 = saved RBP, RBP+8 =
// return address).
func (e *Emitter) LoadCallerFrameSlot(reg asm.Register, slotIndex int) {
	e.Load(reg, REG_BP, 16+8*int32(slotIndex), 8, compiler.GP)
}

// MoveToReturnRegister implements compiler.Emitter.
func (e *Emitter) MoveToReturnRegister(reg asm.Register, class compiler.RegisterClass) {
	dst := ReturnRegisterGP
	if class == compiler.FP {
		dst = ReturnRegisterFP
	}
	if reg == dst {
		return
	}
	e.Move(dst, reg, class)
}

func (e *Emitter) binop(instr obj.As, dst, lhs, rhs asm.Register) {
	// Two-address amd64 form: move lhs into dst first (skipped if they're
	// already the same register), then OP dst, rhs. GetBinaryOpTarget
	// reclaims rhs before lhs, so dst often aliases rhs; rhs is then parked
	// in the scratch register before lhs overwrites dst.
	if dst == rhs && dst != lhs {
		scratch, class := ScratchRegisterGP, compiler.GP
		switch instr {
		case x86.AADDSS, x86.ASUBSS, x86.AMULSS:
			scratch, class = ScratchRegisterFP, compiler.FP
		}
		e.Move(scratch, rhs, class)
		rhs = scratch
	}
	if dst != lhs {
		movReg := e.newProg()
		movReg.As = x86.AMOVQ
		movReg.From.Type = obj.TYPE_REG
		movReg.From.Reg = toGoObjReg(lhs)
		movReg.To.Type = obj.TYPE_REG
		movReg.To.Reg = toGoObjReg(dst)
		e.add(movReg)
	}
	p := e.newProg()
	p.As = instr
	p.From.Type = obj.TYPE_REG
	p.From.Reg = toGoObjReg(rhs)
	p.To.Type = obj.TYPE_REG
	p.To.Reg = toGoObjReg(dst)
	e.add(p)
}

func (e *Emitter) I32Add(dst, lhs, rhs asm.Register) { e.binop(x86.AADDL, dst, lhs, rhs) }
func (e *Emitter) I32Sub(dst, lhs, rhs asm.Register) { e.binop(x86.ASUBL, dst, lhs, rhs) }
func (e *Emitter) I32Mul(dst, lhs, rhs asm.Register) { e.binop(x86.AIMULL, dst, lhs, rhs) }
func (e *Emitter) I32And(dst, lhs, rhs asm.Register) { e.binop(x86.AANDL, dst, lhs, rhs) }
func (e *Emitter) I32Or(dst, lhs, rhs asm.Register)  { e.binop(x86.AORL, dst, lhs, rhs) }
func (e *Emitter) I32Xor(dst, lhs, rhs asm.Register) { e.binop(x86.AXORL, dst, lhs, rhs) }

func (e *Emitter) F32Add(dst, lhs, rhs asm.Register) { e.binop(x86.AADDSS, dst, lhs, rhs) }
func (e *Emitter) F32Sub(dst, lhs, rhs asm.Register) { e.binop(x86.ASUBSS, dst, lhs, rhs) }
func (e *Emitter) F32Mul(dst, lhs, rhs asm.Register) { e.binop(x86.AMULSS, dst, lhs, rhs) }

// Assemble implements compiler.Emitter.
func (e *Emitter) Assemble() ([]byte, error) {
	return e.b.Assemble(), nil
}
