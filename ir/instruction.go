package ir

import (
	"fmt"
	"strings"

	"irlib/internal/ilist"
	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Opcode identifies the operation an Instruction performs.
type Opcode uint8

const (
	OpRet Opcode = iota
	OpBr
	OpCondBr
	OpSwitch

	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpShl
	OpLShr
	OpAShr
	OpAnd
	OpOr
	OpXor

	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	OpICmp
	OpFCmp

	OpTrunc
	OpZExt
	OpSExt
	OpFPTrunc
	OpFPExt
	OpFPToUI
	OpFPToSI
	OpUIToFP
	OpSIToFP
	OpPtrToInt
	OpIntToPtr
	OpBitcast

	OpAlloca
	OpLoad
	OpStore
	OpGEP

	OpPhi
	OpSelect

	OpCall
)

// opcodeNames gives each Opcode its textual IR mnemonic.
var opcodeNames = [...]string{
	OpRet: "ret", OpBr: "br", OpCondBr: "cond_br", OpSwitch: "switch",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpUDiv: "udiv", OpSDiv: "sdiv",
	OpURem: "urem", OpSRem: "srem", OpShl: "shl", OpLShr: "lshr", OpAShr: "ashr",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv",
	OpICmp: "icmp", OpFCmp: "fcmp",
	OpTrunc: "trunc", OpZExt: "zext", OpSExt: "sext", OpFPTrunc: "fptrunc",
	OpFPExt: "fpext", OpFPToUI: "fptoui", OpFPToSI: "fptosi", OpUIToFP: "uitofp",
	OpSIToFP: "sitofp", OpPtrToInt: "ptrtoint", OpIntToPtr: "inttoptr", OpBitcast: "bitcast",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpGEP: "gep",
	OpPhi: "phi", OpSelect: "select",
	OpCall: "call",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", op)
}

// IsTerminator reports whether op ends a basic block.
func (op Opcode) IsTerminator() bool {
	return op == OpRet || op == OpBr || op == OpCondBr || op == OpSwitch
}

// IntPredicate is the predicate carried by an icmp instruction.
type IntPredicate uint8

const (
	IEQ IntPredicate = iota
	INE
	ISGT
	ISGE
	ISLT
	ISLE
	IUGT
	IUGE
	IULT
	IULE
)

var intPredNames = [...]string{
	IEQ: "eq", INE: "ne", ISGT: "sgt", ISGE: "sge", ISLT: "slt", ISLE: "sle",
	IUGT: "ugt", IUGE: "uge", IULT: "ult", IULE: "ule",
}

func (p IntPredicate) String() string { return intPredNames[p] }

// FloatPredicate is the predicate carried by an fcmp instruction.
type FloatPredicate uint8

const (
	FTrue FloatPredicate = iota
	FFalse
	FOEQ
	FONE
	FOGT
	FOGE
	FOLT
	FOLE
	FORD
	FUEQ
	FUNE
	FUGT
	FUGE
	FULT
	FULE
	FUNO
)

var floatPredNames = [...]string{
	FTrue: "true", FFalse: "false",
	FOEQ: "oeq", FONE: "one", FOGT: "ogt", FOGE: "oge", FOLT: "olt", FOLE: "ole", FORD: "ord",
	FUEQ: "ueq", FUNE: "une", FUGT: "ugt", FUGE: "uge", FULT: "ult", FULE: "ule", FUNO: "uno",
}

func (p FloatPredicate) String() string { return floatPredNames[p] }

// caseArm is one (constant, target) pair of a switch instruction, embedded
// inline in its operand list alongside the switch condition and default
// target.
type caseArm struct {
	val  *Use // constant operand
	dest *Use // label operand
}

// incoming is one (value, block) pair of a phi instruction, embedded the
// same way.
type incoming struct {
	val   *Use
	block *Use
}

// Instruction is the single concrete type backing every opcode in the
// instruction set: an opcode tag, an ordered operand list, opcode-specific
// immediate fields, and a link into its parent BasicBlock's instruction
// list. One struct with a discriminant keeps the arena allocation uniform
// and every polymorphic query (name, type, uses) on the shared header.
type Instruction struct {
	valueBase
	node ilist.Node // link into parent.instrs

	opcode   Opcode
	parent   *BasicBlock
	operands []*Use

	// Opcode-specific immediate data. Only the fields relevant to opcode
	// are meaningful; see the comment on each Create* constructor.
	intPred   IntPredicate
	floatPred FloatPredicate
	allocType *types.Type // alloca: type being allocated. gep: source_ty.
	inbounds  bool        // gep
	cases     []caseArm   // switch
	incomings []incoming  // phi
	calleeTy  *types.Type // call: callee's function type

	disabled bool // marked dead by a pass without being unlinked yet
}

// Disable marks i as logically dead. A disabled instruction stays linked
// into its block (so its operands and uses remain intact for any pass still
// iterating over the block) but is skipped by the printer until a later
// bulk delete erases it. The verifier does not skip disabled instructions.
func (i *Instruction) Disable() { i.disabled = true }

// Enable reverses Disable.
func (i *Instruction) Enable() { i.disabled = false }

// IsEnabled reports whether i is still live.
func (i *Instruction) IsEnabled() bool { return !i.disabled }

// ---------------------
// ----- Functions -----
// ---------------------

func (i *Instruction) Kind() Kind { return KindInstruction }

// Opcode returns the operation i performs.
func (i *Instruction) Opcode() Opcode { return i.opcode }

// Parent returns the BasicBlock i is linked into.
func (i *Instruction) Parent() *BasicBlock { return i.parent }

// Operands returns i's ordered operand list. Callers must not mutate the
// returned slice's Use pointers; use ReplaceAllUsesWith or SetOperand.
func (i *Instruction) Operands() []*Use { return i.operands }

// NumOperands returns len(i.Operands()).
func (i *Instruction) NumOperands() int { return len(i.operands) }

// Operand returns the value of i's n'th operand.
func (i *Instruction) Operand(n int) Value { return i.operands[n].Value() }

// SetOperand retargets i's n'th operand to v, updating the def-use graph.
func (i *Instruction) SetOperand(n int, v Value) {
	i.operands[n].reseat(v)
}

// IntPredicate returns the predicate of an icmp instruction.
func (i *Instruction) IntPredicate() IntPredicate { return i.intPred }

// FloatPredicate returns the predicate of an fcmp instruction.
func (i *Instruction) FloatPredicate() FloatPredicate { return i.floatPred }

// AllocType returns the allocated type of an alloca, or the source_type of
// a gep.
func (i *Instruction) AllocType() *types.Type { return i.allocType }

// Inbounds reports whether a gep carries the inbounds keyword.
func (i *Instruction) Inbounds() bool { return i.inbounds }

// NumCases returns the number of (constant, target) arms of a switch.
func (i *Instruction) NumCases() int { return len(i.cases) }

// Case returns the constant and destination block of a switch's n'th arm.
func (i *Instruction) Case(n int) (*Constant, *BasicBlock) {
	c := i.cases[n]
	return c.val.Value().(*Constant), c.dest.Value().(*BasicBlock)
}

// NumIncoming returns the number of incoming (value, block) pairs of a phi.
func (i *Instruction) NumIncoming() int { return len(i.incomings) }

// Incoming returns the value and predecessor block of a phi's n'th pair.
func (i *Instruction) Incoming(n int) (Value, *BasicBlock) {
	p := i.incomings[n]
	return p.val.Value(), p.block.Value().(*BasicBlock)
}

// AddIncoming appends an (val, block) pair to a phi instruction.
func (i *Instruction) AddIncoming(val Value, block *BasicBlock) {
	if i.opcode != OpPhi {
		panic("ir: AddIncoming on non-phi instruction")
	}
	if val.Type() != i.Type() {
		panic(fmt.Sprintf("ir: AddIncoming type mismatch: phi is %s, value is %s", i.Type(), val.Type()))
	}
	vu := newUse(i, val)
	bu := newUse(i, block)
	i.operands = append(i.operands, vu, bu)
	i.incomings = append(i.incomings, incoming{val: vu, block: bu})
}

// RemoveIncoming deletes the incoming pair associated with pred, used by
// mem2reg-adjacent and CFG-simplifying passes when an edge disappears.
func (i *Instruction) RemoveIncoming(pred *BasicBlock) {
	for idx, p := range i.incomings {
		if p.block.Value() == Value(pred) {
			p.val.unlink()
			p.block.unlink()
			kept := i.operands[:0]
			for _, u := range i.operands {
				if u != p.val && u != p.block {
					kept = append(kept, u)
				}
			}
			i.operands = kept
			i.incomings = append(i.incomings[:idx], i.incomings[idx+1:]...)
			return
		}
	}
}

// Callee returns the callee operand of a call instruction.
func (i *Instruction) Callee() Value { return i.operands[0].Value() }

// CalleeType returns the function type a call instruction was built
// against, fixed at construction so it stays meaningful even if the
// callee operand is later retargeted.
func (i *Instruction) CalleeType() *types.Type { return i.calleeTy }

// Args returns the argument operands of a call instruction (operands 1..N).
func (i *Instruction) Args() []Value {
	out := make([]Value, 0, len(i.operands)-1)
	for _, u := range i.operands[1:] {
		out = append(out, u.Value())
	}
	return out
}

// EraseFromParent unlinks i from its parent block's instruction list and
// severs every Use it holds as a user. i must have no remaining uses as an
// operand; callers must have already retargeted or removed them.
func (i *Instruction) EraseFromParent() {
	if HasUses(i) {
		panic("ir: EraseFromParent: instruction still has uses")
	}
	for _, u := range i.operands {
		u.unlink()
	}
	if i.parent != nil {
		ilist.Delete(&i.node)
		i.parent = nil
	}
}

// String returns the textual IR spelling of i.
func (i *Instruction) String() string {
	var sb strings.Builder
	if i.Type().Kind() != types.Void && i.opcode != OpStore {
		fmt.Fprintf(&sb, "%%%s: %s = ", i.Name(), i.Type())
	}
	sb.WriteString(i.opcode.String())
	switch i.opcode {
	case OpRet:
		if len(i.operands) > 0 {
			fmt.Fprintf(&sb, " %s", operandRef(i.operands[0]))
		}
	case OpBr:
		fmt.Fprintf(&sb, " $%s", i.operands[0].Value().Name())
	case OpCondBr:
		fmt.Fprintf(&sb, " %s, $%s, $%s", operandRef(i.operands[0]), i.operands[1].Value().Name(), i.operands[2].Value().Name())
	case OpSwitch:
		fmt.Fprintf(&sb, " %s, default $%s [", operandRef(i.operands[0]), i.operands[1].Value().Name())
		for idx, c := range i.cases {
			if idx > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: $%s", operandRef(c.val), c.dest.Value().Name())
		}
		sb.WriteString("]")
	case OpICmp:
		fmt.Fprintf(&sb, " %s %s, %s", i.intPred, operandRef(i.operands[0]), operandRef(i.operands[1]))
	case OpFCmp:
		fmt.Fprintf(&sb, " %s %s, %s", i.floatPred, operandRef(i.operands[0]), operandRef(i.operands[1]))
	case OpAlloca:
		fmt.Fprintf(&sb, " %s", i.allocType)
	case OpGEP:
		if i.inbounds {
			sb.WriteString(" inbounds")
		}
		fmt.Fprintf(&sb, " %s, %s", i.allocType, operandRef(i.operands[0]))
		for _, u := range i.operands[1:] {
			fmt.Fprintf(&sb, ", %s", operandRef(u))
		}
	case OpPhi:
		fmt.Fprintf(&sb, " %s [", i.Type())
		for idx, p := range i.incomings {
			if idx > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "[%s, $%s]", operandRef(p.val), p.block.Value().Name())
		}
		sb.WriteString("]")
	case OpCall:
		fmt.Fprintf(&sb, " %s(", operandRef(i.operands[0]))
		for idx, u := range i.operands[1:] {
			if idx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(operandRef(u))
		}
		sb.WriteString(")")
	default:
		for idx, u := range i.operands {
			if idx > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s", operandRef(u))
		}
		if i.opcode.IsTerminator() == false && len(i.operands) > 0 && isCastOpcode(i.opcode) {
			fmt.Fprintf(&sb, " to %s", i.Type())
		}
	}
	return sb.String()
}

func isCastOpcode(op Opcode) bool {
	switch op {
	case OpTrunc, OpZExt, OpSExt, OpFPTrunc, OpFPExt, OpFPToUI, OpFPToSI, OpUIToFP, OpSIToFP, OpPtrToInt, OpIntToPtr, OpBitcast:
		return true
	}
	return false
}

func operandRef(u *Use) string {
	v := u.Value()
	if bb, ok := v.(*BasicBlock); ok {
		return "$" + bb.Name()
	}
	if _, ok := v.(*Constant); ok {
		return v.Name()
	}
	return "%" + v.Name()
}
