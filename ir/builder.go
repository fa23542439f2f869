package ir

import (
	"fmt"

	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Builder constructs Instructions at a movable insertion point within one
// Function. Every Create* method validates operand types, allocates the
// instruction from the owning Context's arena, attaches it at the
// insertion point (phi at the block head), wires Uses in operand order,
// and names the result from a caller hint or the function's synthetic
// counter. Type violations panic.
type Builder struct {
	ctx   *Context
	block *BasicBlock
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewBuilder creates a Builder with no insertion point set.
func NewBuilder(ctx *Context) *Builder {
	return &Builder{ctx: ctx}
}

// SetInsertionPoint moves b to insert subsequent instructions at the tail
// of block.
func (b *Builder) SetInsertionPoint(block *BasicBlock) {
	b.block = block
}

// InsertionBlock returns b's current insertion block.
func (b *Builder) InsertionBlock() *BasicBlock { return b.block }

func (b *Builder) requireBlock() *BasicBlock {
	if b.block == nil {
		panic("ir: Builder has no insertion point set")
	}
	return b.block
}

func (b *Builder) newInst(opcode Opcode, resultType *types.Type, name string) *Instruction {
	inst := arenaNew[Instruction](b.ctx)
	inst.typ = resultType
	inst.opcode = opcode
	inst.node.Elem = inst
	inst.init()
	f := b.block.parent
	if resultType.Kind() != types.Void {
		inst.name = nameOrAuto(b.ctx, name, "t", &f.nameSeq)
	}
	return inst
}

func (b *Builder) addOperands(inst *Instruction, vals ...Value) {
	for _, v := range vals {
		inst.operands = append(inst.operands, newUse(inst, v))
	}
}

func requireType(label string, got, want *types.Type) {
	if got != want {
		panic(fmt.Sprintf("ir: %s: expected type %s, got %s", label, want, got))
	}
}

func requireSameType(label string, a, b Value) {
	if a.Type() != b.Type() {
		panic(fmt.Sprintf("ir: %s: operand type mismatch: %s vs %s", label, a.Type(), b.Type()))
	}
}

func requireInteger(label string, v Value) {
	if !v.Type().IsInteger() {
		panic(fmt.Sprintf("ir: %s: expected integer operand, got %s", label, v.Type()))
	}
}

func requireFloat(label string, v Value) {
	if !v.Type().IsFloat() {
		panic(fmt.Sprintf("ir: %s: expected float operand, got %s", label, v.Type()))
	}
}

// ------------------------
// ----- Terminators -----
// ------------------------

// CreateRet terminates the current block with a return instruction. val
// may be nil for a void return.
func (b *Builder) CreateRet(val Value) *Instruction {
	bb := b.requireBlock()
	vt := b.ctx.types.Prim(types.Void)
	inst := b.newInst(OpRet, vt, "")
	if val != nil {
		b.addOperands(inst, val)
	}
	bb.pushBack(inst)
	return inst
}

// CreateBr terminates the current block with an unconditional branch.
func (b *Builder) CreateBr(target *BasicBlock) *Instruction {
	bb := b.requireBlock()
	inst := b.newInst(OpBr, b.ctx.types.Prim(types.Void), "")
	b.addOperands(inst, target)
	bb.pushBack(inst)
	return inst
}

// CreateCondBr terminates the current block with a conditional branch. cond
// must be i1.
func (b *Builder) CreateCondBr(cond Value, then, els *BasicBlock) *Instruction {
	bb := b.requireBlock()
	requireType("cond_br", cond.Type(), b.ctx.types.Prim(types.I1))
	inst := b.newInst(OpCondBr, b.ctx.types.Prim(types.Void), "")
	b.addOperands(inst, cond, then, els)
	bb.pushBack(inst)
	return inst
}

// CreateSwitch terminates the current block with a switch on an integer
// condition. cases maps constant values to their target blocks.
func (b *Builder) CreateSwitch(cond Value, def *BasicBlock, cases []struct {
	Val  *Constant
	Dest *BasicBlock
}) *Instruction {
	bb := b.requireBlock()
	requireInteger("switch", cond)
	inst := b.newInst(OpSwitch, b.ctx.types.Prim(types.Void), "")
	b.addOperands(inst, cond, def)
	inst.cases = make([]caseArm, 0, len(cases))
	for _, c := range cases {
		requireType("switch case", c.Val.Type(), cond.Type())
		vu := newUse(inst, c.Val)
		du := newUse(inst, c.Dest)
		inst.operands = append(inst.operands, vu, du)
		inst.cases = append(inst.cases, caseArm{val: vu, dest: du})
	}
	bb.pushBack(inst)
	return inst
}

// -------------------------------
// ----- Integer arithmetic -----
// -------------------------------

func (b *Builder) intBinOp(op Opcode, mnemonic, name string, lhs, rhs Value) *Instruction {
	bb := b.requireBlock()
	requireInteger(mnemonic, lhs)
	requireSameType(mnemonic, lhs, rhs)
	inst := b.newInst(op, lhs.Type(), name)
	b.addOperands(inst, lhs, rhs)
	bb.pushBack(inst)
	return inst
}

func (b *Builder) CreateAdd(lhs, rhs Value, name string) *Instruction  { return b.intBinOp(OpAdd, "add", name, lhs, rhs) }
func (b *Builder) CreateSub(lhs, rhs Value, name string) *Instruction  { return b.intBinOp(OpSub, "sub", name, lhs, rhs) }
func (b *Builder) CreateMul(lhs, rhs Value, name string) *Instruction  { return b.intBinOp(OpMul, "mul", name, lhs, rhs) }
func (b *Builder) CreateUDiv(lhs, rhs Value, name string) *Instruction { return b.intBinOp(OpUDiv, "udiv", name, lhs, rhs) }
func (b *Builder) CreateSDiv(lhs, rhs Value, name string) *Instruction { return b.intBinOp(OpSDiv, "sdiv", name, lhs, rhs) }
func (b *Builder) CreateURem(lhs, rhs Value, name string) *Instruction { return b.intBinOp(OpURem, "urem", name, lhs, rhs) }
func (b *Builder) CreateSRem(lhs, rhs Value, name string) *Instruction { return b.intBinOp(OpSRem, "srem", name, lhs, rhs) }
func (b *Builder) CreateShl(lhs, rhs Value, name string) *Instruction  { return b.intBinOp(OpShl, "shl", name, lhs, rhs) }
func (b *Builder) CreateLShr(lhs, rhs Value, name string) *Instruction { return b.intBinOp(OpLShr, "lshr", name, lhs, rhs) }
func (b *Builder) CreateAShr(lhs, rhs Value, name string) *Instruction { return b.intBinOp(OpAShr, "ashr", name, lhs, rhs) }
func (b *Builder) CreateAnd(lhs, rhs Value, name string) *Instruction  { return b.intBinOp(OpAnd, "and", name, lhs, rhs) }
func (b *Builder) CreateOr(lhs, rhs Value, name string) *Instruction   { return b.intBinOp(OpOr, "or", name, lhs, rhs) }
func (b *Builder) CreateXor(lhs, rhs Value, name string) *Instruction  { return b.intBinOp(OpXor, "xor", name, lhs, rhs) }

// -----------------------------
// ----- Float arithmetic -----
// -----------------------------

func (b *Builder) floatBinOp(op Opcode, mnemonic, name string, lhs, rhs Value) *Instruction {
	bb := b.requireBlock()
	requireFloat(mnemonic, lhs)
	requireSameType(mnemonic, lhs, rhs)
	inst := b.newInst(op, lhs.Type(), name)
	b.addOperands(inst, lhs, rhs)
	bb.pushBack(inst)
	return inst
}

func (b *Builder) CreateFAdd(lhs, rhs Value, name string) *Instruction { return b.floatBinOp(OpFAdd, "fadd", name, lhs, rhs) }
func (b *Builder) CreateFSub(lhs, rhs Value, name string) *Instruction { return b.floatBinOp(OpFSub, "fsub", name, lhs, rhs) }
func (b *Builder) CreateFMul(lhs, rhs Value, name string) *Instruction { return b.floatBinOp(OpFMul, "fmul", name, lhs, rhs) }
func (b *Builder) CreateFDiv(lhs, rhs Value, name string) *Instruction { return b.floatBinOp(OpFDiv, "fdiv", name, lhs, rhs) }

// -------------------------
// ----- Comparisons -----
// -------------------------

// CreateICmp creates an integer comparison, result type i1.
func (b *Builder) CreateICmp(pred IntPredicate, lhs, rhs Value, name string) *Instruction {
	bb := b.requireBlock()
	requireInteger("icmp", lhs)
	requireSameType("icmp", lhs, rhs)
	inst := b.newInst(OpICmp, b.ctx.types.Prim(types.I1), name)
	inst.intPred = pred
	b.addOperands(inst, lhs, rhs)
	bb.pushBack(inst)
	return inst
}

// CreateFCmp creates a floating point comparison, result type i1.
func (b *Builder) CreateFCmp(pred FloatPredicate, lhs, rhs Value, name string) *Instruction {
	bb := b.requireBlock()
	requireFloat("fcmp", lhs)
	requireSameType("fcmp", lhs, rhs)
	inst := b.newInst(OpFCmp, b.ctx.types.Prim(types.I1), name)
	inst.floatPred = pred
	b.addOperands(inst, lhs, rhs)
	bb.pushBack(inst)
	return inst
}

// -------------------
// ----- Casts -----
// -------------------

func (b *Builder) createCast(op Opcode, mnemonic, name string, v Value, dest *types.Type) *Instruction {
	bb := b.requireBlock()
	inst := b.newInst(op, dest, name)
	b.addOperands(inst, v)
	bb.pushBack(inst)
	return inst
}

func (b *Builder) CreateTrunc(v Value, dest *types.Type, name string) *Instruction {
	requireInteger("trunc", v)
	if !dest.IsInteger() || dest.BitWidth() >= v.Type().BitWidth() {
		panic(fmt.Sprintf("ir: trunc: %s is not narrower than %s", dest, v.Type()))
	}
	return b.createCast(OpTrunc, "trunc", name, v, dest)
}

func (b *Builder) CreateZExt(v Value, dest *types.Type, name string) *Instruction {
	requireInteger("zext", v)
	if !dest.IsInteger() || dest.BitWidth() <= v.Type().BitWidth() {
		panic(fmt.Sprintf("ir: zext: %s is not wider than %s", dest, v.Type()))
	}
	return b.createCast(OpZExt, "zext", name, v, dest)
}

func (b *Builder) CreateSExt(v Value, dest *types.Type, name string) *Instruction {
	requireInteger("sext", v)
	if !dest.IsInteger() || dest.BitWidth() <= v.Type().BitWidth() {
		panic(fmt.Sprintf("ir: sext: %s is not wider than %s", dest, v.Type()))
	}
	return b.createCast(OpSExt, "sext", name, v, dest)
}

func (b *Builder) CreateFPTrunc(v Value, dest *types.Type, name string) *Instruction {
	requireFloat("fptrunc", v)
	return b.createCast(OpFPTrunc, "fptrunc", name, v, dest)
}

func (b *Builder) CreateFPExt(v Value, dest *types.Type, name string) *Instruction {
	requireFloat("fpext", v)
	return b.createCast(OpFPExt, "fpext", name, v, dest)
}

func (b *Builder) CreateFPToUI(v Value, dest *types.Type, name string) *Instruction {
	requireFloat("fptoui", v)
	return b.createCast(OpFPToUI, "fptoui", name, v, dest)
}

func (b *Builder) CreateFPToSI(v Value, dest *types.Type, name string) *Instruction {
	requireFloat("fptosi", v)
	return b.createCast(OpFPToSI, "fptosi", name, v, dest)
}

func (b *Builder) CreateUIToFP(v Value, dest *types.Type, name string) *Instruction {
	requireInteger("uitofp", v)
	return b.createCast(OpUIToFP, "uitofp", name, v, dest)
}

func (b *Builder) CreateSIToFP(v Value, dest *types.Type, name string) *Instruction {
	requireInteger("sitofp", v)
	return b.createCast(OpSIToFP, "sitofp", name, v, dest)
}

func (b *Builder) CreatePtrToInt(v Value, dest *types.Type, name string) *Instruction {
	if v.Type().Kind() != types.Pointer {
		panic(fmt.Sprintf("ir: ptrtoint: %s is not a pointer", v.Type()))
	}
	return b.createCast(OpPtrToInt, "ptrtoint", name, v, dest)
}

func (b *Builder) CreateIntToPtr(v Value, dest *types.Type, name string) *Instruction {
	requireInteger("inttoptr", v)
	return b.createCast(OpIntToPtr, "inttoptr", name, v, dest)
}

func (b *Builder) CreateBitcast(v Value, dest *types.Type, name string) *Instruction {
	return b.createCast(OpBitcast, "bitcast", name, v, dest)
}

// -------------------------
// ----- Memory ops -----
// -------------------------

// CreateAlloca allocates storage for one value of type t, returning a
// pointer to it.
func (b *Builder) CreateAlloca(t *types.Type, name string) *Instruction {
	bb := b.requireBlock()
	inst := b.newInst(OpAlloca, b.ctx.types.PointerTo(t), name)
	inst.allocType = t
	bb.pushBack(inst)
	return inst
}

// CreateLoad loads the value pointed to by ptr.
func (b *Builder) CreateLoad(ptr Value, name string) *Instruction {
	bb := b.requireBlock()
	if ptr.Type().Kind() != types.Pointer {
		panic(fmt.Sprintf("ir: load: %s is not a pointer", ptr.Type()))
	}
	inst := b.newInst(OpLoad, ptr.Type().Elem(), name)
	b.addOperands(inst, ptr)
	bb.pushBack(inst)
	return inst
}

// CreateStore stores val into the storage pointed to by ptr.
func (b *Builder) CreateStore(val Value, ptr Value) *Instruction {
	bb := b.requireBlock()
	if ptr.Type().Kind() != types.Pointer {
		panic(fmt.Sprintf("ir: store: %s is not a pointer", ptr.Type()))
	}
	requireType("store", val.Type(), ptr.Type().Elem())
	inst := b.newInst(OpStore, b.ctx.types.Prim(types.Void), "")
	b.addOperands(inst, val, ptr)
	bb.pushBack(inst)
	return inst
}

// CreateGEP computes a pointer into base, walked according to sourceType
// and idx. The first index scales by the size of sourceType; subsequent
// indices walk into array elements or struct members.
func (b *Builder) CreateGEP(sourceType *types.Type, base Value, idx []Value, inbounds bool, name string) *Instruction {
	bb := b.requireBlock()
	if base.Type().Kind() != types.Pointer {
		panic(fmt.Sprintf("ir: gep: base %s is not a pointer", base.Type()))
	}
	if len(idx) == 0 {
		panic("ir: gep: at least one index is required")
	}
	cur := sourceType
	for i, ix := range idx {
		if i == 0 {
			requireInteger("gep index 0", ix)
			continue
		}
		switch cur.Kind() {
		case types.Array:
			requireInteger("gep array index", ix)
			cur = cur.Elem()
		case types.Struct, types.NamedStruct:
			c, ok := ix.(*Constant)
			if !ok || !c.IsInt() {
				panic("ir: gep: struct index must be a constant integer")
			}
			n := int(c.IntValue())
			members := cur.Members()
			if n < 0 || n >= len(members) {
				panic(fmt.Sprintf("ir: gep: struct index %d out of bounds (%d members)", n, len(members)))
			}
			cur = members[n]
		default:
			panic(fmt.Sprintf("ir: gep: cannot index into %s", cur))
		}
	}
	inst := b.newInst(OpGEP, b.ctx.types.PointerTo(cur), name)
	inst.allocType = sourceType
	inst.inbounds = inbounds
	b.addOperands(inst, base)
	b.addOperands(inst, idx...)
	bb.pushBack(inst)
	return inst
}

// ---------------------------
// ----- Dataflow ops -----
// ---------------------------

// CreatePhi creates an empty phi of type t at the head of the current
// block.
func (b *Builder) CreatePhi(t *types.Type, name string) *Instruction {
	bb := b.requireBlock()
	inst := b.newInst(OpPhi, t, name)
	bb.pushFront(inst)
	return inst
}

// CreateSelect creates a select instruction choosing trueVal or falseVal
// based on cond (i1).
func (b *Builder) CreateSelect(cond, trueVal, falseVal Value, name string) *Instruction {
	bb := b.requireBlock()
	requireType("select", cond.Type(), b.ctx.types.Prim(types.I1))
	requireSameType("select", trueVal, falseVal)
	inst := b.newInst(OpSelect, trueVal.Type(), name)
	b.addOperands(inst, cond, trueVal, falseVal)
	bb.pushBack(inst)
	return inst
}

// -------------------
// ----- Calls -----
// -------------------

// CreateCall calls callee (a pointer-to-function value) with args. Arity
// and argument types must agree with the function type; a variadic
// function allows extra trailing arguments with no further type check.
func (b *Builder) CreateCall(callee Value, args []Value, name string) *Instruction {
	bb := b.requireBlock()
	if callee.Type().Kind() != types.Pointer || callee.Type().Elem().Kind() != types.Function {
		panic(fmt.Sprintf("ir: call: callee %s is not a pointer-to-function", callee.Type()))
	}
	sig := callee.Type().Elem()
	params := sig.Params()
	if len(args) < len(params) || (!sig.IsVariadic() && len(args) != len(params)) {
		panic(fmt.Sprintf("ir: call: arity mismatch: function takes %d, got %d", len(params), len(args)))
	}
	for i, p := range params {
		requireType(fmt.Sprintf("call arg %d", i), args[i].Type(), p)
	}
	inst := b.newInst(OpCall, sig.ReturnType(), name)
	inst.calleeTy = sig
	b.addOperands(inst, callee)
	b.addOperands(inst, args...)
	bb.pushBack(inst)
	return inst
}
