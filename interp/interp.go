// Package interp is a tree-walking interpreter for verified functions:
// per-call value frame and stack arena, a persistent global-storage map,
// and an external-function table for FFI declarations.
package interp

import (
	"fmt"
	"math"
	"unsafe"

	"irlib/internal/arena"
	"irlib/ir"
	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Status is the outermost result of one call, propagated from whichever
// basic block executor first failed. A non-OK status aborts the call
// chain up to its originating Call.
type Status uint8

const (
	OK Status = iota
	DivByZeroSigned
	DivByZeroUnsigned
	DivByZeroFloat
	StackOverflow
	InvalidPointer
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case DivByZeroSigned:
		return "signed division by zero"
	case DivByZeroUnsigned:
		return "unsigned division by zero"
	case DivByZeroFloat:
		return "float division by zero"
	case StackOverflow:
		return "stack overflow"
	case InvalidPointer:
		return "invalid pointer"
	}
	return "unknown interpreter status"
}

// ExternFunc is the Go-side shape of an external function: the slice
// carries its own length and the second return value stands in for an
// out-parameter. The callee validates its own arity/argument types and
// calls Interpreter.SetError before returning a non-OK Status.
type ExternFunc func(in *Interpreter, args []Value) (Value, Status)

// Interpreter owns one Module's global storage and external-function
// table, shared across every Call made against it. Calls into
// declarations dispatch through the host-function table instead of
// recursing.
type Interpreter struct {
	module   *ir.Module
	layout   Layout
	stackCap uintptr

	globalArena *arena.Arena
	globals     map[*ir.GlobalVariable]unsafe.Pointer
	externs     map[string]ExternFunc

	errMsg string
}

// call is the per-invocation execution state: its frame and its stack
// arena. Runtime Values are fixed-size structs the Frame's map holds and
// the GC reclaims at return; alloca'd storage is genuinely
// byte-addressable memory, so it gets a real size-capped arena.
type call struct {
	in    *Interpreter
	f     *ir.Function
	frame *Frame
	stack *arena.Arena
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewInterpreter creates an Interpreter over m, eagerly allocating and
// initializing every global variable's storage. stackCap bounds each
// call's simulated stack (0 is unbounded).
func NewInterpreter(m *ir.Module, layout Layout, stackCap uintptr) *Interpreter {
	if layout == nil {
		layout = HostLayout{}
	}
	in := &Interpreter{
		module:      m,
		layout:      layout,
		stackCap:    stackCap,
		globalArena: arena.New(0),
		globals:     make(map[*ir.GlobalVariable]unsafe.Pointer, 8),
		externs:     make(map[string]ExternFunc, 8),
	}
	for _, g := range m.Globals() {
		size, align := layout.Layout(g.PointeeType())
		p := in.globalArena.Alloc(size, align)
		if p == nil {
			panic("interp: failed to allocate storage for global " + g.Name())
		}
		if c := g.Initializer(); c != nil {
			if c.IsArray() {
				dst := unsafe.Slice((*byte)(p), size)
				copy(dst, c.Bytes())
			} else {
				in.storeValue(p, g.PointeeType(), constantValue(c))
			}
		}
		in.globals[g] = p
	}
	return in
}

// RegisterExternFunc binds name (a declaration in the Interpreter's
// Module) to a host implementation. Calling an unregistered declaration
// fails with InvalidPointer.
func (in *Interpreter) RegisterExternFunc(name string, fn ExternFunc) {
	in.externs[name] = fn
}

// SetError records msg as the reason the most recent FFI call returned a
// non-OK status.
func (in *Interpreter) SetError(msg string) { in.errMsg = msg }

// ErrorMessage returns the message set by the most recent SetError call,
// or "" if none was set since the last successful call.
func (in *Interpreter) ErrorMessage() string { return in.errMsg }

// GlobalAddress returns the host address backing g.
func (in *Interpreter) GlobalAddress(g *ir.GlobalVariable) unsafe.Pointer {
	return in.globals[g]
}

// Call invokes f with args, recursing into the interpreter for a
// definition or dispatching to a registered host function for a
// declaration.
func (in *Interpreter) Call(f *ir.Function, args []Value) (Value, Status) {
	if f.IsDeclaration() {
		fn, ok := in.externs[f.Name()]
		if !ok {
			in.errMsg = fmt.Sprintf("interp: call to unregistered external function %s", f.Name())
			return Value{}, InvalidPointer
		}
		return fn(in, args)
	}
	cl := &call{in: in, f: f, frame: newFrame(args), stack: arena.New(in.stackCap)}
	defer cl.stack.Destroy()
	ret, status := cl.run()
	switch {
	case status == OK:
		in.errMsg = ""
	case in.errMsg == "":
		in.errMsg = fmt.Sprintf("interp: %s in function %s", status, f.Name())
	}
	return ret, status
}

// run executes f's basic blocks one at a time until a ret is reached or a
// Status other than OK is raised.
func (c *call) run() (Value, Status) {
	var prev *ir.BasicBlock
	block := c.f.Entry()
	for {
		next, ret, done, status := c.execBlock(block, prev)
		if status != OK {
			return Value{}, status
		}
		if done {
			return ret, OK
		}
		prev = block
		block = next
	}
}

// execBlock runs every instruction of block in order (resolving phis
// against prev) and returns once its terminator fires.
func (c *call) execBlock(block, prev *ir.BasicBlock) (next *ir.BasicBlock, ret Value, done bool, status Status) {
	for i := block.Front(); i != nil; i = ir.NextInstruction(i) {
		if i.Opcode() == ir.OpPhi {
			c.execPhi(i, prev)
			continue
		}
		if i.Opcode().IsTerminator() {
			return c.execTerminator(i)
		}
		rv, st := c.execInst(i)
		if st != OK {
			return nil, Value{}, false, st
		}
		if i.Type().Kind() != types.Void {
			c.frame.Set(i, rv)
		}
	}
	panic("interp: block " + block.Name() + " has no terminator")
}

// val resolves an operand to its runtime value: a global reads the
// interpreter's global-storage map, anything else goes through the
// call's frame.
func (c *call) val(v ir.Value) Value {
	if g, ok := v.(*ir.GlobalVariable); ok {
		return ValuePtr(c.in.globals[g])
	}
	return c.frame.Get(v)
}

func (c *call) execPhi(i *ir.Instruction, prev *ir.BasicBlock) {
	for n := 0; n < i.NumIncoming(); n++ {
		val, pred := i.Incoming(n)
		if pred == prev {
			c.frame.Set(i, c.val(val))
			return
		}
	}
	panic("interp: phi " + i.Name() + " has no incoming value for its predecessor")
}

// execTerminator evaluates i (one of ret/br/cond_br/switch) and reports
// where control goes next. Switch scans its cases in declaration order
// before falling back to the default target.
func (c *call) execTerminator(i *ir.Instruction) (*ir.BasicBlock, Value, bool, Status) {
	switch i.Opcode() {
	case ir.OpRet:
		if i.NumOperands() == 0 {
			return nil, Value{}, true, OK
		}
		return nil, c.val(i.Operand(0)), true, OK
	case ir.OpBr:
		return i.Operand(0).(*ir.BasicBlock), Value{}, false, OK
	case ir.OpCondBr:
		cond := c.val(i.Operand(0))
		if cond.AsUnsigned64() != 0 {
			return i.Operand(1).(*ir.BasicBlock), Value{}, false, OK
		}
		return i.Operand(2).(*ir.BasicBlock), Value{}, false, OK
	case ir.OpSwitch:
		cond := c.val(i.Operand(0))
		for n := 0; n < i.NumCases(); n++ {
			caseConst, dest := i.Case(n)
			if caseConst.IntValue() == cond.AsUnsigned64() {
				return dest, Value{}, false, OK
			}
		}
		return i.Operand(1).(*ir.BasicBlock), Value{}, false, OK
	}
	panic(fmt.Sprintf("interp: %s is not a terminator", i.Opcode()))
}

// execInst evaluates every non-terminator, non-phi opcode.
func (c *call) execInst(i *ir.Instruction) (Value, Status) {
	switch i.Opcode() {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
		ir.OpShl, ir.OpLShr, ir.OpAShr, ir.OpAnd, ir.OpOr, ir.OpXor:
		return c.execIntBinOp(i)
	case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv:
		a := c.val(i.Operand(0)).AsFloat64()
		b := c.val(i.Operand(1)).AsFloat64()
		if i.Opcode() == ir.OpFDiv && b == 0 {
			return Value{}, DivByZeroFloat
		}
		return execFloatBinOp(i.Opcode(), valueKindOf(i.Type()), a, b), OK
	case ir.OpICmp:
		return ValueBool(evalICmp(i.IntPredicate(), c.val(i.Operand(0)), c.val(i.Operand(1)))), OK
	case ir.OpFCmp:
		a := c.val(i.Operand(0)).AsFloat64()
		b := c.val(i.Operand(1)).AsFloat64()
		return ValueBool(evalFCmp(i.FloatPredicate(), a, b)), OK
	case ir.OpTrunc, ir.OpZExt, ir.OpSExt, ir.OpFPTrunc, ir.OpFPExt, ir.OpFPToUI,
		ir.OpFPToSI, ir.OpUIToFP, ir.OpSIToFP, ir.OpPtrToInt, ir.OpIntToPtr, ir.OpBitcast:
		return c.execCast(i), OK
	case ir.OpAlloca:
		return c.execAlloca(i)
	case ir.OpLoad:
		ptr := c.val(i.Operand(0)).Ptr()
		return c.in.loadValue(ptr, i.Type()), OK
	case ir.OpStore:
		valOperand := i.Operand(0)
		ptr := c.val(i.Operand(1)).Ptr()
		c.in.storeValue(ptr, valOperand.Type(), c.val(valOperand))
		return Value{}, OK
	case ir.OpGEP:
		return c.execGEP(i), OK
	case ir.OpSelect:
		cond := c.val(i.Operand(0))
		if cond.AsUnsigned64() != 0 {
			return c.val(i.Operand(1)), OK
		}
		return c.val(i.Operand(2)), OK
	case ir.OpCall:
		return c.execCall(i)
	}
	panic(fmt.Sprintf("interp: unhandled opcode %s", i.Opcode()))
}

func (c *call) execAlloca(i *ir.Instruction) (Value, Status) {
	size, align := c.in.layout.Layout(i.AllocType())
	p := c.stack.Alloc(size, align)
	if p == nil {
		return Value{}, StackOverflow
	}
	return ValuePtr(p), OK
}

// execGEP walks the source type index by index: the first index advances
// by index * sizeof(source_type); subsequent indices walk into array
// elements or struct members.
func (c *call) execGEP(i *ir.Instruction) Value {
	base := c.val(i.Operand(0)).Ptr()
	cur := i.AllocType()
	elemSize, _ := c.in.layout.Layout(cur)

	idx0 := c.val(i.Operand(1))
	offset := uintptr(idx0.AsSigned64() * int64(elemSize))

	for k := 2; k < i.NumOperands(); k++ {
		ix := c.val(i.Operand(k))
		switch cur.Kind() {
		case types.Array:
			elem := cur.Elem()
			es, _ := c.in.layout.Layout(elem)
			offset += uintptr(ix.AsSigned64() * int64(es))
			cur = elem
		case types.Struct, types.NamedStruct:
			n := int(ix.AsSigned64())
			offset += c.in.layout.MemberOffset(cur, n)
			cur = cur.Members()[n]
		default:
			panic(fmt.Sprintf("interp: gep: cannot index into %s", cur))
		}
	}
	return ValuePtr(unsafe.Add(base, offset))
}

func (c *call) execCall(i *ir.Instruction) (Value, Status) {
	callee, ok := i.Callee().(*ir.Function)
	if !ok {
		return Value{}, InvalidPointer
	}
	args := i.Args()
	argVals := make([]Value, len(args))
	for idx, a := range args {
		argVals[idx] = c.val(a)
	}
	return c.in.Call(callee, argVals)
}

// loadValue / storeValue copy sizeof(type) bytes between a runtime
// Value's inline payload and the pointer target.
func (in *Interpreter) loadValue(ptr unsafe.Pointer, t *types.Type) Value {
	switch t.Kind() {
	case types.I1:
		return ValueBool(*(*uint8)(ptr) != 0)
	case types.I8:
		return ValueInt(I8, uint64(*(*uint8)(ptr)))
	case types.I16:
		return ValueInt(I16, uint64(*(*uint16)(ptr)))
	case types.I32:
		return ValueInt(I32, uint64(*(*uint32)(ptr)))
	case types.I64:
		return ValueInt(I64, *(*uint64)(ptr))
	case types.F32:
		return ValueFloat(F32, float64(*(*float32)(ptr)))
	case types.F64:
		return ValueFloat(F64, *(*float64)(ptr))
	case types.Pointer:
		return ValuePtr(*(*unsafe.Pointer)(ptr))
	}
	panic(fmt.Sprintf("interp: load of non-scalar type %s", t))
}

func (in *Interpreter) storeValue(ptr unsafe.Pointer, t *types.Type, v Value) {
	switch t.Kind() {
	case types.I1, types.I8:
		*(*uint8)(ptr) = uint8(v.AsUnsigned64())
	case types.I16:
		*(*uint16)(ptr) = uint16(v.AsUnsigned64())
	case types.I32:
		*(*uint32)(ptr) = uint32(v.AsUnsigned64())
	case types.I64:
		*(*uint64)(ptr) = v.AsUnsigned64()
	case types.F32:
		*(*float32)(ptr) = float32(v.AsFloat64())
	case types.F64:
		*(*float64)(ptr) = v.AsFloat64()
	case types.Pointer:
		*(*unsafe.Pointer)(ptr) = v.Ptr()
	default:
		panic(fmt.Sprintf("interp: store of non-scalar type %s", t))
	}
}

// execIntBinOp promotes both operands to 64 bits (signed or unsigned per
// opcode), computes, then truncates to the destination width.
func (c *call) execIntBinOp(i *ir.Instruction) (Value, Status) {
	lhs := c.val(i.Operand(0))
	rhs := c.val(i.Operand(1))
	dest := valueKindOf(i.Type())
	switch i.Opcode() {
	case ir.OpAdd:
		return ValueInt(dest, lhs.AsUnsigned64()+rhs.AsUnsigned64()), OK
	case ir.OpSub:
		return ValueInt(dest, lhs.AsUnsigned64()-rhs.AsUnsigned64()), OK
	case ir.OpMul:
		return ValueInt(dest, lhs.AsUnsigned64()*rhs.AsUnsigned64()), OK
	case ir.OpUDiv:
		if rhs.AsUnsigned64() == 0 {
			return Value{}, DivByZeroUnsigned
		}
		return ValueInt(dest, lhs.AsUnsigned64()/rhs.AsUnsigned64()), OK
	case ir.OpSDiv:
		if rhs.AsSigned64() == 0 {
			return Value{}, DivByZeroSigned
		}
		return ValueInt(dest, uint64(lhs.AsSigned64()/rhs.AsSigned64())), OK
	case ir.OpURem:
		if rhs.AsUnsigned64() == 0 {
			return Value{}, DivByZeroUnsigned
		}
		return ValueInt(dest, lhs.AsUnsigned64()%rhs.AsUnsigned64()), OK
	case ir.OpSRem:
		if rhs.AsSigned64() == 0 {
			return Value{}, DivByZeroSigned
		}
		return ValueInt(dest, uint64(lhs.AsSigned64()%rhs.AsSigned64())), OK
	case ir.OpShl:
		return ValueInt(dest, lhs.AsUnsigned64()<<uint(rhs.AsUnsigned64()&63)), OK
	case ir.OpLShr:
		return ValueInt(dest, lhs.AsUnsigned64()>>uint(rhs.AsUnsigned64()&63)), OK
	case ir.OpAShr:
		return ValueInt(dest, uint64(lhs.AsSigned64()>>uint(rhs.AsUnsigned64()&63))), OK
	case ir.OpAnd:
		return ValueInt(dest, lhs.AsUnsigned64()&rhs.AsUnsigned64()), OK
	case ir.OpOr:
		return ValueInt(dest, lhs.AsUnsigned64()|rhs.AsUnsigned64()), OK
	case ir.OpXor:
		return ValueInt(dest, lhs.AsUnsigned64()^rhs.AsUnsigned64()), OK
	}
	panic(fmt.Sprintf("interp: %s is not an integer binary op", i.Opcode()))
}

func execFloatBinOp(op ir.Opcode, dest ValueKind, a, b float64) Value {
	switch op {
	case ir.OpFAdd:
		return ValueFloat(dest, a+b)
	case ir.OpFSub:
		return ValueFloat(dest, a-b)
	case ir.OpFMul:
		return ValueFloat(dest, a*b)
	case ir.OpFDiv:
		return ValueFloat(dest, a/b)
	}
	panic(fmt.Sprintf("interp: %s is not a float binary op", op))
}

// evalICmp compares on signed or unsigned 64-bit views per predicate.
func evalICmp(pred ir.IntPredicate, a, b Value) bool {
	switch pred {
	case ir.IEQ:
		return a.AsUnsigned64() == b.AsUnsigned64()
	case ir.INE:
		return a.AsUnsigned64() != b.AsUnsigned64()
	case ir.ISGT:
		return a.AsSigned64() > b.AsSigned64()
	case ir.ISGE:
		return a.AsSigned64() >= b.AsSigned64()
	case ir.ISLT:
		return a.AsSigned64() < b.AsSigned64()
	case ir.ISLE:
		return a.AsSigned64() <= b.AsSigned64()
	case ir.IUGT:
		return a.AsUnsigned64() > b.AsUnsigned64()
	case ir.IUGE:
		return a.AsUnsigned64() >= b.AsUnsigned64()
	case ir.IULT:
		return a.AsUnsigned64() < b.AsUnsigned64()
	case ir.IULE:
		return a.AsUnsigned64() <= b.AsUnsigned64()
	}
	panic(fmt.Sprintf("interp: unknown int predicate %d", pred))
}

// evalFCmp tests NaN (unordered) and combines with ordered/unordered per
// predicate.
func evalFCmp(pred ir.FloatPredicate, a, b float64) bool {
	switch pred {
	case ir.FTrue:
		return true
	case ir.FFalse:
		return false
	}
	nan := math.IsNaN(a) || math.IsNaN(b)
	if pred == ir.FORD {
		return !nan
	}
	if pred == ir.FUNO {
		return nan
	}
	var cmp bool
	switch pred {
	case ir.FOEQ, ir.FUEQ:
		cmp = a == b
	case ir.FONE, ir.FUNE:
		cmp = a != b
	case ir.FOGT, ir.FUGT:
		cmp = a > b
	case ir.FOGE, ir.FUGE:
		cmp = a >= b
	case ir.FOLT, ir.FULT:
		cmp = a < b
	case ir.FOLE, ir.FULE:
		cmp = a <= b
	default:
		panic(fmt.Sprintf("interp: unknown float predicate %d", pred))
	}
	switch pred {
	case ir.FOEQ, ir.FONE, ir.FOGT, ir.FOGE, ir.FOLT, ir.FOLE:
		return !nan && cmp
	default:
		return nan || cmp
	}
}

// execCast dispatches each of the twelve cast opcodes over the union of
// signed-64, unsigned-64, and double views of the source.
func (c *call) execCast(i *ir.Instruction) Value {
	v := c.val(i.Operand(0))
	dest := valueKindOf(i.Type())
	switch i.Opcode() {
	case ir.OpTrunc, ir.OpZExt:
		return ValueInt(dest, v.AsUnsigned64())
	case ir.OpSExt:
		return ValueInt(dest, uint64(v.AsSigned64()))
	case ir.OpFPTrunc, ir.OpFPExt:
		return ValueFloat(dest, v.AsFloat64())
	case ir.OpFPToUI:
		return ValueInt(dest, uint64(v.AsFloat64()))
	case ir.OpFPToSI:
		return ValueInt(dest, uint64(int64(v.AsFloat64())))
	case ir.OpUIToFP:
		return ValueFloat(dest, float64(v.AsUnsigned64()))
	case ir.OpSIToFP:
		return ValueFloat(dest, float64(v.AsSigned64()))
	case ir.OpPtrToInt:
		return ValueInt(dest, v.AsUnsigned64())
	case ir.OpIntToPtr:
		return ValuePtr(unsafe.Pointer(uintptr(v.AsUnsigned64())))
	case ir.OpBitcast:
		return valueFromRawBits(rawBitsOf(v), dest)
	}
	panic(fmt.Sprintf("interp: %s is not a cast", i.Opcode()))
}

// rawBitsOf / valueFromRawBits implement bitcast's same-size byte-level
// copy by routing every kind through a common 64-bit bit-pattern
// representation.
func rawBitsOf(v Value) uint64 {
	switch v.Kind() {
	case F32:
		return uint64(math.Float32bits(float32(v.f)))
	case F64:
		return math.Float64bits(v.f)
	default:
		return v.AsUnsigned64()
	}
}

func valueFromRawBits(bits uint64, dest ValueKind) Value {
	switch dest {
	case F32:
		return ValueFloat(F32, float64(math.Float32frombits(uint32(bits))))
	case F64:
		return ValueFloat(F64, math.Float64frombits(bits))
	case Ptr:
		return ValuePtr(unsafe.Pointer(uintptr(bits)))
	default:
		return ValueInt(dest, bits)
	}
}
