package interp

import (
	"testing"

	"irlib/analysis/cfg"
	"irlib/analysis/domfrontier"
	"irlib/analysis/domtree"
	"irlib/ir"
	"irlib/transform/mem2reg"
	"irlib/types"
)

func TestInterpAddition(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32, i32}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("add", sig)
	entry := f.CreateBlock(ctx, "entry")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	sum := b.CreateAdd(f.Args()[0], f.Args()[1], "sum")
	b.CreateRet(sum)

	in := NewInterpreter(m, HostLayout{}, 0)
	result, status := in.Call(f, []Value{ValueInt(I32, 2), ValueInt(I32, 3)})
	if status != OK {
		t.Fatalf("unexpected status %s", status)
	}
	if result.AsUnsigned64() != 5 {
		t.Fatalf("expected 5, got %d", result.AsUnsigned64())
	}
}

func TestInterpSDivByZero(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32, i32}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("div", sig)
	entry := f.CreateBlock(ctx, "entry")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	q := b.CreateSDiv(f.Args()[0], f.Args()[1], "q")
	b.CreateRet(q)

	in := NewInterpreter(m, HostLayout{}, 0)
	_, status := in.Call(f, []Value{ValueInt(I32, 10), ValueInt(I32, 0)})
	if status != DivByZeroSigned {
		t.Fatalf("expected DivByZeroSigned, got %s", status)
	}
}

// TestInterpDiamondWithPhi builds a diamond (entry -> then/else -> join)
// selecting between two constants via a phi, and checks the interpreter
// follows the branch taken and resolves the phi against it.
func TestInterpDiamondWithPhi(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	i1 := ctx.Types().Prim(types.I1)
	sig := ctx.Types().FuncType(i32, []*types.Type{i1}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("pick", sig)

	entry := f.CreateBlock(ctx, "entry")
	then := f.CreateBlock(ctx, "then")
	els := f.CreateBlock(ctx, "else")
	join := f.CreateBlock(ctx, "join")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	b.CreateCondBr(f.Args()[0], then, els)

	b.SetInsertionPoint(then)
	b.CreateBr(join)

	b.SetInsertionPoint(els)
	b.CreateBr(join)

	b.SetInsertionPoint(join)
	phi := b.CreatePhi(i32, "v")
	phi.AddIncoming(ctx.ConstInt(i32, 10), then)
	phi.AddIncoming(ctx.ConstInt(i32, 20), els)
	b.CreateRet(phi)

	in := NewInterpreter(m, HostLayout{}, 0)

	res, status := in.Call(f, []Value{ValueBool(true)})
	if status != OK || res.AsUnsigned64() != 10 {
		t.Fatalf("true branch: got %d, status %s", res.AsUnsigned64(), status)
	}
	res, status = in.Call(f, []Value{ValueBool(false)})
	if status != OK || res.AsUnsigned64() != 20 {
		t.Fatalf("false branch: got %d, status %s", res.AsUnsigned64(), status)
	}
}

// TestInterpAllocaLoadStore checks a round trip through stack memory.
func TestInterpAllocaLoadStore(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("roundtrip", sig)
	entry := f.CreateBlock(ctx, "entry")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	slot := b.CreateAlloca(i32, "slot")
	b.CreateStore(f.Args()[0], slot)
	loaded := b.CreateLoad(slot, "v")
	b.CreateRet(loaded)

	in := NewInterpreter(m, HostLayout{}, 0)
	res, status := in.Call(f, []Value{ValueInt(I32, 42)})
	if status != OK || res.AsUnsigned64() != 42 {
		t.Fatalf("got %d, status %s", res.AsUnsigned64(), status)
	}
}

// TestInterpGEPStructMember checks GEP into a struct member followed by a
// load recovers the stored value.
func TestInterpGEPStructMember(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	i64 := ctx.Types().Prim(types.I64)
	st := ctx.Types().StructOf([]*types.Type{i32, i64})
	sig := ctx.Types().FuncType(i64, []*types.Type{i64}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("getfield", sig)
	entry := f.CreateBlock(ctx, "entry")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	base := b.CreateAlloca(st, "s")
	field := b.CreateGEP(st, base, []ir.Value{ctx.ConstInt(i32, 0), ctx.ConstInt(i32, 1)}, false, "field")
	b.CreateStore(f.Args()[0], field)
	loaded := b.CreateLoad(field, "v")
	b.CreateRet(loaded)

	in := NewInterpreter(m, HostLayout{}, 0)
	res, status := in.Call(f, []Value{ValueInt(I64, 0xdeadbeef)})
	if status != OK || res.AsUnsigned64() != 0xdeadbeef {
		t.Fatalf("got %#x, status %s", res.AsUnsigned64(), status)
	}
}

// TestInterpFFI checks that a declaration dispatches to its registered
// host function.
func TestInterpFFI(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32}, false)
	m := ir.NewModule(ctx, "m")
	double := m.DeclareFunction("host_double", sig)

	caller := m.DeclareFunction("caller", sig)
	entry := caller.CreateBlock(ctx, "entry")
	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	res := b.CreateCall(double, []ir.Value{caller.Args()[0]}, "r")
	b.CreateRet(res)

	in := NewInterpreter(m, HostLayout{}, 0)
	in.RegisterExternFunc("host_double", func(in *Interpreter, args []Value) (Value, Status) {
		return ValueInt(I32, args[0].AsUnsigned64()*2), OK
	})

	out, status := in.Call(caller, []Value{ValueInt(I32, 21)})
	if status != OK || out.AsUnsigned64() != 42 {
		t.Fatalf("got %d, status %s", out.AsUnsigned64(), status)
	}
}

// TestInterpGlobalStringRead checks that a global string constant is
// materialized into its backing storage and readable through GEP+load,
// byte by byte.
func TestInterpGlobalStringRead(t *testing.T) {
	ctx := ir.NewContext(0)
	i8 := ctx.Types().Prim(types.I8)
	i64 := ctx.Types().Prim(types.I64)
	sig := ctx.Types().FuncType(i8, []*types.Type{i64}, false)
	m := ir.NewModule(ctx, "m")
	g := m.CreateGlobalString("greeting", "hi")

	f := m.DeclareFunction("byteAt", sig)
	entry := f.CreateBlock(ctx, "entry")
	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	zero := ctx.ConstInt(i64, 0)
	ptr := b.CreateGEP(g.PointeeType(), ir.Value(g), []ir.Value{zero, f.Args()[0]}, false, "p")
	loaded := b.CreateLoad(ptr, "v")
	b.CreateRet(loaded)

	in := NewInterpreter(m, HostLayout{}, 0)
	res, status := in.Call(f, []Value{ValueInt(I64, 0)})
	if status != OK || res.AsUnsigned64() != 'h' {
		t.Fatalf("byte 0: got %d, status %s", res.AsUnsigned64(), status)
	}
	res, status = in.Call(f, []Value{ValueInt(I64, 2)})
	if status != OK || res.AsUnsigned64() != 0 {
		t.Fatalf("byte 2 (NUL terminator): got %d, status %s", res.AsUnsigned64(), status)
	}
}

// TestInterpLoopWithPhi counts 0 to 9 through a header/body loop driven by
// an induction phi and icmp slt, checking the back edge resolves the phi
// against the body block each iteration.
func TestInterpLoopWithPhi(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, nil, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("count", sig)

	entry := f.CreateBlock(ctx, "entry")
	header := f.CreateBlock(ctx, "header")
	body := f.CreateBlock(ctx, "body")
	exit := f.CreateBlock(ctx, "exit")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	b.CreateBr(header)

	b.SetInsertionPoint(header)
	i := b.CreatePhi(i32, "i")
	cond := b.CreateICmp(ir.ISLT, i, ctx.ConstInt(i32, 10), "cond")
	b.CreateCondBr(cond, body, exit)

	b.SetInsertionPoint(body)
	next := b.CreateAdd(i, ctx.ConstInt(i32, 1), "next")
	b.CreateBr(header)

	b.SetInsertionPoint(exit)
	b.CreateRet(i)

	i.AddIncoming(ctx.ConstInt(i32, 0), entry)
	i.AddIncoming(next, body)

	in := NewInterpreter(m, HostLayout{}, 0)
	res, status := in.Call(f, nil)
	if status != OK || res.AsUnsigned64() != 10 {
		t.Fatalf("expected 10, got %d (status %s)", res.AsUnsigned64(), status)
	}
}

// TestInterpSwitch checks case selection in declaration order and the
// default fallback.
func TestInterpSwitch(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("sel", sig)

	entry := f.CreateBlock(ctx, "entry")
	c1 := f.CreateBlock(ctx, "c1")
	c2 := f.CreateBlock(ctx, "c2")
	def := f.CreateBlock(ctx, "d")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	b.CreateSwitch(f.Args()[0], def, []struct {
		Val  *ir.Constant
		Dest *ir.BasicBlock
	}{
		{ctx.ConstInt(i32, 10), c1},
		{ctx.ConstInt(i32, 20), c2},
	})

	b.SetInsertionPoint(c1)
	b.CreateRet(ctx.ConstInt(i32, 100))
	b.SetInsertionPoint(c2)
	b.CreateRet(ctx.ConstInt(i32, 200))
	b.SetInsertionPoint(def)
	b.CreateRet(ctx.ConstInt(i32, 0xffffffff)) // -1: i32

	in := NewInterpreter(m, HostLayout{}, 0)
	for _, tc := range []struct {
		arg  uint64
		want int64
	}{
		{10, 100}, {20, 200}, {7, -1},
	} {
		res, status := in.Call(f, []Value{ValueInt(I32, tc.arg)})
		if status != OK || res.AsSigned64() != tc.want {
			t.Fatalf("switch(%d): expected %d, got %d (status %s)", tc.arg, tc.want, res.AsSigned64(), status)
		}
	}
}

// TestInterpDiamondAfterMem2reg builds the alloca/store/load diamond,
// promotes it, and checks the promoted function still computes the same
// result the memory-based one would have.
func TestInterpDiamondAfterMem2reg(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	i1 := ctx.Types().Prim(types.I1)
	sig := ctx.Types().FuncType(i32, []*types.Type{i1}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("diamond", sig)

	entry := f.CreateBlock(ctx, "entry")
	then := f.CreateBlock(ctx, "then")
	els := f.CreateBlock(ctx, "else")
	merge := f.CreateBlock(ctx, "merge")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	x := b.CreateAlloca(i32, "x")
	b.CreateStore(ctx.ConstInt(i32, 10), x)
	b.CreateCondBr(f.Args()[0], then, els)

	b.SetInsertionPoint(then)
	b.CreateStore(ctx.ConstInt(i32, 20), x)
	b.CreateBr(merge)

	b.SetInsertionPoint(els)
	b.CreateStore(ctx.ConstInt(i32, 30), x)
	b.CreateBr(merge)

	b.SetInsertionPoint(merge)
	v := b.CreateLoad(x, "v")
	b.CreateRet(v)

	g := cfg.Build(f)
	defer g.Destroy()
	tree := domtree.Build(g)
	df := domfrontier.Build(g, tree)
	if !mem2reg.Run(f, ctx, g, tree, df) {
		t.Fatal("mem2reg should promote the diamond's alloca")
	}

	in := NewInterpreter(m, HostLayout{}, 0)
	res, status := in.Call(f, []Value{ValueBool(true)})
	if status != OK || res.AsUnsigned64() != 20 {
		t.Fatalf("true branch after promotion: expected 20, got %d (status %s)", res.AsUnsigned64(), status)
	}
	res, status = in.Call(f, []Value{ValueBool(false)})
	if status != OK || res.AsUnsigned64() != 30 {
		t.Fatalf("false branch after promotion: expected 30, got %d (status %s)", res.AsUnsigned64(), status)
	}
}

// TestInterpGEPNestedAggregates builds %point = { i32, i64 } nested inside
// %packet = { %point, [10 x i32] } and checks a store/load through a GEP
// into the array member at a dynamic index.
func TestInterpGEPNestedAggregates(t *testing.T) {
	ctx := ir.NewContext(0)
	i32 := ctx.Types().Prim(types.I32)
	i64 := ctx.Types().Prim(types.I64)

	point := ctx.Types().DeclareNamed("point")
	if err := ctx.Types().SetBody(point, []*types.Type{i32, i64}); err != nil {
		t.Fatal(err)
	}
	packet := ctx.Types().DeclareNamed("packet")
	if err := ctx.Types().SetBody(packet, []*types.Type{point, ctx.Types().ArrayOf(i32, 10)}); err != nil {
		t.Fatal(err)
	}

	sig := ctx.Types().FuncType(i32, []*types.Type{i64}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("poke", sig)
	entry := f.CreateBlock(ctx, "entry")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	p := b.CreateAlloca(packet, "p")
	zero := ctx.ConstInt(i64, 0)
	one := ctx.ConstInt(i32, 1)
	slot := b.CreateGEP(packet, p, []ir.Value{zero, one, f.Args()[0]}, true, "slot")
	b.CreateStore(ctx.ConstInt(i32, 123), slot)
	loaded := b.CreateLoad(slot, "v")
	b.CreateRet(loaded)

	in := NewInterpreter(m, HostLayout{}, 0)
	res, status := in.Call(f, []Value{ValueInt(I64, 4)})
	if status != OK || res.AsUnsigned64() != 123 {
		t.Fatalf("expected 123, got %d (status %s)", res.AsUnsigned64(), status)
	}
}

// TestInterpUnregisteredExternFails checks calling an unregistered
// declaration reports InvalidPointer.
func TestInterpUnregisteredExternFails(t *testing.T) {
	ctx := ir.NewContext(0)
	void := ctx.Types().Prim(types.Void)
	sig := ctx.Types().FuncType(void, nil, false)
	m := ir.NewModule(ctx, "m")
	decl := m.DeclareFunction("missing", sig)

	in := NewInterpreter(m, HostLayout{}, 0)
	_, status := in.Call(decl, nil)
	if status != InvalidPointer {
		t.Fatalf("expected InvalidPointer, got %s", status)
	}
}
