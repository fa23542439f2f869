package ir

import (
	"testing"

	"irlib/types"
)

// TestBuilderAddAndRet builds `ret add %a, %b` and checks the block shape
// and def-use graph it produces.
func TestBuilderAddAndRet(t *testing.T) {
	ctx := NewContext(0)
	defer ctx.Destroy()

	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32, i32}, false)
	m := NewModule(ctx, "m")
	f := m.DeclareFunction("add", sig)

	bb := f.CreateBlock(ctx, "entry")
	b := NewBuilder(ctx)
	b.SetInsertionPoint(bb)

	sum := b.CreateAdd(f.Args()[0], f.Args()[1], "sum")
	b.CreateRet(sum)

	if f.Entry() != bb {
		t.Fatal("entry block mismatch")
	}
	if bb.Terminator() == nil || bb.Terminator().Opcode() != OpRet {
		t.Fatal("block not terminated with ret")
	}
	if !HasUses(f.Args()[0]) || !HasUses(f.Args()[1]) {
		t.Fatal("arguments should have uses after being used by add")
	}
	if got := len(Uses(sum)); got != 1 {
		t.Fatalf("sum should have exactly one use (the ret), got %d", got)
	}
}

// TestReplaceAllUsesWith verifies RAUW retargets every user and leaves the
// old value with no uses.
func TestReplaceAllUsesWith(t *testing.T) {
	ctx := NewContext(0)
	defer ctx.Destroy()

	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(ctx.Types().Prim(types.Void), []*types.Type{i32}, false)
	m := NewModule(ctx, "m")
	f := m.DeclareFunction("f", sig)
	bb := f.CreateBlock(ctx, "entry")
	b := NewBuilder(ctx)
	b.SetInsertionPoint(bb)

	arg := f.Args()[0]
	add1 := b.CreateAdd(arg, arg, "a")
	add2 := b.CreateAdd(add1, add1, "b")
	b.CreateRet(nil)

	replacement := ctx.ConstInt(i32, 7)
	ReplaceAllUsesWith(add1, replacement)

	if HasUses(add1) {
		t.Fatal("add1 should have no uses after RAUW")
	}
	if add2.Operand(0) != Value(replacement) || add2.Operand(1) != Value(replacement) {
		t.Fatal("add2's operands were not retargeted to the replacement")
	}
}

// TestConstantInterning checks that equal constants of equal type are
// identical pointers.
func TestConstantInterning(t *testing.T) {
	ctx := NewContext(0)
	defer ctx.Destroy()

	i32 := ctx.Types().Prim(types.I32)
	a := ctx.ConstInt(i32, 42)
	c := ctx.ConstInt(i32, 42)
	if a != c {
		t.Fatal("equal integer constants of the same type should be interned to one instance")
	}

	u1 := ctx.ConstUndef(i32)
	u2 := ctx.ConstUndef(i32)
	if u1 != u2 {
		t.Fatal("undef should be interned per type")
	}
}

// TestCallArityAndTypeChecking exercises the Builder's call-site
// validation.
func TestCallArityAndTypeChecking(t *testing.T) {
	ctx := NewContext(0)
	defer ctx.Destroy()

	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32}, false)
	m := NewModule(ctx, "m")
	callee := m.DeclareFunction("callee", sig)

	caller := m.DeclareFunction("caller", ctx.Types().FuncType(i32, nil, false))
	bb := caller.CreateBlock(ctx, "entry")
	b := NewBuilder(ctx)
	b.SetInsertionPoint(bb)

	arg := ctx.ConstInt(i32, 1)
	call := b.CreateCall(callee, []Value{arg}, "r")
	if call.Type() != i32 {
		t.Fatal("call result type should be the callee's return type")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("wrong arity call should panic")
		}
	}()
	b.CreateCall(callee, nil, "bad")
}

// TestGEPStructIndexing exercises gep walking into a struct member, which
// requires a constant integer index.
func TestGEPStructIndexing(t *testing.T) {
	ctx := NewContext(0)
	defer ctx.Destroy()

	i32 := ctx.Types().Prim(types.I32)
	i64 := ctx.Types().Prim(types.I64)
	st := ctx.Types().StructOf([]*types.Type{i32, i64})

	sig := ctx.Types().FuncType(ctx.Types().Prim(types.Void), nil, false)
	m := NewModule(ctx, "m")
	f := m.DeclareFunction("f", sig)
	bb := f.CreateBlock(ctx, "entry")
	b := NewBuilder(ctx)
	b.SetInsertionPoint(bb)

	base := b.CreateAlloca(st, "s")
	idx0 := ctx.ConstInt(i32, 0)
	idx1 := ctx.ConstInt(i32, 1)
	gep := b.CreateGEP(st, base, []Value{idx0, idx1}, false, "p")

	if gep.Type() != ctx.Types().PointerTo(i64) {
		t.Fatalf("gep into member 1 should yield <i64>, got %s", gep.Type())
	}
}
