package cfg

import (
	"testing"

	"irlib/ir"
	"irlib/types"
)

// buildDiamond builds:
//
//	entry -> then, else
//	then -> join
//	else -> join
//	join -> ret
func buildDiamond(t *testing.T) (*ir.Function, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock, *ir.BasicBlock) {
	t.Helper()
	ctx := ir.NewContext(0)
	i1 := ctx.Types().Prim(types.I1)
	sig := ctx.Types().FuncType(ctx.Types().Prim(types.Void), []*types.Type{i1}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("f", sig)

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
	b.CreateRet(nil)

	return f, entry, then, els, join
}

func TestBuildDiamond(t *testing.T) {
	f, entry, then, els, join := buildDiamond(t)
	g := Build(f)
	defer g.Destroy()

	if g.Len() != 4 {
		t.Fatalf("expected 4 nodes, got %d", g.Len())
	}
	en := g.Node(entry)
	if len(en.Successors) != 2 {
		t.Fatalf("entry should have 2 successors, got %d", len(en.Successors))
	}
	jn := g.Node(join)
	if len(jn.Predecessors) != 2 {
		t.Fatalf("join should have 2 predecessors, got %d", len(jn.Predecessors))
	}
	if g.Node(then) == nil || g.Node(els) == nil {
		t.Fatal("then/else nodes missing")
	}
}

func TestCondBrSameTargetDeduplicates(t *testing.T) {
	ctx := ir.NewContext(0)
	i1 := ctx.Types().Prim(types.I1)
	sig := ctx.Types().FuncType(ctx.Types().Prim(types.Void), []*types.Type{i1}, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("f", sig)
	entry := f.CreateBlock(ctx, "entry")
	target := f.CreateBlock(ctx, "target")

	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(entry)
	b.CreateCondBr(f.Args()[0], target, target)
	b.SetInsertionPoint(target)
	b.CreateRet(nil)

	g := Build(f)
	defer g.Destroy()
	en := g.Node(entry)
	if len(en.Successors) != 1 {
		t.Fatalf("identical then/else targets should dedupe to 1 edge, got %d", len(en.Successors))
	}
}
