package domtree

import (
	"testing"

	"irlib/analysis/cfg"
	"irlib/ir"
	"irlib/types"
)

func buildDiamondCFG(t *testing.T) *cfg.CFG {
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

	return cfg.Build(f)
}

func TestDiamondIdoms(t *testing.T) {
	g := buildDiamondCFG(t)
	defer g.Destroy()
	tree := Build(g)

	entry := tree.Node(g.Nodes[0])
	then := tree.Node(g.Nodes[1])
	els := tree.Node(g.Nodes[2])
	join := tree.Node(g.Nodes[3])

	if tree.Root() != entry {
		t.Fatal("root should be the entry node")
	}
	if then.Idom != entry || els.Idom != entry {
		t.Fatal("then/else should be immediately dominated by entry")
	}
	// join is reached from both then and else, so its idom is entry, not
	// either branch.
	if join.Idom != entry {
		t.Fatalf("join's idom should be entry (join is reachable via two paths), got block %v", join.Idom)
	}
	if !tree.Dominates(entry, join) {
		t.Fatal("entry should dominate join")
	}
	if tree.Dominates(then, join) {
		t.Fatal("then should not dominate join (else bypasses it)")
	}
}

func TestLinearChainIdoms(t *testing.T) {
	ctx := ir.NewContext(0)
	sig := ctx.Types().FuncType(ctx.Types().Prim(types.Void), nil, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("f", sig)

	a := f.CreateBlock(ctx, "a")
	bl := f.CreateBlock(ctx, "b")
	c := f.CreateBlock(ctx, "c")

	bd := ir.NewBuilder(ctx)
	bd.SetInsertionPoint(a)
	bd.CreateBr(bl)
	bd.SetInsertionPoint(bl)
	bd.CreateBr(c)
	bd.SetInsertionPoint(c)
	bd.CreateRet(nil)

	g := cfg.Build(f)
	defer g.Destroy()
	tree := Build(g)

	na, nb, nc := tree.Node(g.Nodes[0]), tree.Node(g.Nodes[1]), tree.Node(g.Nodes[2])
	if nb.Idom != na || nc.Idom != nb {
		t.Fatal("linear chain should have each block idom'd by its direct predecessor")
	}
}
