package printer

import (
	"strings"
	"testing"

	"irlib/asm/parser"
	"irlib/ir"
	"irlib/types"
)

// TestPrintRoundTripsThroughParser builds a small module with the Builder
// API, prints it, and checks the printed text re-parses into an
// equivalent module.
func TestPrintRoundTripsThroughParser(t *testing.T) {
	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, []*types.Type{i32, i32}, false)
	m := ir.NewModule(ctx, "roundtrip")
	f := m.DeclareFunction("add", sig)
	bb := f.CreateBlock(ctx, "entry")
	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(bb)
	sum := b.CreateAdd(f.Args()[0], f.Args()[1], "sum")
	b.CreateRet(sum)

	text := Print(m)
	if !strings.Contains(text, "define i32 @add(") {
		t.Fatalf("printed text missing function header:\n%s", text)
	}

	ctx2 := ir.NewContext(0)
	defer ctx2.Destroy()
	reparsed, err := parser.Parse(ctx2, text)
	if err != nil {
		t.Fatalf("printed text failed to re-parse: %v\n%s", err, text)
	}
	rf := reparsed.GetFunction("add")
	if rf == nil {
		t.Fatal("re-parsed module missing function add")
	}
	if rf.NumBlocks() != 1 {
		t.Fatalf("expected 1 block, got %d", rf.NumBlocks())
	}
}

// TestPrintSkipsDisabledInstructions checks that an instruction disabled
// via Instruction.Disable (the mark passes use for logically dead
// instructions) is omitted from the printed text.
func TestPrintSkipsDisabledInstructions(t *testing.T) {
	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	i32 := ctx.Types().Prim(types.I32)
	sig := ctx.Types().FuncType(i32, nil, false)
	m := ir.NewModule(ctx, "m")
	f := m.DeclareFunction("f", sig)
	bb := f.CreateBlock(ctx, "entry")
	b := ir.NewBuilder(ctx)
	b.SetInsertionPoint(bb)
	dead := b.CreateAdd(ctx.ConstInt(i32, 1), ctx.ConstInt(i32, 2), "dead")
	dead.Disable()
	b.CreateRet(ctx.ConstInt(i32, 0))

	text := Print(m)
	if strings.Contains(text, "%dead") {
		t.Fatalf("disabled instruction should not be printed:\n%s", text)
	}
}
