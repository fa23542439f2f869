package parser

import (
	"testing"

	"irlib/ir"
)

// TestParseAddition parses a two-argument add function and checks the
// resulting module shape.
func TestParseAddition(t *testing.T) {
	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	src := `
define i32 @add(%a: i32, %b: i32) {
$entry:
	%sum: i32 = add %a: i32, %b: i32
	ret %sum: i32
}
`
	m, err := Parse(ctx, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := m.GetFunction("add")
	if f == nil {
		t.Fatal("function add not found")
	}
	if f.NumBlocks() != 1 {
		t.Fatalf("expected 1 block, got %d", f.NumBlocks())
	}
	term := f.Entry().Terminator()
	if term == nil || term.Opcode() != ir.OpRet {
		t.Fatal("entry block should end in ret")
	}
}

// TestParseUndefinedLocalFails checks that a reference to an undeclared
// local is reported as a parse error with a position, not a panic.
func TestParseUndefinedLocalFails(t *testing.T) {
	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	src := `
define i32 @f() {
$entry:
	ret %missing: i32
}
`
	_, err := Parse(ctx, src)
	if err == nil {
		t.Fatal("expected a parse error for an undefined local")
	}
}

// TestParseRejectsPhiPredecessorMismatch checks that the verifier invoked
// at the end of Parse rejects a phi naming a block that is not actually a
// CFG predecessor, surfaced as a parse failure rather than silently
// accepted malformed IR.
func TestParseRejectsPhiPredecessorMismatch(t *testing.T) {
	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	src := `
define i32 @f(%c: i1) {
$entry:
	cond_br %c: i1, $then, $merge
$then:
	br $merge
$merge:
	%v: i32 = phi [1: i32, $then], [2: i32, $other]
	ret %v: i32
}
`
	_, err := Parse(ctx, src)
	if err == nil {
		t.Fatal("expected a parse error for a phi naming a non-predecessor block")
	}
}

// TestParseNamedStructRedefinitionFails checks that redefining a named
// struct with a different body through the textual front end is a
// reported parse error, not a panic.
func TestParseNamedStructRedefinitionFails(t *testing.T) {
	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	src := `
%point = type { i32, i32 }
%point = type { i64 }
`
	_, err := Parse(ctx, src)
	if err == nil {
		t.Fatal("expected a parse error for named-struct redefinition with a different body")
	}
}

// TestParseDiamondMem2regShape parses a diamond-shaped function with an
// alloca/store/load idiom, checking it parses and verifies cleanly before
// any promotion (mem2reg itself is tested in transform/mem2reg).
func TestParseDiamondMem2regShape(t *testing.T) {
	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	src := `
define i32 @diamond(%c: i1) {
$entry:
	%x: <i32> = alloca i32
	store 10: i32, %x: <i32>
	cond_br %c: i1, $then, $else
$then:
	store 20: i32, %x: <i32>
	br $merge
$else:
	store 30: i32, %x: <i32>
	br $merge
$merge:
	%v: i32 = load %x: <i32>
	ret %v: i32
}
`
	m, err := Parse(ctx, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := m.GetFunction("diamond")
	if f.NumBlocks() != 4 {
		t.Fatalf("expected 4 blocks, got %d", f.NumBlocks())
	}
}
