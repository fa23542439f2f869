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

// Function is a Value variant representing a module-level function: a
// pointer-to-function-typed name, its formal Arguments, and (for
// definitions) an ordered list of BasicBlocks. A Function with no blocks
// is a declaration and stands for a foreign function the interpreter
// dispatches through its external-function table.
type Function struct {
	valueBase // typ is PointerTo(sig)

	parent *Module
	sig    *types.Type // function type: return type + param types + variadic flag
	args   []*Argument
	blocks ilist.List // of BasicBlock.node; empty means declaration-only

	nameSeq int // synthetic result-name counter, shared by this function's Builder
}

// ---------------------
// ----- Functions -----
// ---------------------

func (f *Function) Kind() Kind { return KindFunction }

// Parent returns the Module f belongs to.
func (f *Function) Parent() *Module { return f.parent }

// Signature returns f's function type.
func (f *Function) Signature() *types.Type { return f.sig }

// Args returns f's formal arguments in declaration order.
func (f *Function) Args() []*Argument { return f.args }

// IsDeclaration reports whether f has no basic blocks.
func (f *Function) IsDeclaration() bool { return f.blocks.Empty() }

// Entry returns f's entry block (its first block), or nil for a
// declaration.
func (f *Function) Entry() *BasicBlock {
	n := f.blocks.Front()
	if n == nil {
		return nil
	}
	return n.Elem.(*BasicBlock)
}

// Blocks returns f's basic blocks in order. Allocates; prefer Entry plus
// NextBlock for hot iteration.
func (f *Function) Blocks() []*BasicBlock {
	out := make([]*BasicBlock, 0, f.blocks.Len())
	for n := f.blocks.Front(); n != nil; n = ilist.Next(n) {
		out = append(out, n.Elem.(*BasicBlock))
	}
	return out
}

// NextBlock returns the block following b in its parent function, or nil
// if b is the last block.
func NextBlock(b *BasicBlock) *BasicBlock {
	n := ilist.Next(&b.node)
	if n == nil {
		return nil
	}
	return n.Elem.(*BasicBlock)
}

// NumBlocks returns the number of basic blocks in f.
func (f *Function) NumBlocks() int { return f.blocks.Len() }

// CreateBlock appends a new, empty, unterminated BasicBlock to f.
func (f *Function) CreateBlock(ctx *Context, name string) *BasicBlock {
	b := arenaNew[BasicBlock](ctx)
	b.typ = ctx.types.Prim(types.Label)
	b.name = nameOrAuto(ctx, name, "bb", &f.nameSeq)
	b.parent = f
	b.node.Elem = b
	b.init()
	b.instrs.Init()
	f.blocks.PushBack(&b.node)
	return b
}

// String returns the textual IR spelling of f.
func (f *Function) String() string {
	var sb strings.Builder
	ret := f.sig.ReturnType()
	params := f.sig.Params()
	sb.WriteString("function ")
	sb.WriteString(f.Name())
	sb.WriteByte('(')
	for idx, p := range params {
		if idx > 0 {
			sb.WriteString(", ")
		}
		if idx < len(f.args) {
			fmt.Fprintf(&sb, "%%%s: %s", f.args[idx].Name(), p)
		} else {
			fmt.Fprintf(&sb, "%s", p)
		}
	}
	if f.sig.IsVariadic() {
		sb.WriteString(", ...")
	}
	sb.WriteString("): ")
	sb.WriteString(ret.String())

	if !f.IsDeclaration() {
		sb.WriteString(" {\n")
		for n := f.blocks.Front(); n != nil; n = ilist.Next(n) {
			b := n.Elem.(*BasicBlock)
			sb.WriteString(b.String())
		}
		sb.WriteByte('}')
	}
	return sb.String()
}

// nameOrAuto returns hint, interned, if non-empty; otherwise an
// auto-generated name of the form prefixN drawn from seq.
func nameOrAuto(ctx *Context, hint, prefix string, seq *int) string {
	if hint != "" {
		return ctx.Intern(hint)
	}
	n := *seq
	*seq++
	return ctx.Intern(fmt.Sprintf("%s%d", prefix, n))
}
