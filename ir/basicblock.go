package ir

import (
	"fmt"
	"strings"

	"irlib/internal/ilist"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// BasicBlock is a Value variant in its own right: a named label, typed as
// the context's label pseudo-type, owning an ordered list of Instructions
// and tracking its terminator directly rather than by scanning. The
// instructions are held in an intrusive list so passes can delete them in
// place in O(1).
type BasicBlock struct {
	valueBase
	node ilist.Node // link into parent Function's block list

	parent *Function
	instrs ilist.List // of Instruction.node
	term   *Instruction
}

// ---------------------
// ----- Functions -----
// ---------------------

func (b *BasicBlock) Kind() Kind { return KindBasicBlock }

// Parent returns the Function b belongs to.
func (b *BasicBlock) Parent() *Function { return b.parent }

// Terminator returns b's terminating instruction, or nil if b is not yet
// terminated.
func (b *BasicBlock) Terminator() *Instruction { return b.term }

// Empty reports whether b has no instructions.
func (b *BasicBlock) Empty() bool { return b.instrs.Empty() }

// Front returns b's first instruction, or nil if b is empty.
func (b *BasicBlock) Front() *Instruction {
	n := b.instrs.Front()
	if n == nil {
		return nil
	}
	return n.Elem.(*Instruction)
}

// NextInstruction returns the instruction following i in its parent block,
// or nil if i is the last instruction.
func NextInstruction(i *Instruction) *Instruction {
	n := ilist.Next(&i.node)
	if n == nil {
		return nil
	}
	return n.Elem.(*Instruction)
}

// Instructions returns b's instructions in order. Allocates; prefer Front
// plus NextInstruction for hot iteration.
func (b *BasicBlock) Instructions() []*Instruction {
	out := make([]*Instruction, 0, b.instrs.Len())
	for n := b.instrs.Front(); n != nil; n = ilist.Next(n) {
		out = append(out, n.Elem.(*Instruction))
	}
	return out
}

// pushBack appends i to the tail of b's instruction list and updates the
// terminator if i is one. Used by Builder.
func (b *BasicBlock) pushBack(i *Instruction) {
	b.instrs.PushBack(&i.node)
	i.parent = b
	if i.opcode.IsTerminator() {
		b.term = i
	}
}

// pushFront prepends i. Used for phi, which must lead the block.
func (b *BasicBlock) pushFront(i *Instruction) {
	b.instrs.PushFront(&i.node)
	i.parent = b
}

// Predecessors and successors are not stored on BasicBlock directly; they
// live in the CFG built from a function (analysis/cfg), a derived,
// rebuildable structure rather than an always-maintained invariant of the
// IR itself.

// String returns the textual IR spelling of b and its instructions.
func (b *BasicBlock) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Name())
	for n := b.instrs.Front(); n != nil; n = ilist.Next(n) {
		inst := n.Elem.(*Instruction)
		sb.WriteByte('\t')
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
	}
	if b.term == nil {
		fmt.Fprintf(&sb, "\t; error: block %s is not terminated\n", b.Name())
	}
	return sb.String()
}
