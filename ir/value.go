package ir

import (
	"math"

	"irlib/internal/ilist"
	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind identifies which concrete Value variant a Value is.
type Kind uint8

const (
	KindArgument Kind = iota
	KindInstruction
	KindBasicBlock
	KindFunction
	KindConstant
	KindGlobal
)

// Value is the base capability shared by every entity that can be an
// operand: a kind tag, an optional interned name, a type, and the head of
// its uses list. BasicBlock is itself a Value variant whose Type() is
// always the label pseudo-type, so recovering a block from a label operand
// is an ordinary checked type assertion rather than an unchecked cast.
type Value interface {
	Kind() Kind
	Name() string
	SetName(name string)
	Type() *types.Type
	usesHead() *ilist.List
}

// valueBase is embedded by every concrete Value variant; it implements all
// of the Value interface except Kind(), which each variant reports as its
// own constant.
type valueBase struct {
	name string
	typ  *types.Type
	uses ilist.List
}

func (v *valueBase) init() {
	v.uses.Init()
}

func (v *valueBase) Name() string         { return v.name }
func (v *valueBase) SetName(name string)  { v.name = name }
func (v *valueBase) Type() *types.Type    { return v.typ }
func (v *valueBase) usesHead() *ilist.List { return &v.uses }

// Use is an edge from a user Instruction to an operand Value. Its
// membership in the operand Instruction's ordered operand
// slice is just that slice's position; its membership in the operand
// Value's (unordered) uses list is a genuine intrusive ilist.Node, because
// uses are added and removed far more often than operands are reordered.
type Use struct {
	node  ilist.Node
	user  *Instruction
	value Value
}

// newUse creates a Use edge from user to value and links it into value's
// uses list. The caller is responsible for also appending it to user's
// operand slice, in the order the operand appears.
func newUse(user *Instruction, value Value) *Use {
	u := &Use{user: user, value: value}
	u.node.Elem = u
	value.usesHead().PushBack(&u.node)
	return u
}

// User returns the Instruction that owns this Use.
func (u *Use) User() *Instruction { return u.user }

// Value returns the Value this Use currently refers to.
func (u *Use) Value() Value { return u.value }

// unlink detaches u from its current value's uses list without touching
// the user's operand slice.
func (u *Use) unlink() {
	ilist.Delete(&u.node)
}

// reseat detaches u from its old value's uses list and attaches it to
// newValue's uses list, without touching the user's operand slice or
// position. This is the primitive replaceAllUsesWith is built from.
func (u *Use) reseat(newValue Value) {
	u.unlink()
	u.value = newValue
	newValue.usesHead().PushBack(&u.node)
}

// ReplaceAllUsesWith retargets every Use currently pointing at old so that
// it points at replacement instead, preserving each user's operand order.
// After this call old has no uses.
func ReplaceAllUsesWith(old, replacement Value) {
	head := old.usesHead()
	for n := head.Front(); n != nil; {
		next := ilist.Next(n)
		u := n.Elem.(*Use)
		u.reseat(replacement)
		n = next
	}
	if !old.usesHead().Empty() {
		panic("ir: ReplaceAllUsesWith postcondition violated: old value still has uses")
	}
}

// Uses returns every Use currently pointing at v, in no particular order.
func Uses(v Value) []*Use {
	head := v.usesHead()
	out := make([]*Use, 0, head.Len())
	for n := head.Front(); n != nil; n = ilist.Next(n) {
		out = append(out, n.Elem.(*Use))
	}
	return out
}

// HasUses reports whether any Use currently points at v.
func HasUses(v Value) bool {
	return !v.usesHead().Empty()
}

func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}
