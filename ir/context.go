// Package ir implements the core SSA object model: the Context that owns
// every long-lived object, Values and their def-use graph, Instructions,
// BasicBlocks, Functions, GlobalVariables, Modules, Constants, and the
// Builder that constructs them.
//
// Every exported constructor that can be misused by a programmatic caller
// (wrong operand type, wrong arity, ...) panics rather than returning an
// error: a typed-IR invariant silently violated turns into a mysterious
// miscompile two passes later, so these are contract violations, not
// recoverable conditions.
package ir

import (
	"fmt"
	"unsafe"

	"irlib/internal/arena"
	"irlib/internal/container"
	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Context is the root owner of one IR universe: its arena, its interned
// strings, its interned types, and its per-primitive-type undef constant
// cache. Every Module, Function, BasicBlock,
// Instruction, Argument, GlobalVariable, Use and Constant created through
// this Context is a non-owning reference into it; destroying the Context
// invalidates all of them at once.
type Context struct {
	perm  *arena.Arena // perm is the permanent arena: functions, arguments, globals, blocks, instructions.
	types *types.Store

	strings *container.StrMap[string] // interned strings; canonicalises repeated names.
	undef   map[*types.Type]*Constant // one cached undef per primitive type.
	null    map[*types.Type]*Constant // one cached null per pointer type.
	ints    map[intKey]*Constant      // interned integer constants, keyed by (type, bits).
	floats  map[floatKey]*Constant
}

type intKey struct {
	t    *types.Type
	bits uint64
}

type floatKey struct {
	t   *types.Type
	bits uint64 // math.Float64bits of the value, regardless of t's width.
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewContext creates an empty Context with its own arena and intern
// tables. cap, if non-zero, bounds the total bytes the Context's
// permanent arena may hand out.
func NewContext(cap uintptr) *Context {
	return &Context{
		perm:    arena.New(cap),
		types:   types.NewStore(),
		strings: container.NewStrMap[string](),
		undef:   make(map[*types.Type]*Constant),
		null:    make(map[*types.Type]*Constant),
		ints:    make(map[intKey]*Constant),
		floats:  make(map[floatKey]*Constant),
	}
}

// Types returns the Context's type-interning store.
func (c *Context) Types() *types.Store { return c.types }

// Intern returns a canonical copy of s: repeated calls with equal content
// return the identical string header, so names stored on Values share one
// backing allocation. Go strings already compare by value, so this is a
// memory nicety rather than a correctness requirement.
func (c *Context) Intern(s string) string {
	if v, ok := c.strings.Get(s); ok {
		return v
	}
	c.strings.Set(s, s)
	return s
}

// Destroy invalidates every object this Context owns. Callers must not
// dereference any Value, Type, or Module obtained from this Context
// afterwards.
func (c *Context) Destroy() {
	c.perm.Destroy()
}

// ------------------------------
// ----- Constant interning -----
// ------------------------------

// ConstUndef returns the cached undef constant of type t, creating it on
// first request. Undef is always interned per type.
func (c *Context) ConstUndef(t *types.Type) *Constant {
	if v, ok := c.undef[t]; ok {
		return v
	}
	v := &Constant{kind: constUndef, vType: t}
	v.uses.Init()
	c.undef[t] = v
	return v
}

// ConstNull returns the cached null pointer constant of pointer type t,
// creating it on first request.
func (c *Context) ConstNull(t *types.Type) *Constant {
	if t.Kind() != types.Pointer {
		panic(fmt.Sprintf("ir: ConstNull on non-pointer type %s", t))
	}
	if v, ok := c.null[t]; ok {
		return v
	}
	v := &Constant{kind: constNull, vType: t}
	v.uses.Init()
	c.null[t] = v
	return v
}

// ConstInt returns an interned integer constant of type t with the given
// bit pattern (truncated to t's width). t must be an integer type.
func (c *Context) ConstInt(t *types.Type, value uint64) *Constant {
	if !t.IsInteger() {
		panic(fmt.Sprintf("ir: ConstInt on non-integer type %s", t))
	}
	value = truncateTo(value, t.BitWidth())
	key := intKey{t, value}
	if v, ok := c.ints[key]; ok {
		return v
	}
	v := &Constant{kind: constInt, vType: t, intVal: value}
	v.uses.Init()
	c.ints[key] = v
	return v
}

// ConstFloat returns an interned floating point constant of type t
// (f32 or f64) with the given value.
func (c *Context) ConstFloat(t *types.Type, value float64) *Constant {
	if !t.IsFloat() {
		panic(fmt.Sprintf("ir: ConstFloat on non-float type %s", t))
	}
	key := floatKey{t, floatBits(value)}
	if v, ok := c.floats[key]; ok {
		return v
	}
	v := &Constant{kind: constFloat, vType: t, floatVal: value}
	v.uses.Init()
	c.floats[key] = v
	return v
}

// ConstString returns a fresh Constant holding the bytes of s plus a
// trailing NUL, typed as an array of i8 of length len(s)+1, the usual
// encoding of a C-style string literal. Unlike ConstInt/ConstFloat, string
// constants are not interned: two calls with equal content return distinct
// objects, since (unlike small scalars) there is no meaningful sharing
// benefit and each is almost always bound to its own global immediately.
func (c *Context) ConstString(s string) *Constant {
	i8 := c.Types().Prim(types.I8)
	arr := c.Types().ArrayOf(i8, len(s)+1)
	v := &Constant{kind: constArray, vType: arr, bytes: append([]byte(s), 0)}
	v.uses.Init()
	return v
}

// arenaNew allocates a zeroed T from ctx's permanent arena. Every IR object
// (BasicBlock, Instruction, Function, GlobalVariable) is born this way so
// that destroying the Context reclaims them all at once.
func arenaNew[T any](ctx *Context) *T {
	var zero T
	p := ctx.perm.Alloc(unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if p == nil {
		panic("ir: arena allocation failed: capacity exceeded")
	}
	obj := (*T)(p)
	*obj = zero
	return obj
}

func truncateTo(v uint64, width int) uint64 {
	if width >= 64 {
		return v
	}
	return v & ((1 << uint(width)) - 1)
}
