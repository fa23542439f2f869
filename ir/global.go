package ir

import (
	"fmt"

	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// GlobalVariable is a Value variant owned by a Module: a named,
// pointer-typed storage location with a pointee type and an optional
// constant initializer.
type GlobalVariable struct {
	valueBase // typ is always PointerTo(pointee)

	parent      *Module
	pointee     *types.Type
	initializer *Constant // nil if uninitialized (tentative definition)
}

// ---------------------
// ----- Functions -----
// ---------------------

func (g *GlobalVariable) Kind() Kind { return KindGlobal }

// Parent returns the Module g belongs to.
func (g *GlobalVariable) Parent() *Module { return g.parent }

// PointeeType returns the type of the storage g points to.
func (g *GlobalVariable) PointeeType() *types.Type { return g.pointee }

// Initializer returns g's constant initializer, or nil if g is declared
// but not defined.
func (g *GlobalVariable) Initializer() *Constant { return g.initializer }

// SetInitializer sets g's constant initializer. c's type must equal g's
// pointee type.
func (g *GlobalVariable) SetInitializer(c *Constant) {
	if c.Type() != g.pointee {
		panic(fmt.Sprintf("ir: global %s: initializer type %s does not match pointee type %s", g.Name(), c.Type(), g.pointee))
	}
	g.initializer = c
}

// String returns the textual IR spelling of g.
func (g *GlobalVariable) String() string {
	if g.initializer != nil {
		return fmt.Sprintf("@%s: %s = global %s %s", g.Name(), g.pointee, g.pointee, g.initializer)
	}
	return fmt.Sprintf("@%s: %s = global %s", g.Name(), g.pointee, g.pointee)
}
