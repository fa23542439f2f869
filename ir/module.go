package ir

import (
	"fmt"
	"strings"
	"sync"

	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Module is the top-level container owning a program's Functions and
// GlobalVariables. Lookups take the mutex because independent functions of
// one Module may be inspected from verifier worker goroutines after
// construction has finished.
type Module struct {
	Name string

	ctx       *Context
	functions map[string]*Function
	globals   map[string]*GlobalVariable
	order     []*Function // preserves declaration order for String/iteration
	gorder    []*GlobalVariable

	sync.Mutex // guards functions/globals/order/gorder during concurrent lookups.
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewModule creates an empty Module named name, owned by ctx.
func NewModule(ctx *Context, name string) *Module {
	if name == "" {
		name = "module"
	}
	return &Module{
		Name:      name,
		ctx:       ctx,
		functions: make(map[string]*Function, 16),
		globals:   make(map[string]*GlobalVariable, 8),
	}
}

// Context returns the Context m was created from.
func (m *Module) Context() *Context { return m.ctx }

// Functions returns m's functions in declaration order.
func (m *Module) Functions() []*Function {
	m.Lock()
	defer m.Unlock()
	out := make([]*Function, len(m.order))
	copy(out, m.order)
	return out
}

// GetFunction returns the named function, or nil.
func (m *Module) GetFunction(name string) *Function {
	m.Lock()
	defer m.Unlock()
	return m.functions[name]
}

// Globals returns m's global variables in declaration order.
func (m *Module) Globals() []*GlobalVariable {
	m.Lock()
	defer m.Unlock()
	out := make([]*GlobalVariable, len(m.gorder))
	copy(out, m.gorder)
	return out
}

// GetGlobal returns the named global variable, or nil.
func (m *Module) GetGlobal(name string) *GlobalVariable {
	m.Lock()
	defer m.Unlock()
	return m.globals[name]
}

// DeclareFunction creates a Function of the given signature, with no
// basic blocks (a declaration). sig must be a function type
// (Store.FuncType).
func (m *Module) DeclareFunction(name string, sig *types.Type) *Function {
	if sig.Kind() != types.Function {
		panic(fmt.Sprintf("ir: DeclareFunction %s: signature is not a function type: %s", name, sig))
	}
	m.Lock()
	defer m.Unlock()
	if _, ok := m.functions[name]; ok {
		panic(fmt.Sprintf("ir: duplicate function %s in module %s", name, m.Name))
	}
	f := arenaNew[Function](m.ctx)
	f.name = m.ctx.Intern(name)
	f.typ = m.ctx.types.PointerTo(sig)
	f.sig = sig
	f.parent = m
	f.init()
	f.blocks.Init()

	params := sig.Params()
	f.args = make([]*Argument, len(params))
	for i, pt := range params {
		arg := arenaNew[Argument](m.ctx)
		arg.typ = pt
		arg.name = m.ctx.Intern(fmt.Sprintf("arg%d", i))
		arg.parent = f
		arg.index = i
		arg.init()
		f.args[i] = arg
	}

	m.functions[name] = f
	m.order = append(m.order, f)
	return f
}

// CreateGlobal declares a global variable of pointee type t.
func (m *Module) CreateGlobal(name string, t *types.Type) *GlobalVariable {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.globals[name]; ok {
		panic(fmt.Sprintf("ir: duplicate global %s in module %s", name, m.Name))
	}
	g := arenaNew[GlobalVariable](m.ctx)
	g.name = m.ctx.Intern(name)
	g.typ = m.ctx.types.PointerTo(t)
	g.pointee = t
	g.parent = m
	g.init()
	m.globals[name] = g
	m.gorder = append(m.gorder, g)
	return g
}

// CreateGlobalString declares a global variable holding s as a
// NUL-terminated i8 array, named name and initialized in place, so a front
// end can build C-style string literals in one call.
func (m *Module) CreateGlobalString(name, s string) *GlobalVariable {
	c := m.ctx.ConstString(s)
	g := m.CreateGlobal(name, c.Type())
	g.SetInitializer(c)
	return g
}

// String returns the textual IR spelling of m.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n\n", m.Name)

	m.Lock()
	globals := append([]*GlobalVariable(nil), m.gorder...)
	funcs := append([]*Function(nil), m.order...)
	m.Unlock()

	for _, g := range globals {
		sb.WriteString(g.String())
		sb.WriteByte('\n')
	}
	if len(globals) > 0 {
		sb.WriteByte('\n')
	}
	for idx, f := range funcs {
		sb.WriteString(f.String())
		if idx < len(funcs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
