package types

import (
	"fmt"

	"github.com/pkg/errors"

	"irlib/internal/container"
)

// Store owns every interned Type for one Context. Primitives are
// singletons, pointers key by pointee identity, arrays by (element
// identity, count), anonymous structs by the tuple of member identities,
// functions by (return, params, variadic), and named structs by name
// alone. Redefining a named struct with a different body fails rather
// than aliasing.
type Store struct {
	prims      [14]*Type // one singleton per primitive/label Kind.
	pointers   *container.PtrMap[*Type, *Type]
	arrays     map[arrayKey]*Type
	structs    map[string]*Type // anonymous structs, keyed by a canonical member-id string.
	named      map[string]*Type
	namedOrder container.PtrVector[*Type] // preserves declaration order, for printer enumeration.
	funcs      map[string]*Type // functions, keyed by a canonical signature string.
}

type arrayKey struct {
	elem  *Type
	count int
}

// NewStore returns a Store with every primitive singleton pre-populated.
func NewStore() *Store {
	s := &Store{
		pointers: container.NewPtrMap[*Type, *Type](),
		arrays:   make(map[arrayKey]*Type),
		structs:  make(map[string]*Type),
		named:    make(map[string]*Type),
		funcs:    make(map[string]*Type),
	}
	for k := Void; k <= F64; k++ {
		s.prims[k] = &Type{kind: k}
	}
	s.prims[Label] = &Type{kind: Label}
	return s
}

// Prim returns the singleton Type for one of the primitive kinds
// (Void..F64) or Label.
func (s *Store) Prim(k Kind) *Type {
	if k > F64 && k != Label {
		panic(fmt.Sprintf("types: Prim called with non-primitive kind %d", k))
	}
	return s.prims[k]
}

// PointerTo returns the interned pointer-to-elem type.
func (s *Store) PointerTo(elem *Type) *Type {
	if t, ok := s.pointers.Get(elem); ok {
		return t
	}
	t := &Type{kind: Pointer, elem: elem}
	s.pointers.Set(elem, t)
	return t
}

// ArrayOf returns the interned [count x elem] type.
func (s *Store) ArrayOf(elem *Type, count int) *Type {
	k := arrayKey{elem, count}
	if t, ok := s.arrays[k]; ok {
		return t
	}
	t := &Type{kind: Array, elem: elem, count: count}
	s.arrays[k] = t
	return t
}

// StructOf returns the interned anonymous struct type with the given
// members, in order.
func (s *Store) StructOf(members []*Type) *Type {
	key := memberKey(members)
	if t, ok := s.structs[key]; ok {
		return t
	}
	cp := append([]*Type(nil), members...)
	t := &Type{kind: Struct, members: cp}
	s.structs[key] = t
	return t
}

// FuncType returns the interned function type for the given signature.
func (s *Store) FuncType(ret *Type, params []*Type, variadic bool) *Type {
	key := fmt.Sprintf("%p(%s)%v", ret, memberKey(params), variadic)
	if t, ok := s.funcs[key]; ok {
		return t
	}
	cp := append([]*Type(nil), params...)
	t := &Type{kind: Function, ret: ret, params: cp, variadic: variadic}
	s.funcs[key] = t
	return t
}

// DeclareNamed returns the (possibly opaque) named-struct type for name,
// creating it if it does not yet exist. Named structs are interned purely
// by name, which is what lets a named struct refer to itself through a
// pointer member before its body is known.
func (s *Store) DeclareNamed(name string) *Type {
	if t, ok := s.named[name]; ok {
		return t
	}
	t := &Type{kind: NamedStruct, name: name, opaque: true}
	s.named[name] = t
	s.namedOrder.Append(t)
	return t
}

// NamedTypes returns every named-struct type declared in this Store, in
// declaration order (asm/printer uses this to emit "%name = type {...}"
// forms ahead of the functions/globals that reference them).
func (s *Store) NamedTypes() []*Type {
	out := make([]*Type, s.namedOrder.Len())
	copy(out, s.namedOrder.Items())
	return out
}

// SetBody fills in the body of a previously declared named-struct type.
// Calling it twice with a structurally different body fails. Calling it
// twice with the same body is a harmless no-op.
func (s *Store) SetBody(t *Type, members []*Type) error {
	if t.kind != NamedStruct {
		panic(fmt.Sprintf("types: SetBody on non-named-struct type %s", t))
	}
	if !t.opaque {
		if memberKey(t.members) != memberKey(members) {
			return errors.Errorf("types: redefinition of named struct %%%s with a different body", t.name)
		}
		return nil
	}
	t.members = append([]*Type(nil), members...)
	t.opaque = false
	return nil
}

// memberKey builds a canonical, hashable string key from a slice of
// already-interned member pointers, which is sufficient because pointer
// identity already implies structural identity for every member.
func memberKey(members []*Type) string {
	sb := make([]byte, 0, len(members)*18)
	for _, m := range members {
		sb = append(sb, []byte(fmt.Sprintf("%p|", m))...)
	}
	return string(sb)
}
