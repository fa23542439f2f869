package types

import "testing"

func TestPrimitiveSingletons(t *testing.T) {
	s := NewStore()
	if s.Prim(I32) != s.Prim(I32) {
		t.Fatal("i32 singleton not stable")
	}
	if s.Prim(I32) == s.Prim(I64) {
		t.Fatal("distinct primitives aliased")
	}
}

func TestPointerInterning(t *testing.T) {
	s := NewStore()
	p1 := s.PointerTo(s.Prim(I32))
	p2 := s.PointerTo(s.Prim(I32))
	if p1 != p2 {
		t.Fatal("pointer-to-i32 not interned to a single instance")
	}
	p3 := s.PointerTo(s.Prim(I64))
	if p1 == p3 {
		t.Fatal("pointer-to-i32 aliased with pointer-to-i64")
	}
}

func TestArrayInterning(t *testing.T) {
	s := NewStore()
	a1 := s.ArrayOf(s.Prim(I32), 10)
	a2 := s.ArrayOf(s.Prim(I32), 10)
	if a1 != a2 {
		t.Fatal("array type not interned")
	}
	a3 := s.ArrayOf(s.Prim(I32), 11)
	if a1 == a3 {
		t.Fatal("arrays with different counts aliased")
	}
}

func TestStructInterning(t *testing.T) {
	s := NewStore()
	m := []*Type{s.Prim(I32), s.Prim(I64)}
	s1 := s.StructOf(m)
	s2 := s.StructOf([]*Type{s.Prim(I32), s.Prim(I64)})
	if s1 != s2 {
		t.Fatal("structurally identical anonymous structs not interned together")
	}
}

func TestFunctionTypeInterning(t *testing.T) {
	s := NewStore()
	f1 := s.FuncType(s.Prim(I32), []*Type{s.Prim(I32), s.Prim(I32)}, false)
	f2 := s.FuncType(s.Prim(I32), []*Type{s.Prim(I32), s.Prim(I32)}, false)
	if f1 != f2 {
		t.Fatal("function type not interned")
	}
	f3 := s.FuncType(s.Prim(I32), []*Type{s.Prim(I32), s.Prim(I32)}, true)
	if f1 == f3 {
		t.Fatal("variadic flag ignored during interning")
	}
}

func TestNamedStructRedefinitionFails(t *testing.T) {
	s := NewStore()
	named := s.DeclareNamed("point")
	if err := s.SetBody(named, []*Type{s.Prim(I32), s.Prim(I32)}); err != nil {
		t.Fatalf("first SetBody failed: %v", err)
	}
	if err := s.SetBody(named, []*Type{s.Prim(I64)}); err == nil {
		t.Fatal("redefining named struct point with a different body should fail")
	}
	// Same body again is a harmless no-op.
	if err := s.SetBody(named, []*Type{s.Prim(I32), s.Prim(I32)}); err != nil {
		t.Fatalf("re-setting identical body should succeed, got %v", err)
	}
}

func TestNamedStructRecursiveViaPointer(t *testing.T) {
	s := NewStore()
	node := s.DeclareNamed("node")
	if err := s.SetBody(node, []*Type{s.Prim(I32), s.PointerTo(node)}); err != nil {
		t.Fatalf("recursive named struct via pointer should be allowed: %v", err)
	}
	if node.Members()[1].Elem() != node {
		t.Fatal("pointer member does not point back to the named struct")
	}
}
