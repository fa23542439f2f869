package arena

import (
	"testing"
	"unsafe"
)

func TestAllocZeroSizeReturnsNonNil(t *testing.T) {
	a := New(0)
	p := a.Alloc(0, 0)
	if p == nil {
		t.Fatal("zero-size allocation returned nil")
	}
}

func TestAllocAlignment(t *testing.T) {
	a := New(0)
	p := a.Alloc(3, 8)
	if uintptr(p)%8 != 0 {
		t.Fatalf("pointer %p not 8-byte aligned", p)
	}
}

func TestAllocDistinctRegions(t *testing.T) {
	a := New(0)
	p1 := a.Alloc(16, 8)
	p2 := a.Alloc(16, 8)
	if p1 == p2 {
		t.Fatal("two allocations returned the same pointer")
	}
	b1 := (*[16]byte)(p1)
	b2 := (*[16]byte)(p2)
	b1[0] = 1
	b2[0] = 2
	if b1[0] != 1 || b2[0] != 2 {
		t.Fatal("allocations alias each other")
	}
}

func TestGrowthAcrossChunks(t *testing.T) {
	a := New(0)
	for i := 0; i < 10000; i++ {
		if a.Alloc(64, 8) == nil {
			t.Fatalf("allocation %d failed unexpectedly", i)
		}
	}
	chunks, used, cap := a.Stats()
	if chunks < 2 {
		t.Fatalf("expected multiple chunks after 10000 allocations, got %d", chunks)
	}
	if used == 0 || cap < used {
		t.Fatalf("unexpected stats: used=%d cap=%d", used, cap)
	}
}

func TestCapEnforced(t *testing.T) {
	a := New(128)
	ok := 0
	for i := 0; i < 100; i++ {
		if a.Alloc(32, 8) != nil {
			ok++
		}
	}
	if ok > 4 {
		t.Fatalf("cap of 128 bytes allowed %d 32-byte allocations", ok)
	}
}

func TestReallocCopiesPrefix(t *testing.T) {
	a := New(0)
	p := a.Alloc(4, 1)
	buf := unsafe.Slice((*byte)(p), 4)
	copy(buf, []byte{1, 2, 3, 4})

	q := a.Realloc(p, 4, 8, 1)
	if q == nil {
		t.Fatal("realloc failed")
	}
	out := unsafe.Slice((*byte)(q), 8)
	for i, want := range []byte{1, 2, 3, 4} {
		if out[i] != want {
			t.Fatalf("byte %d: got %d want %d", i, out[i], want)
		}
	}
}

func TestResetReclaimsCurrentChunk(t *testing.T) {
	a := New(0)
	a.Alloc(64, 8)
	_, used, cap := a.Stats()
	if used == 0 {
		t.Fatal("expected non-zero usage before reset")
	}
	a.Reset()
	_, used, cap2 := a.Stats()
	if used != 0 {
		t.Fatalf("expected zero usage after reset, got %d", used)
	}
	if cap2 == 0 || cap2 > cap {
		t.Fatalf("expected current chunk retained, got cap=%d (was %d)", cap2, cap)
	}
}
