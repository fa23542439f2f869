package interp

import (
	"fmt"

	"irlib/types"
)

// Layout exposes (size, alignment) per type and struct member offsets.
// The interpreter and GEP consume it through exactly these two calls, so
// an alternate implementation (e.g. hard-coding a cross-compiled target's
// sizes instead of the running host's) can be swapped in without touching
// either.
type Layout interface {
	Layout(t *types.Type) (size, align uintptr)
	MemberOffset(structTy *types.Type, index int) uintptr
}

// HostLayout reports the sizes and alignments of the concrete host this
// process is running on. i1 occupies a full 1-byte, 1-aligned cell, the
// natural choice for a byte-addressable memory model.
type HostLayout struct{}

// ---------------------
// ----- Functions -----
// ---------------------

func (HostLayout) Layout(t *types.Type) (uintptr, uintptr) {
	switch t.Kind() {
	case types.Void:
		return 0, 1
	case types.I1, types.I8:
		return 1, 1
	case types.I16:
		return 2, 2
	case types.I32:
		return 4, 4
	case types.F32:
		return 4, 4
	case types.I64, types.F64, types.Pointer:
		return 8, 8
	case types.Array:
		elemSize, elemAlign := HostLayout{}.Layout(t.Elem())
		return uintptr(t.Count()) * elemSize, elemAlign
	case types.Struct, types.NamedStruct:
		size, align, _ := structLayout(t)
		return size, align
	}
	panic(fmt.Sprintf("interp: Layout of non-sized type %s", t))
}

func (HostLayout) MemberOffset(structTy *types.Type, index int) uintptr {
	_, _, offsets := structLayout(structTy)
	if index < 0 || index >= len(offsets) {
		panic(fmt.Sprintf("interp: MemberOffset: index %d out of bounds for %s", index, structTy))
	}
	return offsets[index]
}

// structLayout computes each member's offset, then the struct's total
// size: each member is placed at the next offset >= current that
// satisfies its alignment, and the total is rounded up to the max member
// alignment.
func structLayout(t *types.Type) (size, align uintptr, offsets []uintptr) {
	members := t.Members()
	offsets = make([]uintptr, len(members))
	var cur uintptr
	align = 1
	for i, m := range members {
		msize, malign := HostLayout{}.Layout(m)
		if malign > align {
			align = malign
		}
		cur = roundUp(cur, malign)
		offsets[i] = cur
		cur += msize
	}
	size = roundUp(cur, align)
	return size, align, offsets
}

func roundUp(v, align uintptr) uintptr {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
