// Package ilist implements an intrusive, pointer-based doubly-linked list
// with a sentinel head. Every item that can belong to more than one list
// (an instruction lives in a block's instruction list; a Use lives on both
// an operand list and a uses list) embeds one Node per list it can join.
// Insertion and removal are O(1) and allocate nothing, because the node
// lives inside the element itself rather than in a separate list cell.
package ilist

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Node is the embeddable link, carrying pointers to the node's neighbours
// and the element it belongs to. Elem is set once at construction and
// never changes; prev/next/list change on every link/unlink.
type Node struct {
	prev, next *Node
	list       *List
	Elem       interface{} // the element this Node is embedded in; set once by the owner.
}

// List is a circular doubly-linked list with itself as the sentinel head:
// an empty list has head.next == head.prev == &head.
type List struct {
	head Node
	len  int
}

// ---------------------
// ----- Functions -----
// ---------------------

// Init resets l to the empty state. Must be called before first use.
func (l *List) Init() *List {
	l.head.next = &l.head
	l.head.prev = &l.head
	l.head.list = l
	l.len = 0
	return l
}

// Len returns the number of elements linked into l.
func (l *List) Len() int {
	return l.len
}

// Empty reports whether l has no elements.
func (l *List) Empty() bool {
	return l.len == 0
}

// Front returns the first node in l, or nil if l is empty.
func (l *List) Front() *Node {
	if l.len == 0 {
		return nil
	}
	return l.head.next
}

// Back returns the last node in l, or nil if l is empty.
func (l *List) Back() *Node {
	if l.len == 0 {
		return nil
	}
	return l.head.prev
}

// PushBack links n at the tail of l. n must not already be linked anywhere.
func (l *List) PushBack(n *Node) {
	l.insertAfter(n, l.head.prev)
}

// PushFront links n at the head of l. n must not already be linked anywhere.
func (l *List) PushFront(n *Node) {
	l.insertAfter(n, &l.head)
}

// InsertBefore links n immediately before mark, which must already be an
// element of l (or l's head, meaning push to back).
func (l *List) InsertBefore(n, mark *Node) {
	l.insertAfter(n, mark.prev)
}

// insertAfter links n immediately after at, which must be a node currently
// in l (or l's own head).
func (l *List) insertAfter(n, at *Node) {
	if n.list != nil {
		panic("ilist: node is already linked")
	}
	next := at.next
	at.next = n
	n.prev = at
	n.next = next
	next.prev = n
	n.list = l
	l.len++
}

// Delete unlinks n from whatever list it is currently on. It is a no-op if
// n is already detached.
func Delete(n *Node) {
	if n.list == nil {
		return
	}
	l := n.list
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next, n.list = nil, nil, nil
	l.len--
}

// Linked reports whether n is currently linked into some List.
func Linked(n *Node) bool {
	return n.list != nil
}

// Owner returns the List n is currently linked into, or nil.
func Owner(n *Node) *List {
	return n.list
}

// Next returns the node following n in its list, or nil if n is the last
// element or is not linked into a list.
func Next(n *Node) *Node {
	if n.list == nil || n.next == &n.list.head {
		return nil
	}
	return n.next
}

// Prev returns the node preceding n in its list, or nil if n is the first
// element or is not linked into a list.
func Prev(n *Node) *Node {
	if n.list == nil || n.prev == &n.list.head {
		return nil
	}
	return n.prev
}
