// Package cfg builds the control-flow graph of a function: one CFGNode per
// basic block, dense ids 0..N-1, and successor/predecessor edge lists.
package cfg

import (
	"irlib/ir"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// CFGEdge is one directed edge between two CFGNodes.
type CFGEdge struct {
	From, To *CFGNode
}

// CFGNode is the control-flow graph's per-block wrapper: a dense id, the
// block it wraps, and its successor/predecessor edge lists.
type CFGNode struct {
	ID          int
	Block       *ir.BasicBlock
	Successors  []*CFGEdge
	Predecessors []*CFGEdge
}

// CFG is the control-flow graph of one function. Every node and edge
// belongs to this graph alone and is discarded as a unit when the caller
// is done with it. Unlike the IR's own long-lived, cross-referenced
// objects (which the arena in internal/arena owns so a whole Context
// tears down atomically), a CFG is a short-lived, rebuildable view
// recomputed freely between passes, so its nodes and edges are plain Go
// values and Destroy simply drops every reference so the GC reclaims the
// graph as one unit.
type CFG struct {
	Nodes []*CFGNode // dense id -> node
	index map[*ir.BasicBlock]*CFGNode
}

// ---------------------
// ----- Functions -----
// ---------------------

// Build constructs the CFG of f in two passes: dense-id assignment, then
// edge derivation from each block's terminator.
func Build(f *ir.Function) *CFG {
	blocks := f.Blocks()
	g := &CFG{
		Nodes: make([]*CFGNode, 0, len(blocks)),
		index: make(map[*ir.BasicBlock]*CFGNode, len(blocks)),
	}

	// Pass 1: dense-id assignment, one CFGNode per block.
	for id, b := range blocks {
		n := &CFGNode{ID: id, Block: b}
		g.Nodes = append(g.Nodes, n)
		g.index[b] = n
	}

	// Pass 2: read each block's terminator and add edges.
	for _, n := range g.Nodes {
		term := n.Block.Terminator()
		if term == nil {
			continue
		}
		switch term.Opcode() {
		case ir.OpBr:
			dst := term.Operand(0).(*ir.BasicBlock)
			g.addEdge(n, g.index[dst])
		case ir.OpCondBr:
			thn := term.Operand(1).(*ir.BasicBlock)
			els := term.Operand(2).(*ir.BasicBlock)
			g.addEdge(n, g.index[thn])
			if els != thn {
				g.addEdge(n, g.index[els])
			}
		case ir.OpSwitch:
			def := term.Operand(1).(*ir.BasicBlock)
			g.addEdge(n, g.index[def])
			seen := map[*ir.BasicBlock]bool{def: true}
			for i := 0; i < term.NumCases(); i++ {
				_, dest := term.Case(i)
				if seen[dest] {
					continue
				}
				seen[dest] = true
				g.addEdge(n, g.index[dest])
			}
		case ir.OpRet:
			// no successors
		}
	}
	return g
}

// addEdge threads a new CFGEdge onto from's successors and to's
// predecessors.
func (g *CFG) addEdge(from, to *CFGNode) {
	e := &CFGEdge{From: from, To: to}
	from.Successors = append(from.Successors, e)
	to.Predecessors = append(to.Predecessors, e)
}

// Node returns the CFGNode wrapping b, or nil if b is not part of this
// graph.
func (g *CFG) Node(b *ir.BasicBlock) *CFGNode { return g.index[b] }

// Entry returns the CFGNode for the function's entry block (dense id 0).
func (g *CFG) Entry() *CFGNode {
	if len(g.Nodes) == 0 {
		return nil
	}
	return g.Nodes[0]
}

// Len returns the number of nodes (dense block ids) in the graph.
func (g *CFG) Len() int { return len(g.Nodes) }

// Destroy drops the CFG's nodes and edges so the GC can reclaim them as a
// unit.
func (g *CFG) Destroy() {
	g.Nodes = nil
	g.index = nil
}
