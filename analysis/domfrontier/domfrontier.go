// Package domfrontier computes each block's dominance frontier from a
// dominator tree.
package domfrontier

import (
	"irlib/analysis/cfg"
	"irlib/analysis/domtree"
	"irlib/internal/container"
)

// DominanceFrontier maps every reachable CFG node to its dominance
// frontier, a bitset over the CFG's dense block ids.
type DominanceFrontier struct {
	byID []*container.Bitset // CFG id -> DF(id); nil for unreachable nodes.
	n    int
}

// Build computes DF(B) for every block in tree's CFG, per the recurrence
// DF(B) = DF_local(B) ∪ ⋃_{C ∈ children(B)} DF_up(C,B), computed by a
// post-order traversal of the dominator tree. A single scratch bitset is
// reused across nodes.
func Build(g *cfg.CFG, tree *domtree.DomTree) *DominanceFrontier {
	df := &DominanceFrontier{byID: make([]*container.Bitset, g.Len()), n: g.Len()}
	scratch := container.NewBitset(g.Len())
	var post func(node *domtree.Node)
	post = func(node *domtree.Node) {
		for _, c := range node.Children {
			post(c)
		}

		scratch.Reset()

		// DF_local(B): successors of B not immediately dominated by B.
		for _, e := range node.CFG.Successors {
			succNode := tree.Node(e.To)
			if succNode.Idom != node {
				scratch.Set(e.To.ID)
			}
		}

		// DF_up(C,B) for each child C: W in DF(C) not immediately
		// dominated by B.
		for _, c := range node.Children {
			childDF := df.byID[c.CFG.ID]
			if childDF == nil {
				continue
			}
			childDF.Each(func(w int) {
				wNode := tree.Node(g.Nodes[w])
				if wNode.Idom != node {
					scratch.Set(w)
				}
			})
		}

		result := container.NewBitset(g.Len())
		result.Union(scratch)
		df.byID[node.CFG.ID] = result
	}
	post(tree.Root())
	return df
}

// Of returns the dominance frontier of n, or an empty bitset if n is
// unreachable.
func (df *DominanceFrontier) Of(n *cfg.CFGNode) *container.Bitset {
	if b := df.byID[n.ID]; b != nil {
		return b
	}
	return container.NewBitset(df.n)
}
