// Package mem2reg promotes stack-allocated scalars to SSA registers:
// promotability analysis, iterated-dominance-frontier phi placement, and
// dominator-tree-order renaming.
package mem2reg

import (
	"irlib/analysis/cfg"
	"irlib/analysis/domfrontier"
	"irlib/analysis/domtree"
	"irlib/internal/container"
	"irlib/ir"
)

// Run promotes every promotable entry-block alloca of f to SSA registers,
// using g/tree/df (already built by the caller). It returns true if any
// change was made.
func Run(f *ir.Function, ctx *ir.Context, g *cfg.CFG, tree *domtree.DomTree, df *domfrontier.DominanceFrontier) bool {
	allocas := promotableAllocas(f)
	if len(allocas) == 0 {
		return false
	}

	placer := &mem2reg{
		ctx:      ctx,
		f:        f,
		g:        g,
		tree:     tree,
		df:       df,
		allocas:  allocas,
		phiAlloca: make(map[*ir.Instruction]*ir.Instruction),
		stacks:   make(map[*ir.Instruction]*valueStack, len(allocas)),
	}
	placer.placePhis()
	placer.rename(tree.Root())
	placer.cleanup()
	return true
}

// ----------------------------
// ----- Type definitions -----
// ----------------------------

type mem2reg struct {
	ctx  *ir.Context
	f    *ir.Function
	g    *cfg.CFG
	tree *domtree.DomTree
	df   *domfrontier.DominanceFrontier

	allocas   []*ir.Instruction
	phiAlloca map[*ir.Instruction]*ir.Instruction // phi instruction -> its alloca
	stacks    map[*ir.Instruction]*valueStack

	toDelete []*ir.Instruction // loads/stores marked for deletion during renaming
}

// ---------------------
// ----- Functions -----
// ---------------------

// promotableAllocas returns the entry block's promotable allocas, in the
// order they appear: pointee is scalar (not array, not struct), and every
// use is a load of the pointer or a store whose pointer operand is this
// alloca.
func promotableAllocas(f *ir.Function) []*ir.Instruction {
	entry := f.Entry()
	if entry == nil {
		return nil
	}
	var out []*ir.Instruction
	for i := entry.Front(); i != nil; i = ir.NextInstruction(i) {
		if i.Opcode() != ir.OpAlloca {
			continue
		}
		if i.AllocType().IsAggregate() {
			continue
		}
		if isPromotable(i) {
			out = append(out, i)
		}
	}
	return out
}

func isPromotable(alloca *ir.Instruction) bool {
	for _, u := range ir.Uses(alloca) {
		user := u.User()
		switch user.Opcode() {
		case ir.OpLoad:
			if user.Operand(0) != ir.Value(alloca) {
				return false
			}
		case ir.OpStore:
			// store <val>, <ptr>: operand 1 is the pointer. Storing the
			// alloca's address as the *value* operand (operand 0) is a
			// pointer escape and disqualifies it.
			if user.Operand(1) != ir.Value(alloca) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// placePhis computes, for each promotable alloca, the iterated dominance
// frontier of its defining (storing) blocks and inserts an empty phi at
// the head of every block in that set.
func (m *mem2reg) placePhis() {
	for _, alloca := range m.allocas {
		defBlocks := container.NewBitset(m.g.Len())
		for _, u := range ir.Uses(alloca) {
			if u.User().Opcode() == ir.OpStore {
				defBlocks.Set(m.g.Node(u.User().Parent()).ID)
			}
		}

		marked := container.NewBitset(m.g.Len())
		worklist := defBlocks.Slice()
		for len(worklist) > 0 {
			id := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			frontier := m.df.Of(m.g.Nodes[id])
			frontier.Each(func(y int) {
				if marked.Test(y) {
					return
				}
				marked.Set(y)
				worklist = append(worklist, y)
			})
		}

		b := ir.NewBuilder(m.ctx)
		marked.Each(func(id int) {
			block := m.g.Nodes[id].Block
			b.SetInsertionPoint(block)
			phi := b.CreatePhi(alloca.AllocType(), "")
			m.phiAlloca[phi] = alloca
		})

		m.stacks[alloca] = &valueStack{}
		m.stacks[alloca].Push(m.ctx.ConstUndef(alloca.AllocType()))
	}
}

// rename performs the pre-order dominator-tree renaming walk: loads read
// the current top of their alloca's stack, stores push onto it, and phis
// at successor heads receive the outgoing top for this block's edge.
func (m *mem2reg) rename(node *domtree.Node) {
	block := node.CFG.Block
	pushed := make([]*ir.Instruction, 0, 4) // allocas this block pushed onto, for unwind

	for i := block.Front(); i != nil; i = ir.NextInstruction(i) {
		if i.Opcode() == ir.OpPhi {
			if alloca, ok := m.phiAlloca[i]; ok {
				m.stacks[alloca].Push(ir.Value(i))
				pushed = append(pushed, alloca)
			}
			continue
		}
		if i.Opcode() == ir.OpLoad {
			if alloca, ok := m.allocaOf(i.Operand(0)); ok {
				ir.ReplaceAllUsesWith(i, m.stacks[alloca].Top())
				i.Disable()
				m.toDelete = append(m.toDelete, i)
			}
			continue
		}
		if i.Opcode() == ir.OpStore {
			if alloca, ok := m.allocaOf(i.Operand(1)); ok {
				m.stacks[alloca].Push(i.Operand(0))
				pushed = append(pushed, alloca)
				i.Disable()
				m.toDelete = append(m.toDelete, i)
			}
			continue
		}
	}

	for _, succEdge := range node.CFG.Successors {
		succBlock := succEdge.To.Block
		for i := succBlock.Front(); i != nil; i = ir.NextInstruction(i) {
			if i.Opcode() != ir.OpPhi {
				break
			}
			if alloca, ok := m.phiAlloca[i]; ok {
				i.AddIncoming(m.stacks[alloca].Top(), block)
			}
		}
	}

	for _, child := range node.Children {
		m.rename(child)
	}

	for _, alloca := range pushed {
		m.stacks[alloca].Pop()
	}
}

// allocaOf reports whether ptr is one of this pass's promotable allocas.
func (m *mem2reg) allocaOf(ptr ir.Value) (*ir.Instruction, bool) {
	inst, ok := ptr.(*ir.Instruction)
	if !ok || inst.Opcode() != ir.OpAlloca {
		return nil, false
	}
	if _, tracked := m.stacks[inst]; tracked {
		return inst, true
	}
	return nil, false
}

// cleanup bulk-deletes every load/store disabled during renaming and
// finally every promoted alloca itself. Instructions
// were disabled, not unlinked, as renaming walked the dominator tree so
// that a still-in-progress subtree visit never observes a half-erased
// block; only now, after the whole function has been renamed, do they
// actually leave their block's instruction list.
func (m *mem2reg) cleanup() {
	for _, inst := range m.toDelete {
		inst.EraseFromParent()
	}
	for _, alloca := range m.allocas {
		alloca.EraseFromParent()
	}
}
