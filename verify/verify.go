// Package verify implements the structural verifier: SSA domination,
// terminator presence, type agreement, single-entry, and phi
// operand/predecessor correspondence. Findings accumulate into an
// irerr.Collector rather than failing on the first, so a caller sees
// every problem in one pass.
package verify

import (
	"sync"

	"irlib/analysis/cfg"
	"irlib/analysis/domtree"
	"irlib/ir"
	"irlib/irerr"
	"irlib/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options configures VerifyModule. Verifying one function never mutates
// another, so when Threads > 1 independent functions of a module are
// checked from worker goroutines.
type Options struct {
	Threads int
}

// ---------------------
// ----- Functions -----
// ---------------------

// VerifyModule runs every structural check against every defined function
// of m (declarations have nothing to check) and returns the aggregated
// diagnostics, or nil if the module is well-formed. Threads > 1 shards
// functions across worker goroutines: n := l / t jobs per worker, with
// the first l % t workers taking one extra.
func VerifyModule(m *ir.Module, opt Options) *irerr.Collector {
	col := irerr.NewCollector(16)

	var defs []*ir.Function
	for _, f := range m.Functions() {
		if !f.IsDeclaration() {
			defs = append(defs, f)
		}
	}

	t := opt.Threads
	if t > len(defs) {
		t = len(defs)
	}
	if t <= 1 {
		for _, f := range defs {
			VerifyFunction(f, col)
		}
		return finish(col)
	}

	l := len(defs)
	n := l / t
	res := l % t
	var wg sync.WaitGroup
	i := 0
	for w := 0; w < t; w++ {
		j := n
		if w < res {
			j++
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			local := irerr.NewCollector(4)
			for _, f := range defs[lo:hi] {
				VerifyFunction(f, local)
			}
			for _, e := range local.Errors() {
				col.Append(e.Kind, "%s", e.Msg)
			}
		}(i, i+j)
		i += j
	}
	wg.Wait()
	return finish(col)
}

func finish(col *irerr.Collector) *irerr.Collector {
	if col.Len() == 0 {
		return nil
	}
	return col
}

// VerifyFunction runs every structural check against f, appending findings
// to col. Exported so a caller can check one function without verifying
// the whole module; it builds its own CFG and dominator tree for f.
func VerifyFunction(f *ir.Function, col *irerr.Collector) {
	if f.IsDeclaration() {
		return
	}
	verifyBlockShape(f, col)

	g := cfg.Build(f)
	defer g.Destroy()
	verifySingleEntry(f, g, col)
	verifyPhiCorrespondence(f, g, col)
	verifyTypeAgreement(f, col)

	tree := domtree.Build(g)
	verifyDominance(f, g, tree, col)
}

// verifyBlockShape checks the block-shape invariants: every non-empty
// block ends in a terminator, and no non-phi instruction precedes a phi.
func verifyBlockShape(f *ir.Function, col *irerr.Collector) {
	for _, b := range f.Blocks() {
		if b.Empty() {
			col.Append(irerr.KindVerify, "function %s: block %s is empty (no terminator)", f.Name(), b.Name())
			continue
		}
		if b.Terminator() == nil {
			col.Append(irerr.KindVerify, "function %s: block %s has no terminator", f.Name(), b.Name())
		}
		seenNonPhi := false
		for inst := b.Front(); inst != nil; inst = ir.NextInstruction(inst) {
			if inst.Opcode() == ir.OpPhi {
				if seenNonPhi {
					col.Append(irerr.KindVerify, "function %s: block %s: phi %%%s follows a non-phi instruction", f.Name(), b.Name(), inst.Name())
				}
			} else {
				seenNonPhi = true
			}
		}
	}
}

// verifySingleEntry checks that f's entry block has no predecessors.
func verifySingleEntry(f *ir.Function, g *cfg.CFG, col *irerr.Collector) {
	entry := g.Entry()
	if entry == nil {
		return
	}
	if len(entry.Predecessors) > 0 {
		col.Append(irerr.KindVerify, "function %s: entry block %s has %d predecessor(s), violating single-entry",
			f.Name(), entry.Block.Name(), len(entry.Predecessors))
	}
}

// verifyPhiCorrespondence checks that every phi at the head of block B
// names each of B's CFG predecessors exactly once, and no other block.
func verifyPhiCorrespondence(f *ir.Function, g *cfg.CFG, col *irerr.Collector) {
	for _, b := range f.Blocks() {
		node := g.Node(b)
		predSet := make(map[*ir.BasicBlock]bool, len(node.Predecessors))
		for _, e := range node.Predecessors {
			predSet[e.From.Block] = true
		}
		for inst := b.Front(); inst != nil && inst.Opcode() == ir.OpPhi; inst = ir.NextInstruction(inst) {
			seen := make(map[*ir.BasicBlock]bool, inst.NumIncoming())
			for n := 0; n < inst.NumIncoming(); n++ {
				_, pred := inst.Incoming(n)
				if seen[pred] {
					col.Append(irerr.KindVerify, "function %s: phi %%%s in block %s names predecessor %s more than once",
						f.Name(), inst.Name(), b.Name(), pred.Name())
					continue
				}
				seen[pred] = true
				if !predSet[pred] {
					col.Append(irerr.KindVerify, "function %s: phi %%%s in block %s names %s, which is not a predecessor of %s",
						f.Name(), inst.Name(), b.Name(), pred.Name(), b.Name())
				}
			}
			for pred := range predSet {
				if !seen[pred] {
					col.Append(irerr.KindVerify, "function %s: phi %%%s in block %s has no incoming value for predecessor %s",
						f.Name(), inst.Name(), b.Name(), pred.Name())
				}
			}
		}
	}
}

// verifyTypeAgreement re-checks the operand-type contracts ir.Builder
// already enforces at construction time, catching IR that was assembled
// or mutated without going through a Builder (e.g. a hand-rolled
// transformation pass).
func verifyTypeAgreement(f *ir.Function, col *irerr.Collector) {
	for _, b := range f.Blocks() {
		for inst := b.Front(); inst != nil; inst = ir.NextInstruction(inst) {
			switch inst.Opcode() {
			case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
				ir.OpShl, ir.OpLShr, ir.OpAShr, ir.OpAnd, ir.OpOr, ir.OpXor:
				requireSameOperandType(f, inst, col)
			case ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFDiv:
				requireSameOperandType(f, inst, col)
			case ir.OpICmp, ir.OpFCmp:
				requireSameOperandType(f, inst, col)
				if inst.Type().Kind() != types.I1 {
					col.Append(irerr.KindVerify, "function %s: %%%s: comparison result type is %s, expected i1", f.Name(), inst.Name(), inst.Type())
				}
			case ir.OpPhi:
				for n := 0; n < inst.NumIncoming(); n++ {
					val, _ := inst.Incoming(n)
					if val.Type() != inst.Type() {
						col.Append(irerr.KindVerify, "function %s: phi %%%s: incoming value has type %s, expected %s",
							f.Name(), inst.Name(), val.Type(), inst.Type())
					}
				}
			case ir.OpCall:
				verifyCallArity(f, inst, col)
			case ir.OpStore:
				ptr := inst.Operand(1)
				if ptr.Type().Kind() != types.Pointer {
					col.Append(irerr.KindVerify, "function %s: store: pointer operand has non-pointer type %s", f.Name(), ptr.Type())
					continue
				}
				if inst.Operand(0).Type() != ptr.Type().Elem() {
					col.Append(irerr.KindVerify, "function %s: store: value type %s does not match pointee type %s",
						f.Name(), inst.Operand(0).Type(), ptr.Type().Elem())
				}
			}
		}
	}
}

func requireSameOperandType(f *ir.Function, inst *ir.Instruction, col *irerr.Collector) {
	lhs, rhs := inst.Operand(0), inst.Operand(1)
	if lhs.Type() != rhs.Type() {
		col.Append(irerr.KindVerify, "function %s: %%%s (%s): operand type mismatch %s vs %s",
			f.Name(), inst.Name(), inst.Opcode(), lhs.Type(), rhs.Type())
	}
}

func verifyCallArity(f *ir.Function, inst *ir.Instruction, col *irerr.Collector) {
	callee := inst.Callee()
	if callee.Type().Kind() != types.Pointer || callee.Type().Elem().Kind() != types.Function {
		col.Append(irerr.KindVerify, "function %s: call %%%s: callee is not a pointer-to-function", f.Name(), inst.Name())
		return
	}
	sig := callee.Type().Elem()
	params := sig.Params()
	args := inst.Args()
	if len(args) < len(params) || (!sig.IsVariadic() && len(args) != len(params)) {
		col.Append(irerr.KindVerify, "function %s: call %%%s: expects %d argument(s), got %d",
			f.Name(), inst.Name(), len(params), len(args))
		return
	}
	for i, p := range params {
		if args[i].Type() != p {
			col.Append(irerr.KindVerify, "function %s: call %%%s: argument %d has type %s, expected %s",
				f.Name(), inst.Name(), i, args[i].Type(), p)
		}
	}
}

// verifyDominance checks the core SSA invariant: every operand of every
// instruction is either a constant/global/function/argument (always
// dominates), a label operand (a control reference, not a def-use edge
// requiring dominance), or an instruction whose definition dominates its
// use. A phi's "use" of an incoming value is deemed to occur at the end
// of the corresponding predecessor block, per the usual SSA convention.
func verifyDominance(f *ir.Function, g *cfg.CFG, tree *domtree.DomTree, col *irerr.Collector) {
	for _, b := range f.Blocks() {
		seenInBlock := make(map[*ir.Instruction]bool)
		for inst := b.Front(); inst != nil; inst = ir.NextInstruction(inst) {
			if inst.Opcode() == ir.OpPhi {
				for n := 0; n < inst.NumIncoming(); n++ {
					val, pred := inst.Incoming(n)
					def, ok := val.(*ir.Instruction)
					if !ok {
						continue
					}
					if !dominatesBlock(def.Parent(), pred, g, tree) {
						col.Append(irerr.KindVerify, "function %s: phi %%%s: incoming value %%%s does not dominate predecessor %s",
							f.Name(), inst.Name(), def.Name(), pred.Name())
					}
				}
			} else {
				for _, u := range inst.Operands() {
					def, ok := u.Value().(*ir.Instruction)
					if !ok {
						continue
					}
					if def.Parent() == b {
						if !seenInBlock[def] {
							col.Append(irerr.KindVerify, "function %s: %%%s uses %%%s before it is defined in block %s",
								f.Name(), inst.Name(), def.Name(), b.Name())
						}
						continue
					}
					if !dominatesBlock(def.Parent(), b, g, tree) {
						col.Append(irerr.KindVerify, "function %s: %%%s uses %%%s, whose defining block %s does not dominate %s",
							f.Name(), inst.Name(), def.Name(), def.Parent().Name(), b.Name())
					}
				}
			}
			seenInBlock[inst] = true
		}
	}
}

func dominatesBlock(def, use *ir.BasicBlock, g *cfg.CFG, tree *domtree.DomTree) bool {
	defNode := tree.Node(g.Node(def))
	useNode := tree.Node(g.Node(use))
	if defNode == nil || useNode == nil {
		// Unreachable blocks are outside the dominator tree; dominance is
		// only defined over reachable nodes.
		return true
	}
	return tree.Dominates(defNode, useNode)
}
