// Package simplify recovers natural control flow from a CFG that
// restructuring forced into single-entry/single-exit branches and
// tail-controlled loops: predicates restructuring synthesized to thread a
// value through several layers of demuxing are often known constants along
// some paths, and administrative nodes restructuring left behind (blocks
// that do nothing but copy a constant or a variable) can usually be folded
// into their neighbors.
//
// The pass computes a monotone dataflow fixpoint over boolean-valued
// variables (internal/simplify's value analysis), then applies two
// rewrites: folding a branch whose predicate is known to a constant into an
// unconditional jump, and rerouting a conditional edge past an
// administrative node when a predecessor already knows the predicate's
// value. Grounded on simplify_branches.rs.
package simplify

import (
	"fmt"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
)

// Function simplifies one function's CFG in place. It never fails: every
// rewrite is guarded so the function's exit block stays reachable.
func Function(f *cfg.Function) {
	meta := collectMetadata(f)

	an := newAnalysis(f)
	splitBooleanBranches(f, an, meta.boolEdges)
	an.computeFixpoint(f)

	rewriteBranches(f, an, meta.adminNodes)
	pruneUnreachable(f)
}

// branchMetadata is computed once, from the CFG as restructuring left it,
// before the branch-splitting rewrite (splitBooleanBranches) adds any new
// blocks: newly synthesized placeholder blocks are never themselves
// eligible admin nodes for the later rewrite pass, matching the reference
// implementation's ordering.
type branchMetadata struct {
	adminNodes []cfg.BlockID
	boolEdges  []boolEdge
}

// boolEdge names one outgoing two-way conditional edge by (source block,
// index into that block's Out slice) rather than by a separate edge handle
// — cfg.Edge lives inline in Block.Out, so the (block, index) pair is a
// stable enough reference as long as no other pass reorders that slice
// between collection and use.
type boolEdge struct {
	block cfg.BlockID
	idx   int
	vr    string
	cond  cfg.CondVal
}

func collectMetadata(f *cfg.Function) branchMetadata {
	var meta branchMetadata
	for _, b := range f.Blocks {
		if len(b.Footer) == 0 && b.IsAdministrative() {
			meta.adminNodes = append(meta.adminNodes, b.ID)
		}
		for i, e := range b.Out {
			if e.Cond != nil && e.Cond.Of == 2 {
				meta.boolEdges = append(meta.boolEdges, boolEdge{block: b.ID, idx: i, vr: e.Var, cond: *e.Cond})
			}
		}
	}
	return meta
}

// splitBooleanBranches materializes the information a two-way conditional
// edge carries ("this path is only taken when the predicate equals this
// literal") as an ordinary node in the graph: a fresh empty block spliced
// onto the edge, seeded in the value analysis with the predicate's known
// value. This lets the later fixpoint treat "the branch was taken" exactly
// like any other predecessor fact, instead of needing a special case for
// edge-carried knowledge.
func splitBooleanBranches(f *cfg.Function, an *analysis, edges []boolEdge) {
	counter := 0
	for _, be := range edges {
		b := f.Block(be.block)
		e := b.Out[be.idx]

		counter++
		mid := f.AddBlock(fmt.Sprintf("__simp%d", counter))
		mid.Out = []cfg.Edge{{Dest: e.Dest}}
		b.Out[be.idx] = cfg.Edge{Dest: mid.ID, Var: e.Var, Cond: e.Cond}

		an.addAssignment(mid.ID, be.vr, condValLattice(be.cond))
	}
}

func condValLattice(cv cfg.CondVal) lattice {
	if cv.Val == 0 {
		return KnownFalse
	}
	return KnownTrue
}

// rewriteBranches applies the two constant-folding rewrites to every admin
// node's outgoing two-way conditional edges, using the dataflow fixpoint
// already computed over an.
func rewriteBranches(f *cfg.Function, an *analysis, adminNodes []cfg.BlockID) {
	for _, admin := range adminNodes {
		if admin == f.Exit {
			// Never reroute past the exit block: it must stay reachable.
			continue
		}
		rewriteAdminNode(f, an, admin)
	}
}

func rewriteAdminNode(f *cfg.Function, an *analysis, admin cfg.BlockID) {
	b := f.Block(admin)
	state := an.data[admin]
	// Snapshot Out before mutating it: a successful fold below replaces the
	// whole slice, and a rewrite must only ever consider edges that existed
	// at the start of this node's pass.
	original := append([]cfg.Edge(nil), b.Out...)

	for _, e := range original {
		if e.Cond == nil || e.Cond.Of != 2 {
			continue
		}
		lit := condValLattice(*e.Cond)
		arg, succ := e.Var, e.Dest

		if state.kills[arg] {
			if succ != f.Exit && hasSuccessor(b, f.Exit) {
				// Folding here would drop every other outgoing edge,
				// including one that reaches the exit block.
				break
			}
			if state.getOutput(arg) != lit {
				continue
			}
			// admin assigns arg itself and we know its value: the branch
			// is decidable without looking at any predecessor.
			b.Out = []cfg.Edge{{Dest: succ}}
			break
		}

		tryReroute(f, an, admin, b, arg, lit, succ)
	}
}

func hasSuccessor(b *cfg.Block, dest cfg.BlockID) bool {
	for _, e := range b.Out {
		if e.Dest == dest {
			return true
		}
	}
	return false
}

// tryReroute looks for a predecessor of admin that already knows arg equals
// lit along the edge it uses to reach admin, and if found, redirects that
// edge straight to succ — hoisting admin's instructions into the
// predecessor when its edge was an unconditional jump (the predecessor runs
// admin's instructions unconditionally today, so it may as well run them
// itself), or sinking them into succ when admin is succ's only predecessor
// (nothing else depends on reaching succ any other way). When neither
// condition holds, the predecessor's edge is left alone: the reference
// implementation's own fallback for this case is itself a documented
// placeholder ("may need some sort of compatibility check"), so this port
// simply declines the rewrite rather than guess at unfinished behavior.
func tryReroute(f *cfg.Function, an *analysis, admin cfg.BlockID, adminBlock *cfg.Block, arg string, lit lattice, succ cfg.BlockID) bool {
	for _, pred := range cfg.Predecessors(f, admin) {
		predBlock := f.Block(pred)
		for i := range predBlock.Out {
			pe := &predBlock.Out[i]
			if pe.Dest != admin {
				continue
			}
			if an.data[pred].getOutput(arg) != lit {
				continue
			}
			switch {
			case pe.IsJmp():
				predBlock.Instrs = append(predBlock.Instrs, adminBlock.Instrs...)
			case len(cfg.Predecessors(f, succ)) == 1:
				succBlock := f.Block(succ)
				merged := append(append([]cfg.Instr(nil), adminBlock.Instrs...), succBlock.Instrs...)
				succBlock.Instrs = merged
			default:
				continue
			}
			pe.Dest = succ
			return true
		}
	}
	return false
}

// pruneUnreachable removes every block no longer reachable from the entry
// after rewriteBranches has rerouted edges around it. Every rewrite above
// is guarded to preserve the exit block's reachability, so it is never
// among the removed blocks.
func pruneUnreachable(f *cfg.Function) {
	reachable := map[cfg.BlockID]bool{f.Entry: true}
	stack := []cfg.BlockID{f.Entry}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		for _, s := range cfg.Successors(f, cur) {
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}

	kept := make([]*cfg.Block, 0, len(f.Blocks))
	for _, b := range f.Blocks {
		if reachable[b.ID] {
			kept = append(kept, b)
		}
	}
	f.Blocks = kept
}
