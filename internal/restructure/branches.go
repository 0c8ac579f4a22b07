package restructure

import "github.com/egraphs-good/eggcc-go/internal/cfg"

// restructureBranches ensures every conditional branch has a unique
// continuation node where all its paths reconverge. It operates on the
// acyclic graph produced by removeCycles, re-deriving dominators after
// each rewrite since new blocks invalidate the previous computation, until
// a full pass makes no changes.
func restructureBranches(f *cfg.Function, st *freshNames) {
	for {
		dom := cfg.ComputeDominators(f, f.Entry)
		changed := false
		for _, b := range append([]*cfg.Block{}, f.Blocks...) {
			succs := cfg.Successors(f, b.ID)
			if len(succs) <= 1 {
				continue
			}
			if processBranchNode(f, st, dom, b.ID, succs) {
				changed = true
				break // dom is now stale; restart the pass
			}
		}
		if !changed {
			return
		}
	}
}

// dominatedSet returns every block dominated by s (including s itself) —
// the sub-CFG reachable only through the edge into s.
func dominatedSet(f *cfg.Function, dom *cfg.Dominators, s cfg.BlockID) map[cfg.BlockID]bool {
	set := map[cfg.BlockID]bool{}
	for _, b := range f.Blocks {
		if dom.Dominates(s, b.ID) {
			set[b.ID] = true
		}
	}
	return set
}

// reentryNodes returns the distinct blocks outside `set` that are targeted
// by an edge leaving `set`.
func reentryNodes(f *cfg.Function, set map[cfg.BlockID]bool) []cfg.BlockID {
	var out []cfg.BlockID
	for n := range set {
		for _, s := range cfg.Successors(f, n) {
			if !set[s] {
				out = append(out, s)
			}
		}
	}
	return dedupeBlocks(out)
}

// processBranchNode restructures one branch node's arms so they all
// reconverge at a single continuation, returning whether it mutated the
// graph (false means this node was already in the required shape).
func processBranchNode(f *cfg.Function, st *freshNames, dom *cfg.Dominators, br cfg.BlockID, succs []cfg.BlockID) bool {
	domSets := map[cfg.BlockID]map[cfg.BlockID]bool{}
	allReentry := map[cfg.BlockID]bool{}
	for _, s := range succs {
		set := dominatedSet(f, dom, s)
		domSets[s] = set
		for _, r := range reentryNodes(f, set) {
			allReentry[r] = true
		}
	}

	if len(allReentry) <= 1 {
		var join cfg.BlockID = cfg.NoBlock
		for r := range allReentry {
			join = r
		}
		mutated := false
		for _, s := range succs {
			if s == join && join != cfg.NoBlock {
				// "one reentry, edge goes straight to it": splice in an
				// empty splitter block to make the subgraph a diamond.
				splitter := f.AddBlock(st.block("split"))
				splitter.Out = []cfg.Edge{{Dest: join}}
				redirectEdge(f, br, s, splitter.ID)
				mutated = true
			}
		}
		return mutated
	}

	// Multiple reentries: synthesize a demux continuation and reroute
	// every exit edge from every arm through a predicate-assigning
	// intermediate block.
	targets := dedupeBlocks(setKeysOrdered(allReentry))
	tail, predVar := makeDemuxNode(f, st, targets, "jointail")
	for _, s := range succs {
		set := domSets[s]
		for n := range set {
			b := f.Block(n)
			for i := range b.Out {
				if allReentry[b.Out[i].Dest] {
					idx := indexOf(targets, b.Out[i].Dest)
					mid := insertPredicateBlock(f, st, predVar, cfg.CondVal{Val: int64(idx), Of: int64(len(targets))}, tail.ID)
					b.Out[i].Dest = mid.ID
				}
			}
		}
	}
	return true
}

func setKeysOrdered(m map[cfg.BlockID]bool) []cfg.BlockID {
	var out []cfg.BlockID
	for k := range m {
		out = append(out, k)
	}
	// deterministic order matters for reproducible output; sort by numeric id.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
