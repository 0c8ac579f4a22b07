package rvsdg

import "github.com/egraphs-good/eggcc-go/internal/cfg"

// computeJoinPoints precomputes, for every block with more than one
// successor, the unique block at which its branch arms reconverge. After
// restructuring every branch node has exactly one such reentry block, so
// this is a direct port of the reentry-detection the restructurer
// itself uses rather than a general post-dominance search — mirroring the
// reference implementation's precomputed join-point table built once before
// symbolic execution begins.
func computeJoinPoints(f *cfg.Function, dom *cfg.Dominators) map[cfg.BlockID]cfg.BlockID {
	joins := map[cfg.BlockID]cfg.BlockID{}
	for _, b := range f.Blocks {
		succs := cfg.Successors(f, b.ID)
		if len(succs) < 2 {
			continue
		}
		dominated := map[cfg.BlockID]bool{}
		for _, other := range f.Blocks {
			if dom.Dominates(b.ID, other.ID) && other.ID != b.ID {
				dominated[other.ID] = true
			}
		}
		// The reentry point is the first block (in block-id order for
		// determinism) not dominated by b.ID that is reachable from one of
		// b's successors.
		reachable := map[cfg.BlockID]bool{}
		var walk func(cfg.BlockID)
		walk = func(v cfg.BlockID) {
			if reachable[v] || dominated[v] || v == b.ID {
				return
			}
			if dom.Dominates(b.ID, v) {
				return
			}
			reachable[v] = true
		}
		for _, s := range succs {
			var dfs func(cfg.BlockID, map[cfg.BlockID]bool)
			dfs = func(v cfg.BlockID, seen map[cfg.BlockID]bool) {
				if seen[v] {
					return
				}
				seen[v] = true
				if !dominated[v] && v != b.ID {
					walk(v)
					return
				}
				for _, w := range cfg.Successors(f, v) {
					dfs(w, seen)
				}
			}
			dfs(s, map[cfg.BlockID]bool{})
		}
		var join cfg.BlockID = cfg.NoBlock
		for _, blk := range f.Blocks {
			if reachable[blk.ID] {
				join = blk.ID
				break
			}
		}
		if join != cfg.NoBlock {
			joins[b.ID] = join
		}
	}
	return joins
}
