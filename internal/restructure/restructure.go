// Package restructure transforms an arbitrary reducible-or-irreducible CFG
// into one whose loops are single-entry/single-exit and tail-controlled,
// and whose branches all reconverge at a unique continuation node — the
// shape the RVSDG builder requires to emit only Gamma/Theta regions.
// Grounded on the reference implementation's restructure.rs: SCC-based loop
// restructuring followed by dominator-subgraph-based branch restructuring.
package restructure

import (
	"fmt"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
)

// freshNames hands out unique block labels and predicate variable names,
// standing in for the reference implementation's per-function counter.
type freshNames struct{ n int }

func (f *freshNames) block(prefix string) string {
	f.n++
	return fmt.Sprintf("__%s%d", prefix, f.n)
}

func (f *freshNames) variable(prefix string) string {
	f.n++
	return fmt.Sprintf("__%s%d", prefix, f.n)
}

// Function restructures one function in place. Restructuring is total: it
// never fails.
func Function(f *cfg.Function) {
	st := &freshNames{}
	restructureLoops(f, st, allBlocks(f))

	removed := removeCycles(f)
	restructureBranches(f, st)
	reinstallCycles(f, removed)
}

func allBlocks(f *cfg.Function) []cfg.BlockID {
	ids := make([]cfg.BlockID, len(f.Blocks))
	for i, b := range f.Blocks {
		ids[i] = b.ID
	}
	return ids
}

// removeCycles strips every back-edge (per dominance from the function
// entry) so branch restructuring can operate on an acyclic graph, and
// returns what it removed so the caller can reinstall it afterward.
type removedEdge struct {
	src  cfg.BlockID
	edge cfg.Edge
}

func removeCycles(f *cfg.Function) []removedEdge {
	dom := cfg.ComputeDominators(f, f.Entry)
	var removed []removedEdge
	for _, b := range f.Blocks {
		var kept []cfg.Edge
		for _, e := range b.Out {
			if cfg.IsBackEdge(dom, b.ID, e.Dest) {
				removed = append(removed, removedEdge{b.ID, e})
				continue
			}
			kept = append(kept, e)
		}
		b.Out = kept
	}
	return removed
}

func reinstallCycles(f *cfg.Function, removed []removedEdge) {
	for _, r := range removed {
		b := f.Block(r.src)
		b.Out = append(b.Out, r.edge)
	}
}

func setIntersect(set map[cfg.BlockID]bool, id cfg.BlockID) bool { return set[id] }

func toSet(ids []cfg.BlockID) map[cfg.BlockID]bool {
	m := make(map[cfg.BlockID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func dedupeBlocks(ids []cfg.BlockID) []cfg.BlockID {
	seen := map[cfg.BlockID]bool{}
	var out []cfg.BlockID
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
