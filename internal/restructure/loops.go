package restructure

import "github.com/egraphs-good/eggcc-go/internal/cfg"

// restructureLoops finds every strongly connected component of size >= 2
// within `nodes`, synthesizes single-entry/single-exit/tail-controlled loop
// shells for each, and recurses into each shell's body to find nested loops.
func restructureLoops(f *cfg.Function, st *freshNames, nodes []cfg.BlockID) {
	sccs := cfg.TarjanSCCs(f, nodes, f.Entry)
	for _, scc := range sccs {
		if len(scc.Blocks) < 2 {
			continue
		}
		bodyNodes := restructureOneLoop(f, st, scc.Blocks)
		restructureLoops(f, st, bodyNodes)
	}
}

type arc struct {
	src, dest cfg.BlockID
}

// restructureOneLoop restructures a single SCC and returns the node set of
// its (possibly now larger) body, suitable for a recursive nested-loop
// search.
func restructureOneLoop(f *cfg.Function, st *freshNames, sccBlocks []cfg.BlockID) []cfg.BlockID {
	sccSet := toSet(sccBlocks)

	var entryArcs, exitArcs []arc
	for _, b := range f.Blocks {
		for _, e := range b.Out {
			if sccSet[e.Dest] && !sccSet[b.ID] {
				entryArcs = append(entryArcs, arc{b.ID, e.Dest})
			}
			if sccSet[b.ID] && !sccSet[e.Dest] {
				exitArcs = append(exitArcs, arc{b.ID, e.Dest})
			}
		}
	}

	var entryVerts []cfg.BlockID
	for _, a := range entryArcs {
		entryVerts = append(entryVerts, a.dest)
	}
	entryVerts = dedupeBlocks(entryVerts)

	var exitVerts []cfg.BlockID
	for _, a := range exitArcs {
		exitVerts = append(exitVerts, a.dest)
	}
	exitVerts = dedupeBlocks(exitVerts)

	// repetition arcs: intra-SCC edges that target an entry vertex —
	// these are exactly the back-edges that make the component cyclic.
	var repArcs []arc
	for _, src := range sccBlocks {
		b := f.Block(src)
		for _, e := range b.Out {
			if sccSet[e.Dest] && containsBlock(entryVerts, e.Dest) {
				repArcs = append(repArcs, arc{src, e.Dest})
			}
		}
	}

	bodyExtra := append([]cfg.BlockID{}, sccBlocks...)

	// --- head ---
	// headPredVar is set only when the loop has multiple entry vertices: it
	// names the carried variable the synthesized demux reads on every
	// iteration, so any edge that can re-enter the loop at a different
	// vertex — not just the external entryArcs, but also repArcs that loop
	// back to a non-canonical entry — must keep it current.
	var head cfg.BlockID
	var headPredVar string
	if len(entryVerts) == 1 {
		head = entryVerts[0]
	} else {
		headBlock, predVar := makeDemuxNode(f, st, entryVerts, "loophead")
		head = headBlock.ID
		headPredVar = predVar
		bodyExtra = append(bodyExtra, head)
		for _, a := range entryArcs {
			idx := indexOf(entryVerts, a.dest)
			mid := insertPredicateBlock(f, st, predVar, cfg.CondVal{Val: int64(idx), Of: int64(len(entryVerts))}, head)
			redirectEdge(f, a.src, a.dest, mid.ID)
			bodyExtra = append(bodyExtra, mid.ID)
		}
	}

	// --- exit (may live outside the loop body, demultiplexing to the
	// real external targets) ---
	var exitNode cfg.BlockID
	if len(exitVerts) == 1 {
		exitNode = exitVerts[0]
	} else if len(exitVerts) > 1 {
		exitBlock, predVar := makeDemuxNode(f, st, exitVerts, "loopexit")
		exitNode = exitBlock.ID
		for _, a := range exitArcs {
			idx := indexOf(exitVerts, a.dest)
			mid := insertPredicateBlock(f, st, predVar, cfg.CondVal{Val: int64(idx), Of: int64(len(exitVerts))}, exitNode)
			redirectEdge(f, a.src, a.dest, mid.ID)
			bodyExtra = append(bodyExtra, mid.ID)
		}
		// exitArcs now point at the exit-predicate blocks, not exitNode
		// directly; below's "simple exit" rewiring must skip them.
		exitArcs = nil
	}

	// --- tail, only if the loop actually repeats ---
	if len(repArcs) > 0 {
		tail := f.AddBlock(st.block("looptail"))
		repVar := st.variable("rep")
		tail.Out = []cfg.Edge{
			{Dest: head, Var: repVar, Cond: &cfg.CondVal{Val: 1, Of: 2}},
			{Dest: exitNode, Var: repVar, Cond: &cfg.CondVal{Val: 0, Of: 2}},
		}
		bodyExtra = append(bodyExtra, tail.ID)

		for _, a := range repArcs {
			var extra []cfg.Annotation
			if headPredVar != "" {
				idx := indexOf(entryVerts, a.dest)
				extra = append(extra, cfg.Annotation{Kind: cfg.AssignCond, Var: headPredVar, Cond: cfg.CondVal{Val: int64(idx), Of: int64(len(entryVerts))}})
			}
			mid := insertPredicateBlock(f, st, repVar, cfg.CondVal{Val: 1, Of: 2}, tail.ID, extra...)
			redirectEdge(f, a.src, a.dest, mid.ID)
			bodyExtra = append(bodyExtra, mid.ID)
		}
		for _, a := range exitArcs {
			mid := insertPredicateBlock(f, st, repVar, cfg.CondVal{Val: 0, Of: 2}, tail.ID)
			redirectEdge(f, a.src, a.dest, mid.ID)
			bodyExtra = append(bodyExtra, mid.ID)
		}
	}
	// When repArcs is empty the component isn't actually a cycle (Tarjan
	// only guarantees mutual reachability within the induced subgraph);
	// exitArcs already point at exitNode/the predicate blocks built above
	// and need no further rewiring.

	return dedupeBlocks(bodyExtra)
}

func containsBlock(ids []cfg.BlockID, id cfg.BlockID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func indexOf(ids []cfg.BlockID, id cfg.BlockID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

// makeDemuxNode synthesizes a block that branches to each of `targets`
// based on a fresh predicate variable, assigning block indices 0..n-1.
// Every edge that can reach one of `targets` — directly or through a
// rerouted predecessor — must keep the returned variable assigned to the
// index of the target it actually wants, or the demux will route control
// to whichever target a previous assignment named.
func makeDemuxNode(f *cfg.Function, st *freshNames, targets []cfg.BlockID, label string) (*cfg.Block, string) {
	b := f.AddBlock(st.block(label))
	predVar := st.variable(label + "_pred")
	for i, t := range targets {
		b.Out = append(b.Out, cfg.Edge{Dest: t, Var: predVar, Cond: &cfg.CondVal{Val: int64(i), Of: int64(len(targets))}})
	}
	return b, predVar
}

// insertPredicateBlock synthesizes a block that assigns v = cond (plus any
// further variable assignments in extra) in its footer and then jumps
// unconditionally to dest.
func insertPredicateBlock(f *cfg.Function, st *freshNames, v string, cond cfg.CondVal, dest cfg.BlockID, extra ...cfg.Annotation) *cfg.Block {
	b := f.AddBlock(st.block("setpred"))
	b.Footer = append(b.Footer, cfg.Annotation{Kind: cfg.AssignCond, Var: v, Cond: cond})
	b.Footer = append(b.Footer, extra...)
	b.Out = []cfg.Edge{{Dest: dest}}
	return b
}

// redirectEdge rewrites the first edge from src to oldDest so it instead
// points at newDest, preserving the edge's selector.
func redirectEdge(f *cfg.Function, src, oldDest, newDest cfg.BlockID) {
	b := f.Block(src)
	for i := range b.Out {
		if b.Out[i].Dest == oldDest {
			b.Out[i].Dest = newDest
			return
		}
	}
}
