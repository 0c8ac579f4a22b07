package extract

import (
	"math"
	"sort"
	"time"

	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rewrite"
)

// Config toggles the pre-search simplifications ExtractExact applies before
// branching, ported from fastercbcextractor.rs's Config (there, flags that
// gate which constraints get built for the ILP model; here, flags that gate
// which candidates get pruned before the in-house search). Every field
// defaults the same way the reference Config::default() does.
type Config struct {
	RemoveSelfLoops                  bool
	RemoveHighCostNodes               bool
	RemoveMoreExpensiveSubsumedNodes  bool
	ReturnImprovedOnTimeout           bool
}

// DefaultConfig mirrors fastercbcextractor.rs's Config::default(). Fields
// that tune an LP-specific encoding this package has no use for
// (pull_up_costs, take_intersection_of_children_in_class, and friends —
// all about shrinking the *column count* handed to a solver) are dropped:
// an in-house branch-and-bound never builds that encoding in the first
// place, so there is nothing for those flags to gate.
func DefaultConfig() Config {
	return Config{
		RemoveSelfLoops:                 true,
		RemoveHighCostNodes:              true,
		RemoveMoreExpensiveSubsumedNodes: true,
		ReturnImprovedOnTimeout:          true,
	}
}

// ExtractExact computes a DAG-cost-optimal extraction, exploring the
// choices the greedy extractor's per-class local minimization cannot: two
// classes might each have a cheaper winner in isolation, yet a pair of
// slightly pricier alternatives that happen to share a third class could
// total less once that sharing is paid for only once. Greedy never
// discovers that trade; this does, by branching over every class left
// ambiguous after pruning and scoring each complete choice by its true
// shared-DAG cost.
//
// The reference extractor hands the same one-boolean-per-node formulation
// to COIN-OR CBC and repairs whatever cycles the relaxed LP solution
// contains by adding a blocking constraint and re-solving. No LP/MIP
// solver binding exists anywhere in the retrieval pack (see DESIGN.md), so
// this instead runs a depth-first branch-and-bound directly over the
// formulation's variables, rejecting a branch outright the instant it
// revisits a class still open on its own recursion path — the same
// "reject and keep searching" effect as the reference's "block and
// re-solve" loop, just applied before a bad choice is ever scored instead
// of after.
//
// The greedy result seeds the search as the initial incumbent. If the
// search cannot finish proving optimality within timeout, ExtractExact
// returns the best program found so far when Config.ReturnImprovedOnTimeout
// is true (the default) and an EXT002 error when it is false.
func ExtractExact(g *rewrite.EGraph, cm CostModel, cfg Config, timeout time.Duration) (*ir.Program, error) {
	deadline := time.Now().Add(timeout)
	info := newGraphInfo(g, cm)

	round1, err := extractWithoutLinearity(info, nil)
	if err != nil {
		return nil, err
	}
	allowed := findEffectfulNodesInProgram(round1, info)
	costs, err := extractWithoutLinearity(info, allowed)
	if err != nil {
		return nil, err
	}

	s := &bnbSearch{info: info, allowed: allowed, cfg: cfg, deadline: deadline}

	timedOut := false
	for pass := 0; pass < 3 && !timedOut; pass++ {
		changed := false
		for _, root := range regionRootsOf(g) {
			if time.Now().After(deadline) {
				timedOut = true
				break
			}
			if s.refineRegion(root, costs) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	if timedOut && !cfg.ReturnImprovedOnTimeout {
		return nil, diag.New(diag.EXT002, "exact extraction did not finish within %s", timeout)
	}

	return Rebuild(g, costs, info)
}

// bnbSearch holds the state shared across every region's branch-and-bound
// pass: the graph, the round-two linearity restriction (kept identical to
// greedy's so the exact and greedy extractors never disagree on which
// effectful nodes a region may use, only on which pure structure around
// them is cheapest), the pruning toggles, and the shared wall-clock
// deadline.
type bnbSearch struct {
	info     *graphInfo
	allowed  map[rewrite.ClassID]map[rewrite.NodeID]bool
	cfg      Config
	deadline time.Time
}

// refineRegion searches for a cheaper full assignment of root's region than
// the one already recorded in costs[root], replacing it in place if found.
// It reports whether it improved anything, so the caller can loop passes
// until a fixpoint (mirroring the reference extractor's own "for _i in
// 1..3" simplification loop).
func (s *bnbSearch) refineRegion(root rewrite.ClassID, costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet) bool {
	classes := s.info.reachableWithin(root)
	cands := s.candidatesFor(root, classes)

	if s.cfg.RemoveSelfLoops {
		for cid, nids := range cands {
			cands[cid] = filterNodes(nids, func(nid rewrite.NodeID) bool {
				return !s.hasSelfLoop(nid, cid)
			})
		}
	}
	if s.cfg.RemoveMoreExpensiveSubsumedNodes {
		for cid, nids := range cands {
			cands[cid] = s.removeSubsumed(nids)
		}
	}

	regionCosts := costs[root]
	baseline := map[rewrite.ClassID]rewrite.NodeID{}
	for cid, cs := range regionCosts {
		baseline[cid] = cs.Node
	}
	bestTotal, ok := s.evalChoice(root, baseline, costs)
	if !ok {
		bestTotal = math.Inf(1)
	}

	if s.cfg.RemoveHighCostNodes {
		for cid, nids := range cands {
			cands[cid] = filterNodes(nids, func(nid rewrite.NodeID) bool {
				return s.info.cm.GetOpCost(s.info.g.Nodes[nid].Op) <= bestTotal
			})
		}
	}

	var ambiguous []rewrite.ClassID
	for _, cid := range classes {
		if len(cands[cid]) > 1 {
			ambiguous = append(ambiguous, cid)
		}
	}
	sort.Slice(ambiguous, func(i, j int) bool { return ambiguous[i] < ambiguous[j] })

	// A nested region's own refinement can lower its Total after this
	// region's CostSet was last computed (the two are independent searches
	// connected only through the constant a subregion child contributes —
	// see calculateCostSet), so even an unambiguous region re-materializes
	// once its baseline's live total has dropped below what's on record.
	existingTotal := math.Inf(1)
	if cs, has := regionCosts[root]; has {
		existingTotal = cs.Total
	}
	bestChoice := cloneChoice(baseline)
	improved := ok && bestTotal < existingTotal
	if len(ambiguous) == 0 {
		if !improved {
			return false
		}
		costs[root] = s.materialize(root, bestChoice, costs)
		return true
	}

	choice := cloneChoice(baseline)

	var assign func(i int)
	assign = func(i int) {
		if time.Now().After(s.deadline) {
			return
		}
		if i == len(ambiguous) {
			total, ok := s.evalChoice(root, choice, costs)
			if ok && total < bestTotal {
				bestTotal = total
				bestChoice = cloneChoice(choice)
				improved = true
			}
			return
		}
		cid := ambiguous[i]
		for _, nid := range cands[cid] {
			choice[cid] = nid
			assign(i + 1)
			if time.Now().After(s.deadline) {
				return
			}
		}
	}
	assign(0)

	if !improved {
		return false
	}
	costs[root] = s.materialize(root, bestChoice, costs)
	return true
}

// candidatesFor lists, for every class reachable within root, the nodes
// still eligible to fill it: extractable, and — when root is linearity
// restricted by the allowed set computed from round one — not an
// effectful node outside that restriction.
func (s *bnbSearch) candidatesFor(root rewrite.ClassID, classes []rewrite.ClassID) map[rewrite.ClassID][]rewrite.NodeID {
	nodesInRoot, scoped := s.allowed[root]
	out := map[rewrite.ClassID][]rewrite.NodeID{}
	for _, cid := range classes {
		class := s.info.g.Classes[cid]
		if class == nil {
			continue
		}
		for _, nid := range class.Nodes {
			node := s.info.g.Nodes[nid]
			if isUnextractable(node, s.info.g) {
				continue
			}
			if scoped && isEffectfulOp(node) && !nodesInRoot[nid] {
				continue
			}
			out[cid] = append(out[cid], nid)
		}
	}
	return out
}

func (s *bnbSearch) hasSelfLoop(nid rewrite.NodeID, cid rewrite.ClassID) bool {
	for _, ck := range s.info.g.Nodes[nid].ChildKinds() {
		if !ck.IsSubregion && ck.Class == cid {
			return true
		}
	}
	return false
}

// removeSubsumed drops any candidate whose cost and children are both
// dominated by another candidate in the same class: if a is no more
// expensive than b and a's children are a subset of b's, b can never win
// and need not be searched, per remove_more_expensive_subsumed_nodes.
func (s *bnbSearch) removeSubsumed(nids []rewrite.NodeID) []rewrite.NodeID {
	type entry struct {
		nid      rewrite.NodeID
		cost     float64
		children map[rewrite.ClassID]bool
	}
	entries := make([]entry, len(nids))
	for i, nid := range nids {
		node := s.info.g.Nodes[nid]
		children := map[rewrite.ClassID]bool{}
		for _, ck := range node.ChildKinds() {
			children[ck.Class] = true
		}
		entries[i] = entry{nid, s.info.cm.GetOpCost(node.Op), children}
	}
	removed := map[rewrite.NodeID]bool{}
	for i := range entries {
		for j := range entries {
			if i == j || removed[entries[j].nid] {
				continue
			}
			if entries[i].cost <= entries[j].cost && isSubsetOfClasses(entries[i].children, entries[j].children) {
				removed[entries[j].nid] = true
			}
		}
	}
	return filterNodes(nids, func(nid rewrite.NodeID) bool { return !removed[nid] })
}

// evalChoice scores a complete per-class assignment for root's region by
// its true shared-DAG cost: walk from root, add a visited class's node
// cost exactly once no matter how many siblings reach it, and add a
// subregion child's already-solved Total as a flat constant (subregions
// are unshared by construction — see calculateCostSet). ok is false if the
// walk reaches a class still open earlier on its own path, i.e. the
// assignment is cyclic and therefore not a real program.
func (s *bnbSearch) evalChoice(root rewrite.ClassID, choice map[rewrite.ClassID]rewrite.NodeID, costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet) (float64, bool) {
	visited := map[rewrite.ClassID]bool{}
	onPath := map[rewrite.ClassID]bool{}
	total := 0.0
	ok := true

	var walk func(cid rewrite.ClassID)
	walk = func(cid rewrite.ClassID) {
		if !ok || visited[cid] {
			return
		}
		if onPath[cid] {
			ok = false
			return
		}
		nid, has := choice[cid]
		if !has {
			ok = false
			return
		}
		onPath[cid] = true
		node := s.info.g.Nodes[nid]
		total += s.info.cm.GetOpCost(node.Op)
		if !s.info.cm.IgnoreChildren(node.Op) {
			for _, ck := range node.ChildKinds() {
				if ck.IsSubregion {
					child := costs[ck.Class][ck.Class]
					if child == nil {
						ok = false
						return
					}
					total += child.Total
					continue
				}
				walk(ck.Class)
				if !ok {
					return
				}
			}
		}
		onPath[cid] = false
		visited[cid] = true
	}
	walk(root)
	if !ok {
		return math.Inf(1), false
	}
	return total, true
}

// materialize turns a winning choice map into real CostSets (via the same
// calculateCostSet greedy uses, so both extractors agree on what a
// CostSet's Costs map means), in a bottom-up order derived from choice's
// own edges — already proven acyclic by evalChoice.
func (s *bnbSearch) materialize(root rewrite.ClassID, choice map[rewrite.ClassID]rewrite.NodeID, costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet) map[rewrite.ClassID]*CostSet {
	regionCosts := map[rewrite.ClassID]*CostSet{}
	saved := costs[root]
	costs[root] = regionCosts
	defer func() { costs[root] = saved }()

	visited := map[rewrite.ClassID]bool{}
	var visit func(cid rewrite.ClassID)
	visit = func(cid rewrite.ClassID) {
		if visited[cid] {
			return
		}
		visited[cid] = true
		nid, ok := choice[cid]
		if !ok {
			return
		}
		for _, ck := range s.info.g.Nodes[nid].ChildKinds() {
			if !ck.IsSubregion {
				visit(ck.Class)
			}
		}
		if cs := calculateCostSet(root, nid, costs, s.info); cs != nil {
			regionCosts[cid] = cs
		}
	}
	visit(root)
	return regionCosts
}

func cloneChoice(m map[rewrite.ClassID]rewrite.NodeID) map[rewrite.ClassID]rewrite.NodeID {
	out := make(map[rewrite.ClassID]rewrite.NodeID, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func filterNodes(nids []rewrite.NodeID, keep func(rewrite.NodeID) bool) []rewrite.NodeID {
	out := nids[:0]
	for _, nid := range nids {
		if keep(nid) {
			out = append(out, nid)
		}
	}
	return out
}

func isSubsetOfClasses(a, b map[rewrite.ClassID]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
