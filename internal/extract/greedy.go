package extract

import (
	"math"
	"sort"

	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rewrite"
)

// ExtractGreedy runs a two-round greedy region-aware extraction and
// reconstructs the winning tree into an ir.Program. Round one
// resolves the cheapest e-node per (region, class) with no linearity
// restriction; round two re-runs the same fixpoint restricted, within every
// region, to the specific effectful nodes round one's own chosen tree
// visited — guaranteeing the final program reads/writes state along a
// single path per region rather than silently picking two different
// "cheapest" effectful nodes that happen to share a class.
func ExtractGreedy(g *rewrite.EGraph, cm CostModel) (*ir.Program, error) {
	info := newGraphInfo(g, cm)

	round1, err := extractWithoutLinearity(info, nil)
	if err != nil {
		return nil, err
	}
	allowed := findEffectfulNodesInProgram(round1, info)

	round2, err := extractWithoutLinearity(info, allowed)
	if err != nil {
		return nil, err
	}

	return Rebuild(g, round2, info)
}

// CostSet is the winning e-node for one (region, e-class) pair: Total is
// its DAG cost within that region, Costs maps every e-class paid for so
// far to its lowest known cost (so a shared e-class already counted once
// contributes zero to a later sibling), and Node records which e-node won
// so a later pass can walk the chosen tree back out. Grounded directly on
// the reference extractor's CostSet.
type CostSet struct {
	Total float64
	Costs map[rewrite.ClassID]float64
	Node  rewrite.NodeID
}

type regionClass struct {
	Root, Class rewrite.ClassID
}

type regionNode struct {
	Root rewrite.ClassID
	Node rewrite.NodeID
}

// graphInfo is the reference extractor's EgraphInfo: the region roots, the
// reachable (root, class) pairs, a reverse parents index used to wake up
// dependent worklist entries, and a deterministic seed set of leaf roots.
type graphInfo struct {
	g         *rewrite.EGraph
	cm        CostModel
	nodeClass map[rewrite.NodeID]rewrite.ClassID
	parents   map[regionClass][]regionNode
	roots     []regionNode
}

func newGraphInfo(g *rewrite.EGraph, cm CostModel) *graphInfo {
	info := &graphInfo{g: g, cm: cm, nodeClass: map[rewrite.NodeID]rewrite.ClassID{}, parents: map[regionClass][]regionNode{}}
	for cid, c := range g.Classes {
		for _, nid := range c.Nodes {
			info.nodeClass[nid] = cid
		}
	}

	var relevant []regionClass
	for _, root := range regionRootsOf(g) {
		for _, cid := range info.reachableWithin(root) {
			relevant = append(relevant, regionClass{root, cid})
		}
	}
	sort.Slice(relevant, func(i, j int) bool {
		if relevant[i].Root != relevant[j].Root {
			return relevant[i].Root < relevant[j].Root
		}
		return relevant[i].Class < relevant[j].Class
	})

	for _, rc := range relevant {
		class := g.Classes[rc.Class]
		if class == nil {
			continue
		}
		for _, nid := range class.Nodes {
			node := g.Nodes[nid]
			if len(node.Children) == 0 {
				info.roots = append(info.roots, regionNode{Root: rc.Root, Node: nid})
			}
			for _, ck := range node.ChildKinds() {
				childRegion := rc.Root
				if ck.IsSubregion {
					childRegion = ck.Class
				}
				key := regionClass{childRegion, ck.Class}
				info.parents[key] = append(info.parents[key], regionNode{Root: rc.Root, Node: nid})
			}
		}
	}
	sort.Slice(info.roots, func(i, j int) bool {
		if info.roots[i].Root != info.roots[j].Root {
			return info.roots[i].Root < info.roots[j].Root
		}
		return info.roots[i].Node < info.roots[j].Node
	})

	return info
}

// regionRootsOf finds every class that bounds a region: the e-graph's
// overall root plus every subregion child discovered across all nodes (an
// If's then/else, a Switch's branches, a DoWhile's body, a Function's
// body). Sorted for deterministic iteration.
func regionRootsOf(g *rewrite.EGraph) []rewrite.ClassID {
	set := map[rewrite.ClassID]bool{g.Root: true}
	for _, cid := range g.ClassOrder {
		for _, nid := range g.Classes[cid].Nodes {
			node := g.Nodes[nid]
			for _, ck := range node.ChildKinds() {
				if ck.IsSubregion {
					set[ck.Class] = true
				}
			}
		}
	}
	roots := make([]rewrite.ClassID, 0, len(set))
	for root := range set {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots
}

// reachableWithin walks every class reachable from root by ordinary data
// edges, stopping at subregion boundaries (those belong to their own
// region's reachability set, computed separately when root is that class).
func (info *graphInfo) reachableWithin(root rewrite.ClassID) []rewrite.ClassID {
	visited := map[rewrite.ClassID]bool{}
	queue := []rewrite.ClassID{root}
	var order []rewrite.ClassID
	for len(queue) > 0 {
		cid := queue[0]
		queue = queue[1:]
		if visited[cid] {
			continue
		}
		visited[cid] = true
		order = append(order, cid)
		class := info.g.Classes[cid]
		if class == nil {
			continue
		}
		for _, nid := range class.Nodes {
			node := info.g.Nodes[nid]
			for _, ck := range node.ChildKinds() {
				if !ck.IsSubregion && !visited[ck.Class] {
					queue = append(queue, ck.Class)
				}
			}
		}
	}
	return order
}

func isEffectfulOp(node *rewrite.ENode) bool {
	switch node.Op {
	case "Bop":
		return node.BopOp.IsEffectful()
	case "Top":
		return node.TopOp.String() == "write"
	case "Alloc":
		return true
	default:
		return false
	}
}

func isUnextractable(node *rewrite.ENode, g *rewrite.EGraph) bool {
	if len(g.Unextractable) == 0 {
		return false
	}
	switch node.Op {
	case "Function":
		return g.Unextractable[node.FuncName]
	case "Call":
		return g.Unextractable[node.CallName]
	default:
		return false
	}
}

// calculateCostSet computes node's cost set from its already-resolved
// children, or nil if any child hasn't been priced yet.
func calculateCostSet(root rewrite.ClassID, nodeID rewrite.NodeID, costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet, info *graphInfo) *CostSet {
	node := info.g.Nodes[nodeID]
	cid := info.nodeClass[nodeID]
	regionCosts := costs[root]

	type childRef struct {
		set         *CostSet
		isSubregion bool
	}
	var children []childRef
	for _, ck := range node.ChildKinds() {
		var set *CostSet
		if ck.IsSubregion {
			set = costs[ck.Class][ck.Class]
		} else {
			set = regionCosts[ck.Class]
		}
		if set == nil {
			return nil
		}
		children = append(children, childRef{set, ck.IsSubregion})
	}

	for _, c := range children {
		if _, cyclic := c.set.Costs[cid]; cyclic {
			return &CostSet{Total: math.Inf(1), Costs: map[rewrite.ClassID]float64{}, Node: nodeID}
		}
	}

	unshared := info.cm.GetOpCost(node.Op)
	shared := 0.0
	costMap := map[rewrite.ClassID]float64{}
	if !info.cm.IgnoreChildren(node.Op) {
		for _, c := range children {
			if c.isSubregion {
				unshared += c.set.Total
				continue
			}
			for childClass, childCost := range c.set.Costs {
				if existing, ok := costMap[childClass]; ok {
					if existing > childCost {
						shared -= existing - childCost
						costMap[childClass] = childCost
					}
				} else {
					costMap[childClass] = childCost
					shared += childCost
				}
			}
		}
	}
	costMap[cid] = unshared
	return &CostSet{Total: unshared + shared, Costs: costMap, Node: nodeID}
}

// extractWithoutLinearity runs a worklist fixpoint: seed every
// region-local leaf, propagate improved cost sets to parents,
// and repeat until no class's best cost improves. When allowed is
// non-nil, an effectful node is only considered within regions it lists
// (the second, linearity-restricted pass).
func extractWithoutLinearity(info *graphInfo, allowed map[rewrite.ClassID]map[rewrite.NodeID]bool) (map[rewrite.ClassID]map[rewrite.ClassID]*CostSet, error) {
	costs := map[rewrite.ClassID]map[rewrite.ClassID]*CostSet{}
	wl := newUniqueQueue()
	for _, rn := range info.roots {
		wl.insert(rn)
	}

	for {
		rn, ok := wl.pop()
		if !ok {
			break
		}
		node := info.g.Nodes[rn.Node]
		if node == nil || isUnextractable(node, info.g) {
			continue
		}
		cid := info.nodeClass[rn.Node]

		if allowed != nil {
			if nodesInRoot, scoped := allowed[rn.Root]; scoped {
				if isEffectfulOp(node) && !nodesInRoot[rn.Node] {
					continue
				}
			}
		}

		regionCosts := costs[rn.Root]
		if regionCosts == nil {
			regionCosts = map[rewrite.ClassID]*CostSet{}
			costs[rn.Root] = regionCosts
		}
		prevTotal := math.Inf(1)
		if prev, ok := regionCosts[cid]; ok {
			prevTotal = prev.Total
		}

		cs := calculateCostSet(rn.Root, rn.Node, costs, info)
		if cs == nil {
			continue
		}
		if cs.Total < prevTotal {
			regionCosts[cid] = cs
			for _, parent := range info.parents[regionClass{rn.Root, cid}] {
				wl.insert(parent)
			}
		}
	}

	if costs[info.g.Root] == nil || costs[info.g.Root][info.g.Root] == nil {
		return nil, diag.New(diag.EXT001, "no e-node reachable for the program root")
	}
	return costs, nil
}

// findEffectfulNodesInProgram walks the already-extracted tree (one chosen
// node per reachable class) and records, per region, exactly the effectful
// nodes that tree actually visits. A second extraction pass restricted to
// this set can no longer pick some other, cheaper-looking effectful node
// from the same class that the first pass's tree never actually used,
// which is what would otherwise break state linearity. This is a
// single-tree-walk simplification of the reference extractor's two-pass
// state-walk/A*-over-bitsets search: because this package's CostSet
// computation already resolves exactly one node per (region, class) pair
// (there is no remaining choice to search over once round one's fixpoint
// settles), walking that one resulting tree is sufficient to recover the
// same restriction set the heavier search exists to compute.
func findEffectfulNodesInProgram(costs map[rewrite.ClassID]map[rewrite.ClassID]*CostSet, info *graphInfo) map[rewrite.ClassID]map[rewrite.NodeID]bool {
	out := map[rewrite.ClassID]map[rewrite.NodeID]bool{}
	var walk func(root, class rewrite.ClassID, visited map[rewrite.ClassID]bool)
	walk = func(root, class rewrite.ClassID, visited map[rewrite.ClassID]bool) {
		if visited[class] {
			return
		}
		visited[class] = true
		cs := costs[root][class]
		if cs == nil {
			return
		}
		node := info.g.Nodes[cs.Node]
		if isEffectfulOp(node) {
			if out[root] == nil {
				out[root] = map[rewrite.NodeID]bool{}
			}
			out[root][cs.Node] = true
		}
		for _, ck := range node.ChildKinds() {
			if ck.IsSubregion {
				walk(ck.Class, ck.Class, map[rewrite.ClassID]bool{})
			} else {
				walk(root, ck.Class, visited)
			}
		}
	}
	walk(info.g.Root, info.g.Root, map[rewrite.ClassID]bool{})
	return out
}

// uniqueQueue is a FIFO queue of distinct regionNode entries: reinserting
// an already-queued entry is a no-op, matching the reference extractor's
// UniqueQueue (cited there as contributed by a community member) used to
// keep the worklist from growing unboundedly on repeated invalidation.
type uniqueQueue struct {
	queue []regionNode
	set   map[regionNode]bool
}

func newUniqueQueue() *uniqueQueue { return &uniqueQueue{set: map[regionNode]bool{}} }

func (q *uniqueQueue) insert(rn regionNode) {
	if q.set[rn] {
		return
	}
	q.set[rn] = true
	q.queue = append(q.queue, rn)
}

func (q *uniqueQueue) pop() (regionNode, bool) {
	if len(q.queue) == 0 {
		return regionNode{}, false
	}
	rn := q.queue[0]
	q.queue = q.queue[1:]
	delete(q.set, rn)
	return rn, true
}
