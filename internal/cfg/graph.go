package cfg

// Successors returns the distinct destination blocks of a block's outgoing
// edges, in edge order (determinism matters: restructuring and the branch
// simplifier both rely on stable iteration order).
func Successors(f *Function, id BlockID) []BlockID {
	b := f.Block(id)
	if b == nil {
		return nil
	}
	seen := map[BlockID]bool{}
	var out []BlockID
	for _, e := range b.Out {
		if !seen[e.Dest] {
			seen[e.Dest] = true
			out = append(out, e.Dest)
		}
	}
	return out
}

// Predecessors returns every block with an edge into id, in block-id order.
func Predecessors(f *Function, id BlockID) []BlockID {
	var out []BlockID
	for _, b := range f.Blocks {
		for _, e := range b.Out {
			if e.Dest == id {
				out = append(out, b.ID)
				break
			}
		}
	}
	return out
}

// --- Tarjan strongly-connected-components ---

// SCC is one strongly connected component, as a set of block IDs in the
// order Tarjan's algorithm pops them off its stack (the component's root
// last).
type SCC struct {
	Blocks []BlockID
}

// TarjanSCCs computes the strongly connected components of the subgraph
// induced by `nodes` (restructuring calls this both on a whole function and
// recursively on a shrinking subset of it when an SCC contains a nested
// SCC), restricted to edges between members of `nodes`.
func TarjanSCCs(f *Function, nodes []BlockID, entry BlockID) []SCC {
	inSet := map[BlockID]bool{}
	for _, n := range nodes {
		inSet[n] = true
	}

	index := map[BlockID]int{}
	low := map[BlockID]int{}
	onStack := map[BlockID]bool{}
	var stack []BlockID
	counter := 0
	var sccs []SCC

	var strongconnect func(v BlockID)
	strongconnect = func(v BlockID) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range Successors(f, v) {
			if !inSet[w] {
				continue
			}
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if index[w] < low[v] {
					low[v] = index[w]
				}
			}
		}

		if low[v] == index[v] {
			var comp []BlockID
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, SCC{Blocks: comp})
		}
	}

	// visit in a deterministic order starting from entry
	visited := map[BlockID]bool{}
	var order []BlockID
	var dfsOrder func(v BlockID)
	dfsOrder = func(v BlockID) {
		if visited[v] || !inSet[v] {
			return
		}
		visited[v] = true
		order = append(order, v)
		for _, w := range Successors(f, v) {
			dfsOrder(w)
		}
	}
	dfsOrder(entry)
	for _, n := range nodes {
		dfsOrder(n)
	}
	for _, v := range order {
		if _, seen := index[v]; !seen {
			strongconnect(v)
		}
	}
	return sccs
}

// --- dominators ---

// Dominators computes, for every block reachable from entry, the set of
// blocks that dominate it (including itself), via the standard iterative
// data-flow fixpoint (Cooper/Harvey/Kennedy), mirroring the reference
// implementation's use of `dominators::simple_fast` both in restructuring
// (reverse-dominance for back-edge detection) and in the RVSDG builder
// (loop/branch-head detection).
type Dominators struct {
	idom map[BlockID]BlockID
	doms map[BlockID]map[BlockID]bool
	rpo  []BlockID
}

func ComputeDominators(f *Function, entry BlockID) *Dominators {
	rpo := reversePostorder(f, entry)
	rpoIndex := map[BlockID]int{}
	for i, v := range rpo {
		rpoIndex[v] = i
	}

	idom := map[BlockID]BlockID{entry: entry}
	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			preds := Predecessors(f, b)
			var newIdom BlockID
			has := false
			for _, p := range preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !has {
					newIdom = p
					has = true
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if !has {
				continue
			}
			if old, ok := idom[b]; !ok || old != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	doms := map[BlockID]map[BlockID]bool{}
	for _, b := range rpo {
		set := map[BlockID]bool{b: true}
		cur := b
		for cur != entry {
			p, ok := idom[cur]
			if !ok {
				break
			}
			set[p] = true
			cur = p
		}
		set[entry] = true
		doms[b] = set
	}
	return &Dominators{idom: idom, doms: doms, rpo: rpo}
}

func intersect(idom map[BlockID]BlockID, rpoIndex map[BlockID]int, a, b BlockID) BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b (a == b counts as dominating).
func (d *Dominators) Dominates(a, b BlockID) bool {
	set, ok := d.doms[b]
	if !ok {
		return false
	}
	return set[a]
}

// ImmediateDominator returns b's immediate dominator, or NoBlock if b is
// unreachable or is the entry.
func (d *Dominators) ImmediateDominator(b BlockID) BlockID {
	if idom, ok := d.idom[b]; ok && idom != b {
		return idom
	}
	return NoBlock
}

func reversePostorder(f *Function, entry BlockID) []BlockID {
	visited := map[BlockID]bool{}
	var post []BlockID
	var dfs func(v BlockID)
	dfs = func(v BlockID) {
		if visited[v] {
			return
		}
		visited[v] = true
		for _, w := range Successors(f, v) {
			dfs(w)
		}
		post = append(post, v)
	}
	dfs(entry)
	rpo := make([]BlockID, len(post))
	for i, v := range post {
		rpo[len(post)-1-i] = v
	}
	return rpo
}

// IsBackEdge reports whether dest dominates src — i.e. the edge src->dest
// is a loop back-edge under dominance.
func IsBackEdge(d *Dominators, src, dest BlockID) bool {
	return d.Dominates(dest, src)
}
