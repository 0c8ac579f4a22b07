package simplify

import (
	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// lattice is the three-level semilattice the value analysis tracks per
// (block, boolean variable): unknown-so-far (Bot), a known literal, or
// proven-to-vary (Top). Bot is the zero value so a fresh map read defaults
// to it without an explicit seed.
type lattice int

const (
	Bot lattice = iota
	KnownTrue
	KnownFalse
	Top
)

// merge joins other into the receiver in place, reporting whether the
// receiver's value changed — the monotone join this analysis' fixpoint
// iterates to convergence.
func (v *lattice) merge(other lattice) bool {
	switch {
	case *v == Bot && other == Bot:
		return false
	case *v == Bot:
		*v = other
		return true
	case *v == Top:
		return false
	case other == Top:
		*v = Top
		return true
	case *v == other:
		return false
	case other == Bot:
		return false
	default:
		*v = Top
		return true
	}
}

// transformKind is the shape of a single boolean assignment inside a block:
// a copy, a negation, or an overwrite with a statically-known result
// (either a known literal or Top for any op this analysis doesn't model
// precisely).
type transformKind int

const (
	tID transformKind = iota
	tNegate
	tOverwrite
)

type transform struct {
	kind transformKind
	val  lattice // meaningful only when kind == tOverwrite
}

func (t transform) apply(v lattice) lattice {
	switch t.kind {
	case tNegate:
		switch v {
		case KnownTrue:
			return KnownFalse
		case KnownFalse:
			return KnownTrue
		default:
			return v
		}
	case tOverwrite:
		return t.val
	default: // tID
		return v
	}
}

// transformStep is one entry in a block's ordered list of boolean
// assignments: dst := transform(src).
type transformStep struct {
	dst, src string
	t        transform
}

// valueState is the per-block state of the analysis: the lattice values
// inherited from predecessors (join of their outputs), the ordered
// transforms this block's own instructions apply on top of that, and the
// materialized result (outputs), recomputed lazily whenever inherited or
// transforms change.
type valueState struct {
	inherited  map[string]lattice
	transforms []transformStep
	kills      map[string]bool
	outputs    map[string]lattice
	recompute  bool
}

func newValueState(b *cfg.Block) *valueState {
	s := &valueState{
		inherited: map[string]lattice{},
		kills:     map[string]bool{},
		outputs:   map[string]lattice{},
		recompute: true,
	}
	for _, in := range b.Instrs {
		switch {
		case in.Op == cfg.OpConst && in.ConstVal.Kind == ir.BoolConst:
			lit := KnownFalse
			if in.ConstVal.Bool {
				lit = KnownTrue
			}
			s.transforms = append(s.transforms, transformStep{dst: in.Dest, t: transform{kind: tOverwrite, val: lit}})
		case in.DestType.Kind == ir.Bool && in.Op == cfg.OpId && len(in.Args) == 1:
			s.transforms = append(s.transforms, transformStep{dst: in.Dest, src: in.Args[0], t: transform{kind: tID}})
		case in.DestType.Kind == ir.Bool && in.Op == cfg.OpNot && len(in.Args) == 1:
			s.transforms = append(s.transforms, transformStep{dst: in.Dest, src: in.Args[0], t: transform{kind: tNegate}})
		case in.DestType.Kind == ir.Bool:
			// Any other boolean-producing op: treat the result as unknown
			// rather than modeling its semantics.
			s.transforms = append(s.transforms, transformStep{dst: in.Dest, t: transform{kind: tOverwrite, val: Top}})
		}
	}
	return s
}

// maybeRecompute refreshes outputs from inherited+transforms if stale,
// returning whether a recompute actually happened.
func (s *valueState) maybeRecompute() bool {
	stale := s.recompute
	if stale {
		s.outputs = make(map[string]lattice, len(s.inherited)+len(s.transforms))
		for id, v := range s.inherited {
			s.outputs[id] = v
		}
		for _, step := range s.transforms {
			srcVal := s.outputs[step.src]
			dstVal := step.t.apply(srcVal)
			s.outputs[step.dst] = dstVal
			s.kills[step.dst] = true
		}
		s.recompute = false
	}
	return stale
}

func (s *valueState) getOutput(id string) lattice { return s.outputs[id] }

// mergeFrom joins src's materialized outputs into dst's inherited state,
// marking dst stale if anything changed. Calling this with src == dst
// handles a self-loop predecessor correctly: it folds a block's own
// just-computed outputs back into its inherited inputs, the standard
// "merge a node's outputs into itself" step a single-block loop needs to
// reach a fixpoint.
func mergeFrom(dst, src *valueState) bool {
	changed := false
	for id, v := range src.outputs {
		cur := dst.inherited[id]
		if cur.merge(v) {
			changed = true
		}
		dst.inherited[id] = cur
	}
	if changed {
		dst.recompute = true
	}
	return changed
}

func addAssignment(s *valueState, dst string, val lattice) {
	s.transforms = append([]transformStep{{dst: dst, t: transform{kind: tOverwrite, val: val}}}, s.transforms...)
	s.recompute = true
}

// analysis is the whole-function value analysis: one valueState per block.
type analysis struct {
	data map[cfg.BlockID]*valueState
}

func newAnalysis(f *cfg.Function) *analysis {
	a := &analysis{data: map[cfg.BlockID]*valueState{}}
	for _, b := range f.Blocks {
		a.data[b.ID] = newValueState(b)
	}
	for _, p := range f.Args {
		if p.Type.Kind == ir.Bool {
			a.addAssignment(f.Entry, p.Name, Top)
		}
	}
	return a
}

// addAssignment prepends a virtual `dst := val` instruction ahead of node's
// real instructions, creating node's state on demand — used both for
// unknown boolean arguments at the entry block and for the known literal a
// split boolean branch's placeholder block carries.
func (a *analysis) addAssignment(node cfg.BlockID, dst string, val lattice) {
	s, ok := a.data[node]
	if !ok {
		s = &valueState{inherited: map[string]lattice{}, kills: map[string]bool{}, outputs: map[string]lattice{}}
		a.data[node] = s
	}
	addAssignment(s, dst, val)
}

// computeFixpoint propagates boolean values through the CFG to a fixpoint
// via a simple FIFO worklist, mirroring the reference implementation's
// worklist algorithm without its Rust-borrow-checker-motivated
// take-then-reinsert dance: since a.data's entries are pointers, merging a
// node's predecessors' outputs into its own inherited state (including the
// node itself, for a self-loop) needs no special-casing here.
func (a *analysis) computeFixpoint(f *cfg.Function) {
	worklist := newBlockQueue()
	for _, b := range f.Blocks {
		a.data[b.ID].maybeRecompute()
		worklist.insert(b.ID)
	}
	for {
		node, ok := worklist.pop()
		if !ok {
			break
		}
		cur := a.data[node]
		for _, pred := range cfg.Predecessors(f, node) {
			mergeFrom(cur, a.data[pred])
		}
		if cur.maybeRecompute() {
			for _, succ := range cfg.Successors(f, node) {
				worklist.insert(succ)
			}
		}
	}
}

// blockQueue is a FIFO worklist with deduplication: inserting an
// already-queued block is a no-op, matching the reference's UniqueQueue and
// internal/extract's uniqueQueue.
type blockQueue struct {
	items  []cfg.BlockID
	queued map[cfg.BlockID]bool
}

func newBlockQueue() *blockQueue { return &blockQueue{queued: map[cfg.BlockID]bool{}} }

func (q *blockQueue) insert(id cfg.BlockID) {
	if q.queued[id] {
		return
	}
	q.queued[id] = true
	q.items = append(q.items, id)
}

func (q *blockQueue) pop() (cfg.BlockID, bool) {
	if len(q.items) == 0 {
		return cfg.NoBlock, false
	}
	id := q.items[0]
	q.items = q.items[1:]
	delete(q.queued, id)
	return id, true
}
