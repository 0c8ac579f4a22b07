package rewrite

import (
	"fmt"
	"strings"
)

// InMemoryEngine is a minimal concrete Engine: InsertTerm hash-conses each
// term by its structural content, so repeated insertion of an identical
// term returns the same class (congruence with zero rewrites applied),
// and RunSchedule is a no-op — real rule set/saturation support is out of
// scope, but the interface still needs one exercisable implementation to
// drive the extractor's tests and the CLI. Every class holds exactly one
// node, since nothing ever merges two distinct classes.
type InMemoryEngine struct {
	byKey   map[string]ClassID
	classes map[ClassID]*EClass
	nodes   map[NodeID]*ENode
	order   []ClassID
	next    int
}

// NewInMemoryEngine constructs an empty engine.
func NewInMemoryEngine() *InMemoryEngine {
	return &InMemoryEngine{
		byKey:   map[string]ClassID{},
		classes: map[ClassID]*EClass{},
		nodes:   map[NodeID]*ENode{},
	}
}

func (e *InMemoryEngine) InsertTerm(t Term) (ClassID, error) {
	key := termKey(t)
	if id, ok := e.byKey[key]; ok {
		return id, nil
	}

	id := ClassID(fmt.Sprintf("c%d", e.next))
	nid := NodeID(fmt.Sprintf("n%d", e.next))
	e.next++

	node := &ENode{
		ID:           nid,
		Op:           t.Op,
		Children:     append([]ClassID(nil), t.Children...),
		ConstVal:     t.ConstVal,
		ConstTy:      t.ConstTy,
		BopOp:        t.BopOp,
		UopOp:        t.UopOp,
		TopOp:        t.TopOp,
		GetIdx:       t.GetIdx,
		FuncName:     t.FuncName,
		FuncInTy:     t.FuncInTy,
		FuncOutTy:    t.FuncOutTy,
		CallName:     t.CallName,
		SymbolicName: t.SymbolicName,
		SymbolicTy:   t.SymbolicTy,
		AllocSiteID:  t.AllocSiteID,
		AllocBase:    t.AllocBase,
		NumInputs:    t.NumInputs,
	}
	e.nodes[nid] = node
	e.classes[id] = &EClass{ID: id, Nodes: []NodeID{nid}, Type: classType(t.Op)}
	e.order = append(e.order, id)
	e.byKey[key] = id
	return id, nil
}

// RunSchedule is a deliberate no-op: this engine never applies a rule set,
// so every class it ever produces already holds its final (and only)
// node.
func (e *InMemoryEngine) RunSchedule(ruleset, schedule string) error { return nil }

func (e *InMemoryEngine) Serialize(cost CostFn) (*EGraph, error) {
	g := &EGraph{
		Classes:    make(map[ClassID]*EClass, len(e.classes)),
		Nodes:      make(map[NodeID]*ENode, len(e.nodes)),
		ClassOrder: append([]ClassID(nil), e.order...),
	}
	for id, c := range e.classes {
		cp := *c
		g.Classes[id] = &cp
	}
	for nid, n := range e.nodes {
		cp := *n
		if cost != nil {
			cp.Cost = cost(cp.Op)
		}
		g.Nodes[nid] = &cp
	}
	if len(e.order) > 0 {
		g.Root = e.order[len(e.order)-1]
	}
	return g, nil
}

// classType reports the sort of class a term's op belongs to. Every DAG-IR
// node the engine sees is an Expr; a real rewrite engine additionally tags
// its own internal plumbing sorts (types, lists, contexts), which this
// engine never constructs.
func classType(op string) string {
	return "Expr"
}

// termKey canonicalizes a term's content for hash-consing. Not a general
// hash — collisions across different payload shapes for the same Op are
// impossible here since every field is rendered, just verbosely.
func termKey(t Term) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|", t.Op)
	for _, c := range t.Children {
		fmt.Fprintf(&b, "%s,", c)
	}
	fmt.Fprintf(&b, "|%v|%v|%v|%v|%v|%d|%s|%v|%v|%s|%s|%v|%d|%v|%d",
		t.ConstVal, t.ConstTy, t.BopOp, t.UopOp, t.TopOp, t.GetIdx,
		t.FuncName, t.FuncInTy, t.FuncOutTy, t.CallName, t.SymbolicName,
		t.SymbolicTy, t.AllocSiteID, t.AllocBase, t.NumInputs)
	return b.String()
}
