package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rewrite"
)

// sharingCostModel assigns a cost purely by Op name, letting a test pick
// costs that expose the one case greedy's per-class local minimization
// cannot see: two classes each individually prefer a standalone node, yet
// jointly routing through a third, shared class costs less once that
// class's price is paid only once.
type sharingCostModel map[string]float64

func (m sharingCostModel) GetOpCost(op string) float64  { return m[op] }
func (sharingCostModel) IgnoreChildren(op string) bool  { return false }

// buildSharingEGraph hand-assembles an e-graph no Engine would ever
// produce on its own (InMemoryEngine hash-conses one e-class per distinct
// term, never merging two different terms into one class), because
// ExtractExact's whole reason to exist is choices a real saturating engine
// would actually present: here, class A contains two e-nodes (a standalone
// leaf and a node that reaches into shared class C), and likewise for B.
func buildSharingEGraph() *rewrite.EGraph {
	cNode := &rewrite.ENode{ID: "cNode", Op: "Const", ConstVal: ir.IntC(0), ConstTy: ir.Base{Kind: ir.Int}}
	a1 := &rewrite.ENode{ID: "a1", Op: "Empty"}
	a2 := &rewrite.ENode{ID: "a2", Op: "Single", Children: []rewrite.ClassID{"C"}}
	b1 := &rewrite.ENode{ID: "b1", Op: "Empty"}
	b2 := &rewrite.ENode{ID: "b2", Op: "Single", Children: []rewrite.ClassID{"C"}}
	concat := &rewrite.ENode{ID: "concat", Op: "Concat", Children: []rewrite.ClassID{"A", "B"}}
	fn := &rewrite.ENode{
		ID: "fn", Op: "Function", FuncName: "main", FuncInTy: ir.Unknown(), FuncOutTy: ir.Unknown(),
		Children: []rewrite.ClassID{"concat"},
	}

	return &rewrite.EGraph{
		ClassOrder: []rewrite.ClassID{"C", "A", "B", "concat", "fn"},
		Root:       "fn",
		Classes: map[rewrite.ClassID]*rewrite.EClass{
			"C":      {ID: "C", Nodes: []rewrite.NodeID{"cNode"}},
			"A":      {ID: "A", Nodes: []rewrite.NodeID{"a1", "a2"}},
			"B":      {ID: "B", Nodes: []rewrite.NodeID{"b1", "b2"}},
			"concat": {ID: "concat", Nodes: []rewrite.NodeID{"concat"}},
			"fn":     {ID: "fn", Nodes: []rewrite.NodeID{"fn"}},
		},
		Nodes: map[rewrite.NodeID]*rewrite.ENode{
			"cNode": cNode, "a1": a1, "a2": a2, "b1": b1, "b2": b2, "concat": concat, "fn": fn,
		},
	}
}

func TestExtractExactFindsSharingGreedyMisses(t *testing.T) {
	cm := sharingCostModel{"Const": 7, "Empty": 5, "Single": 1, "Concat": 10, "Function": 0}
	g := buildSharingEGraph()

	greedyProg, err := ExtractGreedy(g, cm)
	require.NoError(t, err)
	greedyBody := greedyProg.Arena.Get(greedyProg.Arena.Get(greedyProg.Functions[0]).FuncBody)
	require.Equal(t, ir.ConcatExpr, greedyBody.Kind)
	greedyL := greedyProg.Arena.Get(greedyBody.ConcatL)
	greedyR := greedyProg.Arena.Get(greedyBody.ConcatR)
	assert.Equal(t, ir.EmptyExpr, greedyL.Kind, "greedy's local minimization picks the standalone leaf on each side")
	assert.Equal(t, ir.EmptyExpr, greedyR.Kind)

	exactProg, err := ExtractExact(g, cm, DefaultConfig(), time.Second)
	require.NoError(t, err)
	exactBody := exactProg.Arena.Get(exactProg.Arena.Get(exactProg.Functions[0]).FuncBody)
	require.Equal(t, ir.ConcatExpr, exactBody.Kind)
	exactL := exactProg.Arena.Get(exactBody.ConcatL)
	exactR := exactProg.Arena.Get(exactBody.ConcatR)
	assert.Equal(t, ir.SingleExpr, exactL.Kind, "exact search finds the cheaper jointly-shared alternative")
	assert.Equal(t, ir.SingleExpr, exactR.Kind)
}

func TestExtractExactFallsBackToGreedyWhenNoBudgetRemains(t *testing.T) {
	cm := sharingCostModel{"Const": 7, "Empty": 5, "Single": 1, "Concat": 10, "Function": 0}
	g := buildSharingEGraph()

	prog, err := ExtractExact(g, cm, DefaultConfig(), 0)
	require.NoError(t, err)
	body := prog.Arena.Get(prog.Arena.Get(prog.Functions[0]).FuncBody)
	assert.Equal(t, ir.ConcatExpr, body.Kind)
}

func TestRemoveSubsumedCandidatesDropsDominatedNode(t *testing.T) {
	cm := sharingCostModel{"Const": 1, "Empty": 5}
	g := &rewrite.EGraph{
		ClassOrder: []rewrite.ClassID{"A", "root"},
		Root:       "root",
		Classes: map[rewrite.ClassID]*rewrite.EClass{
			"A":    {ID: "A", Nodes: []rewrite.NodeID{"cheap", "expensive"}},
			"root": {ID: "root", Nodes: []rewrite.NodeID{"rootNode"}},
		},
		Nodes: map[rewrite.NodeID]*rewrite.ENode{
			"cheap":     {ID: "cheap", Op: "Const", ConstVal: ir.IntC(1), ConstTy: ir.Base{Kind: ir.Int}},
			"expensive": {ID: "expensive", Op: "Empty"},
			"rootNode":  {ID: "rootNode", Op: "Function", FuncName: "f", FuncInTy: ir.Unknown(), FuncOutTy: ir.Unknown(), Children: []rewrite.ClassID{"A"}},
		},
	}
	info := newGraphInfo(g, cm)
	s := &bnbSearch{info: info, allowed: map[rewrite.ClassID]map[rewrite.NodeID]bool{}, cfg: DefaultConfig(), deadline: time.Now().Add(time.Second)}
	kept := s.removeSubsumed([]rewrite.NodeID{"cheap", "expensive"})
	require.Len(t, kept, 1)
	assert.Equal(t, rewrite.NodeID("cheap"), kept[0])
}
