package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/ir"
)

func TestInMemoryEngineHashConsesIdenticalTerms(t *testing.T) {
	e := NewInMemoryEngine()
	one, err := e.InsertTerm(Term{Op: "Const", ConstVal: ir.IntC(1), ConstTy: ir.Base{Kind: ir.Int}})
	require.NoError(t, err)
	again, err := e.InsertTerm(Term{Op: "Const", ConstVal: ir.IntC(1), ConstTy: ir.Base{Kind: ir.Int}})
	require.NoError(t, err)
	assert.Equal(t, one, again)

	two, err := e.InsertTerm(Term{Op: "Const", ConstVal: ir.IntC(2), ConstTy: ir.Base{Kind: ir.Int}})
	require.NoError(t, err)
	assert.NotEqual(t, one, two)
}

func TestInMemoryEngineSerializeAssignsCost(t *testing.T) {
	e := NewInMemoryEngine()
	c1, err := e.InsertTerm(Term{Op: "Const", ConstVal: ir.IntC(1), ConstTy: ir.Base{Kind: ir.Int}})
	require.NoError(t, err)
	c2, err := e.InsertTerm(Term{Op: "Const", ConstVal: ir.IntC(2), ConstTy: ir.Base{Kind: ir.Int}})
	require.NoError(t, err)
	_, err = e.InsertTerm(Term{Op: "Bop", BopOp: ir.Add, Children: []ClassID{c1, c2}})
	require.NoError(t, err)

	g, err := e.Serialize(func(op string) float64 {
		if op == "Bop" {
			return 10
		}
		return 1
	})
	require.NoError(t, err)
	require.Len(t, g.Classes, 3)
	require.Len(t, g.ClassOrder, 3)

	var addNode *ENode
	for _, n := range g.Nodes {
		if n.Op == "Bop" {
			addNode = n
		}
	}
	require.NotNil(t, addNode)
	assert.Equal(t, float64(10), addNode.Cost)
	assert.Equal(t, []ClassID{c1, c2}, addNode.Children)
}

func TestChildKindsIfMarksBranchesAsSubregions(t *testing.T) {
	n := &ENode{Op: "If", Children: []ClassID{"pred", "in0", "then", "else"}}
	kinds := n.ChildKinds()
	require.Len(t, kinds, 4)
	assert.False(t, kinds[0].IsSubregion)
	assert.False(t, kinds[1].IsSubregion)
	assert.True(t, kinds[2].IsSubregion)
	assert.True(t, kinds[3].IsSubregion)
}

func TestChildKindsSwitchUsesNumInputs(t *testing.T) {
	n := &ENode{Op: "Switch", Children: []ClassID{"pred", "in0", "in1", "b0", "b1"}, NumInputs: 2}
	kinds := n.ChildKinds()
	require.Len(t, kinds, 5)
	assert.False(t, kinds[0].IsSubregion)
	assert.False(t, kinds[1].IsSubregion)
	assert.False(t, kinds[2].IsSubregion)
	assert.True(t, kinds[3].IsSubregion)
	assert.True(t, kinds[4].IsSubregion)
}
