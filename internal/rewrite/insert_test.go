package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/ir"
)

func TestInsertExprSharesIdenticalNodeOnce(t *testing.T) {
	arena := ir.NewArena()
	one := arena.ConstNode(ir.IntC(1), ir.IntT, ir.Assumption{})
	// both branches of the Bop reference the same shared node
	sum := arena.Bop(ir.Add, one, one)

	e := NewInMemoryEngine()
	cid, err := InsertExpr(e, arena, sum)
	require.NoError(t, err)

	g, err := e.Serialize(nil)
	require.NoError(t, err)

	node := g.Nodes[g.Classes[cid].Nodes[0]]
	require.Equal(t, "Bop", node.Op)
	require.Len(t, node.Children, 2)
	assert.Equal(t, node.Children[0], node.Children[1])
}

func TestInsertExprIfShapeMatchesChildKinds(t *testing.T) {
	arena := ir.NewArena()
	pred := arena.ConstNode(ir.BoolC(true), ir.BoolT, ir.Assumption{})
	thenArm := arena.ConstNode(ir.IntC(1), ir.IntT, ir.Assumption{})
	elseArm := arena.ConstNode(ir.IntC(2), ir.IntT, ir.Assumption{})
	ifNode := arena.If(pred, nil, thenArm, elseArm)

	e := NewInMemoryEngine()
	cid, err := InsertExpr(e, arena, ifNode)
	require.NoError(t, err)

	g, err := e.Serialize(nil)
	require.NoError(t, err)
	node := g.Nodes[g.Classes[cid].Nodes[0]]
	require.Equal(t, "If", node.Op)
	require.Len(t, node.Children, 3)

	kinds := node.ChildKinds()
	assert.False(t, kinds[0].IsSubregion)
	assert.True(t, kinds[1].IsSubregion)
	assert.True(t, kinds[2].IsSubregion)
}

func TestInsertProgramKeysClassesByFunctionName(t *testing.T) {
	arena := ir.NewArena()
	body := arena.ConstNode(ir.IntC(7), ir.IntT, ir.Assumption{})
	fn := arena.Function("main", ir.IntT, ir.IntT, body)
	prog := &ir.Program{Arena: arena, Functions: []ir.NodeID{fn}}

	e := NewInMemoryEngine()
	classes, err := InsertProgram(e, prog)
	require.NoError(t, err)
	require.Contains(t, classes, "main")
}
