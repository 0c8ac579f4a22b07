package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rewrite"
)

func insertConst(t *testing.T, e rewrite.Engine, c ir.Constant, base ir.BaseKind) rewrite.ClassID {
	t.Helper()
	id, err := e.InsertTerm(rewrite.Term{Op: "Const", ConstVal: c, ConstTy: ir.Base{Kind: base}})
	require.NoError(t, err)
	return id
}

func TestExtractGreedyFunctionWithAdd(t *testing.T) {
	e := rewrite.NewInMemoryEngine()
	one := insertConst(t, e, ir.IntC(1), ir.Int)
	two := insertConst(t, e, ir.IntC(2), ir.Int)
	add, err := e.InsertTerm(rewrite.Term{Op: "Bop", BopOp: ir.Add, Children: []rewrite.ClassID{one, two}})
	require.NoError(t, err)
	fn, err := e.InsertTerm(rewrite.Term{
		Op: "Function", FuncName: "main", FuncInTy: ir.Unknown(), FuncOutTy: ir.IntT,
		Children: []rewrite.ClassID{add},
	})
	require.NoError(t, err)

	g, err := e.Serialize(DefaultCostModel{}.Fn())
	require.NoError(t, err)
	require.Equal(t, fn, g.Root)

	prog, err := ExtractGreedy(g, DefaultCostModel{})
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)

	f := prog.Arena.Get(prog.Functions[0])
	require.Equal(t, ir.FunctionExpr, f.Kind)
	assert.Equal(t, "main", f.FuncName)

	body := prog.Arena.Get(f.FuncBody)
	require.Equal(t, ir.BopExpr, body.Kind)
	assert.Equal(t, ir.Add, body.BopOp)

	l := prog.Arena.Get(body.BopL)
	r := prog.Arena.Get(body.BopR)
	require.Equal(t, ir.ConstExpr, l.Kind)
	require.Equal(t, ir.ConstExpr, r.Kind)
	assert.Equal(t, int64(1), l.Const.Int)
	assert.Equal(t, int64(2), r.Const.Int)
	assert.Equal(t, ir.InFunc, l.Ctx.Kind)
	assert.Equal(t, "main", l.Ctx.FuncName)
}

func TestExtractGreedyIfReconstructsBothBranchesWithFreshContexts(t *testing.T) {
	e := rewrite.NewInMemoryEngine()
	pred := insertConst(t, e, ir.BoolC(true), ir.Bool)
	input := insertConst(t, e, ir.IntC(5), ir.Int)
	thenC := insertConst(t, e, ir.IntC(10), ir.Int)
	elseC := insertConst(t, e, ir.IntC(20), ir.Int)
	ifNode, err := e.InsertTerm(rewrite.Term{Op: "If", Children: []rewrite.ClassID{pred, input, thenC, elseC}})
	require.NoError(t, err)
	fn, err := e.InsertTerm(rewrite.Term{
		Op: "Function", FuncName: "branchy", FuncInTy: ir.IntT, FuncOutTy: ir.IntT,
		Children: []rewrite.ClassID{ifNode},
	})
	require.NoError(t, err)

	g, err := e.Serialize(DefaultCostModel{}.Fn())
	require.NoError(t, err)
	require.Equal(t, fn, g.Root)

	prog, err := ExtractGreedy(g, DefaultCostModel{})
	require.NoError(t, err)

	f := prog.Arena.Get(prog.Functions[0])
	body := prog.Arena.Get(f.FuncBody)
	require.Equal(t, ir.IfExpr, body.Kind)
	require.Len(t, body.IfInputs, 1)

	predExpr := prog.Arena.Get(body.IfPred)
	assert.Equal(t, true, predExpr.Const.Bool)

	thenExpr := prog.Arena.Get(body.IfThen)
	elseExpr := prog.Arena.Get(body.IfElse)
	require.Equal(t, ir.ConstExpr, thenExpr.Kind)
	require.Equal(t, ir.ConstExpr, elseExpr.Kind)
	assert.Equal(t, int64(10), thenExpr.Const.Int)
	assert.Equal(t, int64(20), elseExpr.Const.Int)

	assert.Equal(t, ir.InIf, thenExpr.Ctx.Kind)
	assert.True(t, thenExpr.Ctx.Branch)
	assert.Equal(t, ir.InIf, elseExpr.Ctx.Kind)
	assert.False(t, elseExpr.Ctx.Branch)
	assert.NotEqual(t, thenExpr.Ctx.Ref(), elseExpr.Ctx.Ref())
}

func TestExtractGreedyDoWhileReconstructsLoopBodyUnderLoopContext(t *testing.T) {
	e := rewrite.NewInMemoryEngine()
	predC := insertConst(t, e, ir.BoolC(false), ir.Bool)
	predSingle, err := e.InsertTerm(rewrite.Term{Op: "Single", Children: []rewrite.ClassID{predC}})
	require.NoError(t, err)
	carriedC := insertConst(t, e, ir.IntC(99), ir.Int)
	carriedSingle, err := e.InsertTerm(rewrite.Term{Op: "Single", Children: []rewrite.ClassID{carriedC}})
	require.NoError(t, err)
	bodyConcat, err := e.InsertTerm(rewrite.Term{Op: "Concat", Children: []rewrite.ClassID{predSingle, carriedSingle}})
	require.NoError(t, err)
	input := insertConst(t, e, ir.IntC(0), ir.Int)
	doWhile, err := e.InsertTerm(rewrite.Term{Op: "DoWhile", Children: []rewrite.ClassID{input, bodyConcat}})
	require.NoError(t, err)
	fn, err := e.InsertTerm(rewrite.Term{
		Op: "Function", FuncName: "loopy", FuncInTy: ir.IntT, FuncOutTy: ir.IntT,
		Children: []rewrite.ClassID{doWhile},
	})
	require.NoError(t, err)

	g, err := e.Serialize(DefaultCostModel{}.Fn())
	require.NoError(t, err)
	require.Equal(t, fn, g.Root)

	prog, err := ExtractGreedy(g, DefaultCostModel{})
	require.NoError(t, err)

	f := prog.Arena.Get(prog.Functions[0])
	body := prog.Arena.Get(f.FuncBody)
	require.Equal(t, ir.DoWhileExpr, body.Kind)
	require.Len(t, body.DoWhileInputs, 1)

	loopBody := prog.Arena.Get(body.DoWhileBody)
	require.Equal(t, ir.ConcatExpr, loopBody.Kind)
	assert.Equal(t, ir.InLoop, loopBody.Ctx.Kind)

	predSide := prog.Arena.Get(loopBody.ConcatL)
	require.Equal(t, ir.SingleExpr, predSide.Kind)
	predConst := prog.Arena.Get(predSide.Single)
	assert.Equal(t, false, predConst.Const.Bool)
}

func TestIsEffectfulOpCoversAllocLoadPrintFreeWrite(t *testing.T) {
	assert.True(t, isEffectfulOp(&rewrite.ENode{Op: "Alloc"}))
	assert.True(t, isEffectfulOp(&rewrite.ENode{Op: "Bop", BopOp: ir.Load}))
	assert.True(t, isEffectfulOp(&rewrite.ENode{Op: "Bop", BopOp: ir.Print}))
	assert.True(t, isEffectfulOp(&rewrite.ENode{Op: "Bop", BopOp: ir.Free}))
	assert.True(t, isEffectfulOp(&rewrite.ENode{Op: "Top", TopOp: ir.Write}))
	assert.False(t, isEffectfulOp(&rewrite.ENode{Op: "Bop", BopOp: ir.Add}))
	assert.False(t, isEffectfulOp(&rewrite.ENode{Op: "Const"}))
}

func TestUniqueQueueDropsDuplicateInserts(t *testing.T) {
	q := newUniqueQueue()
	rn := regionNode{Root: "r", Node: "n1"}
	q.insert(rn)
	q.insert(rn)
	_, ok := q.pop()
	require.True(t, ok)
	_, ok = q.pop()
	assert.False(t, ok)
}
