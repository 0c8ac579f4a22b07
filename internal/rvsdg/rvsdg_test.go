package rvsdg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

func intT() ir.Base  { return ir.Base{Kind: ir.Int} }
func boolT() ir.Base { return ir.Base{Kind: ir.Bool} }

func TestBuildStraightLineFunction(t *testing.T) {
	entry := &cfg.Block{
		ID: 0,
		Instrs: []cfg.Instr{
			{Dest: "one", Op: cfg.OpConst, ConstVal: ir.IntC(1), DestType: intT()},
			{Dest: "y", Op: cfg.OpAdd, Args: []string{"x", "one"}, DestType: intT()},
		},
		Footer: []cfg.Annotation{{Kind: cfg.AssignRet, Var: "y"}},
	}
	retTy := intT()
	f := &cfg.Function{
		Name:    "f",
		Args:    []cfg.Param{{Name: "x", Type: intT()}},
		RetType: &retTy,
		Blocks:  []*cfg.Block{entry},
		Entry:   0,
		Exit:    0,
	}

	prog, err := BuildProgram(&cfg.Program{Funcs: []*cfg.Function{f}})
	require.NoError(t, err)
	rf := prog.Func("f")
	require.NotNil(t, rf)
	assert.Len(t, rf.Body.Outputs, 2) // return value + state
	assert.Len(t, rf.Body.Nodes, 2)   // const(1), add
}

func TestBuildBranchMergesIntoGamma(t *testing.T) {
	block0 := &cfg.Block{
		ID: 0,
		Instrs: []cfg.Instr{
			{Dest: "zero", Op: cfg.OpConst, ConstVal: ir.IntC(0), DestType: intT()},
			{Dest: "pred", Op: cfg.OpGt, Args: []string{"x", "zero"}, DestType: boolT()},
		},
		Out: []cfg.Edge{
			{Dest: 1, Var: "pred", Cond: &cfg.CondVal{Val: 1, Of: 2}},
			{Dest: 2, Var: "pred", Cond: &cfg.CondVal{Val: 0, Of: 2}},
		},
	}
	block1 := &cfg.Block{
		ID:     1,
		Instrs: []cfg.Instr{{Dest: "z", Op: cfg.OpConst, ConstVal: ir.IntC(10), DestType: intT()}},
		Out:    []cfg.Edge{{Dest: 3}},
	}
	block2 := &cfg.Block{
		ID:     2,
		Instrs: []cfg.Instr{{Dest: "z", Op: cfg.OpConst, ConstVal: ir.IntC(20), DestType: intT()}},
		Out:    []cfg.Edge{{Dest: 3}},
	}
	block3 := &cfg.Block{
		ID:     3,
		Footer: []cfg.Annotation{{Kind: cfg.AssignRet, Var: "z"}},
	}
	retTy := intT()
	f := &cfg.Function{
		Name:    "g",
		Args:    []cfg.Param{{Name: "x", Type: intT()}},
		RetType: &retTy,
		Blocks:  []*cfg.Block{block0, block1, block2, block3},
		Entry:   0,
		Exit:    3,
	}

	prog, err := BuildProgram(&cfg.Program{Funcs: []*cfg.Function{f}})
	require.NoError(t, err)
	rf := prog.Func("g")
	require.NotNil(t, rf)

	var gammas []*Body
	for _, n := range rf.Body.Nodes {
		if n.Kind == GammaBody {
			gammas = append(gammas, n)
		}
	}
	require.Len(t, gammas, 1)
	assert.Len(t, gammas[0].Branches, 2)
	assert.Len(t, rf.Body.Outputs, 2)
}

func TestBuildLoopProducesTheta(t *testing.T) {
	block0 := &cfg.Block{
		ID: 0,
		Instrs: []cfg.Instr{
			{Dest: "i", Op: cfg.OpConst, ConstVal: ir.IntC(0), DestType: intT()},
			{Dest: "s", Op: cfg.OpConst, ConstVal: ir.IntC(0), DestType: intT()},
		},
		Out: []cfg.Edge{{Dest: 1}},
	}
	block1 := &cfg.Block{
		ID: 1,
		Instrs: []cfg.Instr{
			{Dest: "s", Op: cfg.OpAdd, Args: []string{"s", "i"}, DestType: intT()},
			{Dest: "one", Op: cfg.OpConst, ConstVal: ir.IntC(1), DestType: intT()},
			{Dest: "i", Op: cfg.OpAdd, Args: []string{"i", "one"}, DestType: intT()},
			{Dest: "cond", Op: cfg.OpLt, Args: []string{"i", "n"}, DestType: boolT()},
		},
		Out: []cfg.Edge{
			{Dest: 1, Var: "cond", Cond: &cfg.CondVal{Val: 1, Of: 2}},
			{Dest: 2, Var: "cond", Cond: &cfg.CondVal{Val: 0, Of: 2}},
		},
	}
	block2 := &cfg.Block{
		ID:     2,
		Footer: []cfg.Annotation{{Kind: cfg.AssignRet, Var: "s"}},
	}
	retTy := intT()
	f := &cfg.Function{
		Name:    "h",
		Args:    []cfg.Param{{Name: "n", Type: intT()}},
		RetType: &retTy,
		Blocks:  []*cfg.Block{block0, block1, block2},
		Entry:   0,
		Exit:    2,
	}

	prog, err := BuildProgram(&cfg.Program{Funcs: []*cfg.Function{f}})
	require.NoError(t, err)
	rf := prog.Func("h")
	require.NotNil(t, rf)

	var thetas []*Body
	for _, n := range rf.Body.Nodes {
		if n.Kind == ThetaBody {
			thetas = append(thetas, n)
		}
	}
	require.Len(t, thetas, 1)
	assert.Equal(t, len(thetas[0].Inputs), len(thetas[0].LoopBody.Outputs)-1)
	assert.Len(t, rf.Body.Outputs, 2)
}

func TestBuildUndefinedVariableIsReported(t *testing.T) {
	block0 := &cfg.Block{
		ID:     0,
		Instrs: []cfg.Instr{{Dest: "y", Op: cfg.OpAdd, Args: []string{"x", "missing"}, DestType: intT()}},
		Footer: []cfg.Annotation{{Kind: cfg.AssignRet, Var: "y"}},
	}
	retTy := intT()
	f := &cfg.Function{
		Name:    "bad",
		Args:    []cfg.Param{{Name: "x", Type: intT()}},
		RetType: &retTy,
		Blocks:  []*cfg.Block{block0},
		Entry:   0,
		Exit:    0,
	}

	_, err := BuildProgram(&cfg.Program{Funcs: []*cfg.Function{f}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RVB001")
}
