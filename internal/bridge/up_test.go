package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rvsdg"
)

// buildStraightLineProgram mirrors TestDownBridgeStraightLine's shape
// directly in DAG-IR: fn f(x: int, st: state) -> (int, state) { one := 1;
// ret x + one, st }.
func buildStraightLineProgram() *ir.Program {
	a := ir.NewArena()
	ctx := ir.Assumption{Kind: ir.InFunc, FuncName: "f", Pred: ir.InvalidNode, Body: ir.InvalidNode}
	argTuple := a.Arg(ir.Unknown(), ctx)
	x := a.Get_(argTuple, 0)
	st := a.Get_(argTuple, 1)
	one := a.ConstNode(ir.IntC(1), ir.IntT, ctx)
	sum := a.Bop(ir.Add, x, one)
	root := a.Concat(a.Single(sum), a.Single(st))
	fn := a.Function("f", ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}),
		ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}), root)
	return &ir.Program{Arena: a, Functions: []ir.NodeID{fn}}
}

func TestUpBridgeStraightLine(t *testing.T) {
	prog := buildStraightLineProgram()
	out, err := UpBridge(prog)
	require.NoError(t, err)
	require.Len(t, out.Functions, 1)

	f := out.Func("f")
	require.NotNil(t, f)
	assert.Equal(t, []ir.Base{{Kind: ir.Int}, {Kind: ir.State}}, f.ArgTypes)
	require.NotNil(t, f.RetType)
	assert.Equal(t, ir.Base{Kind: ir.Int}, *f.RetType)
	require.Len(t, f.Body.Outputs, 2)
	require.Len(t, f.Body.Nodes, 2) // the const and the add
	assert.Equal(t, cfg.OpConst, f.Body.Nodes[0].Op)
	assert.Equal(t, cfg.OpAdd, f.Body.Nodes[1].Op)
	assert.Equal(t, rvsdg.Id(1), f.Body.Outputs[0])
	assert.Equal(t, rvsdg.Arg(1), f.Body.Outputs[1])
}

// buildIfProgram mirrors TestDownBridgeGammaBecomesIf: fn g(p: bool, st:
// state) -> (int, state) { if p { 10 } else { 20 } }.
func buildIfProgram() *ir.Program {
	a := ir.NewArena()
	ctx := ir.Assumption{Kind: ir.InFunc, FuncName: "g", Pred: ir.InvalidNode, Body: ir.InvalidNode}
	argTuple := a.Arg(ir.Unknown(), ctx)
	p := a.Get_(argTuple, 0)
	st := a.Get_(argTuple, 1)

	thenCtx := ir.Assumption{Kind: ir.InIf, Branch: true, Pred: p, Inputs: []ir.NodeID{st}, Body: ir.InvalidNode}
	thenArgTuple := a.Arg(ir.Unknown(), thenCtx)
	thenSt := a.Get_(thenArgTuple, 0)
	ten := a.ConstNode(ir.IntC(10), ir.IntT, thenCtx)
	thenRoot := a.Concat(a.Single(ten), a.Single(thenSt))

	elseCtx := ir.Assumption{Kind: ir.InIf, Branch: false, Pred: p, Inputs: []ir.NodeID{st}, Body: ir.InvalidNode}
	elseArgTuple := a.Arg(ir.Unknown(), elseCtx)
	elseSt := a.Get_(elseArgTuple, 0)
	twenty := a.ConstNode(ir.IntC(20), ir.IntT, elseCtx)
	elseRoot := a.Concat(a.Single(twenty), a.Single(elseSt))

	ifID := a.If(p, []ir.NodeID{st}, thenRoot, elseRoot)
	retVal := a.Get_(ifID, 0)
	retSt := a.Get_(ifID, 1)
	root := a.Concat(a.Single(retVal), a.Single(retSt))

	fn := a.Function("g", ir.TupleType(ir.Base{Kind: ir.Bool}, ir.Base{Kind: ir.State}),
		ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}), root)
	return &ir.Program{Arena: a, Functions: []ir.NodeID{fn}}
}

func TestUpBridgeIfBecomesGamma(t *testing.T) {
	prog := buildIfProgram()
	out, err := UpBridge(prog)
	require.NoError(t, err)

	f := out.Func("g")
	require.NotNil(t, f)
	require.Len(t, f.Body.Nodes, 1)
	gamma := f.Body.Nodes[0]
	assert.Equal(t, rvsdg.GammaBody, gamma.Kind)
	assert.Equal(t, ir.Base{Kind: ir.Bool}, gamma.PredTy)
	require.Len(t, gamma.Branches, 2)
	assert.Equal(t, 2, gamma.NumOutputs)
	require.Len(t, gamma.Branches[0].Nodes, 1)
	assert.Equal(t, cfg.OpConst, gamma.Branches[0].Nodes[0].Op)
}

// buildCallProgram checks Call arity is recovered from the callee's
// declared FuncOutTy (two outputs: value + state).
func buildCallProgram() *ir.Program {
	a := ir.NewArena()
	calleeCtx := ir.Assumption{Kind: ir.InFunc, FuncName: "callee", Pred: ir.InvalidNode, Body: ir.InvalidNode}
	calleeArgTuple := a.Arg(ir.Unknown(), calleeCtx)
	cx := a.Get_(calleeArgTuple, 0)
	cst := a.Get_(calleeArgTuple, 1)
	calleeRoot := a.Concat(a.Single(cx), a.Single(cst))
	callee := a.Function("callee", ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}),
		ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}), calleeRoot)

	callerCtx := ir.Assumption{Kind: ir.InFunc, FuncName: "caller", Pred: ir.InvalidNode, Body: ir.InvalidNode}
	callerArgTuple := a.Arg(ir.Unknown(), callerCtx)
	x := a.Get_(callerArgTuple, 0)
	st := a.Get_(callerArgTuple, 1)
	callID := a.Call("callee", []ir.NodeID{x, st})
	retVal := a.Get_(callID, 0)
	retSt := a.Get_(callID, 1)
	callerRoot := a.Concat(a.Single(retVal), a.Single(retSt))
	caller := a.Function("caller", ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}),
		ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}), callerRoot)

	return &ir.Program{Arena: a, Functions: []ir.NodeID{callee, caller}}
}

func TestUpBridgeCallArityFromCallee(t *testing.T) {
	prog := buildCallProgram()
	out, err := UpBridge(prog)
	require.NoError(t, err)

	caller := out.Func("caller")
	require.NotNil(t, caller)
	require.Len(t, caller.Body.Nodes, 1)
	call := caller.Body.Nodes[0]
	assert.Equal(t, cfg.OpCall, call.Op)
	assert.Equal(t, "callee", call.CallName)
	assert.Equal(t, 2, call.NumOutputs)
}

func TestUpBridgeUndeclaredCallIsReported(t *testing.T) {
	a := ir.NewArena()
	ctx := ir.Assumption{Kind: ir.InFunc, FuncName: "caller", Pred: ir.InvalidNode, Body: ir.InvalidNode}
	argTuple := a.Arg(ir.Unknown(), ctx)
	x := a.Get_(argTuple, 0)
	st := a.Get_(argTuple, 1)
	callID := a.Call("missing", []ir.NodeID{x})
	root := a.Concat(a.Single(a.Get_(callID, 0)), a.Single(st))
	fn := a.Function("caller", ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}),
		ir.TupleType(ir.Base{Kind: ir.Int}, ir.Base{Kind: ir.State}), root)
	prog := &ir.Program{Arena: a, Functions: []ir.NodeID{fn}}

	_, err := UpBridge(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TC006")
}

// round-tripping a straight-line program through down-then-up should
// reproduce an equivalent straight-line shape (same op sequence).
func TestBridgeRoundTripStraightLine(t *testing.T) {
	body := &rvsdg.Region{
		Nodes: []*rvsdg.Body{
			{Kind: rvsdg.BasicOpBody, Op: cfg.OpConst, ConstVal: ir.IntC(1), ConstTy: intB(), NumOutputs: 1},
			{Kind: rvsdg.BasicOpBody, Op: cfg.OpAdd, Args: []rvsdg.Operand{rvsdg.Arg(0), rvsdg.Id(0)}, NumOutputs: 1},
		},
		Outputs: []rvsdg.Operand{rvsdg.Id(1), rvsdg.Arg(1)},
	}
	retTy := intB()
	f := &rvsdg.Function{Name: "f", ArgTypes: []ir.Base{intB(), stateB()}, RetType: &retTy, Body: body}

	dagProg, err := DownBridge(&rvsdg.Program{Functions: []*rvsdg.Function{f}})
	require.NoError(t, err)

	rvsdgProg, err := UpBridge(dagProg)
	require.NoError(t, err)

	f2 := rvsdgProg.Func("f")
	require.NotNil(t, f2)
	require.Len(t, f2.Body.Nodes, 2)
	assert.Equal(t, cfg.OpConst, f2.Body.Nodes[0].Op)
	assert.Equal(t, cfg.OpAdd, f2.Body.Nodes[1].Op)
}
