package restructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/bridge"
	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/interp"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rvsdg"
)

func intTy() ir.Base  { return ir.Base{Kind: ir.Int} }
func boolTy() ir.Base { return ir.Base{Kind: ir.Bool} }

func TestFunctionLeavesSimpleDiamondUnchanged(t *testing.T) {
	f := &cfg.Function{Name: "f"}
	entry := f.AddBlock("entry")
	left := f.AddBlock("left")
	right := f.AddBlock("right")
	join := f.AddBlock("join")
	entry.Out = []cfg.Edge{
		{Dest: left.ID, Var: "c", Cond: &cfg.CondVal{Val: 1, Of: 2}},
		{Dest: right.ID, Var: "c", Cond: &cfg.CondVal{Val: 0, Of: 2}},
	}
	left.Out = []cfg.Edge{{Dest: join.ID}}
	right.Out = []cfg.Edge{{Dest: join.ID}}
	f.Entry, f.Exit = entry.ID, join.ID

	before := len(f.Blocks)
	Function(f)
	assert.Equal(t, before, len(f.Blocks), "an already-reconverging diamond needs no new blocks")
}

func TestFunctionSynthesizesLoopHeadForIrreducibleLoop(t *testing.T) {
	// two distinct entries (e1, e2) both jump into a 2-cycle (a, b).
	f := &cfg.Function{Name: "f"}
	start := f.AddBlock("start")
	e1 := f.AddBlock("e1")
	e2 := f.AddBlock("e2")
	a := f.AddBlock("a")
	b := f.AddBlock("b")
	exit := f.AddBlock("exit")

	start.Out = []cfg.Edge{
		{Dest: e1.ID, Var: "c", Cond: &cfg.CondVal{Val: 1, Of: 2}},
		{Dest: e2.ID, Var: "c", Cond: &cfg.CondVal{Val: 0, Of: 2}},
	}
	e1.Out = []cfg.Edge{{Dest: a.ID}}
	e2.Out = []cfg.Edge{{Dest: b.ID}}
	a.Out = []cfg.Edge{{Dest: b.ID}}
	b.Out = []cfg.Edge{{Dest: a.ID}, {Dest: exit.ID}}
	f.Entry, f.Exit = start.ID, exit.ID

	require.NotPanics(t, func() { Function(f) })

	// after restructuring, both a and b should have exactly one in-edge
	// from outside the (now single) loop body carrying a demuxed head.
	headCount := 0
	for _, blk := range f.Blocks {
		preds := cfg.Predecessors(f, blk.ID)
		if (blk.ID == a.ID || blk.ID == b.ID) && len(preds) > 1 {
			headCount++
		}
	}
	assert.LessOrEqual(t, headCount, 1, "at most one of the former entries should still be a multi-predecessor merge point after head synthesis")
}

// TestIrreducibleLoopHeadRedispatchesOnEveryRepetitionArc builds a two-entry
// irreducible loop (entries a and b, intra-loop edges a->b and b->a) where
// only the b-entry path is ever taken at runtime, then runs the restructured
// function all the way through RVSDG lifting and interpretation. If the loop
// head's carried selector isn't refreshed on the a->b and b->a back-edges,
// the demux it synthesizes keeps redispatching to whichever entry vertex was
// last chosen by an external entry arc, and block a is never reached.
func TestIrreducibleLoopHeadRedispatchesOnEveryRepetitionArc(t *testing.T) {
	f := &cfg.Function{Name: "f"}
	start := f.AddBlock("start")
	e1 := f.AddBlock("e1")
	e2 := f.AddBlock("e2")
	a := f.AddBlock("a")
	b := f.AddBlock("b")
	exit := f.AddBlock("exit")

	start.Instrs = []cfg.Instr{
		{Dest: "c", Op: cfg.OpConst, ConstVal: ir.BoolC(false), DestType: boolTy()},
	}
	start.Out = []cfg.Edge{
		{Dest: e1.ID, Var: "c", Cond: &cfg.CondVal{Val: 1, Of: 2}},
		{Dest: e2.ID, Var: "c", Cond: &cfg.CondVal{Val: 0, Of: 2}},
	}

	e1.Instrs = []cfg.Instr{{Dest: "n", Op: cfg.OpConst, ConstVal: ir.IntC(0), DestType: intTy()}}
	e1.Out = []cfg.Edge{{Dest: a.ID}}

	e2.Instrs = []cfg.Instr{{Dest: "n", Op: cfg.OpConst, ConstVal: ir.IntC(0), DestType: intTy()}}
	e2.Out = []cfg.Edge{{Dest: b.ID}}

	a.Instrs = []cfg.Instr{
		{Dest: "tagA", Op: cfg.OpConst, ConstVal: ir.IntC(1), DestType: intTy()},
		{Op: cfg.OpPrint, Args: []string{"tagA"}},
	}
	a.Out = []cfg.Edge{{Dest: b.ID}}

	b.Instrs = []cfg.Instr{
		{Dest: "tagB", Op: cfg.OpConst, ConstVal: ir.IntC(2), DestType: intTy()},
		{Op: cfg.OpPrint, Args: []string{"tagB"}},
		{Dest: "one", Op: cfg.OpConst, ConstVal: ir.IntC(1), DestType: intTy()},
		{Dest: "n", Op: cfg.OpAdd, Args: []string{"n", "one"}, DestType: intTy()},
		{Dest: "two", Op: cfg.OpConst, ConstVal: ir.IntC(2), DestType: intTy()},
		{Dest: "again", Op: cfg.OpLt, Args: []string{"n", "two"}, DestType: boolTy()},
	}
	b.Out = []cfg.Edge{
		{Dest: a.ID, Var: "again", Cond: &cfg.CondVal{Val: 1, Of: 2}},
		{Dest: exit.ID, Var: "again", Cond: &cfg.CondVal{Val: 0, Of: 2}},
	}

	exit.Footer = []cfg.Annotation{{Kind: cfg.AssignRet, Var: "n"}}

	retTy := intTy()
	f.Entry, f.Exit = start.ID, exit.ID
	f.RetType = &retTy

	Function(f)

	rv, err := rvsdg.BuildProgram(&cfg.Program{Funcs: []*cfg.Function{f}})
	require.NoError(t, err)
	dag, err := bridge.DownBridge(rv)
	require.NoError(t, err)

	res, err := interp.InterpretProgram(dag, "f", interp.TupleV(interp.StateV()))
	require.NoError(t, err)

	assert.Equal(t, []string{"2", "1", "2"}, res.Log, "the loop must visit b, then a, then b again — a stale carried selector would skip a entirely")
}

func TestRemoveAndReinstallCycles(t *testing.T) {
	f := &cfg.Function{Name: "f"}
	head := f.AddBlock("head")
	body := f.AddBlock("body")
	head.Out = []cfg.Edge{{Dest: body.ID}}
	body.Out = []cfg.Edge{{Dest: head.ID}}
	f.Entry = head.ID

	removed := removeCycles(f)
	require.Len(t, removed, 1)
	assert.Empty(t, f.Block(body.ID).Out, "the back-edge must be gone while branches are restructured")

	reinstallCycles(f, removed)
	assert.Len(t, f.Block(body.ID).Out, 1, "the back-edge must be restored afterward")
}
