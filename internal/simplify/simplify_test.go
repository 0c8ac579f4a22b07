package simplify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

func boolInstr(dest string, v bool) cfg.Instr {
	return cfg.Instr{Dest: dest, DestType: ir.Base{Kind: ir.Bool}, Op: cfg.OpConst, ConstVal: ir.BoolC(v)}
}

// TestFunctionHoistsAdminNodeIntoJumpingPredecessor exercises X -[jmp]-> Y
// -[if a]-> {Z,W} where X already knows a=true and Y is administrative:
// the a=true branch out of Y should be rerouted directly off of X (with
// Y's instruction hoisted into X), leaving Y and the now-unreachable W
// arm pruned. Every two-way conditional edge (both of Y's arms) is first
// materialized through its own placeholder node by splitBooleanBranches,
// so X ends up pointing at that placeholder rather than directly at Z —
// a structural artifact the reference implementation itself documents as
// left for a later, out-of-scope pass to clean up.
func TestFunctionHoistsAdminNodeIntoJumpingPredecessor(t *testing.T) {
	f := &cfg.Function{Name: "f"}
	x := f.AddBlock("x")
	y := f.AddBlock("y")
	z := f.AddBlock("z")
	w := f.AddBlock("w")

	x.Instrs = []cfg.Instr{boolInstr("a", true)}
	x.Out = []cfg.Edge{{Dest: y.ID}}

	y.Instrs = []cfg.Instr{{Dest: "tmp", DestType: ir.Base{Kind: ir.Int}, Op: cfg.OpId, Args: []string{"other"}}}
	y.Out = []cfg.Edge{
		{Dest: z.ID, Var: "a", Cond: &cfg.CondVal{Val: 1, Of: 2}},
		{Dest: w.ID, Var: "a", Cond: &cfg.CondVal{Val: 0, Of: 2}},
	}

	f.Entry, f.Exit = x.ID, z.ID

	Function(f)

	got := f.Block(x.ID)
	require.NotNil(t, got)
	require.Len(t, got.Out, 1, "x's edge to y is rerouted past y")
	assert.True(t, got.Out[0].IsJmp())
	require.Len(t, got.Instrs, 2, "y's administrative instruction is hoisted into x")
	assert.Equal(t, "tmp", got.Instrs[1].Dest)

	mid := f.Block(got.Out[0].Dest)
	require.NotNil(t, mid, "x's new target still exists")
	require.Len(t, mid.Out, 1)
	assert.Equal(t, z.ID, mid.Out[0].Dest)
	assert.Empty(t, mid.Instrs)

	assert.Nil(t, f.Block(y.ID), "y has no remaining predecessor and is pruned")
	assert.Nil(t, f.Block(w.ID), "w was only reachable through y and is pruned")
	assert.Len(t, f.Blocks, 3, "x, the surviving placeholder, and z")
}

// TestFunctionFoldsSelfKnownBranchToJump covers a node that assigns its
// own branch variable and then immediately branches on it: the branch is
// decidable without looking at any predecessor.
func TestFunctionFoldsSelfKnownBranchToJump(t *testing.T) {
	f := &cfg.Function{Name: "f"}
	admin := f.AddBlock("admin")
	then := f.AddBlock("then")
	els := f.AddBlock("else")

	admin.Instrs = []cfg.Instr{boolInstr("a", true)}
	admin.Out = []cfg.Edge{
		{Dest: then.ID, Var: "a", Cond: &cfg.CondVal{Val: 1, Of: 2}},
		{Dest: els.ID, Var: "a", Cond: &cfg.CondVal{Val: 0, Of: 2}},
	}
	f.Entry, f.Exit = admin.ID, then.ID

	Function(f)

	got := f.Block(admin.ID)
	require.Len(t, got.Out, 1, "admin already knows a=true, so its branch folds to a jump")
	assert.True(t, got.Out[0].IsJmp())

	mid := f.Block(got.Out[0].Dest)
	require.NotNil(t, mid)
	require.Len(t, mid.Out, 1)
	assert.Equal(t, then.ID, mid.Out[0].Dest)

	assert.Nil(t, f.Block(els.ID), "the now-unreachable else arm is pruned")
	assert.Len(t, f.Blocks, 3, "admin, the surviving placeholder, and then")
}

// TestFunctionNeverDropsTheOnlyEdgeToExit uses an unconditional edge to
// exit alongside a foldable conditional arm, so folding would strand the
// function's exit block — the one rewrite this pass must always refuse.
func TestFunctionNeverDropsTheOnlyEdgeToExit(t *testing.T) {
	f := &cfg.Function{Name: "f"}
	admin := f.AddBlock("admin")
	nonExit := f.AddBlock("nonExit")
	exit := f.AddBlock("exit")

	admin.Instrs = []cfg.Instr{boolInstr("a", true)}
	admin.Out = []cfg.Edge{
		{Dest: nonExit.ID, Var: "a", Cond: &cfg.CondVal{Val: 1, Of: 2}},
		{Dest: exit.ID},
	}
	f.Entry, f.Exit = admin.ID, exit.ID

	Function(f)

	got := f.Block(admin.ID)
	require.Len(t, got.Out, 2, "folding toward nonExit would drop admin's direct edge to exit")
	assert.NotNil(t, f.Block(exit.ID))
	assert.NotNil(t, f.Block(nonExit.ID))
}

func TestFunctionLeavesAlreadySimpleCFGUnchanged(t *testing.T) {
	f := &cfg.Function{Name: "f"}
	entry := f.AddBlock("entry")
	exit := f.AddBlock("exit")
	entry.Out = []cfg.Edge{{Dest: exit.ID}}
	f.Entry, f.Exit = entry.ID, exit.ID

	Function(f)

	assert.Len(t, f.Blocks, 2)
	assert.Len(t, f.Block(entry.ID).Out, 1)
}
