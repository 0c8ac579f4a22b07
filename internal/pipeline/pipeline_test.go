package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/bril"
	"github.com/egraphs-good/eggcc-go/internal/config"
	"github.com/egraphs-good/eggcc-go/internal/interp"
)

func intType() bril.Type              { return bril.Type{Name: "int"} }
func typePtr(t bril.Type) *bril.Type { return &t }

func constFoldProgram() *bril.Program {
	return &bril.Program{Functions: []bril.Function{{
		Name: "main",
		Type: typePtr(intType()),
		Instrs: []bril.Instr{
			{Op: "const", Dest: "one", Type: typePtr(intType()), Value: float64(1)},
			{Op: "const", Dest: "two", Type: typePtr(intType()), Value: float64(2)},
			{Op: "add", Dest: "sum", Type: typePtr(intType()), Args: []string{"one", "two"}},
			{Op: "ret", Args: []string{"sum"}},
		},
	}}}
}

func buildAndRestructure(t *testing.T, wire *bril.Program) *Optimized {
	t.Helper()
	built, err := bril.Build(wire)
	require.NoError(t, err)
	Frontend(built)
	dag, err := ToDagIR(built)
	require.NoError(t, err)
	optimized, err := Saturate(dag, config.Default())
	require.NoError(t, err)
	require.Len(t, optimized, 1)
	return &optimized[0]
}

func TestCompileRoundTripsConstantAddition(t *testing.T) {
	wire := constFoldProgram()
	built, err := bril.Build(wire)
	require.NoError(t, err)

	final, optimized, err := Compile(built, config.Default())
	require.NoError(t, err)
	require.Len(t, optimized, 1)
	assert.Equal(t, "main", optimized[0].Name)

	out := bril.Emit(final)
	require.Len(t, out.Functions, 1)
}

func TestCompileWithILPExtractorMatchesGreedy(t *testing.T) {
	wire := constFoldProgram()
	built, err := bril.Build(wire)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Extract = config.ExtractILP
	_, optimized, err := Compile(built, cfg)
	require.NoError(t, err)
	require.Len(t, optimized, 1)
}

func TestSaturateThenInterpretMatchesSource(t *testing.T) {
	optimized := buildAndRestructure(t, constFoldProgram())
	res, err := interp.InterpretProgram(optimized.Program, "main", interp.TupleV(interp.StateV()))
	require.NoError(t, err)
	assert.Equal(t, interp.TupleV(interp.IntV(3), interp.StateV()), res.Value)
}

func TestDumpDagIRRendersFunctionName(t *testing.T) {
	optimized := buildAndRestructure(t, constFoldProgram())
	dump := DumpDagIR([]Optimized{*optimized})
	assert.True(t, strings.HasPrefix(dump, "(Function main"))
	assert.Contains(t, dump, "Const")
}

func TestDumpRVSDGDotRendersCluster(t *testing.T) {
	optimized := buildAndRestructure(t, constFoldProgram())
	rv, err := ToRVSDG([]Optimized{*optimized})
	require.NoError(t, err)
	dot := DumpRVSDGDot(rv)
	assert.Contains(t, dot, "digraph rvsdg")
	assert.Contains(t, dot, `label="main"`)
}
