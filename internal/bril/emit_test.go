package bril

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
)

func TestEmitRoundTripsStraightLineProgram(t *testing.T) {
	cp, err := Build(straightLineProgram())
	require.NoError(t, err)

	wire := Emit(cp)
	require.Len(t, wire.Functions, 1)

	rebuilt, err := Build(wire)
	require.NoError(t, err)
	require.Len(t, rebuilt.Funcs, 1)

	f := rebuilt.Funcs[0]
	exit := f.Block(f.Exit)
	require.NotNil(t, exit)
	require.Len(t, exit.Footer, 1)
	assert.Equal(t, cfg.AssignRet, exit.Footer[0].Kind)
}

func TestEmitBranchRoundTripsAsBr(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name: "choose",
		Type: typePtr(intType()),
		Args: []Arg{{Name: "c", Type: boolType()}},
		Instrs: []Instr{
			{Op: "br", Args: []string{"c"}, Labels: []string{"then", "else"}},
			{Label: "then"},
			{Op: "const", Dest: "a", Type: typePtr(intType()), Value: float64(1)},
			{Op: "ret", Args: []string{"a"}},
			{Label: "else"},
			{Op: "const", Dest: "b", Type: typePtr(intType()), Value: float64(2)},
			{Op: "ret", Args: []string{"b"}},
		},
	}}}
	cp, err := Build(prog)
	require.NoError(t, err)

	wire := Emit(cp)
	var sawBr bool
	for _, in := range wire.Functions[0].Instrs {
		if in.Op == "br" {
			sawBr = true
			require.Len(t, in.Labels, 2)
		}
	}
	assert.True(t, sawBr)

	_, err = Build(wire)
	assert.NoError(t, err)
}

func TestEmitNWaySwitchRoundTrips(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name: "sel",
		Args: []Arg{{Name: "i", Type: intType()}},
		Instrs: []Instr{
			{Op: "switch", Args: []string{"i"}, Labels: []string{"a", "b", "c"}},
			{Label: "a"}, {Op: "ret"},
			{Label: "b"}, {Op: "ret"},
			{Label: "c"}, {Op: "ret"},
		},
	}}}
	cp, err := Build(prog)
	require.NoError(t, err)

	wire := Emit(cp)
	var sw *Instr
	for i, in := range wire.Functions[0].Instrs {
		if in.Op == "switch" {
			sw = &wire.Functions[0].Instrs[i]
		}
	}
	require.NotNil(t, sw)
	assert.Len(t, sw.Labels, 3)

	rebuilt, err := Build(wire)
	require.NoError(t, err)
	entry := rebuilt.Funcs[0].Block(rebuilt.Funcs[0].Entry)
	require.Len(t, entry.Out, 3)
}

func TestWireTypeRoundTripsPointerTypes(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name: "f",
		Args: []Arg{{Name: "p", Type: Type{Ptr: &Type{Name: "bool"}}}},
		Instrs: []Instr{
			{Op: "load", Dest: "v", Type: typePtr(boolType()), Args: []string{"p"}},
			{Op: "ret", Args: []string{"v"}},
		},
		Type: typePtr(boolType()),
	}}}
	cp, err := Build(prog)
	require.NoError(t, err)

	wire := Emit(cp)
	require.Len(t, wire.Functions[0].Args, 1)
	pt := wire.Functions[0].Args[0].Type
	require.NotNil(t, pt.Ptr)
	assert.Equal(t, "bool", pt.Ptr.Name)
}
