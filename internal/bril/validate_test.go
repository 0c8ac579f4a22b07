package bril

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsDuplicateFunctionNames(t *testing.T) {
	prog := &Program{Functions: []Function{
		{Name: "f", Instrs: []Instr{{Op: "ret"}}},
		{Name: "f", Instrs: []Instr{{Op: "ret"}}},
	}}
	err := Validate(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BRL001")
}

func TestValidateRejectsUnsupportedArgType(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name:   "f",
		Args:   []Arg{{Name: "x", Type: Type{Name: "string"}}},
		Instrs: []Instr{{Op: "ret"}},
	}}}
	err := Validate(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BRL002")
}

func TestValidateAcceptsPointerTypes(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name: "f",
		Args: []Arg{{Name: "p", Type: Type{Ptr: &Type{Name: "int"}}}},
		Instrs: []Instr{
			{Op: "load", Dest: "v", Type: typePtr(intType()), Args: []string{"p"}},
			{Op: "ret"},
		},
	}}}
	assert.NoError(t, Validate(prog))
}

func TestValidateRejectsPointerToPointer(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name: "f",
		Args: []Arg{{Name: "p", Type: Type{Ptr: &Type{Ptr: &Type{Name: "int"}}}}},
		Instrs: []Instr{{Op: "ret"}},
	}}}
	err := Validate(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BRL002")
}

func TestValidateSwitchNeedsSelectorAndLabels(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name:   "f",
		Args:   []Arg{{Name: "i", Type: intType()}},
		Instrs: []Instr{{Op: "switch", Args: []string{"i"}}},
	}}}
	err := Validate(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BRL001")
}

func TestValidateAcceptsWellFormedSwitch(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name: "f",
		Args: []Arg{{Name: "i", Type: intType()}},
		Instrs: []Instr{
			{Op: "switch", Args: []string{"i"}, Labels: []string{"a", "b"}},
			{Label: "a"}, {Op: "ret"},
			{Label: "b"}, {Op: "ret"},
		},
	}}}
	assert.NoError(t, Validate(prog))
}

func TestValidateRejectsUndefinedLabelTarget(t *testing.T) {
	prog := &Program{Functions: []Function{{
		Name:   "f",
		Instrs: []Instr{{Op: "jmp", Labels: []string{"nowhere"}}},
	}}}
	err := Validate(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BRL001")
}
