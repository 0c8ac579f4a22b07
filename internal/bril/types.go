// Package bril owns the Bril-like JSON wire format: the already-lowered
// program representation this system consumes as its front end (functions,
// typed arguments, typed SSA instructions, labeled blocks).
// It decodes/encodes the wire JSON, validates it, normalizes identifiers,
// and builds/emits internal/cfg.Program — the shape every other component
// downstream of the front end actually operates on.
package bril

import (
	"encoding/json"
	"fmt"

	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// Type is a Bril wire type: a bare string ("int", "bool", "float", "char")
// or a one-field pointer object ({"ptr": <Type>}), nested arbitrarily deep.
// char has no distinct runtime representation in this system — it is
// accepted on the wire and normalized to Int by baseOf below.
type Type struct {
	Name string // "int" | "bool" | "float" | "char", empty when Ptr != nil
	Ptr  *Type
}

func (t Type) MarshalJSON() ([]byte, error) {
	if t.Ptr != nil {
		return json.Marshal(struct {
			Ptr *Type `json:"ptr"`
		}{t.Ptr})
	}
	return json.Marshal(t.Name)
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		t.Name = name
		t.Ptr = nil
		return nil
	}
	var ptr struct {
		Ptr *Type `json:"ptr"`
	}
	if err := json.Unmarshal(data, &ptr); err != nil {
		return fmt.Errorf("bril: malformed type: %w", err)
	}
	if ptr.Ptr == nil {
		return fmt.Errorf("bril: type object missing \"ptr\" field")
	}
	t.Name = ""
	t.Ptr = ptr.Ptr
	return nil
}

// Arg is one function parameter: {"name": "x", "type": "int"}.
type Arg struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Instr is one wire instruction, covering both shapes Bril's grammar
// allows in an instruction list: a bare label ({"label": "foo"}) and an
// operation ({"op": "add", "dest": "x", "type": "int", "args": [...]}).
// Both shapes are decoded into the same struct (label-only fields left
// zero for an op, op-only fields left zero for a label) since Bril's own
// JSON never discriminates them with a tag — IsLabel is the discriminator.
type Instr struct {
	Label string `json:"label,omitempty"`

	Op     string   `json:"op,omitempty"`
	Dest   string   `json:"dest,omitempty"`
	Type   *Type    `json:"type,omitempty"`
	Args   []string `json:"args,omitempty"`
	Funcs  []string `json:"funcs,omitempty"`
	Labels []string `json:"labels,omitempty"`
	Value  any      `json:"value,omitempty"`
}

func (i Instr) IsLabel() bool { return i.Label != "" }

// Function is one wire function.
type Function struct {
	Name   string  `json:"name"`
	Args   []Arg   `json:"args,omitempty"`
	Type   *Type   `json:"type,omitempty"` // nil for void
	Instrs []Instr `json:"instrs"`
}

// Program is a whole wire-format compilation unit — the top-level shape
// read from / written to stdin, a file, or --emit=bril.
type Program struct {
	Functions []Function `json:"functions"`
}

// baseOf converts a wire Type into this system's ir.Base, collapsing char
// into Int (decided in DESIGN.md: Bril's char has no distinct runtime
// behavior anywhere in this pipeline, so it is carried as an ordinary Int
// from the wire boundary inward).
func baseOf(t Type) (ir.Base, bool) {
	if t.Ptr != nil {
		pointee, ok := baseOf(*t.Ptr)
		if !ok || pointee.Kind == ir.Pointer {
			return ir.Base{}, false
		}
		return ir.Base{Kind: ir.Pointer, PointeeOf: pointee.Kind}, true
	}
	switch t.Name {
	case "int", "char":
		return ir.Base{Kind: ir.Int}, true
	case "bool":
		return ir.Base{Kind: ir.Bool}, true
	case "float":
		return ir.Base{Kind: ir.Float}, true
	default:
		return ir.Base{}, false
	}
}

// wireType is baseOf's inverse, used when emitting cfg back out to the wire
// format (--emit=bril). Pointers-to-pointers never arise here since ir.Base
// only carries one level of pointee.
func wireType(b ir.Base) Type {
	switch b.Kind {
	case ir.Bool:
		return Type{Name: "bool"}
	case ir.Float:
		return Type{Name: "float"}
	case ir.Pointer:
		return Type{Ptr: &Type{Name: wireBaseName(b.PointeeOf)}}
	default:
		return Type{Name: "int"}
	}
}

func wireBaseName(k ir.BaseKind) string {
	switch k {
	case ir.Bool:
		return "bool"
	case ir.Float:
		return "float"
	default:
		return "int"
	}
}
