package bril

import (
	"github.com/egraphs-good/eggcc-go/internal/diag"
)

// validOps is the instruction vocabulary this front end accepts, mirroring
// internal/cfg's Op set (cfg.Op's own doc comment: "Bril's own operation
// vocabulary, so the front end can translate wire instructions into
// cfg.Instr with no semantic renaming"), except select, which is not
// accepted here, plus the three block terminators (jmp, br, ret), which
// have no cfg.Op of their own since they are consumed entirely during
// basic-block construction.
var validOps = map[string]bool{
	"const": true, "id": true, "nop": true,
	"add": true, "sub": true, "mul": true, "div": true,
	"and": true, "or": true, "not": true,
	"lt": true, "gt": true, "le": true, "ge": true, "eq": true,
	"smax": true, "smin": true, "shl": true, "shr": true,
	"fadd": true, "fsub": true, "fmul": true, "fdiv": true,
	"feq": true, "flt": true, "fgt": true, "fle": true, "fge": true,
	"fmax": true, "fmin": true,
	"ptradd": true, "load": true, "store": true, "alloc": true, "free": true,
	"print": true, "call": true,
	"jmp": true, "br": true, "ret": true,
	// switch is this format's own extension for an n-way (n != 2) selector
	// edge, emitted by --emit=bril when a restructuring-synthesized demux
	// survives branch simplification; Build accepts it back on re-entry.
	"switch": true,
}

// Validate checks wire-level well-formedness a JSON decode alone can't
// catch: unknown operations, malformed types, structurally inconsistent
// terminators. It does not duplicate internal/typecheck's job — operand
// type-checking happens downstream, on the DAG-IR, once the program has a
// function signature table to check calls against.
func Validate(p *Program) error {
	names := map[string]bool{}
	for _, f := range p.Functions {
		if f.Name == "" {
			return diag.New(diag.BRL001, "function with empty name")
		}
		if names[f.Name] {
			return diag.New(diag.BRL001, "duplicate function name %q", f.Name)
		}
		names[f.Name] = true

		for _, a := range f.Args {
			if _, ok := baseOf(a.Type); !ok {
				return diag.New(diag.BRL002, "function %q: argument %q has unsupported type", f.Name, a.Name)
			}
		}
		if f.Type != nil {
			if _, ok := baseOf(*f.Type); !ok {
				return diag.New(diag.BRL002, "function %q: unsupported return type", f.Name)
			}
		}
		if err := validateInstrs(f); err != nil {
			return err
		}
	}
	return nil
}

func validateInstrs(f *Function) error {
	labels := map[string]bool{}
	for _, in := range f.Instrs {
		if in.IsLabel() {
			labels[in.Label] = true
		}
	}
	for _, in := range f.Instrs {
		if in.IsLabel() {
			continue
		}
		if !validOps[in.Op] {
			return diag.New(diag.BRL002, "function %q: unsupported instruction %q", f.Name, in.Op)
		}
		if in.Type != nil {
			if _, ok := baseOf(*in.Type); !ok {
				return diag.New(diag.BRL002, "function %q: instruction %q has unsupported type", f.Name, in.Op)
			}
		}
		switch in.Op {
		case "jmp":
			if len(in.Labels) != 1 {
				return diag.New(diag.BRL001, "function %q: jmp needs exactly one label", f.Name)
			}
		case "br":
			if len(in.Labels) != 2 || len(in.Args) != 1 {
				return diag.New(diag.BRL001, "function %q: br needs one condition arg and two labels", f.Name)
			}
		case "switch":
			if len(in.Labels) == 0 || len(in.Args) != 1 {
				return diag.New(diag.BRL001, "function %q: switch needs one selector arg and at least one label", f.Name)
			}
		}
		for _, l := range in.Labels {
			if !labels[l] {
				return diag.New(diag.BRL001, "function %q: branch to undefined label %q", f.Name, l)
			}
		}
	}
	return nil
}
