package bril

import (
	"fmt"
	"sort"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// Emit lowers a (typically branch-simplified) *cfg.Program back into the
// wire format for --emit=bril, the inverse of Build modulo the label
// names and merged-exit blocks Build itself introduced — those simply
// become ordinary labeled blocks on the way back out, since nothing
// downstream needs to recover the original unmerged shape.
func Emit(p *cfg.Program) *Program {
	out := &Program{}
	for _, f := range p.Funcs {
		out.Functions = append(out.Functions, emitFunction(f))
	}
	return out
}

func emitFunction(f *cfg.Function) Function {
	wf := Function{Name: f.Name}
	for _, a := range f.Args {
		wf.Args = append(wf.Args, Arg{Name: a.Name, Type: wireType(a.Type)})
	}
	if f.RetType != nil {
		t := wireType(*f.RetType)
		wf.Type = &t
	}

	for i, b := range f.Blocks {
		label := b.Label
		if label == "" {
			label = fmt.Sprintf("__b%d", i)
		}
		wf.Instrs = append(wf.Instrs, Instr{Label: label})
		for _, in := range b.Instrs {
			wf.Instrs = append(wf.Instrs, emitInstr(in))
		}
		wf.Instrs = append(wf.Instrs, emitTerminator(f, b)...)
	}
	return wf
}

func emitInstr(in cfg.Instr) Instr {
	out := Instr{Op: string(in.Op), Dest: in.Dest, Args: in.Args}
	if in.Dest != "" {
		t := wireType(in.DestType)
		out.Type = &t
	}
	if in.Op == cfg.OpConst {
		out.Value = constValue(in.ConstVal)
	}
	if in.Op == cfg.OpCall && in.CallName != "" {
		out.Funcs = []string{in.CallName}
	}
	return out
}

func constValue(c ir.Constant) any {
	switch c.Kind {
	case ir.BoolConst:
		return c.Bool
	case ir.FloatConst:
		return float64(c.Float)
	default:
		return c.Int
	}
}

// emitTerminator reconstructs jmp/br/ret from a block's edges and footer.
// A block with two Cond edges on the same variable becomes br; one
// unconditional edge becomes jmp; an AssignRet footer (with no outgoing
// edge, i.e. this is the function's exit) becomes ret.
func emitTerminator(f *cfg.Function, b *cfg.Block) []Instr {
	for _, a := range b.Footer {
		if a.Kind == cfg.AssignRet {
			return []Instr{{Op: "ret", Args: []string{a.Var}}}
		}
	}
	switch {
	case len(b.Out) == 0:
		if b.ID == f.Exit {
			return []Instr{{Op: "ret"}}
		}
		return nil
	case len(b.Out) == 1 && b.Out[0].IsJmp():
		return []Instr{{Op: "jmp", Labels: []string{labelOf(f, b.Out[0].Dest)}}}
	case len(b.Out) == 2 && b.Out[0].Cond != nil && b.Out[0].Cond.Of == 2:
		then, els := b.Out[0], b.Out[1]
		if then.Cond.Val == 0 {
			then, els = els, then
		}
		return []Instr{{Op: "br", Args: []string{then.Var}, Labels: []string{labelOf(f, then.Dest), labelOf(f, els.Dest)}}}
	default:
		// An n-way selector with n != 2 (a restructuring-synthesized demux
		// that survived branch simplification) has no canonical two-way
		// Bril encoding; "switch" is this format's documented extension
		// for it — a var plus one label per selector value, in order.
		edges := append([]cfg.Edge(nil), b.Out...)
		sort.Slice(edges, func(i, j int) bool { return edges[i].Cond.Val < edges[j].Cond.Val })
		labels := make([]string, len(edges))
		for i, e := range edges {
			labels[i] = labelOf(f, e.Dest)
		}
		return []Instr{{Op: "switch", Args: []string{edges[0].Var}, Labels: labels}}
	}
}

func labelOf(f *cfg.Function, id cfg.BlockID) string {
	for i, b := range f.Blocks {
		if b.ID == id {
			if b.Label != "" {
				return b.Label
			}
			return fmt.Sprintf("__b%d", i)
		}
	}
	return ""
}
