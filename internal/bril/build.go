package bril

import (
	"fmt"

	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
)

// terminators are the Bril ops that end a basic block; every other
// instruction is straight-line and accumulates into the current block.
var terminators = map[string]bool{"jmp": true, "br": true, "ret": true, "switch": true}

// Build validates p and lowers it into a *cfg.Program, the shape every
// downstream component (restructuring, the RVSDG builder, the branch
// simplifier) actually operates on. Call Normalize on the raw bytes before
// json.Unmarshal-ing into a Program, and Build after that.
func Build(p *Program) (*cfg.Program, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	retTypes := map[string]*ir.Base{}
	for _, f := range p.Functions {
		if f.Type == nil {
			retTypes[f.Name] = nil
			continue
		}
		b, _ := baseOf(*f.Type)
		retTypes[f.Name] = &b
	}
	out := &cfg.Program{}
	for _, f := range p.Functions {
		cf, err := buildFunction(&f, retTypes)
		if err != nil {
			return nil, err
		}
		out.Funcs = append(out.Funcs, cf)
	}
	return out, nil
}

// blockSpan is one basic block's worth of wire instructions, still keyed
// by its (possibly empty) label rather than a cfg.BlockID.
type blockSpan struct {
	label  string
	instrs []Instr
	term   *Instr
}

// splitBlocks partitions a function's flat instruction list into basic
// blocks: every label starts a new block (even two labels back to back,
// which yields an empty fallthrough block — Bril's own convention), and
// every terminator (jmp/br/ret/switch) ends one.
func splitBlocks(instrs []Instr) []blockSpan {
	var spans []blockSpan
	cur := blockSpan{}
	open := false
	flush := func() {
		spans = append(spans, cur)
		cur = blockSpan{}
	}
	for _, in := range instrs {
		if in.IsLabel() {
			if open {
				flush()
			}
			cur.label = in.Label
			open = true
			continue
		}
		open = true
		if terminators[in.Op] {
			t := in
			cur.term = &t
			flush()
			open = false
			continue
		}
		cur.instrs = append(cur.instrs, in)
	}
	if open {
		flush()
	}
	if len(spans) == 0 {
		spans = append(spans, blockSpan{})
	}
	return spans
}

// retPoint records one `ret` reached during block construction: the block
// it lives in and the variable it returns (empty for a void ret).
type retPoint struct {
	block cfg.BlockID
	value string
}

func buildFunction(f *Function, retTypes map[string]*ir.Base) (*cfg.Function, error) {
	cf := &cfg.Function{Name: f.Name}
	for _, a := range f.Args {
		ty, _ := baseOf(a.Type) // already checked by Validate
		cf.Args = append(cf.Args, cfg.Param{Name: a.Name, Type: ty})
	}
	cf.RetType = retTypes[f.Name]

	spans := splitBlocks(f.Instrs)
	blocks := make([]*cfg.Block, len(spans))
	labelOf := map[string]cfg.BlockID{}
	for i, s := range spans {
		blocks[i] = cf.AddBlock(s.label)
		if s.label != "" {
			labelOf[s.label] = blocks[i].ID
		}
	}
	cf.Entry = blocks[0].ID

	var rets []retPoint
	for i, s := range spans {
		b := blocks[i]
		for _, in := range s.instrs {
			if in.Op == "print" && len(in.Args) > 1 {
				// internal/cfg's OpPrint takes a single value (no direct
				// wire equivalent of Bril's space-separated multi-print);
				// lower each argument into its own print, in order.
				for _, a := range in.Args {
					b.Instrs = append(b.Instrs, cfg.Instr{Op: cfg.OpPrint, Args: []string{a}})
				}
				continue
			}
			instr, err := translateInstr(f.Name, in)
			if err != nil {
				return nil, err
			}
			b.Instrs = append(b.Instrs, instr)
		}

		switch {
		case s.term == nil:
			if i+1 < len(spans) {
				b.Out = append(b.Out, cfg.Edge{Dest: blocks[i+1].ID})
				continue
			}
			if cf.RetType != nil {
				return nil, diag.New(diag.BRL001, "function %q: execution can fall off the end without returning a value", f.Name)
			}
			rets = append(rets, retPoint{block: b.ID})
		case s.term.Op == "jmp":
			b.Out = append(b.Out, cfg.Edge{Dest: labelOf[s.term.Labels[0]]})
		case s.term.Op == "br":
			cond := s.term.Args[0]
			b.Out = append(b.Out,
				cfg.Edge{Dest: labelOf[s.term.Labels[0]], Var: cond, Cond: &cfg.CondVal{Val: 1, Of: 2}},
				cfg.Edge{Dest: labelOf[s.term.Labels[1]], Var: cond, Cond: &cfg.CondVal{Val: 0, Of: 2}},
			)
		case s.term.Op == "switch":
			sel := s.term.Args[0]
			for idx, l := range s.term.Labels {
				b.Out = append(b.Out, cfg.Edge{Dest: labelOf[l], Var: sel, Cond: &cfg.CondVal{Val: int64(idx), Of: int64(len(s.term.Labels))}})
			}
		case s.term.Op == "ret":
			value := ""
			if len(s.term.Args) == 1 {
				value = s.term.Args[0]
			}
			if (value == "") != (cf.RetType == nil) {
				return nil, diag.New(diag.BRL001, "function %q: ret's presence of a value disagrees with the function's declared return type", f.Name)
			}
			rets = append(rets, retPoint{block: b.ID, value: value})
		}
	}

	if err := unifyExits(cf, rets); err != nil {
		return nil, err
	}
	return cf, nil
}

// unifyExits gives the function a single designated Exit block, regardless
// of how many `ret` points (or implicit void falls-off-the-end) the source
// had. A single unified sink is what every downstream pass assumes:
// restructuring's branch reconvergence is computed from dominance over the
// actual graph, and an early return is otherwise a second, unrelated sink
// no amount of dominance analysis can merge with the "normal" one. Multiple
// rets converge here exactly the way internal/rvsdg's ToCFG merges
// a Gamma's arms: assign each path's result into one shared variable, then
// jump to the shared block.
func unifyExits(cf *cfg.Function, rets []retPoint) error {
	if len(rets) == 0 {
		return diag.New(diag.BRL001, "function %q has no reachable exit", cf.Name)
	}
	if len(rets) == 1 {
		r := rets[0]
		cf.Exit = r.block
		if r.value != "" {
			b := cf.Block(r.block)
			b.Footer = append(b.Footer, cfg.Annotation{Kind: cfg.AssignRet, Var: r.value})
		}
		return nil
	}

	merge := cf.AddBlock(fmt.Sprintf("__exit%d", len(cf.Blocks)))
	if cf.RetType != nil {
		shared := fmt.Sprintf("__retval%d", len(cf.Blocks))
		for _, r := range rets {
			b := cf.Block(r.block)
			b.Instrs = append(b.Instrs, cfg.Instr{Dest: shared, DestType: *cf.RetType, Op: cfg.OpId, Args: []string{r.value}})
			b.Out = append(b.Out, cfg.Edge{Dest: merge.ID})
		}
		merge.Footer = append(merge.Footer, cfg.Annotation{Kind: cfg.AssignRet, Var: shared})
	} else {
		for _, r := range rets {
			b := cf.Block(r.block)
			b.Out = append(b.Out, cfg.Edge{Dest: merge.ID})
		}
	}
	cf.Exit = merge.ID
	return nil
}

func translateInstr(funcName string, in Instr) (cfg.Instr, error) {
	out := cfg.Instr{Dest: in.Dest, Op: cfg.Op(in.Op), Args: in.Args}
	if in.Type != nil {
		ty, ok := baseOf(*in.Type)
		if !ok {
			return cfg.Instr{}, diag.New(diag.BRL002, "function %q: instruction %q has unsupported type", funcName, in.Op)
		}
		out.DestType = ty
	}

	if in.Op == "const" {
		cv, err := constOf(*in.Type, in.Value)
		if err != nil {
			return cfg.Instr{}, diag.New(diag.BRL001, "function %q: %s", funcName, err)
		}
		out.ConstVal = cv
	}
	if in.Op == "call" {
		if len(in.Funcs) != 1 {
			return cfg.Instr{}, diag.New(diag.BRL001, "function %q: call needs exactly one callee", funcName)
		}
		out.CallName = in.Funcs[0]
	}
	return out, nil
}

func constOf(t Type, value any) (ir.Constant, error) {
	switch t.Name {
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return ir.Constant{}, fmt.Errorf("const value %v is not a bool", value)
		}
		return ir.BoolC(b), nil
	case "float":
		f, ok := value.(float64)
		if !ok {
			return ir.Constant{}, fmt.Errorf("const value %v is not a number", value)
		}
		return ir.FloatC(f), nil
	default: // int, char
		switch v := value.(type) {
		case float64:
			return ir.IntC(int64(v)), nil
		case int64:
			return ir.IntC(v), nil
		default:
			return ir.Constant{}, fmt.Errorf("const value %v is not a number", value)
		}
	}
}
