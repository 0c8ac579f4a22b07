// Package pipeline wires the per-module stages (internal/bril,
// internal/restructure, internal/rvsdg, internal/bridge,
// internal/typecheck, internal/rewrite, internal/extract, internal/simplify)
// into the single front-to-back run cmd/eggcc and internal/repl both drive:
// source CFG -> restructured CFG -> RVSDG -> DAG-IR -> saturation ->
// extraction -> DAG-IR -> RVSDG -> CFG -> simplified CFG -> source.
package pipeline

import (
	"github.com/egraphs-good/eggcc-go/internal/bridge"
	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/config"
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/extract"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/restructure"
	"github.com/egraphs-good/eggcc-go/internal/rewrite"
	"github.com/egraphs-good/eggcc-go/internal/rvsdg"
	"github.com/egraphs-good/eggcc-go/internal/simplify"
	"github.com/egraphs-good/eggcc-go/internal/typecheck"
)

// Frontend restructures every function of a freshly built CFG in place —
// the step between internal/bril.Build and internal/rvsdg's symbolic
// execution.
func Frontend(prog *cfg.Program) *cfg.Program {
	for _, f := range prog.Funcs {
		restructure.Function(f)
	}
	return prog
}

// ToDagIR lifts a restructured CFG to RVSDG, lowers it down to DAG-IR, and
// type-checks the result. The returned program shares one arena across
// every function, matching internal/bridge.DownBridge's own convention.
func ToDagIR(prog *cfg.Program) (*ir.Program, error) {
	rv, err := rvsdg.BuildProgram(prog)
	if err != nil {
		return nil, err
	}
	dag, err := bridge.DownBridge(rv)
	if err != nil {
		return nil, err
	}
	if err := typecheck.Check(dag); err != nil {
		return nil, err
	}
	return dag, nil
}

// Optimized is one function's DAG-IR after crossing the rewrite-engine
// boundary and coming back out through extraction — a single-function
// ir.Program in its own arena, per internal/extract.Rebuild's doc comment
// on why whole-program extraction happens one function at a time.
type Optimized struct {
	Name    string
	Program *ir.Program
}

// Saturate inserts every function of dag into a fresh rewrite.Engine of its
// own (internal/rewrite.InMemoryEngine.Serialize always roots at the most
// recently inserted term, so one function per engine is the only way to
// get each function's own extraction root), runs the schedule named by
// settings.RuleSet/settings.Schedule (opaque strings, unused by
// InMemoryEngine's no-op RunSchedule today but carried through as the hook
// a real saturation engine would consume), and extracts a cost-minimal
// program with whichever extractor settings.Extract names.
func Saturate(dag *ir.Program, settings config.Config) ([]Optimized, error) {
	cm := extract.DefaultCostModel{}
	out := make([]Optimized, 0, len(dag.Functions))
	for _, id := range dag.Functions {
		fn := dag.Arena.Get(id)
		engine := rewrite.NewInMemoryEngine()
		if _, err := rewrite.InsertExpr(engine, dag.Arena, id); err != nil {
			return nil, err
		}
		if err := engine.RunSchedule(settings.RuleSet, settings.Schedule); err != nil {
			return nil, err
		}
		g, err := engine.Serialize(cm.GetOpCost)
		if err != nil {
			return nil, err
		}
		var extracted *ir.Program
		switch settings.Extract {
		case config.ExtractILP:
			extracted, err = extract.ExtractExact(g, cm, extract.DefaultConfig(), settings.ILPTimeout())
		default:
			extracted, err = extract.ExtractGreedy(g, cm)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Optimized{Name: fn.FuncName, Program: extracted})
	}
	return out, nil
}

// ToRVSDG lifts every extracted function back up through internal/bridge
// and merges the results into one rvsdg.Program.
func ToRVSDG(optimized []Optimized) (*rvsdg.Program, error) {
	out := &rvsdg.Program{}
	for _, o := range optimized {
		rv, err := bridge.UpBridge(o.Program)
		if err != nil {
			return nil, err
		}
		if len(rv.Functions) != 1 {
			return nil, diag.New(diag.RVB003, "expected exactly one function lifting %q, found %d", o.Name, len(rv.Functions))
		}
		out.Functions = append(out.Functions, rv.Functions[0])
	}
	return out, nil
}

// Backend lowers an RVSDG program back to CFG and runs the branch
// simplifier over every function in place.
func Backend(prog *rvsdg.Program) (*cfg.Program, error) {
	cf, err := rvsdg.ToCFG(prog)
	if err != nil {
		return nil, err
	}
	for _, f := range cf.Funcs {
		simplify.Function(f)
	}
	return cf, nil
}

// Compile runs the whole pipeline end to end over an already-built,
// not-yet-restructured CFG, returning the final simplified CFG plus the
// extracted DAG-IR (kept around for --emit=dag-ir).
func Compile(prog *cfg.Program, settings config.Config) (*cfg.Program, []Optimized, error) {
	Frontend(prog)
	dag, err := ToDagIR(prog)
	if err != nil {
		return nil, nil, err
	}
	optimized, err := Saturate(dag, settings)
	if err != nil {
		return nil, nil, err
	}
	rv, err := ToRVSDG(optimized)
	if err != nil {
		return nil, nil, err
	}
	out, err := Backend(rv)
	if err != nil {
		return nil, nil, err
	}
	return out, optimized, nil
}
