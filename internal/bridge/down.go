// Package bridge translates between the region-structured RVSDG
// (internal/rvsdg) and the DAG-IR expression trees (internal/ir) that the
// external rewrite engine and the extractor operate on. Grounded on the
// reference implementation's to_dag.rs (down-bridge) and from_dag.rs
// (up-bridge).
package bridge

import (
	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rvsdg"
)

// basicBopTable maps every pure, non-effectful cfg.Op to its DAG-IR BopKind.
// Effectful ops (load/store/alloc/free/print) and the constant/call/not
// cases are handled directly in translateBasicOp since they don't fit a
// uniform two-operand shape.
var basicBopTable = map[cfg.Op]ir.BopKind{
	cfg.OpAdd:    ir.Add,
	cfg.OpSub:    ir.Sub,
	cfg.OpMul:    ir.Mul,
	cfg.OpDiv:    ir.Div,
	cfg.OpAnd:    ir.And,
	cfg.OpOr:     ir.Or,
	cfg.OpLt:     ir.LessThan,
	cfg.OpGt:     ir.GreaterThan,
	cfg.OpLe:     ir.LessEq,
	cfg.OpGe:     ir.GreaterEq,
	cfg.OpEq:     ir.Eq,
	cfg.OpSmax:   ir.Smax,
	cfg.OpSmin:   ir.Smin,
	cfg.OpShl:    ir.Shl,
	cfg.OpShr:    ir.Shr,
	cfg.OpFAdd:   ir.FAdd,
	cfg.OpFSub:   ir.FSub,
	cfg.OpFMul:   ir.FMul,
	cfg.OpFDiv:   ir.FDiv,
	cfg.OpFEq:    ir.FEq,
	cfg.OpFLt:    ir.FLessThan,
	cfg.OpFGt:    ir.FGreaterThan,
	cfg.OpFLe:    ir.FLessEq,
	cfg.OpFGe:    ir.FGreaterEq,
	cfg.OpFmax:   ir.Fmax,
	cfg.OpFmin:   ir.Fmin,
	cfg.OpPtrAdd: ir.PtrAdd,
}

func baseTypeOf(b ir.Base) ir.Type { return ir.Type{Kind: ir.BaseT, Base: b} }

// downTranslator lowers one RVSDG region into DAG-IR nodes against a
// program-wide shared arena. Each region gets its own translator (and so its
// own cache and Arg namespace), mirroring the reference implementation's
// fresh DagTranslator per subregion; the node cache memoizes each RVSDG
// node's DAG-IR outputs so an Operand referenced from more than one place
// translates (and is shared) only once, per the StoredValue/StoredNode
// memoization to_dag.rs relies on.
type downTranslator struct {
	arena   *ir.Arena
	region  *rvsdg.Region
	argVals []ir.NodeID // region-local Arg(i) -> its scalar DAG-IR node, precomputed via Get_ on this region's Arg tuple
	ctx     ir.Assumption
	cache   map[rvsdg.NodeID][]ir.NodeID
	sites   *int64 // shared alloc-site counter across the whole bridge invocation
}

func newDownTranslator(arena *ir.Arena, region *rvsdg.Region, argVals []ir.NodeID, ctx ir.Assumption) *downTranslator {
	return &downTranslator{arena: arena, region: region, argVals: argVals, ctx: ctx, cache: map[rvsdg.NodeID][]ir.NodeID{}}
}

func (t *downTranslator) nextSite() int64 {
	*t.sites++
	return *t.sites
}

// DownBridge lowers a whole RVSDG program into a DAG-IR program sharing one
// arena.
func DownBridge(prog *rvsdg.Program) (*ir.Program, error) {
	arena := ir.NewArena()
	out := &ir.Program{Arena: arena}
	sites := new(int64)
	for _, f := range prog.Functions {
		id, err := translateFunction(arena, f, sites)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, id)
	}
	return out, nil
}

func translateFunction(arena *ir.Arena, f *rvsdg.Function, sites *int64) (ir.NodeID, error) {
	inTy := ir.TupleType(f.ArgTypes...)

	var outBases []ir.Base
	if f.RetType != nil {
		outBases = append(outBases, *f.RetType)
	}
	outBases = append(outBases, ir.Base{Kind: ir.State})
	outTy := ir.TupleType(outBases...)

	ctx := ir.Assumption{Kind: ir.InFunc, FuncName: f.Name, Pred: ir.InvalidNode, Body: ir.InvalidNode}
	argTuple := arena.Arg(ir.Unknown(), ctx)
	argVals := make([]ir.NodeID, len(f.ArgTypes))
	for i := range f.ArgTypes {
		argVals[i] = arena.Get_(argTuple, i)
	}

	t := newDownTranslator(arena, f.Body, argVals, ctx)
	t.sites = sites
	bodyRoot, err := t.buildRegionRoot(f.Body)
	if err != nil {
		return 0, err
	}
	return arena.Function(f.Name, inTy, outTy, bodyRoot), nil
}

// buildRegionRoot translates every operand in r.Outputs and concatenates the
// results into the single tuple-typed expression a region boundary
// (Function/If/Switch branch/DoWhile body) is expected to produce.
func (t *downTranslator) buildRegionRoot(r *rvsdg.Region) (ir.NodeID, error) {
	if len(r.Outputs) == 0 {
		return t.arena.Empty(ir.TupleType(), t.ctx), nil
	}
	elems := make([]ir.NodeID, len(r.Outputs))
	for i, out := range r.Outputs {
		id, err := t.operand(out)
		if err != nil {
			return 0, err
		}
		elems[i] = id
	}
	root := t.arena.Single(elems[0])
	for i := 1; i < len(elems); i++ {
		root = t.arena.Concat(root, t.arena.Single(elems[i]))
	}
	return root, nil
}

// operand resolves one RVSDG Operand to the DAG-IR node it denotes,
// translating (and caching) the node it references on demand.
func (t *downTranslator) operand(op rvsdg.Operand) (ir.NodeID, error) {
	switch op.Kind {
	case rvsdg.ArgOperand:
		if op.ArgIndex < 0 || op.ArgIndex >= len(t.argVals) {
			return 0, diag.New(diag.RVB001, "argument index %d out of range (region has %d arguments)", op.ArgIndex, len(t.argVals))
		}
		return t.argVals[op.ArgIndex], nil
	case rvsdg.IdOperand:
		outs, err := t.node(op.Node)
		if err != nil {
			return 0, err
		}
		return outs[0], nil
	case rvsdg.ProjectOperand:
		outs, err := t.node(op.Node)
		if err != nil {
			return 0, err
		}
		if op.ProjIndex < 0 || op.ProjIndex >= len(outs) {
			return 0, diag.New(diag.RVB001, "projection index %d out of range for node %d with %d outputs", op.ProjIndex, op.Node, len(outs))
		}
		return outs[op.ProjIndex], nil
	}
	return 0, diag.New(diag.RVB001, "unknown rvsdg operand kind %v", op.Kind)
}

// node translates (memoized) the RVSDG node id within the current region,
// returning one DAG-IR node id per RVSDG output.
func (t *downTranslator) node(id rvsdg.NodeID) ([]ir.NodeID, error) {
	if cached, ok := t.cache[id]; ok {
		return cached, nil
	}
	if int(id) < 0 || int(id) >= len(t.region.Nodes) {
		return nil, diag.New(diag.RVB001, "rvsdg node id %d out of range for its region", int(id))
	}
	body := t.region.Nodes[id]

	var outs []ir.NodeID
	var err error
	switch body.Kind {
	case rvsdg.BasicOpBody:
		outs, err = t.translateBasicOp(body)
	case rvsdg.GammaBody:
		outs, err = t.translateGamma(body)
	case rvsdg.ThetaBody:
		outs, err = t.translateTheta(body)
	default:
		return nil, diag.New(diag.RVB003, "unknown rvsdg body kind %v", body.Kind)
	}
	if err != nil {
		return nil, err
	}
	t.cache[id] = outs
	return outs, nil
}

// splitTuple builds n Get_ projections over a node known (by the type
// checker's rules for If/Switch/DoWhile) to carry a tuple of arity n.
func (t *downTranslator) splitTuple(tupleID ir.NodeID, n int) []ir.NodeID {
	outs := make([]ir.NodeID, n)
	for i := 0; i < n; i++ {
		outs[i] = t.arena.Get_(tupleID, i)
	}
	return outs
}

func (t *downTranslator) translateBasicOp(body *rvsdg.Body) ([]ir.NodeID, error) {
	args := make([]ir.NodeID, len(body.Args))
	for i, a := range body.Args {
		id, err := t.operand(a)
		if err != nil {
			return nil, err
		}
		args[i] = id
	}

	switch body.Op {
	case cfg.OpConst:
		id := t.arena.ConstNode(body.ConstVal, baseTypeOf(body.ConstTy), t.ctx)
		return []ir.NodeID{id}, nil
	case cfg.OpNot:
		id := t.arena.Uop(ir.Not, args[0])
		return []ir.NodeID{id}, nil
	case cfg.OpLoad:
		id := t.arena.Bop(ir.Load, args[0], args[1])
		return t.splitTuple(id, 2), nil
	case cfg.OpAlloc:
		site := t.nextSite()
		id := t.arena.Alloc(site, args[0], args[1], body.ConstTy.PointeeOf)
		return t.splitTuple(id, 2), nil
	case cfg.OpStore:
		id := t.arena.Top(ir.Write, args[0], args[1], args[2])
		return []ir.NodeID{id}, nil
	case cfg.OpFree:
		id := t.arena.Bop(ir.Free, args[0], args[1])
		return []ir.NodeID{id}, nil
	case cfg.OpPrint:
		id := t.arena.Bop(ir.Print, args[0], args[1])
		return []ir.NodeID{id}, nil
	case cfg.OpCall:
		id := t.arena.Call(body.CallName, args)
		if body.NumOutputs == 2 {
			return t.splitTuple(id, 2), nil
		}
		return []ir.NodeID{id}, nil
	case cfg.OpSelect:
		id := t.arena.Top(ir.Select, args[0], args[1], args[2])
		return []ir.NodeID{id}, nil
	default:
		bop, ok := basicBopTable[body.Op]
		if !ok {
			return nil, diag.New(diag.RVB003, "basic op %q has no DAG-IR translation", body.Op)
		}
		id := t.arena.Bop(bop, args[0], args[1])
		return []ir.NodeID{id}, nil
	}
}

// translateGamma emits a DAG-IR If when the Gamma carries a boolean
// predicate over exactly two branches, and a Switch otherwise (an integer
// predicate, or more than two arms), per the Gamma's PredTy annotation.
func (t *downTranslator) translateGamma(body *rvsdg.Body) ([]ir.NodeID, error) {
	predID, err := t.operand(body.Pred)
	if err != nil {
		return nil, err
	}
	inputIDs := make([]ir.NodeID, len(body.Inputs))
	for i, in := range body.Inputs {
		id, err := t.operand(in)
		if err != nil {
			return nil, err
		}
		inputIDs[i] = id
	}
	if len(body.Branches) == 0 {
		return nil, diag.New(diag.RVB003, "gamma node has no branches")
	}

	if body.PredTy.Kind == ir.Bool && len(body.Branches) == 2 {
		thenRoot, err := t.translateSubregion(body.Branches[1], inputIDs, ir.Assumption{
			Kind: ir.InIf, Branch: true, Pred: predID, Inputs: inputIDs, Body: ir.InvalidNode,
		})
		if err != nil {
			return nil, err
		}
		elseRoot, err := t.translateSubregion(body.Branches[0], inputIDs, ir.Assumption{
			Kind: ir.InIf, Branch: false, Pred: predID, Inputs: inputIDs, Body: ir.InvalidNode,
		})
		if err != nil {
			return nil, err
		}
		ifID := t.arena.If(predID, inputIDs, thenRoot, elseRoot)
		return t.splitTuple(ifID, len(body.Branches[0].Outputs)), nil
	}

	branchRoots := make([]ir.NodeID, len(body.Branches))
	for i, br := range body.Branches {
		root, err := t.translateSubregion(br, inputIDs, ir.Assumption{
			Kind: ir.InSwitch, SwitchBranch: int64(i), Pred: predID, Inputs: inputIDs, Body: ir.InvalidNode,
		})
		if err != nil {
			return nil, err
		}
		branchRoots[i] = root
	}
	switchID := t.arena.Switch(predID, inputIDs, branchRoots)
	return t.splitTuple(switchID, len(body.Branches[0].Outputs)), nil
}

func (t *downTranslator) translateTheta(body *rvsdg.Body) ([]ir.NodeID, error) {
	inputIDs := make([]ir.NodeID, len(body.Inputs))
	for i, in := range body.Inputs {
		id, err := t.operand(in)
		if err != nil {
			return nil, err
		}
		inputIDs[i] = id
	}

	// The loop body's own Assumption.Body is meant to reference the loop's
	// pred-and-body expression itself, which does not exist yet while the
	// body is still being built — a genuine circularity the reference
	// implementation resolves with an Rc cycle. Left as InvalidNode here:
	// this only weakens the loop context's identity for the (out-of-scope)
	// rewrite engine, never the translated value.
	ctx := ir.Assumption{Kind: ir.InLoop, Inputs: inputIDs, Pred: ir.InvalidNode, Body: ir.InvalidNode}
	bodyRoot, err := t.translateSubregion(body.LoopBody, inputIDs, ctx)
	if err != nil {
		return nil, err
	}

	dowhileID := t.arena.DoWhile(inputIDs, bodyRoot)
	return t.splitTuple(dowhileID, len(inputIDs)), nil
}

// translateSubregion builds the Arg tuple and per-index Get_ projections for
// one nested region (an If/Switch branch or a DoWhile body), then drives a
// fresh downTranslator over it so its own node cache and Arg namespace don't
// leak across the region boundary.
func (t *downTranslator) translateSubregion(r *rvsdg.Region, inputIDs []ir.NodeID, ctx ir.Assumption) (ir.NodeID, error) {
	argTuple := t.arena.Arg(ir.Unknown(), ctx)
	argVals := make([]ir.NodeID, len(inputIDs))
	for i := range inputIDs {
		argVals[i] = t.arena.Get_(argTuple, i)
	}
	child := newDownTranslator(t.arena, r, argVals, ctx)
	child.sites = t.sites
	return child.buildRegionRoot(r)
}
