package bridge

import (
	"github.com/egraphs-good/eggcc-go/internal/cfg"
	"github.com/egraphs-good/eggcc-go/internal/diag"
	"github.com/egraphs-good/eggcc-go/internal/ir"
	"github.com/egraphs-good/eggcc-go/internal/rvsdg"
)

// reverseBopTable is basicBopTable inverted: every pure DAG-IR BopKind maps
// back to the cfg.Op the down-bridge would have produced it from. Load,
// Print and Free are handled directly in convertBop since their RVSDG shape
// (state-threading, output arity) doesn't fit the uniform two-operand table.
var reverseBopTable = map[ir.BopKind]cfg.Op{
	ir.Add:         cfg.OpAdd,
	ir.Sub:         cfg.OpSub,
	ir.Mul:         cfg.OpMul,
	ir.Div:         cfg.OpDiv,
	ir.And:         cfg.OpAnd,
	ir.Or:          cfg.OpOr,
	ir.LessThan:    cfg.OpLt,
	ir.GreaterThan: cfg.OpGt,
	ir.LessEq:      cfg.OpLe,
	ir.GreaterEq:   cfg.OpGe,
	ir.Eq:          cfg.OpEq,
	ir.Smax:        cfg.OpSmax,
	ir.Smin:        cfg.OpSmin,
	ir.Shl:         cfg.OpShl,
	ir.Shr:         cfg.OpShr,
	ir.FAdd:        cfg.OpFAdd,
	ir.FSub:        cfg.OpFSub,
	ir.FMul:        cfg.OpFMul,
	ir.FDiv:        cfg.OpFDiv,
	ir.FEq:         cfg.OpFEq,
	ir.FLessThan:   cfg.OpFLt,
	ir.FGreaterThan: cfg.OpFGt,
	ir.FLessEq:     cfg.OpFLe,
	ir.FGreaterEq:  cfg.OpFGe,
	ir.Fmax:        cfg.OpFmax,
	ir.Fmin:        cfg.OpFmin,
	ir.PtrAdd:      cfg.OpPtrAdd,
}

// upTranslator lifts one DAG-IR region (a function body, or an If/Switch
// branch/DoWhile body reached while walking one) into a fresh RVSDG region.
// Each region gets its own translator — its own node cache and its own
// currentArgs — mirroring the reference implementation's fresh
// TreeToRvsdg/translation_cache per subregion, except that where the
// reference appends every region's nodes to one shared flat vector, this
// builds a separate *rvsdg.Region per subregion (matching how
// internal/rvsdg itself nests regions) rather than a shared flat node list.
type upTranslator struct {
	arena   *ir.Arena
	program *ir.Program
	region  *rvsdg.Region
	currentArgs []rvsdg.Operand // this region's Arg(i) tuple, as a flat operand list
	cache   map[ir.NodeID][]rvsdg.Operand
}

func newUpTranslator(arena *ir.Arena, program *ir.Program, region *rvsdg.Region, currentArgs []rvsdg.Operand) *upTranslator {
	return &upTranslator{arena: arena, program: program, region: region, currentArgs: currentArgs, cache: map[ir.NodeID][]rvsdg.Operand{}}
}

// UpBridge lifts a whole DAG-IR program back into an RVSDG program.
// Grounded on the reference implementation's from_dag.rs.
func UpBridge(prog *ir.Program) (*rvsdg.Program, error) {
	out := &rvsdg.Program{}
	for _, id := range prog.Functions {
		f, err := translateFunctionUp(prog, id)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, f)
	}
	return out, nil
}

// tupleBases flattens a Type into its base-type list: a bare BaseT is a
// one-element list, a TupleT is itself, anything else is an error (the
// Function/If/Switch/DoWhile boundaries this is called on are always typed
// this way by construction, per internal/typecheck's rules).
func tupleBases(ty ir.Type) ([]ir.Base, error) {
	switch ty.Kind {
	case ir.BaseT:
		return []ir.Base{ty.Base}, nil
	case ir.TupleT:
		return ty.Tuple, nil
	default:
		return nil, diag.New(diag.RVB003, "expected a concrete base or tuple type, found %v", ty)
	}
}

func translateFunctionUp(prog *ir.Program, id ir.NodeID) (*rvsdg.Function, error) {
	e := prog.Arena.Get(id)
	if e.Kind != ir.FunctionExpr {
		return nil, diag.New(diag.RVB003, "expected a Function node, found %v", e.Kind)
	}
	argTypes, err := tupleBases(e.FuncInTy)
	if err != nil {
		return nil, err
	}
	outBases, err := tupleBases(e.FuncOutTy)
	if err != nil {
		return nil, err
	}

	var retType *ir.Base
	switch len(outBases) {
	case 1:
		// a bare State result: no declared return value
	case 2:
		r := outBases[0]
		retType = &r
	default:
		return nil, diag.New(diag.RVB003, "function %q has unexpected output arity %d", e.FuncName, len(outBases))
	}

	region := &rvsdg.Region{}
	currentArgs := make([]rvsdg.Operand, len(argTypes))
	for i := range argTypes {
		currentArgs[i] = rvsdg.Arg(i)
	}
	t := newUpTranslator(prog.Arena, prog, region, currentArgs)
	outs, err := t.convert(e.FuncBody)
	if err != nil {
		return nil, err
	}
	region.Outputs = outs
	return &rvsdg.Function{Name: e.FuncName, ArgTypes: argTypes, RetType: retType, Body: region}, nil
}

// translateSubregion lifts one nested DAG-IR region root (an If/Switch
// branch or a DoWhile body) into a fresh *rvsdg.Region, with its own node
// cache and its own Arg(0..numArgs) namespace.
func (t *upTranslator) translateSubregion(rootID ir.NodeID, numArgs int) (*rvsdg.Region, error) {
	region := &rvsdg.Region{}
	args := make([]rvsdg.Operand, numArgs)
	for i := range args {
		args[i] = rvsdg.Arg(i)
	}
	child := newUpTranslator(t.arena, t.program, region, args)
	outs, err := child.convert(rootID)
	if err != nil {
		return nil, err
	}
	region.Outputs = outs
	return region, nil
}

// pushBasic appends a BasicOpBody node to the current region and returns
// one operand per logical output: the whole (Id) result for a single-output
// node, or a Project per field for a multi-output one. This deliberately
// diverges from the reference implementation's Operand model (which only
// has Arg/Project and so always projects), matching the Id/Project split
// internal/rvsdg's own builder already uses for single- vs multi-output
// nodes.
func (t *upTranslator) pushBasic(b *rvsdg.Body) []rvsdg.Operand {
	id := t.region.Add(b)
	if b.NumOutputs <= 1 {
		return []rvsdg.Operand{rvsdg.Id(id)}
	}
	outs := make([]rvsdg.Operand, b.NumOutputs)
	for i := range outs {
		outs[i] = rvsdg.Project(i, id)
	}
	return outs
}

// pushProjecting appends a Gamma/Theta node and always projects each
// output, regardless of count — matching how internal/rvsdg's own from_cfg
// builder binds every branch/loop output via Project, never Id.
func pushProjecting(region *rvsdg.Region, b *rvsdg.Body) []rvsdg.Operand {
	id := region.Add(b)
	outs := make([]rvsdg.Operand, b.NumOutputs)
	for i := range outs {
		outs[i] = rvsdg.Project(i, id)
	}
	return outs
}

func one(outs []rvsdg.Operand, what string) (rvsdg.Operand, error) {
	if len(outs) != 1 {
		return rvsdg.Operand{}, diag.New(diag.RVB001, "%s expected a single-valued operand, got %d values", what, len(outs))
	}
	return outs[0], nil
}

// convert lifts (memoized) the DAG-IR node id into its RVSDG operand(s)
// within the current region.
func (t *upTranslator) convert(id ir.NodeID) ([]rvsdg.Operand, error) {
	if cached, ok := t.cache[id]; ok {
		return cached, nil
	}
	e := t.arena.Get(id)

	var outs []rvsdg.Operand
	var err error
	switch e.Kind {
	case ir.FunctionExpr:
		outs, err = t.convert(e.FuncBody)
	case ir.ConstExpr:
		outs = t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpConst, ConstVal: e.Const, ConstTy: e.Const.BaseOf(), NumOutputs: 1})
	case ir.ArgExpr:
		outs = t.currentArgs
	case ir.EmptyExpr:
		outs = nil
	case ir.SingleExpr:
		outs, err = t.convert(e.Single)
		if err == nil && len(outs) != 1 {
			err = diag.New(diag.RVB001, "Single wraps %d values, expected exactly 1", len(outs))
		}
	case ir.ConcatExpr:
		outs, err = t.convertConcat(e)
	case ir.GetExpr:
		outs, err = t.convertGet(e)
	case ir.UopExpr:
		outs, err = t.convertUop(e)
	case ir.BopExpr:
		outs, err = t.convertBop(e)
	case ir.TopExpr:
		outs, err = t.convertTop(e)
	case ir.AllocExpr:
		outs, err = t.convertAlloc(e)
	case ir.IfExpr:
		outs, err = t.convertIf(e)
	case ir.SwitchExpr:
		outs, err = t.convertSwitch(e)
	case ir.DoWhileExpr:
		outs, err = t.convertDoWhile(e)
	case ir.CallExpr:
		outs, err = t.convertCall(e)
	case ir.SymbolicExpr:
		err = diag.New(diag.RVB003, "symbolic placeholder %q has no RVSDG translation", e.SymbolicName)
	default:
		err = diag.New(diag.RVB003, "dag-ir node kind %v has no RVSDG translation", e.Kind)
	}
	if err != nil {
		return nil, err
	}
	t.cache[id] = outs
	return outs, nil
}

func (t *upTranslator) convertConcat(e *ir.Expr) ([]rvsdg.Operand, error) {
	l, err := t.convert(e.ConcatL)
	if err != nil {
		return nil, err
	}
	r, err := t.convert(e.ConcatR)
	if err != nil {
		return nil, err
	}
	outs := make([]rvsdg.Operand, 0, len(l)+len(r))
	outs = append(outs, l...)
	outs = append(outs, r...)
	return outs, nil
}

func (t *upTranslator) convertGet(e *ir.Expr) ([]rvsdg.Operand, error) {
	src, err := t.convert(e.GetSrc)
	if err != nil {
		return nil, err
	}
	if e.GetIdx < 0 || e.GetIdx >= len(src) {
		return nil, diag.New(diag.TC003, "get index %d out of range for a %d-element tuple", e.GetIdx, len(src))
	}
	return []rvsdg.Operand{src[e.GetIdx]}, nil
}

func (t *upTranslator) convertUop(e *ir.Expr) ([]rvsdg.Operand, error) {
	arg, err := t.convert(e.UopArg)
	if err != nil {
		return nil, err
	}
	a, err := one(arg, "unary operand")
	if err != nil {
		return nil, err
	}
	switch e.UopOp {
	case ir.Not:
		return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpNot, Args: []rvsdg.Operand{a}, NumOutputs: 1}), nil
	}
	return nil, diag.New(diag.RVB003, "unary op %v has no RVSDG translation", e.UopOp)
}

func (t *upTranslator) convertBop(e *ir.Expr) ([]rvsdg.Operand, error) {
	lv, err := t.convert(e.BopL)
	if err != nil {
		return nil, err
	}
	rv, err := t.convert(e.BopR)
	if err != nil {
		return nil, err
	}
	l, err := one(lv, "binary left operand")
	if err != nil {
		return nil, err
	}
	r, err := one(rv, "binary right operand")
	if err != nil {
		return nil, err
	}

	switch e.BopOp {
	case ir.Load:
		return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpLoad, Args: []rvsdg.Operand{l, r}, NumOutputs: 2}), nil
	case ir.Print:
		return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpPrint, Args: []rvsdg.Operand{l, r}, NumOutputs: 1}), nil
	case ir.Free:
		return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpFree, Args: []rvsdg.Operand{l, r}, NumOutputs: 1}), nil
	}
	op, ok := reverseBopTable[e.BopOp]
	if !ok {
		return nil, diag.New(diag.RVB003, "binary op %v has no RVSDG translation", e.BopOp)
	}
	return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: op, Args: []rvsdg.Operand{l, r}, NumOutputs: 1}), nil
}

func (t *upTranslator) convertTop(e *ir.Expr) ([]rvsdg.Operand, error) {
	av, err := t.convert(e.TopA)
	if err != nil {
		return nil, err
	}
	bv, err := t.convert(e.TopB)
	if err != nil {
		return nil, err
	}
	cv, err := t.convert(e.TopC)
	if err != nil {
		return nil, err
	}
	a, err := one(av, "ternary operand 1")
	if err != nil {
		return nil, err
	}
	b, err := one(bv, "ternary operand 2")
	if err != nil {
		return nil, err
	}
	c, err := one(cv, "ternary operand 3")
	if err != nil {
		return nil, err
	}

	switch e.TopOp {
	case ir.Write:
		return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpStore, Args: []rvsdg.Operand{a, b, c}, NumOutputs: 1}), nil
	case ir.Select:
		return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpSelect, Args: []rvsdg.Operand{a, b, c}, NumOutputs: 1}), nil
	}
	return nil, diag.New(diag.RVB003, "ternary op %v has no RVSDG translation", e.TopOp)
}

func (t *upTranslator) convertAlloc(e *ir.Expr) ([]rvsdg.Operand, error) {
	sizeV, err := t.convert(e.AllocSize)
	if err != nil {
		return nil, err
	}
	stateV, err := t.convert(e.AllocState)
	if err != nil {
		return nil, err
	}
	size, err := one(sizeV, "alloc size")
	if err != nil {
		return nil, err
	}
	state, err := one(stateV, "alloc state")
	if err != nil {
		return nil, err
	}
	ptrTy := ir.Base{Kind: ir.Pointer, PointeeOf: e.AllocBase}
	return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpAlloc, Args: []rvsdg.Operand{size, state}, ConstTy: ptrTy, NumOutputs: 2}), nil
}

// convertFlatInputs translates a slice of scalar DAG-IR nodes (If/Switch
// inputs, a DoWhile's inputs, a Call's arguments) into one operand each.
func (t *upTranslator) convertFlatInputs(ids []ir.NodeID, what string) ([]rvsdg.Operand, error) {
	out := make([]rvsdg.Operand, len(ids))
	for i, id := range ids {
		v, err := t.convert(id)
		if err != nil {
			return nil, err
		}
		scalar, err := one(v, what)
		if err != nil {
			return nil, err
		}
		out[i] = scalar
	}
	return out, nil
}

func (t *upTranslator) convertIf(e *ir.Expr) ([]rvsdg.Operand, error) {
	predV, err := t.convert(e.IfPred)
	if err != nil {
		return nil, err
	}
	pred, err := one(predV, "if predicate")
	if err != nil {
		return nil, err
	}
	inputs, err := t.convertFlatInputs(e.IfInputs, "if input")
	if err != nil {
		return nil, err
	}
	thenRegion, err := t.translateSubregion(e.IfThen, len(inputs))
	if err != nil {
		return nil, err
	}
	elseRegion, err := t.translateSubregion(e.IfElse, len(inputs))
	if err != nil {
		return nil, err
	}
	if len(thenRegion.Outputs) != len(elseRegion.Outputs) {
		return nil, diag.New(diag.TC001, "if branches disagree on output arity: %d vs %d", len(thenRegion.Outputs), len(elseRegion.Outputs))
	}
	body := &rvsdg.Body{
		Kind: rvsdg.GammaBody, Pred: pred, PredTy: ir.Base{Kind: ir.Bool},
		Inputs: inputs, Branches: []*rvsdg.Region{elseRegion, thenRegion}, NumOutputs: len(thenRegion.Outputs),
	}
	return pushProjecting(t.region, body), nil
}

func (t *upTranslator) convertSwitch(e *ir.Expr) ([]rvsdg.Operand, error) {
	predV, err := t.convert(e.SwitchPred)
	if err != nil {
		return nil, err
	}
	pred, err := one(predV, "switch predicate")
	if err != nil {
		return nil, err
	}
	inputs, err := t.convertFlatInputs(e.SwitchInputs, "switch input")
	if err != nil {
		return nil, err
	}
	if len(e.SwitchBranches) == 0 {
		return nil, diag.New(diag.RVB003, "switch node has no branches")
	}
	branches := make([]*rvsdg.Region, len(e.SwitchBranches))
	for i, br := range e.SwitchBranches {
		r, err := t.translateSubregion(br, len(inputs))
		if err != nil {
			return nil, err
		}
		if i > 0 && len(r.Outputs) != len(branches[0].Outputs) {
			return nil, diag.New(diag.TC001, "switch branch %d disagrees on output arity: %d vs %d", i, len(r.Outputs), len(branches[0].Outputs))
		}
		branches[i] = r
	}
	body := &rvsdg.Body{
		Kind: rvsdg.GammaBody, Pred: pred, PredTy: ir.Base{Kind: ir.Int},
		Inputs: inputs, Branches: branches, NumOutputs: len(branches[0].Outputs),
	}
	return pushProjecting(t.region, body), nil
}

func (t *upTranslator) convertDoWhile(e *ir.Expr) ([]rvsdg.Operand, error) {
	inputs, err := t.convertFlatInputs(e.DoWhileInputs, "do-while input")
	if err != nil {
		return nil, err
	}
	bodyRegion, err := t.translateSubregion(e.DoWhileBody, len(inputs))
	if err != nil {
		return nil, err
	}
	if len(bodyRegion.Outputs) != len(inputs)+1 {
		return nil, diag.New(diag.TC001, "do-while body produces %d values, expected %d (predicate + %d carried)", len(bodyRegion.Outputs), len(inputs)+1, len(inputs))
	}
	body := &rvsdg.Body{Kind: rvsdg.ThetaBody, Inputs: inputs, LoopBody: bodyRegion, NumOutputs: len(inputs)}
	return pushProjecting(t.region, body), nil
}

func (t *upTranslator) convertCall(e *ir.Expr) ([]rvsdg.Operand, error) {
	calleeID := t.program.Func(e.CallName)
	if calleeID == ir.InvalidNode {
		return nil, diag.New(diag.TC006, "call to undeclared function %q", e.CallName)
	}
	callee := t.arena.Get(calleeID)
	outBases, err := tupleBases(callee.FuncOutTy)
	if err != nil {
		return nil, err
	}
	args, err := t.convertFlatInputs(e.CallArgs, "call argument")
	if err != nil {
		return nil, err
	}
	return t.pushBasic(&rvsdg.Body{Kind: rvsdg.BasicOpBody, Op: cfg.OpCall, CallName: e.CallName, Args: args, NumOutputs: len(outBases)}), nil
}
